package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/abdul-hamid-achik/hitcall/packages/auth/keystone"
	"github.com/abdul-hamid-achik/hitcall/packages/auth/sigv4"
	"github.com/abdul-hamid-achik/hitcall/packages/history"
	hithttp "github.com/abdul-hamid-achik/hitcall/packages/http"
	"github.com/abdul-hamid-achik/hitcall/packages/logging"
	"github.com/abdul-hamid-achik/hitcall/packages/metrics"
	"github.com/abdul-hamid-achik/hitcall/packages/output"
)

// WatchDebounceDelay is the delay before re-running after the config changes
const WatchDebounceDelay = 300 * time.Millisecond

// callOptions holds everything the call command's flags set
type callOptions struct {
	method        string
	headers       []string
	query         []string
	params        []string
	data          string
	json          string
	https         bool
	ensureSuccess bool
	timeout       time.Duration
	retries       int
	cert          string
	endpoint      string
	openapi       string
	noLog         bool
	user          string
	verifyTLS     bool
	rate          float64
	pick          string
	repeat        int
	stats         bool
	metricsFile   string
	history       string
	watch         bool
}

var callOpts callOptions

var callCmd = &cobra.Command{
	Use:   "call <client> [path]",
	Short: "Send a request through a named client",
	Long: `Send one request through a client from the config file. The client name
may also be a literal base URL.

Examples:
  hitcall call users /users/{id} -p id=42
  hitcall call users -X POST /users --json '{"name":"bob"}'
  hitcall call petstore -e getPetById -p petId=1 --pick name
  hitcall call https://httpbin.org /get -q a=1 --repeat 20 --stats`,
	Args: usageArgs(cobra.RangeArgs(1, 2)),
	RunE: callCommand,
}

func init() {
	f := callCmd.Flags()
	f.StringVarP(&callOpts.method, "method", "X", "", "HTTP method (default from the client, else GET)")
	f.StringArrayVarP(&callOpts.headers, "header", "H", nil, "Header as 'Name: value' (repeatable)")
	f.StringArrayVarP(&callOpts.query, "query", "q", nil, "Query parameter as key=value (repeatable, order kept)")
	f.StringArrayVarP(&callOpts.params, "param", "p", nil, "Route parameter as key=value, fills {key} in the path (repeatable)")
	f.StringVarP(&callOpts.data, "data", "d", "", "Request body, or @file to read it from a file")
	f.StringVar(&callOpts.json, "json", "", "JSON request body, sets Content-Type to application/json")
	f.BoolVar(&callOpts.https, "https", getEnvBool("HITCALL_HTTPS", false), "Use https when the client does not set a scheme (env: HITCALL_HTTPS)")
	f.BoolVar(&callOpts.ensureSuccess, "ensure-success", false, "Fail on a status of 400 or above")
	f.DurationVar(&callOpts.timeout, "timeout", 0, "Request timeout (default from the client, else 180s)")
	f.IntVar(&callOpts.retries, "retries", -1, "Retries for idempotent requests on transport errors (default from the client)")
	f.StringVar(&callOpts.cert, "cert", "", "PEM file with the CA certificate used to verify the server")
	f.StringVarP(&callOpts.endpoint, "endpoint", "e", "", "OpenAPI operationId or inline endpoint name instead of a path")
	f.StringVar(&callOpts.openapi, "openapi", "", "OpenAPI document (file or URL) the endpoint is looked up in")
	f.BoolVar(&callOpts.noLog, "no-log", false, "Keep request and response bodies out of the logs")
	f.StringVarP(&callOpts.user, "user", "u", "", "Basic auth credentials as user:password")
	f.BoolVar(&callOpts.verifyTLS, "verify-tls", getEnvBool("HITCALL_VERIFY_TLS", false), "Verify server certificates even without --cert (env: HITCALL_VERIFY_TLS)")
	f.Float64Var(&callOpts.rate, "rate", getEnvFloat("HITCALL_RATE", 0), "Maximum requests per second, 0 for no limit (env: HITCALL_RATE)")
	f.StringVar(&callOpts.pick, "pick", "", "Print only this gjson path from a JSON response")
	f.IntVarP(&callOpts.repeat, "repeat", "n", getEnvInt("HITCALL_REPEAT", 1), "Send the request this many times (env: HITCALL_REPEAT)")
	f.BoolVar(&callOpts.stats, "stats", false, "Print latency statistics after the calls")
	f.StringVar(&callOpts.metricsFile, "metrics-file", getEnvString("HITCALL_METRICS_FILE", ""), "Write latency statistics in Prometheus text format to this file (env: HITCALL_METRICS_FILE)")
	f.StringVar(&callOpts.history, "history", getEnvString("HITCALL_HISTORY", ""), "Record calls to this SQLite database (env: HITCALL_HISTORY)")
	f.BoolVarP(&callOpts.watch, "watch", "w", false, "Re-run whenever the config file changes")
}

func callCommand(cmd *cobra.Command, args []string) error {
	opts := callOpts
	if opts.repeat < 1 {
		return &usageError{err: fmt.Errorf("--repeat must be at least 1")}
	}
	if opts.data != "" && opts.json != "" {
		return &usageError{err: fmt.Errorf("--data and --json cannot be combined")}
	}

	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer logging.Sync(env.logger)

	if opts.watch && env.configPath == "" {
		return &usageError{err: fmt.Errorf("--watch needs a config file")}
	}

	formatter, err := newFormatter(cmd)
	if err != nil {
		return err
	}

	hooks := []hithttp.Hook{
		keystone.NewHook(keystone.WithLogger(env.logger)),
		sigv4.NewHook(),
	}

	var recorder *metrics.Recorder
	if opts.stats || opts.metricsFile != "" {
		recorder = metrics.NewRecorder()
		hooks = append(hooks, recorder)
	}

	if opts.history != "" {
		store, err := history.Open(opts.history, env.config.Debug)
		if err != nil {
			return err
		}
		defer store.Close()
		hooks = append(hooks, store)
	}

	clientOpts := []hithttp.ClientOption{
		hithttp.WithStore(env.store),
		hithttp.WithLogger(env.logger),
		hithttp.WithDebug(debugFlag),
		hithttp.WithVerifyTLS(opts.verifyTLS),
		hithttp.WithHooks(hooks...),
	}
	if opts.rate > 0 {
		clientOpts = append(clientOpts, hithttp.WithRateLimit(opts.rate, 1))
	}
	client := hithttp.NewClient(clientOpts...)

	runner := &callRunner{
		client:    client,
		formatter: formatter,
		recorder:  recorder,
		out:       cmd.OutOrStdout(),
		opts:      opts,
		logger:    env.logger,
	}

	err = runner.run(cmd.Context(), args)
	if !opts.watch {
		return err
	}
	if err != nil {
		formatter.FormatError(err)
	}
	return runner.watch(cmd.Context(), env, args)
}

// callRunner sends the configured request and reports what came back
type callRunner struct {
	client    *hithttp.Client
	formatter output.Formatter
	recorder  *metrics.Recorder
	out       io.Writer
	opts      callOptions
	logger    *zap.Logger
}

// run sends the request opts.repeat times. Errors after the first call are
// reported through the formatter and the last one is returned.
func (r *callRunner) run(ctx context.Context, args []string) error {
	if r.recorder != nil {
		r.recorder.Reset()
	}

	var lastErr error
	for i := 0; i < r.opts.repeat; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		cfg, err := r.client.Resolve(args[0], r.opts.https)
		if err != nil {
			return err
		}
		path := ""
		if len(args) > 1 {
			path = args[1]
		}
		cfg, err = r.opts.apply(cfg, path)
		if err != nil {
			return &usageError{err: err}
		}

		ex, err := r.client.Do(ctx, cfg)
		if ex != nil {
			if perr := r.print(ex); perr != nil && err == nil {
				err = perr
			}
		}
		if err != nil {
			if ex == nil && r.recorder != nil {
				r.recorder.RecordFailure(failureKey(cfg))
			}
			if r.opts.repeat == 1 {
				lastErr = err
				break
			}
			r.formatter.FormatError(err)
			lastErr = &reportedError{err: err}
		}
	}

	if r.recorder != nil {
		snapshot := r.recorder.Snapshot()
		if r.opts.stats {
			r.formatter.FormatStats(snapshot)
		}
		if r.opts.metricsFile != "" {
			if err := writeMetricsFile(r.opts.metricsFile, snapshot); err != nil {
				return err
			}
		}
	}
	if err := r.formatter.Flush(); err != nil {
		return err
	}
	return lastErr
}

func writeMetricsFile(path string, stats []metrics.Stats) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create metrics file: %w", err)
	}
	defer f.Close()
	if err := metrics.WritePrometheus(f, stats); err != nil {
		return fmt.Errorf("cannot write metrics file: %w", err)
	}
	return f.Close()
}

func (r *callRunner) print(ex *hithttp.Exchange) error {
	if r.opts.pick == "" {
		r.formatter.FormatExchange(ex)
		return nil
	}
	if !ex.Response.IsJSON() {
		return fmt.Errorf("cannot pick %q: response is not JSON", r.opts.pick)
	}
	result := ex.Response.Pick(r.opts.pick)
	if !result.Exists() {
		return fmt.Errorf("path %q not found in response", r.opts.pick)
	}
	fmt.Fprintln(r.out, pickValue(result))
	return nil
}

// pickValue prints strings bare and everything else as raw JSON
func pickValue(result gjson.Result) string {
	if result.Type == gjson.String {
		return result.String()
	}
	return result.Raw
}

func failureKey(cfg *hithttp.RequestConfig) string {
	host := cfg.BaseURL
	if u, err := url.Parse(cfg.BaseURL); err == nil && u.Host != "" {
		host = u.Host
	}
	path := cfg.Path
	if path == "" {
		path = cfg.Endpoint
	}
	return metrics.EndpointKey(cfg.Method, host, path)
}

// watch re-runs the calls after the config file changes, until ctx is done
func (r *callRunner) watch(ctx context.Context, env *environment, args []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	configPath, err := filepath.Abs(env.configPath)
	if err != nil {
		return err
	}
	// editors often replace the file, so watch its directory
	if err := watcher.Add(filepath.Dir(configPath)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", configPath, err)
	}

	fmt.Fprintf(os.Stderr, "\nWatching %s for changes... (press Ctrl+C to stop)\n", env.configPath)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if name, err := filepath.Abs(event.Name); err != nil || name != configPath {
				continue
			}
			debounce = time.After(WatchDebounceDelay)

		case <-debounce:
			debounce = nil
			if err := env.store.Reload(env.configPath); err != nil {
				r.formatter.FormatError(&configFileError{path: env.configPath, err: err})
				continue
			}
			r.logger.Info("config reloaded", zap.String("path", env.configPath))
			if err := r.run(ctx, args); err != nil {
				var reported *reportedError
				if !errors.As(err, &reported) {
					r.formatter.FormatError(err)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.formatter.FormatError(fmt.Errorf("watcher error: %w", err))
		}
	}
}

// apply layers the command line flags over a resolved client config
func (o callOptions) apply(cfg *hithttp.RequestConfig, path string) (*hithttp.RequestConfig, error) {
	b := hithttp.NewBuilder(cfg)

	if o.method != "" {
		b.Method(o.method)
	}
	if path != "" {
		b.Path(path)
	}
	if o.openapi != "" {
		b.OpenAPI(o.openapi)
	}
	if o.endpoint != "" {
		b.Endpoint(o.endpoint)
	}

	for _, h := range o.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q, expected 'Name: value'", h)
		}
		b.Header(strings.TrimSpace(name), value)
	}
	for _, q := range o.query {
		key, value, err := parsePair("query", q)
		if err != nil {
			return nil, err
		}
		b.Query(key, value)
	}
	for _, p := range o.params {
		key, value, err := parsePair("param", p)
		if err != nil {
			return nil, err
		}
		b.With(key, value)
	}

	switch {
	case o.json != "":
		if !gjson.Valid(o.json) {
			return nil, fmt.Errorf("--json is not valid JSON")
		}
		b.Body(o.json)
		if !cfg.HasContentType() {
			b.ContentType("application/json")
		}
	case strings.HasPrefix(o.data, "@"):
		data, err := os.ReadFile(strings.TrimPrefix(o.data, "@"))
		if err != nil {
			return nil, fmt.Errorf("cannot read request body: %w", err)
		}
		b.Body(string(data))
	case o.data != "":
		b.Body(o.data)
	}

	if o.user != "" {
		username, password, _ := strings.Cut(o.user, ":")
		b.BasicAuth(username, password)
	}
	if o.timeout > 0 {
		b.Timeout(o.timeout)
	}
	if o.retries >= 0 {
		b.Retries(o.retries)
	}
	if o.cert != "" {
		b.Certificate(o.cert)
	}
	if o.noLog {
		b.NoLog()
	}
	if o.ensureSuccess {
		b.EnsureSuccess()
	}
	return b.Config()
}

func parsePair(kind, s string) (string, string, error) {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid %s %q, expected key=value", kind, s)
	}
	return key, value, nil
}
