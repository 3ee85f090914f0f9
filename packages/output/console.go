package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/tidwall/pretty"

	"github.com/abdul-hamid-achik/hitcall/packages/catalog"
	"github.com/abdul-hamid-achik/hitcall/packages/history"
	hithttp "github.com/abdul-hamid-achik/hitcall/packages/http"
	"github.com/abdul-hamid-achik/hitcall/packages/metrics"
)

// maxHistoryURL keeps history rows on one line
const maxHistoryURL = 60

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func statusColor(code int) *color.Color {
	switch {
	case code >= 500:
		return color.New(color.FgRed, color.Bold)
	case code >= 400:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgGreen, color.Bold)
	}
}

// FormatExchange prints the status line, headers when verbose, and the body.
// JSON bodies are pretty printed with their key order kept.
func (f *ConsoleFormatter) FormatExchange(ex *hithttp.Exchange) {
	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	resp := ex.Response
	fmt.Fprintf(f.writer, "%s %s\n", bold(ex.Request.Method), ex.URL)
	fmt.Fprintf(f.writer, "%s %s %s\n",
		statusColor(resp.StatusCode).Sprintf("%d %s", resp.StatusCode, resp.Message),
		cyan(fmt.Sprintf("(%dms)", resp.Duration.Milliseconds())),
		faint("["+ex.ID+"]"))

	if f.verbose {
		names := make([]string, 0, len(resp.Headers))
		for name := range resp.Headers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(f.writer, "%s: %s\n", cyan(name), strings.Join(resp.Headers[name], ", "))
		}
	}

	if len(resp.Body) == 0 {
		return
	}
	fmt.Fprintf(f.writer, "\n")
	if resp.IsJSON() {
		body := pretty.Pretty(resp.Body)
		if !f.noColor && !color.NoColor {
			body = pretty.Color(body, nil)
		}
		fmt.Fprintf(f.writer, "%s", body)
		return
	}
	fmt.Fprintf(f.writer, "%s\n", strings.TrimRight(resp.BodyString(), "\n"))
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

func (f *ConsoleFormatter) FormatStats(stats []metrics.Stats) {
	bold := color.New(color.Bold).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	if len(stats) == 0 {
		return
	}
	fmt.Fprintf(f.writer, "\n%s\n", bold("Latency"))
	for _, s := range stats {
		errors := fmt.Sprintf("%d errors", s.Errors)
		if s.Errors > 0 {
			errors = red(errors)
		}
		fmt.Fprintf(f.writer, "  %s\n", s.Endpoint)
		fmt.Fprintf(f.writer, "    calls: %d, %s (%.1f%%)\n", s.Count, errors, s.ErrorRate*100)
		fmt.Fprintf(f.writer, "    min %s  mean %s  p50 %s  p95 %s  p99 %s  max %s\n",
			ms(s.Min), ms(s.Mean), ms(s.P50), ms(s.P95), ms(s.P99), ms(s.Max))
	}
}

func ms(d time.Duration) string {
	return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
}

func (f *ConsoleFormatter) FormatHistory(records []history.Record) {
	if len(records) == 0 {
		fmt.Fprintf(f.writer, "No calls recorded\n")
		return
	}
	for _, r := range records {
		fmt.Fprintf(f.writer, "%5d  %s  %-10s %-6s %s  %s  %dms\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Client,
			r.Method,
			statusColor(r.Status).Sprintf("%d", r.Status),
			truncate(r.URL, maxHistoryURL),
			r.Duration.Milliseconds())
		if f.verbose && r.ResponseBody != "" {
			fmt.Fprintf(f.writer, "       %s\n", truncate(r.ResponseBody, 200))
		}
	}
}

func (f *ConsoleFormatter) FormatEndpoints(source string, cat catalog.Catalog) {
	bold := color.New(color.Bold).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	fmt.Fprintf(f.writer, "%s\n", bold(source))
	ops := cat.Operations()
	if len(ops) == 0 {
		fmt.Fprintf(f.writer, "  (no operations)\n")
		return
	}
	for _, op := range ops {
		ep := cat[op]
		fmt.Fprintf(f.writer, "  %-30s %s %s\n", op, cyan(fmt.Sprintf("%-6s", ep.Method)), ep.Path)
	}
}

func (f *ConsoleFormatter) Flush() error { return nil }
