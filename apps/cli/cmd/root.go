package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abdul-hamid-achik/hitcall/packages/core/config"
	"github.com/abdul-hamid-achik/hitcall/packages/logging"
	"github.com/abdul-hamid-achik/hitcall/packages/output"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag    string
	logLevelFlag  string
	logFormatFlag string
	debugFlag     bool
	noColorFlag   bool
	outputFlag    string
	verboseFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "hitcall",
	Short: "Named HTTP clients from one config file.",
	Long: `hitcall sends HTTP requests through clients named in a YAML config
file. Each client carries its base URL, headers, timeouts and credentials,
so a call only says what differs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			output.NewConsoleFormatter(output.WithWriter(os.Stderr), output.WithNoColor(noColorFlag)).FormatError(err)
		}
		os.Exit(ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", getEnvString("HITCALL_CONFIG", ""), "Path to config file (env: HITCALL_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", getEnvString("HITCALL_LOG_LEVEL", ""), "Log level: debug, info, warn, error (env: HITCALL_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", getEnvString("HITCALL_LOG_FORMAT", ""), "Log format: console, json (env: HITCALL_LOG_FORMAT)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", getEnvBool("HITCALL_DEBUG", false), "Log secrets unredacted (env: HITCALL_DEBUG)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", getEnvBool("HITCALL_NO_COLOR", false), "Disable colored output (env: HITCALL_NO_COLOR)")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", getEnvString("HITCALL_OUTPUT", "console"), "Output format: console, json (env: HITCALL_OUTPUT)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show response headers and more detail")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(endpointsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}

// usageArgs marks argument validation failures as usage errors
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

// Environment variable helpers
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// environment is what every command loads before doing its work
type environment struct {
	config *config.Config
	// configPath is empty when no config file was found
	configPath string
	store      *config.Store
	logger     *zap.Logger
}

func loadEnvironment() (*environment, error) {
	path := configFlag
	if path == "" {
		path = config.FindConfigFile(".")
	}

	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, &configFileError{path: path, err: err}
		}
		cfg = loaded
	}
	if debugFlag {
		cfg.Debug = true
	}

	logCfg := logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}
	if logLevelFlag != "" {
		logCfg.Level = logLevelFlag
	}
	if logFormatFlag != "" {
		logCfg.Format = logFormatFlag
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, &usageError{err: fmt.Errorf("invalid logging options: %w", err)}
	}

	return &environment{
		config:     cfg,
		configPath: path,
		store:      config.NewStoreFromConfig(cfg),
		logger:     logger,
	}, nil
}

func newFormatter(cmd *cobra.Command) (output.Formatter, error) {
	f, err := output.New(outputFlag, cmd.OutOrStdout(), verboseFlag, noColorFlag)
	if err != nil {
		return nil, &usageError{err: err}
	}
	return f, nil
}
