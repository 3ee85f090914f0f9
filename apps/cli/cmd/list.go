package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	hithttp "github.com/abdul-hamid-achik/hitcall/packages/http"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the configured clients",
	Long: `List the clients defined in the config file with their base URL.

Examples:
  hitcall list
  hitcall list --config ./services.yaml -v`,
	Args: usageArgs(cobra.NoArgs),
	RunE: listCommand,
}

func listCommand(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}

	names := env.store.Names()
	if len(names) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No clients configured\n")
		return nil
	}

	if env.configPath != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s:\n", env.configPath)
	}
	for _, name := range names {
		cfg, err := hithttp.Resolve(env.store, name, false)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStderr(), "  - %s: %v\n", name, err)
			continue
		}
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  - %s (%s, %s)\n", name, cfg.BaseURL, scheme)
		if verboseFlag {
			auth := cfg.Auth
			if auth == "" {
				auth = hithttp.AuthNone
			}
			fmt.Fprintf(cmd.OutOrStdout(), "    auth: %s, timeout: %s, retries: %d\n", auth, cfg.TimeoutDuration(), cfg.Retries)
			if cfg.OpenAPI != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "    openapi: %s\n", cfg.OpenAPI)
			}
		}
	}

	return nil
}
