package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitcall/packages/core/config"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter hitcall.yaml",
	Long: `Create a hitcall.yaml in the current directory with example clients.

Examples:
  hitcall init
  hitcall init --force`,
	Args: usageArgs(cobra.NoArgs),
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing file")
}

func starterConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.HTTP = map[string]map[string]any{
		"httpbin": {
			"base_url": "httpbin.org",
			"scheme":   "https",
			"headers":  [][]string{{"Accept", "application/json"}},
			"timeout":  30,
		},
		"local": {
			"base_url":       "localhost:3000",
			"auth":           "basic_auth",
			"basic_auth":     map[string]any{"username": "admin", "password": "changeme"},
			"ensure_success": true,
			"endpoints": map[string]any{
				"health": map[string]any{"method": "GET", "path": "/health"},
			},
		},
	}
	return cfg
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, "hitcall.yaml")
	if !forceInit {
		if _, err := os.Stat(configFile); err == nil {
			return &usageError{err: fmt.Errorf("file already exists: %s (use --force to overwrite)", configFile)}
		}
	}

	if err := starterConfig().SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)
	fmt.Fprintf(cmd.OutOrStdout(), "\nRun 'hitcall call httpbin /get' to send a first request.\n")

	return nil
}
