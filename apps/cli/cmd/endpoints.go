package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitcall/packages/catalog"
	hithttp "github.com/abdul-hamid-achik/hitcall/packages/http"
	"github.com/abdul-hamid-achik/hitcall/packages/logging"
)

var endpointsCmd = &cobra.Command{
	Use:   "endpoints <client|openapi-source>",
	Short: "List the operations a client or OpenAPI document defines",
	Long: `List named operations usable with 'hitcall call --endpoint'.

For a configured client, its inline endpoints and the operations of its
openapi document are listed. Anything else is loaded as an OpenAPI file
path or URL.

Examples:
  hitcall endpoints petstore
  hitcall endpoints ./openapi.yaml
  hitcall endpoints https://petstore3.swagger.io/api/v3/openapi.json`,
	Args: usageArgs(cobra.ExactArgs(1)),
	RunE: endpointsCommand,
}

func endpointsCommand(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer logging.Sync(env.logger)

	formatter, err := newFormatter(cmd)
	if err != nil {
		return err
	}
	cache := catalog.NewCache(catalog.WithLogger(env.logger))
	name := args[0]

	if _, ok := env.store.Lookup(name); !ok {
		cat, err := cache.Load(cmd.Context(), name)
		if err != nil {
			return &hithttp.ConfigurationError{Reason: "cannot load endpoints from " + name, Err: err}
		}
		formatter.FormatEndpoints(name, cat)
		return formatter.Flush()
	}

	cfg, err := hithttp.Resolve(env.store, name, false)
	if err != nil {
		return err
	}
	if len(cfg.Endpoints) == 0 && cfg.OpenAPI == "" {
		return &hithttp.ConfigurationError{Client: name, Reason: "no endpoints or openapi source configured"}
	}
	if len(cfg.Endpoints) > 0 {
		formatter.FormatEndpoints(fmt.Sprintf("%s (inline)", name), catalog.Catalog(cfg.Endpoints))
	}
	if cfg.OpenAPI != "" {
		cat, err := cache.Load(cmd.Context(), cfg.OpenAPI)
		if err != nil {
			return &hithttp.ConfigurationError{Client: name, Reason: "cannot load endpoints from " + cfg.OpenAPI, Err: err}
		}
		formatter.FormatEndpoints(cfg.OpenAPI, cat)
	}
	return formatter.Flush()
}
