package http

import (
	"strings"

	"github.com/abdul-hamid-achik/hitcall/packages/core/config"
)

// Resolve builds the starting RequestConfig for a named client: the stored
// tree is merged over the defaults. A name with no stored configuration is
// taken as a literal base URL. secure selects TLS unless the stored tree
// decides it through use_ssl or scheme.
func Resolve(store *config.Store, name string, secure bool) (*RequestConfig, error) {
	var tree map[string]any
	found := false
	if store != nil {
		tree, found = store.Lookup(name)
	}
	if !found {
		tree = map[string]any{"base_url": name}
	}

	merged := config.DeepMerge(config.DefaultRequestConfig(), tree)

	baseURL, _ := merged["base_url"].(string)
	if strings.TrimSpace(baseURL) == "" {
		return nil, &ConfigurationError{Client: name, Reason: "no base_url configured"}
	}

	switch scheme, _ := tree["scheme"].(string); {
	case scheme != "":
		merged["use_ssl"] = strings.EqualFold(scheme, "https")
	case hasKey(tree, "use_ssl"):
	default:
		merged["use_ssl"] = secure
	}
	delete(merged, "scheme")

	cfg, err := FromTree(merged)
	if err != nil {
		return nil, &ConfigurationError{Client: name, Reason: "invalid configuration", Err: err}
	}
	cfg.Name = name
	return cfg, nil
}

func hasKey(tree map[string]any, key string) bool {
	_, ok := tree[key]
	return ok
}
