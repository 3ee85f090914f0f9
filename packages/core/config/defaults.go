package config

// DefaultTimeoutSeconds is the read timeout applied when a client does not set one
const DefaultTimeoutSeconds = 180

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Debug: false,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		HTTP: make(map[string]map[string]any),
	}
}

// DefaultRequestConfig returns the base request tree every named client is
// merged onto. A fresh tree is returned on each call.
func DefaultRequestConfig() map[string]any {
	return map[string]any{
		"method":       "GET",
		"path":         "",
		"use_ssl":      false,
		"headers":      []any{},
		"query":        []any{},
		"params":       map[string]any{},
		"content_type": "",
		"timeout":      DefaultTimeoutSeconds,
		"retries":      0,
	}
}
