// Package audit renders outgoing requests and incoming responses as log
// blocks, redacting sensitive header values and JSON body fields.
package audit

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Redacted replaces the value of a sensitive header or body field
const Redacted = "*****"

// DefaultSensitiveKeys are matched case-insensitively as substrings of
// header names and JSON object keys.
var DefaultSensitiveKeys = []string{
	"password", "pass", "token", "secret", "key", "auth",
	"authorization", "cookie", "session", "csrf", "jwt", "bearer",
}

// Redactor hides sensitive values. A redactor built in debug mode passes
// everything through untouched.
type Redactor struct {
	keys  []string
	debug bool
}

// NewRedactor creates a redactor using DefaultSensitiveKeys
func NewRedactor(debug bool) *Redactor {
	return NewRedactorWithKeys(debug, DefaultSensitiveKeys)
}

// NewRedactorWithKeys creates a redactor with a custom keyword list
func NewRedactorWithKeys(debug bool, keys []string) *Redactor {
	lowered := make([]string, len(keys))
	for i, k := range keys {
		lowered[i] = strings.ToLower(k)
	}
	return &Redactor{keys: lowered, debug: debug}
}

// IsSensitive reports whether name contains any sensitive keyword
func (r *Redactor) IsSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, k := range r.keys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// HeaderValue returns value, or the redaction marker when name is sensitive
func (r *Redactor) HeaderValue(name, value string) string {
	if !r.debug && r.IsSensitive(name) {
		return Redacted
	}
	return value
}

// Value walks a decoded JSON value and replaces every field whose key is
// sensitive. The input is not modified.
func (r *Redactor) Value(v any) any {
	if r.debug {
		return v
	}

	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if r.IsSensitive(k) {
				out[k] = Redacted
				continue
			}
			out[k] = r.Value(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = r.Value(item)
		}
		return out
	default:
		return v
	}
}

// Body pretty-prints a JSON body with sensitive fields redacted. Bodies that
// are not valid JSON come back unchanged.
func (r *Redactor) Body(body string) string {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return body
	}
	if dec.More() {
		return body
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.Value(decoded)); err != nil {
		return body
	}
	return strings.TrimRight(buf.String(), "\n")
}
