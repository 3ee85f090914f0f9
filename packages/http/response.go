package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// Response is the normalized result of a call
type Response struct {
	StatusCode int
	Message    string // reason phrase, e.g. "Not Found"
	Status     string
	Headers    http.Header
	Body       []byte
	// JSON is the decoded body, nil when the body is empty or not JSON
	JSON     any
	Duration time.Duration
}

// NewResponse normalizes a received response whose body has already been read
func NewResponse(resp *http.Response, body []byte, d time.Duration) *Response {
	r := &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Message:    reasonPhrase(resp),
		Headers:    resp.Header.Clone(),
		Body:       body,
		Duration:   d,
	}
	if r.Headers == nil {
		r.Headers = make(http.Header)
	}

	var v any
	if err := json.Unmarshal(body, &v); err == nil {
		r.JSON = v
	}
	return r
}

func reasonPhrase(resp *http.Response) string {
	msg := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return msg
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

// Header returns the first value of a header, matched case-insensitively
func (r *Response) Header(key string) string {
	if v := r.Headers.Get(key); v != "" {
		return v
	}
	for k, vals := range r.Headers {
		if strings.EqualFold(k, key) && len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

func (r *Response) ContentType() string {
	return r.Header("Content-Type")
}

// IsJSON reports whether the body decoded as JSON
func (r *Response) IsJSON() bool {
	return r.JSON != nil
}

// Success reports a status below 400
func (r *Response) Success() bool {
	return r.StatusCode < 400
}

func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500
}

// Pick looks up a gjson path in the body, e.g. "data.items.0.id"
func (r *Response) Pick(path string) gjson.Result {
	return gjson.GetBytes(r.Body, path)
}

// MatchesSchema validates the body against a JSON schema document
func (r *Response) MatchesSchema(schema []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewBytesLoader(r.Body),
	)
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
}

func (r *Response) DurationMs() int64 {
	return r.Duration.Milliseconds()
}
