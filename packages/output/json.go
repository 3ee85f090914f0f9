package output

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/hitcall/packages/catalog"
	"github.com/abdul-hamid-achik/hitcall/packages/history"
	hithttp "github.com/abdul-hamid-achik/hitcall/packages/http"
	"github.com/abdul-hamid-achik/hitcall/packages/metrics"
)

// JSONOutput represents the complete JSON output structure
type JSONOutput struct {
	Calls     []JSONCall      `json:"calls,omitempty"`
	Errors    []string        `json:"errors,omitempty"`
	Stats     []JSONStats     `json:"stats,omitempty"`
	History   []JSONHistory   `json:"history,omitempty"`
	Endpoints []JSONEndpoints `json:"endpoints,omitempty"`
	Time      string          `json:"time"`
}

// JSONCall represents one completed call
type JSONCall struct {
	ID         string            `json:"id"`
	Client     string            `json:"client,omitempty"`
	Method     string            `json:"method"`
	URL        string            `json:"url"`
	StatusCode int               `json:"statusCode"`
	Status     string            `json:"status"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       any               `json:"body,omitempty"`
	Duration   float64           `json:"duration"`
}

// JSONStats represents latency statistics for one endpoint, in milliseconds
type JSONStats struct {
	Endpoint  string  `json:"endpoint"`
	Count     int64   `json:"count"`
	Errors    int64   `json:"errors"`
	ErrorRate float64 `json:"errorRate"`
	Min       float64 `json:"min"`
	Mean      float64 `json:"mean"`
	P50       float64 `json:"p50"`
	P95       float64 `json:"p95"`
	P99       float64 `json:"p99"`
	Max       float64 `json:"max"`
}

// JSONHistory represents one stored call
type JSONHistory struct {
	ID            int64   `json:"id"`
	CorrelationID string  `json:"correlationId"`
	Client        string  `json:"client"`
	Method        string  `json:"method"`
	URL           string  `json:"url"`
	StatusCode    int     `json:"statusCode"`
	Duration      float64 `json:"duration"`
	StartedAt     string  `json:"startedAt"`
}

// JSONEndpoints represents the operations of one catalog
type JSONEndpoints struct {
	Source     string            `json:"source"`
	Operations map[string]JSONOp `json:"operations"`
}

// JSONOp represents one catalog operation
type JSONOp struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// JSONFormatter accumulates results and writes them as one document on Flush
type JSONFormatter struct {
	writer io.Writer
	out    JSONOutput
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func (f *JSONFormatter) FormatExchange(ex *hithttp.Exchange) {
	resp := ex.Response
	call := JSONCall{
		ID:         ex.ID,
		Client:     ex.Request.Name,
		Method:     ex.Request.Method,
		URL:        ex.URL,
		StatusCode: resp.StatusCode,
		Status:     resp.Message,
		Duration:   toMs(resp.Duration),
	}
	if len(resp.Headers) > 0 {
		call.Headers = make(map[string]string, len(resp.Headers))
		for name, values := range resp.Headers {
			call.Headers[name] = strings.Join(values, ", ")
		}
	}
	switch {
	case resp.IsJSON():
		call.Body = json.RawMessage(resp.Body)
	case len(resp.Body) > 0:
		call.Body = resp.BodyString()
	}
	f.out.Calls = append(f.out.Calls, call)
}

func (f *JSONFormatter) FormatError(err error) {
	f.out.Errors = append(f.out.Errors, err.Error())
}

func (f *JSONFormatter) FormatStats(stats []metrics.Stats) {
	for _, s := range stats {
		f.out.Stats = append(f.out.Stats, JSONStats{
			Endpoint:  s.Endpoint,
			Count:     s.Count,
			Errors:    s.Errors,
			ErrorRate: s.ErrorRate,
			Min:       toMs(s.Min),
			Mean:      toMs(s.Mean),
			P50:       toMs(s.P50),
			P95:       toMs(s.P95),
			P99:       toMs(s.P99),
			Max:       toMs(s.Max),
		})
	}
}

func (f *JSONFormatter) FormatHistory(records []history.Record) {
	for _, r := range records {
		f.out.History = append(f.out.History, JSONHistory{
			ID:            r.ID,
			CorrelationID: r.CorrelationID,
			Client:        r.Client,
			Method:        r.Method,
			URL:           r.URL,
			StatusCode:    r.Status,
			Duration:      toMs(r.Duration),
			StartedAt:     r.StartedAt.UTC().Format(time.RFC3339),
		})
	}
}

func (f *JSONFormatter) FormatEndpoints(source string, cat catalog.Catalog) {
	ops := make(map[string]JSONOp, len(cat))
	for name, ep := range cat {
		ops[name] = JSONOp{Method: ep.Method, Path: ep.Path}
	}
	f.out.Endpoints = append(f.out.Endpoints, JSONEndpoints{Source: source, Operations: ops})
}

// Flush writes the accumulated JSON output
func (f *JSONFormatter) Flush() error {
	f.out.Time = time.Now().Format(time.RFC3339)

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	err := encoder.Encode(f.out)
	f.out = JSONOutput{}
	return err
}
