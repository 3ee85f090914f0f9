package metrics

import (
	"fmt"
	"io"
	"strings"
)

// WritePrometheus writes stats in the Prometheus text exposition format
func WritePrometheus(w io.Writer, stats []Stats) error {
	ew := &errWriter{w: w}

	ew.printf("# HELP hitcall_calls_total Calls made per endpoint\n")
	ew.printf("# TYPE hitcall_calls_total counter\n")
	for _, s := range stats {
		ew.printf("hitcall_calls_total{endpoint=\"%s\"} %d\n", sanitizeLabel(s.Endpoint), s.Count)
	}
	ew.printf("\n")

	ew.printf("# HELP hitcall_call_errors_total Calls per endpoint that failed or returned 400 and above\n")
	ew.printf("# TYPE hitcall_call_errors_total counter\n")
	for _, s := range stats {
		ew.printf("hitcall_call_errors_total{endpoint=\"%s\"} %d\n", sanitizeLabel(s.Endpoint), s.Errors)
	}
	ew.printf("\n")

	ew.printf("# HELP hitcall_call_duration_seconds Call latency per endpoint\n")
	ew.printf("# TYPE hitcall_call_duration_seconds summary\n")
	for _, s := range stats {
		label := sanitizeLabel(s.Endpoint)
		for _, q := range []struct {
			name  string
			value float64
		}{
			{"0.5", s.P50.Seconds()},
			{"0.95", s.P95.Seconds()},
			{"0.99", s.P99.Seconds()},
		} {
			ew.printf("hitcall_call_duration_seconds{endpoint=\"%s\",quantile=\"%s\"} %g\n", label, q.name, q.value)
		}
		ew.printf("hitcall_call_duration_seconds_sum{endpoint=\"%s\"} %g\n", label, s.Mean.Seconds()*float64(s.Observed))
		ew.printf("hitcall_call_duration_seconds_count{endpoint=\"%s\"} %d\n", label, s.Observed)
	}

	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

// sanitizeLabel makes a string safe for use as a Prometheus label value
func sanitizeLabel(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
