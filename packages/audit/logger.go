package audit

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abdul-hamid-achik/hitcall/packages/logging"
)

const (
	// NoLogPlaceholder stands in for bodies of requests marked no-log
	NoLogPlaceholder = "[...]"

	headerColumn = 30
)

// NewCorrelationID returns a short random id shared by a request and its
// response log entries.
func NewCorrelationID() string {
	return uuid.NewString()[:6]
}

// RequestEntry is what gets logged for an outgoing request
type RequestEntry struct {
	ID     string
	Method string
	URL    string
	Header http.Header
	Body   string
	NoLog  bool
}

// ResponseEntry is what gets logged for a received response
type ResponseEntry struct {
	ID         string
	StatusCode int
	Message    string
	Header     http.Header
	Body       string
	Duration   time.Duration
	NoLog      bool
}

// Logger writes request/response blocks to a zap logger
type Logger struct {
	logger   *zap.Logger
	redactor *Redactor
}

// NewLogger creates an audit logger. In debug mode nothing is redacted.
func NewLogger(logger *zap.Logger, debug bool) *Logger {
	return &Logger{
		logger:   logging.OrNop(logger).Named("audit"),
		redactor: NewRedactor(debug),
	}
}

// Redactor exposes the redactor used for rendering
func (l *Logger) Redactor() *Redactor {
	return l.redactor
}

// LogRequest writes the block for an outgoing request
func (l *Logger) LogRequest(e RequestEntry) {
	l.logger.Info(l.RenderRequest(e),
		logging.CorrelationID(e.ID),
		logging.Direction(">"),
		logging.Method(e.Method),
		logging.URL(e.URL))
}

// LogResponse writes the block for a received response
func (l *Logger) LogResponse(e ResponseEntry) {
	l.logger.Info(l.RenderResponse(e),
		logging.CorrelationID(e.ID),
		logging.Direction("<"),
		logging.Status(e.StatusCode),
		logging.Duration(e.Duration))
}

// RenderRequest formats a request block:
//
//	[>] a1b2c3 POST https://host/path
//	Content-Type..................: application/json
//	{ ...body... }
func (l *Logger) RenderRequest(e RequestEntry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[>] %s %s %s\n", e.ID, e.Method, e.URL)
	l.writeHeaders(&sb, e.Header)
	l.writeBody(&sb, e.Body, e.NoLog)
	return strings.TrimRight(sb.String(), "\n")
}

// RenderResponse formats a response block
func (l *Logger) RenderResponse(e ResponseEntry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[<] %s %d %s (%.3fs)\n", e.ID, e.StatusCode, e.Message, e.Duration.Seconds())
	l.writeHeaders(&sb, e.Header)
	l.writeBody(&sb, e.Body, e.NoLog)
	return strings.TrimRight(sb.String(), "\n")
}

func (l *Logger) writeHeaders(sb *strings.Builder, header http.Header) {
	names := make([]string, 0, len(header))
	for name := range header {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, value := range header[name] {
			fmt.Fprintf(sb, "%s: %s\n", padRight(name, headerColumn, '.'), l.redactor.HeaderValue(name, value))
		}
	}
}

func (l *Logger) writeBody(sb *strings.Builder, body string, noLog bool) {
	if body == "" {
		return
	}
	if noLog {
		sb.WriteString(NoLogPlaceholder)
		return
	}
	sb.WriteString(l.redactor.Body(body))
}

func padRight(s string, width int, fill byte) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(string(fill), width-len(s))
}
