// Package history keeps a SQLite record of completed calls, with secrets
// redacted the same way the audit log does it.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/abdul-hamid-achik/hitcall/packages/audit"
	hithttp "github.com/abdul-hamid-achik/hitcall/packages/http"
)

const schema = `
CREATE TABLE IF NOT EXISTS calls (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	correlation_id   TEXT    NOT NULL,
	client           TEXT    NOT NULL,
	method           TEXT    NOT NULL,
	url              TEXT    NOT NULL,
	status           INTEGER NOT NULL,
	duration_ms      INTEGER NOT NULL,
	request_headers  TEXT    NOT NULL,
	request_body     TEXT    NOT NULL,
	response_headers TEXT    NOT NULL,
	response_body    TEXT    NOT NULL,
	started_at       TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_calls_client ON calls(client);
`

// DefaultQueryTimeout bounds every statement
const DefaultQueryTimeout = 30 * time.Second

// Record is one stored call
type Record struct {
	ID              int64
	CorrelationID   string
	Client          string
	Method          string
	URL             string
	Status          int
	Duration        time.Duration
	RequestHeaders  http.Header
	RequestBody     string
	ResponseHeaders http.Header
	ResponseBody    string
	StartedAt       time.Time
}

// Success reports a status below 400
func (r Record) Success() bool {
	return r.Status < 400
}

// Store persists call records. It is also a post-receive hook.
type Store struct {
	db           *sql.DB
	redactor     *audit.Redactor
	queryTimeout time.Duration
}

// Open opens (creating if needed) the history database. Accepted forms are
// sqlite://path, sqlite:path and a plain file path.
func Open(connectionString string, debug bool) (*Store, error) {
	dsn := parseConnectionString(connectionString)
	if dsn == "" {
		return nil, fmt.Errorf("empty history database path")
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// sqlite allows one writer; serialize through one connection
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize history database: %w", err)
	}

	return &Store{
		db:           db,
		redactor:     audit.NewRedactor(debug),
		queryTimeout: DefaultQueryTimeout,
	}, nil
}

func parseConnectionString(connStr string) string {
	connStr = strings.TrimSpace(connStr)
	if strings.HasPrefix(connStr, "sqlite://") {
		return strings.TrimPrefix(connStr, "sqlite://")
	}
	return strings.TrimPrefix(connStr, "sqlite:")
}

// Close closes the database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) ID() string { return "history" }

// OnPostReceive implements http.PostReceiveHook
func (s *Store) OnPostReceive(ctx context.Context, call *hithttp.Call) error {
	cfg := call.Config
	rec := Record{
		CorrelationID:   call.ID,
		Client:          cfg.Name,
		Method:          call.Request.Method,
		URL:             call.Request.URL.String(),
		Status:          call.Response.StatusCode,
		Duration:        call.Response.Duration,
		RequestHeaders:  call.Request.Header,
		RequestBody:     call.Body,
		ResponseHeaders: call.Response.Headers,
		ResponseBody:    call.Response.BodyString(),
		StartedAt:       cfg.StartedAt,
	}
	if cfg.NoLog {
		rec.RequestBody = hideBody(rec.RequestBody)
		rec.ResponseBody = hideBody(rec.ResponseBody)
	}
	_, err := s.Save(ctx, rec)
	return err
}

func hideBody(body string) string {
	if body == "" {
		return ""
	}
	return audit.NoLogPlaceholder
}

// Save redacts and stores a record, returning its id
func (s *Store) Save(ctx context.Context, rec Record) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	reqHeaders, err := s.encodeHeaders(rec.RequestHeaders)
	if err != nil {
		return 0, err
	}
	respHeaders, err := s.encodeHeaders(rec.ResponseHeaders)
	if err != nil {
		return 0, err
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO calls (correlation_id, client, method, url, status, duration_ms,
			request_headers, request_body, response_headers, response_body, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CorrelationID, rec.Client, rec.Method, rec.URL, rec.Status, rec.Duration.Milliseconds(),
		reqHeaders, s.redactor.Body(rec.RequestBody),
		respHeaders, s.redactor.Body(rec.ResponseBody),
		rec.StartedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to store call: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) encodeHeaders(h http.Header) (string, error) {
	redacted := make(http.Header, len(h))
	for name, values := range h {
		for _, v := range values {
			redacted.Add(name, s.redactor.HeaderValue(name, v))
		}
	}
	data, err := json.Marshal(redacted)
	if err != nil {
		return "", fmt.Errorf("failed to encode headers: %w", err)
	}
	return string(data), nil
}

// Filter narrows Recent
type Filter struct {
	Client     string
	FailedOnly bool
	Limit      int
}

// Recent returns stored calls, newest first
func (s *Store) Recent(ctx context.Context, f Filter) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	query := `SELECT id, correlation_id, client, method, url, status, duration_ms,
		request_headers, request_body, response_headers, response_body, started_at
		FROM calls`
	var where []string
	var args []any
	if f.Client != "" {
		where = append(where, "client = ?")
		args = append(args, f.Client)
	}
	if f.FailedOnly {
		where = append(where, "status >= 400")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec                     Record
			durationMs              int64
			reqHeaders, respHeaders string
		)
		if err := rows.Scan(&rec.ID, &rec.CorrelationID, &rec.Client, &rec.Method, &rec.URL,
			&rec.Status, &durationMs, &reqHeaders, &rec.RequestBody, &respHeaders,
			&rec.ResponseBody, &rec.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal([]byte(reqHeaders), &rec.RequestHeaders); err != nil {
			return nil, fmt.Errorf("failed to decode headers: %w", err)
		}
		if err := json.Unmarshal([]byte(respHeaders), &rec.ResponseHeaders); err != nil {
			return nil, fmt.Errorf("failed to decode headers: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// Count returns how many calls are stored
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calls`).Scan(&n)
	return n, err
}

// Prune deletes calls started before cutoff and returns how many were removed
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM calls WHERE started_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune failed: %w", err)
	}
	return res.RowsAffected()
}
