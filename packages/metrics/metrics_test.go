package metrics

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hithttp "github.com/abdul-hamid-achik/hitcall/packages/http"
)

func TestRecorder_Record(t *testing.T) {
	r := NewRecorder()

	r.Record("GET api/users", 100*time.Millisecond, false)
	r.Record("GET api/users", 150*time.Millisecond, false)
	r.Record("GET api/users", 50*time.Millisecond, true)
	r.Record("POST api/users", 200*time.Millisecond, false)

	s, ok := r.Stats("GET api/users")
	require.True(t, ok)
	assert.Equal(t, int64(3), s.Count)
	assert.Equal(t, int64(1), s.Errors)
	assert.InDelta(t, 1.0/3.0, s.ErrorRate, 0.0001)
	assert.InDelta(t, float64(50*time.Millisecond), float64(s.Min), float64(time.Millisecond))
	assert.InDelta(t, float64(150*time.Millisecond), float64(s.Max), float64(time.Millisecond))
	assert.InDelta(t, float64(100*time.Millisecond), float64(s.P50), float64(time.Millisecond))
	assert.InDelta(t, float64(100*time.Millisecond), float64(s.Mean), float64(time.Millisecond))

	_, ok = r.Stats("DELETE nothing")
	assert.False(t, ok)
}

func TestRecorder_RecordFailure(t *testing.T) {
	r := NewRecorder()
	r.RecordFailure("GET down/")

	s, ok := r.Stats("GET down/")
	require.True(t, ok)
	assert.Equal(t, int64(1), s.Count)
	assert.Equal(t, int64(1), s.Errors)
	assert.Zero(t, s.P99)
}

func TestRecorder_SnapshotOrdered(t *testing.T) {
	r := NewRecorder()
	r.Record("b", time.Millisecond, false)
	r.Record("a", time.Millisecond, false)
	r.Record("c", time.Hour, false)

	snap := r.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "a", snap[0].Endpoint)
	assert.Equal(t, "b", snap[1].Endpoint)
	assert.Equal(t, "c", snap[2].Endpoint)
	assert.InDelta(t, float64(60*time.Second), float64(snap[2].Max), float64(100*time.Millisecond))

	r.Reset()
	assert.Empty(t, r.Snapshot())
}

func TestRecorder_Concurrent(t *testing.T) {
	r := NewRecorder()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Record("GET x/", time.Duration(j+1)*time.Millisecond, j%10 == 0)
			}
		}()
	}
	wg.Wait()

	s, ok := r.Stats("GET x/")
	require.True(t, ok)
	assert.Equal(t, int64(800), s.Count)
	assert.Equal(t, int64(80), s.Errors)
}

func TestRecorder_AsHook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/items/2" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	rec := NewRecorder()
	client := hithttp.NewClient(hithttp.WithHooks(rec))

	for _, id := range []int{1, 2, 3} {
		_, err := client.HTTP(context.Background(), server.URL, false, func(b *hithttp.Builder) {
			b.Get("/items/{id}").With("id", id)
		})
		require.NoError(t, err)
	}

	snap := rec.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "GET "+server.Listener.Addr().String()+"/items/{id}", snap[0].Endpoint)
	assert.Equal(t, int64(3), snap[0].Count)
	assert.Equal(t, int64(1), snap[0].Errors)
}

func TestWritePrometheus(t *testing.T) {
	r := NewRecorder()
	r.Record(`GET api.io/"quoted"`, 200*time.Millisecond, false)
	r.Record(`GET api.io/"quoted"`, 200*time.Millisecond, true)
	r.RecordFailure(`GET api.io/"quoted"`)

	var buf bytes.Buffer
	require.NoError(t, WritePrometheus(&buf, r.Snapshot()))

	out := buf.String()
	assert.Contains(t, out, "# TYPE hitcall_calls_total counter")
	assert.Contains(t, out, `hitcall_calls_total{endpoint="GET api.io/\"quoted\""} 3`)
	assert.Contains(t, out, `hitcall_call_errors_total{endpoint="GET api.io/\"quoted\""} 2`)
	assert.Contains(t, out, `hitcall_call_duration_seconds{endpoint="GET api.io/\"quoted\"",quantile="0.99"} 0.2`)
	assert.Contains(t, out, `hitcall_call_duration_seconds_count{endpoint="GET api.io/\"quoted\""} 2`)
}

func TestWritePrometheus_WriteError(t *testing.T) {
	err := WritePrometheus(failingWriter{}, []Stats{{Endpoint: "x"}})
	assert.Error(t, err)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }
