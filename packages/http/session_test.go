package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_EmptyBeforeAnyCall(t *testing.T) {
	session := NewClient().NewSession()

	_, err := session.Request()
	assert.ErrorIs(t, err, ErrNoRequest)

	_, err = session.Response()
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestSession_FailedCallClearsPrevious(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	session := newTestClient(t, server.URL).NewSession()

	_, err := session.HTTP(context.Background(), "api", func(b *Builder) { b.Get("ok") })
	require.NoError(t, err)
	_, err = session.Response()
	require.NoError(t, err)

	resp, err := session.HTTP(context.Background(), "api", func(b *Builder) { b.Get("fail").EnsureSuccess() })
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 500, resp.StatusCode)

	_, err = session.Request()
	assert.ErrorIs(t, err, ErrNoRequest)
	_, err = session.Response()
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestSession_Do(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Method))
	}))
	defer server.Close()

	session := NewClient().NewSession()
	resp, err := session.Do(context.Background(), &RequestConfig{BaseURL: server.URL, Method: "DELETE"})
	require.NoError(t, err)
	assert.Equal(t, "DELETE", resp.BodyString())

	req, err := session.Request()
	require.NoError(t, err)
	assert.Equal(t, "DELETE", req.Method)

	session.Reset()
	_, err = session.Response()
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestSession_IsolatedPerGoroutine(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Query().Get("n")))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	var wg sync.WaitGroup
	for _, n := range []string{"1", "2", "3", "4"} {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			session := client.NewSession()
			_, err := session.HTTP(context.Background(), "api", func(b *Builder) { b.Query("n", n) })
			assert.NoError(t, err)

			resp, err := session.Response()
			if assert.NoError(t, err) {
				assert.Equal(t, n, resp.BodyString())
			}
		}(n)
	}
	wg.Wait()
}

func TestSessionContext(t *testing.T) {
	_, ok := SessionFromContext(context.Background())
	assert.False(t, ok)

	session := NewClient().NewSession()
	got, ok := SessionFromContext(WithSession(context.Background(), session))
	require.True(t, ok)
	assert.Same(t, session, got)
}
