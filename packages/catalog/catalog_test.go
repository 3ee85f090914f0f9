package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const petstore = `
openapi: 3.0.0
info:
  title: Petstore
  version: 1.0.0
paths:
  /pets:
    get:
      operationId: listPets
      responses:
        '200':
          description: ok
    post:
      operationId: createPet
      responses:
        '201':
          description: created
  /pets/{petId}:
    get:
      operationId: showPetById
      parameters:
        - name: petId
          in: path
          required: true
          schema:
            type: string
      responses:
        '200':
          description: ok
    delete:
      responses:
        '204':
          description: no operationId, skipped
`

const swagger2 = `
swagger: '2.0'
info:
  title: Legacy
  version: '1'
paths:
  /users/{id}:
    parameters:
      - name: id
        in: path
        required: true
        type: string
    put:
      operationId: updateUser
      parameters:
        - in: body
          name: body
          schema:
            $ref: '#/definitions/User'
definitions:
  User:
    type: object
`

func TestParse_OpenAPI3(t *testing.T) {
	cat, err := Parse([]byte(petstore))
	require.NoError(t, err)

	assert.Equal(t, []string{"createPet", "listPets", "showPetById"}, cat.Operations())
	assert.Equal(t, Endpoint{Method: "GET", Path: "/pets"}, cat["listPets"])
	assert.Equal(t, Endpoint{Method: "POST", Path: "/pets"}, cat["createPet"])
	assert.Equal(t, Endpoint{Method: "GET", Path: "/pets/{petId}"}, cat["showPetById"])
}

func TestParse_Swagger2Fallback(t *testing.T) {
	cat, err := Parse([]byte(swagger2))
	require.NoError(t, err)

	assert.Equal(t, Endpoint{Method: "PUT", Path: "/users/{id}"}, cat["updateUser"])
	assert.Len(t, cat, 1, "path-level parameters are not operations")
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("not: [valid"))
	assert.Error(t, err)

	_, err = Parse([]byte("info: {title: x}"))
	assert.Error(t, err)
}

func TestCatalog_Lookup(t *testing.T) {
	cat := Catalog{"listPets": {Method: "GET", Path: "/pets"}}

	ep, err := cat.Lookup("listPets")
	require.NoError(t, err)
	assert.Equal(t, "/pets", ep.Path)

	_, err = cat.Lookup("missing")
	assert.True(t, errors.Is(err, ErrOperationNotFound))
}

func TestCache_LoadFileOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(petstore), 0644))

	cache := NewCache()
	cat, err := cache.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, cat, 3)

	// the cached copy survives the source disappearing
	require.NoError(t, os.Remove(path))
	ep, err := cache.Lookup(context.Background(), path, "createPet")
	require.NoError(t, err)
	assert.Equal(t, "POST", ep.Method)
	assert.Equal(t, 1, cache.Len())
}

func TestCache_LoadRemoteOnceUnderConcurrency(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(petstore))
	}))
	defer server.Close()

	cache := NewCache()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Lookup(context.Background(), server.URL+"/openapi.yaml", "listPets")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
}

func TestCache_LoadErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cache := NewCache()

	_, err := cache.Load(context.Background(), server.URL)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	_, err = cache.Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
	assert.Equal(t, 0, cache.Len())
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://example.com/openapi.yaml"))
	assert.True(t, IsRemote("HTTP://example.com"))
	assert.False(t, IsRemote("./openapi.yaml"))
}
