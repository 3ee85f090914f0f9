// Package catalog derives operation-name → (method, path) mappings from
// OpenAPI documents so requests can target an endpoint by its operationId.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// ErrOperationNotFound is returned when an operationId is not in a catalog
var ErrOperationNotFound = errors.New("operation not found")

// Endpoint is the method and path template of one operation
type Endpoint struct {
	Method string
	Path   string
}

// Catalog maps an operationId to its endpoint
type Catalog map[string]Endpoint

// Lookup returns the endpoint for an operation
func (c Catalog) Lookup(operation string) (Endpoint, error) {
	ep, ok := c[operation]
	if !ok {
		return Endpoint{}, fmt.Errorf("%w: %s", ErrOperationNotFound, operation)
	}
	return ep, nil
}

// Operations returns the operation names in sorted order
func (c Catalog) Operations() []string {
	ops := make([]string, 0, len(c))
	for op := range c {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Parse builds a catalog from an OpenAPI document in YAML or JSON. Documents
// the OpenAPI 3 loader rejects (Swagger 2.0, unresolved refs) are walked as a
// plain tree instead, since only paths and operationIds are needed.
func Parse(data []byte) (Catalog, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err == nil && doc.Paths != nil && doc.Paths.Len() > 0 {
		return fromDocument(doc), nil
	}

	cat, treeErr := fromTree(data)
	if treeErr != nil {
		if err != nil {
			return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
		}
		return nil, treeErr
	}
	return cat, nil
}

func fromDocument(doc *openapi3.T) Catalog {
	cat := make(Catalog)
	for path, item := range doc.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			if op == nil || op.OperationID == "" {
				continue
			}
			cat[op.OperationID] = Endpoint{
				Method: strings.ToUpper(method),
				Path:   path,
			}
		}
	}
	return cat
}

var httpMethods = map[string]bool{
	"get": true, "put": true, "post": true, "delete": true,
	"options": true, "head": true, "patch": true, "trace": true,
}

func fromTree(data []byte) (Catalog, error) {
	var doc struct {
		Paths map[string]map[string]any `yaml:"paths"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	if doc.Paths == nil {
		return nil, errors.New("OpenAPI document has no paths")
	}

	cat := make(Catalog)
	for path, methods := range doc.Paths {
		for method, raw := range methods {
			if !httpMethods[strings.ToLower(method)] {
				continue
			}
			op, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			id, _ := op["operationId"].(string)
			if id == "" {
				continue
			}
			cat[id] = Endpoint{
				Method: strings.ToUpper(method),
				Path:   path,
			}
		}
	}
	return cat, nil
}
