package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	_ "embed"
)

// Document is the wire form of a stack catalog.
type Document struct {
	Version string            `json:"version"`
	Stacks  []StackDefinition `json:"stacks"`
}

// Parse decodes and validates a catalog document. Any schema violation is
// rejected here, never at detection time.
func Parse(data []byte) (*Registry, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	if len(doc.Stacks) == 0 {
		return nil, &DefinitionError{Reason: "registry document has no stacks"}
	}
	reg, err := New(doc.Version, doc.Stacks)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// LoadFile reads and parses a catalog document from disk.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("registry %s: %w", path, err)
	}
	return reg, nil
}

//go:embed builtin.json
var builtinJSON []byte

var loadBuiltin = sync.OnceValue(func() *Registry {
	reg, err := Parse(builtinJSON)
	if err != nil {
		panic(fmt.Sprintf("builtin registry is invalid: %v", err))
	}
	return reg
})

// Builtin returns the embedded default catalog. It is parsed through the
// same loader as external documents and shared process-wide.
func Builtin() *Registry {
	return loadBuiltin()
}
