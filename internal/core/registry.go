package core

import (
	"fmt"
	"sort"
	"sync"
)

// ReadOptions control how a downloaded file is decoded.
type ReadOptions struct {
	Encoding Encoding
}

// ParseFunc parses a local file into a display table.
type ParseFunc func(path string, opts ReadOptions) (*Table, error)

// DatasetDefinition contains everything needed to process one dataset kind.
type DatasetDefinition struct {
	Kind    DatasetKind
	Label   string // Default view title
	Binding Binding
	Fields  []FieldSpec
	Parse   ParseFunc
}

var (
	registry   = make(map[DatasetKind]DatasetDefinition)
	registryMu sync.RWMutex
)

// Register adds a dataset definition to the registry.
// Panics if the kind is already registered or has no parse function.
func Register(def DatasetDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Kind]; exists {
		panic(fmt.Sprintf("dataset already registered: %s", def.Kind))
	}
	if def.Parse == nil {
		panic(fmt.Sprintf("dataset %s has no parse function", def.Kind))
	}

	registry[def.Kind] = def
}

// Get returns a dataset definition by kind.
// Returns false if not found.
func Get(kind DatasetKind) (DatasetDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[kind]
	return def, ok
}

// All returns all registered dataset definitions sorted by kind.
func All() []DatasetDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]DatasetDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Kind < result[j].Kind
	})

	return result
}

// Clear removes all registered datasets.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[DatasetKind]DatasetDefinition)
}
