package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]*TableSchema)
	registryMu sync.RWMutex
)

// Register adds a table schema to the registry.
// Panics if a table with the same key is already registered or if a
// field name repeats.
func Register(info TableInfo, specs ...FieldSpec) {
	def := NewSchema(info, specs...)

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Info.Key]; exists {
		panic(fmt.Sprintf("table already registered: %s", def.Info.Key))
	}
	registry[def.Info.Key] = def
}

// NewSchema builds an unregistered schema, deriving the column order and
// the validator map from specs.
func NewSchema(info TableInfo, specs ...FieldSpec) *TableSchema {
	columns := make([]string, len(specs))
	validators := make(map[string]Validator, len(specs))
	seen := make(map[string]bool, len(specs))
	for i, spec := range specs {
		if seen[spec.Name] {
			panic(fmt.Sprintf("table %s: duplicate field %s", info.Key, spec.Name))
		}
		seen[spec.Name] = true
		columns[i] = spec.Name
		if spec.Validate != nil {
			validators[spec.Name] = spec.Validate
		}
	}
	info.Columns = columns

	return &TableSchema{
		Info:       info,
		FieldSpecs: specs,
		Validators: validators,
	}
}

// Lookup returns a table schema by key.
// Returns false if not found.
func Lookup(key string) (*TableSchema, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// Resolve is Lookup returning ErrUnknownTable for missing keys.
func Resolve(key string) (*TableSchema, error) {
	def, ok := Lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, key)
	}
	return def, nil
}

// All returns all registered table schemas.
// Sorted by group then by key for consistent ordering.
func All() []*TableSchema {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]*TableSchema, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Info.Group != result[j].Info.Group {
			return result[i].Info.Group < result[j].Info.Group
		}
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// Names returns all registered table keys, sorted.
func Names() []string {
	defs := All()
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Info.Key
	}
	sort.Strings(names)
	return names
}

// TableCount returns the number of registered tables.
func TableCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}
