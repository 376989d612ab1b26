package validate

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Registry maps diagram type tags to their validators.
type Registry struct {
	mu         sync.RWMutex
	validators map[string]Validator
}

// NewRegistry creates an empty validator registry.
func NewRegistry() *Registry {
	return &Registry{validators: make(map[string]Validator)}
}

// Register adds a validator, replacing any prior registration for its type.
func (r *Registry) Register(v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[v.Type()] = v
}

// Get returns the validator for a diagram type.
func (r *Registry) Get(diagramType string) (Validator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.validators[diagramType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, diagramType)
	}
	return v, nil
}

// Types returns the registered diagram type tags, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.validators))
	for t := range r.validators {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// RegisterAllValidators registers the standard validator set with the
// registry. Call this during pipeline construction.
func RegisterAllValidators(r *Registry, timeout time.Duration) {
	r.Register(NewMermaidValidator(timeout))
	r.Register(NewPlantUMLValidator(timeout))
	r.Register(NewGraphvizValidator(timeout))
	r.Register(NewD2Validator(timeout))
}
