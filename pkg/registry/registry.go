// Package registry maps node-type strings to their handlers.
package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/orchid-run/orchid/pkg/protocol"
)

// ErrHandlerNotFound is returned by Resolve for unregistered node types.
var ErrHandlerNotFound = fmt.Errorf("node handler not found")

// Registry holds the closed set of node handlers. Registration happens once
// during process startup via RegisterBuiltins; duplicate kinds are a startup
// error so configuration mistakes surface before any run executes.
type Registry struct {
	logger   *slog.Logger
	handlers map[string]protocol.Handler
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:   logger,
		handlers: make(map[string]protocol.Handler),
	}
}

// Register associates the handler with every kind it declares. Registering
// a kind twice returns an error.
func (r *Registry) Register(handler protocol.Handler) error {
	kinds := handler.Kinds()
	if len(kinds) == 0 {
		return fmt.Errorf("handler %T declares no kinds", handler)
	}

	for _, kind := range kinds {
		if _, exists := r.handlers[kind]; exists {
			return fmt.Errorf("node kind %q registered twice", kind)
		}
	}

	for _, kind := range kinds {
		r.handlers[kind] = handler
	}

	if r.logger != nil {
		r.logger.Debug("Registered node handler", "kinds", kinds)
	}

	return nil
}

// MustRegister is Register for startup wiring where a duplicate is a bug.
func (r *Registry) MustRegister(handler protocol.Handler) {
	if err := r.Register(handler); err != nil {
		panic(err)
	}
}

// Resolve returns the handler for a node-type string.
func (r *Registry) Resolve(kind string) (protocol.Handler, error) {
	handler, ok := r.handlers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrHandlerNotFound, kind)
	}

	return handler, nil
}

// IsRegistered reports whether a node-type string has a handler.
func (r *Registry) IsRegistered(kind string) bool {
	_, ok := r.handlers[kind]

	return ok
}

// Kinds returns every registered node-type string, sorted.
func (r *Registry) Kinds() []string {
	kinds := make([]string, 0, len(r.handlers))
	for kind := range r.handlers {
		kinds = append(kinds, kind)
	}

	sort.Strings(kinds)

	return kinds
}
