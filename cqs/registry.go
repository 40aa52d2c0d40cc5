package cqs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Handler is the untyped form every registered handler is adapted to.
type Handler func(ctx context.Context, inv Invocation) (any, error)

// Invocation describes one dispatched call.
type Invocation struct {
	Kind    Kind
	Name    string
	Request any
	Context *ExecutionContext
}

type entry struct {
	handle Handler
}

// Registry maps each query and command name to exactly one handler. It is
// built once at startup and read-only after an executor seals it.
type Registry struct {
	mu       sync.Mutex
	sealed   bool
	queries  map[string]entry
	commands map[string]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		queries:  make(map[string]entry),
		commands: make(map[string]entry),
	}
}

// RegisterQuery binds query type Q to fn.
func RegisterQuery[Q Query[R], R any](r *Registry, fn func(ctx context.Context, q Q, ec *ExecutionContext) (R, error)) error {
	if r == nil {
		return errors.New("registry is required")
	}
	if fn == nil {
		return errors.New("query handler is required")
	}
	var zero Q
	name := strings.TrimSpace(zero.QueryName())
	if name == "" {
		return errors.New("query name is required")
	}
	return r.add(KindQuery, name, func(ctx context.Context, inv Invocation) (any, error) {
		q, ok := inv.Request.(Q)
		if !ok {
			return nil, fmt.Errorf("query %q dispatched with %T", name, inv.Request)
		}
		return fn(ctx, q, inv.Context)
	})
}

// RegisterCommand binds command type C to fn.
func RegisterCommand[C Command[R], R any](r *Registry, fn func(ctx context.Context, c C, ec *ExecutionContext) (R, error)) error {
	if r == nil {
		return errors.New("registry is required")
	}
	if fn == nil {
		return errors.New("command handler is required")
	}
	var zero C
	name := strings.TrimSpace(zero.CommandName())
	if name == "" {
		return errors.New("command name is required")
	}
	return r.add(KindCommand, name, func(ctx context.Context, inv Invocation) (any, error) {
		c, ok := inv.Request.(C)
		if !ok {
			return nil, fmt.Errorf("command %q dispatched with %T", name, inv.Request)
		}
		return fn(ctx, c, inv.Context)
	})
}

func (r *Registry) add(kind Kind, name string, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return ErrRegistrySealed
	}
	table := r.table(kind)
	if _, exists := table[name]; exists {
		return &DuplicateHandlerError{Kind: kind, Name: name}
	}
	table[name] = entry{handle: h}
	return nil
}

func (r *Registry) table(kind Kind) map[string]entry {
	if kind == KindCommand {
		return r.commands
	}
	return r.queries
}

// seal freezes the registry. Lookups after sealing take no locks.
func (r *Registry) seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether an executor has frozen the registry.
func (r *Registry) Sealed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sealed
}

func (r *Registry) lookup(kind Kind, name string) (Handler, error) {
	e, ok := r.table(kind)[name]
	if !ok {
		return nil, &HandlerNotFoundError{Kind: kind, Name: name}
	}
	return e.handle, nil
}

// Validate checks that every listed request has a handler. All gaps are
// reported together so startup fails once with the full list.
func (r *Registry) Validate(queries []NamedQuery, commands []NamedCommand) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, q := range queries {
		if _, ok := r.queries[q.QueryName()]; !ok {
			errs = append(errs, &HandlerNotFoundError{Kind: KindQuery, Name: q.QueryName()})
		}
	}
	for _, c := range commands {
		if _, ok := r.commands[c.CommandName()]; !ok {
			errs = append(errs, &HandlerNotFoundError{Kind: KindCommand, Name: c.CommandName()})
		}
	}
	return errors.Join(errs...)
}

// Names returns the registered request names of one kind, sorted.
func (r *Registry) Names(kind Kind) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	table := r.table(kind)
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
