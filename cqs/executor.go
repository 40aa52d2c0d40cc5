package cqs

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// QueryExecutor dispatches queries to their registered handlers.
type QueryExecutor interface {
	ExecuteQuery(ctx context.Context, q NamedQuery, opt ExecutionOption) (any, error)
}

// CommandExecutor dispatches commands to their registered handlers.
type CommandExecutor interface {
	ExecuteCommand(ctx context.Context, c NamedCommand, opt ExecutionOption) (any, error)
}

// Option configures an executor.
type Option func(*executor)

// WithMiddleware appends middleware; the first one given is outermost.
func WithMiddleware(mw ...Middleware) Option {
	return func(e *executor) {
		e.middleware = append(e.middleware, mw...)
	}
}

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(e *executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

type executor struct {
	kind       Kind
	registry   *Registry
	provider   ContextProvider
	middleware []Middleware
	logger     *zap.Logger
}

func newExecutor(kind Kind, registry *Registry, provider ContextProvider, opts []Option) *executor {
	if provider == nil {
		provider = RequestContextProvider{}
	}
	e := &executor{
		kind:     kind,
		registry: registry,
		provider: provider,
		logger:   zap.L(),
	}
	for _, opt := range opts {
		opt(e)
	}
	registry.seal()
	return e
}

// NewQueryExecutor builds a query executor over registry and seals it.
func NewQueryExecutor(registry *Registry, provider ContextProvider, opts ...Option) QueryExecutor {
	return &queryExecutor{newExecutor(KindQuery, registry, provider, opts)}
}

// NewCommandExecutor builds a command executor over registry and seals it.
func NewCommandExecutor(registry *Registry, provider ContextProvider, opts ...Option) CommandExecutor {
	return &commandExecutor{newExecutor(KindCommand, registry, provider, opts)}
}

type queryExecutor struct{ *executor }

func (e *queryExecutor) ExecuteQuery(ctx context.Context, q NamedQuery, opt ExecutionOption) (any, error) {
	if isNil(q) {
		return nil, ErrNilRequest
	}
	return e.dispatch(ctx, q.QueryName(), q, opt)
}

type commandExecutor struct{ *executor }

func (e *commandExecutor) ExecuteCommand(ctx context.Context, c NamedCommand, opt ExecutionOption) (any, error) {
	if isNil(c) {
		return nil, ErrNilRequest
	}
	return e.dispatch(ctx, c.CommandName(), c, opt)
}

// dispatch resolves the handler before anything else so a registration gap
// never reaches the context provider or any handler.
func (e *executor) dispatch(ctx context.Context, name string, req any, opt ExecutionOption) (any, error) {
	handle, err := e.registry.lookup(e.kind, name)
	if err != nil {
		e.logger.Error("dispatch failed", zap.String("kind", string(e.kind)), zap.String("name", name), zap.Error(err))
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ec, err := e.resolve(ctx, opt)
	if err != nil {
		return nil, err
	}
	inv := Invocation{Kind: e.kind, Name: name, Request: req, Context: ec}
	return Chain(handle, e.middleware...)(ctx, inv)
}

func (e *executor) resolve(ctx context.Context, opt ExecutionOption) (*ExecutionContext, error) {
	if opt.IsExplicit() {
		switch {
		case opt.explicit == nil:
			return nil, ErrNilExecutionContext
		case opt.explicit.ExecutionDate.IsZero():
			return nil, ErrZeroExecutionDate
		}
		return opt.explicit, nil
	}
	ec, err := e.provider.Ambient(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve ambient execution context: %w", err)
	}
	if ec == nil {
		return nil, fmt.Errorf("resolve ambient execution context: provider returned nil")
	}
	return ec, nil
}

// ExecuteQuery runs q and returns its statically bound result.
func ExecuteQuery[R any](ctx context.Context, ex QueryExecutor, q Query[R], opt ExecutionOption) (R, error) {
	var zero R
	if isNil(q) {
		return zero, ErrNilRequest
	}
	res, err := ex.ExecuteQuery(ctx, q, opt)
	if err != nil {
		return zero, err
	}
	return typedResult[R](q.QueryName(), res)
}

// ExecuteCommand runs c and returns its statically bound result.
func ExecuteCommand[R any](ctx context.Context, ex CommandExecutor, c Command[R], opt ExecutionOption) (R, error) {
	var zero R
	if isNil(c) {
		return zero, ErrNilRequest
	}
	res, err := ex.ExecuteCommand(ctx, c, opt)
	if err != nil {
		return zero, err
	}
	return typedResult[R](c.CommandName(), res)
}

func typedResult[R any](name string, res any) (R, error) {
	var zero R
	if res == nil {
		return zero, nil
	}
	out, ok := res.(R)
	if !ok {
		return zero, &ResultTypeError{
			Name: name,
			Want: reflect.TypeOf((*R)(nil)).Elem().String(),
			Got:  fmt.Sprintf("%T", res),
		}
	}
	return out, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
