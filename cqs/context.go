package cqs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User identifies the acting principal.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// Permission grants one action on one custom entity definition.
type Permission struct {
	EntityDefinitionCode string `json:"entityDefinitionCode"`
	Code                 string `json:"code"`
}

// Permission action codes.
const (
	PermissionRead    = "read"
	PermissionCreate  = "create"
	PermissionUpdate  = "update"
	PermissionDelete  = "delete"
	PermissionPublish = "publish"
)

func (p Permission) String() string {
	return p.EntityDefinitionCode + ":" + p.Code
}

// ParsePermission parses the CODE:action form, e.g. "BLGPST:read".
func ParsePermission(s string) (Permission, error) {
	code, action, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || code == "" || action == "" {
		return Permission{}, fmt.Errorf("invalid permission %q: expected CODE:action", s)
	}
	return Permission{
		EntityDefinitionCode: strings.ToUpper(code),
		Code:                 strings.ToLower(action),
	}, nil
}

// PermissionSet is an immutable set of permissions.
type PermissionSet struct {
	perms map[Permission]struct{}
}

// NewPermissionSet builds a set from the given permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := PermissionSet{perms: make(map[Permission]struct{}, len(perms))}
	for _, p := range perms {
		set.perms[p] = struct{}{}
	}
	return set
}

// Has reports whether p is in the set.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s.perms[p]
	return ok
}

// Len returns the number of permissions.
func (s PermissionSet) Len() int {
	return len(s.perms)
}

// List returns the permissions sorted by their string form.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(s.perms))
	for p := range s.perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// ExecutionContext carries the acting principal through a single query or
// command. It is never mutated once bound to a call.
type ExecutionContext struct {
	User          *User
	Permissions   PermissionSet
	ExecutionDate time.Time
	RequestID     uuid.UUID
	elevated      bool
}

// NewExecutionContext builds a context for user with the given permissions.
// A nil user is an anonymous caller.
func NewExecutionContext(user *User, perms PermissionSet, now time.Time) *ExecutionContext {
	return &ExecutionContext{
		User:          user,
		Permissions:   perms,
		ExecutionDate: now,
		RequestID:     uuid.Must(uuid.NewV7()),
	}
}

// SystemExecutionContext returns an elevated context that passes every
// permission check. Only trusted internal callers should build one.
func SystemExecutionContext(now time.Time) *ExecutionContext {
	return &ExecutionContext{
		User:          &User{Username: "system"},
		ExecutionDate: now,
		RequestID:     uuid.Must(uuid.NewV7()),
		elevated:      true,
	}
}

// IsElevated reports whether the context bypasses permission checks.
func (ec *ExecutionContext) IsElevated() bool {
	return ec != nil && ec.elevated
}

// UserID returns the acting user id, 0 for anonymous callers.
func (ec *ExecutionContext) UserID() int {
	if ec == nil || ec.User == nil {
		return 0
	}
	return ec.User.ID
}

// Can reports whether the context holds p.
func (ec *ExecutionContext) Can(p Permission) bool {
	if ec == nil {
		return false
	}
	if ec.elevated {
		return true
	}
	return ec.Permissions.Has(p)
}

// withDefaults returns a copy with the execution date and request id filled in.
func (ec *ExecutionContext) withDefaults(now func() time.Time) *ExecutionContext {
	out := *ec
	if out.ExecutionDate.IsZero() {
		out.ExecutionDate = now()
	}
	if out.RequestID == uuid.Nil {
		out.RequestID = uuid.Must(uuid.NewV7())
	}
	return &out
}

// ExecutionOption selects the execution context for one call: the ambient
// context of the caller, or an explicitly supplied one.
type ExecutionOption struct {
	explicit *ExecutionContext
	set      bool
}

// Ambient uses the caller's current identity, resolved by the executor's
// ContextProvider.
func Ambient() ExecutionOption {
	return ExecutionOption{}
}

// Explicit uses ec verbatim for every authorization check in the call.
// Build ec with NewExecutionContext or SystemExecutionContext; executors
// reject a nil ec or one without an ExecutionDate.
func Explicit(ec *ExecutionContext) ExecutionOption {
	return ExecutionOption{explicit: ec, set: true}
}

// IsExplicit reports whether the option carries an explicit context.
func (o ExecutionOption) IsExplicit() bool {
	return o.set
}

// ContextProvider supplies the ambient execution context. Implementations must
// be safe for concurrent use.
type ContextProvider interface {
	Ambient(ctx context.Context) (*ExecutionContext, error)
}

// ContextProviderFunc adapts a function to ContextProvider.
type ContextProviderFunc func(ctx context.Context) (*ExecutionContext, error)

func (f ContextProviderFunc) Ambient(ctx context.Context) (*ExecutionContext, error) {
	return f(ctx)
}

type executionContextKey struct{}

// WithExecutionContext stores ec as the ambient context of ctx.
func WithExecutionContext(ctx context.Context, ec *ExecutionContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, executionContextKey{}, ec)
}

// ExecutionContextFromContext returns the context stored by WithExecutionContext.
func ExecutionContextFromContext(ctx context.Context) (*ExecutionContext, bool) {
	if ctx == nil {
		return nil, false
	}
	ec, ok := ctx.Value(executionContextKey{}).(*ExecutionContext)
	return ec, ok && ec != nil
}

// RequestContextProvider resolves the ambient context from the request
// context. Callers without a stored context are anonymous.
type RequestContextProvider struct {
	Now func() time.Time
}

func (p RequestContextProvider) Ambient(ctx context.Context) (*ExecutionContext, error) {
	now := p.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if ec, ok := ExecutionContextFromContext(ctx); ok {
		return ec.withDefaults(now), nil
	}
	return NewExecutionContext(nil, NewPermissionSet(), now()), nil
}
