// Package cqs provides the query/command dispatch core: typed requests, a
// startup-validated handler registry, execution contexts and the two
// executors that route a request to its single registered handler.
package cqs

// Returns binds a request struct to its result type. Request structs embed it:
//
//	type GetThingByIDQuery struct {
//	    cqs.Returns[*Thing]
//	    ID int
//	}
type Returns[R any] struct{}

func (Returns[R]) result(R) {}

// Void is the result of commands that produce no output.
type Void struct{}

// NamedQuery is the untyped view of a query used for dispatch.
type NamedQuery interface {
	QueryName() string
}

// NamedCommand is the untyped view of a command used for dispatch.
type NamedCommand interface {
	CommandName() string
}

// Query is a read-only request producing R.
type Query[R any] interface {
	NamedQuery
	result(R)
}

// Command is a state-changing request producing R.
type Command[R any] interface {
	NamedCommand
	result(R)
}

// Kind distinguishes queries from commands in middleware and logs.
type Kind string

const (
	KindQuery   Kind = "query"
	KindCommand Kind = "command"
)
