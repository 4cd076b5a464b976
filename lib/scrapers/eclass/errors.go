package eclass

import "fmt"

// Kind classifies a failure so callers can tell "server unreachable"
// from "credentials rejected" from "page structure unrecognized".
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindProtocol
	KindAuthentication
	KindSessionExpired
	KindNotAuthenticated
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindProtocol:
		return "protocol"
	case KindAuthentication:
		return "authentication"
	case KindSessionExpired:
		return "session expired"
	case KindNotAuthenticated:
		return "not authenticated"
	}
	return "unknown"
}

// Error is the failure result of every scraper operation. Detail is
// safe to surface to the user, credentials never end up in it.
type Error struct {
	Kind   Kind
	Step   string
	Detail string
	cause  error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Step, e.Detail, e.cause.Error())
	}
	if e.Step != "" {
		return fmt.Sprintf("%s: %s", e.Step, e.Detail)
	}
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.cause
}

// matches any *Error of the same Kind, so errors.Is(err, ErrSessionExpired)
// holds for every session-expired failure
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotAuthenticated = &Error{
		Kind:   KindNotAuthenticated,
		Detail: "Not logged in. Please log in first using the login tool.",
	}
	ErrSessionExpired = &Error{
		Kind:   KindSessionExpired,
		Detail: "Session expired. Please log in again.",
	}
)

func networkErr(step string, err error) *Error {
	return &Error{Kind: KindNetwork, Step: step, Detail: "request failed", cause: err}
}

func protocolErr(step, detail string) *Error {
	return &Error{Kind: KindProtocol, Step: step, Detail: detail}
}

func authErr(step, detail string) *Error {
	return &Error{Kind: KindAuthentication, Step: step, Detail: detail}
}

// KindOf reports the taxonomy kind of err, or 0 for errors that did not
// come out of this package.
func KindOf(err error) Kind {
	e, ok := err.(*Error)
	if !ok {
		return 0
	}
	return e.Kind
}
