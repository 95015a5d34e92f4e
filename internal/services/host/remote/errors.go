package remote

import (
	"errors"
	"fmt"
)

// Kind classifies remote load failures.
type Kind string

const (
	KindUnconfigured Kind = "unconfigured"
	KindUnreachable  Kind = "unreachable"
	KindMissing      Kind = "missing"
	KindMismatch     Kind = "mismatch"
	KindMalformed    Kind = "malformed"
)

// Error is a typed remote load failure.
type Error struct {
	Kind  Kind
	Scope string
	URL   string
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	target := e.Scope
	if e.URL != "" {
		target = e.URL
	}
	if e.Err == nil {
		return fmt.Sprintf("remote %s: %s", e.Kind, target)
	}
	return fmt.Sprintf("remote %s: %s: %v", e.Kind, target, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// KindOf returns the remote failure kind carried by err, or "".
func KindOf(err error) Kind {
	var remoteErr *Error
	if !errors.As(err, &remoteErr) {
		return ""
	}
	return remoteErr.Kind
}

func newError(kind Kind, scope, url string, err error) error {
	return &Error{Kind: kind, Scope: scope, URL: url, Err: err}
}
