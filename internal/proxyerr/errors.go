// Package proxyerr defines the error taxonomy shared across the proxy
// pipeline. Each stage returns a *Error so the top-level handler can
// translate failures into the right HTTP status without re-deriving
// the cause from an opaque error string.
package proxyerr

import (
	"fmt"
	"net/http"
)

// Kind classifies a proxy error along the pipeline stage that raised it.
type Kind string

const (
	MalformedProtocol     Kind = "MalformedProtocol"
	ParserError           Kind = "ParserError"
	InvalidEndpoint       Kind = "InvalidEndpoint"
	ResourceNotFound      Kind = "ResourceNotFound"
	OperationNotSupported Kind = "OperationNotSupported"
	AccessDenied          Kind = "AccessDenied"
	UpstreamUnavailable   Kind = "UpstreamUnavailable"
	AssertFail            Kind = "AssertFail"
	OtherInternal         Kind = "OtherInternal"
)

// Error is the proxy's error type. It carries enough to pick an HTTP
// status and render a short diagnostic body without leaking internals.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around a lower-level cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// StatusCode maps a Kind to the HTTP status the client should see.
// Signing is asserted to never fail once parameters are well-formed;
// AssertFail therefore always surfaces as 500, matching the other
// internal-invariant kind, OtherInternal.
func StatusCode(kind Kind) int {
	switch kind {
	case MalformedProtocol, ParserError:
		return http.StatusBadRequest
	case InvalidEndpoint:
		return http.StatusBadGateway
	case ResourceNotFound:
		return http.StatusNotFound
	case OperationNotSupported:
		return http.StatusNotImplemented
	case AccessDenied:
		return http.StatusForbidden
	case UpstreamUnavailable:
		return http.StatusBadGateway
	case AssertFail, OtherInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// As reports whether err is a *Error and returns it.
func As(err error) (*Error, bool) {
	pe, ok := err.(*Error)
	return pe, ok
}
