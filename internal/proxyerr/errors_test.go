package proxyerr

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{MalformedProtocol, http.StatusBadRequest},
		{ParserError, http.StatusBadRequest},
		{InvalidEndpoint, http.StatusBadGateway},
		{ResourceNotFound, http.StatusNotFound},
		{OperationNotSupported, http.StatusNotImplemented},
		{AccessDenied, http.StatusForbidden},
		{UpstreamUnavailable, http.StatusBadGateway},
		{AssertFail, http.StatusInternalServerError},
		{OtherInternal, http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, StatusCode(c.kind), string(c.kind))
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := assert.AnError
	err := Wrap(UpstreamUnavailable, cause, "dial %s", "example.com")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "dial example.com")
}

func TestAs(t *testing.T) {
	err := New(AccessDenied, "no such code")
	pe, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, AccessDenied, pe.Kind)

	_, ok = As(assert.AnError)
	assert.False(t, ok)
}
