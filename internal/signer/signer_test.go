package signer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignStripsInboundHeadersAndSetsOwnSignature(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://bucket.s3.cn-northwest-1.amazonaws.com.cn/key", nil)
	req.Header.Set("Authorization", "AWS4-HMAC-SHA256 Credential=caller-forged")
	req.Header.Set("X-Amz-Security-Token", "forged-token")

	signAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := Sign(context.Background(), req, "AKID", "SECRET", "cn-northwest-1", signAt)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(req.Header.Get("Authorization"), "AWS4-HMAC-SHA256"))
	assert.Contains(t, req.Header.Get("Authorization"), "AKID")
	assert.NotContains(t, req.Header.Get("Authorization"), "forged")
	assert.Empty(t, req.Header.Get("X-Amz-Security-Token"))
}

func TestSignUsesEmptyPayloadHashForBodilessRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodHead, "http://bucket.s3.us-east-1.amazonaws.com/key", nil)

	require.Equal(t, emptyPayloadHash, sha256Hex(nil))

	err := Sign(context.Background(), req, "AKID", "SECRET", "us-east-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, emptyPayloadHash, req.Header.Get("X-Amz-Content-Sha256"))
}

func TestSignUsesUnsignedPayloadForStreamedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "http://bucket.s3.us-east-1.amazonaws.com/key", strings.NewReader("payload"))
	req.ContentLength = int64(len("payload"))

	err := Sign(context.Background(), req, "AKID", "SECRET", "us-east-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, unsignedPayload, req.Header.Get("X-Amz-Content-Sha256"))
}
