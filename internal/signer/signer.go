// Package signer re-signs an inbound request under the resolved
// upstream account's real SigV4 credentials. The proxy never trusts
// (or forwards) the caller's own signature: it
// strips it and computes a fresh one scoped to the account, region,
// and exact request the pipeline has already rewritten.
package signer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"

	"github.com/patsnapops/piam-s3-proxy/internal/proxyerr"
)

// emptyPayloadHash is the SHA-256 of zero bytes, the payload hash
// SigV4 expects for bodiless requests (GET, HEAD, DELETE, and any
// request with a nil body or a Content-Length of zero).
const emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// unsignedPayload tells SigV4 the body is streamed and its hash was
// not computed up front. The proxy never buffers object bodies, so
// every request that carries one is signed this way.
const unsignedPayload = "UNSIGNED-PAYLOAD"

var signer = v4.NewSigner()

// Sign strips any inbound Authorization/X-Amz-* signing headers and
// re-signs req in place for service "s3" under accessKey/secretKey,
// scoped to region. signAt is the timestamp embedded in the signature;
// callers pass time.Now() in production and a fixed time in tests.
func Sign(ctx context.Context, req *http.Request, accessKey, secretKey, region string, signAt time.Time) error {
	stripInboundSigningHeaders(req)

	payloadHash := emptyPayloadHash
	if req.Body != nil && req.ContentLength != 0 {
		payloadHash = unsignedPayload
	}
	req.Header.Set("X-Amz-Content-Sha256", payloadHash)
	req.Header.Set("X-Amz-Date", signAt.UTC().Format("20060102T150405Z"))

	creds := aws.Credentials{AccessKeyID: accessKey, SecretAccessKey: secretKey}
	if err := signer.SignHTTP(ctx, creds, req, payloadHash, "s3", region, signAt); err != nil {
		return proxyerr.Wrap(proxyerr.AssertFail, err, "signing request for region %q failed", region)
	}
	return nil
}

func stripInboundSigningHeaders(req *http.Request) {
	req.Header.Del("Authorization")
	req.Header.Del("X-Amz-Date")
	req.Header.Del("X-Amz-Content-Sha256")
	req.Header.Del("X-Amz-Security-Token")
}

// sha256Hex is used by tests to cross-check emptyPayloadHash against
// the actual hash of zero bytes, rather than trusting the constant.
func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
