package rewrite

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/patsnapops/piam-s3-proxy/internal/hostset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHosts(t *testing.T, hosts ...string) *hostset.Set {
	t.Helper()
	s, err := hostset.New(hosts)
	require.NoError(t, err)
	return s
}

func TestAdaptPathStyleRewritesHostAndPath(t *testing.T) {
	hosts := mustHosts(t, "s3-proxy.dev")
	req := httptest.NewRequest(http.MethodGet, "http://s3-proxy.dev/anniversary/image/x.jpg", nil)
	req.Host = "s3-proxy.dev"

	err := AdaptPathStyle(req, "anniversary/image/x.jpg", hosts)
	require.NoError(t, err)
	assert.Equal(t, "anniversary.s3-proxy.dev", req.Host)
	assert.Equal(t, "/image/x.jpg", req.URL.Path)
}

func TestAdaptPathStyleBucketOnlyBecomesRoot(t *testing.T) {
	hosts := mustHosts(t, "s3-proxy.dev")
	req := httptest.NewRequest(http.MethodGet, "http://s3-proxy.dev/bucket", nil)
	req.Host = "s3-proxy.dev"

	err := AdaptPathStyle(req, "bucket", hosts)
	require.NoError(t, err)
	assert.Equal(t, "bucket.s3-proxy.dev", req.Host)
	assert.Equal(t, "/", req.URL.Path)
}

func TestAdaptPathStyleEmptyPathIsListBucketsNoop(t *testing.T) {
	hosts := mustHosts(t, "s3-proxy.dev")
	req := httptest.NewRequest(http.MethodGet, "http://s3-proxy.dev/", nil)
	req.Host = "s3-proxy.dev"

	err := AdaptPathStyle(req, "", hosts)
	require.NoError(t, err)
	assert.Equal(t, "s3-proxy.dev", req.Host)
}

func TestAdaptPathStyleIsNoopForVirtualHosted(t *testing.T) {
	hosts := mustHosts(t, "s3-proxy.dev")
	req := httptest.NewRequest(http.MethodHead, "http://ops-9554.cn-northwest-1.s3-proxy.patsnap.info/foo", nil)
	req.Host = "ops-9554.cn-northwest-1.s3-proxy.patsnap.info"

	err := AdaptPathStyle(req, "foo", hosts)
	require.NoError(t, err)
	assert.Equal(t, "ops-9554.cn-northwest-1.s3-proxy.patsnap.info", req.Host)
	assert.Equal(t, "/foo", req.URL.Path)
}

func TestAdaptPathStyleIdempotentOnVirtualHosted(t *testing.T) {
	hosts := mustHosts(t, "s3-proxy.patsnap.info")
	req := httptest.NewRequest(http.MethodHead, "http://ops-9554.s3-proxy.patsnap.info/foo", nil)
	req.Host = "ops-9554.s3-proxy.patsnap.info"

	require.NoError(t, AdaptPathStyle(req, "foo", hosts))
	first := req.Host
	require.NoError(t, AdaptPathStyle(req, "foo", hosts))
	assert.Equal(t, first, req.Host)
}

func TestSetActualHostAWS(t *testing.T) {
	hosts := mustHosts(t, "s3-proxy.dev")
	req := httptest.NewRequest(http.MethodGet, "http://anniversary.s3-proxy.dev/image/x.jpg", nil)
	req.Host = "anniversary.s3-proxy.dev"

	err := SetActualHost(req, hosts, "cn-northwest-1")
	require.NoError(t, err)
	assert.Equal(t, "anniversary.s3.cn-northwest-1.amazonaws.com.cn", req.Host)
}

func TestSetActualHostUnknownRegion(t *testing.T) {
	hosts := mustHosts(t, "s3-proxy.dev")
	req := httptest.NewRequest(http.MethodGet, "http://b.s3-proxy.dev/k", nil)
	req.Host = "b.s3-proxy.dev"

	err := SetActualHost(req, hosts, "eu-west-1")
	assert.Error(t, err)
}
