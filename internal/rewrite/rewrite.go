// Package rewrite implements the two URL-authority transformations the
// proxy performs on an inbound request: converting path-style S3 URLs
// to virtual-hosted style (AdaptPathStyle) and, later in the pipeline,
// pointing the request at the real upstream endpoint (SetActualHost).
package rewrite

import (
	"net/http"
	"net/url"
	"strings"
	"unicode"

	"github.com/patsnapops/piam-s3-proxy/internal/endpoint"
	"github.com/patsnapops/piam-s3-proxy/internal/hostset"
	"github.com/patsnapops/piam-s3-proxy/internal/proxyerr"
)

// AdaptPathStyle converts a path-style request (https://host/bucket/key)
// into virtual-hosted style (https://bucket.host/key) in place, when
// req.Host is one of the configured proxy hosts. pathParam is the
// `{path:.*}` router variable matched after the leading slash. Requests
// that are already virtual-hosted (req.Host not a configured proxy
// host) are left untouched, so running this twice on an already
// virtual-hosted request is a no-op.
func AdaptPathStyle(req *http.Request, pathParam string, hosts *hostset.Set) error {
	host := req.Host
	if !hosts.Contains(host) {
		return nil
	}

	if pathParam == "" {
		// No bucket segment at all: this is a request against the bare
		// proxy host (e.g. ListBuckets), which has no bucket to rewrite
		// onto a virtual-hosted subdomain. Leave it untouched.
		return nil
	}
	bucket := strings.SplitN(pathParam, "/", 2)[0]
	if bucket == "" {
		return proxyerr.New(proxyerr.MalformedProtocol, "path-style request has empty bucket segment")
	}

	pathAndQuery := req.URL.Path
	if req.URL.RawQuery != "" {
		pathAndQuery += "?" + req.URL.RawQuery
	}
	prefix := "/" + bucket
	remainder, ok := strings.CutPrefix(pathAndQuery, prefix)
	if !ok {
		return proxyerr.New(proxyerr.MalformedProtocol, "path %q should start with %q", pathAndQuery, prefix)
	}
	if remainder == "" {
		remainder = "/"
	}

	u, err := url.ParseRequestURI(remainder)
	if err != nil {
		return proxyerr.Wrap(proxyerr.MalformedProtocol, err, "rewritten path %q is not a valid URI", remainder)
	}
	req.URL.Path = u.Path
	req.URL.RawQuery = u.RawQuery

	return setHost(req, bucket+"."+host)
}

// SetActualHost rewrites req's Host header and URI authority to point
// at the real upstream endpoint for region, preserving the bucket label
// that precedes the matched proxy host suffix.
func SetActualHost(req *http.Request, hosts *hostset.Set, region string) error {
	host := req.Host
	proxyHost, err := hosts.FindSuffix(host)
	if err != nil {
		return proxyerr.Wrap(proxyerr.InvalidEndpoint, err, "host %q matches no proxy host", host)
	}
	bucketDot, ok := strings.CutSuffix(host, proxyHost)
	if !ok {
		return proxyerr.New(proxyerr.InvalidEndpoint, "host %q should end with %q", host, proxyHost)
	}

	actualHost, err := endpoint.FromRegionToHost(region)
	if err != nil {
		return err
	}

	return setHost(req, bucketDot+actualHost)
}

func setHost(req *http.Request, host string) error {
	if !isVisibleASCII(host) {
		return proxyerr.New(proxyerr.MalformedProtocol, "host %q is not visible ASCII", host)
	}
	req.Host = host
	req.URL.Host = host
	return nil
}

func isVisibleASCII(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
