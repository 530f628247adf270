package s3input

import (
	"net/http"
	"strings"

	"github.com/patsnapops/piam-s3-proxy/internal/hostset"
	"github.com/patsnapops/piam-s3-proxy/internal/proxyerr"
)

// Parse extracts an Input from req, which must already be in
// virtual-hosted style (internal/rewrite.AdaptPathStyle runs first in
// the pipeline). It returns the request alongside the parsed Input,
// since in principle a parser may need to consume body bytes to
// classify some operation; this proxy never needs to sniff the body to
// classify an action, so req comes back unchanged.
func Parse(req *http.Request, hosts *hostset.Set) (Input, *http.Request, error) {
	bucket, err := extractBucket(req.Host, hosts)
	if err != nil {
		return Input{}, req, err
	}

	path := strings.TrimPrefix(req.URL.Path, "/")
	var key *string
	if bucket != nil && path != "" {
		k := path
		key = &k
	}

	action, subResource, err := classify(req, bucket, key)
	if err != nil {
		return Input{}, req, err
	}

	return Input{Bucket: bucket, Key: key, Action: action, SubResource: subResource}, req, nil
}

// extractBucket returns the bucket label preceding the matched proxy
// host suffix, or nil if the request has no bucket label (ListBuckets).
func extractBucket(host string, hosts *hostset.Set) (*string, error) {
	suffix, err := hosts.FindSuffix(host)
	if err != nil {
		// host doesn't end in any of our proxy hosts. The bare
		// ListBuckets host (Host == suffix exactly) never lands here,
		// since FindSuffix accepts it; anything that does is a
		// malformed request.
		return nil, proxyerr.Wrap(proxyerr.ParserError, err, "cannot resolve bucket from host %q", host)
	}
	bucketDot := strings.TrimSuffix(host, suffix)
	if bucketDot == "" {
		return nil, nil
	}
	bucket := strings.TrimSuffix(bucketDot, ".")
	if bucket == "" {
		return nil, proxyerr.New(proxyerr.ParserError, "empty bucket label in host %q", host)
	}
	return &bucket, nil
}

func classify(req *http.Request, bucket, key *string) (ActionKind, string, error) {
	q := req.URL.Query()
	method := req.Method

	if bucket == nil {
		if method != http.MethodGet || key != nil {
			return "", "", proxyerr.New(proxyerr.ParserError, "ListBuckets requires GET with no bucket or key")
		}
		return ListBuckets, "", nil
	}

	if key == nil {
		return classifyBucketLevel(method, q)
	}
	return classifyObjectLevel(method, q)
}

func classifyBucketLevel(method string, q map[string][]string) (ActionKind, string, error) {
	has := func(name string) bool { _, ok := q[name]; return ok }

	switch {
	case has("uploads"):
		if method != http.MethodGet {
			return "", "", proxyerr.New(proxyerr.ParserError, "unrecognised multipart-list method %q", method)
		}
		return MultipartList, "uploads", nil
	case has("versioning"), has("policy"), has("lifecycle"), has("cors"), has("location"), has("tagging"), has("acl"), has("notification"), has("encryption"), has("replication"), has("website"), has("accelerate"):
		return classifyBucketSubresource(method, q)
	}

	switch method {
	case http.MethodGet:
		return ListObjects, "", nil
	case http.MethodPut:
		return CreateBucket, "", nil
	case http.MethodDelete:
		return DeleteBucket, "", nil
	case http.MethodHead:
		return HeadBucket, "", nil
	default:
		return "", "", proxyerr.New(proxyerr.ParserError, "unrecognised bucket-level method %q", method)
	}
}

func classifyBucketSubresource(method string, q map[string][]string) (ActionKind, string, error) {
	sub := firstSubresource(q)
	switch method {
	case http.MethodGet, http.MethodHead:
		return GetBucketSubresource, sub, nil
	case http.MethodPut:
		return PutBucketSubresource, sub, nil
	case http.MethodDelete:
		return DeleteBucketSubresource, sub, nil
	default:
		return "", "", proxyerr.New(proxyerr.ParserError, "unrecognised bucket subresource method %q", method)
	}
}

func classifyObjectLevel(method string, q map[string][]string) (ActionKind, string, error) {
	has := func(name string) bool { _, ok := q[name]; return ok }

	switch {
	case has("uploadId"):
		switch method {
		case http.MethodPut:
			return MultipartUploadPart, "uploadId", nil
		case http.MethodPost:
			return MultipartComplete, "uploadId", nil
		case http.MethodDelete:
			return MultipartAbort, "uploadId", nil
		case http.MethodGet:
			return MultipartUploadPart, "uploadId", nil
		default:
			return "", "", proxyerr.New(proxyerr.ParserError, "unrecognised multipart method %q", method)
		}
	case has("uploads"):
		if method != http.MethodPost {
			return "", "", proxyerr.New(proxyerr.ParserError, "unrecognised multipart-create method %q", method)
		}
		return MultipartCreate, "uploads", nil
	case has("acl"), has("tagging"), has("retention"), has("legal-hold"):
		return classifyObjectSubresource(method, q)
	}

	switch method {
	case http.MethodGet:
		return GetObject, "", nil
	case http.MethodPut:
		return PutObject, "", nil
	case http.MethodDelete:
		return DeleteObject, "", nil
	case http.MethodHead:
		return HeadObject, "", nil
	default:
		return "", "", proxyerr.New(proxyerr.ParserError, "unrecognised object-level method %q", method)
	}
}

func classifyObjectSubresource(method string, q map[string][]string) (ActionKind, string, error) {
	sub := firstSubresource(q)
	switch method {
	case http.MethodGet, http.MethodHead:
		return GetObjectSubresource, sub, nil
	case http.MethodPut:
		return PutObjectSubresource, sub, nil
	default:
		return "", "", proxyerr.New(proxyerr.ParserError, "unrecognised object subresource method %q", method)
	}
}

// firstSubresource picks a representative query key to tag the effect
// with. Requests carry at most one of these subresource params in
// practice; map iteration order doesn't matter when there's only one.
func firstSubresource(q map[string][]string) string {
	for name := range q {
		return name
	}
	return ""
}
