// Package forward sends a signed, rewritten request upstream and
// streams the response straight back, tagging it with a request ID
// for tracing.
package forward

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/patsnapops/piam-s3-proxy/internal/proxyerr"
)

// pIAMIDHeader is stamped onto every response the proxy returns,
// giving each request a traceable ID independent of whatever the
// upstream itself returns.
const pIAMIDHeader = "x-piam-id"

// Client forwards requests upstream over a shared, pooled transport.
// Object bodies are streamed, never buffered: Client does not read
// req.Body or resp.Body itself.
type Client struct {
	http *http.Client
}

// New builds a Client with a transport pool sized for a proxy fanning
// out to a small number of upstream hosts, each handling many
// concurrent requests. No request timeout is set here: forwarding
// inherits the client's and upstream's own timeouts rather than
// imposing one of its own (large object bodies can legitimately take
// a long time to stream).
func New() *Client {
	return &Client{
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        200,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Forward sends req upstream and returns the raw response, with
// pIAMIDHeader added. Callers are responsible for closing resp.Body.
func (c *Client) Forward(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, proxyerr.Wrap(proxyerr.UpstreamUnavailable, err, "upstream request to %q failed", req.URL.Host)
	}
	resp.Header.Set(pIAMIDHeader, uuid.NewString())
	return resp, nil
}
