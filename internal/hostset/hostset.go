// Package hostset models the set of fully-qualified hostnames the proxy
// answers to, and the host-suffix lookups the rest of the pipeline needs.
package hostset

import (
	"fmt"
	"strings"

	"github.com/patsnapops/piam-s3-proxy/internal/proxyerr"
)

// Set is an ordered set of proxy hostnames. No element may be a suffix
// of another, so a lookup by suffix is always unambiguous.
type Set struct {
	hosts []string
}

// New builds a Set, rejecting configurations where one hostname is a
// suffix of another (spec invariant: find_proxy_host must be unambiguous).
func New(hosts []string) (*Set, error) {
	for i, a := range hosts {
		for j, b := range hosts {
			if i == j {
				continue
			}
			if strings.HasSuffix(a, b) {
				return nil, fmt.Errorf("proxy host %q is a suffix of %q", b, a)
			}
		}
	}
	cp := make([]string, len(hosts))
	copy(cp, hosts)
	return &Set{hosts: cp}, nil
}

// Hosts returns the configured hostnames in order.
func (s *Set) Hosts() []string {
	out := make([]string, len(s.hosts))
	copy(out, s.hosts)
	return out
}

// Contains reports whether host is exactly one of the configured hosts.
func (s *Set) Contains(host string) bool {
	for _, h := range s.hosts {
		if h == host {
			return true
		}
	}
	return false
}

// FindSuffix returns the longest configured proxy hostname that is a
// suffix of host, or a ParserError if none matches.
func (s *Set) FindSuffix(host string) (string, error) {
	best := ""
	for _, h := range s.hosts {
		if strings.HasSuffix(host, h) && len(h) > len(best) {
			best = h
		}
	}
	if best == "" {
		return "", proxyerr.New(proxyerr.ParserError, "host %q matches no configured proxy host", host)
	}
	return best, nil
}

// WithDevHost returns a copy of hosts with devHost appended, used when
// the proxy is running in dev mode.
func WithDevHost(hosts []string, devHost string) []string {
	out := make([]string, len(hosts), len(hosts)+1)
	copy(out, hosts)
	return append(out, devHost)
}
