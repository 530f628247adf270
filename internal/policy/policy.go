// Package policy declares the policy-engine interface the core
// pipeline consumes and the effect-application step that folds the
// policy engine's output over a live HTTP request. The real
// policy engine lives in the external IAM container; this package's
// Engine interface is the seam, and Memory is a minimal standalone
// implementation.
package policy

import (
	"net/http"

	"github.com/patsnapops/piam-s3-proxy/internal/iam"
	"github.com/patsnapops/piam-s3-proxy/internal/proxyerr"
	"github.com/patsnapops/piam-s3-proxy/internal/s3input"
)

// EffectKind tags the declarative mutation a policy rule produces.
// Effects are data, not subclasses: the rewriter is a single fold
// over a []Effect, switching on Kind.
type EffectKind string

const (
	EffectAddHeader   EffectKind = "AddHeader"
	EffectDeny        EffectKind = "Deny"
	EffectAliasBucket EffectKind = "AliasBucket"
)

// Effect is one declarative mutation (or denial) to apply to the
// request. Only the fields relevant to Kind are populated.
type Effect struct {
	Kind EffectKind

	// EffectAddHeader
	HeaderName  string
	HeaderValue string

	// EffectDeny
	DenyReason string

	// EffectAliasBucket — rewrites the virtual-hosted bucket label,
	// e.g. to present a friendly alias that maps to a real bucket.
	AliasedBucket string
}

// ConditionCtx carries request metadata available before the parsed
// S3 input is known — socket address and similar connection-level
// facts — for condition-scoped policies.
type ConditionCtx struct {
	SourceAddr string
}

// ConditionPolicy yields effects from connection-level context.
type ConditionPolicy interface {
	FindEffects(ctx ConditionCtx) ([]Effect, error)
}

// InputPolicy yields effects from the parsed S3 input (bucket, key,
// operation kind).
type InputPolicy interface {
	FindEffects(in s3input.Input) ([]Effect, error)
}

// FoundPolicies is the ordered result of a policy lookup. Order is
// significant: within each list, the first matching policy wins.
type FoundPolicies struct {
	Condition []ConditionPolicy
	UserInput []InputPolicy
}

// FilterParams scopes a policy lookup to an access target and the
// caller's group memberships.
type FilterParams struct {
	Account iam.Account
	Region  string
	Groups  []string
}

// Engine is the policy-engine interface contract the core pipeline
// depends on.
type Engine interface {
	FindUserByBaseAccessKey(base string) (iam.User, error)
	FindGroupsByUser(u iam.User) ([]string, error)
	FindPolicies(params FilterParams) (FoundPolicies, error)
}

// FindConditionEffects evaluates policies in order and returns the
// first match's effects: first match wins.
func FindConditionEffects(policies []ConditionPolicy, ctx ConditionCtx) ([]Effect, error) {
	for _, p := range policies {
		effects, err := p.FindEffects(ctx)
		if err != nil {
			return nil, err
		}
		if len(effects) > 0 {
			return effects, nil
		}
	}
	return nil, nil
}

// FindInputEffects is FindConditionEffects's counterpart for
// input-scoped policies.
func FindInputEffects(policies []InputPolicy, in s3input.Input) ([]Effect, error) {
	for _, p := range policies {
		effects, err := p.FindEffects(in)
		if err != nil {
			return nil, err
		}
		if len(effects) > 0 {
			return effects, nil
		}
	}
	return nil, nil
}

// ApplyEffects folds effects over req in order, returning the
// transformed request. Condition effects are expected to have already
// been applied before user-input effects are folded in; this function
// itself is agnostic to which list effects came from.
func ApplyEffects(req *http.Request, effects []Effect) (*http.Request, error) {
	for _, e := range effects {
		var err error
		req, err = applyOne(req, e)
		if err != nil {
			return nil, err
		}
	}
	return req, nil
}

func applyOne(req *http.Request, e Effect) (*http.Request, error) {
	switch e.Kind {
	case EffectAddHeader:
		req.Header.Set(e.HeaderName, e.HeaderValue)
		return req, nil
	case EffectDeny:
		reason := e.DenyReason
		if reason == "" {
			reason = "denied by policy"
		}
		return nil, proxyerr.New(proxyerr.AccessDenied, "%s", reason)
	case EffectAliasBucket:
		return aliasBucket(req, e.AliasedBucket)
	default:
		return nil, proxyerr.New(proxyerr.AssertFail, "unknown effect kind %q", e.Kind)
	}
}

// aliasBucket swaps the leading bucket label of req.Host for
// AliasedBucket, leaving the rest of the host (and the path) alone.
func aliasBucket(req *http.Request, aliasedBucket string) (*http.Request, error) {
	if aliasedBucket == "" {
		return nil, proxyerr.New(proxyerr.AssertFail, "alias-bucket effect has no target bucket")
	}
	idx := indexByte(req.Host, '.')
	if idx < 0 {
		return nil, proxyerr.New(proxyerr.MalformedProtocol, "host %q has no bucket label to alias", req.Host)
	}
	newHost := aliasedBucket + req.Host[idx:]
	req.Host = newHost
	req.URL.Host = newHost
	return req, nil
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}
