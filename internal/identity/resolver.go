// Package identity resolves an authenticated caller's access key into
// the upstream cloud account and region the request should be signed
// and forwarded against. Two interchangeable resolution strategies
// are supported, selected at deploy time: account-suffix mode
// encodes the account directly in the access key; uni-key mode shares
// one access key across every account and disambiguates by bucket.
package identity

import (
	"github.com/patsnapops/piam-s3-proxy/internal/iam"
	"github.com/patsnapops/piam-s3-proxy/internal/proxyerr"
	"github.com/patsnapops/piam-s3-proxy/internal/s3input"
)

// AccessTarget is the resolved upstream account and region a request
// should be signed and forwarded against.
type AccessTarget struct {
	Account iam.Account
	Region  string
}

// Resolver resolves an access key and the parsed S3 input into an
// AccessTarget. regionHint carries an optional caller-supplied region
// disambiguator (e.g. from a request header), used only in uni-key
// mode when a bucket name is ambiguous across regions.
type Resolver interface {
	Resolve(accessKeyID string, in s3input.Input, regionHint string) (AccessTarget, error)
}

// AccountSuffixResolver implements account-suffix mode: the access key
// is `<base>_<accountCode>`, and the account (and its home region) are
// looked up directly by code.
type AccountSuffixResolver struct {
	Container iam.Container
}

func (r AccountSuffixResolver) Resolve(accessKeyID string, _ s3input.Input, _ string) (AccessTarget, error) {
	_, code, err := r.Container.SplitBaseAndAccountCode(accessKeyID)
	if err != nil {
		return AccessTarget{}, proxyerr.Wrap(proxyerr.AccessDenied, err, "access key %q is not a valid account-suffix key", accessKeyID)
	}
	account, err := r.Container.FindAccountByCode(code)
	if err != nil {
		return AccessTarget{}, err
	}
	if account.Region == "" {
		return AccessTarget{}, proxyerr.New(proxyerr.AssertFail, "account %q has no configured region", account.Code)
	}
	return AccessTarget{Account: account, Region: account.Region}, nil
}

// BucketLocator finds every (account, region) pair that currently hosts
// a bucket of the given name. Implemented by the bucket index, which
// refreshes this table in the background.
type BucketLocator interface {
	Locate(bucket string) ([]AccessTarget, error)
}

// UniKeyResolver implements uni-key mode: every caller shares one
// access key, and the account and region are resolved purely from the
// bucket name via the bucket index.
type UniKeyResolver struct {
	Locator BucketLocator
}

// Resolve rejects ListBuckets outright: with one shared key and no
// bucket to disambiguate against, "list my buckets" has no well-defined
// answer in uni-key mode. For every other action it looks
// the bucket up in the index, and uses regionHint to pick among
// multiple hits when the same bucket name exists in more than one
// region.
func (r UniKeyResolver) Resolve(_ string, in s3input.Input, regionHint string) (AccessTarget, error) {
	if in.Action == s3input.ListBuckets {
		return AccessTarget{}, proxyerr.New(proxyerr.OperationNotSupported, "ListBuckets is not supported in uni-key mode")
	}

	bucket := in.BucketOrEmpty()
	if bucket == "" {
		return AccessTarget{}, proxyerr.New(proxyerr.MalformedProtocol, "request carries no bucket to resolve in uni-key mode")
	}

	targets, err := r.Locator.Locate(bucket)
	if err != nil {
		return AccessTarget{}, err
	}
	if len(targets) == 0 {
		return AccessTarget{}, proxyerr.New(proxyerr.ResourceNotFound, "bucket %q not found in any account", bucket)
	}
	if len(targets) == 1 {
		return targets[0], nil
	}

	if regionHint != "" {
		for _, t := range targets {
			if t.Region == regionHint {
				return t, nil
			}
		}
	}
	return AccessTarget{}, proxyerr.New(proxyerr.ResourceNotFound,
		"bucket %q exists in %d regions and no matching region hint was given", bucket, len(targets))
}
