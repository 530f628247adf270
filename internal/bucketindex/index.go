// Package bucketindex builds and serves the uni-key identity
// resolver's bucket-to-account-and-region table. It is only exercised
// in uni-key deploys; account-suffix mode never constructs one.
package bucketindex

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/patsnapops/piam-s3-proxy/internal/iam"
	"github.com/patsnapops/piam-s3-proxy/internal/identity"
	"github.com/patsnapops/piam-s3-proxy/internal/proxyerr"
)

// AccessInfo is one (account, region) pair known to host a bucket,
// plus the endpoint override (if any) that was used to probe it.
type AccessInfo struct {
	Account  iam.Account
	Region   string
	Endpoint *string
}

// Index maps a bucket name to every account/region pair hosting it.
// Ordinarily this has exactly one entry; a shared bucket name across
// providers or regions produces more than one, which is what drives
// the identity resolver's region-hint disambiguation.
type Index map[string][]AccessInfo

// Locate implements identity.BucketLocator.
func (idx Index) Locate(bucket string) ([]identity.AccessTarget, error) {
	infos := idx[bucket]
	targets := make([]identity.AccessTarget, 0, len(infos))
	for _, info := range infos {
		targets = append(targets, identity.AccessTarget{Account: info.Account, Region: info.Region})
	}
	return targets, nil
}

// Builder constructs an Index by probing every account in the IAM
// container. A single failed probe aborts the whole build: callers
// keep serving the previous Index rather than publish a partial one.
type Builder struct {
	Container             iam.Container
	Lister                Lister
	IPProvider            string
	ConfigFetchingTimeout time.Duration
}

// Build probes every account and returns the resulting Index. It logs
// (but does not fail on) the outbound-IP diagnostic.
func (b *Builder) Build(ctx context.Context) (Index, error) {
	ip := probeOutboundIP(ctx, b.IPProvider)
	logrus.WithField("outbound_ip", ip).Info("bucket index refresh starting")

	accounts := b.Container.Accounts()

	type probed struct {
		account          iam.Account
		region           string
		endpointOverride *string
		buckets          []string
	}

	var results []probed
	naAshburnBuckets := make(map[string]struct{})

	// na-ashburn accounts are probed first: Tencent COS's ap-shanghai
	// listing spuriously includes na-ashburn's buckets, so we need the
	// na-ashburn set built before we can filter ap-shanghai's results.
	var naAshburn, rest []iam.Account
	for _, acct := range accounts {
		region, _, err := probeRegion(acct.ID)
		if err != nil {
			return nil, err
		}
		if region == "na-ashburn" {
			naAshburn = append(naAshburn, acct)
		} else {
			rest = append(rest, acct)
		}
	}

	for _, acct := range naAshburn {
		region, override, err := probeRegion(acct.ID)
		if err != nil {
			return nil, err
		}
		buckets, err := b.listWithTimeout(ctx, acct, region, override)
		if err != nil {
			return nil, annotateWithOutboundIP(err, ip)
		}
		for _, name := range buckets {
			naAshburnBuckets[name] = struct{}{}
		}
		results = append(results, probed{acct, region, override, buckets})
	}

	for _, acct := range rest {
		region, override, err := probeRegion(acct.ID)
		if err != nil {
			return nil, err
		}
		buckets, err := b.listWithTimeout(ctx, acct, region, override)
		if err != nil {
			return nil, annotateWithOutboundIP(err, ip)
		}
		if region == "ap-shanghai" {
			buckets = subtract(buckets, naAshburnBuckets)
		}
		results = append(results, probed{acct, region, override, buckets})
	}

	index := make(Index)
	for _, r := range results {
		for _, bucket := range r.buckets {
			index[bucket] = append(index[bucket], AccessInfo{
				Account:  r.account,
				Region:   r.region,
				Endpoint: r.endpointOverride,
			})
		}
	}

	logrus.WithField("bucket_count", len(index)).Info("bucket index refresh complete")
	return index, nil
}

// listWithTimeout applies ConfigFetchingTimeout only to probes that use
// an endpoint override (Tencent COS); AWS probes run under ctx alone.
func (b *Builder) listWithTimeout(ctx context.Context, acct iam.Account, region string, endpointOverride *string) ([]string, error) {
	probeCtx := ctx
	if b.ConfigFetchingTimeout > 0 && endpointOverride != nil {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, b.ConfigFetchingTimeout)
		defer cancel()
	}
	return b.Lister.ListBuckets(probeCtx, acct, region, endpointOverride)
}

// annotateWithOutboundIP folds the diagnostic outbound IP into a
// ListBuckets failure, so an IP-whitelist misconfiguration upstream
// shows the address an operator needs to whitelist without them having
// to go spelunking through logs.
func annotateWithOutboundIP(err error, outboundIP string) error {
	pe, ok := proxyerr.As(err)
	if !ok {
		return err
	}
	return proxyerr.Wrap(pe.Kind, err, "%s (outbound IP: %s)", pe.Message, outboundIP)
}

func subtract(buckets []string, exclude map[string]struct{}) []string {
	out := make([]string, 0, len(buckets))
	for _, b := range buckets {
		if _, skip := exclude[b]; skip {
			continue
		}
		out = append(out, b)
	}
	return out
}
