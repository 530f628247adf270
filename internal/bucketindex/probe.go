package bucketindex

import (
	"strings"

	"github.com/patsnapops/piam-s3-proxy/internal/endpoint"
	"github.com/patsnapops/piam-s3-proxy/internal/proxyerr"
)

// usAwsCasException is a single hard-coded account that, despite
// matching the us_aws* prefix, lives in us-east-2 rather than the
// us_aws default of us-east-1. No other exception exists in the probe
// table; this one is carried forward verbatim from the system this
// proxy replaces.
const usAwsCasException = "us_aws_cas_1549"

// probeRegion derives an account's home region (and, for non-AWS
// providers, the endpoint override the S3 client needs) purely from
// the account ID's prefix. This table is intentionally narrow: it
// only needs to cover the providers actually in use.
func probeRegion(accountID string) (region string, endpointOverride *string, err error) {
	switch {
	case accountID == usAwsCasException:
		return endpoint.USEast2, nil, nil
	case strings.HasPrefix(accountID, "cn_aws"):
		return endpoint.CNNorthwest1, nil, nil
	case strings.HasPrefix(accountID, "us_aws"):
		return endpoint.USEast1, nil, nil
	case strings.HasPrefix(accountID, "cn_tencent"):
		ep, epErr := endpoint.FromRegionToEndpoint(endpoint.APShanghai)
		if epErr != nil {
			return "", nil, epErr
		}
		return endpoint.APShanghai, &ep, nil
	case strings.HasPrefix(accountID, "us_tencent"):
		ep, epErr := endpoint.FromRegionToEndpoint(endpoint.NAAshburn)
		if epErr != nil {
			return "", nil, epErr
		}
		return endpoint.NAAshburn, &ep, nil
	default:
		return "", nil, proxyerr.New(proxyerr.AssertFail, "account %q matches no known region-probe prefix", accountID)
	}
}
