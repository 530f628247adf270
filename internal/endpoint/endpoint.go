// Package endpoint holds the pure region-to-hostname mappings used to
// resolve the real upstream cloud endpoint once an (account, region)
// has been chosen.
package endpoint

import "github.com/patsnapops/piam-s3-proxy/internal/proxyerr"

// Region codes used by the uni-key probe table and the region-to-host
// mappings below. Kept as named constants rather than inline strings so
// the account-id-probe table in bucketindex and the endpoint tables
// here cannot drift from each other silently.
const (
	CNNorthwest1 = "cn-northwest-1"
	USEast1      = "us-east-1"
	USEast2      = "us-east-2"
	APShanghai   = "ap-shanghai"
	NAAshburn    = "na-ashburn"
)

// hostByRegion maps a region string to the real cloud hostname serving
// that region. AWS China regions use the amazonaws.com.cn TLD; Tencent
// COS regions map to myqcloud.com hosts.
var hostByRegion = map[string]string{
	CNNorthwest1: "s3.cn-northwest-1.amazonaws.com.cn",
	USEast1:      "s3.us-east-1.amazonaws.com",
	USEast2:      "s3.us-east-2.amazonaws.com",
	APShanghai:   "cos.ap-shanghai.myqcloud.com",
	NAAshburn:    "cos.na-ashburn.myqcloud.com",
}

// FromRegionToHost resolves the real upstream hostname for region, used
// by the request rewriter to set the Host header and URI authority.
func FromRegionToHost(region string) (string, error) {
	host, ok := hostByRegion[region]
	if !ok {
		return "", proxyerr.New(proxyerr.InvalidEndpoint, "no known host for region %q", region)
	}
	return host, nil
}

// FromRegionToEndpoint resolves the full https:// endpoint URL for
// region, used by the bucket index when constructing an S3 client for
// non-AWS providers (Tencent COS) that require an explicit endpoint
// override instead of relying on the SDK's default AWS resolver.
func FromRegionToEndpoint(region string) (string, error) {
	host, err := FromRegionToHost(region)
	if err != nil {
		return "", err
	}
	return "https://" + host, nil
}
