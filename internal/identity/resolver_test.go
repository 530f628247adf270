package identity

import (
	"testing"

	"github.com/patsnapops/piam-s3-proxy/internal/iam"
	"github.com/patsnapops/piam-s3-proxy/internal/s3input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountSuffixResolverResolvesAccount(t *testing.T) {
	container := iam.NewMemory()
	container.AddAccount(iam.Account{ID: "cn_aws_acme", Code: "acme", AccessKey: "AK", SecretKey: "SK", Region: "cn-northwest-1"})
	r := AccountSuffixResolver{Container: container}

	target, err := r.Resolve("AKPSSVCSPROXYDEV_acme", s3input.Input{}, "")
	require.NoError(t, err)
	assert.Equal(t, "cn-northwest-1", target.Region)
	assert.Equal(t, "cn_aws_acme", target.Account.ID)
}

func TestAccountSuffixResolverRejectsUnknownCode(t *testing.T) {
	container := iam.NewMemory()
	r := AccountSuffixResolver{Container: container}

	_, err := r.Resolve("AKPSSVCSPROXYDEV_ghost", s3input.Input{}, "")
	assert.Error(t, err)
}

func TestAccountSuffixResolverRejectsMalformedKey(t *testing.T) {
	container := iam.NewMemory()
	r := AccountSuffixResolver{Container: container}

	_, err := r.Resolve("nosuffixhere", s3input.Input{}, "")
	assert.Error(t, err)
}

type fakeLocator struct {
	targets map[string][]AccessTarget
}

func (f fakeLocator) Locate(bucket string) ([]AccessTarget, error) {
	return f.targets[bucket], nil
}

func TestUniKeyResolverRejectsListBuckets(t *testing.T) {
	r := UniKeyResolver{Locator: fakeLocator{}}

	_, err := r.Resolve("AKSHARED", s3input.Input{Action: s3input.ListBuckets}, "")
	require.Error(t, err)
}

func TestUniKeyResolverSingleRegionMatch(t *testing.T) {
	bucket := "anniversary"
	locator := fakeLocator{targets: map[string][]AccessTarget{
		bucket: {{Account: iam.Account{Code: "acme"}, Region: "cn-northwest-1"}},
	}}
	r := UniKeyResolver{Locator: locator}

	target, err := r.Resolve("AKSHARED", s3input.Input{Bucket: &bucket, Action: s3input.GetObject}, "")
	require.NoError(t, err)
	assert.Equal(t, "cn-northwest-1", target.Region)
}

func TestUniKeyResolverMultiRegionRequiresHint(t *testing.T) {
	bucket := "shared-name"
	locator := fakeLocator{targets: map[string][]AccessTarget{
		bucket: {
			{Account: iam.Account{Code: "acme-cn"}, Region: "cn-northwest-1"},
			{Account: iam.Account{Code: "acme-us"}, Region: "us-east-1"},
		},
	}}
	r := UniKeyResolver{Locator: locator}

	_, err := r.Resolve("AKSHARED", s3input.Input{Bucket: &bucket, Action: s3input.GetObject}, "")
	assert.Error(t, err)

	target, err := r.Resolve("AKSHARED", s3input.Input{Bucket: &bucket, Action: s3input.GetObject}, "us-east-1")
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", target.Region)
}

func TestUniKeyResolverNotFound(t *testing.T) {
	r := UniKeyResolver{Locator: fakeLocator{}}

	bucket := "missing"
	_, err := r.Resolve("AKSHARED", s3input.Input{Bucket: &bucket, Action: s3input.GetObject}, "")
	assert.Error(t, err)
}
