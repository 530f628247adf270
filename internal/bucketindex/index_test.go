package bucketindex

import (
	"context"
	"testing"

	"github.com/patsnapops/piam-s3-proxy/internal/iam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	byAccount map[string][]string
	failFor   string
}

func (f fakeLister) ListBuckets(_ context.Context, account iam.Account, _ string, _ *string) ([]string, error) {
	if account.Code == f.failFor {
		return nil, assertErr{}
	}
	return f.byAccount[account.Code], nil
}

type assertErr struct{}

func (assertErr) Error() string { return "simulated probe failure" }

func TestBuilderBuildsIndexAcrossAccounts(t *testing.T) {
	container := iam.NewMemory()
	container.AddAccount(iam.Account{ID: "cn_aws_acme", Code: "cn-acme"})
	container.AddAccount(iam.Account{ID: "us_aws_acme", Code: "us-acme"})

	lister := fakeLister{byAccount: map[string][]string{
		"cn-acme": {"anniversary"},
		"us-acme": {"other-bucket"},
	}}
	b := &Builder{Container: container, Lister: lister}

	idx, err := b.Build(context.Background())
	require.NoError(t, err)

	targets, err := idx.Locate("anniversary")
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "cn-northwest-1", targets[0].Region)
}

func TestBuilderAbortsWholeRefreshOnAnyFailure(t *testing.T) {
	container := iam.NewMemory()
	container.AddAccount(iam.Account{ID: "cn_aws_acme", Code: "cn-acme"})
	container.AddAccount(iam.Account{ID: "us_aws_broken", Code: "us-broken"})

	lister := fakeLister{
		byAccount: map[string][]string{"cn-acme": {"anniversary"}},
		failFor:   "us-broken",
	}
	b := &Builder{Container: container, Lister: lister}

	_, err := b.Build(context.Background())
	assert.Error(t, err)
}

func TestBuilderDedupsTencentApShanghaiAgainstNaAshburn(t *testing.T) {
	container := iam.NewMemory()
	container.AddAccount(iam.Account{ID: "us_tencent_acme", Code: "us-tc"})
	container.AddAccount(iam.Account{ID: "cn_tencent_acme", Code: "cn-tc"})

	lister := fakeLister{byAccount: map[string][]string{
		"us-tc": {"shared-bucket"},
		"cn-tc": {"shared-bucket", "shanghai-only"},
	}}
	b := &Builder{Container: container, Lister: lister}

	idx, err := b.Build(context.Background())
	require.NoError(t, err)

	targets, err := idx.Locate("shared-bucket")
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "na-ashburn", targets[0].Region)

	targets, err = idx.Locate("shanghai-only")
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "ap-shanghai", targets[0].Region)
}
