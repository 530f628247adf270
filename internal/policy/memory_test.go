package policy

import (
	"testing"

	"github.com/patsnapops/piam-s3-proxy/internal/iam"
	"github.com/patsnapops/piam-s3-proxy/internal/s3input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFindPoliciesMatchesGroup(t *testing.T) {
	container := iam.NewMemory()
	container.AddUser(iam.User{BaseAccessKey: "AKBASE", Groups: []string{"eng"}})

	m := NewMemory(container)
	m.AddRule(Rule{
		Group:            "eng",
		UserInputEffects: []Effect{{Kind: EffectAddHeader, HeaderName: "X-Team", HeaderValue: "eng"}},
	})

	found, err := m.FindPolicies(FilterParams{Groups: []string{"eng"}})
	require.NoError(t, err)
	require.Len(t, found.UserInput, 1)

	effects, err := found.UserInput[0].FindEffects(s3input.Input{})
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, "X-Team", effects[0].HeaderName)
}

func TestMemoryFindPoliciesNoMatchIsDenied(t *testing.T) {
	container := iam.NewMemory()
	m := NewMemory(container)

	_, err := m.FindPolicies(FilterParams{Groups: []string{"unknown-group"}})
	assert.Error(t, err)
}

func TestMemoryFindUserByBaseAccessKeyDelegates(t *testing.T) {
	container := iam.NewMemory()
	container.AddUser(iam.User{BaseAccessKey: "AKBASE", Groups: []string{"eng"}})
	m := NewMemory(container)

	u, err := m.FindUserByBaseAccessKey("AKBASE")
	require.NoError(t, err)
	assert.Equal(t, []string{"eng"}, u.Groups)

	groups, err := m.FindGroupsByUser(u)
	require.NoError(t, err)
	assert.Equal(t, []string{"eng"}, groups)
}
