package policy

import (
	"github.com/patsnapops/piam-s3-proxy/internal/iam"
	"github.com/patsnapops/piam-s3-proxy/internal/proxyerr"
	"github.com/patsnapops/piam-s3-proxy/internal/s3input"
)

// Rule is a static, standalone policy: it matches every lookup for a
// given group and always yields the same effects.
type Rule struct {
	Group            string
	ConditionEffects []Effect
	UserInputEffects []Effect
}

type conditionAdapter struct{ rule Rule }

func (a conditionAdapter) FindEffects(ConditionCtx) ([]Effect, error) {
	return a.rule.ConditionEffects, nil
}

type inputAdapter struct{ rule Rule }

func (a inputAdapter) FindEffects(s3input.Input) ([]Effect, error) {
	return a.rule.UserInputEffects, nil
}

// Memory is a minimal standalone Engine: it wraps an iam.Container for
// identity lookups and matches groups against a static rule table for
// policy lookups. It has no notion of per-account or per-region
// scoping; FilterParams.Groups is the only input consulted.
type Memory struct {
	iam   iam.Container
	rules map[string]Rule
}

// NewMemory builds a Memory engine backed by container, with no rules
// registered.
func NewMemory(container iam.Container) *Memory {
	return &Memory{iam: container, rules: make(map[string]Rule)}
}

// AddRule registers (or replaces) the rule for a group.
func (m *Memory) AddRule(r Rule) { m.rules[r.Group] = r }

func (m *Memory) FindUserByBaseAccessKey(base string) (iam.User, error) {
	return m.iam.FindUserByBaseAccessKey(base)
}

func (m *Memory) FindGroupsByUser(u iam.User) ([]string, error) {
	return u.Groups, nil
}

func (m *Memory) FindPolicies(params FilterParams) (FoundPolicies, error) {
	var found FoundPolicies
	for _, group := range params.Groups {
		rule, ok := m.rules[group]
		if !ok {
			continue
		}
		if len(rule.ConditionEffects) > 0 {
			found.Condition = append(found.Condition, conditionAdapter{rule})
		}
		if len(rule.UserInputEffects) > 0 {
			found.UserInput = append(found.UserInput, inputAdapter{rule})
		}
	}
	if len(found.Condition) == 0 && len(found.UserInput) == 0 {
		return FoundPolicies{}, proxyerr.New(proxyerr.AccessDenied, "no policy matches groups %v", params.Groups)
	}
	return found, nil
}
