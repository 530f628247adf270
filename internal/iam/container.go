// Package iam declares the contract the proxy needs from the external
// IAM container (users, groups, accounts, policies). The container
// itself — and its refresh transport — is an out-of-scope collaborator;
// this package specifies only the interface the core pipeline consumes,
// plus a minimal in-memory implementation so the proxy is runnable and
// testable without the real system wired in.
package iam

import (
	"strings"

	"github.com/patsnapops/piam-s3-proxy/internal/proxyerr"
)

// Account is an upstream cloud account the proxy can sign requests as.
// Region is the account's home region in account-suffix mode, where
// each account lives in exactly one region by construction; uni-key
// mode ignores it and resolves region per-bucket via the bucket index
// instead.
type Account struct {
	ID        string
	Code      string
	AccessKey string
	SecretKey string
	Region    string
}

// User is an identity known to the IAM container, keyed by the base
// access key it was issued (the part before any account-code suffix).
type User struct {
	BaseAccessKey string
	Groups        []string
}

// Container is the subset of the IAM container's API the proxy core
// depends on. A production deployment wires in a client of the real
// (out-of-scope) container; Memory below is a drop-in for tests and
// standalone operation.
type Container interface {
	// FindAccountByCode looks up an account by its short code (used in
	// account-suffix mode, where the code is parsed off the access key).
	FindAccountByCode(code string) (Account, error)

	// SplitBaseAndAccountCode splits an access-key ID of the form
	// <base>_<accountCode> into its two parts. The delimiter is owned
	// by the container, not hard-coded in the resolver, since it's the
	// container that issues keys in this shape.
	SplitBaseAndAccountCode(accessKeyID string) (base, code string, err error)

	// FindUserByBaseAccessKey looks up the user that was issued base.
	FindUserByBaseAccessKey(base string) (User, error)

	// Accounts lists every account configured in the container, used
	// by the uni-key bucket index to enumerate buckets across accounts.
	Accounts() []Account
}

const defaultDelimiter = "_"

// Memory is a simple in-memory Container, keyed by account code and by
// base access key. It splits access keys on the last underscore,
// matching the account-suffix scheme's `<base>_<accountCode>` shape.
type Memory struct {
	accounts  map[string]Account
	users     map[string]User
	delimiter string
}

// NewMemory builds an empty Memory container using the default "_"
// delimiter between base access key and account code.
func NewMemory() *Memory {
	return &Memory{
		accounts:  make(map[string]Account),
		users:     make(map[string]User),
		delimiter: defaultDelimiter,
	}
}

// AddAccount registers an account, keyed by its code.
func (m *Memory) AddAccount(a Account) { m.accounts[a.Code] = a }

// AddUser registers a user, keyed by its base access key.
func (m *Memory) AddUser(u User) { m.users[u.BaseAccessKey] = u }

func (m *Memory) FindAccountByCode(code string) (Account, error) {
	a, ok := m.accounts[code]
	if !ok {
		return Account{}, proxyerr.New(proxyerr.AccessDenied, "no account with code %q", code)
	}
	return a, nil
}

func (m *Memory) SplitBaseAndAccountCode(accessKeyID string) (string, string, error) {
	idx := strings.LastIndex(accessKeyID, m.delimiter)
	if idx < 0 || idx == len(accessKeyID)-1 {
		return "", "", proxyerr.New(proxyerr.AccessDenied, "access key %q has no account-code suffix", accessKeyID)
	}
	return accessKeyID[:idx], accessKeyID[idx+len(m.delimiter):], nil
}

func (m *Memory) FindUserByBaseAccessKey(base string) (User, error) {
	u, ok := m.users[base]
	if !ok {
		return User{}, proxyerr.New(proxyerr.AccessDenied, "no user for base access key %q", base)
	}
	return u, nil
}

func (m *Memory) Accounts() []Account {
	out := make([]Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	return out
}
