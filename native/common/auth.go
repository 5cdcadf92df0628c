package common

import (
	"fmt"
	"sort"
	"strings"
)

// Signers is the set of accounts that authorised an action.
type Signers map[string]struct{}

// NewSigners builds a signer set, ignoring blank names.
func NewSigners(accounts ...string) Signers {
	set := make(Signers, len(accounts))
	for _, acct := range accounts {
		acct = strings.TrimSpace(acct)
		if acct == "" {
			continue
		}
		set[acct] = struct{}{}
	}
	return set
}

// Has reports whether account signed.
func (s Signers) Has(account string) bool {
	_, ok := s[account]
	return ok
}

// List returns the signers in lexical order.
func (s Signers) List() []string {
	out := make([]string, 0, len(s))
	for acct := range s {
		out = append(out, acct)
	}
	sort.Strings(out)
	return out
}

// RequireAuth fails unless account is among the signers.
func RequireAuth(s Signers, account string) error {
	if account == "" || !s.Has(account) {
		return fmt.Errorf("%w of %s", ErrUnauthorized, account)
	}
	return nil
}

// RequireAll fails unless every listed account signed.
func RequireAll(s Signers, accounts ...string) error {
	for _, acct := range accounts {
		if err := RequireAuth(s, acct); err != nil {
			return err
		}
	}
	return nil
}
