// Package capability defines the named permissions that gate privileged
// Tollgate operations, and the per-account grant sets the engine evaluates
// before any mutation.
//
// Capabilities are platform-wide. Instrument-scoped roles (minter, admin,
// pauser) live on the instrument record itself.
package capability

import "sort"

// Capability is a named permission a caller must hold to invoke a
// privileged operation.
type Capability string

const (
	// Admin may change platform parameters, currencies, and grants.
	Admin Capability = "admin"

	// Registrar may register resources on behalf of instrument owners.
	Registrar Capability = "registrar"

	// Operator may execute metered settlements and record usage.
	Operator Capability = "operator"

	// Treasury may perform emergency custodial sweeps.
	Treasury Capability = "treasury"
)

// All lists every platform capability.
func All() []Capability {
	return []Capability{Admin, Registrar, Operator, Treasury}
}

// Valid reports whether c names a known capability.
func (c Capability) Valid() bool {
	switch c {
	case Admin, Registrar, Operator, Treasury:
		return true
	}
	return false
}

// Set is an account's granted capabilities.
type Set map[Capability]struct{}

// NewSet builds a Set from the given capabilities.
func NewSet(caps ...Capability) Set {
	s := make(Set, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

// Has reports whether the set contains c. Admin implies every
// platform capability.
func (s Set) Has(c Capability) bool {
	if s == nil {
		return false
	}
	if _, ok := s[Admin]; ok {
		return true
	}
	_, ok := s[c]
	return ok
}

// Grant adds a capability to the set.
func (s Set) Grant(c Capability) {
	s[c] = struct{}{}
}

// Revoke removes a capability from the set.
func (s Set) Revoke(c Capability) {
	delete(s, c)
}

// List returns the granted capabilities in stable order.
func (s Set) List() []Capability {
	out := make([]Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns a copy of the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for c := range s {
		out[c] = struct{}{}
	}
	return out
}

// Grants maps account identities to their capability sets.
type Grants map[string]Set

// Has reports whether account holds c.
func (g Grants) Has(account string, c Capability) bool {
	if g == nil {
		return false
	}
	return g[account].Has(c)
}

// Grant adds c to account's set, creating it if needed.
func (g Grants) Grant(account string, c Capability) {
	if g[account] == nil {
		g[account] = NewSet()
	}
	g[account].Grant(c)
}

// Revoke removes c from account's set.
func (g Grants) Revoke(account string, c Capability) {
	if s, ok := g[account]; ok {
		s.Revoke(c)
		if len(s) == 0 {
			delete(g, account)
		}
	}
}

// Clone returns a deep copy of the grants table.
func (g Grants) Clone() Grants {
	out := make(Grants, len(g))
	for account, s := range g {
		out[account] = s.Clone()
	}
	return out
}
