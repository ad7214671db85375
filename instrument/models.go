// Package instrument models the fungible, supply-capped entitlement
// instrument whose holder balances gate access to resources.
package instrument

import (
	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/types"
)

// Instrument is one entitlement instrument, deployed once per resource
// owner. Holder balances are stored separately, keyed (instrument, holder).
type Instrument struct {
	types.Entity
	ID     id.InstrumentID `json:"id"`
	Owner  string          `json:"owner"`
	Name   string          `json:"name"`
	Symbol string          `json:"symbol"`

	// Supply. TotalSupply <= MaxSupply always; MaxSupply is immutable.
	TotalSupply int64 `json:"total_supply"`
	MaxSupply   int64 `json:"max_supply"`

	// Access thresholds. AccessThreshold <= PremiumThreshold always.
	AccessThreshold  int64 `json:"access_threshold"`
	PremiumThreshold int64 `json:"premium_threshold"`

	// Self-service purchase.
	UnitPrice      types.Money `json:"unit_price"`
	PublicIssuance bool        `json:"public_issuance"`

	Paused bool `json:"paused"`

	// Instrument-scoped roles. The owner implicitly holds all three.
	Minters []string `json:"minters,omitempty"`
	Admins  []string `json:"admins,omitempty"`
	Pausers []string `json:"pausers,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// Holding is one holder's balance of an instrument.
type Holding struct {
	InstrumentID id.InstrumentID `json:"instrument_id"`
	Holder       string          `json:"holder"`
	Balance      int64           `json:"balance"`
}

// ListOpts filters instrument listings.
type ListOpts struct {
	Owner  string
	Limit  int
	Offset int
}

// CanMint reports whether minting amount would keep TotalSupply within
// MaxSupply.
func (i *Instrument) CanMint(amount int64) bool {
	return amount > 0 && i.TotalSupply+amount <= i.MaxSupply
}

// MeetsThreshold reports whether balance clears the access threshold.
// A positive override replaces the instrument default, which is how the
// registry applies a resource-level minimum balance.
func (i *Instrument) MeetsThreshold(balance, override int64) bool {
	threshold := i.AccessThreshold
	if override > 0 {
		threshold = override
	}
	return balance >= threshold
}

// MeetsPremiumThreshold reports whether balance clears the premium
// threshold.
func (i *Instrument) MeetsPremiumThreshold(balance int64) bool {
	return balance >= i.PremiumThreshold
}

// IsAdmin reports whether account may change instrument parameters or burn.
func (i *Instrument) IsAdmin(account string) bool {
	return account == i.Owner || contains(i.Admins, account)
}

// IsMinter reports whether account may mint.
func (i *Instrument) IsMinter(account string) bool {
	return account == i.Owner || contains(i.Minters, account)
}

// IsPauser reports whether account may pause or resume.
func (i *Instrument) IsPauser(account string) bool {
	return account == i.Owner || contains(i.Pausers, account)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
