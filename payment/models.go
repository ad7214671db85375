// Package payment models the custodial balance ledger: multi-currency
// deposits and withdrawals, atomic fee-splitting settlements, and the
// append-only payment history.
package payment

import (
	"github.com/xraph/tollgate/capability"
	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/types"
)

// BaseCurrency is the reserved code for the platform's native currency.
// It is seeded active and unbounded when the platform config is created
// and can never be removed.
const BaseCurrency = "base"

// MaxFeeBps is the hard ceiling on the platform fee: 1000 bps == 10%.
const MaxFeeBps = 1000

// Currency describes a supported settlement currency and its
// deposit/withdraw bounds.
type Currency struct {
	types.Entity
	Code      string `json:"code"`
	Symbol    string `json:"symbol"`
	Precision int    `json:"precision"`

	// MinAmount/MaxAmount bound deposits, withdrawals and settlements in
	// smallest units. MaxAmount == 0 means unbounded above.
	MinAmount int64 `json:"min_amount"`
	MaxAmount int64 `json:"max_amount"`

	Active bool `json:"active"`
}

// AmountInBounds reports whether amount is within the currency's
// configured bounds.
func (c *Currency) AmountInBounds(amount int64) bool {
	if amount < c.MinAmount {
		return false
	}
	if c.MaxAmount > 0 && amount > c.MaxAmount {
		return false
	}
	return true
}

// Balance is one account's custodial balance in one currency.
// Balances are created implicitly on first deposit and never go negative.
type Balance struct {
	Account  string `json:"account"`
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
}

// Payment is one immutable settlement record. Amount == Fee + Net always.
type Payment struct {
	types.Entity
	ID         id.PaymentID  `json:"id"`
	ResourceID id.ResourceID `json:"resource_id"`
	Payer      string        `json:"payer"`
	Payee      string        `json:"payee"`
	Amount     types.Money   `json:"amount"`
	Fee        types.Money   `json:"fee"`
	Net        types.Money   `json:"net"`
	UsageRef   string        `json:"usage_ref,omitempty"`
	Processed  bool          `json:"processed"`
}

// Settlement is the atomic instruction handed to the store: debit the
// payer, credit payee and fee recipient, append the payment record, bump
// earnings and volume aggregates, and increment the resource usage
// counter — all or nothing.
type Settlement struct {
	Payment      *Payment
	FeeRecipient string
}

// EntitlementPurchase is the atomic instruction for a self-service
// entitlement buy: debit the buyer's base-currency custodial balance by
// Cost, credit the instrument owner, and mint Quantity units to the buyer.
type EntitlementPurchase struct {
	InstrumentID id.InstrumentID
	Buyer        string
	Owner        string
	Quantity     int64
	Cost         types.Money
}

// Earnings is one owner's cumulative settlement proceeds in one currency.
type Earnings struct {
	Owner    string `json:"owner"`
	Currency string `json:"currency"`
	Total    int64  `json:"total"`
}

// Stats are the ledger-wide aggregates across all settlements.
type Stats struct {
	TotalPayments    int64            `json:"total_payments"`
	VolumeByCurrency map[string]int64 `json:"volume_by_currency"`
}

// Platform is the singleton platform configuration: fee policy, price
// floor, pause switch, and the capability grant table.
type Platform struct {
	types.Entity
	FeeBps       int    `json:"fee_bps"`
	FeeRecipient string `json:"fee_recipient"`

	// PriceFloor is the minimum per-use price, in smallest units of the
	// pricing currency.
	PriceFloor int64 `json:"price_floor"`

	Paused bool              `json:"paused"`
	Grants capability.Grants `json:"grants,omitempty"`
}

// ListOpts pages through payment history, newest first.
type ListOpts struct {
	Limit  int
	Offset int
}
