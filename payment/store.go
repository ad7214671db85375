package payment

import (
	"context"

	"github.com/xraph/tollgate/id"
)

// Store is the payment ledger persistence surface. ApplySettlement and
// ApplyEntitlementPurchase are single atomic operations: every balance
// move, record append and counter bump inside them either fully applies
// or leaves no trace.
type Store interface {
	GetBalance(ctx context.Context, account, currency string) (int64, error)
	AdjustBalance(ctx context.Context, account, currency string, delta int64) error
	SweepBalance(ctx context.Context, from, to, currency string) (int64, error)

	UpsertCurrency(ctx context.Context, c *Currency) error
	GetCurrency(ctx context.Context, code string) (*Currency, error)
	ListCurrencies(ctx context.Context) ([]*Currency, error)

	ApplySettlement(ctx context.Context, s *Settlement) error
	ApplyEntitlementPurchase(ctx context.Context, p *EntitlementPurchase) error

	GetPayment(ctx context.Context, payID id.PaymentID) (*Payment, error)
	PaymentsByPayer(ctx context.Context, payer string, opts ListOpts) ([]*Payment, error)
	PaymentsByPayee(ctx context.Context, payee string, opts ListOpts) ([]*Payment, error)

	OwnerEarnings(ctx context.Context, owner string) ([]*Earnings, error)
	LedgerStats(ctx context.Context) (*Stats, error)

	GetPlatform(ctx context.Context) (*Platform, error)
	SavePlatform(ctx context.Context, p *Platform) error
}
