package store

import (
	"context"

	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/instrument"
	"github.com/xraph/tollgate/payment"
	"github.com/xraph/tollgate/registry"
)

// Store is the unified storage interface for all Tollgate entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
//
// Methods named Apply* carry multi-row invariants (balance moves plus
// record appends plus counter bumps) and must execute atomically: either
// every effect applies or none does, and their preconditions are
// re-checked inside the store's transaction boundary. The memory backend
// serializes them under a single write lock; SQL backends run them in a
// transaction.
type Store interface {
	// Instrument methods
	CreateInstrument(ctx context.Context, inst *instrument.Instrument) error
	GetInstrument(ctx context.Context, instID id.InstrumentID) (*instrument.Instrument, error)
	ListInstruments(ctx context.Context, opts instrument.ListOpts) ([]*instrument.Instrument, error)
	UpdateInstrument(ctx context.Context, inst *instrument.Instrument) error
	HolderBalance(ctx context.Context, instID id.InstrumentID, holder string) (int64, error)
	ApplyMint(ctx context.Context, instID id.InstrumentID, to string, amount int64) error
	ApplyBurn(ctx context.Context, instID id.InstrumentID, from string, amount int64) error
	ApplyEntitlementTransfer(ctx context.Context, instID id.InstrumentID, from, to string, amount int64) error

	// Registry methods
	CreateResource(ctx context.Context, r *registry.Resource) error
	GetResource(ctx context.Context, resID id.ResourceID) (*registry.Resource, error)
	ListResources(ctx context.Context, opts registry.ListOpts) ([]*registry.Resource, error)
	CountResources(ctx context.Context, opts registry.ListOpts) (int64, error)
	UpdateResource(ctx context.Context, r *registry.Resource) error
	RegistryStats(ctx context.Context) (*registry.Stats, error)

	// Payment ledger methods
	GetBalance(ctx context.Context, account, currency string) (int64, error)
	AdjustBalance(ctx context.Context, account, currency string, delta int64) error
	SweepBalance(ctx context.Context, from, to, currency string) (int64, error)
	UpsertCurrency(ctx context.Context, c *payment.Currency) error
	GetCurrency(ctx context.Context, code string) (*payment.Currency, error)
	ListCurrencies(ctx context.Context) ([]*payment.Currency, error)
	ApplySettlement(ctx context.Context, s *payment.Settlement) error
	ApplyEntitlementPurchase(ctx context.Context, p *payment.EntitlementPurchase) error
	GetPayment(ctx context.Context, payID id.PaymentID) (*payment.Payment, error)
	PaymentsByPayer(ctx context.Context, payer string, opts payment.ListOpts) ([]*payment.Payment, error)
	PaymentsByPayee(ctx context.Context, payee string, opts payment.ListOpts) ([]*payment.Payment, error)
	OwnerEarnings(ctx context.Context, owner string) ([]*payment.Earnings, error)
	LedgerStats(ctx context.Context) (*payment.Stats, error)
	GetPlatform(ctx context.Context) (*payment.Platform, error)
	SavePlatform(ctx context.Context, p *payment.Platform) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
