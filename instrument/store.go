package instrument

import (
	"context"

	"github.com/xraph/tollgate/id"
)

// Store is the instrument persistence surface. Mutations that touch both
// supply and holdings (mint, burn, transfer) are single atomic operations:
// they either fully apply or leave no trace, and re-check their
// preconditions inside the store's transaction boundary.
type Store interface {
	CreateInstrument(ctx context.Context, inst *Instrument) error
	GetInstrument(ctx context.Context, instID id.InstrumentID) (*Instrument, error)
	ListInstruments(ctx context.Context, opts ListOpts) ([]*Instrument, error)
	UpdateInstrument(ctx context.Context, inst *Instrument) error

	HolderBalance(ctx context.Context, instID id.InstrumentID, holder string) (int64, error)
	ApplyMint(ctx context.Context, instID id.InstrumentID, to string, amount int64) error
	ApplyBurn(ctx context.Context, instID id.InstrumentID, from string, amount int64) error
	ApplyEntitlementTransfer(ctx context.Context, instID id.InstrumentID, from, to string, amount int64) error
}
