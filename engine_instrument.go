package tollgate

import (
	"context"

	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/instrument"
	"github.com/xraph/tollgate/payment"
	"github.com/xraph/tollgate/types"
)

// ──────────────────────────────────────────────────
// Instrument Management
// ──────────────────────────────────────────────────

// CreateInstrument deploys a new entitlement instrument. The caller
// becomes its owner.
func (e *Engine) CreateInstrument(ctx context.Context, inst *instrument.Instrument) error {
	actor, err := e.requireActor(ctx)
	if err != nil {
		return err
	}

	if inst.Owner == "" {
		inst.Owner = actor
	}
	if inst.Owner != actor {
		return ErrUnauthorized
	}
	if inst.MaxSupply <= 0 {
		return ValidationError{Field: "max_supply", Message: "must be positive"}
	}
	if inst.AccessThreshold < 0 || inst.PremiumThreshold < 0 {
		return ValidationError{Field: "thresholds", Message: "must be non-negative"}
	}
	if inst.AccessThreshold > inst.PremiumThreshold {
		return ErrThresholdOrder
	}
	if inst.TotalSupply != 0 {
		return ValidationError{Field: "total_supply", Message: "initial supply is minted via Issue"}
	}
	if inst.UnitPrice.IsPositive() && inst.UnitPrice.Currency != payment.BaseCurrency {
		return ValidationError{Field: "unit_price", Message: "public issuance is priced in the base currency"}
	}

	if inst.ID.IsNil() {
		inst.ID = id.NewInstrumentID()
	}
	inst.Entity = types.NewEntity()

	if err := e.store.CreateInstrument(ctx, inst); err != nil {
		return err
	}

	e.logger.Info("instrument created",
		"instrument", inst.ID,
		"owner", inst.Owner,
		"max_supply", inst.MaxSupply,
	)

	e.plugins.EmitInstrumentCreated(ctx, inst)
	return nil
}

// GetInstrument retrieves an instrument by ID.
func (e *Engine) GetInstrument(ctx context.Context, instID id.InstrumentID) (*instrument.Instrument, error) {
	return e.store.GetInstrument(ctx, instID)
}

// ListInstruments lists instruments, optionally filtered by owner.
func (e *Engine) ListInstruments(ctx context.Context, opts instrument.ListOpts) ([]*instrument.Instrument, error) {
	return e.store.ListInstruments(ctx, opts)
}

// EntitlementBalance returns holder's balance of an instrument.
func (e *Engine) EntitlementBalance(ctx context.Context, instID id.InstrumentID, holder string) (int64, error) {
	if holder == "" {
		return 0, ErrEmptyAccount
	}
	return e.store.HolderBalance(ctx, instID, holder)
}

// ──────────────────────────────────────────────────
// Supply Operations
// ──────────────────────────────────────────────────

// Issue mints entitlement units to a holder. The caller must hold the
// instrument's minter role.
func (e *Engine) Issue(ctx context.Context, instID id.InstrumentID, to string, amount int64) error {
	actor, err := e.requireActor(ctx)
	if err != nil {
		return err
	}
	if to == "" {
		return ErrEmptyAccount
	}
	if amount <= 0 {
		return ErrZeroAmount
	}

	inst, err := e.store.GetInstrument(ctx, instID)
	if err != nil {
		return err
	}
	if !inst.IsMinter(actor) {
		return ErrUnauthorized
	}
	if inst.Paused {
		return ErrInstrumentPaused
	}
	if !inst.CanMint(amount) {
		return ErrSupplyExceeded
	}

	if err := e.store.ApplyMint(ctx, instID, to, amount); err != nil {
		return err
	}

	e.logger.Debug("units issued",
		"instrument", instID,
		"to", to,
		"amount", amount,
	)

	e.plugins.EmitUnitsIssued(ctx, instID, to, amount)
	return nil
}

// PublicIssue lets the caller buy entitlement units directly, paying the
// instrument's unit price from its base-currency custodial balance. The
// proceeds credit the instrument owner atomically with the mint.
func (e *Engine) PublicIssue(ctx context.Context, instID id.InstrumentID, quantity int64) error {
	buyer, err := e.requireActor(ctx)
	if err != nil {
		return err
	}
	if quantity <= 0 {
		return ErrZeroAmount
	}

	p, err := e.store.GetPlatform(ctx)
	if err != nil {
		return err
	}
	if p.Paused {
		return ErrLedgerPaused
	}

	inst, err := e.store.GetInstrument(ctx, instID)
	if err != nil {
		return err
	}
	if inst.Paused {
		return ErrInstrumentPaused
	}
	if !inst.PublicIssuance || !inst.UnitPrice.IsPositive() {
		return ErrPublicIssueClosed
	}
	if !inst.CanMint(quantity) {
		return ErrSupplyExceeded
	}

	cost := inst.UnitPrice.Multiply(quantity)
	purchase := &payment.EntitlementPurchase{
		InstrumentID: instID,
		Buyer:        buyer,
		Owner:        inst.Owner,
		Quantity:     quantity,
		Cost:         cost,
	}
	if err := e.store.ApplyEntitlementPurchase(ctx, purchase); err != nil {
		return err
	}

	e.logger.Debug("public issuance",
		"instrument", instID,
		"buyer", buyer,
		"quantity", quantity,
		"cost", cost,
	)

	e.plugins.EmitUnitsIssued(ctx, instID, buyer, quantity)
	return nil
}

// Redeem burns entitlement units from a holder's balance. The caller
// must hold the instrument's admin role.
func (e *Engine) Redeem(ctx context.Context, instID id.InstrumentID, from string, amount int64) error {
	actor, err := e.requireActor(ctx)
	if err != nil {
		return err
	}
	if from == "" {
		return ErrEmptyAccount
	}
	if amount <= 0 {
		return ErrZeroAmount
	}

	inst, err := e.store.GetInstrument(ctx, instID)
	if err != nil {
		return err
	}
	if !inst.IsAdmin(actor) {
		return ErrUnauthorized
	}
	if inst.Paused {
		return ErrInstrumentPaused
	}

	if err := e.store.ApplyBurn(ctx, instID, from, amount); err != nil {
		return err
	}

	e.plugins.EmitUnitsRedeemed(ctx, instID, from, amount)
	return nil
}

// TransferEntitlement moves units from the caller to another holder.
func (e *Engine) TransferEntitlement(ctx context.Context, instID id.InstrumentID, to string, amount int64) error {
	from, err := e.requireActor(ctx)
	if err != nil {
		return err
	}
	if to == "" {
		return ErrEmptyAccount
	}
	if amount <= 0 {
		return ErrZeroAmount
	}

	inst, err := e.store.GetInstrument(ctx, instID)
	if err != nil {
		return err
	}
	if inst.Paused {
		return ErrInstrumentPaused
	}

	if err := e.store.ApplyEntitlementTransfer(ctx, instID, from, to, amount); err != nil {
		return err
	}

	e.plugins.EmitEntitlementTransferred(ctx, instID, from, to, amount)
	return nil
}

// ──────────────────────────────────────────────────
// Access Checks
// ──────────────────────────────────────────────────

// HasAccess reports whether holder's balance clears the instrument's
// access threshold. Access checks are read-only and never paused.
func (e *Engine) HasAccess(ctx context.Context, instID id.InstrumentID, holder string) (bool, error) {
	inst, err := e.store.GetInstrument(ctx, instID)
	if err != nil {
		return false, err
	}
	balance, err := e.store.HolderBalance(ctx, instID, holder)
	if err != nil {
		return false, err
	}
	return inst.MeetsThreshold(balance, 0), nil
}

// HasPremiumAccess reports whether holder's balance clears the premium
// threshold.
func (e *Engine) HasPremiumAccess(ctx context.Context, instID id.InstrumentID, holder string) (bool, error) {
	inst, err := e.store.GetInstrument(ctx, instID)
	if err != nil {
		return false, err
	}
	balance, err := e.store.HolderBalance(ctx, instID, holder)
	if err != nil {
		return false, err
	}
	return inst.MeetsPremiumThreshold(balance), nil
}

// ──────────────────────────────────────────────────
// Instrument Administration
// ──────────────────────────────────────────────────

// SetThresholds updates the access and premium thresholds. The caller
// must hold the instrument's admin role.
func (e *Engine) SetThresholds(ctx context.Context, instID id.InstrumentID, access, premium int64) error {
	if access < 0 || premium < 0 {
		return ValidationError{Field: "thresholds", Message: "must be non-negative"}
	}
	if access > premium {
		return ErrThresholdOrder
	}

	return e.updateAsAdmin(ctx, instID, func(inst *instrument.Instrument) error {
		inst.AccessThreshold = access
		inst.PremiumThreshold = premium
		return nil
	})
}

// SetUnitPrice updates the public-issuance unit price.
func (e *Engine) SetUnitPrice(ctx context.Context, instID id.InstrumentID, price types.Money) error {
	if price.IsNegative() {
		return ValidationError{Field: "unit_price", Message: "must be non-negative"}
	}
	if price.IsPositive() && price.Currency != payment.BaseCurrency {
		return ValidationError{Field: "unit_price", Message: "public issuance is priced in the base currency"}
	}

	return e.updateAsAdmin(ctx, instID, func(inst *instrument.Instrument) error {
		inst.UnitPrice = price
		return nil
	})
}

// SetPublicIssuance opens or closes self-service purchase.
func (e *Engine) SetPublicIssuance(ctx context.Context, instID id.InstrumentID, enabled bool) error {
	return e.updateAsAdmin(ctx, instID, func(inst *instrument.Instrument) error {
		inst.PublicIssuance = enabled
		return nil
	})
}

// AddMinter grants the minter role to an account.
func (e *Engine) AddMinter(ctx context.Context, instID id.InstrumentID, account string) error {
	if account == "" {
		return ErrEmptyAccount
	}
	return e.updateAsAdmin(ctx, instID, func(inst *instrument.Instrument) error {
		if !inst.IsMinter(account) {
			inst.Minters = append(inst.Minters, account)
		}
		return nil
	})
}

// RemoveMinter revokes the minter role from an account. The owner's
// implicit roles cannot be revoked.
func (e *Engine) RemoveMinter(ctx context.Context, instID id.InstrumentID, account string) error {
	if account == "" {
		return ErrEmptyAccount
	}
	return e.updateAsAdmin(ctx, instID, func(inst *instrument.Instrument) error {
		out := inst.Minters[:0]
		for _, m := range inst.Minters {
			if m != account {
				out = append(out, m)
			}
		}
		inst.Minters = out
		return nil
	})
}

// updateAsAdmin loads the instrument, checks the caller's admin role,
// applies mutate, and persists.
func (e *Engine) updateAsAdmin(ctx context.Context, instID id.InstrumentID, mutate func(*instrument.Instrument) error) error {
	actor, err := e.requireActor(ctx)
	if err != nil {
		return err
	}

	inst, err := e.store.GetInstrument(ctx, instID)
	if err != nil {
		return err
	}
	if !inst.IsAdmin(actor) {
		return ErrUnauthorized
	}

	if err := mutate(inst); err != nil {
		return err
	}
	inst.Touch()

	return e.store.UpdateInstrument(ctx, inst)
}

// PauseInstrument halts all mutations on an instrument. Read-only access
// checks keep working. The caller must hold the pauser role.
func (e *Engine) PauseInstrument(ctx context.Context, instID id.InstrumentID) error {
	if err := e.setPaused(ctx, instID, true); err != nil {
		return err
	}
	e.plugins.EmitInstrumentPaused(ctx, instID)
	return nil
}

// ResumeInstrument lifts a pause.
func (e *Engine) ResumeInstrument(ctx context.Context, instID id.InstrumentID) error {
	if err := e.setPaused(ctx, instID, false); err != nil {
		return err
	}
	e.plugins.EmitInstrumentResumed(ctx, instID)
	return nil
}

func (e *Engine) setPaused(ctx context.Context, instID id.InstrumentID, paused bool) error {
	actor, err := e.requireActor(ctx)
	if err != nil {
		return err
	}

	inst, err := e.store.GetInstrument(ctx, instID)
	if err != nil {
		return err
	}
	if !inst.IsPauser(actor) {
		return ErrUnauthorized
	}
	if inst.Paused == paused {
		if paused {
			return ErrInstrumentPaused
		}
		return ErrInstrumentActive
	}

	inst.Paused = paused
	inst.Touch()

	return e.store.UpdateInstrument(ctx, inst)
}
