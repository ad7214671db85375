package tollgate

import (
	"context"
	"strings"

	"github.com/xraph/tollgate/capability"
	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/payment"
	"github.com/xraph/tollgate/types"
)

// ──────────────────────────────────────────────────
// Custodial Balances
// ──────────────────────────────────────────────────

// Deposit credits the caller's custodial balance. The currency must be
// supported and active, and the amount within its configured bounds.
func (e *Engine) Deposit(ctx context.Context, currency string, amount int64) error {
	actor, err := e.requireActor(ctx)
	if err != nil {
		return err
	}

	p, err := e.store.GetPlatform(ctx)
	if err != nil {
		return err
	}
	if p.Paused {
		return ErrLedgerPaused
	}

	c, err := e.activeCurrency(ctx, currency)
	if err != nil {
		return err
	}
	if err := validateMovement(c, amount); err != nil {
		return err
	}

	if err := e.store.AdjustBalance(ctx, actor, c.Code, amount); err != nil {
		return err
	}

	e.logger.Debug("deposit", "account", actor, "currency", c.Code, "amount", amount)

	e.plugins.EmitDeposited(ctx, actor, types.New(amount, c.Code))
	return nil
}

// Withdraw debits the caller's custodial balance.
func (e *Engine) Withdraw(ctx context.Context, currency string, amount int64) error {
	actor, err := e.requireActor(ctx)
	if err != nil {
		return err
	}

	p, err := e.store.GetPlatform(ctx)
	if err != nil {
		return err
	}
	if p.Paused {
		return ErrLedgerPaused
	}

	c, err := e.activeCurrency(ctx, currency)
	if err != nil {
		return err
	}
	if err := validateMovement(c, amount); err != nil {
		return err
	}

	if err := e.store.AdjustBalance(ctx, actor, c.Code, -amount); err != nil {
		return err
	}

	e.logger.Debug("withdrawal", "account", actor, "currency", c.Code, "amount", amount)

	e.plugins.EmitWithdrawn(ctx, actor, types.New(amount, c.Code))
	return nil
}

// BalanceOf returns an account's custodial balance in a currency.
// Unknown accounts have a zero balance.
func (e *Engine) BalanceOf(ctx context.Context, account, currency string) (int64, error) {
	if account == "" {
		return 0, ErrEmptyAccount
	}
	return e.store.GetBalance(ctx, account, currency)
}

// ──────────────────────────────────────────────────
// Settlement
// ──────────────────────────────────────────────────

// Settle executes one metered use of a resource: debit the payer's
// custodial balance by amount, split off the platform fee, credit the
// payee and fee recipient, and append the payment record — atomically.
// The caller must hold the operator capability and the payee must be
// the resource owner. Entitlement gating is the caller's concern: check
// ResourceHasAccess before metering, settlement itself only moves
// funds. Returns the new payment's ID.
func (e *Engine) Settle(ctx context.Context, resID id.ResourceID, payer, payee string, amount types.Money, usageRef string) (id.PaymentID, error) {
	_, p, err := e.requireCapability(ctx, capability.Operator)
	if err != nil {
		return id.Nil, err
	}
	if p.Paused {
		return id.Nil, ErrLedgerPaused
	}
	if payer == "" || payee == "" {
		return id.Nil, ErrEmptyAccount
	}
	if payer == payee {
		return id.Nil, ErrSelfSettlement
	}

	c, err := e.activeCurrency(ctx, amount.Currency)
	if err != nil {
		return id.Nil, err
	}
	if err := validateMovement(c, amount.Amount); err != nil {
		return id.Nil, err
	}

	res, err := e.store.GetResource(ctx, resID)
	if err != nil {
		return id.Nil, err
	}
	if !res.Active {
		return id.Nil, ErrResourceInactive
	}
	if res.Owner != payee {
		return id.Nil, ErrOwnerMismatch
	}

	if p.FeeBps > 0 && p.FeeRecipient == "" {
		return id.Nil, ErrNoFeeRecipient
	}
	fee, net := amount.SplitFee(p.FeeBps)

	pay := &payment.Payment{
		Entity:     types.NewEntity(),
		ID:         id.NewPaymentID(),
		ResourceID: resID,
		Payer:      payer,
		Payee:      payee,
		Amount:     amount,
		Fee:        fee,
		Net:        net,
		UsageRef:   usageRef,
		Processed:  true,
	}
	settlement := &payment.Settlement{
		Payment:      pay,
		FeeRecipient: p.FeeRecipient,
	}
	if err := e.store.ApplySettlement(ctx, settlement); err != nil {
		return id.Nil, err
	}

	e.logger.Info("settlement processed",
		"payment", pay.ID,
		"resource", resID,
		"payer", payer,
		"payee", payee,
		"amount", amount,
		"fee", fee,
	)

	e.plugins.EmitPaymentProcessed(ctx, pay)
	return pay.ID, nil
}

// GetPayment retrieves a payment record by ID.
func (e *Engine) GetPayment(ctx context.Context, payID id.PaymentID) (*payment.Payment, error) {
	return e.store.GetPayment(ctx, payID)
}

// PaymentsByPayer pages through an account's outgoing payments, newest
// first.
func (e *Engine) PaymentsByPayer(ctx context.Context, payer string, opts payment.ListOpts) ([]*payment.Payment, error) {
	if payer == "" {
		return nil, ErrEmptyAccount
	}
	return e.store.PaymentsByPayer(ctx, payer, opts)
}

// PaymentsByPayee pages through an account's incoming payments, newest
// first.
func (e *Engine) PaymentsByPayee(ctx context.Context, payee string, opts payment.ListOpts) ([]*payment.Payment, error) {
	if payee == "" {
		return nil, ErrEmptyAccount
	}
	return e.store.PaymentsByPayee(ctx, payee, opts)
}

// OwnerEarnings returns an owner's cumulative net settlement proceeds,
// per currency.
func (e *Engine) OwnerEarnings(ctx context.Context, owner string) ([]*payment.Earnings, error) {
	if owner == "" {
		return nil, ErrEmptyAccount
	}
	return e.store.OwnerEarnings(ctx, owner)
}

// LedgerStats returns the ledger-wide settlement aggregates.
func (e *Engine) LedgerStats(ctx context.Context) (*payment.Stats, error) {
	return e.store.LedgerStats(ctx)
}

// ──────────────────────────────────────────────────
// Currency Administration
// ──────────────────────────────────────────────────

// AddCurrency registers a new settlement currency. Admin only.
func (e *Engine) AddCurrency(ctx context.Context, c *payment.Currency) error {
	if _, _, err := e.requireCapability(ctx, capability.Admin); err != nil {
		return err
	}

	c.Code = strings.ToLower(c.Code)
	if c.Code == "" {
		return ValidationError{Field: "code", Message: "must not be empty"}
	}
	if c.MinAmount < 0 || c.MaxAmount < 0 {
		return ValidationError{Field: "bounds", Message: "must be non-negative"}
	}
	if _, err := e.store.GetCurrency(ctx, c.Code); err == nil {
		return ErrAlreadyExists
	} else if !IsNotFound(err) {
		return err
	}

	c.Entity = types.NewEntity()
	c.Active = true

	return e.store.UpsertCurrency(ctx, c)
}

// UpdateCurrency changes an existing currency's bounds or metadata.
// Admin only. The code itself is immutable.
func (e *Engine) UpdateCurrency(ctx context.Context, c *payment.Currency) error {
	if _, _, err := e.requireCapability(ctx, capability.Admin); err != nil {
		return err
	}

	c.Code = strings.ToLower(c.Code)
	if c.MinAmount < 0 || c.MaxAmount < 0 {
		return ValidationError{Field: "bounds", Message: "must be non-negative"}
	}

	existing, err := e.store.GetCurrency(ctx, c.Code)
	if err != nil {
		return err
	}

	c.Entity = existing.Entity
	c.Touch()

	return e.store.UpsertCurrency(ctx, c)
}

// RemoveCurrency deactivates a currency. Existing balances and payment
// history are untouched; new movements in the currency are rejected.
// The base currency can never be removed.
func (e *Engine) RemoveCurrency(ctx context.Context, code string) error {
	if _, _, err := e.requireCapability(ctx, capability.Admin); err != nil {
		return err
	}

	code = strings.ToLower(code)
	if code == payment.BaseCurrency {
		return ErrCurrencyReserved
	}

	c, err := e.store.GetCurrency(ctx, code)
	if err != nil {
		return err
	}
	if !c.Active {
		return ErrCurrencyInactive
	}

	c.Active = false
	c.Touch()

	return e.store.UpsertCurrency(ctx, c)
}

// GetCurrency retrieves a currency descriptor by code.
func (e *Engine) GetCurrency(ctx context.Context, code string) (*payment.Currency, error) {
	return e.store.GetCurrency(ctx, strings.ToLower(code))
}

// ListCurrencies lists all registered currencies, active or not.
func (e *Engine) ListCurrencies(ctx context.Context) ([]*payment.Currency, error) {
	return e.store.ListCurrencies(ctx)
}

// ──────────────────────────────────────────────────
// Platform Administration
// ──────────────────────────────────────────────────

// SetPlatformFee changes the settlement fee rate in basis points.
// Admin only; bounded by MaxFeeBps.
func (e *Engine) SetPlatformFee(ctx context.Context, bps int) error {
	if bps < 0 || bps > payment.MaxFeeBps {
		return ErrFeeAboveCeiling
	}
	return e.updatePlatform(ctx, func(p *payment.Platform) error {
		p.FeeBps = bps
		return nil
	})
}

// SetFeeRecipient changes the account that collects platform fees.
func (e *Engine) SetFeeRecipient(ctx context.Context, account string) error {
	if account == "" {
		return ErrEmptyAccount
	}
	return e.updatePlatform(ctx, func(p *payment.Platform) error {
		p.FeeRecipient = account
		return nil
	})
}

// SetPriceFloor changes the minimum per-use resource price. Existing
// resources keep their prices; the floor applies to new registrations
// and reprices.
func (e *Engine) SetPriceFloor(ctx context.Context, floor int64) error {
	if floor < 0 {
		return ValidationError{Field: "price_floor", Message: "must be non-negative"}
	}
	return e.updatePlatform(ctx, func(p *payment.Platform) error {
		p.PriceFloor = floor
		return nil
	})
}

// PauseLedger halts deposits, withdrawals, settlements, and public
// issuance. Queries and emergency withdrawals keep working.
func (e *Engine) PauseLedger(ctx context.Context) error {
	return e.updatePlatform(ctx, func(p *payment.Platform) error {
		p.Paused = true
		return nil
	})
}

// ResumeLedger lifts a ledger pause.
func (e *Engine) ResumeLedger(ctx context.Context) error {
	return e.updatePlatform(ctx, func(p *payment.Platform) error {
		p.Paused = false
		return nil
	})
}

// Platform returns the current platform configuration.
func (e *Engine) Platform(ctx context.Context) (*payment.Platform, error) {
	return e.store.GetPlatform(ctx)
}

// updatePlatform loads the platform config as admin, applies mutate,
// persists, and notifies plugins with the before/after pair.
func (e *Engine) updatePlatform(ctx context.Context, mutate func(*payment.Platform) error) error {
	_, p, err := e.requireCapability(ctx, capability.Admin)
	if err != nil {
		return err
	}

	old := *p
	old.Grants = p.Grants.Clone()

	if err := mutate(p); err != nil {
		return err
	}
	p.Touch()

	if err := e.store.SavePlatform(ctx, p); err != nil {
		return err
	}

	e.plugins.EmitPlatformChanged(ctx, &old, p)
	return nil
}

// ──────────────────────────────────────────────────
// Capabilities
// ──────────────────────────────────────────────────

// GrantCapability gives an account a platform capability. Admin only.
func (e *Engine) GrantCapability(ctx context.Context, account string, cap capability.Capability) error {
	if account == "" {
		return ErrEmptyAccount
	}
	if !cap.Valid() {
		return ErrInvalidCapability
	}

	err := e.updatePlatform(ctx, func(p *payment.Platform) error {
		if p.Grants == nil {
			p.Grants = make(capability.Grants)
		}
		p.Grants.Grant(account, cap)
		return nil
	})
	if err != nil {
		return err
	}

	e.plugins.EmitCapabilityGranted(ctx, account, string(cap))
	return nil
}

// RevokeCapability removes a platform capability from an account.
func (e *Engine) RevokeCapability(ctx context.Context, account string, cap capability.Capability) error {
	if account == "" {
		return ErrEmptyAccount
	}
	if !cap.Valid() {
		return ErrInvalidCapability
	}

	err := e.updatePlatform(ctx, func(p *payment.Platform) error {
		p.Grants.Revoke(account, cap)
		return nil
	})
	if err != nil {
		return err
	}

	e.plugins.EmitCapabilityRevoked(ctx, account, string(cap))
	return nil
}

// Capabilities returns the platform capabilities granted to an account.
func (e *Engine) Capabilities(ctx context.Context, account string) ([]capability.Capability, error) {
	p, err := e.store.GetPlatform(ctx)
	if err != nil {
		return nil, err
	}
	return p.Grants[account].List(), nil
}

// ──────────────────────────────────────────────────
// Emergency Operations
// ──────────────────────────────────────────────────

// EmergencyWithdraw sweeps an account's entire balance in one currency
// to a recovery account. The caller must hold the treasury capability.
// Sweeps work even while the ledger is paused.
func (e *Engine) EmergencyWithdraw(ctx context.Context, from, to, currency string) (int64, error) {
	actor, _, err := e.requireCapability(ctx, capability.Treasury)
	if err != nil {
		return 0, err
	}
	if from == "" || to == "" {
		return 0, ErrEmptyAccount
	}

	currency = strings.ToLower(currency)
	amount, err := e.store.SweepBalance(ctx, from, to, currency)
	if err != nil {
		return 0, err
	}

	e.logger.Warn("emergency withdrawal",
		"actor", actor,
		"from", from,
		"to", to,
		"currency", currency,
		"amount", amount,
	)

	e.plugins.EmitEmergencyWithdrawal(ctx, from, to, currency, amount)
	return amount, nil
}
