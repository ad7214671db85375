package tollgate

import (
	"context"

	"github.com/xraph/tollgate/capability"
	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/registry"
	"github.com/xraph/tollgate/types"
)

// ──────────────────────────────────────────────────
// Resource Registration
// ──────────────────────────────────────────────────

// RegisterResource adds a resource to the registry. The caller must be
// the resource owner, or hold the registrar capability to register on
// an owner's behalf. The resource's instrument must exist and belong to
// the same owner.
func (e *Engine) RegisterResource(ctx context.Context, res *registry.Resource) error {
	actor, err := e.requireActor(ctx)
	if err != nil {
		return err
	}

	if res.Owner == "" {
		res.Owner = actor
	}
	if res.Owner != actor {
		p, perr := e.store.GetPlatform(ctx)
		if perr != nil {
			return perr
		}
		if !p.Grants.Has(actor, capability.Registrar) {
			return ErrUnauthorized
		}
	}
	if res.ContentRef == "" {
		return ErrEmptyContentRef
	}
	if res.MinBalanceForAccess < 0 {
		return ValidationError{Field: "min_balance_for_access", Message: "must be non-negative"}
	}

	inst, err := e.store.GetInstrument(ctx, res.InstrumentID)
	if err != nil {
		return ErrInvalidInstrument
	}
	if inst.Owner != res.Owner {
		return ErrInvalidInstrument
	}

	if err := e.validatePrice(ctx, res.PricePerUse); err != nil {
		return err
	}

	if res.ID.IsNil() {
		res.ID = id.NewResourceID()
	}
	res.Entity = types.NewEntity()
	res.Active = true
	res.UsageCount = 0
	res.UsageSpend = types.Zero(res.PricePerUse.Currency)

	if err := e.store.CreateResource(ctx, res); err != nil {
		return err
	}

	e.logger.Info("resource registered",
		"resource", res.ID,
		"owner", res.Owner,
		"instrument", res.InstrumentID,
		"price", res.PricePerUse,
	)

	e.plugins.EmitResourceRegistered(ctx, res)
	return nil
}

// validatePrice checks a per-use price against the platform floor and
// the currency table.
func (e *Engine) validatePrice(ctx context.Context, price types.Money) error {
	if !price.IsPositive() {
		return ErrZeroAmount
	}

	if _, err := e.activeCurrency(ctx, price.Currency); err != nil {
		return err
	}

	p, err := e.store.GetPlatform(ctx)
	if err != nil {
		return err
	}
	if price.Amount < p.PriceFloor {
		return ErrPriceBelowFloor
	}
	return nil
}

// GetResource retrieves a resource by ID.
func (e *Engine) GetResource(ctx context.Context, resID id.ResourceID) (*registry.Resource, error) {
	return e.store.GetResource(ctx, resID)
}

// ListResources pages through resources in registration order. A
// non-zero offset past the end of the filtered set fails with
// ErrOffsetOutOfRange rather than silently returning nothing.
func (e *Engine) ListResources(ctx context.Context, opts registry.ListOpts) ([]*registry.Resource, error) {
	if opts.Offset < 0 || opts.Limit < 0 {
		return nil, ErrOffsetOutOfRange
	}

	total, err := e.store.CountResources(ctx, opts)
	if err != nil {
		return nil, err
	}
	if opts.Offset > 0 && int64(opts.Offset) >= total {
		return nil, ErrOffsetOutOfRange
	}

	return e.store.ListResources(ctx, opts)
}

// CountResources returns the number of resources matching opts.
func (e *Engine) CountResources(ctx context.Context, opts registry.ListOpts) (int64, error) {
	return e.store.CountResources(ctx, opts)
}

// RegistryStats returns the registry-wide aggregates.
func (e *Engine) RegistryStats(ctx context.Context) (*registry.Stats, error) {
	return e.store.RegistryStats(ctx)
}

// ──────────────────────────────────────────────────
// Resource Updates
// ──────────────────────────────────────────────────

// UpdateResourcePrice changes a resource's per-use price. The resource
// owner or a platform admin may reprice.
func (e *Engine) UpdateResourcePrice(ctx context.Context, resID id.ResourceID, price types.Money) error {
	if err := e.validatePrice(ctx, price); err != nil {
		return err
	}
	return e.updateAsOwner(ctx, resID, func(res *registry.Resource) error {
		res.PricePerUse = price
		return nil
	})
}

// UpdateResourceMetadata changes a resource's descriptive fields.
func (e *Engine) UpdateResourceMetadata(ctx context.Context, resID id.ResourceID, category string, tags []string, version string) error {
	return e.updateAsOwner(ctx, resID, func(res *registry.Resource) error {
		res.Category = category
		res.Tags = tags
		res.Version = version
		return nil
	})
}

// SetResourceAccessMinimum overrides the instrument's access threshold
// for this resource. Zero restores the instrument default.
func (e *Engine) SetResourceAccessMinimum(ctx context.Context, resID id.ResourceID, min int64) error {
	if min < 0 {
		return ValidationError{Field: "min_balance_for_access", Message: "must be non-negative"}
	}
	return e.updateAsOwner(ctx, resID, func(res *registry.Resource) error {
		res.MinBalanceForAccess = min
		return nil
	})
}

// DeactivateResource takes a resource out of service. Deactivated
// resources stay in the registry and keep their usage history.
func (e *Engine) DeactivateResource(ctx context.Context, resID id.ResourceID) error {
	err := e.updateAsOwner(ctx, resID, func(res *registry.Resource) error {
		if !res.Active {
			return ErrResourceInactive
		}
		res.Active = false
		return nil
	})
	if err != nil {
		return err
	}

	e.plugins.EmitResourceDeactivated(ctx, resID)
	return nil
}

// ReactivateResource returns a deactivated resource to service.
func (e *Engine) ReactivateResource(ctx context.Context, resID id.ResourceID) error {
	err := e.updateAsOwner(ctx, resID, func(res *registry.Resource) error {
		if res.Active {
			return ErrResourceActive
		}
		res.Active = true
		return nil
	})
	if err != nil {
		return err
	}

	e.plugins.EmitResourceReactivated(ctx, resID)
	return nil
}

// updateAsOwner loads the resource, checks the caller is its owner or a
// platform admin, applies mutate, and persists. Plugins see the
// before/after pair.
func (e *Engine) updateAsOwner(ctx context.Context, resID id.ResourceID, mutate func(*registry.Resource) error) error {
	actor, err := e.requireActor(ctx)
	if err != nil {
		return err
	}

	res, err := e.store.GetResource(ctx, resID)
	if err != nil {
		return err
	}
	if res.Owner != actor {
		p, perr := e.store.GetPlatform(ctx)
		if perr != nil {
			return perr
		}
		if !p.Grants.Has(actor, capability.Admin) {
			return ErrOwnerMismatch
		}
	}

	old := *res
	if err := mutate(res); err != nil {
		return err
	}
	res.Touch()

	if err := e.store.UpdateResource(ctx, res); err != nil {
		return err
	}

	e.plugins.EmitResourceUpdated(ctx, &old, res)
	return nil
}

// ──────────────────────────────────────────────────
// Gated Access
// ──────────────────────────────────────────────────

// ResourceHasAccess reports whether account may use a resource: the
// resource is active and the account's entitlement balance clears the
// effective threshold. A positive resource-level minimum overrides the
// instrument default.
func (e *Engine) ResourceHasAccess(ctx context.Context, resID id.ResourceID, account string) (bool, error) {
	if account == "" {
		return false, ErrEmptyAccount
	}

	res, err := e.store.GetResource(ctx, resID)
	if err != nil {
		return false, err
	}
	if !res.Active {
		return false, nil
	}

	inst, err := e.store.GetInstrument(ctx, res.InstrumentID)
	if err != nil {
		return false, err
	}
	balance, err := e.store.HolderBalance(ctx, res.InstrumentID, account)
	if err != nil {
		return false, err
	}

	return inst.MeetsThreshold(balance, res.MinBalanceForAccess), nil
}
