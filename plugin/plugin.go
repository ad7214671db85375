// Package plugin provides an extensible plugin system for Tollgate.
// Plugins can hook into lifecycle events to extend functionality. Hooks
// fire synchronously after the triggering mutation has committed, so a
// hook never observes a partially-applied state and a hook failure never
// rolls anything back.
package plugin

import (
	"context"

	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/instrument"
	"github.com/xraph/tollgate/payment"
	"github.com/xraph/tollgate/registry"
	"github.com/xraph/tollgate/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized. The engine is passed
// as interface{} to avoid an import cycle with the root package.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Instrument lifecycle hooks
// ──────────────────────────────────────────────────

// OnInstrumentCreated is called when an entitlement instrument is created.
type OnInstrumentCreated interface {
	Plugin
	OnInstrumentCreated(ctx context.Context, inst *instrument.Instrument) error
}

// OnUnitsIssued is called when entitlement units are issued to a holder.
type OnUnitsIssued interface {
	Plugin
	OnUnitsIssued(ctx context.Context, instID id.InstrumentID, to string, amount int64) error
}

// OnUnitsRedeemed is called when a holder redeems entitlement units.
type OnUnitsRedeemed interface {
	Plugin
	OnUnitsRedeemed(ctx context.Context, instID id.InstrumentID, from string, amount int64) error
}

// OnEntitlementTransferred is called when units move between holders.
type OnEntitlementTransferred interface {
	Plugin
	OnEntitlementTransferred(ctx context.Context, instID id.InstrumentID, from, to string, amount int64) error
}

// OnInstrumentPaused is called when an instrument's mutations are paused.
type OnInstrumentPaused interface {
	Plugin
	OnInstrumentPaused(ctx context.Context, instID id.InstrumentID) error
}

// OnInstrumentResumed is called when a paused instrument is resumed.
type OnInstrumentResumed interface {
	Plugin
	OnInstrumentResumed(ctx context.Context, instID id.InstrumentID) error
}

// ──────────────────────────────────────────────────
// Registry lifecycle hooks
// ──────────────────────────────────────────────────

// OnResourceRegistered is called when a resource is registered.
type OnResourceRegistered interface {
	Plugin
	OnResourceRegistered(ctx context.Context, res *registry.Resource) error
}

// OnResourceUpdated is called when a resource's price or metadata changes.
type OnResourceUpdated interface {
	Plugin
	OnResourceUpdated(ctx context.Context, old, updated *registry.Resource) error
}

// OnResourceDeactivated is called when a resource is taken out of service.
type OnResourceDeactivated interface {
	Plugin
	OnResourceDeactivated(ctx context.Context, resID id.ResourceID) error
}

// OnResourceReactivated is called when a deactivated resource returns.
type OnResourceReactivated interface {
	Plugin
	OnResourceReactivated(ctx context.Context, resID id.ResourceID) error
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnDeposited is called when an account funds its custodial balance.
type OnDeposited interface {
	Plugin
	OnDeposited(ctx context.Context, account string, amount types.Money) error
}

// OnWithdrawn is called when an account withdraws custodial funds.
type OnWithdrawn interface {
	Plugin
	OnWithdrawn(ctx context.Context, account string, amount types.Money) error
}

// OnPaymentProcessed is called when a settlement commits. The payment
// carries the gross amount plus its fee/net split.
type OnPaymentProcessed interface {
	Plugin
	OnPaymentProcessed(ctx context.Context, p *payment.Payment) error
}

// OnEmergencyWithdrawal is called when the treasury sweeps an account.
type OnEmergencyWithdrawal interface {
	Plugin
	OnEmergencyWithdrawal(ctx context.Context, from, to, currency string, amount int64) error
}

// OnPlatformChanged is called when platform parameters change (fee rate,
// fee recipient, price floor, pause state).
type OnPlatformChanged interface {
	Plugin
	OnPlatformChanged(ctx context.Context, old, updated *payment.Platform) error
}

// OnCapabilityGranted is called when an account gains a capability.
type OnCapabilityGranted interface {
	Plugin
	OnCapabilityGranted(ctx context.Context, account, cap string) error
}

// OnCapabilityRevoked is called when an account loses a capability.
type OnCapabilityRevoked interface {
	Plugin
	OnCapabilityRevoked(ctx context.Context, account, cap string) error
}

// ──────────────────────────────────────────────────
// Content resolvers
// ──────────────────────────────────────────────────

// ContentResolver resolves an opaque content reference to a retrievable
// location. Tollgate never dereferences content itself; resolvers let
// hosts plug in their storage scheme.
type ContentResolver interface {
	Plugin
	Scheme() string // "ipfs", "s3", "https", etc.
	Resolve(ctx context.Context, contentRef string) (string, error)
}
