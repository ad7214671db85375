// Package audithook bridges Tollgate lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/instrument"
	"github.com/xraph/tollgate/payment"
	"github.com/xraph/tollgate/plugin"
	"github.com/xraph/tollgate/registry"
	"github.com/xraph/tollgate/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                   = (*Extension)(nil)
	_ plugin.OnInstrumentCreated      = (*Extension)(nil)
	_ plugin.OnUnitsIssued            = (*Extension)(nil)
	_ plugin.OnUnitsRedeemed          = (*Extension)(nil)
	_ plugin.OnEntitlementTransferred = (*Extension)(nil)
	_ plugin.OnInstrumentPaused       = (*Extension)(nil)
	_ plugin.OnInstrumentResumed      = (*Extension)(nil)
	_ plugin.OnResourceRegistered     = (*Extension)(nil)
	_ plugin.OnResourceDeactivated    = (*Extension)(nil)
	_ plugin.OnResourceReactivated    = (*Extension)(nil)
	_ plugin.OnDeposited              = (*Extension)(nil)
	_ plugin.OnWithdrawn              = (*Extension)(nil)
	_ plugin.OnPaymentProcessed       = (*Extension)(nil)
	_ plugin.OnEmergencyWithdrawal    = (*Extension)(nil)
	_ plugin.OnPlatformChanged        = (*Extension)(nil)
	_ plugin.OnCapabilityGranted      = (*Extension)(nil)
	_ plugin.OnCapabilityRevoked      = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Tollgate lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Instrument lifecycle hooks
// ──────────────────────────────────────────────────

// OnInstrumentCreated implements plugin.OnInstrumentCreated.
func (e *Extension) OnInstrumentCreated(ctx context.Context, inst *instrument.Instrument) error {
	return e.record(ctx, ActionInstrumentCreated, SeverityInfo, OutcomeSuccess,
		ResourceInstrument, inst.ID.String(), CategoryEntitlement, nil,
		"owner", inst.Owner,
		"symbol", inst.Symbol,
		"max_supply", inst.MaxSupply,
	)
}

// OnUnitsIssued implements plugin.OnUnitsIssued.
func (e *Extension) OnUnitsIssued(ctx context.Context, instID id.InstrumentID, to string, amount int64) error {
	return e.record(ctx, ActionUnitsIssued, SeverityInfo, OutcomeSuccess,
		ResourceInstrument, instID.String(), CategoryEntitlement, nil,
		"to", to,
		"amount", amount,
	)
}

// OnUnitsRedeemed implements plugin.OnUnitsRedeemed.
func (e *Extension) OnUnitsRedeemed(ctx context.Context, instID id.InstrumentID, from string, amount int64) error {
	return e.record(ctx, ActionUnitsRedeemed, SeverityInfo, OutcomeSuccess,
		ResourceInstrument, instID.String(), CategoryEntitlement, nil,
		"from", from,
		"amount", amount,
	)
}

// OnEntitlementTransferred implements plugin.OnEntitlementTransferred.
func (e *Extension) OnEntitlementTransferred(ctx context.Context, instID id.InstrumentID, from, to string, amount int64) error {
	return e.record(ctx, ActionUnitsTransferred, SeverityInfo, OutcomeSuccess,
		ResourceInstrument, instID.String(), CategoryEntitlement, nil,
		"from", from,
		"to", to,
		"amount", amount,
	)
}

// OnInstrumentPaused implements plugin.OnInstrumentPaused.
func (e *Extension) OnInstrumentPaused(ctx context.Context, instID id.InstrumentID) error {
	return e.record(ctx, ActionInstrumentPaused, SeverityWarning, OutcomeSuccess,
		ResourceInstrument, instID.String(), CategoryEntitlement, nil,
	)
}

// OnInstrumentResumed implements plugin.OnInstrumentResumed.
func (e *Extension) OnInstrumentResumed(ctx context.Context, instID id.InstrumentID) error {
	return e.record(ctx, ActionInstrumentResumed, SeverityInfo, OutcomeSuccess,
		ResourceInstrument, instID.String(), CategoryEntitlement, nil,
	)
}

// ──────────────────────────────────────────────────
// Registry lifecycle hooks
// ──────────────────────────────────────────────────

// OnResourceRegistered implements plugin.OnResourceRegistered.
func (e *Extension) OnResourceRegistered(ctx context.Context, res *registry.Resource) error {
	return e.record(ctx, ActionResourceRegistered, SeverityInfo, OutcomeSuccess,
		ResourceResource, res.ID.String(), CategoryRegistry, nil,
		"owner", res.Owner,
		"instrument_id", res.InstrumentID.String(),
		"price", res.PricePerUse.Amount,
		"currency", res.PricePerUse.Currency,
	)
}

// OnResourceDeactivated implements plugin.OnResourceDeactivated.
func (e *Extension) OnResourceDeactivated(ctx context.Context, resID id.ResourceID) error {
	return e.record(ctx, ActionResourceDeactivated, SeverityWarning, OutcomeSuccess,
		ResourceResource, resID.String(), CategoryRegistry, nil,
	)
}

// OnResourceReactivated implements plugin.OnResourceReactivated.
func (e *Extension) OnResourceReactivated(ctx context.Context, resID id.ResourceID) error {
	return e.record(ctx, ActionResourceReactivated, SeverityInfo, OutcomeSuccess,
		ResourceResource, resID.String(), CategoryRegistry, nil,
	)
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnDeposited implements plugin.OnDeposited.
func (e *Extension) OnDeposited(ctx context.Context, account string, amount types.Money) error {
	return e.record(ctx, ActionDeposited, SeverityInfo, OutcomeSuccess,
		ResourceBalance, account, CategoryLedger, nil,
		"amount", amount.Amount,
		"currency", amount.Currency,
	)
}

// OnWithdrawn implements plugin.OnWithdrawn.
func (e *Extension) OnWithdrawn(ctx context.Context, account string, amount types.Money) error {
	return e.record(ctx, ActionWithdrawn, SeverityInfo, OutcomeSuccess,
		ResourceBalance, account, CategoryLedger, nil,
		"amount", amount.Amount,
		"currency", amount.Currency,
	)
}

// OnPaymentProcessed implements plugin.OnPaymentProcessed.
func (e *Extension) OnPaymentProcessed(ctx context.Context, p *payment.Payment) error {
	return e.record(ctx, ActionPaymentProcessed, SeverityInfo, OutcomeSuccess,
		ResourcePayment, p.ID.String(), CategoryLedger, nil,
		"resource_id", p.ResourceID.String(),
		"payer", p.Payer,
		"payee", p.Payee,
		"amount", p.Amount.Amount,
		"fee", p.Fee.Amount,
		"net", p.Net.Amount,
		"currency", p.Amount.Currency,
	)
}

// OnEmergencyWithdrawal implements plugin.OnEmergencyWithdrawal.
func (e *Extension) OnEmergencyWithdrawal(ctx context.Context, from, to, currency string, amount int64) error {
	return e.record(ctx, ActionEmergencyWithdrawal, SeverityCritical, OutcomeSuccess,
		ResourceBalance, from, CategoryLedger, nil,
		"to", to,
		"currency", currency,
		"amount", amount,
	)
}

// ──────────────────────────────────────────────────
// Governance hooks
// ──────────────────────────────────────────────────

// OnPlatformChanged implements plugin.OnPlatformChanged.
func (e *Extension) OnPlatformChanged(ctx context.Context, old, updated *payment.Platform) error {
	return e.record(ctx, ActionPlatformChanged, SeverityWarning, OutcomeSuccess,
		ResourcePlatform, "", CategoryGovernance, nil,
		"old_fee_bps", old.FeeBps,
		"new_fee_bps", updated.FeeBps,
		"old_paused", old.Paused,
		"new_paused", updated.Paused,
	)
}

// OnCapabilityGranted implements plugin.OnCapabilityGranted.
func (e *Extension) OnCapabilityGranted(ctx context.Context, account, cap string) error {
	return e.record(ctx, ActionCapabilityGranted, SeverityWarning, OutcomeSuccess,
		ResourceCapability, account, CategoryGovernance, nil,
		"capability", cap,
	)
}

// OnCapabilityRevoked implements plugin.OnCapabilityRevoked.
func (e *Extension) OnCapabilityRevoked(ctx context.Context, account, cap string) error {
	return e.record(ctx, ActionCapabilityRevoked, SeverityWarning, OutcomeSuccess,
		ResourceCapability, account, CategoryGovernance, nil,
		"capability", cap,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
