// Package observability provides a metrics extension for Tollgate that
// records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/instrument"
	"github.com/xraph/tollgate/payment"
	"github.com/xraph/tollgate/plugin"
	"github.com/xraph/tollgate/registry"
	"github.com/xraph/tollgate/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                   = (*MetricsExtension)(nil)
	_ plugin.OnInit                   = (*MetricsExtension)(nil)
	_ plugin.OnInstrumentCreated      = (*MetricsExtension)(nil)
	_ plugin.OnUnitsIssued            = (*MetricsExtension)(nil)
	_ plugin.OnUnitsRedeemed          = (*MetricsExtension)(nil)
	_ plugin.OnEntitlementTransferred = (*MetricsExtension)(nil)
	_ plugin.OnInstrumentPaused       = (*MetricsExtension)(nil)
	_ plugin.OnInstrumentResumed      = (*MetricsExtension)(nil)
	_ plugin.OnResourceRegistered     = (*MetricsExtension)(nil)
	_ plugin.OnResourceUpdated        = (*MetricsExtension)(nil)
	_ plugin.OnResourceDeactivated    = (*MetricsExtension)(nil)
	_ plugin.OnResourceReactivated    = (*MetricsExtension)(nil)
	_ plugin.OnDeposited              = (*MetricsExtension)(nil)
	_ plugin.OnWithdrawn              = (*MetricsExtension)(nil)
	_ plugin.OnPaymentProcessed       = (*MetricsExtension)(nil)
	_ plugin.OnEmergencyWithdrawal    = (*MetricsExtension)(nil)
	_ plugin.OnPlatformChanged        = (*MetricsExtension)(nil)
	_ plugin.OnCapabilityGranted      = (*MetricsExtension)(nil)
	_ plugin.OnCapabilityRevoked      = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Tollgate plugin to automatically track gating and
// settlement activity.
type MetricsExtension struct {
	factory MetricFactory

	// Instrument metrics
	InstrumentCreated      Counter
	UnitsIssued            Counter
	UnitsRedeemed          Counter
	EntitlementTransferred Counter
	InstrumentPaused       Counter
	InstrumentResumed      Counter
	IssueSize              Histogram

	// Registry metrics
	ResourceRegistered  Counter
	ResourceUpdated     Counter
	ResourceDeactivated Counter
	ResourceReactivated Counter

	// Ledger metrics
	Deposits             Counter
	Withdrawals          Counter
	PaymentsProcessed    Counter
	PaymentAmount        Histogram
	PaymentFee           Histogram
	EmergencyWithdrawals Counter

	// Governance metrics
	PlatformChanges     Counter
	CapabilitiesGranted Counter
	CapabilitiesRevoked Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Instrument metrics
		InstrumentCreated:      factory.Counter("tollgate.instrument.created"),
		UnitsIssued:            factory.Counter("tollgate.instrument.units.issued"),
		UnitsRedeemed:          factory.Counter("tollgate.instrument.units.redeemed"),
		EntitlementTransferred: factory.Counter("tollgate.instrument.transfers"),
		InstrumentPaused:       factory.Counter("tollgate.instrument.paused"),
		InstrumentResumed:      factory.Counter("tollgate.instrument.resumed"),
		IssueSize:              factory.Histogram("tollgate.instrument.issue.size"),

		// Registry metrics
		ResourceRegistered:  factory.Counter("tollgate.resource.registered"),
		ResourceUpdated:     factory.Counter("tollgate.resource.updated"),
		ResourceDeactivated: factory.Counter("tollgate.resource.deactivated"),
		ResourceReactivated: factory.Counter("tollgate.resource.reactivated"),

		// Ledger metrics
		Deposits:             factory.Counter("tollgate.ledger.deposits"),
		Withdrawals:          factory.Counter("tollgate.ledger.withdrawals"),
		PaymentsProcessed:    factory.Counter("tollgate.ledger.payments.processed"),
		PaymentAmount:        factory.Histogram("tollgate.ledger.payment.amount"),
		PaymentFee:           factory.Histogram("tollgate.ledger.payment.fee"),
		EmergencyWithdrawals: factory.Counter("tollgate.ledger.emergency_withdrawals"),

		// Governance metrics
		PlatformChanges:     factory.Counter("tollgate.platform.changes"),
		CapabilitiesGranted: factory.Counter("tollgate.capability.granted"),
		CapabilitiesRevoked: factory.Counter("tollgate.capability.revoked"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Instrument lifecycle hooks
// ──────────────────────────────────────────────────

// OnInstrumentCreated implements plugin.OnInstrumentCreated.
func (m *MetricsExtension) OnInstrumentCreated(_ context.Context, _ *instrument.Instrument) error {
	m.InstrumentCreated.Inc()
	return nil
}

// OnUnitsIssued implements plugin.OnUnitsIssued.
func (m *MetricsExtension) OnUnitsIssued(_ context.Context, _ id.InstrumentID, _ string, amount int64) error {
	m.UnitsIssued.Inc()
	m.IssueSize.Observe(float64(amount))
	return nil
}

// OnUnitsRedeemed implements plugin.OnUnitsRedeemed.
func (m *MetricsExtension) OnUnitsRedeemed(_ context.Context, _ id.InstrumentID, _ string, _ int64) error {
	m.UnitsRedeemed.Inc()
	return nil
}

// OnEntitlementTransferred implements plugin.OnEntitlementTransferred.
func (m *MetricsExtension) OnEntitlementTransferred(_ context.Context, _ id.InstrumentID, _, _ string, _ int64) error {
	m.EntitlementTransferred.Inc()
	return nil
}

// OnInstrumentPaused implements plugin.OnInstrumentPaused.
func (m *MetricsExtension) OnInstrumentPaused(_ context.Context, _ id.InstrumentID) error {
	m.InstrumentPaused.Inc()
	return nil
}

// OnInstrumentResumed implements plugin.OnInstrumentResumed.
func (m *MetricsExtension) OnInstrumentResumed(_ context.Context, _ id.InstrumentID) error {
	m.InstrumentResumed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Registry lifecycle hooks
// ──────────────────────────────────────────────────

// OnResourceRegistered implements plugin.OnResourceRegistered.
func (m *MetricsExtension) OnResourceRegistered(_ context.Context, _ *registry.Resource) error {
	m.ResourceRegistered.Inc()
	return nil
}

// OnResourceUpdated implements plugin.OnResourceUpdated.
func (m *MetricsExtension) OnResourceUpdated(_ context.Context, _, _ *registry.Resource) error {
	m.ResourceUpdated.Inc()
	return nil
}

// OnResourceDeactivated implements plugin.OnResourceDeactivated.
func (m *MetricsExtension) OnResourceDeactivated(_ context.Context, _ id.ResourceID) error {
	m.ResourceDeactivated.Inc()
	return nil
}

// OnResourceReactivated implements plugin.OnResourceReactivated.
func (m *MetricsExtension) OnResourceReactivated(_ context.Context, _ id.ResourceID) error {
	m.ResourceReactivated.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnDeposited implements plugin.OnDeposited.
func (m *MetricsExtension) OnDeposited(_ context.Context, _ string, _ types.Money) error {
	m.Deposits.Inc()
	return nil
}

// OnWithdrawn implements plugin.OnWithdrawn.
func (m *MetricsExtension) OnWithdrawn(_ context.Context, _ string, _ types.Money) error {
	m.Withdrawals.Inc()
	return nil
}

// OnPaymentProcessed implements plugin.OnPaymentProcessed.
func (m *MetricsExtension) OnPaymentProcessed(_ context.Context, p *payment.Payment) error {
	m.PaymentsProcessed.Inc()
	m.PaymentAmount.Observe(float64(p.Amount.Amount))
	m.PaymentFee.Observe(float64(p.Fee.Amount))
	return nil
}

// OnEmergencyWithdrawal implements plugin.OnEmergencyWithdrawal.
func (m *MetricsExtension) OnEmergencyWithdrawal(_ context.Context, _, _, _ string, _ int64) error {
	m.EmergencyWithdrawals.Inc()
	return nil
}

// OnPlatformChanged implements plugin.OnPlatformChanged.
func (m *MetricsExtension) OnPlatformChanged(_ context.Context, _, _ *payment.Platform) error {
	m.PlatformChanges.Inc()
	return nil
}

// OnCapabilityGranted implements plugin.OnCapabilityGranted.
func (m *MetricsExtension) OnCapabilityGranted(_ context.Context, _, _ string) error {
	m.CapabilitiesGranted.Inc()
	return nil
}

// OnCapabilityRevoked implements plugin.OnCapabilityRevoked.
func (m *MetricsExtension) OnCapabilityRevoked(_ context.Context, _, _ string) error {
	m.CapabilitiesRevoked.Inc()
	return nil
}
