package audithook

// Action constants for audit events.
const (
	// Instrument actions
	ActionInstrumentCreated = "instrument.created"
	ActionUnitsIssued       = "instrument.units.issued"
	ActionUnitsRedeemed     = "instrument.units.redeemed"
	ActionUnitsTransferred  = "instrument.units.transferred"
	ActionInstrumentPaused  = "instrument.paused"
	ActionInstrumentResumed = "instrument.resumed"

	// Resource actions
	ActionResourceRegistered  = "resource.registered"
	ActionResourceUpdated     = "resource.updated"
	ActionResourceDeactivated = "resource.deactivated"
	ActionResourceReactivated = "resource.reactivated"

	// Ledger actions
	ActionDeposited           = "ledger.deposited"
	ActionWithdrawn           = "ledger.withdrawn"
	ActionPaymentProcessed    = "ledger.payment.processed"
	ActionEmergencyWithdrawal = "ledger.emergency_withdrawal"

	// Governance actions
	ActionPlatformChanged   = "platform.changed"
	ActionCapabilityGranted = "capability.granted"
	ActionCapabilityRevoked = "capability.revoked"
)

// Resource constants for audit events.
const (
	ResourceInstrument = "instrument"
	ResourceResource   = "resource"
	ResourceBalance    = "balance"
	ResourcePayment    = "payment"
	ResourcePlatform   = "platform"
	ResourceCapability = "capability"
)

// Category constants for audit events.
const (
	CategoryEntitlement = "entitlement"
	CategoryRegistry    = "registry"
	CategoryLedger      = "ledger"
	CategoryGovernance  = "governance"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
