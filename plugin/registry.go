package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/instrument"
	"github.com/xraph/tollgate/payment"
	"github.com/xraph/tollgate/registry"
	"github.com/xraph/tollgate/types"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                   []OnInit
	onShutdown               []OnShutdown
	onInstrumentCreated      []OnInstrumentCreated
	onUnitsIssued            []OnUnitsIssued
	onUnitsRedeemed          []OnUnitsRedeemed
	onEntitlementTransferred []OnEntitlementTransferred
	onInstrumentPaused       []OnInstrumentPaused
	onInstrumentResumed      []OnInstrumentResumed
	onResourceRegistered     []OnResourceRegistered
	onResourceUpdated        []OnResourceUpdated
	onResourceDeactivated    []OnResourceDeactivated
	onResourceReactivated    []OnResourceReactivated
	onDeposited              []OnDeposited
	onWithdrawn              []OnWithdrawn
	onPaymentProcessed       []OnPaymentProcessed
	onEmergencyWithdrawal    []OnEmergencyWithdrawal
	onPlatformChanged        []OnPlatformChanged
	onCapabilityGranted      []OnCapabilityGranted
	onCapabilityRevoked      []OnCapabilityRevoked
	contentResolvers         map[string]ContentResolver
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:           slog.Default(),
		contentResolvers: make(map[string]ContentResolver),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnInstrumentCreated); ok {
		r.onInstrumentCreated = append(r.onInstrumentCreated, v)
	}
	if v, ok := p.(OnUnitsIssued); ok {
		r.onUnitsIssued = append(r.onUnitsIssued, v)
	}
	if v, ok := p.(OnUnitsRedeemed); ok {
		r.onUnitsRedeemed = append(r.onUnitsRedeemed, v)
	}
	if v, ok := p.(OnEntitlementTransferred); ok {
		r.onEntitlementTransferred = append(r.onEntitlementTransferred, v)
	}
	if v, ok := p.(OnInstrumentPaused); ok {
		r.onInstrumentPaused = append(r.onInstrumentPaused, v)
	}
	if v, ok := p.(OnInstrumentResumed); ok {
		r.onInstrumentResumed = append(r.onInstrumentResumed, v)
	}
	if v, ok := p.(OnResourceRegistered); ok {
		r.onResourceRegistered = append(r.onResourceRegistered, v)
	}
	if v, ok := p.(OnResourceUpdated); ok {
		r.onResourceUpdated = append(r.onResourceUpdated, v)
	}
	if v, ok := p.(OnResourceDeactivated); ok {
		r.onResourceDeactivated = append(r.onResourceDeactivated, v)
	}
	if v, ok := p.(OnResourceReactivated); ok {
		r.onResourceReactivated = append(r.onResourceReactivated, v)
	}
	if v, ok := p.(OnDeposited); ok {
		r.onDeposited = append(r.onDeposited, v)
	}
	if v, ok := p.(OnWithdrawn); ok {
		r.onWithdrawn = append(r.onWithdrawn, v)
	}
	if v, ok := p.(OnPaymentProcessed); ok {
		r.onPaymentProcessed = append(r.onPaymentProcessed, v)
	}
	if v, ok := p.(OnEmergencyWithdrawal); ok {
		r.onEmergencyWithdrawal = append(r.onEmergencyWithdrawal, v)
	}
	if v, ok := p.(OnPlatformChanged); ok {
		r.onPlatformChanged = append(r.onPlatformChanged, v)
	}
	if v, ok := p.(OnCapabilityGranted); ok {
		r.onCapabilityGranted = append(r.onCapabilityGranted, v)
	}
	if v, ok := p.(OnCapabilityRevoked); ok {
		r.onCapabilityRevoked = append(r.onCapabilityRevoked, v)
	}
	if v, ok := p.(ContentResolver); ok {
		r.contentResolvers[v.Scheme()] = v
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnInstrumentCreated)(nil)).Elem(), "OnInstrumentCreated")
	checkInterface(reflect.TypeOf((*OnUnitsIssued)(nil)).Elem(), "OnUnitsIssued")
	checkInterface(reflect.TypeOf((*OnResourceRegistered)(nil)).Elem(), "OnResourceRegistered")
	checkInterface(reflect.TypeOf((*OnPaymentProcessed)(nil)).Elem(), "OnPaymentProcessed")
	checkInterface(reflect.TypeOf((*OnPlatformChanged)(nil)).Elem(), "OnPlatformChanged")
	checkInterface(reflect.TypeOf((*ContentResolver)(nil)).Elem(), "ContentResolver")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// GetContentResolver returns the resolver registered for a scheme.
func (r *Registry) GetContentResolver(scheme string) ContentResolver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.contentResolvers[scheme]
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitInstrumentCreated emits an instrument created event.
func (r *Registry) EmitInstrumentCreated(ctx context.Context, inst *instrument.Instrument) {
	r.mu.RLock()
	plugins := r.onInstrumentCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInstrumentCreated(ctx, inst)
		}); err != nil {
			r.logger.Warn("plugin OnInstrumentCreated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitUnitsIssued emits a units issued event.
func (r *Registry) EmitUnitsIssued(ctx context.Context, instID id.InstrumentID, to string, amount int64) {
	r.mu.RLock()
	plugins := r.onUnitsIssued
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnUnitsIssued(ctx, instID, to, amount)
		}); err != nil {
			r.logger.Warn("plugin OnUnitsIssued failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitUnitsRedeemed emits a units redeemed event.
func (r *Registry) EmitUnitsRedeemed(ctx context.Context, instID id.InstrumentID, from string, amount int64) {
	r.mu.RLock()
	plugins := r.onUnitsRedeemed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnUnitsRedeemed(ctx, instID, from, amount)
		}); err != nil {
			r.logger.Warn("plugin OnUnitsRedeemed failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitEntitlementTransferred emits an entitlement transferred event.
func (r *Registry) EmitEntitlementTransferred(ctx context.Context, instID id.InstrumentID, from, to string, amount int64) {
	r.mu.RLock()
	plugins := r.onEntitlementTransferred
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnEntitlementTransferred(ctx, instID, from, to, amount)
		}); err != nil {
			r.logger.Warn("plugin OnEntitlementTransferred failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitInstrumentPaused emits an instrument paused event.
func (r *Registry) EmitInstrumentPaused(ctx context.Context, instID id.InstrumentID) {
	r.mu.RLock()
	plugins := r.onInstrumentPaused
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInstrumentPaused(ctx, instID)
		}); err != nil {
			r.logger.Warn("plugin OnInstrumentPaused failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitInstrumentResumed emits an instrument resumed event.
func (r *Registry) EmitInstrumentResumed(ctx context.Context, instID id.InstrumentID) {
	r.mu.RLock()
	plugins := r.onInstrumentResumed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInstrumentResumed(ctx, instID)
		}); err != nil {
			r.logger.Warn("plugin OnInstrumentResumed failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitResourceRegistered emits a resource registered event.
func (r *Registry) EmitResourceRegistered(ctx context.Context, res *registry.Resource) {
	r.mu.RLock()
	plugins := r.onResourceRegistered
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnResourceRegistered(ctx, res)
		}); err != nil {
			r.logger.Warn("plugin OnResourceRegistered failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitResourceUpdated emits a resource updated event.
func (r *Registry) EmitResourceUpdated(ctx context.Context, old, updated *registry.Resource) {
	r.mu.RLock()
	plugins := r.onResourceUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnResourceUpdated(ctx, old, updated)
		}); err != nil {
			r.logger.Warn("plugin OnResourceUpdated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitResourceDeactivated emits a resource deactivated event.
func (r *Registry) EmitResourceDeactivated(ctx context.Context, resID id.ResourceID) {
	r.mu.RLock()
	plugins := r.onResourceDeactivated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnResourceDeactivated(ctx, resID)
		}); err != nil {
			r.logger.Warn("plugin OnResourceDeactivated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitResourceReactivated emits a resource reactivated event.
func (r *Registry) EmitResourceReactivated(ctx context.Context, resID id.ResourceID) {
	r.mu.RLock()
	plugins := r.onResourceReactivated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnResourceReactivated(ctx, resID)
		}); err != nil {
			r.logger.Warn("plugin OnResourceReactivated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitDeposited emits a deposit event.
func (r *Registry) EmitDeposited(ctx context.Context, account string, amount types.Money) {
	r.mu.RLock()
	plugins := r.onDeposited
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDeposited(ctx, account, amount)
		}); err != nil {
			r.logger.Warn("plugin OnDeposited failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitWithdrawn emits a withdrawal event.
func (r *Registry) EmitWithdrawn(ctx context.Context, account string, amount types.Money) {
	r.mu.RLock()
	plugins := r.onWithdrawn
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnWithdrawn(ctx, account, amount)
		}); err != nil {
			r.logger.Warn("plugin OnWithdrawn failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitPaymentProcessed emits a payment processed event.
func (r *Registry) EmitPaymentProcessed(ctx context.Context, pay *payment.Payment) {
	r.mu.RLock()
	plugins := r.onPaymentProcessed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaymentProcessed(ctx, pay)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentProcessed failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitEmergencyWithdrawal emits an emergency withdrawal event.
func (r *Registry) EmitEmergencyWithdrawal(ctx context.Context, from, to, currency string, amount int64) {
	r.mu.RLock()
	plugins := r.onEmergencyWithdrawal
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnEmergencyWithdrawal(ctx, from, to, currency, amount)
		}); err != nil {
			r.logger.Warn("plugin OnEmergencyWithdrawal failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitPlatformChanged emits a platform parameters changed event.
func (r *Registry) EmitPlatformChanged(ctx context.Context, old, updated *payment.Platform) {
	r.mu.RLock()
	plugins := r.onPlatformChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPlatformChanged(ctx, old, updated)
		}); err != nil {
			r.logger.Warn("plugin OnPlatformChanged failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitCapabilityGranted emits a capability granted event.
func (r *Registry) EmitCapabilityGranted(ctx context.Context, account, cap string) {
	r.mu.RLock()
	plugins := r.onCapabilityGranted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCapabilityGranted(ctx, account, cap)
		}); err != nil {
			r.logger.Warn("plugin OnCapabilityGranted failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitCapabilityRevoked emits a capability revoked event.
func (r *Registry) EmitCapabilityRevoked(ctx context.Context, account, cap string) {
	r.mu.RLock()
	plugins := r.onCapabilityRevoked
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCapabilityRevoked(ctx, account, cap)
		}); err != nil {
			r.logger.Warn("plugin OnCapabilityRevoked failed", "plugin", p.Name(), "error", err)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the settlement pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
