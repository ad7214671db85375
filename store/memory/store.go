// Package memory provides the in-memory reference implementation of the
// Tollgate store. A single RWMutex serializes every mutation, so each
// Apply* call is one all-or-nothing transaction; read-only queries run
// concurrently and never observe a partially-applied mutation.
package memory

import (
	"context"
	"sync"

	"github.com/xraph/tollgate"
	"github.com/xraph/tollgate/capability"
	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/instrument"
	"github.com/xraph/tollgate/payment"
	"github.com/xraph/tollgate/registry"
	"github.com/xraph/tollgate/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// Instrument storage
	instruments map[string]*instrument.Instrument
	holdings    map[string]map[string]int64 // instrument -> holder -> balance

	// Resource storage with explicit secondary indexes. The indexes hold
	// id references only and are maintained alongside every mutation —
	// they are primary state, not derived views.
	resources     map[string]*registry.Resource
	resourceOrder []string            // registration order, for pagination
	byOwner       map[string][]string // owner -> resource ids
	byCategory    map[string][]string // category -> resource ids

	// Ledger storage
	balances   map[string]map[string]int64 // account -> currency -> amount
	currencies map[string]*payment.Currency
	payments   map[string]*payment.Payment
	byPayer    map[string][]string // payer -> payment ids, append order
	byPayee    map[string][]string // payee -> payment ids, append order
	earnings   map[string]map[string]int64
	stats      payment.Stats
	platform   *payment.Platform
}

func New() *Store {
	return &Store{
		instruments: make(map[string]*instrument.Instrument),
		holdings:    make(map[string]map[string]int64),
		resources:   make(map[string]*registry.Resource),
		byOwner:     make(map[string][]string),
		byCategory:  make(map[string][]string),
		balances:    make(map[string]map[string]int64),
		currencies:  make(map[string]*payment.Currency),
		payments:    make(map[string]*payment.Payment),
		byPayer:     make(map[string][]string),
		byPayee:     make(map[string][]string),
		earnings:    make(map[string]map[string]int64),
		stats:       payment.Stats{VolumeByCurrency: make(map[string]int64)},
	}
}

// ==================== Instrument Store ====================

func (s *Store) CreateInstrument(_ context.Context, inst *instrument.Instrument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := inst.ID.String()
	if _, exists := s.instruments[key]; exists {
		return tollgate.ErrAlreadyExists
	}
	s.instruments[key] = cloneInstrument(inst)
	return nil
}

func (s *Store) GetInstrument(_ context.Context, instID id.InstrumentID) (*instrument.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if inst, ok := s.instruments[instID.String()]; ok {
		return cloneInstrument(inst), nil
	}
	return nil, tollgate.ErrInstrumentNotFound
}

func (s *Store) ListInstruments(_ context.Context, opts instrument.ListOpts) ([]*instrument.Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*instrument.Instrument, 0)
	for _, inst := range s.instruments {
		if opts.Owner == "" || inst.Owner == opts.Owner {
			result = append(result, cloneInstrument(inst))
		}
	}
	return window(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdateInstrument(_ context.Context, inst *instrument.Instrument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := inst.ID.String()
	if _, exists := s.instruments[key]; !exists {
		return tollgate.ErrInstrumentNotFound
	}
	s.instruments[key] = cloneInstrument(inst)
	return nil
}

func (s *Store) HolderBalance(_ context.Context, instID id.InstrumentID, holder string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.instruments[instID.String()]; !ok {
		return 0, tollgate.ErrInstrumentNotFound
	}
	return s.holdings[instID.String()][holder], nil
}

func (s *Store) ApplyMint(_ context.Context, instID id.InstrumentID, to string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instruments[instID.String()]
	if !ok {
		return tollgate.ErrInstrumentNotFound
	}
	if !inst.CanMint(amount) {
		return tollgate.ErrSupplyExceeded
	}

	inst.TotalSupply += amount
	inst.Touch()
	s.creditHolding(instID.String(), to, amount)
	return nil
}

func (s *Store) ApplyBurn(_ context.Context, instID id.InstrumentID, from string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instruments[instID.String()]
	if !ok {
		return tollgate.ErrInstrumentNotFound
	}
	if s.holdings[instID.String()][from] < amount {
		return tollgate.ErrInsufficientUnits
	}

	inst.TotalSupply -= amount
	inst.Touch()
	s.holdings[instID.String()][from] -= amount
	return nil
}

func (s *Store) ApplyEntitlementTransfer(_ context.Context, instID id.InstrumentID, from, to string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.instruments[instID.String()]; !ok {
		return tollgate.ErrInstrumentNotFound
	}
	if s.holdings[instID.String()][from] < amount {
		return tollgate.ErrInsufficientUnits
	}

	s.holdings[instID.String()][from] -= amount
	s.creditHolding(instID.String(), to, amount)
	return nil
}

func (s *Store) creditHolding(instKey, holder string, amount int64) {
	if s.holdings[instKey] == nil {
		s.holdings[instKey] = make(map[string]int64)
	}
	s.holdings[instKey][holder] += amount
}

// ==================== Registry Store ====================

func (s *Store) CreateResource(_ context.Context, r *registry.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := r.ID.String()
	if _, exists := s.resources[key]; exists {
		return tollgate.ErrResourceExists
	}

	s.resources[key] = cloneResource(r)
	s.resourceOrder = append(s.resourceOrder, key)
	s.byOwner[r.Owner] = append(s.byOwner[r.Owner], key)
	if r.Category != "" {
		s.byCategory[r.Category] = append(s.byCategory[r.Category], key)
	}
	return nil
}

func (s *Store) GetResource(_ context.Context, resID id.ResourceID) (*registry.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.resources[resID.String()]; ok {
		return cloneResource(r), nil
	}
	return nil, tollgate.ErrResourceNotFound
}

func (s *Store) ListResources(_ context.Context, opts registry.ListOpts) ([]*registry.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*registry.Resource, 0)
	for _, key := range s.matchingResourceKeys(opts) {
		result = append(result, cloneResource(s.resources[key]))
	}
	return window(result, opts.Offset, opts.Limit), nil
}

func (s *Store) CountResources(_ context.Context, opts registry.ListOpts) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.matchingResourceKeys(opts))), nil
}

// matchingResourceKeys walks the narrowest applicable index in
// registration order. Callers must hold at least the read lock.
func (s *Store) matchingResourceKeys(opts registry.ListOpts) []string {
	source := s.resourceOrder
	switch {
	case opts.Owner != "":
		source = s.byOwner[opts.Owner]
	case opts.Category != "":
		source = s.byCategory[opts.Category]
	}

	keys := make([]string, 0, len(source))
	for _, key := range source {
		r := s.resources[key]
		if opts.Owner != "" && r.Owner != opts.Owner {
			continue
		}
		if opts.Category != "" && r.Category != opts.Category {
			continue
		}
		if opts.ActiveOnly && !r.Active {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

func (s *Store) UpdateResource(_ context.Context, r *registry.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := r.ID.String()
	old, exists := s.resources[key]
	if !exists {
		return tollgate.ErrResourceNotFound
	}

	// Category reassignment keeps the index exact.
	if old.Category != r.Category {
		s.byCategory[old.Category] = removeKey(s.byCategory[old.Category], key)
		if r.Category != "" {
			s.byCategory[r.Category] = append(s.byCategory[r.Category], key)
		}
	}

	s.resources[key] = cloneResource(r)
	return nil
}

func (s *Store) RegistryStats(_ context.Context) (*registry.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &registry.Stats{TotalResources: int64(len(s.resources))}
	for _, r := range s.resources {
		if r.Active {
			stats.ActiveResources++
		}
		stats.TotalUsage += r.UsageCount
	}
	return stats, nil
}

// ==================== Payment Ledger Store ====================

func (s *Store) GetBalance(_ context.Context, account, currency string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balances[account][currency], nil
}

func (s *Store) AdjustBalance(_ context.Context, account, currency string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.balances[account][currency]+delta < 0 {
		return tollgate.ErrInsufficientBalance
	}
	s.creditBalance(account, currency, delta)
	return nil
}

func (s *Store) SweepBalance(_ context.Context, from, to, currency string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	amount := s.balances[from][currency]
	if amount == 0 {
		return 0, tollgate.ErrNothingToWithdraw
	}
	s.balances[from][currency] = 0
	s.creditBalance(to, currency, amount)
	return amount, nil
}

func (s *Store) creditBalance(account, currency string, delta int64) {
	if s.balances[account] == nil {
		s.balances[account] = make(map[string]int64)
	}
	s.balances[account][currency] += delta
}

func (s *Store) UpsertCurrency(_ context.Context, c *payment.Currency) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clone := *c
	s.currencies[c.Code] = &clone
	return nil
}

func (s *Store) GetCurrency(_ context.Context, code string) (*payment.Currency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.currencies[code]; ok {
		clone := *c
		return &clone, nil
	}
	return nil, tollgate.ErrCurrencyNotFound
}

func (s *Store) ListCurrencies(_ context.Context) ([]*payment.Currency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*payment.Currency, 0, len(s.currencies))
	for _, c := range s.currencies {
		clone := *c
		result = append(result, &clone)
	}
	return result, nil
}

func (s *Store) ApplySettlement(_ context.Context, set *payment.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := set.Payment
	currency := p.Amount.Currency

	res, ok := s.resources[p.ResourceID.String()]
	if !ok {
		return tollgate.ErrResourceNotFound
	}
	if !res.Active {
		return tollgate.ErrResourceInactive
	}
	if s.balances[p.Payer][currency] < p.Amount.Amount {
		return tollgate.ErrInsufficientBalance
	}
	if _, exists := s.payments[p.ID.String()]; exists {
		return tollgate.ErrAlreadyExists
	}

	// All preconditions hold; apply every effect. Nothing below can fail.
	s.balances[p.Payer][currency] -= p.Amount.Amount
	s.creditBalance(p.Payee, currency, p.Net.Amount)
	if p.Fee.Amount > 0 {
		s.creditBalance(set.FeeRecipient, currency, p.Fee.Amount)
	}

	key := p.ID.String()
	s.payments[key] = clonePayment(p)
	s.byPayer[p.Payer] = append(s.byPayer[p.Payer], key)
	s.byPayee[p.Payee] = append(s.byPayee[p.Payee], key)

	if s.earnings[p.Payee] == nil {
		s.earnings[p.Payee] = make(map[string]int64)
	}
	s.earnings[p.Payee][currency] += p.Net.Amount

	s.stats.TotalPayments++
	s.stats.VolumeByCurrency[currency] += p.Amount.Amount

	res.UsageCount++
	res.UsageSpend = res.UsageSpend.Add(p.Amount)
	res.Touch()
	return nil
}

func (s *Store) ApplyEntitlementPurchase(_ context.Context, pur *payment.EntitlementPurchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inst, ok := s.instruments[pur.InstrumentID.String()]
	if !ok {
		return tollgate.ErrInstrumentNotFound
	}
	if !inst.CanMint(pur.Quantity) {
		return tollgate.ErrSupplyExceeded
	}
	if s.balances[pur.Buyer][payment.BaseCurrency] < pur.Cost.Amount {
		return tollgate.ErrInsufficientBalance
	}

	s.balances[pur.Buyer][payment.BaseCurrency] -= pur.Cost.Amount
	s.creditBalance(pur.Owner, payment.BaseCurrency, pur.Cost.Amount)

	inst.TotalSupply += pur.Quantity
	inst.Touch()
	s.creditHolding(pur.InstrumentID.String(), pur.Buyer, pur.Quantity)
	return nil
}

func (s *Store) GetPayment(_ context.Context, payID id.PaymentID) (*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.payments[payID.String()]; ok {
		return clonePayment(p), nil
	}
	return nil, tollgate.ErrPaymentNotFound
}

func (s *Store) PaymentsByPayer(_ context.Context, payer string, opts payment.ListOpts) ([]*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.paymentsFromIndex(s.byPayer[payer], opts), nil
}

func (s *Store) PaymentsByPayee(_ context.Context, payee string, opts payment.ListOpts) ([]*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.paymentsFromIndex(s.byPayee[payee], opts), nil
}

// paymentsFromIndex resolves id references newest-first. Callers must hold
// at least the read lock.
func (s *Store) paymentsFromIndex(keys []string, opts payment.ListOpts) []*payment.Payment {
	result := make([]*payment.Payment, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		result = append(result, clonePayment(s.payments[keys[i]]))
	}
	return window(result, opts.Offset, opts.Limit)
}

func (s *Store) OwnerEarnings(_ context.Context, owner string) ([]*payment.Earnings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*payment.Earnings, 0, len(s.earnings[owner]))
	for currency, total := range s.earnings[owner] {
		result = append(result, &payment.Earnings{Owner: owner, Currency: currency, Total: total})
	}
	return result, nil
}

func (s *Store) LedgerStats(_ context.Context) (*payment.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &payment.Stats{
		TotalPayments:    s.stats.TotalPayments,
		VolumeByCurrency: make(map[string]int64, len(s.stats.VolumeByCurrency)),
	}
	for currency, volume := range s.stats.VolumeByCurrency {
		stats.VolumeByCurrency[currency] = volume
	}
	return stats, nil
}

func (s *Store) GetPlatform(_ context.Context) (*payment.Platform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.platform == nil {
		return nil, tollgate.ErrNotFound
	}
	return clonePlatform(s.platform), nil
}

func (s *Store) SavePlatform(_ context.Context, p *payment.Platform) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.platform = clonePlatform(p)
	return nil
}

// ==================== Core ====================

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// ==================== Helpers ====================

// window applies offset/limit clamping. Offset validation (failing when
// offset >= total) is the engine's job; the store just clamps.
func window[T any](items []T, offset, limit int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit == 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func removeKey(keys []string, key string) []string {
	for i, k := range keys {
		if k == key {
			return append(keys[:i], keys[i+1:]...)
		}
	}
	return keys
}

func cloneInstrument(inst *instrument.Instrument) *instrument.Instrument {
	clone := *inst
	clone.Minters = append([]string(nil), inst.Minters...)
	clone.Admins = append([]string(nil), inst.Admins...)
	clone.Pausers = append([]string(nil), inst.Pausers...)
	clone.Metadata = cloneStringMap(inst.Metadata)
	return &clone
}

func cloneResource(r *registry.Resource) *registry.Resource {
	clone := *r
	clone.Tags = append([]string(nil), r.Tags...)
	return &clone
}

func clonePayment(p *payment.Payment) *payment.Payment {
	clone := *p
	return &clone
}

func clonePlatform(p *payment.Platform) *payment.Platform {
	clone := *p
	if p.Grants != nil {
		clone.Grants = p.Grants.Clone()
	} else {
		clone.Grants = make(capability.Grants)
	}
	return &clone
}

func cloneStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
