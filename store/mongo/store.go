// Package mongo implements the Tollgate store on MongoDB via the Grove
// ORM. Guarded preconditions (payer balance, holder balance, supply
// headroom) ride on single-document conditional updates, which MongoDB
// applies atomically, so a violated precondition aborts before anything
// else is written.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/tollgate"
	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/instrument"
	"github.com/xraph/tollgate/payment"
	"github.com/xraph/tollgate/registry"
	tollgatestore "github.com/xraph/tollgate/store"
)

// Collection name constants.
const (
	colInstruments = "tollgate_instruments"
	colHoldings    = "tollgate_holdings"
	colResources   = "tollgate_resources"
	colBalances    = "tollgate_balances"
	colCurrencies  = "tollgate_currencies"
	colPayments    = "tollgate_payments"
	colEarnings    = "tollgate_earnings"
	colVolume      = "tollgate_volume"
	colPlatform    = "tollgate_platform"
)

// compile-time interface check
var _ tollgatestore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all tollgate collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("tollgate/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Instrument Store ====================

func (s *Store) CreateInstrument(ctx context.Context, inst *instrument.Instrument) error {
	m := toInstrumentModel(inst)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tollgate.ErrAlreadyExists
		}
		return fmt.Errorf("tollgate/mongo: create instrument: %w", err)
	}
	return nil
}

func (s *Store) GetInstrument(ctx context.Context, instID id.InstrumentID) (*instrument.Instrument, error) {
	var m instrumentModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": instID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tollgate.ErrInstrumentNotFound
		}
		return nil, fmt.Errorf("tollgate/mongo: get instrument: %w", err)
	}
	return fromInstrumentModel(&m)
}

func (s *Store) ListInstruments(ctx context.Context, opts instrument.ListOpts) ([]*instrument.Instrument, error) {
	var models []instrumentModel

	filter := bson.M{}
	if opts.Owner != "" {
		filter["owner"] = opts.Owner
	}

	// TypeIDs are K-sortable, so _id order is creation order.
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tollgate/mongo: list instruments: %w", err)
	}

	result := make([]*instrument.Instrument, len(models))
	for i := range models {
		inst, err := fromInstrumentModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = inst
	}
	return result, nil
}

func (s *Store) UpdateInstrument(ctx context.Context, inst *instrument.Instrument) error {
	m := toInstrumentModel(inst)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tollgate/mongo: update instrument: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tollgate.ErrInstrumentNotFound
	}
	return nil
}

func (s *Store) HolderBalance(ctx context.Context, instID id.InstrumentID, holder string) (int64, error) {
	if _, err := s.GetInstrument(ctx, instID); err != nil {
		return 0, err
	}

	var m holdingModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": holdingKey(instID.String(), holder)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("tollgate/mongo: holder balance: %w", err)
	}
	return m.Balance, nil
}

func (s *Store) ApplyMint(ctx context.Context, instID id.InstrumentID, to string, amount int64) error {
	// $expr lets the headroom check and the increment ride one atomic
	// document update.
	res, err := s.mdb.Collection(colInstruments).UpdateOne(ctx,
		bson.M{
			"_id":   instID.String(),
			"$expr": bson.M{"$lte": bson.A{bson.M{"$add": bson.A{"$total_supply", amount}}, "$max_supply"}},
		},
		bson.M{
			"$inc": bson.M{"total_supply": amount},
			"$set": bson.M{"updated_at": now()},
		})
	if err != nil {
		return fmt.Errorf("tollgate/mongo: apply mint: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetInstrument(ctx, instID); err != nil {
			return err
		}
		return tollgate.ErrSupplyExceeded
	}

	return s.creditHolding(ctx, instID.String(), to, amount)
}

func (s *Store) ApplyBurn(ctx context.Context, instID id.InstrumentID, from string, amount int64) error {
	if err := s.debitHolding(ctx, instID, from, amount); err != nil {
		return err
	}

	_, err := s.mdb.Collection(colInstruments).UpdateOne(ctx,
		bson.M{"_id": instID.String()},
		bson.M{
			"$inc": bson.M{"total_supply": -amount},
			"$set": bson.M{"updated_at": now()},
		})
	if err != nil {
		return fmt.Errorf("tollgate/mongo: apply burn: %w", err)
	}
	return nil
}

func (s *Store) ApplyEntitlementTransfer(ctx context.Context, instID id.InstrumentID, from, to string, amount int64) error {
	if err := s.debitHolding(ctx, instID, from, amount); err != nil {
		return err
	}
	return s.creditHolding(ctx, instID.String(), to, amount)
}

// debitHolding conditionally debits a holder's balance. The balance
// guard in the filter is the precondition check.
func (s *Store) debitHolding(ctx context.Context, instID id.InstrumentID, holder string, amount int64) error {
	res, err := s.mdb.Collection(colHoldings).UpdateOne(ctx,
		bson.M{
			"_id":     holdingKey(instID.String(), holder),
			"balance": bson.M{"$gte": amount},
		},
		bson.M{"$inc": bson.M{"balance": -amount}})
	if err != nil {
		return fmt.Errorf("tollgate/mongo: debit holding: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetInstrument(ctx, instID); err != nil {
			return err
		}
		return tollgate.ErrInsufficientUnits
	}
	return nil
}

func (s *Store) creditHolding(ctx context.Context, instID, holder string, amount int64) error {
	_, err := s.mdb.Collection(colHoldings).UpdateOne(ctx,
		bson.M{"_id": holdingKey(instID, holder)},
		bson.M{
			"$inc":         bson.M{"balance": amount},
			"$setOnInsert": bson.M{"instrument_id": instID, "holder": holder},
		},
		options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("tollgate/mongo: credit holding: %w", err)
	}
	return nil
}

// ==================== Registry Store ====================

func (s *Store) CreateResource(ctx context.Context, r *registry.Resource) error {
	m := toResourceModel(r)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tollgate.ErrResourceExists
		}
		return fmt.Errorf("tollgate/mongo: create resource: %w", err)
	}
	return nil
}

func (s *Store) GetResource(ctx context.Context, resID id.ResourceID) (*registry.Resource, error) {
	var m resourceModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": resID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tollgate.ErrResourceNotFound
		}
		return nil, fmt.Errorf("tollgate/mongo: get resource: %w", err)
	}
	return fromResourceModel(&m)
}

func (s *Store) ListResources(ctx context.Context, opts registry.ListOpts) ([]*registry.Resource, error) {
	var models []resourceModel

	q := s.mdb.NewFind(&models).
		Filter(resourceFilter(opts)).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tollgate/mongo: list resources: %w", err)
	}

	result := make([]*registry.Resource, len(models))
	for i := range models {
		r, err := fromResourceModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

func (s *Store) CountResources(ctx context.Context, opts registry.ListOpts) (int64, error) {
	total, err := s.mdb.Collection(colResources).CountDocuments(ctx, resourceFilter(opts))
	if err != nil {
		return 0, fmt.Errorf("tollgate/mongo: count resources: %w", err)
	}
	return total, nil
}

func resourceFilter(opts registry.ListOpts) bson.M {
	filter := bson.M{}
	if opts.Owner != "" {
		filter["owner"] = opts.Owner
	}
	if opts.Category != "" {
		filter["category"] = opts.Category
	}
	if opts.ActiveOnly {
		filter["active"] = true
	}
	return filter
}

func (s *Store) UpdateResource(ctx context.Context, r *registry.Resource) error {
	m := toResourceModel(r)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tollgate/mongo: update resource: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tollgate.ErrResourceNotFound
	}
	return nil
}

func (s *Store) RegistryStats(ctx context.Context) (*registry.Stats, error) {
	stats := new(registry.Stats)

	total, err := s.mdb.Collection(colResources).CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("tollgate/mongo: registry stats: %w", err)
	}
	stats.TotalResources = total

	active, err := s.mdb.Collection(colResources).CountDocuments(ctx, bson.M{"active": true})
	if err != nil {
		return nil, fmt.Errorf("tollgate/mongo: registry stats: %w", err)
	}
	stats.ActiveResources = active

	pipeline := bson.A{
		bson.M{"$group": bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$usage_count"},
		}},
	}
	cursor, err := s.mdb.Collection(colResources).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("tollgate/mongo: registry stats: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("tollgate/mongo: registry stats decode: %w", err)
	}
	if len(results) > 0 {
		stats.TotalUsage = results[0].Total
	}
	return stats, nil
}

// ==================== Payment Ledger Store ====================

func (s *Store) GetBalance(ctx context.Context, account, currency string) (int64, error) {
	var m balanceModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": balanceKey(account, currency)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("tollgate/mongo: get balance: %w", err)
	}
	return m.Amount, nil
}

func (s *Store) AdjustBalance(ctx context.Context, account, currency string, delta int64) error {
	if delta >= 0 {
		return s.creditBalance(ctx, account, currency, delta)
	}
	return s.debitBalance(ctx, account, currency, -delta)
}

func (s *Store) SweepBalance(ctx context.Context, from, to, currency string) (int64, error) {
	amount, err := s.GetBalance(ctx, from, currency)
	if err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, tollgate.ErrNothingToWithdraw
	}

	if err := s.debitBalance(ctx, from, currency, amount); err != nil {
		return 0, err
	}
	if err := s.creditBalance(ctx, to, currency, amount); err != nil {
		return 0, err
	}
	return amount, nil
}

func (s *Store) creditBalance(ctx context.Context, account, currency string, amount int64) error {
	_, err := s.mdb.Collection(colBalances).UpdateOne(ctx,
		bson.M{"_id": balanceKey(account, currency)},
		bson.M{
			"$inc":         bson.M{"amount": amount},
			"$setOnInsert": bson.M{"account": account, "currency": currency},
		},
		options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("tollgate/mongo: credit balance: %w", err)
	}
	return nil
}

// debitBalance conditionally debits an account. The amount guard in the
// filter rejects overdrafts without reading first.
func (s *Store) debitBalance(ctx context.Context, account, currency string, amount int64) error {
	res, err := s.mdb.Collection(colBalances).UpdateOne(ctx,
		bson.M{
			"_id":    balanceKey(account, currency),
			"amount": bson.M{"$gte": amount},
		},
		bson.M{"$inc": bson.M{"amount": -amount}})
	if err != nil {
		return fmt.Errorf("tollgate/mongo: debit balance: %w", err)
	}
	if res.MatchedCount == 0 {
		return tollgate.ErrInsufficientBalance
	}
	return nil
}

func (s *Store) UpsertCurrency(ctx context.Context, c *payment.Currency) error {
	m := toCurrencyModel(c)
	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Code}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":        m.Code,
			"symbol":     m.Symbol,
			"precision":  m.Precision,
			"min_amount": m.MinAmount,
			"max_amount": m.MaxAmount,
			"active":     m.Active,
			"created_at": m.CreatedAt,
			"updated_at": m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tollgate/mongo: upsert currency: %w", err)
	}
	return nil
}

func (s *Store) GetCurrency(ctx context.Context, code string) (*payment.Currency, error) {
	var m currencyModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": code}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tollgate.ErrCurrencyNotFound
		}
		return nil, fmt.Errorf("tollgate/mongo: get currency: %w", err)
	}
	return fromCurrencyModel(&m), nil
}

func (s *Store) ListCurrencies(ctx context.Context) ([]*payment.Currency, error) {
	var models []currencyModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("tollgate/mongo: list currencies: %w", err)
	}

	result := make([]*payment.Currency, len(models))
	for i := range models {
		result[i] = fromCurrencyModel(&models[i])
	}
	return result, nil
}

func (s *Store) ApplySettlement(ctx context.Context, set *payment.Settlement) error {
	p := set.Payment
	currency := p.Amount.Currency

	res, err := s.GetResource(ctx, p.ResourceID)
	if err != nil {
		return err
	}
	if !res.Active {
		return tollgate.ErrResourceInactive
	}
	if _, err := s.GetPayment(ctx, p.ID); err == nil {
		return tollgate.ErrAlreadyExists
	} else if !errors.Is(err, tollgate.ErrPaymentNotFound) {
		return err
	}

	// The payer debit is the only step with a precondition; it runs
	// first so a violation aborts before anything is written. The
	// remaining writes are unconditional.
	if err := s.debitBalance(ctx, p.Payer, currency, p.Amount.Amount); err != nil {
		return err
	}

	if err := s.creditBalance(ctx, p.Payee, currency, p.Net.Amount); err != nil {
		return err
	}
	if p.Fee.Amount > 0 {
		if err := s.creditBalance(ctx, set.FeeRecipient, currency, p.Fee.Amount); err != nil {
			return err
		}
	}

	if _, err := s.mdb.NewInsert(toPaymentModel(p)).Exec(ctx); err != nil {
		return fmt.Errorf("tollgate/mongo: insert payment: %w", err)
	}

	_, err = s.mdb.Collection(colEarnings).UpdateOne(ctx,
		bson.M{"_id": earningsKey(p.Payee, currency)},
		bson.M{
			"$inc":         bson.M{"total": p.Net.Amount},
			"$setOnInsert": bson.M{"owner": p.Payee, "currency": currency},
		},
		options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("tollgate/mongo: record earnings: %w", err)
	}

	_, err = s.mdb.Collection(colVolume).UpdateOne(ctx,
		bson.M{"_id": currency},
		bson.M{"$inc": bson.M{"payment_count": 1, "volume": p.Amount.Amount}},
		options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("tollgate/mongo: record volume: %w", err)
	}

	_, err = s.mdb.Collection(colResources).UpdateOne(ctx,
		bson.M{"_id": p.ResourceID.String()},
		bson.M{
			"$inc": bson.M{"usage_count": 1, "usage_spend_amount": p.Amount.Amount},
			"$set": bson.M{"updated_at": now()},
		})
	if err != nil {
		return fmt.Errorf("tollgate/mongo: bump resource usage: %w", err)
	}
	return nil
}

func (s *Store) ApplyEntitlementPurchase(ctx context.Context, pur *payment.EntitlementPurchase) error {
	if _, err := s.GetInstrument(ctx, pur.InstrumentID); err != nil {
		return err
	}

	if err := s.debitBalance(ctx, pur.Buyer, payment.BaseCurrency, pur.Cost.Amount); err != nil {
		return err
	}

	res, err := s.mdb.Collection(colInstruments).UpdateOne(ctx,
		bson.M{
			"_id":   pur.InstrumentID.String(),
			"$expr": bson.M{"$lte": bson.A{bson.M{"$add": bson.A{"$total_supply", pur.Quantity}}, "$max_supply"}},
		},
		bson.M{
			"$inc": bson.M{"total_supply": pur.Quantity},
			"$set": bson.M{"updated_at": now()},
		})
	if err != nil {
		return fmt.Errorf("tollgate/mongo: purchase supply bump: %w", err)
	}
	if res.MatchedCount == 0 {
		// Refund the debit taken above before reporting the cap hit.
		if err := s.creditBalance(ctx, pur.Buyer, payment.BaseCurrency, pur.Cost.Amount); err != nil {
			return err
		}
		return tollgate.ErrSupplyExceeded
	}

	if err := s.creditBalance(ctx, pur.Owner, payment.BaseCurrency, pur.Cost.Amount); err != nil {
		return err
	}
	return s.creditHolding(ctx, pur.InstrumentID.String(), pur.Buyer, pur.Quantity)
}

func (s *Store) GetPayment(ctx context.Context, payID id.PaymentID) (*payment.Payment, error) {
	var m paymentModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": payID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tollgate.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("tollgate/mongo: get payment: %w", err)
	}
	return fromPaymentModel(&m)
}

func (s *Store) PaymentsByPayer(ctx context.Context, payer string, opts payment.ListOpts) ([]*payment.Payment, error) {
	return s.listPayments(ctx, "payer", payer, opts)
}

func (s *Store) PaymentsByPayee(ctx context.Context, payee string, opts payment.ListOpts) ([]*payment.Payment, error) {
	return s.listPayments(ctx, "payee", payee, opts)
}

func (s *Store) listPayments(ctx context.Context, field, account string, opts payment.ListOpts) ([]*payment.Payment, error) {
	var models []paymentModel

	// Newest first; _id order is creation order.
	q := s.mdb.NewFind(&models).
		Filter(bson.M{field: account}).
		Sort(bson.D{{Key: "_id", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tollgate/mongo: list payments: %w", err)
	}

	result := make([]*payment.Payment, len(models))
	for i := range models {
		p, err := fromPaymentModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

func (s *Store) OwnerEarnings(ctx context.Context, owner string) ([]*payment.Earnings, error) {
	var models []earningsModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"owner": owner}).
		Sort(bson.D{{Key: "currency", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("tollgate/mongo: owner earnings: %w", err)
	}

	result := make([]*payment.Earnings, len(models))
	for i := range models {
		result[i] = &payment.Earnings{
			Owner:    models[i].Owner,
			Currency: models[i].Currency,
			Total:    models[i].Total,
		}
	}
	return result, nil
}

func (s *Store) LedgerStats(ctx context.Context) (*payment.Stats, error) {
	var models []volumeModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("tollgate/mongo: ledger stats: %w", err)
	}

	stats := &payment.Stats{VolumeByCurrency: make(map[string]int64, len(models))}
	for i := range models {
		stats.TotalPayments += models[i].PaymentCount
		stats.VolumeByCurrency[models[i].Currency] = models[i].Volume
	}
	return stats, nil
}

func (s *Store) GetPlatform(ctx context.Context) (*payment.Platform, error) {
	var m platformModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": platformKey}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tollgate.ErrNotFound
		}
		return nil, fmt.Errorf("tollgate/mongo: get platform: %w", err)
	}
	return fromPlatformModel(&m), nil
}

func (s *Store) SavePlatform(ctx context.Context, p *payment.Platform) error {
	m := toPlatformModel(p)
	_, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": platformKey}).
		SetUpdate(bson.M{"$set": bson.M{
			"_id":           platformKey,
			"fee_bps":       m.FeeBps,
			"fee_recipient": m.FeeRecipient,
			"price_floor":   m.PriceFloor,
			"paused":        m.Paused,
			"grants":        m.Grants,
			"created_at":    m.CreatedAt,
			"updated_at":    m.UpdatedAt,
		}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tollgate/mongo: save platform: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all tollgate collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colInstruments: {
			{Keys: bson.D{{Key: "owner", Value: 1}}},
		},
		colHoldings: {
			{Keys: bson.D{{Key: "instrument_id", Value: 1}}},
			{Keys: bson.D{{Key: "holder", Value: 1}}},
		},
		colResources: {
			{Keys: bson.D{{Key: "owner", Value: 1}}},
			{Keys: bson.D{{Key: "category", Value: 1}}},
			{Keys: bson.D{{Key: "active", Value: 1}}},
			{Keys: bson.D{{Key: "instrument_id", Value: 1}}},
		},
		colBalances: {
			{Keys: bson.D{{Key: "account", Value: 1}}},
		},
		colPayments: {
			{Keys: bson.D{{Key: "payer", Value: 1}, {Key: "_id", Value: -1}}},
			{Keys: bson.D{{Key: "payee", Value: 1}, {Key: "_id", Value: -1}}},
			{Keys: bson.D{{Key: "resource_id", Value: 1}}},
		},
		colEarnings: {
			{Keys: bson.D{{Key: "owner", Value: 1}}},
		},
	}
}
