// Package sqlite implements the Tollgate store on SQLite via the Grove
// ORM. It mirrors the postgres backend: multi-row Apply* operations run
// inside a single SQL transaction, with a guard clause on the row that
// carries the precondition, so any failure mid-sequence rolls the whole
// operation back. Suited to embedded and single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/tollgate"
	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/instrument"
	"github.com/xraph/tollgate/payment"
	"github.com/xraph/tollgate/registry"
	tollgatestore "github.com/xraph/tollgate/store"
)

// compile-time interface check
var _ tollgatestore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("tollgate/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("tollgate/sqlite: migration failed: %w", err)
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
	existing := new(instrumentModel)
	err := s.sdb.NewSelect(existing).
		Where("id = ?", inst.ID.String()).
		Scan(ctx)
	if err == nil {
		return tollgate.ErrAlreadyExists
	}
	if !isNoRows(err) {
		return err
	}

	m := toInstrumentModel(inst)
	_, err = s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetInstrument(ctx context.Context, instID id.InstrumentID) (*instrument.Instrument, error) {
	return getInstrument(ctx, s.sdb, instID)
}

func getInstrument(ctx context.Context, q sqliteQuerier, instID id.InstrumentID) (*instrument.Instrument, error) {
	m := new(instrumentModel)
	err := q.NewSelect(m).
		Where("id = ?", instID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tollgate.ErrInstrumentNotFound
		}
		return nil, err
	}
	return fromInstrumentModel(m)
}

func (s *Store) ListInstruments(ctx context.Context, opts instrument.ListOpts) ([]*instrument.Instrument, error) {
	var models []instrumentModel
	q := s.sdb.NewSelect(&models)
	if opts.Owner != "" {
		q = q.Where("owner = ?", opts.Owner)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	// TypeIDs are K-sortable, so id order is creation order.
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tollgate.ErrInstrumentNotFound
	}
	return nil
}

func (s *Store) HolderBalance(ctx context.Context, instID id.InstrumentID, holder string) (int64, error) {
	if _, err := s.GetInstrument(ctx, instID); err != nil {
		return 0, err
	}

	m := new(holdingModel)
	err := s.sdb.NewSelect(m).
		Where("holding_key = ?", holdingKey(instID.String(), holder)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, err
	}
	return m.Balance, nil
}

func (s *Store) ApplyMint(ctx context.Context, instID id.InstrumentID, to string, amount int64) error {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.NewUpdate((*instrumentModel)(nil)).
		Set("total_supply = total_supply + ?", amount).
		Set("updated_at = ?", now()).
		Where("id = ?", instID.String()).
		Where("total_supply + ? <= max_supply", amount).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := getInstrument(ctx, tx, instID); err != nil {
			return err
		}
		return tollgate.ErrSupplyExceeded
	}

	if err := creditHolding(ctx, tx, instID.String(), to, amount); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ApplyBurn(ctx context.Context, instID id.InstrumentID, from string, amount int64) error {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := debitHolding(ctx, tx, instID, from, amount); err != nil {
		return err
	}

	_, err = tx.NewUpdate((*instrumentModel)(nil)).
		Set("total_supply = total_supply - ?", amount).
		Set("updated_at = ?", now()).
		Where("id = ?", instID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ApplyEntitlementTransfer(ctx context.Context, instID id.InstrumentID, from, to string, amount int64) error {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := debitHolding(ctx, tx, instID, from, amount); err != nil {
		return err
	}
	if err := creditHolding(ctx, tx, instID.String(), to, amount); err != nil {
		return err
	}
	return tx.Commit()
}

// debitHolding conditionally debits a holder's balance. The balance
// guard in the WHERE clause is the precondition check.
func debitHolding(ctx context.Context, q sqliteQuerier, instID id.InstrumentID, holder string, amount int64) error {
	res, err := q.NewUpdate((*holdingModel)(nil)).
		Set("balance = balance - ?", amount).
		Where("holding_key = ?", holdingKey(instID.String(), holder)).
		Where("balance >= ?", amount).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := getInstrument(ctx, q, instID); err != nil {
			return err
		}
		return tollgate.ErrInsufficientUnits
	}
	return nil
}

func creditHolding(ctx context.Context, q sqliteQuerier, instID, holder string, amount int64) error {
	m := &holdingModel{
		HoldingKey:   holdingKey(instID, holder),
		InstrumentID: instID,
		Holder:       holder,
		Balance:      amount,
	}
	_, err := q.NewInsert(m).
		OnConflict("(holding_key) DO UPDATE").
		Set("balance = tollgate_holdings.balance + EXCLUDED.balance").
		Exec(ctx)
	return err
}

// ==================== Registry Store ====================

func (s *Store) CreateResource(ctx context.Context, r *registry.Resource) error {
	existing := new(resourceModel)
	err := s.sdb.NewSelect(existing).
		Where("id = ?", r.ID.String()).
		Scan(ctx)
	if err == nil {
		return tollgate.ErrResourceExists
	}
	if !isNoRows(err) {
		return err
	}

	m := toResourceModel(r)
	_, err = s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetResource(ctx context.Context, resID id.ResourceID) (*registry.Resource, error) {
	return getResource(ctx, s.sdb, resID)
}

func getResource(ctx context.Context, q sqliteQuerier, resID id.ResourceID) (*registry.Resource, error) {
	m := new(resourceModel)
	err := q.NewSelect(m).
		Where("id = ?", resID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tollgate.ErrResourceNotFound
		}
		return nil, err
	}
	return fromResourceModel(m)
}

func (s *Store) ListResources(ctx context.Context, opts registry.ListOpts) ([]*registry.Resource, error) {
	var models []resourceModel
	q := s.sdb.NewSelect(&models)

	if opts.Owner != "" {
		q = q.Where("owner = ?", opts.Owner)
	}
	if opts.Category != "" {
		q = q.Where("category = ?", opts.Category)
	}
	if opts.ActiveOnly {
		q = q.Where("active = 1")
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	query := "SELECT COUNT(*) FROM tollgate_resources WHERE 1=1"
	args := make([]any, 0, 2)
	if opts.Owner != "" {
		query += " AND owner = ?"
		args = append(args, opts.Owner)
	}
	if opts.Category != "" {
		query += " AND category = ?"
		args = append(args, opts.Category)
	}
	if opts.ActiveOnly {
		query += " AND active = 1"
	}

	var total int64
	if err := s.sdb.NewRaw(query, args...).Scan(ctx, &total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) UpdateResource(ctx context.Context, r *registry.Resource) error {
	m := toResourceModel(r)
	m.UpdatedAt = now()
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tollgate.ErrResourceNotFound
	}
	return nil
}

func (s *Store) RegistryStats(ctx context.Context) (*registry.Stats, error) {
	stats := new(registry.Stats)

	err := s.sdb.NewRaw(`SELECT COUNT(*) FROM tollgate_resources`).Scan(ctx, &stats.TotalResources)
	if err != nil {
		return nil, err
	}
	err = s.sdb.NewRaw(`SELECT COUNT(*) FROM tollgate_resources WHERE active = 1`).Scan(ctx, &stats.ActiveResources)
	if err != nil {
		return nil, err
	}
	err = s.sdb.NewRaw(`SELECT COALESCE(SUM(usage_count), 0) FROM tollgate_resources`).Scan(ctx, &stats.TotalUsage)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ==================== Payment Ledger Store ====================

func (s *Store) GetBalance(ctx context.Context, account, currency string) (int64, error) {
	return getBalance(ctx, s.sdb, account, currency)
}

func getBalance(ctx context.Context, q sqliteQuerier, account, currency string) (int64, error) {
	m := new(balanceModel)
	err := q.NewSelect(m).
		Where("balance_key = ?", balanceKey(account, currency)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, err
	}
	return m.Amount, nil
}

func (s *Store) AdjustBalance(ctx context.Context, account, currency string, delta int64) error {
	if delta >= 0 {
		return creditBalance(ctx, s.sdb, account, currency, delta)
	}
	return debitBalance(ctx, s.sdb, account, currency, -delta)
}

func (s *Store) SweepBalance(ctx context.Context, from, to, currency string) (int64, error) {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	amount, err := getBalance(ctx, tx, from, currency)
	if err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, tollgate.ErrNothingToWithdraw
	}

	if err := debitBalance(ctx, tx, from, currency, amount); err != nil {
		return 0, err
	}
	if err := creditBalance(ctx, tx, to, currency, amount); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return amount, nil
}

func creditBalance(ctx context.Context, q sqliteQuerier, account, currency string, amount int64) error {
	m := &balanceModel{
		BalanceKey: balanceKey(account, currency),
		Account:    account,
		Currency:   currency,
		Amount:     amount,
	}
	_, err := q.NewInsert(m).
		OnConflict("(balance_key) DO UPDATE").
		Set("amount = tollgate_balances.amount + EXCLUDED.amount").
		Exec(ctx)
	return err
}

// debitBalance conditionally debits an account. The amount guard in the
// WHERE clause rejects overdrafts without reading first.
func debitBalance(ctx context.Context, q sqliteQuerier, account, currency string, amount int64) error {
	res, err := q.NewUpdate((*balanceModel)(nil)).
		Set("amount = amount - ?", amount).
		Where("balance_key = ?", balanceKey(account, currency)).
		Where("amount >= ?", amount).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tollgate.ErrInsufficientBalance
	}
	return nil
}

func (s *Store) UpsertCurrency(ctx context.Context, c *payment.Currency) error {
	m := toCurrencyModel(c)
	_, err := s.sdb.NewInsert(m).
		OnConflict("(code) DO UPDATE").
		Set("symbol = EXCLUDED.symbol").
		Set("precision = EXCLUDED.precision").
		Set("min_amount = EXCLUDED.min_amount").
		Set("max_amount = EXCLUDED.max_amount").
		Set("active = EXCLUDED.active").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) GetCurrency(ctx context.Context, code string) (*payment.Currency, error) {
	m := new(currencyModel)
	err := s.sdb.NewSelect(m).
		Where("code = ?", code).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tollgate.ErrCurrencyNotFound
		}
		return nil, err
	}
	return fromCurrencyModel(m), nil
}

func (s *Store) ListCurrencies(ctx context.Context) ([]*payment.Currency, error) {
	var models []currencyModel
	err := s.sdb.NewSelect(&models).
		OrderExpr("code ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
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

	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := getResource(ctx, tx, p.ResourceID)
	if err != nil {
		return err
	}
	if !res.Active {
		return tollgate.ErrResourceInactive
	}
	if _, err := getPayment(ctx, tx, p.ID); err == nil {
		return tollgate.ErrAlreadyExists
	} else if !errors.Is(err, tollgate.ErrPaymentNotFound) {
		return err
	}

	if err := debitBalance(ctx, tx, p.Payer, currency, p.Amount.Amount); err != nil {
		return err
	}

	if err := creditBalance(ctx, tx, p.Payee, currency, p.Net.Amount); err != nil {
		return err
	}
	if p.Fee.Amount > 0 {
		if err := creditBalance(ctx, tx, set.FeeRecipient, currency, p.Fee.Amount); err != nil {
			return err
		}
	}

	if _, err := tx.NewInsert(toPaymentModel(p)).Exec(ctx); err != nil {
		return err
	}

	earnings := &earningsModel{
		EarningsKey: earningsKey(p.Payee, currency),
		Owner:       p.Payee,
		Currency:    currency,
		Total:       p.Net.Amount,
	}
	_, err = tx.NewInsert(earnings).
		OnConflict("(earnings_key) DO UPDATE").
		Set("total = tollgate_earnings.total + EXCLUDED.total").
		Exec(ctx)
	if err != nil {
		return err
	}

	volume := &volumeModel{
		Currency:     currency,
		PaymentCount: 1,
		Volume:       p.Amount.Amount,
	}
	_, err = tx.NewInsert(volume).
		OnConflict("(currency) DO UPDATE").
		Set("payment_count = tollgate_volume.payment_count + 1").
		Set("volume = tollgate_volume.volume + EXCLUDED.volume").
		Exec(ctx)
	if err != nil {
		return err
	}

	_, err = tx.NewUpdate((*resourceModel)(nil)).
		Set("usage_count = usage_count + 1").
		Set("usage_spend_amount = usage_spend_amount + ?", p.Amount.Amount).
		Set("updated_at = ?", now()).
		Where("id = ?", p.ResourceID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ApplyEntitlementPurchase(ctx context.Context, pur *payment.EntitlementPurchase) error {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := getInstrument(ctx, tx, pur.InstrumentID); err != nil {
		return err
	}

	if err := debitBalance(ctx, tx, pur.Buyer, payment.BaseCurrency, pur.Cost.Amount); err != nil {
		return err
	}

	res, err := tx.NewUpdate((*instrumentModel)(nil)).
		Set("total_supply = total_supply + ?", pur.Quantity).
		Set("updated_at = ?", now()).
		Where("id = ?", pur.InstrumentID.String()).
		Where("total_supply + ? <= max_supply", pur.Quantity).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Rollback returns the buyer's debit.
		return tollgate.ErrSupplyExceeded
	}

	if err := creditBalance(ctx, tx, pur.Owner, payment.BaseCurrency, pur.Cost.Amount); err != nil {
		return err
	}
	if err := creditHolding(ctx, tx, pur.InstrumentID.String(), pur.Buyer, pur.Quantity); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) GetPayment(ctx context.Context, payID id.PaymentID) (*payment.Payment, error) {
	return getPayment(ctx, s.sdb, payID)
}

func getPayment(ctx context.Context, q sqliteQuerier, payID id.PaymentID) (*payment.Payment, error) {
	m := new(paymentModel)
	err := q.NewSelect(m).
		Where("id = ?", payID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tollgate.ErrPaymentNotFound
		}
		return nil, err
	}
	return fromPaymentModel(m)
}

func (s *Store) PaymentsByPayer(ctx context.Context, payer string, opts payment.ListOpts) ([]*payment.Payment, error) {
	return s.listPayments(ctx, "payer", payer, opts)
}

func (s *Store) PaymentsByPayee(ctx context.Context, payee string, opts payment.ListOpts) ([]*payment.Payment, error) {
	return s.listPayments(ctx, "payee", payee, opts)
}

func (s *Store) listPayments(ctx context.Context, column, account string, opts payment.ListOpts) ([]*payment.Payment, error) {
	var models []paymentModel
	q := s.sdb.NewSelect(&models).
		Where(column+" = ?", account)
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	// Newest first; id order is creation order.
	q = q.OrderExpr("id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	err := s.sdb.NewSelect(&models).
		Where("owner = ?", owner).
		OrderExpr("currency ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
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
	if err := s.sdb.NewSelect(&models).Scan(ctx); err != nil {
		return nil, err
	}

	stats := &payment.Stats{VolumeByCurrency: make(map[string]int64, len(models))}
	for i := range models {
		stats.TotalPayments += models[i].PaymentCount
		stats.VolumeByCurrency[models[i].Currency] = models[i].Volume
	}
	return stats, nil
}

func (s *Store) GetPlatform(ctx context.Context) (*payment.Platform, error) {
	m := new(platformModel)
	err := s.sdb.NewSelect(m).
		Where("platform_key = ?", platformKey).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tollgate.ErrNotFound
		}
		return nil, err
	}
	return fromPlatformModel(m), nil
}

func (s *Store) SavePlatform(ctx context.Context, p *payment.Platform) error {
	m := toPlatformModel(p)
	_, err := s.sdb.NewInsert(m).
		OnConflict("(platform_key) DO UPDATE").
		Set("fee_bps = EXCLUDED.fee_bps").
		Set("fee_recipient = EXCLUDED.fee_recipient").
		Set("price_floor = EXCLUDED.price_floor").
		Set("paused = EXCLUDED.paused").
		Set("grants = EXCLUDED.grants").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

// ==================== Helpers ====================

// sqliteQuerier is the query builder surface shared by
// *sqlitedriver.SqliteDB and *sqlitedriver.SqliteTx. Helpers written
// against it run either on the pool or inside a transaction.
type sqliteQuerier interface {
	NewSelect(model ...any) *sqlitedriver.SelectQuery
	NewInsert(model any) *sqlitedriver.InsertQuery
	NewUpdate(model any) *sqlitedriver.UpdateQuery
	NewRaw(query string, args ...any) *sqlitedriver.RawQuery
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
