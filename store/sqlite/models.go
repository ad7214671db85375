package sqlite

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/tollgate/capability"
	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/instrument"
	"github.com/xraph/tollgate/payment"
	"github.com/xraph/tollgate/registry"
	"github.com/xraph/tollgate/types"
)

// SQLite has no native JSON column type, so list and map fields are
// stored as serialized TEXT.

// ==================== Instrument models ====================

type instrumentModel struct {
	grove.BaseModel `grove:"table:tollgate_instruments"`

	ID                string          `grove:"id,pk"`
	Owner             string          `grove:"owner"`
	Name              string          `grove:"name"`
	Symbol            string          `grove:"symbol"`
	TotalSupply       int64           `grove:"total_supply"`
	MaxSupply         int64           `grove:"max_supply"`
	AccessThreshold   int64           `grove:"access_threshold"`
	PremiumThreshold  int64           `grove:"premium_threshold"`
	UnitPriceAmount   int64           `grove:"unit_price_amount"`
	UnitPriceCurrency string          `grove:"unit_price_currency"`
	PublicIssuance    bool            `grove:"public_issuance"`
	Paused            bool            `grove:"paused"`
	Minters           json.RawMessage `grove:"minters"`
	Admins            json.RawMessage `grove:"admins"`
	Pausers           json.RawMessage `grove:"pausers"`
	Metadata          json.RawMessage `grove:"metadata"`
	CreatedAt         time.Time       `grove:"created_at"`
	UpdatedAt         time.Time       `grove:"updated_at"`
}

func toInstrumentModel(inst *instrument.Instrument) *instrumentModel {
	minters, _ := json.Marshal(inst.Minters)   //nolint:errcheck // best-effort
	admins, _ := json.Marshal(inst.Admins)     //nolint:errcheck // best-effort
	pausers, _ := json.Marshal(inst.Pausers)   //nolint:errcheck // best-effort
	metadata, _ := json.Marshal(inst.Metadata) //nolint:errcheck // best-effort

	return &instrumentModel{
		ID:                inst.ID.String(),
		Owner:             inst.Owner,
		Name:              inst.Name,
		Symbol:            inst.Symbol,
		TotalSupply:       inst.TotalSupply,
		MaxSupply:         inst.MaxSupply,
		AccessThreshold:   inst.AccessThreshold,
		PremiumThreshold:  inst.PremiumThreshold,
		UnitPriceAmount:   inst.UnitPrice.Amount,
		UnitPriceCurrency: inst.UnitPrice.Currency,
		PublicIssuance:    inst.PublicIssuance,
		Paused:            inst.Paused,
		Minters:           minters,
		Admins:            admins,
		Pausers:           pausers,
		Metadata:          metadata,
		CreatedAt:         inst.CreatedAt,
		UpdatedAt:         inst.UpdatedAt,
	}
}

func fromInstrumentModel(m *instrumentModel) (*instrument.Instrument, error) {
	instID, err := id.ParseInstrumentID(m.ID)
	if err != nil {
		return nil, err
	}

	var minters, admins, pausers []string
	var metadata map[string]string
	if len(m.Minters) > 0 {
		_ = json.Unmarshal(m.Minters, &minters) //nolint:errcheck // best-effort
	}
	if len(m.Admins) > 0 {
		_ = json.Unmarshal(m.Admins, &admins) //nolint:errcheck // best-effort
	}
	if len(m.Pausers) > 0 {
		_ = json.Unmarshal(m.Pausers, &pausers) //nolint:errcheck // best-effort
	}
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &metadata) //nolint:errcheck // best-effort
	}

	return &instrument.Instrument{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:               instID,
		Owner:            m.Owner,
		Name:             m.Name,
		Symbol:           m.Symbol,
		TotalSupply:      m.TotalSupply,
		MaxSupply:        m.MaxSupply,
		AccessThreshold:  m.AccessThreshold,
		PremiumThreshold: m.PremiumThreshold,
		UnitPrice:        types.Money{Amount: m.UnitPriceAmount, Currency: m.UnitPriceCurrency},
		PublicIssuance:   m.PublicIssuance,
		Paused:           m.Paused,
		Minters:          minters,
		Admins:           admins,
		Pausers:          pausers,
		Metadata:         metadata,
	}, nil
}

type holdingModel struct {
	grove.BaseModel `grove:"table:tollgate_holdings"`

	HoldingKey   string `grove:"holding_key,pk"`
	InstrumentID string `grove:"instrument_id"`
	Holder       string `grove:"holder"`
	Balance      int64  `grove:"balance"`
}

func holdingKey(instID, holder string) string {
	return instID + ":" + holder
}

// ==================== Resource models ====================

type resourceModel struct {
	grove.BaseModel `grove:"table:tollgate_resources"`

	ID                  string          `grove:"id,pk"`
	ContentRef          string          `grove:"content_ref"`
	InstrumentID        string          `grove:"instrument_id"`
	Owner               string          `grove:"owner"`
	PriceAmount         int64           `grove:"price_amount"`
	PriceCurrency       string          `grove:"price_currency"`
	Category            string          `grove:"category"`
	Tags                json.RawMessage `grove:"tags"`
	Version             string          `grove:"version"`
	MinBalanceForAccess int64           `grove:"min_balance_for_access"`
	Active              bool            `grove:"active"`
	UsageCount          int64           `grove:"usage_count"`
	UsageSpendAmount    int64           `grove:"usage_spend_amount"`
	UsageSpendCurrency  string          `grove:"usage_spend_currency"`
	CreatedAt           time.Time       `grove:"created_at"`
	UpdatedAt           time.Time       `grove:"updated_at"`
}

func toResourceModel(r *registry.Resource) *resourceModel {
	tags, _ := json.Marshal(r.Tags) //nolint:errcheck // best-effort

	return &resourceModel{
		ID:                  r.ID.String(),
		ContentRef:          r.ContentRef,
		InstrumentID:        r.InstrumentID.String(),
		Owner:               r.Owner,
		PriceAmount:         r.PricePerUse.Amount,
		PriceCurrency:       r.PricePerUse.Currency,
		Category:            r.Category,
		Tags:                tags,
		Version:             r.Version,
		MinBalanceForAccess: r.MinBalanceForAccess,
		Active:              r.Active,
		UsageCount:          r.UsageCount,
		UsageSpendAmount:    r.UsageSpend.Amount,
		UsageSpendCurrency:  r.UsageSpend.Currency,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

func fromResourceModel(m *resourceModel) (*registry.Resource, error) {
	resID, err := id.ParseResourceID(m.ID)
	if err != nil {
		return nil, err
	}
	instID, err := id.ParseInstrumentID(m.InstrumentID)
	if err != nil {
		return nil, err
	}

	var tags []string
	if len(m.Tags) > 0 {
		_ = json.Unmarshal(m.Tags, &tags) //nolint:errcheck // best-effort
	}

	return &registry.Resource{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                  resID,
		ContentRef:          m.ContentRef,
		InstrumentID:        instID,
		Owner:               m.Owner,
		PricePerUse:         types.Money{Amount: m.PriceAmount, Currency: m.PriceCurrency},
		Category:            m.Category,
		Tags:                tags,
		Version:             m.Version,
		MinBalanceForAccess: m.MinBalanceForAccess,
		Active:              m.Active,
		UsageCount:          m.UsageCount,
		UsageSpend:          types.Money{Amount: m.UsageSpendAmount, Currency: m.UsageSpendCurrency},
	}, nil
}

// ==================== Ledger models ====================

type balanceModel struct {
	grove.BaseModel `grove:"table:tollgate_balances"`

	BalanceKey string `grove:"balance_key,pk"`
	Account    string `grove:"account"`
	Currency   string `grove:"currency"`
	Amount     int64  `grove:"amount"`
}

func balanceKey(account, currency string) string {
	return account + ":" + currency
}

type currencyModel struct {
	grove.BaseModel `grove:"table:tollgate_currencies"`

	Code      string    `grove:"code,pk"`
	Symbol    string    `grove:"symbol"`
	Precision int       `grove:"precision"`
	MinAmount int64     `grove:"min_amount"`
	MaxAmount int64     `grove:"max_amount"`
	Active    bool      `grove:"active"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toCurrencyModel(c *payment.Currency) *currencyModel {
	return &currencyModel{
		Code:      c.Code,
		Symbol:    c.Symbol,
		Precision: c.Precision,
		MinAmount: c.MinAmount,
		MaxAmount: c.MaxAmount,
		Active:    c.Active,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func fromCurrencyModel(m *currencyModel) *payment.Currency {
	return &payment.Currency{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Code:      m.Code,
		Symbol:    m.Symbol,
		Precision: m.Precision,
		MinAmount: m.MinAmount,
		MaxAmount: m.MaxAmount,
		Active:    m.Active,
	}
}

type paymentModel struct {
	grove.BaseModel `grove:"table:tollgate_payments"`

	ID         string    `grove:"id,pk"`
	ResourceID string    `grove:"resource_id"`
	Payer      string    `grove:"payer"`
	Payee      string    `grove:"payee"`
	Amount     int64     `grove:"amount"`
	Fee        int64     `grove:"fee"`
	Net        int64     `grove:"net"`
	Currency   string    `grove:"currency"`
	UsageRef   string    `grove:"usage_ref"`
	Processed  bool      `grove:"processed"`
	CreatedAt  time.Time `grove:"created_at"`
	UpdatedAt  time.Time `grove:"updated_at"`
}

func toPaymentModel(p *payment.Payment) *paymentModel {
	return &paymentModel{
		ID:         p.ID.String(),
		ResourceID: p.ResourceID.String(),
		Payer:      p.Payer,
		Payee:      p.Payee,
		Amount:     p.Amount.Amount,
		Fee:        p.Fee.Amount,
		Net:        p.Net.Amount,
		Currency:   p.Amount.Currency,
		UsageRef:   p.UsageRef,
		Processed:  p.Processed,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func fromPaymentModel(m *paymentModel) (*payment.Payment, error) {
	payID, err := id.ParsePaymentID(m.ID)
	if err != nil {
		return nil, err
	}
	resID, err := id.ParseResourceID(m.ResourceID)
	if err != nil {
		return nil, err
	}

	return &payment.Payment{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:         payID,
		ResourceID: resID,
		Payer:      m.Payer,
		Payee:      m.Payee,
		Amount:     types.Money{Amount: m.Amount, Currency: m.Currency},
		Fee:        types.Money{Amount: m.Fee, Currency: m.Currency},
		Net:        types.Money{Amount: m.Net, Currency: m.Currency},
		UsageRef:   m.UsageRef,
		Processed:  m.Processed,
	}, nil
}

type earningsModel struct {
	grove.BaseModel `grove:"table:tollgate_earnings"`

	EarningsKey string `grove:"earnings_key,pk"`
	Owner       string `grove:"owner"`
	Currency    string `grove:"currency"`
	Total       int64  `grove:"total"`
}

func earningsKey(owner, currency string) string {
	return owner + ":" + currency
}

type volumeModel struct {
	grove.BaseModel `grove:"table:tollgate_volume"`

	Currency     string `grove:"currency,pk"`
	PaymentCount int64  `grove:"payment_count"`
	Volume       int64  `grove:"volume"`
}

// platformKey is the fixed primary key of the singleton platform row.
const platformKey = "platform"

type platformModel struct {
	grove.BaseModel `grove:"table:tollgate_platform"`

	PlatformKey  string          `grove:"platform_key,pk"`
	FeeBps       int             `grove:"fee_bps"`
	FeeRecipient string          `grove:"fee_recipient"`
	PriceFloor   int64           `grove:"price_floor"`
	Paused       bool            `grove:"paused"`
	Grants       json.RawMessage `grove:"grants"`
	CreatedAt    time.Time       `grove:"created_at"`
	UpdatedAt    time.Time       `grove:"updated_at"`
}

func toPlatformModel(p *payment.Platform) *platformModel {
	return &platformModel{
		PlatformKey:  platformKey,
		FeeBps:       p.FeeBps,
		FeeRecipient: p.FeeRecipient,
		PriceFloor:   p.PriceFloor,
		Paused:       p.Paused,
		Grants:       marshalGrants(p.Grants),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func fromPlatformModel(m *platformModel) *payment.Platform {
	return &payment.Platform{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		FeeBps:       m.FeeBps,
		FeeRecipient: m.FeeRecipient,
		PriceFloor:   m.PriceFloor,
		Paused:       m.Paused,
		Grants:       unmarshalGrants(m.Grants),
	}
}

// Grants serialize as {account: [capability, ...]} rather than the
// in-memory set representation.
func marshalGrants(g capability.Grants) json.RawMessage {
	flat := make(map[string][]capability.Capability, len(g))
	for account, set := range g {
		flat[account] = set.List()
	}
	data, _ := json.Marshal(flat) //nolint:errcheck // best-effort
	return data
}

func unmarshalGrants(data json.RawMessage) capability.Grants {
	g := make(capability.Grants)
	if len(data) == 0 {
		return g
	}

	var flat map[string][]capability.Capability
	if err := json.Unmarshal(data, &flat); err != nil {
		return g
	}
	for account, caps := range flat {
		g[account] = capability.NewSet(caps...)
	}
	return g
}
