package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/tollgate/capability"
	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/instrument"
	"github.com/xraph/tollgate/payment"
	"github.com/xraph/tollgate/registry"
	"github.com/xraph/tollgate/types"
)

// Mongo stores lists and maps natively, so models carry them without
// the serialization round-trip the SQL backends need.

// ==================== Instrument models ====================

type instrumentModel struct {
	grove.BaseModel `grove:"table:tollgate_instruments"`

	ID                string            `grove:"id,pk"               bson:"_id"`
	Owner             string            `grove:"owner"               bson:"owner"`
	Name              string            `grove:"name"                bson:"name"`
	Symbol            string            `grove:"symbol"              bson:"symbol"`
	TotalSupply       int64             `grove:"total_supply"        bson:"total_supply"`
	MaxSupply         int64             `grove:"max_supply"          bson:"max_supply"`
	AccessThreshold   int64             `grove:"access_threshold"    bson:"access_threshold"`
	PremiumThreshold  int64             `grove:"premium_threshold"   bson:"premium_threshold"`
	UnitPriceAmount   int64             `grove:"unit_price_amount"   bson:"unit_price_amount"`
	UnitPriceCurrency string            `grove:"unit_price_currency" bson:"unit_price_currency"`
	PublicIssuance    bool              `grove:"public_issuance"     bson:"public_issuance"`
	Paused            bool              `grove:"paused"              bson:"paused"`
	Minters           []string          `grove:"minters"             bson:"minters,omitempty"`
	Admins            []string          `grove:"admins"              bson:"admins,omitempty"`
	Pausers           []string          `grove:"pausers"             bson:"pausers,omitempty"`
	Metadata          map[string]string `grove:"metadata"            bson:"metadata,omitempty"`
	CreatedAt         time.Time         `grove:"created_at"          bson:"created_at"`
	UpdatedAt         time.Time         `grove:"updated_at"          bson:"updated_at"`
}

func toInstrumentModel(inst *instrument.Instrument) *instrumentModel {
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
		Minters:           inst.Minters,
		Admins:            inst.Admins,
		Pausers:           inst.Pausers,
		Metadata:          inst.Metadata,
		CreatedAt:         inst.CreatedAt,
		UpdatedAt:         inst.UpdatedAt,
	}
}

func fromInstrumentModel(m *instrumentModel) (*instrument.Instrument, error) {
	instID, err := id.ParseInstrumentID(m.ID)
	if err != nil {
		return nil, err
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
		Minters:          m.Minters,
		Admins:           m.Admins,
		Pausers:          m.Pausers,
		Metadata:         m.Metadata,
	}, nil
}

type holdingModel struct {
	grove.BaseModel `grove:"table:tollgate_holdings"`

	HoldingKey   string `grove:"holding_key,pk" bson:"_id"`
	InstrumentID string `grove:"instrument_id"  bson:"instrument_id"`
	Holder       string `grove:"holder"         bson:"holder"`
	Balance      int64  `grove:"balance"        bson:"balance"`
}

func holdingKey(instID, holder string) string {
	return instID + ":" + holder
}

// ==================== Resource models ====================

type resourceModel struct {
	grove.BaseModel `grove:"table:tollgate_resources"`

	ID                  string    `grove:"id,pk"                  bson:"_id"`
	ContentRef          string    `grove:"content_ref"            bson:"content_ref"`
	InstrumentID        string    `grove:"instrument_id"          bson:"instrument_id"`
	Owner               string    `grove:"owner"                  bson:"owner"`
	PriceAmount         int64     `grove:"price_amount"           bson:"price_amount"`
	PriceCurrency       string    `grove:"price_currency"         bson:"price_currency"`
	Category            string    `grove:"category"               bson:"category"`
	Tags                []string  `grove:"tags"                   bson:"tags,omitempty"`
	Version             string    `grove:"version"                bson:"version"`
	MinBalanceForAccess int64     `grove:"min_balance_for_access" bson:"min_balance_for_access"`
	Active              bool      `grove:"active"                 bson:"active"`
	UsageCount          int64     `grove:"usage_count"            bson:"usage_count"`
	UsageSpendAmount    int64     `grove:"usage_spend_amount"     bson:"usage_spend_amount"`
	UsageSpendCurrency  string    `grove:"usage_spend_currency"   bson:"usage_spend_currency"`
	CreatedAt           time.Time `grove:"created_at"             bson:"created_at"`
	UpdatedAt           time.Time `grove:"updated_at"             bson:"updated_at"`
}

func toResourceModel(r *registry.Resource) *resourceModel {
	return &resourceModel{
		ID:                  r.ID.String(),
		ContentRef:          r.ContentRef,
		InstrumentID:        r.InstrumentID.String(),
		Owner:               r.Owner,
		PriceAmount:         r.PricePerUse.Amount,
		PriceCurrency:       r.PricePerUse.Currency,
		Category:            r.Category,
		Tags:                r.Tags,
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
		Tags:                m.Tags,
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

	BalanceKey string `grove:"balance_key,pk" bson:"_id"`
	Account    string `grove:"account"        bson:"account"`
	Currency   string `grove:"currency"       bson:"currency"`
	Amount     int64  `grove:"amount"         bson:"amount"`
}

func balanceKey(account, currency string) string {
	return account + ":" + currency
}

type currencyModel struct {
	grove.BaseModel `grove:"table:tollgate_currencies"`

	Code      string    `grove:"code,pk"    bson:"_id"`
	Symbol    string    `grove:"symbol"     bson:"symbol"`
	Precision int       `grove:"precision"  bson:"precision"`
	MinAmount int64     `grove:"min_amount" bson:"min_amount"`
	MaxAmount int64     `grove:"max_amount" bson:"max_amount"`
	Active    bool      `grove:"active"     bson:"active"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
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

	ID         string    `grove:"id,pk"       bson:"_id"`
	ResourceID string    `grove:"resource_id" bson:"resource_id"`
	Payer      string    `grove:"payer"       bson:"payer"`
	Payee      string    `grove:"payee"       bson:"payee"`
	Amount     int64     `grove:"amount"      bson:"amount"`
	Fee        int64     `grove:"fee"         bson:"fee"`
	Net        int64     `grove:"net"         bson:"net"`
	Currency   string    `grove:"currency"    bson:"currency"`
	UsageRef   string    `grove:"usage_ref"   bson:"usage_ref"`
	Processed  bool      `grove:"processed"   bson:"processed"`
	CreatedAt  time.Time `grove:"created_at"  bson:"created_at"`
	UpdatedAt  time.Time `grove:"updated_at"  bson:"updated_at"`
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

	EarningsKey string `grove:"earnings_key,pk" bson:"_id"`
	Owner       string `grove:"owner"           bson:"owner"`
	Currency    string `grove:"currency"        bson:"currency"`
	Total       int64  `grove:"total"           bson:"total"`
}

func earningsKey(owner, currency string) string {
	return owner + ":" + currency
}

type volumeModel struct {
	grove.BaseModel `grove:"table:tollgate_volume"`

	Currency     string `grove:"currency,pk"   bson:"_id"`
	PaymentCount int64  `grove:"payment_count" bson:"payment_count"`
	Volume       int64  `grove:"volume"        bson:"volume"`
}

// platformKey is the fixed primary key of the singleton platform document.
const platformKey = "platform"

type platformModel struct {
	grove.BaseModel `grove:"table:tollgate_platform"`

	PlatformKey  string                             `grove:"platform_key,pk" bson:"_id"`
	FeeBps       int                                `grove:"fee_bps"         bson:"fee_bps"`
	FeeRecipient string                             `grove:"fee_recipient"   bson:"fee_recipient"`
	PriceFloor   int64                              `grove:"price_floor"     bson:"price_floor"`
	Paused       bool                               `grove:"paused"          bson:"paused"`
	Grants       map[string][]capability.Capability `grove:"grants"          bson:"grants,omitempty"`
	CreatedAt    time.Time                          `grove:"created_at"      bson:"created_at"`
	UpdatedAt    time.Time                          `grove:"updated_at"      bson:"updated_at"`
}

func toPlatformModel(p *payment.Platform) *platformModel {
	flat := make(map[string][]capability.Capability, len(p.Grants))
	for account, set := range p.Grants {
		flat[account] = set.List()
	}

	return &platformModel{
		PlatformKey:  platformKey,
		FeeBps:       p.FeeBps,
		FeeRecipient: p.FeeRecipient,
		PriceFloor:   p.PriceFloor,
		Paused:       p.Paused,
		Grants:       flat,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func fromPlatformModel(m *platformModel) *payment.Platform {
	grants := make(capability.Grants, len(m.Grants))
	for account, caps := range m.Grants {
		grants[account] = capability.NewSet(caps...)
	}

	return &payment.Platform{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		FeeBps:       m.FeeBps,
		FeeRecipient: m.FeeRecipient,
		PriceFloor:   m.PriceFloor,
		Paused:       m.Paused,
		Grants:       grants,
	}
}
