package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Tollgate store.
var Migrations = migrate.NewGroup("tollgate")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_tollgate_instruments",
			Version: "20250301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tollgate_instruments (
    id                  TEXT PRIMARY KEY,
    owner               TEXT NOT NULL DEFAULT '',
    name                TEXT NOT NULL DEFAULT '',
    symbol              TEXT NOT NULL DEFAULT '',
    total_supply        BIGINT NOT NULL DEFAULT 0,
    max_supply          BIGINT NOT NULL DEFAULT 0,
    access_threshold    BIGINT NOT NULL DEFAULT 0,
    premium_threshold   BIGINT NOT NULL DEFAULT 0,
    unit_price_amount   BIGINT NOT NULL DEFAULT 0,
    unit_price_currency TEXT NOT NULL DEFAULT '',
    public_issuance     BOOLEAN NOT NULL DEFAULT FALSE,
    paused              BOOLEAN NOT NULL DEFAULT FALSE,
    minters             JSONB NOT NULL DEFAULT '[]',
    admins              JSONB NOT NULL DEFAULT '[]',
    pausers             JSONB NOT NULL DEFAULT '[]',
    metadata            JSONB NOT NULL DEFAULT '{}',
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tollgate_instruments_owner ON tollgate_instruments (owner);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tollgate_instruments`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tollgate_holdings",
			Version: "20250301000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tollgate_holdings (
    holding_key   TEXT PRIMARY KEY,
    instrument_id TEXT NOT NULL DEFAULT '',
    holder        TEXT NOT NULL DEFAULT '',
    balance       BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_tollgate_holdings_instrument ON tollgate_holdings (instrument_id);
CREATE INDEX IF NOT EXISTS idx_tollgate_holdings_holder ON tollgate_holdings (holder);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tollgate_holdings`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tollgate_resources",
			Version: "20250301000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tollgate_resources (
    id                     TEXT PRIMARY KEY,
    content_ref            TEXT NOT NULL DEFAULT '',
    instrument_id          TEXT NOT NULL DEFAULT '',
    owner                  TEXT NOT NULL DEFAULT '',
    price_amount           BIGINT NOT NULL DEFAULT 0,
    price_currency         TEXT NOT NULL DEFAULT '',
    category               TEXT NOT NULL DEFAULT '',
    tags                   JSONB NOT NULL DEFAULT '[]',
    version                TEXT NOT NULL DEFAULT '',
    min_balance_for_access BIGINT NOT NULL DEFAULT 0,
    active                 BOOLEAN NOT NULL DEFAULT TRUE,
    usage_count            BIGINT NOT NULL DEFAULT 0,
    usage_spend_amount     BIGINT NOT NULL DEFAULT 0,
    usage_spend_currency   TEXT NOT NULL DEFAULT '',
    created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tollgate_resources_owner ON tollgate_resources (owner);
CREATE INDEX IF NOT EXISTS idx_tollgate_resources_category ON tollgate_resources (category);
CREATE INDEX IF NOT EXISTS idx_tollgate_resources_active ON tollgate_resources (active);
CREATE INDEX IF NOT EXISTS idx_tollgate_resources_instrument ON tollgate_resources (instrument_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tollgate_resources`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tollgate_balances",
			Version: "20250301000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tollgate_balances (
    balance_key TEXT PRIMARY KEY,
    account     TEXT NOT NULL DEFAULT '',
    currency    TEXT NOT NULL DEFAULT '',
    amount      BIGINT NOT NULL DEFAULT 0 CHECK (amount >= 0)
);

CREATE INDEX IF NOT EXISTS idx_tollgate_balances_account ON tollgate_balances (account);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tollgate_balances`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tollgate_currencies",
			Version: "20250301000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tollgate_currencies (
    code       TEXT PRIMARY KEY,
    symbol     TEXT NOT NULL DEFAULT '',
    precision  INT NOT NULL DEFAULT 0,
    min_amount BIGINT NOT NULL DEFAULT 0,
    max_amount BIGINT NOT NULL DEFAULT 0,
    active     BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tollgate_currencies`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tollgate_payments",
			Version: "20250301000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tollgate_payments (
    id              TEXT PRIMARY KEY,
    resource_id     TEXT NOT NULL DEFAULT '',
    payer           TEXT NOT NULL DEFAULT '',
    payee           TEXT NOT NULL DEFAULT '',
    amount          BIGINT NOT NULL DEFAULT 0,
    fee             BIGINT NOT NULL DEFAULT 0,
    net             BIGINT NOT NULL DEFAULT 0,
    currency        TEXT NOT NULL DEFAULT '',
    usage_ref       TEXT NOT NULL DEFAULT '',
    processed       BOOLEAN NOT NULL DEFAULT FALSE,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tollgate_payments_payer ON tollgate_payments (payer, id);
CREATE INDEX IF NOT EXISTS idx_tollgate_payments_payee ON tollgate_payments (payee, id);
CREATE INDEX IF NOT EXISTS idx_tollgate_payments_resource ON tollgate_payments (resource_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tollgate_payments`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tollgate_earnings",
			Version: "20250301000007",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tollgate_earnings (
    earnings_key TEXT PRIMARY KEY,
    owner        TEXT NOT NULL DEFAULT '',
    currency     TEXT NOT NULL DEFAULT '',
    total        BIGINT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_tollgate_earnings_owner ON tollgate_earnings (owner);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tollgate_earnings`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tollgate_volume",
			Version: "20250301000008",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tollgate_volume (
    currency      TEXT PRIMARY KEY,
    payment_count BIGINT NOT NULL DEFAULT 0,
    volume        BIGINT NOT NULL DEFAULT 0
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tollgate_volume`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tollgate_platform",
			Version: "20250301000009",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tollgate_platform (
    platform_key  TEXT PRIMARY KEY,
    fee_bps       INT NOT NULL DEFAULT 0,
    fee_recipient TEXT NOT NULL DEFAULT '',
    price_floor   BIGINT NOT NULL DEFAULT 0,
    paused        BOOLEAN NOT NULL DEFAULT FALSE,
    grants        JSONB NOT NULL DEFAULT '{}',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tollgate_platform`)
				return err
			},
		},
	)
}
