package tollgate

import (
	"context"
	"log/slog"

	"github.com/xraph/tollgate/capability"
	"github.com/xraph/tollgate/payment"
	"github.com/xraph/tollgate/plugin"
	"github.com/xraph/tollgate/store"
	"github.com/xraph/tollgate/types"
)

// DefaultFeeBps is the platform fee applied when no fee has been
// configured: 250 bps == 2.5%.
const DefaultFeeBps = 250

// Engine is the main Tollgate engine. All mutations validate their
// preconditions, apply state through a single atomic store call, then
// emit plugin notifications. A returned error always means nothing
// changed.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	// Accounts seeded with the admin capability when the platform config
	// is first created.
	bootstrapAdmins []string
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithAdmin grants the admin capability to an account when the platform
// configuration is first created. Subsequent grants go through
// GrantCapability; this option only solves the bootstrap problem.
func WithAdmin(account string) Option {
	return func(e *Engine) {
		e.bootstrapAdmins = append(e.bootstrapAdmins, account)
	}
}

// Start migrates the store, seeds the platform configuration, and
// initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	if err := e.ensurePlatform(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("tollgate started",
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop shuts down the Engine.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// Plugins exposes the plugin registry, e.g. to look up a content
// resolver by scheme.
func (e *Engine) Plugins() *plugin.Registry {
	return e.plugins
}

// ensurePlatform creates the singleton platform config and the base
// currency on first start.
func (e *Engine) ensurePlatform(ctx context.Context) error {
	if _, err := e.store.GetPlatform(ctx); err == nil {
		return nil
	} else if !IsNotFound(err) {
		return err
	}

	p := &payment.Platform{
		Entity: types.NewEntity(),
		FeeBps: DefaultFeeBps,
		Grants: make(capability.Grants),
	}
	for _, account := range e.bootstrapAdmins {
		p.Grants.Grant(account, capability.Admin)
	}
	if err := e.store.SavePlatform(ctx, p); err != nil {
		return err
	}

	base := &payment.Currency{
		Entity: types.NewEntity(),
		Code:   payment.BaseCurrency,
		Active: true,
	}
	if err := e.store.UpsertCurrency(ctx, base); err != nil {
		return err
	}

	e.logger.Info("platform configuration seeded",
		"fee_bps", p.FeeBps,
		"admins", len(e.bootstrapAdmins),
	)

	return nil
}

// ──────────────────────────────────────────────────
// Caller identity
// ──────────────────────────────────────────────────

type actorKey struct{}

// WithActor returns a context carrying the calling account's identity.
// Every privileged operation reads its caller from the context.
func WithActor(ctx context.Context, account string) context.Context {
	return context.WithValue(ctx, actorKey{}, account)
}

// ActorFromContext returns the calling account, or "" if none is set.
func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok {
		return v
	}
	return ""
}

func (e *Engine) requireActor(ctx context.Context) (string, error) {
	actor := ActorFromContext(ctx)
	if actor == "" {
		return "", ErrEmptyAccount
	}
	return actor, nil
}

// requireCapability resolves the caller and checks it holds cap in the
// platform grant table.
func (e *Engine) requireCapability(ctx context.Context, cap capability.Capability) (string, *payment.Platform, error) {
	actor, err := e.requireActor(ctx)
	if err != nil {
		return "", nil, err
	}

	p, err := e.store.GetPlatform(ctx)
	if err != nil {
		return "", nil, err
	}

	if !p.Grants.Has(actor, cap) {
		return "", nil, ErrUnauthorized
	}
	return actor, p, nil
}

// ──────────────────────────────────────────────────
// Shared validation
// ──────────────────────────────────────────────────

// activeCurrency resolves a currency code and rejects inactive ones.
func (e *Engine) activeCurrency(ctx context.Context, code string) (*payment.Currency, error) {
	c, err := e.store.GetCurrency(ctx, code)
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return nil, ErrCurrencyInactive
	}
	return c, nil
}

// validateMovement checks a balance movement amount against the
// currency's configured bounds.
func validateMovement(c *payment.Currency, amount int64) error {
	if amount <= 0 {
		return ErrZeroAmount
	}
	if !c.AmountInBounds(amount) {
		return ErrAmountOutOfBounds
	}
	return nil
}
