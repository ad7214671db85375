// Package extension provides the Forge extension adapter for Tollgate.
//
// It implements the forge.Extension interface to integrate Tollgate
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.tollgate" or
// "tollgate" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/tollgate"
	"github.com/xraph/tollgate/store"
	"github.com/xraph/tollgate/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "tollgate"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Token-gated usage metering and settlement ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Tollgate as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *tollgate.Engine
	store      store.Store
	engineOpts []tollgate.Option
	useGrove   bool
}

// New creates a new Tollgate Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Tollgate engine.
// This is nil until Register is called.
func (e *Extension) Engine() *tollgate.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	// Build engine options from resolved config.
	opts := e.buildEngineOpts()

	e.engine = tollgate.New(e.store, opts...)

	return vessel.Provide(fapp.Container(), func() (*tollgate.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("tollgate: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("tollgate: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs tollgate.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []tollgate.Option {
	opts := make([]tollgate.Option, 0, len(e.engineOpts)+len(e.config.Admins))

	for _, admin := range e.config.Admins {
		opts = append(opts, tollgate.WithAdmin(admin))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("tollgate: configuration is required but not found in config files; " +
				"ensure 'extensions.tollgate' or 'tollgate' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("tollgate: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("admins", len(e.config.Admins)),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.tollgate" first (namespaced pattern).
	if cm.IsSet("extensions.tollgate") {
		if err := cm.Bind("extensions.tollgate", &cfg); err == nil {
			e.Logger().Debug("tollgate: loaded config from file",
				forge.F("key", "extensions.tollgate"),
			)
			return cfg, true
		}
		e.Logger().Warn("tollgate: failed to bind extensions.tollgate config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "tollgate" key.
	if cm.IsSet("tollgate") {
		if err := cm.Bind("tollgate", &cfg); err == nil {
			e.Logger().Debug("tollgate: loaded config from file",
				forge.F("key", "tollgate"),
			)
			return cfg, true
		}
		e.Logger().Warn("tollgate: failed to bind tollgate config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.BasePath == "" && programmaticConfig.BasePath != "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}

	// Programmatic admins extend the YAML list.
	yamlConfig.Admins = append(yamlConfig.Admins, programmaticConfig.Admins...)

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
