// Package extension provides the Forge extension adapter for Lendpool.
//
// It implements the forge.Extension interface to integrate Lendpool
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.lendpool" or
// "lendpool" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	lendpool "github.com/xraph/lendpool"
	"github.com/xraph/lendpool/store"
	"github.com/xraph/lendpool/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "lendpool"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Peer lending pool ledger engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Lendpool as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *lendpool.Engine
	store      store.Store
	engineOpts []lendpool.Option
}

// New creates a new Lendpool Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Lendpool engine.
// This is nil until Register is called.
func (e *Extension) Engine() *lendpool.Engine { return e.engine }

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

	eng := lendpool.New(e.store, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*lendpool.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("lendpool: extension not initialized")
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
		return errors.New("lendpool: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs lendpool.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []lendpool.Option {
	opts := make([]lendpool.Option, 0, len(e.engineOpts)+2)

	if e.config.Currency != "" {
		opts = append(opts, lendpool.WithCurrency(e.config.Currency))
	}
	if e.config.SweepInterval > 0 {
		opts = append(opts, lendpool.WithSweepInterval(e.config.SweepInterval))
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
			return errors.New("lendpool: configuration is required but not found in config files; " +
				"ensure 'extensions.lendpool' or 'lendpool' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("lendpool: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("currency", e.config.Currency),
		forge.F("sweep_interval", e.config.SweepInterval),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.lendpool" first (namespaced pattern).
	if cm.IsSet("extensions.lendpool") {
		if err := cm.Bind("extensions.lendpool", &cfg); err == nil {
			e.Logger().Debug("lendpool: loaded config from file",
				forge.F("key", "extensions.lendpool"),
			)
			return cfg, true
		}
		e.Logger().Warn("lendpool: failed to bind extensions.lendpool config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "lendpool" key.
	if cm.IsSet("lendpool") {
		if err := cm.Bind("lendpool", &cfg); err == nil {
			e.Logger().Debug("lendpool: loaded config from file",
				forge.F("key", "lendpool"),
			)
			return cfg, true
		}
		e.Logger().Warn("lendpool: failed to bind lendpool config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Currency == "" {
		cfg.Currency = defaults.Currency
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = defaults.SweepInterval
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Currency == "" && programmaticConfig.Currency != "" {
		yamlConfig.Currency = programmaticConfig.Currency
	}

	// Duration fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.SweepInterval == 0 && programmaticConfig.SweepInterval != 0 {
		yamlConfig.SweepInterval = programmaticConfig.SweepInterval
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
