package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit             []OnInit
	onShutdown         []OnShutdown
	onUserRegistered   []OnUserRegistered
	onCapitalDeposited []OnCapitalDeposited
	onCapitalWithdrawn []OnCapitalWithdrawn
	onLoanRequested    []OnLoanRequested
	onLoanApproved     []OnLoanApproved
	onLoanRejected     []OnLoanRejected
	onLoanOverdue      []OnLoanOverdue
	onPaymentRecorded  []OnPaymentRecorded
	onSweepCompleted   []OnSweepCompleted
	onSystemReset      []OnSystemReset
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
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
	if v, ok := p.(OnUserRegistered); ok {
		r.onUserRegistered = append(r.onUserRegistered, v)
	}
	if v, ok := p.(OnCapitalDeposited); ok {
		r.onCapitalDeposited = append(r.onCapitalDeposited, v)
	}
	if v, ok := p.(OnCapitalWithdrawn); ok {
		r.onCapitalWithdrawn = append(r.onCapitalWithdrawn, v)
	}
	if v, ok := p.(OnLoanRequested); ok {
		r.onLoanRequested = append(r.onLoanRequested, v)
	}
	if v, ok := p.(OnLoanApproved); ok {
		r.onLoanApproved = append(r.onLoanApproved, v)
	}
	if v, ok := p.(OnLoanRejected); ok {
		r.onLoanRejected = append(r.onLoanRejected, v)
	}
	if v, ok := p.(OnLoanOverdue); ok {
		r.onLoanOverdue = append(r.onLoanOverdue, v)
	}
	if v, ok := p.(OnPaymentRecorded); ok {
		r.onPaymentRecorded = append(r.onPaymentRecorded, v)
	}
	if v, ok := p.(OnSweepCompleted); ok {
		r.onSweepCompleted = append(r.onSweepCompleted, v)
	}
	if v, ok := p.(OnSystemReset); ok {
		r.onSystemReset = append(r.onSystemReset, v)
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

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnUserRegistered)(nil)).Elem(), "OnUserRegistered")
	checkInterface(reflect.TypeOf((*OnCapitalDeposited)(nil)).Elem(), "OnCapitalDeposited")
	checkInterface(reflect.TypeOf((*OnCapitalWithdrawn)(nil)).Elem(), "OnCapitalWithdrawn")
	checkInterface(reflect.TypeOf((*OnLoanRequested)(nil)).Elem(), "OnLoanRequested")
	checkInterface(reflect.TypeOf((*OnLoanApproved)(nil)).Elem(), "OnLoanApproved")
	checkInterface(reflect.TypeOf((*OnLoanRejected)(nil)).Elem(), "OnLoanRejected")
	checkInterface(reflect.TypeOf((*OnLoanOverdue)(nil)).Elem(), "OnLoanOverdue")
	checkInterface(reflect.TypeOf((*OnPaymentRecorded)(nil)).Elem(), "OnPaymentRecorded")
	checkInterface(reflect.TypeOf((*OnSweepCompleted)(nil)).Elem(), "OnSweepCompleted")
	checkInterface(reflect.TypeOf((*OnSystemReset)(nil)).Elem(), "OnSystemReset")

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
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
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
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitUserRegistered emits a user registered event.
func (r *Registry) EmitUserRegistered(ctx context.Context, user interface{}) {
	r.mu.RLock()
	plugins := r.onUserRegistered
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnUserRegistered(ctx, user)
		}); err != nil {
			r.logger.Warn("plugin OnUserRegistered failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCapitalDeposited emits a capital deposited event.
func (r *Registry) EmitCapitalDeposited(ctx context.Context, entry interface{}) {
	r.mu.RLock()
	plugins := r.onCapitalDeposited
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCapitalDeposited(ctx, entry)
		}); err != nil {
			r.logger.Warn("plugin OnCapitalDeposited failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCapitalWithdrawn emits a capital withdrawn event.
func (r *Registry) EmitCapitalWithdrawn(ctx context.Context, entry interface{}) {
	r.mu.RLock()
	plugins := r.onCapitalWithdrawn
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCapitalWithdrawn(ctx, entry)
		}); err != nil {
			r.logger.Warn("plugin OnCapitalWithdrawn failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitLoanRequested emits a loan requested event.
func (r *Registry) EmitLoanRequested(ctx context.Context, loan interface{}) {
	r.mu.RLock()
	plugins := r.onLoanRequested
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnLoanRequested(ctx, loan)
		}); err != nil {
			r.logger.Warn("plugin OnLoanRequested failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitLoanApproved emits a loan approved event.
func (r *Registry) EmitLoanApproved(ctx context.Context, loan interface{}) {
	r.mu.RLock()
	plugins := r.onLoanApproved
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnLoanApproved(ctx, loan)
		}); err != nil {
			r.logger.Warn("plugin OnLoanApproved failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitLoanRejected emits a loan rejected event.
func (r *Registry) EmitLoanRejected(ctx context.Context, loan interface{}) {
	r.mu.RLock()
	plugins := r.onLoanRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnLoanRejected(ctx, loan)
		}); err != nil {
			r.logger.Warn("plugin OnLoanRejected failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitLoanOverdue emits a loan overdue event.
func (r *Registry) EmitLoanOverdue(ctx context.Context, loan interface{}) {
	r.mu.RLock()
	plugins := r.onLoanOverdue
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnLoanOverdue(ctx, loan)
		}); err != nil {
			r.logger.Warn("plugin OnLoanOverdue failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPaymentRecorded emits a payment recorded event.
func (r *Registry) EmitPaymentRecorded(ctx context.Context, payment, loan interface{}) {
	r.mu.RLock()
	plugins := r.onPaymentRecorded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaymentRecorded(ctx, payment, loan)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentRecorded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSweepCompleted emits a sweep completed event.
func (r *Registry) EmitSweepCompleted(ctx context.Context, marked int, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onSweepCompleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSweepCompleted(ctx, marked, elapsed)
		}); err != nil {
			r.logger.Warn("plugin OnSweepCompleted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSystemReset emits a system reset event.
func (r *Registry) EmitSystemReset(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onSystemReset
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSystemReset(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnSystemReset failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the command pipeline.
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
