// Package observability provides a metrics extension for Lendpool that
// records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/lendpool/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin             = (*MetricsExtension)(nil)
	_ plugin.OnInit             = (*MetricsExtension)(nil)
	_ plugin.OnUserRegistered   = (*MetricsExtension)(nil)
	_ plugin.OnCapitalDeposited = (*MetricsExtension)(nil)
	_ plugin.OnCapitalWithdrawn = (*MetricsExtension)(nil)
	_ plugin.OnLoanRequested    = (*MetricsExtension)(nil)
	_ plugin.OnLoanApproved     = (*MetricsExtension)(nil)
	_ plugin.OnLoanRejected     = (*MetricsExtension)(nil)
	_ plugin.OnLoanOverdue      = (*MetricsExtension)(nil)
	_ plugin.OnPaymentRecorded  = (*MetricsExtension)(nil)
	_ plugin.OnSweepCompleted   = (*MetricsExtension)(nil)
	_ plugin.OnSystemReset      = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Lendpool plugin to automatically track ledger metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Membership metrics
	UsersRegistered Counter

	// Capital metrics
	CapitalDeposits    Counter
	CapitalWithdrawals Counter

	// Loan metrics
	LoansRequested Counter
	LoansApproved  Counter
	LoansRejected  Counter
	LoansOverdue   Counter

	// Payment metrics
	PaymentsRecorded Counter

	// Sweep metrics
	SweepsCompleted Counter
	SweepMarked     Histogram
	SweepLatency    Histogram

	// Administration metrics
	SystemResets Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Membership metrics
		UsersRegistered: factory.Counter("lendpool.user.registered"),

		// Capital metrics
		CapitalDeposits:    factory.Counter("lendpool.capital.deposits"),
		CapitalWithdrawals: factory.Counter("lendpool.capital.withdrawals"),

		// Loan metrics
		LoansRequested: factory.Counter("lendpool.loan.requested"),
		LoansApproved:  factory.Counter("lendpool.loan.approved"),
		LoansRejected:  factory.Counter("lendpool.loan.rejected"),
		LoansOverdue:   factory.Counter("lendpool.loan.overdue"),

		// Payment metrics
		PaymentsRecorded: factory.Counter("lendpool.payment.recorded"),

		// Sweep metrics
		SweepsCompleted: factory.Counter("lendpool.sweep.completed"),
		SweepMarked:     factory.Histogram("lendpool.sweep.marked"),
		SweepLatency:    factory.Histogram("lendpool.sweep.latency_ms"),

		// Administration metrics
		SystemResets: factory.Counter("lendpool.system.resets"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Membership hooks
// ──────────────────────────────────────────────────

// OnUserRegistered implements plugin.OnUserRegistered.
func (m *MetricsExtension) OnUserRegistered(_ context.Context, _ interface{}) error {
	m.UsersRegistered.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Capital hooks
// ──────────────────────────────────────────────────

// OnCapitalDeposited implements plugin.OnCapitalDeposited.
func (m *MetricsExtension) OnCapitalDeposited(_ context.Context, _ interface{}) error {
	m.CapitalDeposits.Inc()
	return nil
}

// OnCapitalWithdrawn implements plugin.OnCapitalWithdrawn.
func (m *MetricsExtension) OnCapitalWithdrawn(_ context.Context, _ interface{}) error {
	m.CapitalWithdrawals.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Loan lifecycle hooks
// ──────────────────────────────────────────────────

// OnLoanRequested implements plugin.OnLoanRequested.
func (m *MetricsExtension) OnLoanRequested(_ context.Context, _ interface{}) error {
	m.LoansRequested.Inc()
	return nil
}

// OnLoanApproved implements plugin.OnLoanApproved.
func (m *MetricsExtension) OnLoanApproved(_ context.Context, _ interface{}) error {
	m.LoansApproved.Inc()
	return nil
}

// OnLoanRejected implements plugin.OnLoanRejected.
func (m *MetricsExtension) OnLoanRejected(_ context.Context, _ interface{}) error {
	m.LoansRejected.Inc()
	return nil
}

// OnLoanOverdue implements plugin.OnLoanOverdue.
func (m *MetricsExtension) OnLoanOverdue(_ context.Context, _ interface{}) error {
	m.LoansOverdue.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentRecorded implements plugin.OnPaymentRecorded.
func (m *MetricsExtension) OnPaymentRecorded(_ context.Context, _, _ interface{}) error {
	m.PaymentsRecorded.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Scheduler and administration hooks
// ──────────────────────────────────────────────────

// OnSweepCompleted implements plugin.OnSweepCompleted.
func (m *MetricsExtension) OnSweepCompleted(_ context.Context, marked int, elapsed time.Duration) error {
	m.SweepsCompleted.Inc()
	m.SweepMarked.Observe(float64(marked))
	m.SweepLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// OnSystemReset implements plugin.OnSystemReset.
func (m *MetricsExtension) OnSystemReset(_ context.Context) error {
	m.SystemResets.Inc()
	return nil
}
