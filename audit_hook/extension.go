// Package audithook bridges Lendpool lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit system. Callers inject a RecorderFunc adapter that
// bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/lendpool/capital"
	"github.com/xraph/lendpool/loan"
	"github.com/xraph/lendpool/payment"
	"github.com/xraph/lendpool/plugin"
	"github.com/xraph/lendpool/user"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Extension)(nil)
	_ plugin.OnUserRegistered   = (*Extension)(nil)
	_ plugin.OnCapitalDeposited = (*Extension)(nil)
	_ plugin.OnCapitalWithdrawn = (*Extension)(nil)
	_ plugin.OnLoanRequested    = (*Extension)(nil)
	_ plugin.OnLoanApproved     = (*Extension)(nil)
	_ plugin.OnLoanRejected     = (*Extension)(nil)
	_ plugin.OnLoanOverdue      = (*Extension)(nil)
	_ plugin.OnPaymentRecorded  = (*Extension)(nil)
	_ plugin.OnSweepCompleted   = (*Extension)(nil)
	_ plugin.OnSystemReset      = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// It is defined locally so that the audit_hook package does not import a
// concrete audit system — callers inject one at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Lendpool lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Membership hooks
// ──────────────────────────────────────────────────

// OnUserRegistered implements plugin.OnUserRegistered.
func (e *Extension) OnUserRegistered(ctx context.Context, v interface{}) error {
	var id, role string
	if u, ok := v.(*user.User); ok {
		id = u.ID.String()
		role = string(u.Role)
	}
	return e.record(ctx, ActionUserRegistered, SeverityInfo, OutcomeSuccess,
		ResourceUser, id, CategoryMembership, nil,
		"role", role,
	)
}

// ──────────────────────────────────────────────────
// Capital hooks
// ──────────────────────────────────────────────────

// OnCapitalDeposited implements plugin.OnCapitalDeposited.
func (e *Extension) OnCapitalDeposited(ctx context.Context, v interface{}) error {
	var id, amount string
	if entry, ok := v.(*capital.Entry); ok {
		id = entry.ID.String()
		amount = entry.Amount.String()
	}
	return e.record(ctx, ActionCapitalDeposited, SeverityInfo, OutcomeSuccess,
		ResourceCapital, id, CategoryCapital, nil,
		"amount", amount,
	)
}

// OnCapitalWithdrawn implements plugin.OnCapitalWithdrawn.
func (e *Extension) OnCapitalWithdrawn(ctx context.Context, v interface{}) error {
	var id, amount string
	if entry, ok := v.(*capital.Entry); ok {
		id = entry.ID.String()
		amount = entry.Amount.String()
	}
	return e.record(ctx, ActionCapitalWithdrawn, SeverityInfo, OutcomeSuccess,
		ResourceCapital, id, CategoryCapital, nil,
		"amount", amount,
	)
}

// ──────────────────────────────────────────────────
// Loan lifecycle hooks
// ──────────────────────────────────────────────────

// OnLoanRequested implements plugin.OnLoanRequested.
func (e *Extension) OnLoanRequested(ctx context.Context, v interface{}) error {
	return e.recordLoan(ctx, ActionLoanRequested, SeverityInfo, v)
}

// OnLoanApproved implements plugin.OnLoanApproved.
func (e *Extension) OnLoanApproved(ctx context.Context, v interface{}) error {
	return e.recordLoan(ctx, ActionLoanApproved, SeverityInfo, v)
}

// OnLoanRejected implements plugin.OnLoanRejected.
func (e *Extension) OnLoanRejected(ctx context.Context, v interface{}) error {
	return e.recordLoan(ctx, ActionLoanRejected, SeverityInfo, v)
}

// OnLoanOverdue implements plugin.OnLoanOverdue.
func (e *Extension) OnLoanOverdue(ctx context.Context, v interface{}) error {
	return e.recordLoan(ctx, ActionLoanOverdue, SeverityWarning, v)
}

func (e *Extension) recordLoan(ctx context.Context, action, severity string, v interface{}) error {
	var id, borrower string
	if l, ok := v.(*loan.Loan); ok {
		id = l.ID.String()
		borrower = l.BorrowerName
	}
	return e.record(ctx, action, severity, OutcomeSuccess,
		ResourceLoan, id, CategoryLending, nil,
		"borrower", borrower,
	)
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentRecorded implements plugin.OnPaymentRecorded.
func (e *Extension) OnPaymentRecorded(ctx context.Context, pv, _ interface{}) error {
	var id, amount, loanID string
	if p, ok := pv.(*payment.Payment); ok {
		id = p.ID.String()
		amount = p.Amount.String()
		loanID = p.LoanID.String()
	}
	return e.record(ctx, ActionPaymentRecorded, SeverityInfo, OutcomeSuccess,
		ResourcePayment, id, CategoryPayment, nil,
		"amount", amount,
		"loan_id", loanID,
	)
}

// ──────────────────────────────────────────────────
// Scheduler and administration hooks
// ──────────────────────────────────────────────────

// OnSweepCompleted implements plugin.OnSweepCompleted.
func (e *Extension) OnSweepCompleted(ctx context.Context, marked int, elapsed time.Duration) error {
	// Sweeps that mark nothing are routine noise.
	if marked == 0 {
		return nil
	}
	return e.record(ctx, ActionSweepCompleted, SeverityWarning, OutcomeSuccess,
		ResourceSystem, "", CategoryAdmin, nil,
		"marked", marked,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnSystemReset implements plugin.OnSystemReset.
func (e *Extension) OnSystemReset(ctx context.Context) error {
	return e.record(ctx, ActionSystemReset, SeverityCritical, OutcomeSuccess,
		ResourceSystem, "", CategoryAdmin, nil,
		"event", "system_reset",
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
