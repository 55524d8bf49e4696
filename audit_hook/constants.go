package audithook

// Action constants for audit events.
const (
	// Membership actions
	ActionUserRegistered = "user.registered"

	// Capital actions
	ActionCapitalDeposited = "capital.deposited"
	ActionCapitalWithdrawn = "capital.withdrawn"

	// Loan actions
	ActionLoanRequested = "loan.requested"
	ActionLoanApproved  = "loan.approved"
	ActionLoanRejected  = "loan.rejected"
	ActionLoanOverdue   = "loan.overdue"

	// Payment actions
	ActionPaymentRecorded = "payment.recorded"

	// Administration actions
	ActionSweepCompleted = "sweep.completed"
	ActionSystemReset    = "system.reset"
)

// Resource constants for audit events.
const (
	ResourceUser    = "user"
	ResourceCapital = "capital"
	ResourceLoan    = "loan"
	ResourcePayment = "payment"
	ResourceSystem  = "system"
)

// Category constants for audit events.
const (
	CategoryMembership = "membership"
	CategoryCapital    = "capital"
	CategoryLending    = "lending"
	CategoryPayment    = "payment"
	CategoryAdmin      = "admin"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
