package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Lendpool store (SQLite).
var Migrations = migrate.NewGroup("lendpool")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_lendpool_users",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS lendpool_users (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL DEFAULT '',
    name_folded TEXT NOT NULL DEFAULT '',
    role        TEXT NOT NULL DEFAULT 'borrower',
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_lendpool_users_name_folded ON lendpool_users (name_folded);
CREATE INDEX IF NOT EXISTS idx_lendpool_users_role ON lendpool_users (role);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS lendpool_users`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_lendpool_capital_entries",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS lendpool_capital_entries (
    id              TEXT PRIMARY KEY,
    lender_id       TEXT NOT NULL DEFAULT '',
    amount_cents    INTEGER NOT NULL DEFAULT 0,
    amount_currency TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_lendpool_capital_lender ON lendpool_capital_entries (lender_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS lendpool_capital_entries`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_lendpool_loans",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS lendpool_loans (
    id                       TEXT PRIMARY KEY,
    borrower_id              TEXT NOT NULL DEFAULT '',
    borrower_name            TEXT NOT NULL DEFAULT '',
    principal_cents          INTEGER NOT NULL DEFAULT 0,
    principal_currency       TEXT NOT NULL DEFAULT '',
    schedule                 TEXT NOT NULL DEFAULT 'weekly',
    status                   TEXT NOT NULL DEFAULT 'pending',
    requested_at             TEXT NOT NULL DEFAULT (datetime('now')),
    approved_at              TEXT,
    due_date                 TEXT,
    total_due_cents          INTEGER NOT NULL DEFAULT 0,
    total_due_currency       TEXT NOT NULL DEFAULT '',
    principal_paid_cents     INTEGER NOT NULL DEFAULT 0,
    principal_paid_currency  TEXT NOT NULL DEFAULT '',
    interest_paid_cents      INTEGER NOT NULL DEFAULT 0,
    interest_paid_currency   TEXT NOT NULL DEFAULT '',
    overdue                  INTEGER NOT NULL DEFAULT 0,
    overdue_interest_applied INTEGER NOT NULL DEFAULT 0,
    created_at               TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at               TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_lendpool_loans_borrower ON lendpool_loans (borrower_id, status);
CREATE INDEX IF NOT EXISTS idx_lendpool_loans_status_due ON lendpool_loans (status, due_date);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS lendpool_loans`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_lendpool_payments",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS lendpool_payments (
    id                         TEXT PRIMARY KEY,
    loan_id                    TEXT NOT NULL DEFAULT '',
    borrower_id                TEXT NOT NULL DEFAULT '',
    amount_cents               INTEGER NOT NULL DEFAULT 0,
    amount_currency            TEXT NOT NULL DEFAULT '',
    method                     TEXT NOT NULL DEFAULT 'cash',
    principal_portion_cents    INTEGER NOT NULL DEFAULT 0,
    principal_portion_currency TEXT NOT NULL DEFAULT '',
    interest_portion_cents     INTEGER NOT NULL DEFAULT 0,
    interest_portion_currency  TEXT NOT NULL DEFAULT '',
    created_at                 TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at                 TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_lendpool_payments_loan ON lendpool_payments (loan_id);
CREATE INDEX IF NOT EXISTS idx_lendpool_payments_borrower ON lendpool_payments (borrower_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS lendpool_payments`)
				return err
			},
		},
	)
}
