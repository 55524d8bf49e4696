// Package mongo provides a MongoDB-backed Store via the Grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	lendpool "github.com/xraph/lendpool"
	"github.com/xraph/lendpool/capital"
	"github.com/xraph/lendpool/id"
	"github.com/xraph/lendpool/loan"
	"github.com/xraph/lendpool/payment"
	lendpoolstore "github.com/xraph/lendpool/store"
	"github.com/xraph/lendpool/user"
)

// Collection name constants.
const (
	colUsers          = "lendpool_users"
	colCapitalEntries = "lendpool_capital_entries"
	colLoans          = "lendpool_loans"
	colPayments       = "lendpool_payments"
)

// compile-time interface check
var _ lendpoolstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all lendpool collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("lendpool/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== User Store ====================

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	m := toUserModel(u)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("lendpool/mongo: create user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, userID id.UserID) (*user.User, error) {
	var m userModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": userID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, lendpool.ErrUserNotFound
		}
		return nil, fmt.Errorf("lendpool/mongo: get user: %w", err)
	}
	return fromUserModel(&m)
}

func (s *Store) GetUserByName(ctx context.Context, name string) (*user.User, error) {
	var m userModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"name_folded": user.NormalizeName(name)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, lendpool.ErrUserNotFound
		}
		return nil, fmt.Errorf("lendpool/mongo: get user by name: %w", err)
	}
	return fromUserModel(&m)
}

func (s *Store) ListUsers(ctx context.Context) ([]*user.User, error) {
	var models []userModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("lendpool/mongo: list users: %w", err)
	}

	result := make([]*user.User, len(models))
	for i := range models {
		u, err := fromUserModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = u
	}
	return result, nil
}

func (s *Store) CountUsersByRole(ctx context.Context, role user.Role) (int, error) {
	count, err := s.mdb.Collection(colUsers).CountDocuments(ctx, bson.M{"role": string(role)})
	if err != nil {
		return 0, fmt.Errorf("lendpool/mongo: count users: %w", err)
	}
	return int(count), nil
}

// ==================== Capital Store ====================

func (s *Store) AppendCapitalEntry(ctx context.Context, e *capital.Entry) error {
	m := toCapitalEntryModel(e)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("lendpool/mongo: append capital entry: %w", err)
	}
	return nil
}

func (s *Store) ListCapitalEntries(ctx context.Context, lenderID id.UserID) ([]*capital.Entry, error) {
	var models []capitalEntryModel

	filter := bson.M{}
	if !lenderID.IsNil() {
		filter["lender_id"] = lenderID.String()
	}

	err := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("lendpool/mongo: list capital entries: %w", err)
	}

	result := make([]*capital.Entry, len(models))
	for i := range models {
		e, err := fromCapitalEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

func (s *Store) SumCapital(ctx context.Context, lenderID id.UserID) (int64, error) {
	match := bson.M{}
	if !lenderID.IsNil() {
		match["lender_id"] = lenderID.String()
	}

	pipeline := bson.A{
		bson.M{"$match": match},
		bson.M{
			"$group": bson.M{
				"_id":   nil,
				"total": bson.M{"$sum": "$amount_cents"},
			},
		},
	}

	cursor, err := s.mdb.Collection(colCapitalEntries).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("lendpool/mongo: sum capital: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("lendpool/mongo: sum capital decode: %w", err)
	}

	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

// ==================== Loan Store ====================

func (s *Store) CreateLoan(ctx context.Context, l *loan.Loan) error {
	m := toLoanModel(l)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("lendpool/mongo: create loan: %w", err)
	}
	return nil
}

func (s *Store) GetLoan(ctx context.Context, loanID id.LoanID) (*loan.Loan, error) {
	var m loanModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": loanID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, lendpool.ErrLoanNotFound
		}
		return nil, fmt.Errorf("lendpool/mongo: get loan: %w", err)
	}
	return fromLoanModel(&m)
}

func (s *Store) GetActiveLoanByBorrower(ctx context.Context, borrowerID id.UserID) (*loan.Loan, error) {
	var m loanModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{
			"borrower_id": borrowerID.String(),
			"status": bson.M{"$in": bson.A{
				string(loan.StatusPending),
				string(loan.StatusApproved),
			}},
			"$expr": bson.M{"$gt": bson.A{
				bson.M{"$subtract": bson.A{
					"$total_due_cents",
					bson.M{"$add": bson.A{"$principal_paid_cents", "$interest_paid_cents"}},
				}},
				0,
			}},
		}).
		Sort(bson.D{{Key: "_id", Value: -1}}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, lendpool.ErrLoanNotFound
		}
		return nil, fmt.Errorf("lendpool/mongo: get active loan: %w", err)
	}
	return fromLoanModel(&m)
}

func (s *Store) ListLoans(ctx context.Context, opts loan.ListOpts) ([]*loan.Loan, error) {
	var models []loanModel

	filter := bson.M{}
	if !opts.BorrowerID.IsNil() {
		filter["borrower_id"] = opts.BorrowerID.String()
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("lendpool/mongo: list loans: %w", err)
	}

	result := make([]*loan.Loan, len(models))
	for i := range models {
		l, err := fromLoanModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = l
	}
	return result, nil
}

func (s *Store) UpdateLoan(ctx context.Context, l *loan.Loan) error {
	m := toLoanModel(l)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("lendpool/mongo: update loan: %w", err)
	}
	if res.MatchedCount() == 0 {
		return lendpool.ErrLoanNotFound
	}
	return nil
}

// ==================== Payment Store ====================

func (s *Store) CreatePayment(ctx context.Context, p *payment.Payment) error {
	m := toPaymentModel(p)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("lendpool/mongo: create payment: %w", err)
	}
	return nil
}

func (s *Store) ListPayments(ctx context.Context, opts payment.ListOpts) ([]*payment.Payment, error) {
	var models []paymentModel

	filter := bson.M{}
	if !opts.LoanID.IsNil() {
		filter["loan_id"] = opts.LoanID.String()
	}
	if !opts.BorrowerID.IsNil() {
		filter["borrower_id"] = opts.BorrowerID.String()
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("lendpool/mongo: list payments: %w", err)
	}

	result := make([]*payment.Payment, len(models))
	for i := range models {
		p, err := fromPaymentModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

// ==================== Reset ====================

// Reset drops all capital entries, loans, and payments. Users survive.
func (s *Store) Reset(ctx context.Context) error {
	for _, model := range []interface{}{
		(*capitalEntryModel)(nil),
		(*loanModel)(nil),
		(*paymentModel)(nil),
	} {
		if _, err := s.mdb.NewDelete(model).Filter(bson.M{}).Exec(ctx); err != nil {
			return fmt.Errorf("lendpool/mongo: reset: %w", err)
		}
	}
	return nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all lendpool collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colUsers: {
			{
				Keys:    bson.D{{Key: "name_folded", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		colCapitalEntries: {
			{Keys: bson.D{{Key: "lender_id", Value: 1}}},
		},
		colLoans: {
			{Keys: bson.D{{Key: "borrower_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "due_date", Value: 1}}},
		},
		colPayments: {
			{Keys: bson.D{{Key: "loan_id", Value: 1}}},
			{Keys: bson.D{{Key: "borrower_id", Value: 1}}},
		},
	}
}
