package balance

import (
	"context"

	"github.com/google/uuid"

	"github.com/AnvithShetty10/expense-share/internal/expense"
	"github.com/AnvithShetty10/expense-share/internal/user"
)

// Repository is the read-only view of expenses and users the engine needs.
type Repository interface {
	// ParticipationsForUser returns every participation of userID joined with
	// its expense and all of that expense's participants.
	ParticipationsForUser(ctx context.Context, userID uuid.UUID) ([]expense.Participation, error)
	ExpensesForUser(ctx context.Context, userID uuid.UUID, f expense.Filter) ([]*expense.Expense, error)
	// UsersByIDs returns the users that still exist among ids.
	UsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*user.User, error)
}

// ExpenseReader is the part of the expense store the engine reads from.
type ExpenseReader interface {
	ParticipationsForUser(ctx context.Context, userID uuid.UUID) ([]expense.Participation, error)
	ExpensesForUser(ctx context.Context, userID uuid.UUID, f expense.Filter) ([]*expense.Expense, error)
}

// UserReader is the part of the user service the engine reads from.
type UserReader interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*user.User, error)
}

// Store joins an expense reader and a user reader into a Repository
type Store struct {
	expenses ExpenseReader
	users    UserReader
}

// NewStore creates a Repository over the expense and user stores
func NewStore(expenses ExpenseReader, users UserReader) *Store {
	return &Store{expenses: expenses, users: users}
}

func (s *Store) ParticipationsForUser(ctx context.Context, userID uuid.UUID) ([]expense.Participation, error) {
	return s.expenses.ParticipationsForUser(ctx, userID)
}

func (s *Store) ExpensesForUser(ctx context.Context, userID uuid.UUID, f expense.Filter) ([]*expense.Expense, error) {
	return s.expenses.ExpensesForUser(ctx, userID, f)
}

func (s *Store) UsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*user.User, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]*user.User{}, nil
	}
	return s.users.GetByIDs(ctx, ids)
}

var (
	_ Repository    = (*Store)(nil)
	_ ExpenseReader = (*expense.Repository)(nil)
	_ UserReader    = (*user.Service)(nil)
)
