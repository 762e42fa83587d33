package expense

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/AnvithShetty10/expense-share/internal/user"
)

const expenseColumns = `
	e.id, e.description, e.total_amount, e.currency, e.expense_date, e.created_by_user_id,
	e.group_name, e.split_type, e.created_at, e.updated_at,
	c.id, c.username, c.email, c.full_name`

// Repository handles expense and participant persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new expense repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanExpense(row scanner) (*Expense, error) {
	e := &Expense{Creator: &user.Summary{}}
	err := row.Scan(
		&e.ID,
		&e.Description,
		&e.TotalAmount,
		&e.Currency,
		&e.ExpenseDate,
		&e.CreatorID,
		&e.GroupName,
		&e.SplitKind,
		&e.CreatedAt,
		&e.UpdatedAt,
		&e.Creator.ID,
		&e.Creator.Username,
		&e.Creator.Email,
		&e.Creator.FullName,
	)
	return e, err
}

// Create inserts the expense and its participants in one transaction.
// ID and timestamps are filled in on e.
func (r *Repository) Create(ctx context.Context, e *Expense) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO expenses (id, description, total_amount, currency, expense_date, created_by_user_id, group_name, split_type)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at, updated_at
		`
		err := tx.QueryRowContext(ctx, query,
			e.ID,
			e.Description,
			e.TotalAmount,
			e.Currency,
			e.ExpenseDate,
			e.CreatorID,
			e.GroupName,
			e.SplitKind,
		).Scan(&e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create expense: %w", err)
		}

		return insertParticipants(ctx, tx, e)
	})
}

// Update rewrites the expense fields and replaces its participants
// wholesale in one transaction.
func (r *Repository) Update(ctx context.Context, e *Expense) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE expenses
			SET description = $2,
			    total_amount = $3,
			    expense_date = $4,
			    group_name = $5,
			    split_type = $6,
			    updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at
		`
		err := tx.QueryRowContext(ctx, query,
			e.ID,
			e.Description,
			e.TotalAmount,
			e.ExpenseDate,
			e.GroupName,
			e.SplitKind,
		).Scan(&e.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update expense: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM expense_participants WHERE expense_id = $1`, e.ID); err != nil {
			return fmt.Errorf("failed to delete participants: %w", err)
		}

		return insertParticipants(ctx, tx, e)
	})
}

func insertParticipants(ctx context.Context, tx *sql.Tx, e *Expense) error {
	query := `
		INSERT INTO expense_participants (expense_id, user_id, position, amount_paid, amount_owed, percentage)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i := range e.Participants {
		p := &e.Participants[i]
		p.ExpenseID = e.ID
		if _, err := tx.ExecContext(ctx, query, e.ID, p.UserID, i, p.AmountPaid, p.AmountOwed, p.Percentage); err != nil {
			return fmt.Errorf("failed to create participant: %w", err)
		}
	}
	return nil
}

// Delete removes an expense; participants cascade
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("failed to delete expense: %w", sql.ErrNoRows)
	}

	return nil
}

// GetByID retrieves an expense with its participants
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Expense, error) {
	query := `SELECT ` + expenseColumns + `
		FROM expenses e
		JOIN users c ON c.id = e.created_by_user_id
		WHERE e.id = $1`

	e, err := scanExpense(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	if err := r.loadParticipants(ctx, []*Expense{e}); err != nil {
		return nil, err
	}
	return e, nil
}

// ExpensesForUser returns the expenses userID participates in, newest
// expense date first, with all participants loaded.
func (r *Repository) ExpensesForUser(ctx context.Context, userID uuid.UUID, f Filter) ([]*Expense, error) {
	where, args := f.where(userID)
	args = append(args, sql.NullInt64{Int64: int64(f.Limit), Valid: f.Limit > 0}, f.Offset)

	query := fmt.Sprintf(`SELECT %s
		FROM expenses e
		JOIN users c ON c.id = e.created_by_user_id
		WHERE %s
		ORDER BY e.expense_date DESC, e.created_at DESC
		LIMIT $%d OFFSET $%d`, expenseColumns, where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	if err := r.loadParticipants(ctx, expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

// CountForUser counts the expenses ExpensesForUser would return without paging
func (r *Repository) CountForUser(ctx context.Context, userID uuid.UUID, f Filter) (int, error) {
	where, args := f.where(userID)

	var total int
	query := `SELECT COUNT(*) FROM expenses e WHERE ` + where
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count expenses: %w", err)
	}
	return total, nil
}

// ParticipationsForUser returns every participation of userID joined with
// its expense and that expense's full participant list.
func (r *Repository) ParticipationsForUser(ctx context.Context, userID uuid.UUID) ([]Participation, error) {
	expenses, err := r.ExpensesForUser(ctx, userID, Filter{})
	if err != nil {
		return nil, err
	}
	return ParticipationsOf(userID, expenses), nil
}

// ParticipationsOf picks userID's participant row out of each expense.
func ParticipationsOf(userID uuid.UUID, expenses []*Expense) []Participation {
	out := make([]Participation, 0, len(expenses))
	for _, e := range expenses {
		if p, ok := e.Participant(userID); ok {
			out = append(out, Participation{Participant: *p, Expense: e})
		}
	}
	return out
}

func (r *Repository) loadParticipants(ctx context.Context, expenses []*Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*Expense, len(expenses))
	ids := make([]string, len(expenses))
	for i, e := range expenses {
		byID[e.ID] = e
		ids[i] = e.ID.String()
	}

	query := `
		SELECT p.expense_id, p.user_id, p.amount_paid, p.amount_owed, p.percentage,
		       u.username, u.email, u.full_name
		FROM expense_participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.expense_id = ANY($1::uuid[])
		ORDER BY p.expense_id, p.position
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Participant
		u := &user.Summary{}
		if err := rows.Scan(
			&p.ExpenseID,
			&p.UserID,
			&p.AmountPaid,
			&p.AmountOwed,
			&p.Percentage,
			&u.Username,
			&u.Email,
			&u.FullName,
		); err != nil {
			return fmt.Errorf("failed to scan participant: %w", err)
		}
		u.ID = p.UserID
		p.User = u

		if e, ok := byID[p.ExpenseID]; ok {
			e.Participants = append(e.Participants, p)
		}
	}

	return rows.Err()
}

func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// where builds the participation and filter predicate; args start at $1.
func (f Filter) where(userID uuid.UUID) (string, []interface{}) {
	clauses := []string{`e.id IN (SELECT expense_id FROM expense_participants WHERE user_id = $1)`}
	args := []interface{}{userID}

	if f.StartDate != nil {
		args = append(args, *f.StartDate)
		clauses = append(clauses, fmt.Sprintf("e.expense_date >= $%d", len(args)))
	}
	if f.EndDate != nil {
		args = append(args, *f.EndDate)
		clauses = append(clauses, fmt.Sprintf("e.expense_date <= $%d", len(args)))
	}
	if f.GroupName != nil {
		args = append(args, *f.GroupName)
		clauses = append(clauses, fmt.Sprintf("e.group_name = $%d", len(args)))
	}

	return strings.Join(clauses, " AND "), args
}
