package balance

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/AnvithShetty10/expense-share/internal/expense"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type share struct {
	user       uuid.UUID
	paid, owed string
}

func newExpense(total string, shares ...share) *expense.Expense {
	e := &expense.Expense{ID: uuid.New(), TotalAmount: d(total)}
	for _, s := range shares {
		e.Participants = append(e.Participants, expense.Participant{
			ExpenseID:  e.ID,
			UserID:     s.user,
			AmountPaid: d(s.paid),
			AmountOwed: d(s.owed),
		})
	}
	return e
}

func TestPairwise(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name     string
		expenses []*expense.Expense
		want     string
	}{
		{
			name:     "single payer equal split",
			expenses: []*expense.Expense{newExpense("100", share{a, "100", "50"}, share{b, "0", "50"})},
			want:     "50",
		},
		{
			name: "two expenses net out",
			expenses: []*expense.Expense{
				newExpense("100", share{a, "100", "50"}, share{b, "0", "50"}),
				newExpense("60", share{a, "0", "30"}, share{b, "60", "30"}),
			},
			want: "20",
		},
		{
			name:     "other side paid",
			expenses: []*expense.Expense{newExpense("60", share{a, "0", "30"}, share{b, "60", "30"})},
			want:     "-30",
		},
		{
			name:     "three participants proportional",
			expenses: []*expense.Expense{newExpense("90", share{a, "90", "30"}, share{b, "0", "30"}, share{c, "0", "30"})},
			want:     "30",
		},
		{
			name:     "both underpaid",
			expenses: []*expense.Expense{newExpense("90", share{c, "90", "30"}, share{a, "0", "30"}, share{b, "0", "30"})},
			want:     "0",
		},
		{
			name:     "b not in expense",
			expenses: []*expense.Expense{newExpense("50", share{a, "50", "25"}, share{c, "0", "25"})},
			want:     "0",
		},
		{
			name:     "everyone paid their share",
			expenses: []*expense.Expense{newExpense("40", share{a, "20", "20"}, share{b, "20", "20"})},
			want:     "0",
		},
		{
			// each expense credits a with 1/3; per-expense rounding would give 0.66
			name: "rounded once at the end",
			expenses: []*expense.Expense{
				newExpense("6", share{a, "3", "2"}, share{c, "3", "1"}, share{b, "0", "1"}, share{uuid.New(), "0", "2"}),
				newExpense("6", share{a, "3", "2"}, share{c, "3", "1"}, share{b, "0", "1"}, share{uuid.New(), "0", "2"}),
			},
			want: "0.67",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Pairwise(a, b, tt.expenses)
			assert.True(t, d(tt.want).Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestPairwise_Symmetric(t *testing.T) {
	a, b, c, e := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	expenses := []*expense.Expense{
		newExpense("100", share{a, "70", "25"}, share{b, "30", "25"}, share{c, "0", "25"}, share{e, "0", "25"}),
		newExpense("33.33", share{b, "33.33", "11.11"}, share{a, "0", "11.11"}, share{c, "0", "11.11"}),
		newExpense("200", share{c, "150", "140"}, share{a, "50", "60"}),
		newExpense("12.50", share{e, "12.50", "6.25"}, share{b, "0", "6.25"}),
	}

	users := []uuid.UUID{a, b, c, e}
	for _, x := range users {
		for _, y := range users {
			if x == y {
				continue
			}
			assert.True(t, Pairwise(x, y, expenses).Equal(Pairwise(y, x, expenses).Neg()))
		}
	}
}

func TestCounterparties(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	expenses := []*expense.Expense{
		newExpense("10", share{a, "10", "5"}, share{b, "0", "5"}),
		newExpense("10", share{c, "10", "5"}, share{a, "0", "5"}, share{b, "0", "0"}),
	}

	parts := expense.ParticipationsOf(a, expenses)
	assert.Equal(t, []uuid.UUID{b, c}, counterparties(a, parts))
	assert.Len(t, expensesOf(parts), 2)
	assert.Empty(t, counterparties(a, nil))
}
