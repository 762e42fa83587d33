package balance

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AnvithShetty10/expense-share/internal/expense"
	"github.com/AnvithShetty10/expense-share/internal/money"
)

// Pairwise nets the expenses shared by a and b. A positive result means b
// owes a. Pairwise(a, b, x) == -Pairwise(b, a, x) for any expense set x
// that contains every expense shared by both users.
//
// Within one expense, an overpaying participant is credited against each
// underpaying participant in proportion to that participant's share of the
// total underpayment. The sum is rounded to cents once, at the end.
func Pairwise(a, b uuid.UUID, expenses []*expense.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(pairwiseIn(a, b, e))
	}
	return money.Round(total)
}

func pairwiseIn(a, b uuid.UUID, e *expense.Expense) decimal.Decimal {
	pa, ok := e.Participant(a)
	if !ok {
		return decimal.Zero
	}
	pb, ok := e.Participant(b)
	if !ok {
		return decimal.Zero
	}

	ca, cb := pa.Net(), pb.Net()

	underpaid := decimal.Zero
	for i := range e.Participants {
		if c := e.Participants[i].Net(); c.IsNegative() {
			underpaid = underpaid.Add(c.Neg())
		}
	}
	if !underpaid.IsPositive() {
		return decimal.Zero
	}

	switch {
	case ca.IsPositive() && cb.IsNegative():
		return ca.Mul(cb.Neg()).Div(underpaid)
	case ca.IsNegative() && cb.IsPositive():
		return cb.Mul(ca.Neg()).Div(underpaid).Neg()
	default:
		return decimal.Zero
	}
}

// counterparties lists every user other than userID who shares an expense
// with them, in first-seen order.
func counterparties(userID uuid.UUID, participations []expense.Participation) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, p := range participations {
		if p.Expense == nil {
			continue
		}
		for _, other := range p.Expense.Participants {
			if other.UserID == userID {
				continue
			}
			if _, ok := seen[other.UserID]; ok {
				continue
			}
			seen[other.UserID] = struct{}{}
			ids = append(ids, other.UserID)
		}
	}
	return ids
}

// expensesOf collects the distinct expenses behind a user's participations.
func expensesOf(participations []expense.Participation) []*expense.Expense {
	seen := make(map[uuid.UUID]struct{}, len(participations))
	out := make([]*expense.Expense, 0, len(participations))
	for _, p := range participations {
		if p.Expense == nil {
			continue
		}
		if _, ok := seen[p.Expense.ID]; ok {
			continue
		}
		seen[p.Expense.ID] = struct{}{}
		out = append(out, p.Expense)
	}
	return out
}
