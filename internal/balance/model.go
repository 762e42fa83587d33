package balance

import (
	"github.com/shopspring/decimal"

	"github.com/AnvithShetty10/expense-share/internal/expense"
	"github.com/AnvithShetty10/expense-share/internal/user"
)

// Direction says who owes whom from the requesting user's point of view.
type Direction string

const (
	OwesYou Direction = "owes_you"
	YouOwe  Direction = "you_owe"
)

// Balance is the net position between the requesting user and one counterparty.
// Amount is never negative; the sign lives in Type.
type Balance struct {
	User   user.Summary    `json:"user"`
	Amount decimal.Decimal `json:"amount"`
	Type   Direction       `json:"type"`
}

// Summary aggregates all balances of one user
type Summary struct {
	OverallBalance  decimal.Decimal `json:"overall_balance"`
	TotalYouOwe     decimal.Decimal `json:"total_you_owe"`
	TotalOwedToYou  decimal.Decimal `json:"total_owed_to_you"`
	NumPeopleYouOwe int             `json:"num_people_you_owe"`
	NumPeopleOweYou int             `json:"num_people_owe_you"`
}

// Detail is a Balance with the expenses both users took part in.
type Detail struct {
	Balance
	SharedExpenses []expense.ListItem `json:"shared_expenses"`
}

// newBalance turns a signed net amount into a Balance. Zero maps to OwesYou.
func newBalance(u user.Summary, net decimal.Decimal) Balance {
	if net.IsNegative() {
		return Balance{User: u, Amount: net.Neg(), Type: YouOwe}
	}
	return Balance{User: u, Amount: net, Type: OwesYou}
}
