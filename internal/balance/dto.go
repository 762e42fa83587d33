package balance

import (
	"github.com/AnvithShetty10/expense-share/internal/expense"
	"github.com/AnvithShetty10/expense-share/internal/money"
	"github.com/AnvithShetty10/expense-share/internal/user"
)

// BalanceResponse represents one balance in API responses
type BalanceResponse struct {
	User   user.Summary `json:"user"`
	Amount string       `json:"amount"`
	Type   Direction    `json:"type"`
}

// ListResponse wraps the balance list
type ListResponse struct {
	Balances []*BalanceResponse `json:"balances"`
}

// SummaryResponse represents a balance summary
type SummaryResponse struct {
	OverallBalance  string `json:"overall_balance"`
	TotalYouOwe     string `json:"total_you_owe"`
	TotalOwedToYou  string `json:"total_owed_to_you"`
	NumPeopleYouOwe int    `json:"num_people_you_owe"`
	NumPeopleOweYou int    `json:"num_people_owe_you"`
}

// DetailResponse is the balance with one user plus the shared expense history
type DetailResponse struct {
	BalanceResponse
	SharedExpenses []*expense.ListItemResponse `json:"shared_expenses"`
}

func (b *Balance) ToResponse() *BalanceResponse {
	return &BalanceResponse{
		User:   b.User,
		Amount: b.Amount.StringFixed(money.Places),
		Type:   b.Type,
	}
}

// NewListResponse converts balances to their DTO
func NewListResponse(balances []Balance) *ListResponse {
	out := make([]*BalanceResponse, len(balances))
	for i := range balances {
		out[i] = balances[i].ToResponse()
	}
	return &ListResponse{Balances: out}
}

func (s *Summary) ToResponse() *SummaryResponse {
	return &SummaryResponse{
		OverallBalance:  s.OverallBalance.StringFixed(money.Places),
		TotalYouOwe:     s.TotalYouOwe.StringFixed(money.Places),
		TotalOwedToYou:  s.TotalOwedToYou.StringFixed(money.Places),
		NumPeopleYouOwe: s.NumPeopleYouOwe,
		NumPeopleOweYou: s.NumPeopleOweYou,
	}
}

func (d *Detail) ToResponse() *DetailResponse {
	shared := make([]*expense.ListItemResponse, len(d.SharedExpenses))
	for i := range d.SharedExpenses {
		shared[i] = d.SharedExpenses[i].ToResponse()
	}
	return &DetailResponse{
		BalanceResponse: *d.Balance.ToResponse(),
		SharedExpenses:  shared,
	}
}
