package expense

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AnvithShetty10/expense-share/internal/expense/split"
	"github.com/AnvithShetty10/expense-share/internal/money"
	"github.com/AnvithShetty10/expense-share/internal/user"
)

const dateLayout = "2006-01-02"

// ParticipantRequest is one participant of a create or update request
type ParticipantRequest struct {
	UserID     uuid.UUID        `json:"user_id" validate:"required"`
	AmountPaid decimal.Decimal  `json:"amount_paid"`
	AmountOwed *decimal.Decimal `json:"amount_owed,omitempty"` // MANUAL only
	Percentage *decimal.Decimal `json:"percentage,omitempty"`  // PERCENTAGE only
}

// CreateExpenseRequest represents the request to create an expense
type CreateExpenseRequest struct {
	Description  string               `json:"description" validate:"required,min=1,max=500"`
	TotalAmount  decimal.Decimal      `json:"total_amount"`
	ExpenseDate  string               `json:"expense_date" validate:"required,datetime=2006-01-02"`
	GroupName    *string              `json:"group_name,omitempty" validate:"omitempty,max=255"`
	SplitType    split.Kind           `json:"split_type" validate:"required,oneof=EQUAL PERCENTAGE MANUAL"`
	Participants []ParticipantRequest `json:"participants" validate:"required,min=1,dive"`
}

// UpdateExpenseRequest replaces every field and the participant list of an
// expense
type UpdateExpenseRequest CreateExpenseRequest

func (r *CreateExpenseRequest) splitInputs() []split.ParticipantInput {
	inputs := make([]split.ParticipantInput, len(r.Participants))
	for i, p := range r.Participants {
		inputs[i] = split.ParticipantInput{
			UserID:     p.UserID,
			AmountPaid: p.AmountPaid,
			AmountOwed: p.AmountOwed,
			Percentage: p.Percentage,
		}
	}
	return inputs
}

// ExpenseResponse represents the response for an expense
type ExpenseResponse struct {
	ID           string                 `json:"id"`
	Description  string                 `json:"description"`
	TotalAmount  string                 `json:"total_amount"`
	Currency     string                 `json:"currency"`
	ExpenseDate  string                 `json:"expense_date"`
	GroupName    *string                `json:"group_name"`
	SplitType    split.Kind             `json:"split_type"`
	CreatedBy    *user.Summary          `json:"created_by,omitempty"`
	Participants []*ParticipantResponse `json:"participants"`
	CreatedAt    string                 `json:"created_at"`
	UpdatedAt    string                 `json:"updated_at"`
}

// ParticipantResponse represents one participant in an expense response
type ParticipantResponse struct {
	User       *user.Summary `json:"user,omitempty"`
	UserID     string        `json:"user_id"`
	AmountPaid string        `json:"amount_paid"`
	AmountOwed string        `json:"amount_owed"`
	Percentage *string       `json:"percentage,omitempty"`
}

// ListItemResponse represents an expense in list views
type ListItemResponse struct {
	ID          string        `json:"id"`
	Date        string        `json:"date"`
	GroupName   *string       `json:"group_name"`
	Description string        `json:"description"`
	TotalAmount string        `json:"total_amount"`
	YourShare   string        `json:"your_share"`
	ShareType   ShareType     `json:"share_type"`
	CreatedBy   *user.Summary `json:"created_by,omitempty"`
}

// ToResponse converts an Expense model to an ExpenseResponse DTO
func (e *Expense) ToResponse() *ExpenseResponse {
	participants := make([]*ParticipantResponse, len(e.Participants))
	for i := range e.Participants {
		participants[i] = e.Participants[i].ToResponse()
	}

	return &ExpenseResponse{
		ID:           e.ID.String(),
		Description:  e.Description,
		TotalAmount:  e.TotalAmount.StringFixed(money.Places),
		Currency:     e.Currency,
		ExpenseDate:  e.ExpenseDate.Format(dateLayout),
		GroupName:    e.GroupName,
		SplitType:    e.SplitKind,
		CreatedBy:    e.Creator,
		Participants: participants,
		CreatedAt:    e.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    e.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// ToResponse converts a Participant model to a ParticipantResponse DTO
func (p *Participant) ToResponse() *ParticipantResponse {
	resp := &ParticipantResponse{
		User:       p.User,
		UserID:     p.UserID.String(),
		AmountPaid: p.AmountPaid.StringFixed(money.Places),
		AmountOwed: p.AmountOwed.StringFixed(money.Places),
	}
	if p.Percentage != nil {
		pct := p.Percentage.StringFixed(money.Places)
		resp.Percentage = &pct
	}
	return resp
}

// ToResponse converts a ListItem to its DTO
func (li *ListItem) ToResponse() *ListItemResponse {
	return &ListItemResponse{
		ID:          li.ID.String(),
		Date:        li.Date.Format(dateLayout),
		GroupName:   li.GroupName,
		Description: li.Description,
		TotalAmount: li.TotalAmount.StringFixed(money.Places),
		YourShare:   li.YourShare.StringFixed(money.Places),
		ShareType:   li.ShareType,
		CreatedBy:   li.CreatedBy,
	}
}
