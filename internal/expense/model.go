package expense

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AnvithShetty10/expense-share/internal/expense/split"
	"github.com/AnvithShetty10/expense-share/internal/user"
)

// ShareType tells whether a participant is net owed (credit) or net owing
// (debit) on a single expense.
type ShareType string

const (
	ShareCredit ShareType = "credit"
	ShareDebit  ShareType = "debit"
)

// Expense represents an expense in the system
type Expense struct {
	ID          uuid.UUID       `json:"id"`
	Description string          `json:"description"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
	ExpenseDate time.Time       `json:"expense_date"`
	CreatorID   uuid.UUID       `json:"created_by_user_id"`
	GroupName   *string         `json:"group_name,omitempty"`
	SplitKind   split.Kind      `json:"split_type"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Participants []Participant `json:"participants"`

	// Populated via JOIN
	Creator *user.Summary `json:"creator,omitempty"`
}

// Participant is one user's involvement in an expense
type Participant struct {
	ExpenseID  uuid.UUID        `json:"expense_id"`
	UserID     uuid.UUID        `json:"user_id"`
	AmountPaid decimal.Decimal  `json:"amount_paid"`
	AmountOwed decimal.Decimal  `json:"amount_owed"`
	Percentage *decimal.Decimal `json:"percentage,omitempty"`

	// Populated via JOIN
	User *user.Summary `json:"user,omitempty"`
}

// Net is what the participant paid minus what they owe.
func (p *Participant) Net() decimal.Decimal {
	return p.AmountPaid.Sub(p.AmountOwed)
}

// Participation is a single user's participant row together with the full
// expense it belongs to.
type Participation struct {
	Participant
	Expense *Expense
}

// Filter narrows and pages the expenses of one user.
// Limit 0 means unbounded.
type Filter struct {
	StartDate *time.Time
	EndDate   *time.Time
	GroupName *string
	Limit     int
	Offset    int
}

// ListItem is an expense seen from one participant's side
type ListItem struct {
	ID          uuid.UUID       `json:"id"`
	Date        time.Time       `json:"date"`
	GroupName   *string         `json:"group_name"`
	Description string          `json:"description"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	YourShare   decimal.Decimal `json:"your_share"`
	ShareType   ShareType       `json:"share_type"`
	CreatedBy   *user.Summary   `json:"created_by,omitempty"`
}

// Participant returns the participant row of userID, if any
func (e *Expense) Participant(userID uuid.UUID) (*Participant, bool) {
	for i := range e.Participants {
		if e.Participants[i].UserID == userID {
			return &e.Participants[i], true
		}
	}
	return nil, false
}

// HasParticipant reports whether userID takes part in the expense
func (e *Expense) HasParticipant(userID uuid.UUID) bool {
	_, ok := e.Participant(userID)
	return ok
}

// ParticipantIDs lists participant user IDs in stored order
func (e *Expense) ParticipantIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(e.Participants))
	for i, p := range e.Participants {
		ids[i] = p.UserID
	}
	return ids
}

// ListItemFor renders the expense from userID's perspective. ok is false
// when userID is not a participant.
func (e *Expense) ListItemFor(userID uuid.UUID) (ListItem, bool) {
	p, ok := e.Participant(userID)
	if !ok {
		return ListItem{}, false
	}

	// owed-paid > 0 means the user still owes on this expense
	net := p.AmountOwed.Sub(p.AmountPaid)
	shareType := ShareCredit
	if net.IsPositive() {
		shareType = ShareDebit
	}

	return ListItem{
		ID:          e.ID,
		Date:        e.ExpenseDate,
		GroupName:   e.GroupName,
		Description: e.Description,
		TotalAmount: e.TotalAmount,
		YourShare:   net.Abs(),
		ShareType:   shareType,
		CreatedBy:   e.Creator,
	}, true
}
