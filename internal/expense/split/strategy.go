package split

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/AnvithShetty10/expense-share/internal/apperrors"
	"github.com/AnvithShetty10/expense-share/internal/money"
)

// Kind defines how an expense is divided among its participants
type Kind string

const (
	KindEqual      Kind = "EQUAL"
	KindPercentage Kind = "PERCENTAGE"
	KindManual     Kind = "MANUAL"
)

// Valid reports whether k is one of the supported kinds
func (k Kind) Valid() bool {
	switch k {
	case KindEqual, KindPercentage, KindManual:
		return true
	}
	return false
}

// ParticipantInput is one participant as submitted with an expense
type ParticipantInput struct {
	UserID     uuid.UUID        `json:"user_id"`
	AmountPaid decimal.Decimal  `json:"amount_paid"`
	AmountOwed *decimal.Decimal `json:"amount_owed,omitempty"` // MANUAL only
	Percentage *decimal.Decimal `json:"percentage,omitempty"`  // PERCENTAGE only
}

// ParticipantSplit is the calculated owed amount for one participant
type ParticipantSplit struct {
	UserID     uuid.UUID       `json:"user_id"`
	AmountOwed decimal.Decimal `json:"amount_owed"`
}

// Strategy is implemented once per Kind
type Strategy interface {
	// Calculate computes the owed amount of every participant, in input order
	Calculate(totalAmount decimal.Decimal, participants []ParticipantInput) ([]ParticipantSplit, error)

	// Kind returns the kind this strategy implements
	Kind() Kind
}

// For returns the strategy implementing kind
func For(kind Kind) (Strategy, error) {
	switch kind {
	case KindEqual:
		return EqualStrategy{}, nil
	case KindPercentage:
		return PercentageStrategy{}, nil
	case KindManual:
		return ManualStrategy{}, nil
	default:
		return nil, apperrors.Validationf("unknown split type: %s", kind)
	}
}

// Calculate resolves the strategy for kind and runs it
func Calculate(totalAmount decimal.Decimal, participants []ParticipantInput, kind Kind) ([]ParticipantSplit, error) {
	strategy, err := For(kind)
	if err != nil {
		return nil, err
	}
	return strategy.Calculate(totalAmount, participants)
}

// ValidatePaidTotal checks that what participants paid adds up to the expense total
func ValidatePaidTotal(totalAmount decimal.Decimal, participants []ParticipantInput) error {
	paid := decimal.Zero
	for _, p := range participants {
		paid = paid.Add(p.AmountPaid)
	}
	if !money.WithinTolerance(paid, totalAmount) {
		return apperrors.Validationf("sum of amounts paid (%s) must equal total amount (%s)", paid, totalAmount)
	}
	return nil
}

// ValidateOwedTotal checks that calculated shares add up to the expense total
func ValidateOwedTotal(totalAmount decimal.Decimal, splits []ParticipantSplit) error {
	owed := Total(splits)
	if !money.WithinTolerance(owed, totalAmount) {
		return apperrors.Validationf("sum of amounts owed (%s) must equal total amount (%s)", owed, totalAmount)
	}
	return nil
}

// Total sums the owed amounts of splits
func Total(splits []ParticipantSplit) decimal.Decimal {
	total := decimal.Zero
	for _, s := range splits {
		total = total.Add(s.AmountOwed)
	}
	return total
}

// assignRemainder moves whatever rounding left unassigned onto the last split
func assignRemainder(totalAmount decimal.Decimal, splits []ParticipantSplit) {
	if len(splits) == 0 {
		return
	}
	diff := totalAmount.Sub(Total(splits))
	if !diff.IsZero() {
		last := len(splits) - 1
		splits[last].AmountOwed = splits[last].AmountOwed.Add(diff)
	}
}

func describe(p ParticipantInput) string {
	return fmt.Sprintf("participant %s", p.UserID)
}
