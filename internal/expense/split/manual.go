package split

import (
	"github.com/shopspring/decimal"

	"github.com/AnvithShetty10/expense-share/internal/apperrors"
	"github.com/AnvithShetty10/expense-share/internal/money"
)

// =============================================================================
// MANUAL SPLIT STRATEGY
// Each participant owes a specific amount (must sum to total within a cent)
// =============================================================================

// ManualStrategy implements the Strategy interface for explicit amounts
type ManualStrategy struct{}

// Kind returns the split kind identifier
func (ManualStrategy) Kind() Kind {
	return KindManual
}

// Validate checks every amount is present and non-negative and that they sum to the total
func (ManualStrategy) Validate(totalAmount decimal.Decimal, participants []ParticipantInput) error {
	total := decimal.Zero
	for _, p := range participants {
		if p.AmountOwed == nil {
			return apperrors.Validationf("amount owed required for %s", describe(p))
		}
		if p.AmountOwed.IsNegative() {
			return apperrors.Validationf("amount owed cannot be negative, got %s", *p.AmountOwed)
		}
		total = total.Add(*p.AmountOwed)
	}

	if !money.WithinTolerance(total, totalAmount) {
		return apperrors.Validationf("sum of manual amounts (%s) must equal total amount (%s)", total, totalAmount)
	}
	return nil
}

// Calculate returns the supplied amounts unchanged. A sum that is off by up to
// one cent is accepted and not reconciled.
func (s ManualStrategy) Calculate(totalAmount decimal.Decimal, participants []ParticipantInput) ([]ParticipantSplit, error) {
	if len(participants) == 0 {
		return []ParticipantSplit{}, nil
	}
	if err := s.Validate(totalAmount, participants); err != nil {
		return nil, err
	}

	splits := make([]ParticipantSplit, len(participants))
	for i, p := range participants {
		splits[i] = ParticipantSplit{UserID: p.UserID, AmountOwed: *p.AmountOwed}
	}
	return splits, nil
}
