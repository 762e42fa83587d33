package split

import (
	"github.com/shopspring/decimal"

	"github.com/AnvithShetty10/expense-share/internal/apperrors"
	"github.com/AnvithShetty10/expense-share/internal/money"
)

// =============================================================================
// PERCENTAGE SPLIT STRATEGY
// Divides the expense based on specified percentages for each participant
// =============================================================================

// PercentageStrategy implements the Strategy interface for percentage-based splits
type PercentageStrategy struct{}

// Kind returns the split kind identifier
func (PercentageStrategy) Kind() Kind {
	return KindPercentage
}

// Validate checks every percentage is present and in range and that they sum to 100
func (PercentageStrategy) Validate(participants []ParticipantInput) error {
	total := decimal.Zero
	for _, p := range participants {
		if p.Percentage == nil {
			return apperrors.Validationf("percentage value required for %s", describe(p))
		}
		pct := *p.Percentage
		if pct.IsNegative() || pct.GreaterThan(money.Hundred) {
			return apperrors.Validationf("percentage must be between 0 and 100, got %s", pct)
		}
		total = total.Add(pct)
	}

	// 99.99 to 100.01 is accepted
	if !money.WithinTolerance(total, money.Hundred) {
		return apperrors.Validationf("percentages must sum to 100%%, got %s%%", total)
	}
	return nil
}

// Calculate assigns round(total*pct/100) to each participant; the last one absorbs the remainder
func (s PercentageStrategy) Calculate(totalAmount decimal.Decimal, participants []ParticipantInput) ([]ParticipantSplit, error) {
	if len(participants) == 0 {
		return []ParticipantSplit{}, nil
	}
	if err := s.Validate(participants); err != nil {
		return nil, err
	}

	splits := make([]ParticipantSplit, len(participants))
	for i, p := range participants {
		amount := totalAmount.Mul(*p.Percentage).Div(money.Hundred)
		splits[i] = ParticipantSplit{UserID: p.UserID, AmountOwed: money.Round(amount)}
	}

	assignRemainder(totalAmount, splits)
	return splits, nil
}
