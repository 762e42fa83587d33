package split

import (
	"github.com/shopspring/decimal"

	"github.com/AnvithShetty10/expense-share/internal/money"
)

// =============================================================================
// EQUAL SPLIT STRATEGY
// Every participant owes the same share; the last one absorbs the rounding
// =============================================================================

// EqualStrategy divides the total evenly among all participants
type EqualStrategy struct{}

// Kind returns the split kind identifier
func (EqualStrategy) Kind() Kind {
	return KindEqual
}

// Calculate gives each participant round(total/N) and adds the remainder to the last one
func (EqualStrategy) Calculate(totalAmount decimal.Decimal, participants []ParticipantInput) ([]ParticipantSplit, error) {
	if len(participants) == 0 {
		return []ParticipantSplit{}, nil
	}

	n := decimal.NewFromInt(int64(len(participants)))
	share := money.Round(totalAmount.DivRound(n, 16))

	splits := make([]ParticipantSplit, len(participants))
	for i, p := range participants {
		splits[i] = ParticipantSplit{UserID: p.UserID, AmountOwed: share}
	}

	assignRemainder(totalAmount, splits)
	return splits, nil
}
