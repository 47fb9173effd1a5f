package extract

import (
	"strings"

	"github.com/mailledger/backend/internal/model"
)

// DirectionResult carries the classified direction and whether the classifier
// had to fall back to the conservative default.
type DirectionResult struct {
	Direction model.Direction
	Defaulted bool
}

// Cue keyword sets. Matching is case-insensitive substring matching over
// subject + body.
var (
	debitCues  = []string{"debited", "spent", "paid", "withdrawn", "purchase", "charged", "sent to"}
	creditCues = []string{"credited", "received", "deposit", "refund", "cashback", "salary"}
)

// DirectionClassifier decides debit vs credit from keyword evidence.
type DirectionClassifier struct{}

// Classify inspects text for direction cues. When both debit and credit cues
// appear (a refund notice mentioning the original debit, say) the cue nearest
// to amountOffset wins; a residual tie resolves to debit. With no cue at all
// the result is debit with Defaulted=true so the scorer can downgrade it;
// the pipeline always produces a reviewable guess.
func (DirectionClassifier) Classify(text string, amountOffset int) DirectionResult {
	lower := strings.ToLower(text)

	debitDist := nearestCueDistance(lower, debitCues, amountOffset)
	creditDist := nearestCueDistance(lower, creditCues, amountOffset)

	switch {
	case debitDist < 0 && creditDist < 0:
		return DirectionResult{Direction: model.DirectionDebit, Defaulted: true}
	case creditDist < 0:
		return DirectionResult{Direction: model.DirectionDebit}
	case debitDist < 0:
		return DirectionResult{Direction: model.DirectionCredit}
	case creditDist < debitDist:
		return DirectionResult{Direction: model.DirectionCredit}
	default:
		// Equidistant ties are treated as debit: misfiling income as an
		// expense is the less damaging mistake when every entry is reviewed.
		return DirectionResult{Direction: model.DirectionDebit}
	}
}

// nearestCueDistance returns the smallest distance from amountOffset to any
// occurrence of any cue, or -1 when no cue is present.
func nearestCueDistance(lower string, cues []string, amountOffset int) int {
	best := -1
	for _, cue := range cues {
		from := 0
		for {
			i := strings.Index(lower[from:], cue)
			if i < 0 {
				break
			}
			pos := from + i
			d := pos - amountOffset
			if d < 0 {
				d = -d
			}
			if best < 0 || d < best {
				best = d
			}
			from = pos + len(cue)
		}
	}
	return best
}
