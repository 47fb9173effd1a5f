package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mailledger/backend/internal/model"
)

func signals(keywordAdjacent, defaulted, ambiguous, known bool) Signals {
	return Signals{
		Amount:    AmountResult{Found: true, KeywordAdjacent: keywordAdjacent, Ambiguous: ambiguous},
		Direction: DirectionResult{Defaulted: defaulted},
		Vendor:    VendorResult{Known: known},
	}
}

func TestScoreLevels(t *testing.T) {
	tests := []struct {
		name string
		s    Signals
		want model.Confidence
	}{
		{name: "all strong", s: signals(true, false, false, true), want: model.ConfidenceHigh},
		{name: "generic vendor", s: signals(true, false, false, false), want: model.ConfidenceMedium},
		{name: "ambiguous amount with known vendor", s: signals(true, false, true, true), want: model.ConfidenceMedium},
		{name: "ambiguous amount and generic vendor", s: signals(true, false, true, false), want: model.ConfidenceLow},
		{name: "no qualifying keyword", s: signals(false, false, false, true), want: model.ConfidenceLow},
		{name: "defaulted direction", s: signals(true, true, false, true), want: model.ConfidenceLow},
		{name: "everything weak", s: signals(false, true, true, false), want: model.ConfidenceLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.s))
		})
	}
}

// Improving any single signal must never lower the resulting level.
func TestScoreMonotonic(t *testing.T) {
	bools := []bool{false, true}
	for _, ka := range bools {
		for _, def := range bools {
			for _, amb := range bools {
				for _, known := range bools {
					base := Score(signals(ka, def, amb, known)).Rank()

					assert.GreaterOrEqual(t, Score(signals(true, def, amb, known)).Rank(), base)
					assert.GreaterOrEqual(t, Score(signals(ka, false, amb, known)).Rank(), base)
					assert.GreaterOrEqual(t, Score(signals(ka, def, false, known)).Rank(), base)
					assert.GreaterOrEqual(t, Score(signals(ka, def, amb, true)).Rank(), base)
				}
			}
		}
	}
}

func TestConfidenceRankOrder(t *testing.T) {
	assert.Greater(t, model.ConfidenceHigh.Rank(), model.ConfidenceMedium.Rank())
	assert.Greater(t, model.ConfidenceMedium.Rank(), model.ConfidenceLow.Rank())
}
