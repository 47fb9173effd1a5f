package extract

import "github.com/mailledger/backend/internal/model"

// Signals bundles the per-field outcomes feeding the confidence scorer.
type Signals struct {
	Amount    AmountResult
	Direction DirectionResult
	Vendor    VendorResult
}

// Score reduces per-field certainty into one discrete level:
//
//	high:   unambiguous keyword-adjacent amount AND a rule-table vendor hit
//	medium: unambiguous amount with a generic vendor, or a known vendor with
//	        an ambiguous amount match
//	low:    amount lacked a qualifying keyword, direction had to default, or
//	        both vendor and amount fell back
//
// Low conditions dominate. The result is always exactly one of the three
// levels; the review UI filters on them, so no numeric score leaks out.
func Score(s Signals) model.Confidence {
	if !s.Amount.KeywordAdjacent || s.Direction.Defaulted {
		return model.ConfidenceLow
	}
	if s.Amount.Ambiguous && !s.Vendor.Known {
		return model.ConfidenceLow
	}
	if !s.Amount.Ambiguous && s.Vendor.Known {
		return model.ConfidenceHigh
	}
	return model.ConfidenceMedium
}
