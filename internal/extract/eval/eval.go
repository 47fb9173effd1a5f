package eval

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mailledger/backend/internal/extract"
)

// CaseResult records one case's per-field comparison.
type CaseResult struct {
	Name         string
	DetectionOK  bool // produced a candidate exactly when one was expected
	AmountOK     bool
	CurrencyOK   bool
	DirectionOK  bool
	VendorOK     bool
	CategoryOK   bool
	ConfidenceOK bool
	DateOK       bool
	Err          string // fixture problem, not an extraction miss
}

// Report aggregates accuracy across the corpus. Field accuracies are
// computed over cases that expect a candidate; detection covers all cases.
type Report struct {
	Cases []CaseResult

	DetectionAccuracy  float64
	AmountAccuracy     float64
	DirectionAccuracy  float64
	VendorAccuracy     float64
	ConfidenceAccuracy float64
	DateAccuracy       float64
}

// Evaluate runs the extractor over every case and scores the output.
func Evaluate(ex *extract.Extractor, cases []*Case) *Report {
	report := &Report{}
	var expected, detectOK, amountOK, directionOK, vendorOK, confidenceOK, dateOK int

	for _, c := range cases {
		got := ex.Extract(c.Message())
		result := CaseResult{Name: c.Name}

		if c.Expect == nil {
			result.DetectionOK = got == nil
			if result.DetectionOK {
				detectOK++
			}
			report.Cases = append(report.Cases, result)
			continue
		}

		expected++
		if got == nil {
			report.Cases = append(report.Cases, result)
			continue
		}
		result.DetectionOK = true
		detectOK++

		want, err := c.Expect.AmountDecimal()
		if err != nil {
			result.Err = err.Error()
			report.Cases = append(report.Cases, result)
			continue
		}

		result.AmountOK = got.Amount.Equal(want)
		result.CurrencyOK = got.Currency == c.Expect.Currency
		result.DirectionOK = got.Direction == c.Expect.Direction
		result.VendorOK = got.Vendor == c.Expect.Vendor
		result.CategoryOK = got.Category == c.Expect.Category
		result.ConfidenceOK = got.Confidence == c.Expect.Confidence
		result.DateOK = got.OccurredAt.UTC().Format("2006-01-02") == c.Expect.OccurredOn

		if result.AmountOK && result.CurrencyOK {
			amountOK++
		}
		if result.DirectionOK {
			directionOK++
		}
		if result.VendorOK && result.CategoryOK {
			vendorOK++
		}
		if result.ConfidenceOK {
			confidenceOK++
		}
		if result.DateOK {
			dateOK++
		}
		report.Cases = append(report.Cases, result)
	}

	if len(cases) > 0 {
		report.DetectionAccuracy = float64(detectOK) / float64(len(cases))
	}
	if expected > 0 {
		report.AmountAccuracy = float64(amountOK) / float64(expected)
		report.DirectionAccuracy = float64(directionOK) / float64(expected)
		report.VendorAccuracy = float64(vendorOK) / float64(expected)
		report.ConfidenceAccuracy = float64(confidenceOK) / float64(expected)
		report.DateAccuracy = float64(dateOK) / float64(expected)
	}
	return report
}

// PrintSummary writes a per-case table plus the aggregate accuracies.
func PrintSummary(w io.Writer, report *Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Case\tDetect\tAmt\tDir\tVendor\tConf\tDate")
	fmt.Fprintln(tw, "----\t------\t---\t---\t------\t----\t----")
	for _, r := range report.Cases {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Name, mark(r.DetectionOK), mark(r.AmountOK && r.CurrencyOK),
			mark(r.DirectionOK), mark(r.VendorOK && r.CategoryOK),
			mark(r.ConfidenceOK), mark(r.DateOK))
	}
	tw.Flush()

	fmt.Fprintf(w, "\ndetection=%.2f amount=%.2f direction=%.2f vendor=%.2f confidence=%.2f date=%.2f\n",
		report.DetectionAccuracy, report.AmountAccuracy, report.DirectionAccuracy,
		report.VendorAccuracy, report.ConfidenceAccuracy, report.DateAccuracy)
}

func mark(ok bool) string {
	if ok {
		return "ok"
	}
	return "MISS"
}
