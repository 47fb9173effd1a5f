// Package eval measures the extraction pipeline against a ground-truth
// corpus of notification emails.
package eval

import (
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mailledger/backend/internal/model"
)

//go:embed fixtures/*.json
var fixtureFS embed.FS

// Case bundles one notification email with its expected extraction outcome.
// A nil Expect means the message must produce no candidate.
type Case struct {
	Name      string    `json:"name"`
	Sender    string    `json:"sender"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	ArrivedAt time.Time `json:"arrived_at"`
	Expect    *Expected `json:"expect"`
}

// Expected is the ground truth for one case. Amount is a decimal string so
// fixtures stay exact; OccurredOn compares the calendar date only.
type Expected struct {
	Amount     string           `json:"amount"`
	Currency   string           `json:"currency"`
	Direction  model.Direction  `json:"direction"`
	Vendor     string           `json:"vendor"`
	Category   model.Category   `json:"category"`
	Confidence model.Confidence `json:"confidence"`
	OccurredOn string           `json:"occurred_on"`
}

// AmountDecimal parses the expected amount.
func (e *Expected) AmountDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(e.Amount)
}

// Message converts the case into the extractor's input shape.
func (c *Case) Message() model.RawMessage {
	return model.RawMessage{
		ID:        "fixture-" + c.Name,
		ArrivedAt: c.ArrivedAt,
		Sender:    c.Sender,
		Subject:   c.Subject,
		Body:      c.Body,
	}
}

// LoadCorpus loads the embedded ground-truth corpus.
func LoadCorpus() ([]*Case, error) {
	raw, err := fixtureFS.ReadFile("fixtures/corpus.json")
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	var cases []*Case
	if err := json.Unmarshal(raw, &cases); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	return cases, nil
}
