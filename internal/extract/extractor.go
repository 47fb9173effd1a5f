package extract

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mailledger/backend/internal/model"
)

const snippetRadius = 60

// Extractor runs the full extraction pipeline over one normalized message.
// It is a pure function of its input: no network, no storage, safe for
// concurrent use across messages and users.
type Extractor struct {
	amounts    *AmountNormalizer
	directions DirectionClassifier
	vendors    *VendorResolver
}

// New creates an extractor. defaultCurrency applies to keyword-qualified
// amounts with no currency marker.
func New(defaultCurrency string) *Extractor {
	return &Extractor{
		amounts: NewAmountNormalizer(defaultCurrency),
		vendors: NewVendorResolver(),
	}
}

// Extract yields zero or one candidate for a message. It returns nil only
// when no qualified amount is discoverable; a message with no amount is not
// a transaction. Any other partial failure degrades confidence instead;
// the human reviewer decides.
//
// The extractor takes ownership of the message body: only the derived
// candidate and a short review snippet survive this call.
func (e *Extractor) Extract(msg model.RawMessage) *model.ExtractedTransaction {
	text := msg.Subject + "\n" + msg.Body

	amount := e.amounts.Normalize(text)
	if !amount.Found {
		return nil
	}

	direction := e.directions.Classify(text, amount.Offset)
	vendor := e.vendors.Resolve(msg.Sender, msg.Subject, msg.Body)

	occurredAt := parseOccurredAt(text)
	if occurredAt.IsZero() {
		occurredAt = msg.ArrivedAt
	}

	return &model.ExtractedTransaction{
		SourceMessageID: msg.ID,
		Amount:          amount.Amount,
		Currency:        amount.Currency,
		Direction:       direction.Direction,
		Vendor:          vendor.Vendor,
		Category:        vendor.Category,
		OccurredAt:      occurredAt,
		Confidence: Score(Signals{
			Amount:    amount,
			Direction: direction,
			Vendor:    vendor,
		}),
		Snippet: snippet(text, amount.Offset),
	}
}

// dateTokenRe finds date-like substrings worth trying against dateFormats.
var dateTokenRe = regexp.MustCompile(
	`(?i)\b(?:\d{4}-\d{2}-\d{2}|\d{1,2}[-/.](?:\d{1,2}|[A-Za-z]{3})[-/.]\d{2,4}|\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?,?\s+\d{2,4})\b`)

// dateFormats to try, most specific first.
var dateFormats = []string{
	"2006-01-02",
	"02-Jan-2006",
	"2-Jan-2006",
	"02-Jan-06",
	"2-Jan-06",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"02/01/06",
	"2/1/06",
	"2 January 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 Jan 06",
}

// parseOccurredAt returns the first parseable date token in the text, or the
// zero time when none parses.
func parseOccurredAt(text string) time.Time {
	for _, token := range dateTokenRe.FindAllString(text, 4) {
		token = strings.TrimSuffix(strings.TrimSpace(token), ",")
		for _, format := range dateFormats {
			if t, err := time.Parse(format, token); err == nil {
				return t.UTC()
			}
		}
	}
	return time.Time{}
}

// snippet cuts a short, whitespace-collapsed window around the amount match
// for human review. The full body is never retained. Window edges that land
// inside a multibyte rune (₹ spans three bytes) widen to the rune boundary
// so the snippet stays valid UTF-8.
func snippet(text string, offset int) string {
	lo := offset - snippetRadius
	if lo < 0 {
		lo = 0
	}
	hi := offset + snippetRadius
	if hi > len(text) {
		hi = len(text)
	}
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi++
	}
	return strings.Join(strings.Fields(text[lo:hi]), " ")
}
