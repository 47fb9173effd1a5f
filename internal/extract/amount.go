// Package extract turns unstructured financial notification text into
// structured transaction candidates.
package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountResult is the outcome of scanning text for a monetary amount.
// Found=false is a normal outcome for messages that carry no amount at all.
type AmountResult struct {
	Found           bool
	Amount          decimal.Decimal
	Currency        string
	Offset          int  // rune-safe byte offset of the numeric match
	KeywordAdjacent bool // a monetary keyword sits within the adjacency window
	Ambiguous       bool // multiple distinct qualified values competed
}

// keywordWindow bounds how far (in bytes) a monetary keyword may sit from the
// digits for the match to count as keyword-qualified.
const keywordWindow = 40

// maxAmountDigits guards against bare reference numbers being read as money.
const maxAmountDigits = 9

// currencyMarkers maps surface forms to ISO currency codes. Longer markers
// must be listed before their prefixes so the regex alternation prefers them.
var currencyMarkers = []struct {
	marker string
	code   string
}{
	{"rupees", "INR"},
	{"inr", "INR"},
	{"rs.", "INR"},
	{"rs", "INR"},
	{"₹", "INR"},
	{"usd", "USD"},
	{"us$", "USD"},
	{"a$", "AUD"},
	{"aud", "AUD"},
	{"eur", "EUR"},
	{"€", "EUR"},
	{"gbp", "GBP"},
	{"£", "GBP"},
	{"$", "USD"},
}

// monetaryKeywords qualify a nearby number as money and break ties between
// multiple amount-like substrings (a total line beats a bare first match).
var monetaryKeywords = []string{
	"total", "paid", "debited", "credited", "charged", "amount",
	"withdrawn", "received", "payment", "purchase", "spent",
	"transferred", "deposit", "refund", "cashback", "salary",
}

// nonMonetaryUnits disqualify a bare number that quantifies something other
// than money. Promotional mail puts "500 bonus points" right next to words
// like "purchase", so the keyword window alone cannot tell them apart.
var nonMonetaryUnits = []string{"points", "pts", "rewards", "coins", "miles"}

// numberPattern accepts western (3,450.00) and Indian (1,23,456.00) digit
// grouping, or an ungrouped digit run, with 0-2 decimal places. The grouped
// alternative comes first so "3,450" is not split at the comma.
const numberPattern = `(?:[0-9]{1,3}(?:,[0-9]{2,3})+|[0-9]+)(?:\.[0-9]{1,2})?`

// The alphabetic markers need a leading word boundary so the "rs" tail of an
// English plural ("offers 500") is not read as a rupee marker. The symbol
// markers cannot take one: \b never matches before a non-word byte.
var (
	markerNumberRe = regexp.MustCompile(`(?i)(\b(?:RUPEES|INR|RS\.?|USD|US\$|A\$|AUD|EUR|GBP)|₹|€|£|\$)\s*(` + numberPattern + `)`)
	numberMarkerRe = regexp.MustCompile(`(?i)(` + numberPattern + `)\s*(INR|USD|AUD|EUR|GBP|RUPEES)\b`)
	bareNumberRe   = regexp.MustCompile(numberPattern)
)

type amountCandidate struct {
	value       decimal.Decimal
	currency    string
	offset      int
	hasMarker   bool
	keywordNear bool
}

// AmountNormalizer finds the most plausible monetary amount in free text.
type AmountNormalizer struct {
	defaultCurrency string
}

// NewAmountNormalizer creates a normalizer. defaultCurrency is used for
// keyword-qualified numbers that carry no currency marker.
func NewAmountNormalizer(defaultCurrency string) *AmountNormalizer {
	if defaultCurrency == "" {
		defaultCurrency = "INR"
	}
	return &AmountNormalizer{defaultCurrency: defaultCurrency}
}

// Normalize scans text and returns the best qualified amount, preferring
// matches adjacent to a monetary keyword over a bare first match. Numbers
// with neither a currency marker nor a nearby monetary keyword are treated
// as reference numbers and ignored.
func (n *AmountNormalizer) Normalize(text string) AmountResult {
	lower := strings.ToLower(text)
	candidates := n.collect(text, lower)
	if len(candidates) == 0 {
		return AmountResult{}
	}

	var adjacent []amountCandidate
	for _, c := range candidates {
		if c.keywordNear {
			adjacent = append(adjacent, c)
		}
	}

	pool := candidates
	keywordAdjacent := false
	if len(adjacent) > 0 {
		pool = adjacent
		keywordAdjacent = true
	}

	chosen := pool[0]
	ambiguous := false
	for _, c := range pool[1:] {
		if !c.value.Equal(chosen.value) {
			ambiguous = true
			break
		}
	}

	return AmountResult{
		Found:           true,
		Amount:          chosen.value,
		Currency:        chosen.currency,
		Offset:          chosen.offset,
		KeywordAdjacent: keywordAdjacent,
		Ambiguous:       ambiguous,
	}
}

// collect gathers every qualified amount candidate in document order.
func (n *AmountNormalizer) collect(text, lower string) []amountCandidate {
	var out []amountCandidate
	seen := make(map[int]bool) // offsets of number spans already claimed

	for _, m := range markerNumberRe.FindAllStringSubmatchIndex(text, -1) {
		numStart, numEnd := m[4], m[5]
		value, ok := parseDecimal(text[numStart:numEnd])
		if !ok {
			continue
		}
		seen[numStart] = true
		out = append(out, amountCandidate{
			value:       value,
			currency:    markerCode(text[m[2]:m[3]]),
			offset:      numStart,
			hasMarker:   true,
			keywordNear: keywordWithin(lower, numStart, numEnd),
		})
	}

	for _, m := range numberMarkerRe.FindAllStringSubmatchIndex(text, -1) {
		numStart, numEnd := m[2], m[3]
		if seen[numStart] {
			continue
		}
		value, ok := parseDecimal(text[numStart:numEnd])
		if !ok {
			continue
		}
		seen[numStart] = true
		out = append(out, amountCandidate{
			value:       value,
			currency:    markerCode(text[m[4]:m[5]]),
			offset:      numStart,
			hasMarker:   true,
			keywordNear: keywordWithin(lower, numStart, numEnd),
		})
	}

	// Bare numbers qualify only via a nearby monetary keyword. Fragments of
	// dates, times and hyphenated references are skipped, as are 1-2 digit
	// integers (day-of-month noise) and counts of non-monetary units.
	for _, m := range bareNumberRe.FindAllStringIndex(text, -1) {
		numStart, numEnd := m[0], m[1]
		if seen[numStart] || !keywordWithin(lower, numStart, numEnd) {
			continue
		}
		if adjoinsSeparator(text, numStart, numEnd) || quantifiesUnit(lower, numEnd) {
			continue
		}
		if !strings.Contains(text[numStart:numEnd], ".") && numEnd-numStart < 3 {
			continue
		}
		value, ok := parseDecimal(text[numStart:numEnd])
		if !ok {
			continue
		}
		out = append(out, amountCandidate{
			value:       value,
			currency:    n.defaultCurrency,
			offset:      numStart,
			keywordNear: true,
		})
	}

	// Restore document order across the three passes.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].offset < out[j-1].offset; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// parseDecimal strips grouping separators and parses the digits, rejecting
// zero amounts and digit runs long enough to be reference numbers.
func parseDecimal(s string) (decimal.Decimal, bool) {
	cleaned := strings.ReplaceAll(s, ",", "")
	digits := len(cleaned)
	if i := strings.IndexByte(cleaned, '.'); i >= 0 {
		digits = i
	}
	if digits > maxAmountDigits {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

// adjoinsSeparator reports whether the span touches a date/time/reference
// separator, e.g. the "05" in "05-Dec-23" or the "04" in "15:04".
func adjoinsSeparator(text string, start, end int) bool {
	if start > 0 {
		switch text[start-1] {
		case '-', '/', ':', '.':
			return true
		}
	}
	if end < len(text) {
		switch text[end] {
		case '-', '/', ':':
			return true
		}
	}
	return false
}

// quantifiesUnit reports whether the number is followed within two words by a
// non-monetary unit, as in "500 points" or "500 bonus points".
func quantifiesUnit(lower string, end int) bool {
	words := strings.Fields(lower[end:])
	if len(words) > 2 {
		words = words[:2]
	}
	for _, w := range words {
		w = strings.Trim(w, ".,;:!")
		for _, unit := range nonMonetaryUnits {
			if w == unit {
				return true
			}
		}
	}
	return false
}

func markerCode(marker string) string {
	m := strings.ToLower(strings.TrimSpace(marker))
	for _, cm := range currencyMarkers {
		if m == cm.marker {
			return cm.code
		}
	}
	return "INR"
}

// keywordWithin reports whether a monetary keyword occurs within
// keywordWindow bytes on either side of the span [start, end).
func keywordWithin(lower string, start, end int) bool {
	lo := start - keywordWindow
	if lo < 0 {
		lo = 0
	}
	hi := end + keywordWindow
	if hi > len(lower) {
		hi = len(lower)
	}
	window := lower[lo:hi]
	for _, kw := range monetaryKeywords {
		if strings.Contains(window, kw) {
			return true
		}
	}
	return false
}
