package extract

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mailledger/backend/internal/model"
)

// VendorResult is a resolved counterparty. Known=true means a rule-table hit;
// Known=false means a generic context label or the cleaned fallback name.
type VendorResult struct {
	Vendor   string
	Category model.Category
	Known    bool
}

// VendorRule maps a matcher token to a canonical vendor and category.
// MatchSender rules are evaluated against the sender address; the rest
// against subject + body. Rules are evaluated in slice order, so more
// specific entries belong earlier.
type VendorRule struct {
	Pattern     string
	MatchSender bool
	Vendor      string
	Category    model.Category
}

// defaultVendorRules is the built-in recognition table, highest priority
// first. Salary and interest notifications are deliberately table entries
// rather than generic fallbacks: a "Net Salary" credit is as identifiable as
// any brand token.
var defaultVendorRules = []VendorRule{
	// Sender-address rules
	{Pattern: "bigbasket", MatchSender: true, Vendor: "BigBasket", Category: model.CategoryGroceries},
	{Pattern: "swiggy", MatchSender: true, Vendor: "Swiggy", Category: model.CategoryFood},
	{Pattern: "zomato", MatchSender: true, Vendor: "Zomato", Category: model.CategoryFood},
	{Pattern: "uber", MatchSender: true, Vendor: "Uber", Category: model.CategoryTransport},
	{Pattern: "olacabs", MatchSender: true, Vendor: "Ola", Category: model.CategoryTransport},
	{Pattern: "amazon", MatchSender: true, Vendor: "Amazon", Category: model.CategoryShopping},
	{Pattern: "flipkart", MatchSender: true, Vendor: "Flipkart", Category: model.CategoryShopping},
	{Pattern: "netflix", MatchSender: true, Vendor: "Netflix", Category: model.CategoryEntertainment},
	{Pattern: "spotify", MatchSender: true, Vendor: "Spotify", Category: model.CategoryEntertainment},
	{Pattern: "makemytrip", MatchSender: true, Vendor: "MakeMyTrip", Category: model.CategoryTravel},
	{Pattern: "irctc", MatchSender: true, Vendor: "IRCTC", Category: model.CategoryTravel},

	// Brand tokens in subject/body
	{Pattern: "bigbasket", Vendor: "BigBasket", Category: model.CategoryGroceries},
	{Pattern: "blinkit", Vendor: "Blinkit", Category: model.CategoryGroceries},
	{Pattern: "zepto", Vendor: "Zepto", Category: model.CategoryGroceries},
	{Pattern: "swiggy", Vendor: "Swiggy", Category: model.CategoryFood},
	{Pattern: "zomato", Vendor: "Zomato", Category: model.CategoryFood},
	{Pattern: "dominos", Vendor: "Domino's", Category: model.CategoryFood},
	{Pattern: "mcdonald", Vendor: "McDonald's", Category: model.CategoryFood},
	{Pattern: "starbucks", Vendor: "Starbucks", Category: model.CategoryFood},
	{Pattern: "uber eats", Vendor: "Uber Eats", Category: model.CategoryFood},
	{Pattern: "uber", Vendor: "Uber", Category: model.CategoryTransport},
	{Pattern: "ola cabs", Vendor: "Ola", Category: model.CategoryTransport},
	{Pattern: "rapido", Vendor: "Rapido", Category: model.CategoryTransport},
	{Pattern: "indian oil", Vendor: "Indian Oil", Category: model.CategoryTransport},
	{Pattern: "amazon", Vendor: "Amazon", Category: model.CategoryShopping},
	{Pattern: "flipkart", Vendor: "Flipkart", Category: model.CategoryShopping},
	{Pattern: "myntra", Vendor: "Myntra", Category: model.CategoryShopping},
	{Pattern: "ikea", Vendor: "IKEA", Category: model.CategoryShopping},
	{Pattern: "netflix", Vendor: "Netflix", Category: model.CategoryEntertainment},
	{Pattern: "spotify", Vendor: "Spotify", Category: model.CategoryEntertainment},
	{Pattern: "bookmyshow", Vendor: "BookMyShow", Category: model.CategoryEntertainment},
	{Pattern: "airtel", Vendor: "Airtel", Category: model.CategoryUtilities},
	{Pattern: "jio", Vendor: "Jio", Category: model.CategoryUtilities},
	{Pattern: "vodafone", Vendor: "Vodafone", Category: model.CategoryUtilities},
	{Pattern: "tata power", Vendor: "Tata Power", Category: model.CategoryUtilities},
	{Pattern: "makemytrip", Vendor: "MakeMyTrip", Category: model.CategoryTravel},
	{Pattern: "irctc", Vendor: "IRCTC", Category: model.CategoryTravel},
	{Pattern: "indigo", Vendor: "IndiGo", Category: model.CategoryTravel},
	{Pattern: "airbnb", Vendor: "Airbnb", Category: model.CategoryTravel},
	{Pattern: "apollo pharmacy", Vendor: "Apollo Pharmacy", Category: model.CategoryHealthcare},
	{Pattern: "pharmeasy", Vendor: "PharmEasy", Category: model.CategoryHealthcare},
	{Pattern: "1mg", Vendor: "Tata 1mg", Category: model.CategoryHealthcare},

	// Recognizable non-brand counterparties
	{Pattern: "salary", Vendor: "Salary", Category: model.CategorySalary},
	{Pattern: "interest credited", Vendor: "Interest", Category: model.CategoryInterest},
	{Pattern: "interest earned", Vendor: "Interest", Category: model.CategoryInterest},
}

// contextLabel is a best-effort generic label used when no vendor rule
// matches; it keeps the candidate reviewable instead of failing.
type contextLabel struct {
	Pattern  string
	Vendor   string
	Category model.Category
}

var contextLabels = []contextLabel{
	{Pattern: "atm", Vendor: "ATM", Category: model.CategoryCash},
	{Pattern: "upi", Vendor: "UPI Transfer", Category: model.CategoryTransfer},
	{Pattern: "neft", Vendor: "Bank Transfer", Category: model.CategoryTransfer},
	{Pattern: "imps", Vendor: "Bank Transfer", Category: model.CategoryTransfer},
	{Pattern: "rtgs", Vendor: "Bank Transfer", Category: model.CategoryTransfer},
	{Pattern: "emi", Vendor: "EMI", Category: model.CategoryOther},
	{Pattern: "card", Vendor: "Card Payment", Category: model.CategoryOther},
}

// VendorResolver maps message context to a counterparty and category.
type VendorResolver struct {
	rules []VendorRule
}

// NewVendorResolver builds a resolver over the default rule table.
func NewVendorResolver() *VendorResolver {
	return NewVendorResolverWithRules(defaultVendorRules)
}

// NewVendorResolverWithRules builds a resolver over a custom rule table,
// evaluated in the given order.
func NewVendorResolverWithRules(rules []VendorRule) *VendorResolver {
	return &VendorResolver{rules: rules}
}

var senderNameRe = regexp.MustCompile(`(?i)@(?:mail\.|alerts?\.|notify\.|noreply\.)?([a-z0-9-]+)\.`)

// Resolve extracts a counterparty from the sender address and message text.
// It never fails: an unrecognized counterparty degrades to a context label
// and finally to a cleaned sender-derived name with category Other.
func (r *VendorResolver) Resolve(sender, subject, body string) VendorResult {
	senderLower := strings.ToLower(sender)
	textLower := strings.ToLower(subject + "\n" + body)

	for _, rule := range r.rules {
		if rule.MatchSender {
			if strings.Contains(senderLower, rule.Pattern) {
				return VendorResult{Vendor: rule.Vendor, Category: rule.Category, Known: true}
			}
			continue
		}
		if strings.Contains(textLower, rule.Pattern) {
			return VendorResult{Vendor: rule.Vendor, Category: rule.Category, Known: true}
		}
	}

	for _, label := range contextLabels {
		if strings.Contains(textLower, label.Pattern) {
			return VendorResult{Vendor: label.Vendor, Category: label.Category}
		}
	}

	if name := r.senderDisplayName(sender); name != "" {
		return VendorResult{Vendor: name, Category: model.CategoryOther}
	}
	return VendorResult{Vendor: "Unknown", Category: model.CategoryOther}
}

// senderDisplayName derives a readable name from the sender's domain,
// e.g. "alerts@hdfcbank.com" -> "Hdfcbank".
func (r *VendorResolver) senderDisplayName(sender string) string {
	m := senderNameRe.FindStringSubmatch(sender)
	if m == nil {
		return ""
	}
	name := strings.ReplaceAll(m[1], "-", " ")
	// Casers carry internal state, so build one per call; Resolve must stay
	// safe for concurrent use.
	return cases.Title(language.English).String(name)
}
