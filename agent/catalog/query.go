package catalog

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Query is a normalized catalog search built from a free-text utterance.
type Query struct {
	Text     string           `json:"text"`
	MaxPrice *decimal.Decimal `json:"max_price,omitempty"`
}

var (
	// A bare "max" needs a currency marker so model names like "Air Max 90"
	// are not read as a ceiling; the amount must end on a word boundary so
	// "256GB" is not one either.
	priceCapPattern = regexp.MustCompile(`(?i)\b(?:(?:under|below|less than|within|up ?to|max(?:imum)? price(?: of)?|budget(?: of)?)\s*(?:rs\.?|inr|₹|\$)?|max(?:imum)?\s*(?:rs\.?|inr|₹|\$))\s*([0-9][0-9,]*(?:\.[0-9]+)?)(k)?\b(?:\s*(?:rupees|rs|inr)\b)?`)

	fillerPrefixes = []string{
		"can you find me",
		"can you show me",
		"i am looking for",
		"i'm looking for",
		"looking for",
		"search for",
		"show me",
		"find me",
		"i want to buy",
		"i want",
		"i need",
		"get me",
		"search",
		"find",
		"show",
		"buy",
	}
)

// ParseQuery strips conversational filler and extracts a price ceiling.
// "Find iPhone under 30000" => {Text: "iPhone", MaxPrice: 30000}.
func ParseQuery(raw string) Query {
	text := strings.TrimSpace(raw)
	var q Query

	if m := priceCapPattern.FindStringSubmatchIndex(text); m != nil {
		amount := strings.ReplaceAll(text[m[2]:m[3]], ",", "")
		if v, err := decimal.NewFromString(amount); err == nil {
			if m[4] >= 0 {
				v = v.Mul(decimal.NewFromInt(1000))
			}
			q.MaxPrice = &v
		}
		text = strings.TrimSpace(text[:m[0]] + " " + text[m[1]:])
	}

	for _, prefix := range fillerPrefixes {
		if rest, ok := trimFoldPrefix(text, prefix); ok && strings.HasPrefix(rest, " ") {
			text = strings.TrimSpace(rest)
			break
		}
	}

	text = strings.Join(strings.Fields(strings.Trim(text, " ?!.")), " ")
	if text == "" {
		text = strings.TrimSpace(raw)
	}
	q.Text = text
	return q
}

// trimFoldPrefix removes a lower-case prefix from s rune by rune, so case
// folds that change byte length do not shift the cut.
func trimFoldPrefix(s, prefix string) (string, bool) {
	rest := s
	for _, want := range prefix {
		r, size := utf8.DecodeRuneInString(rest)
		if size == 0 || unicode.ToLower(r) != want {
			return s, false
		}
		rest = rest[size:]
	}
	return rest, true
}
