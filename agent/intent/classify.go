package intent

import (
	"regexp"
	"strings"
)

// Intent is the classifier output.
type Intent struct {
	Kind        Kind
	Rule        string
	ProductName string
}

var addToCartPattern = regexp.MustCompile(`(?i)add\s+(.+?)\s+to\s+(?:my\s+|the\s+)?cart`)

// Classifier evaluates an ordered rule table.
type Classifier struct {
	rules []Rule
}

func NewClassifier(rules []Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	cp := make([]Rule, len(rules))
	copy(cp, rules)
	return &Classifier{rules: cp}
}

var defaultClassifier = NewClassifier(DefaultRules)

// Classify routes text with DefaultRules.
func Classify(text string) Intent {
	return defaultClassifier.Classify(text)
}

func (c *Classifier) Classify(text string) Intent {
	lowered := strings.ToLower(strings.TrimSpace(text))
	for _, r := range c.rules {
		if r.Match == nil || !r.Match(lowered) {
			continue
		}
		out := Intent{Kind: r.Kind, Rule: r.Name}
		if r.Kind == KindAddToCart {
			out.ProductName = ExtractProductName(text)
		}
		return out
	}
	return Intent{Kind: KindHelp, Rule: "fallback"}
}

// ExtractProductName pulls <name> out of "add <name> to cart". An utterance
// that does not fit the pattern yields "".
func ExtractProductName(text string) string {
	m := addToCartPattern.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}
