package intent

import "strings"

// Kind is the routing decision for one utterance.
type Kind string

const (
	KindAddToCart   Kind = "add_to_cart"
	KindInspectCart Kind = "inspect_cart"
	KindCheckout    Kind = "checkout"
	KindPayment     Kind = "payment"
	KindSearch      Kind = "search"
	KindHelp        Kind = "help"
)

// Matcher reports whether a lower-cased utterance satisfies a rule.
type Matcher func(text string) bool

// Rule maps a matcher to an intent kind. Rules are evaluated in order and the
// first match wins.
type Rule struct {
	Name  string
	Kind  Kind
	Match Matcher
}

// AllOf matches when every substring is present.
func AllOf(subs ...string) Matcher {
	return func(text string) bool {
		for _, s := range subs {
			if !strings.Contains(text, s) {
				return false
			}
		}
		return len(subs) > 0
	}
}

// AnyOf matches when at least one substring is present.
func AnyOf(subs ...string) Matcher {
	return func(text string) bool {
		for _, s := range subs {
			if strings.Contains(text, s) {
				return true
			}
		}
		return false
	}
}

// LongerThan matches utterances with more than n characters.
func LongerThan(n int) Matcher {
	return func(text string) bool {
		return len([]rune(text)) > n
	}
}

// Either matches when any of the given matchers does.
func Either(ms ...Matcher) Matcher {
	return func(text string) bool {
		for _, m := range ms {
			if m != nil && m(text) {
				return true
			}
		}
		return false
	}
}

// ShoppingKeywords covers categories, common product nouns, brands and price
// words. Anything longer than two characters is a search anyway; the set keeps
// short queries like "tv" routable.
var ShoppingKeywords = []string{
	// categories
	"electronics", "fashion", "clothing", "beauty", "fragrance", "furniture",
	"groceries", "home", "kitchen", "sports", "toys", "books", "laptops",
	"smartphones", "skincare", "shoes", "watches", "jewellery", "jewelry",
	// products
	"phone", "mobile", "laptop", "tv", "headphone", "earbuds", "camera",
	"shirt", "dress", "jeans", "bag", "perfume", "sofa", "chair", "table",
	// brands
	"apple", "iphone", "samsung", "oneplus", "xiaomi", "sony", "nike",
	"adidas", "puma", "dell", "hp", "lenovo", "asus",
	// price words
	"price", "cheap", "under", "below", "budget", "deal", "discount", "offer",
	"find", "search", "show", "buy",
}

// DefaultRules is the routing table in precedence order.
var DefaultRules = []Rule{
	{Name: "add_to_cart", Kind: KindAddToCart, Match: AllOf("add", "cart")},
	{Name: "inspect_cart", Kind: KindInspectCart, Match: AnyOf("cart")},
	{Name: "checkout", Kind: KindCheckout, Match: AnyOf("checkout", "buy now")},
	{Name: "payment", Kind: KindPayment, Match: AnyOf("payment", "pay")},
	{Name: "search", Kind: KindSearch, Match: Either(AnyOf(ShoppingKeywords...), LongerThan(2))},
}
