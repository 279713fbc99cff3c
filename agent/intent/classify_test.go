package intent

import "testing"

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want Kind
		rule string
	}{
		{name: "add wins over cart", text: "add iPhone 13 to cart", want: KindAddToCart, rule: "add_to_cart"},
		{name: "cart only", text: "show my cart", want: KindInspectCart, rule: "inspect_cart"},
		{name: "cart beats checkout", text: "checkout my cart", want: KindInspectCart, rule: "inspect_cart"},
		{name: "checkout", text: "Checkout please", want: KindCheckout, rule: "checkout"},
		{name: "buy now", text: "buy now", want: KindCheckout, rule: "checkout"},
		{name: "payment", text: "make payment", want: KindPayment, rule: "payment"},
		{name: "pay", text: "PAY", want: KindPayment, rule: "payment"},
		{name: "search keyword", text: "Find iPhone under 30000", want: KindSearch, rule: "search"},
		{name: "short keyword", text: "tv", want: KindSearch, rule: "search"},
		{name: "long unknown text", text: "what is this", want: KindSearch, rule: "search"},
		{name: "help fallback", text: "hi", want: KindHelp, rule: "fallback"},
		{name: "empty", text: "   ", want: KindHelp, rule: "fallback"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Classify(tt.text)
			if got.Kind != tt.want || got.Rule != tt.rule {
				t.Fatalf("Classify(%q) = %+v, want kind=%s rule=%s", tt.text, got, tt.want, tt.rule)
			}
		})
	}
}

func TestExtractProductName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"add iPhone 13 to cart":              "iPhone 13",
		"Please ADD Nike Air Max to my cart": "Nike Air Max",
		"add the red dress to the cart":      "the red dress",
		"add to cart":                        "",
		"cart add":                           "",
	}
	for in, want := range tests {
		if got := ExtractProductName(in); got != want {
			t.Fatalf("ExtractProductName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClassifyCarriesProductName(t *testing.T) {
	t.Parallel()

	got := Classify("add Galaxy S23 to cart")
	if got.ProductName != "Galaxy S23" {
		t.Fatalf("ProductName = %q, want %q", got.ProductName, "Galaxy S23")
	}

	got = Classify("cart, add something")
	if got.Kind != KindAddToCart || got.ProductName != "" {
		t.Fatalf("Classify() = %+v, want add_to_cart with empty name", got)
	}
}

func TestCustomRuleTable(t *testing.T) {
	t.Parallel()

	c := NewClassifier([]Rule{
		{Name: "greeting", Kind: KindHelp, Match: AnyOf("hello")},
		{Name: "anything", Kind: KindSearch, Match: LongerThan(0)},
	})
	if got := c.Classify("Hello there"); got.Rule != "greeting" {
		t.Fatalf("Classify() rule = %q, want greeting", got.Rule)
	}
	if got := c.Classify("x"); got.Kind != KindSearch {
		t.Fatalf("Classify() kind = %q, want search", got.Kind)
	}
}
