package shoptalknode

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	catalogx "github.com/tanpawarit/shoptalk-assistant/agent/catalog"
	contractx "github.com/tanpawarit/shoptalk-assistant/agent/contract"
	statex "github.com/tanpawarit/shoptalk-assistant/agent/state"
)

const currencySymbol = "₹"

const (
	msgSearchFailed       = "Sorry, I'm having trouble searching right now. Please try again in a moment."
	msgCartEmpty          = "Your cart is empty. Search for something and say \"add <product> to cart\"."
	msgCannotAdd          = "I can't add items right now. Please try again."
	msgCheckoutNeedsItems = "Please add at least one item to your cart before checking out."
	msgAlreadyAtCheckout  = "You're already at checkout. Say \"pay\" to complete your order."
	msgCheckoutFirst      = "Please proceed to checkout first."
	msgHelp               = "I can help you shop. Try:\n" +
		"- \"Find iPhone under 30000\" to search\n" +
		"- \"add iPhone 13 to cart\" to add a product from the results\n" +
		"- \"show my cart\" to review your cart\n" +
		"- \"checkout\" and then \"pay\" to place your order"
)

func formatPrice(d decimal.Decimal) string {
	return currencySymbol + d.StringFixed(2)
}

func formatSearchResults(q catalogx.Query, products []catalogx.Product) string {
	if len(products) == 0 {
		return fmt.Sprintf("Sorry, I couldn't find any products matching %q.", q.Text)
	}

	var b strings.Builder
	if len(products) == 1 {
		fmt.Fprintf(&b, "I found 1 product for %q:", q.Text)
	} else {
		fmt.Fprintf(&b, "I found %d products for %q:", len(products), q.Text)
	}
	for i, p := range products {
		if i == maxListedResults {
			fmt.Fprintf(&b, "\n...and %d more.", len(products)-maxListedResults)
			break
		}
		fmt.Fprintf(&b, "\n- %s (%s)", p.Name, formatPrice(p.Price))
	}
	b.WriteString("\nSay \"add <product> to cart\" to add one.")
	return b.String()
}

func formatNotFound(name string) string {
	if strings.TrimSpace(name) == "" {
		return "I couldn't tell which product to add. Try \"add <product> to cart\"."
	}
	return fmt.Sprintf("I couldn't find %q in your recent search results. Try searching for it first.", name)
}

func formatAdded(line statex.CartLine, created, reopened bool) string {
	var msg string
	if created {
		msg = fmt.Sprintf("Added %s (%s) to your cart.", line.Product.Name, formatPrice(line.Product.Price))
	} else {
		msg = fmt.Sprintf("Updated %s quantity to %d in your cart.", line.Product.Name, line.Quantity)
	}
	if reopened {
		msg += " Your cart changed, so say \"checkout\" again when you're ready."
	}
	return msg
}

func formatCart(view *contractx.CartView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your cart has %d item(s):", view.ItemCount)
	for _, l := range view.Lines {
		fmt.Fprintf(&b, "\n- %s x%d = %s", l.Product.Name, l.Quantity, formatPrice(l.Subtotal()))
	}
	fmt.Fprintf(&b, "\nTotal: %s", formatPrice(view.Total))
	return b.String()
}

func formatCheckout(items int, total decimal.Decimal) string {
	return fmt.Sprintf("Proceeding to checkout with %d item(s). Your total is %s. Say \"pay\" to complete your order.", items, formatPrice(total))
}

func formatOrder(o *statex.Order) string {
	id := o.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("Payment successful! Order %s is confirmed: %d item(s), total %s. Thank you for shopping with us.", id, o.ItemCount, formatPrice(o.Total))
}
