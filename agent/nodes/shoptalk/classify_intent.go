package shoptalknode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/shoptalk-assistant/agent/contract"
	intentx "github.com/tanpawarit/shoptalk-assistant/agent/intent"
)

func ClassifyIntent(ctx context.Context, in *GraphState, classifier *intentx.Classifier) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.Intent = classifier.Classify(in.Text)
	zerolog.Ctx(ctx).Debug().
		Str("intent", string(in.Intent.Kind)).
		Str("rule", in.Intent.Rule).
		Msg("classified utterance")
	return in, nil
}

// Route names the handler node for an intent kind.
func Route(kind intentx.Kind) string {
	switch kind {
	case intentx.KindSearch:
		return NodeSearch
	case intentx.KindAddToCart:
		return NodeAddToCart
	case intentx.KindInspectCart:
		return NodeInspectCart
	case intentx.KindCheckout:
		return NodeCheckout
	case intentx.KindPayment:
		return NodePayment
	default:
		return NodeHelp
	}
}

const (
	NodeSearch      = "search"
	NodeAddToCart   = "add_to_cart"
	NodeInspectCart = "inspect_cart"
	NodeCheckout    = "checkout"
	NodePayment     = "payment"
	NodeHelp        = "help"
)

// HandlerNodes lists every branch target.
var HandlerNodes = []string{NodeSearch, NodeAddToCart, NodeInspectCart, NodeCheckout, NodePayment, NodeHelp}
