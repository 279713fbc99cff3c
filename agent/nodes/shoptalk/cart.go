package shoptalknode

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/shoptalk-assistant/agent/contract"
	statex "github.com/tanpawarit/shoptalk-assistant/agent/state"
)

func AddToCart(ctx context.Context, in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	name := in.Intent.ProductName
	product, ok := in.Session.FindProduct(name)
	if !ok {
		in.Result = contractx.Result{
			Kind:     contractx.KindCart,
			Response: formatNotFound(name),
		}
		return in, nil
	}

	reopened := in.Session.Step == statex.StepAwaitingPayment
	line, created, err := in.Session.AddToCart(product)
	if err != nil {
		if errors.Is(err, statex.ErrInvalidTransition) {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("add to cart rejected")
			in.Result = contractx.Result{Kind: contractx.KindCart, Response: msgCannotAdd}
			return in, nil
		}
		return nil, err
	}

	in.Result = contractx.Result{
		Kind:     contractx.KindCart,
		Response: formatAdded(line, created, reopened),
		Cart:     cartView(in.Session),
		Navigate: &contractx.Navigate{Path: "/cart"},
	}
	return in, nil
}

func InspectCart(in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	if in.Session.Cart.IsEmpty() {
		in.Result = contractx.Result{Kind: contractx.KindCart, Response: msgCartEmpty}
		return in, nil
	}

	view := cartView(in.Session)
	in.Result = contractx.Result{
		Kind:     contractx.KindCart,
		Response: formatCart(view),
		Cart:     view,
		Navigate: &contractx.Navigate{Path: "/cart"},
	}
	return in, nil
}

func cartView(st *statex.SessionState) *contractx.CartView {
	return &contractx.CartView{
		Lines:     st.Cart.Snapshot(),
		ItemCount: st.Cart.ItemCount(),
		Total:     st.Cart.Total(),
	}
}
