package shoptalknode

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/shoptalk-assistant/agent/contract"
	statex "github.com/tanpawarit/shoptalk-assistant/agent/state"
)

func Checkout(ctx context.Context, in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	from := in.Session.Step
	total, err := in.Session.Checkout()
	if err != nil {
		if !errors.Is(err, statex.ErrInvalidTransition) {
			return nil, err
		}
		zerolog.Ctx(ctx).Debug().Err(err).Msg("checkout rejected")
		msg := msgCheckoutNeedsItems
		if from == statex.StepAwaitingPayment {
			msg = msgAlreadyAtCheckout
		}
		in.Result = contractx.Result{Kind: contractx.KindCheckout, Response: msg}
		return in, nil
	}

	in.Result = contractx.Result{
		Kind:     contractx.KindCheckout,
		Response: formatCheckout(in.Session.Cart.ItemCount(), total),
		Cart:     cartView(in.Session),
		Navigate: &contractx.Navigate{Path: "/checkout"},
	}
	return in, nil
}

func Payment(ctx context.Context, in *GraphState) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	order, err := in.Session.CompletePayment(in.Now)
	if err != nil {
		if !errors.Is(err, statex.ErrInvalidTransition) {
			return nil, err
		}
		zerolog.Ctx(ctx).Debug().Err(err).Msg("payment rejected")
		in.Result = contractx.Result{Kind: contractx.KindPayment, Response: msgCheckoutFirst}
		return in, nil
	}

	zerolog.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Str("total", order.Total.StringFixed(2)).
		Int("items", order.ItemCount).
		Msg("order confirmed")

	in.Result = contractx.Result{
		Kind:     contractx.KindPayment,
		Response: formatOrder(order),
		Order:    order,
		Navigate: &contractx.Navigate{Path: "/orders"},
	}
	return in, nil
}

func Help(in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.Result = contractx.Result{Kind: contractx.KindHelp, Response: msgHelp}
	return in, nil
}
