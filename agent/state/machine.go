package state

import (
	"errors"
	"fmt"
)

// Step is the session's checkout progress. Serialized values match what the
// storefront UI expects.
type Step string

const (
	StepBrowsing        Step = "browsing"
	StepHasItems        Step = "cart"
	StepAwaitingPayment Step = "payment"
	StepConfirmed       Step = "order_confirmed"
)

type Event string

const (
	EventAddItem  Event = "add_item"
	EventCheckout Event = "checkout"
	EventPay      Event = "pay"
	EventReset    Event = "reset"
)

var ErrInvalidTransition = errors.New("invalid step transition")

// transitions is the complete step table; any pair not listed is rejected.
// Adding an item while awaiting payment drops back to HasItems because the
// checkout total no longer matches the cart.
var transitions = map[Step]map[Event]Step{
	StepBrowsing: {
		EventAddItem: StepHasItems,
		EventReset:   StepBrowsing,
	},
	StepHasItems: {
		EventAddItem:  StepHasItems,
		EventCheckout: StepAwaitingPayment,
		EventReset:    StepBrowsing,
	},
	StepAwaitingPayment: {
		EventAddItem: StepHasItems,
		EventPay:     StepConfirmed,
		EventReset:   StepBrowsing,
	},
	StepConfirmed: {
		EventAddItem: StepHasItems,
		EventReset:   StepBrowsing,
	},
}

func (s Step) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Next returns the step reached by applying ev, or ErrInvalidTransition.
func (s Step) Next(ev Event) (Step, error) {
	from := s
	if from == "" {
		from = StepBrowsing
	}
	next, ok := transitions[from][ev]
	if !ok {
		return s, fmt.Errorf("%w: %s --%s-->", ErrInvalidTransition, from, ev)
	}
	return next, nil
}

func (s Step) Can(ev Event) bool {
	_, err := s.Next(ev)
	return err == nil
}
