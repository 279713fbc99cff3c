package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	catalogx "github.com/tanpawarit/shoptalk-assistant/agent/catalog"
)

// SessionState is one shopper's conversational scope. It is loaded from the
// Store at the start of every message and saved after dispatch.
type SessionState struct {
	// Identity
	SessionID   string `json:"session_id"`
	UserID      string `json:"user_id,omitempty"`
	ChannelType string `json:"channel_type"`

	// Most recent search results, replaced wholesale on every search.
	CurrentProducts []catalogx.Product `json:"current_products"`
	LastSearchQuery string             `json:"last_search_query,omitempty"`

	Cart Cart `json:"cart"`
	Step Step `json:"step"`

	LastOrder *Order `json:"last_order,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Order is the summary produced by a completed payment.
type Order struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id"`
	UserID      string          `json:"user_id,omitempty"`
	Lines       []CartLine      `json:"lines"`
	ItemCount   int             `json:"item_count"`
	Total       decimal.Decimal `json:"total"`
	ConfirmedAt time.Time       `json:"confirmed_at"`
}

var (
	ErrNilSession  = errors.New("nil session state")
	ErrEmptyCart   = errors.New("cart is empty")
	ErrInvalidCart = errors.New("invalid cart")
)

func NewSessionState(sessionID, userID, channelType string, now time.Time) *SessionState {
	return &SessionState{
		SessionID:       sessionID,
		UserID:          userID,
		ChannelType:     channelType,
		CurrentProducts: []catalogx.Product{},
		Step:            StepBrowsing,
		UpdatedAt:       now.UTC(),
	}
}

func (s *SessionState) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// ReplaceResults overwrites the current result set and query, even when the
// result set is empty.
func (s *SessionState) ReplaceResults(query string, products []catalogx.Product) {
	if products == nil {
		products = []catalogx.Product{}
	}
	s.CurrentProducts = products
	s.LastSearchQuery = query
}

// FindProduct resolves a spoken product name against CurrentProducts: exact
// case-insensitive name first, then a substring match in either direction
// against each candidate's first word.
func (s *SessionState) FindProduct(name string) (catalogx.Product, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if s == nil || needle == "" {
		return catalogx.Product{}, false
	}

	for _, p := range s.CurrentProducts {
		if strings.ToLower(strings.TrimSpace(p.Name)) == needle {
			return p, true
		}
	}
	for _, p := range s.CurrentProducts {
		token := p.FirstToken()
		if token == "" {
			continue
		}
		if strings.Contains(token, needle) || strings.Contains(needle, token) {
			return p, true
		}
	}
	return catalogx.Product{}, false
}

// AddToCart increments an existing line or appends a new one, then applies
// EventAddItem. It returns the resulting line and whether it was new.
func (s *SessionState) AddToCart(p catalogx.Product) (CartLine, bool, error) {
	if s == nil {
		return CartLine{}, false, ErrNilSession
	}
	next, err := s.Step.Next(EventAddItem)
	if err != nil {
		return CartLine{}, false, err
	}

	line, created := s.Cart.Add(p)
	s.Step = next
	return line, created, nil
}

// Checkout moves HasItems to AwaitingPayment. Any other step is rejected
// without mutation.
func (s *SessionState) Checkout() (decimal.Decimal, error) {
	if s == nil {
		return decimal.Zero, ErrNilSession
	}
	next, err := s.Step.Next(EventCheckout)
	if err != nil {
		return decimal.Zero, err
	}
	if s.Cart.IsEmpty() {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrInvalidTransition, ErrEmptyCart)
	}
	s.Step = next
	return s.Cart.Total(), nil
}

// CompletePayment settles the cart: AwaitingPayment -> Confirmed -> Browsing.
// The cart is cleared and the order summary kept as LastOrder.
func (s *SessionState) CompletePayment(now time.Time) (*Order, error) {
	if s == nil {
		return nil, ErrNilSession
	}
	confirmed, err := s.Step.Next(EventPay)
	if err != nil {
		return nil, err
	}
	browsing, err := confirmed.Next(EventReset)
	if err != nil {
		return nil, err
	}

	order := &Order{
		ID:          uuid.NewString(),
		SessionID:   s.SessionID,
		UserID:      s.UserID,
		Lines:       s.Cart.Snapshot(),
		ItemCount:   s.Cart.ItemCount(),
		Total:       s.Cart.Total(),
		ConfirmedAt: now.UTC(),
	}

	s.Cart.Clear()
	s.Step = browsing
	s.LastOrder = order
	s.Touch(now)
	return order, nil
}

// Reset drops the cart and returns to Browsing. Search results are kept.
func (s *SessionState) Reset(now time.Time) {
	s.Cart.Clear()
	s.Step = StepBrowsing
	s.Touch(now)
}

func (s *SessionState) Validate() error {
	if strings.TrimSpace(s.SessionID) == "" {
		return ErrInvalidSession
	}
	if !s.Step.Valid() {
		return fmt.Errorf("%w: unknown step %q", ErrInvalidTransition, s.Step)
	}
	if err := s.Cart.Validate(); err != nil {
		return err
	}
	if s.Step == StepAwaitingPayment && s.Cart.IsEmpty() {
		return fmt.Errorf("%w: awaiting payment with empty cart", ErrInvalidTransition)
	}
	return nil
}

// Normalize fills zero values left by older payloads.
func (s *SessionState) Normalize() {
	if s.Step == "" {
		s.Step = StepBrowsing
	}
	if s.CurrentProducts == nil {
		s.CurrentProducts = []catalogx.Product{}
	}
}
