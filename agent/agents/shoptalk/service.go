package shoptalk

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"

	catalogx "github.com/tanpawarit/shoptalk-assistant/agent/catalog"
	contractx "github.com/tanpawarit/shoptalk-assistant/agent/contract"
	intentx "github.com/tanpawarit/shoptalk-assistant/agent/intent"
	nodex "github.com/tanpawarit/shoptalk-assistant/agent/nodes/shoptalk"
	statex "github.com/tanpawarit/shoptalk-assistant/agent/state"
	logx "github.com/tanpawarit/shoptalk-assistant/pkg/logger"
)

var ErrInvalidSession = nodex.ErrInvalidSession

type Config struct {
	ChannelType string `split_words:"true" default:"chat"`
	// Rules overrides the routing table; nil uses intent.DefaultRules.
	Rules []intentx.Rule `ignored:"true"`
}

// Message is one utterance addressed to a session.
type Message struct {
	SessionID   string
	UserID      string
	ChannelType string
	Text        string
}

// Service routes utterances against per-session cart state. It holds no
// session data itself; every call loads and saves through the Store.
type Service struct {
	store      statex.Store
	catalog    catalogx.Catalog
	classifier *intentx.Classifier

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	channelType string

	now func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(store statex.Store, catalog catalogx.Catalog, cfg Config, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if catalog == nil {
		return nil, errors.New("catalog is required")
	}

	channelType := strings.TrimSpace(cfg.ChannelType)
	if channelType == "" {
		channelType = "chat"
	}

	s := &Service{
		store:       store,
		catalog:     catalog,
		classifier:  intentx.NewClassifier(cfg.Rules),
		channelType: channelType,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	graphRunner, err := s.compileProcessMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	s.graphRunner = graphRunner

	return s, nil
}

// ProcessMessage classifies utterance and dispatches it against the
// session's state. Only infrastructure failures are returned as errors.
func (s *Service) ProcessMessage(ctx context.Context, sessionID string, utterance string) (contractx.Result, error) {
	return s.Handle(ctx, Message{SessionID: sessionID, Text: utterance})
}

func (s *Service) Handle(ctx context.Context, msg Message) (contractx.Result, error) {
	ctx = logx.WithSession(ctx, msg.SessionID)
	out, err := s.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID:   msg.SessionID,
		UserID:      msg.UserID,
		ChannelType: msg.ChannelType,
		Text:        msg.Text,
	})
	if err != nil {
		return contractx.Result{}, err
	}
	return out.Result, nil
}

// Cart returns the session's cart without touching its state. Unknown
// sessions report an empty cart.
func (s *Service) Cart(ctx context.Context, sessionID string) (contractx.CartView, statex.Step, error) {
	st, err := s.load(ctx, sessionID)
	if err != nil {
		return contractx.CartView{}, "", err
	}
	return contractx.CartView{
		Lines:     st.Cart.Snapshot(),
		ItemCount: st.Cart.ItemCount(),
		Total:     st.Cart.Total(),
	}, st.Step, nil
}

// Session returns the stored state, or a fresh one for unknown ids.
func (s *Service) Session(ctx context.Context, sessionID string) (*statex.SessionState, error) {
	return s.load(ctx, sessionID)
}

// Reset discards the session entirely.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	return s.store.Delete(ctx, strings.TrimSpace(sessionID))
}

func (s *Service) load(ctx context.Context, sessionID string) (*statex.SessionState, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return nil, ErrInvalidSession
	}
	st, err := s.store.Load(ctx, id)
	if errors.Is(err, statex.ErrStateNotFound) {
		return statex.NewSessionState(id, "", s.channelType, s.now()), nil
	}
	return st, err
}
