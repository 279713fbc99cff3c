package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/shoptalk-assistant/agent/agents/advisor"
	"github.com/tanpawarit/shoptalk-assistant/agent/agents/shoptalk"
	catalogx "github.com/tanpawarit/shoptalk-assistant/agent/catalog"
	contractx "github.com/tanpawarit/shoptalk-assistant/agent/contract"
	statex "github.com/tanpawarit/shoptalk-assistant/agent/state"
)

type Config struct {
	Addr            string        `split_words:"true" default:":8080"`
	ReadTimeout     time.Duration `split_words:"true" default:"15s"`
	WriteTimeout    time.Duration `split_words:"true" default:"90s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
	MaxUploadSize   int64         `split_words:"true" default:"26214400"`
	// OrderEventsURL is the QStash destination for order.placed events.
	OrderEventsURL string `envconfig:"ORDER_EVENTS_URL"`
}

// Assistant is the conversational surface. *shoptalk.Service implements it.
type Assistant interface {
	Handle(ctx context.Context, msg shoptalk.Message) (contractx.Result, error)
	Cart(ctx context.Context, sessionID string) (contractx.CartView, statex.Step, error)
	Reset(ctx context.Context, sessionID string) error
}

// Advisor answers LLM-backed product questions. *advisor.Advisor
// implements it.
type Advisor interface {
	Compare(ctx context.Context, products []catalogx.Product) (advisor.Comparison, error)
	AnalyzePrice(ctx context.Context, product catalogx.Product) (advisor.PriceAnalysis, error)
	Ask(ctx context.Context, product catalogx.Product, question string) (string, error)
}

type Server struct {
	assistant   Assistant
	catalog     catalogx.Catalog
	advisor     Advisor
	transcriber contractx.Transcriber
	orders      *OrderRecorder

	validate *validator.Validate
	registry *prometheus.Registry
	metrics  *Metrics
	locks    *sessionLocks

	maxUploadSize int64
	newSessionID  func() string

	router *mux.Router
}

type Option func(*Server)

func WithAdvisor(a Advisor) Option {
	return func(s *Server) { s.advisor = a }
}

func WithTranscriber(t contractx.Transcriber) Option {
	return func(s *Server) { s.transcriber = t }
}

func WithOrderRecorder(r *OrderRecorder) Option {
	return func(s *Server) { s.orders = r }
}

func WithMaxUploadSize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadSize = n
		}
	}
}

// WithSessionIDs replaces the uuid generator used by POST /sessions.
func WithSessionIDs(gen func() string) Option {
	return func(s *Server) {
		if gen != nil {
			s.newSessionID = gen
		}
	}
}

func New(assistant Assistant, catalog catalogx.Catalog, opts ...Option) (*Server, error) {
	if assistant == nil {
		return nil, errors.New("assistant is required")
	}
	if catalog == nil {
		return nil, errors.New("catalog is required")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		assistant:     assistant,
		catalog:       catalog,
		validate:      newValidator(),
		registry:      reg,
		metrics:       NewMetrics(reg),
		locks:         newSessionLocks(),
		maxUploadSize: 25 << 20,
		newSessionID:  newUUID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.metrics.middleware)

	r.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		Registry: s.registry,
	})).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/sessions", s.createSessionHandler).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/messages", s.messageHandler).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/voice", s.voiceHandler).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/cart", s.cartHandler).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.resetSessionHandler).Methods(http.MethodDelete)

	api.HandleFunc("/products/search", s.searchHandler).Methods(http.MethodGet)
	api.HandleFunc("/products/category/{category}", s.categoryHandler).Methods(http.MethodGet)
	api.HandleFunc("/products/compare", s.compareHandler).Methods(http.MethodPost)
	api.HandleFunc("/products/{id}/price-analysis", s.priceAnalysisHandler).Methods(http.MethodPost)
	api.HandleFunc("/products/{id}/ask", s.askHandler).Methods(http.MethodPost)

	api.HandleFunc("/users/{user}/orders", s.listOrdersHandler).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}", s.getOrderHandler).Methods(http.MethodGet)

	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, cfg Config) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("starting http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("context cancelled, shutting down http server")
	case err := <-errCh:
		return err
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// sessionLocks serializes requests for the same session id. Entries are
// reference counted and dropped when the last holder unlocks.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &sessionLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *sessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
