package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"go.uber.org/goleak"

	"github.com/tanpawarit/shoptalk-assistant/agent/agents/advisor"
	"github.com/tanpawarit/shoptalk-assistant/agent/agents/shoptalk"
	catalogx "github.com/tanpawarit/shoptalk-assistant/agent/catalog"
	contractx "github.com/tanpawarit/shoptalk-assistant/agent/contract"
	statex "github.com/tanpawarit/shoptalk-assistant/agent/state"
	"github.com/tanpawarit/shoptalk-assistant/agent/voice"
	"github.com/tanpawarit/shoptalk-assistant/pkg/orderdb"
	qstashx "github.com/tanpawarit/shoptalk-assistant/pkg/qstash"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testProducts() []catalogx.Product {
	return []catalogx.Product{
		{ID: "1", Name: "iPhone 13 128GB Blue", Category: "smartphones", Brand: "Apple", Price: decimal.NewFromInt(27999), InStock: true},
		{ID: "2", Name: "Galaxy S23", Category: "smartphones", Brand: "Samsung", Price: decimal.NewFromInt(24999), InStock: true},
		{ID: "3", Name: "Nike Air Max", Category: "shoes", Brand: "Nike", Price: decimal.RequireFromString("4599.50"), InStock: true},
	}
}

type fakeAdvisor struct {
	mu       sync.Mutex
	err      error
	compared []catalogx.Product
	question string
}

func (f *fakeAdvisor) Compare(_ context.Context, products []catalogx.Product) (advisor.Comparison, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.compared = products
	if f.err != nil {
		return advisor.Comparison{}, f.err
	}
	return advisor.Comparison{Summary: "pick the first", WinnerID: products[0].ID}, nil
}

func (f *fakeAdvisor) AnalyzePrice(_ context.Context, p catalogx.Product) (advisor.PriceAnalysis, error) {
	if f.err != nil {
		return advisor.PriceAnalysis{}, f.err
	}
	return advisor.PriceAnalysis{Verdict: advisor.VerdictFair, Reason: "in line with " + p.Category}, nil
}

func (f *fakeAdvisor) Ask(_ context.Context, p catalogx.Product, question string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.question = question
	if f.err != nil {
		return "", f.err
	}
	return p.Name + " has a good camera", nil
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f fakeTranscriber) Transcribe(_ context.Context, _ string, audio io.Reader) (string, error) {
	if _, err := io.ReadAll(audio); err != nil {
		return "", err
	}
	return f.text, f.err
}

type fakeOrderStore struct {
	mu        sync.Mutex
	createErr error
	orders    map[string]*orderdb.Order
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: map[string]*orderdb.Order{}}
}

func (f *fakeOrderStore) Create(_ context.Context, o *orderdb.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.orders[o.ID] = o
	return nil
}

func (f *fakeOrderStore) Get(_ context.Context, id string) (*orderdb.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, orderdb.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeOrderStore) ListByUser(_ context.Context, userID string, _ int) ([]*orderdb.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*orderdb.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrderStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

type publishedEvent struct {
	destination string
	payload     any
	opts        []qstashx.PublishOptions
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakePublisher) Publish(_ context.Context, destination string, payload any, opts ...qstashx.PublishOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{destination: destination, payload: payload, opts: opts})
	return fmt.Sprintf("msg_%d", len(f.events)), nil
}

type fakeAssistant struct {
	err error
}

func (f fakeAssistant) Handle(context.Context, shoptalk.Message) (contractx.Result, error) {
	return contractx.Result{}, f.err
}

func (f fakeAssistant) Cart(context.Context, string) (contractx.CartView, statex.Step, error) {
	return contractx.CartView{}, "", f.err
}

func (f fakeAssistant) Reset(context.Context, string) error { return f.err }

func newTestServer(t *testing.T, catalog catalogx.Catalog, opts ...Option) *Server {
	t.Helper()
	svc, err := shoptalk.New(statex.NewMemoryStore(), catalog, shoptalk.Config{})
	if err != nil {
		t.Fatalf("shoptalk.New() error = %v", err)
	}
	srv, err := New(svc, catalog, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func send(t *testing.T, h http.Handler, sessionID, text string) contractx.Result {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/v1/sessions/"+sessionID+"/messages", map[string]string{"text": text, "user_id": "u1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST messages %q status = %d, body = %s", text, rec.Code, rec.Body.String())
	}
	return decode[contractx.Result](t, rec)
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, catalogx.NewStatic(testProducts()...))
	rec := do(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCreateSession(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, catalogx.NewStatic(testProducts()...), WithSessionIDs(func() string { return "sess-1" }))

	rec := do(t, srv.Handler(), http.MethodPost, "/api/v1/sessions", map[string]string{"user_id": "u1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	got := decode[createSessionResponse](t, rec)
	if got.SessionID != "sess-1" || got.UserID != "u1" {
		t.Fatalf("response = %+v", got)
	}

	rec = do(t, srv.Handler(), http.MethodPost, "/api/v1/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("empty body status = %d, want 201", rec.Code)
	}
}

func TestPurchaseFlowRecordsOrder(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	pub := &fakePublisher{}
	srv := newTestServer(t, catalogx.NewStatic(testProducts()...),
		WithOrderRecorder(NewOrderRecorder(store, pub, "https://hooks.example/orders")))
	h := srv.Handler()

	if got := send(t, h, "s1", "find iphone"); got.Kind != contractx.KindSearch || len(got.Products) != 1 {
		t.Fatalf("search = %+v", got)
	}
	if got := send(t, h, "s1", "add iPhone 13 to cart"); got.Kind != contractx.KindCart || got.Step != statex.StepHasItems {
		t.Fatalf("add = %+v", got)
	}
	if got := send(t, h, "s1", "checkout"); got.Kind != contractx.KindCheckout || got.Step != statex.StepAwaitingPayment {
		t.Fatalf("checkout = %+v", got)
	}
	paid := send(t, h, "s1", "pay")
	if paid.Kind != contractx.KindPayment || paid.Order == nil {
		t.Fatalf("pay = %+v", paid)
	}

	if store.count() != 1 {
		t.Fatalf("stored orders = %d, want 1", store.count())
	}
	stored, err := store.Get(context.Background(), paid.Order.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.UserID != "u1" || !stored.Total.Equal(decimal.NewFromInt(27999)) {
		t.Fatalf("stored order = %+v", stored)
	}

	if len(pub.events) != 1 {
		t.Fatalf("published = %d, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.destination != "https://hooks.example/orders" {
		t.Fatalf("destination = %q", ev.destination)
	}
	if len(ev.opts) != 1 || ev.opts[0].DeduplicationID != paid.Order.ID {
		t.Fatalf("publish opts = %+v", ev.opts)
	}
	if event, ok := ev.payload.(OrderEvent); !ok || event.Type != EventOrderPlaced {
		t.Fatalf("payload = %#v", ev.payload)
	}

	if got := testutil.ToFloat64(srv.Metrics().IntentsTotal.WithLabelValues("payment")); got != 1 {
		t.Fatalf("payment intents = %v, want 1", got)
	}
	if got := testutil.ToFloat64(srv.Metrics().OrdersRecorded.WithLabelValues("ok")); got != 1 {
		t.Fatalf("orders recorded ok = %v, want 1", got)
	}

	rec := do(t, h, http.MethodGet, "/api/v1/orders/"+paid.Order.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET order status = %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/api/v1/users/u1/orders?limit=5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET user orders status = %d", rec.Code)
	}
	if got := decode[ordersResponse](t, rec); len(got.Orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(got.Orders))
	}
}

func TestOrderRecorderFailureKeepsPayment(t *testing.T) {
	t.Parallel()

	store := newFakeOrderStore()
	store.createErr = errors.New("db down")
	srv := newTestServer(t, catalogx.NewStatic(testProducts()...),
		WithOrderRecorder(NewOrderRecorder(store, nil, "")))
	h := srv.Handler()

	send(t, h, "s1", "find galaxy")
	send(t, h, "s1", "add galaxy to cart")
	send(t, h, "s1", "checkout")
	paid := send(t, h, "s1", "pay")
	if paid.Order == nil {
		t.Fatalf("pay = %+v, want order", paid)
	}
	if got := testutil.ToFloat64(srv.Metrics().OrdersRecorded.WithLabelValues("failed")); got != 1 {
		t.Fatalf("orders recorded failed = %v, want 1", got)
	}
}

func TestMessageValidation(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, catalogx.NewStatic(testProducts()...))
	h := srv.Handler()

	tests := []struct {
		name string
		body any
	}{
		{name: "bad json", body: "{"},
		{name: "unknown channel", body: map[string]string{"text": "hi", "channel_type": "fax"}},
		{name: "text too long", body: map[string]string{"text": strings.Repeat("a", 2001)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/sessions/s1/messages", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
		})
	}

	rec := do(t, h, http.MethodPost, "/api/v1/sessions/s1/messages", map[string]string{"text": ""})
	if rec.Code != http.StatusOK {
		t.Fatalf("empty text status = %d, want 200", rec.Code)
	}
	if got := decode[contractx.Result](t, rec); got.Kind != contractx.KindHelp {
		t.Fatalf("empty text kind = %q, want help", got.Kind)
	}
}

func TestStoreFailureIsServerError(t *testing.T) {
	t.Parallel()

	catalog := catalogx.NewStatic(testProducts()...)
	srv, err := New(fakeAssistant{err: errors.New("redis down")}, catalog)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h := srv.Handler()

	if rec := do(t, h, http.MethodPost, "/api/v1/sessions/s1/messages", map[string]string{"text": "cart"}); rec.Code != http.StatusInternalServerError {
		t.Fatalf("messages status = %d, want 500", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/sessions/s1/cart", nil); rec.Code != http.StatusInternalServerError {
		t.Fatalf("cart status = %d, want 500", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/api/v1/sessions/s1", nil); rec.Code != http.StatusInternalServerError {
		t.Fatalf("delete status = %d, want 500", rec.Code)
	}
}

func TestCartAndReset(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, catalogx.NewStatic(testProducts()...))
	h := srv.Handler()

	send(t, h, "s1", "find nike")
	send(t, h, "s1", "add nike air max to cart")
	send(t, h, "s1", "add nike air max to cart")

	rec := do(t, h, http.MethodGet, "/api/v1/sessions/s1/cart", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cart status = %d", rec.Code)
	}
	cart := decode[cartResponse](t, rec)
	if cart.Step != statex.StepHasItems || cart.Cart.ItemCount != 2 || len(cart.Cart.Lines) != 1 {
		t.Fatalf("cart = %+v", cart)
	}
	if !cart.Cart.Total.Equal(decimal.RequireFromString("9199")) {
		t.Fatalf("total = %s, want 9199", cart.Cart.Total)
	}

	if rec := do(t, h, http.MethodDelete, "/api/v1/sessions/s1", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}
	cart = decode[cartResponse](t, do(t, h, http.MethodGet, "/api/v1/sessions/s1/cart", nil))
	if cart.Cart.ItemCount != 0 || cart.Step != statex.StepBrowsing {
		t.Fatalf("cart after reset = %+v", cart)
	}
}

func voiceRequest(t *testing.T, path string, audio []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("user_id", "u1"); err != nil {
		t.Fatalf("WriteField() error = %v", err)
	}
	part, err := mw.CreateFormFile("audio", "clip.webm")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write(audio); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestVoice(t *testing.T) {
	t.Parallel()

	catalog := catalogx.NewStatic(testProducts()...)

	t.Run("not configured", func(t *testing.T) {
		srv := newTestServer(t, catalog)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, voiceRequest(t, "/api/v1/sessions/s1/voice", []byte("RIFF")))
		if rec.Code != http.StatusNotImplemented {
			t.Fatalf("status = %d, want 501", rec.Code)
		}
	})

	t.Run("transcript is routed", func(t *testing.T) {
		srv := newTestServer(t, catalog, WithTranscriber(fakeTranscriber{text: "find galaxy"}))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, voiceRequest(t, "/api/v1/sessions/s1/voice", []byte("RIFF")))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		got := decode[voiceResponse](t, rec)
		if got.Transcript != "find galaxy" || got.Result.Kind != contractx.KindSearch {
			t.Fatalf("response = %+v", got)
		}
	})

	t.Run("empty transcript", func(t *testing.T) {
		srv := newTestServer(t, catalog, WithTranscriber(fakeTranscriber{err: voice.ErrEmptyTranscript}))
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, voiceRequest(t, "/api/v1/sessions/s1/voice", []byte("RIFF")))
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422", rec.Code)
		}
	})

	t.Run("missing audio field", func(t *testing.T) {
		srv := newTestServer(t, catalog, WithTranscriber(fakeTranscriber{text: "hi"}))
		rec := do(t, srv.Handler(), http.MethodPost, "/api/v1/sessions/s1/voice", map[string]string{"text": "hi"})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestProductSearch(t *testing.T) {
	t.Parallel()

	catalog := catalogx.NewStatic(testProducts()...)
	srv := newTestServer(t, catalog)
	h := srv.Handler()

	if rec := do(t, h, http.MethodGet, "/api/v1/products/search", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing q status = %d, want 400", rec.Code)
	}

	rec := do(t, h, http.MethodGet, "/api/v1/products/search?q=show+me+iphone", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d", rec.Code)
	}
	if got := decode[productsResponse](t, rec); len(got.Products) != 1 || got.Products[0].ID != "1" {
		t.Fatalf("search = %+v", got)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/products/category/smartphones", nil)
	if got := decode[productsResponse](t, rec); len(got.Products) != 2 {
		t.Fatalf("category = %+v", got)
	}

	catalog.FailWith(catalogx.ErrUnavailable)
	if rec := do(t, h, http.MethodGet, "/api/v1/products/search?q=iphone", nil); rec.Code != http.StatusBadGateway {
		t.Fatalf("failing search status = %d, want 502", rec.Code)
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	catalog := catalogx.NewStatic(testProducts()...)

	if rec := do(t, newTestServer(t, catalog).Handler(), http.MethodPost, "/api/v1/products/compare",
		map[string][]string{"product_ids": {"1", "2"}}); rec.Code != http.StatusNotImplemented {
		t.Fatalf("unconfigured status = %d, want 501", rec.Code)
	}

	adv := &fakeAdvisor{}
	h := newTestServer(t, catalog, WithAdvisor(adv)).Handler()

	tests := []struct {
		name string
		ids  []string
		want int
	}{
		{name: "too few", ids: []string{"1"}, want: http.StatusBadRequest},
		{name: "too many", ids: []string{"1", "2", "3", "4", "5"}, want: http.StatusBadRequest},
		{name: "duplicates", ids: []string{"1", "1"}, want: http.StatusBadRequest},
		{name: "unknown product", ids: []string{"1", "99"}, want: http.StatusNotFound},
		{name: "ok", ids: []string{"1", "2"}, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/products/compare", map[string][]string{"product_ids": tt.ids})
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	if len(adv.compared) != 2 || adv.compared[1].Name != "Galaxy S23" {
		t.Fatalf("compared = %+v", adv.compared)
	}
}

func TestAdvisorEndpoints(t *testing.T) {
	t.Parallel()

	catalog := catalogx.NewStatic(testProducts()...)
	adv := &fakeAdvisor{}
	h := newTestServer(t, catalog, WithAdvisor(adv)).Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/products/2/price-analysis", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("price analysis status = %d", rec.Code)
	}
	if got := decode[advisor.PriceAnalysis](t, rec); got.Verdict != advisor.VerdictFair {
		t.Fatalf("analysis = %+v", got)
	}

	if rec := do(t, h, http.MethodPost, "/api/v1/products/2/ask", map[string]string{}); rec.Code != http.StatusBadRequest {
		t.Fatalf("ask without question status = %d, want 400", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/api/v1/products/2/ask", map[string]string{"question": "is the camera good?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("ask status = %d", rec.Code)
	}
	if got := decode[askResponse](t, rec); got.ProductID != "2" || !strings.Contains(got.Answer, "Galaxy") {
		t.Fatalf("ask = %+v", got)
	}

	failing := newTestServer(t, catalog, WithAdvisor(&fakeAdvisor{err: fmt.Errorf("%w: bad verdict", contractx.ErrSchemaViolation)})).Handler()
	if rec := do(t, failing, http.MethodPost, "/api/v1/products/2/price-analysis", nil); rec.Code != http.StatusBadGateway {
		t.Fatalf("schema violation status = %d, want 502", rec.Code)
	}
	rejecting := newTestServer(t, catalog, WithAdvisor(&fakeAdvisor{err: fmt.Errorf("%w: question too long", contractx.ErrValidation)})).Handler()
	if rec := do(t, rejecting, http.MethodPost, "/api/v1/products/2/ask", map[string]string{"question": "why"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("validation status = %d, want 400", rec.Code)
	}
}

func TestOrdersEndpoints(t *testing.T) {
	t.Parallel()

	catalog := catalogx.NewStatic(testProducts()...)
	if rec := do(t, newTestServer(t, catalog).Handler(), http.MethodGet, "/api/v1/orders/o1", nil); rec.Code != http.StatusNotImplemented {
		t.Fatalf("unconfigured status = %d, want 501", rec.Code)
	}

	h := newTestServer(t, catalog, WithOrderRecorder(NewOrderRecorder(newFakeOrderStore(), nil, ""))).Handler()
	if rec := do(t, h, http.MethodGet, "/api/v1/orders/missing", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing order status = %d, want 404", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/users/u1/orders?limit=0", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d, want 400", rec.Code)
	}
	rec := do(t, h, http.MethodGet, "/api/v1/users/u1/orders", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if got := decode[ordersResponse](t, rec); got.Orders == nil || len(got.Orders) != 0 {
		t.Fatalf("orders = %+v, want empty list", got.Orders)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, catalogx.NewStatic(testProducts()...))
	h := srv.Handler()
	send(t, h, "s1", "find iphone")

	rec := do(t, h, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`shoptalk_http_requests_total{method="POST",route="/api/v1/sessions/{id}/messages",status="200"} 1`,
		`shoptalk_intents_total{kind="search"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q", want)
		}
	}
}

func TestSessionLocksSerialize(t *testing.T) {
	t.Parallel()

	locks := newSessionLocks()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		overlap bool
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("s1")
			defer unlock()

			mu.Lock()
			active++
			if active > 1 {
				overlap = true
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if overlap {
		t.Fatal("two holders of the same session lock ran concurrently")
	}
	if n := locks.size(); n != 0 {
		t.Fatalf("lock entries = %d, want 0 after release", n)
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, catalogx.NewStatic(testProducts()...))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, Config{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, catalogx.NewStatic()); err == nil {
		t.Fatal("expected error for nil assistant")
	}
	if _, err := New(fakeAssistant{}, nil); err == nil {
		t.Fatal("expected error for nil catalog")
	}
}
