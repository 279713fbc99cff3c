package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/tanpawarit/shoptalk-assistant/agent/agents/shoptalk"
	catalogx "github.com/tanpawarit/shoptalk-assistant/agent/catalog"
	contractx "github.com/tanpawarit/shoptalk-assistant/agent/contract"
	statex "github.com/tanpawarit/shoptalk-assistant/agent/state"
	"github.com/tanpawarit/shoptalk-assistant/agent/voice"
	logx "github.com/tanpawarit/shoptalk-assistant/pkg/logger"
	"github.com/tanpawarit/shoptalk-assistant/pkg/orderdb"
)

const (
	maxJSONBodyBytes = 1 << 20
	maxOrderLimit    = 100
)

func newUUID() string {
	return uuid.NewString()
}

type createSessionRequest struct {
	UserID string `json:"user_id" validate:"omitempty,max=128"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`
}

type messageRequest struct {
	Text        string `json:"text" validate:"max=2000"`
	UserID      string `json:"user_id" validate:"omitempty,max=128"`
	ChannelType string `json:"channel_type" validate:"omitempty,oneof=chat voice web"`
}

type voiceResponse struct {
	Transcript string           `json:"transcript"`
	Result     contractx.Result `json:"result"`
}

type cartResponse struct {
	SessionID string             `json:"session_id"`
	Step      statex.Step        `json:"step"`
	Cart      contractx.CartView `json:"cart"`
}

type productsResponse struct {
	Query    string             `json:"query,omitempty"`
	Category string             `json:"category,omitempty"`
	Products []catalogx.Product `json:"products"`
}

type compareRequest struct {
	ProductIDs []string `json:"product_ids" validate:"min=2,max=4,unique,dive,required"`
}

type askRequest struct {
	Question string `json:"question" validate:"required,max=500"`
}

type askResponse struct {
	ProductID string `json:"product_id"`
	Answer    string `json:"answer"`
}

type ordersResponse struct {
	UserID string           `json:"user_id"`
	Orders []*orderdb.Order `json:"orders"`
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength != 0 {
		if !s.decodeBody(w, r, &req) {
			return
		}
	}
	writeJSON(w, http.StatusCreated, createSessionResponse{
		SessionID: s.newSessionID(),
		UserID:    req.UserID,
	})
}

func (s *Server) messageHandler(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	res, status, err := s.dispatch(r.Context(), shoptalk.Message{
		SessionID:   mux.Vars(r)["id"],
		UserID:      req.UserID,
		ChannelType: req.ChannelType,
		Text:        req.Text,
	})
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) voiceHandler(w http.ResponseWriter, r *http.Request) {
	if s.transcriber == nil {
		writeError(w, http.StatusNotImplemented, "voice input is not configured")
		return
	}

	// Multipart framing overhead on top of the audio itself.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "audio upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "expected multipart form with an audio field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio field is required")
		return
	}
	defer file.Close()

	ctx := r.Context()
	transcript, err := s.transcriber.Transcribe(ctx, header.Filename, file)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, voice.ErrEmptyAudio):
			status = http.StatusBadRequest
		case errors.Is(err, voice.ErrAudioTooLarge):
			status = http.StatusRequestEntityTooLarge
		case errors.Is(err, voice.ErrEmptyTranscript):
			status = http.StatusUnprocessableEntity
		}
		logx.FromContext(ctx).Warn().Err(err).Msg("transcription failed")
		writeError(w, status, "could not transcribe audio")
		return
	}

	res, status, err := s.dispatch(ctx, shoptalk.Message{
		SessionID:   mux.Vars(r)["id"],
		UserID:      strings.TrimSpace(r.FormValue("user_id")),
		ChannelType: "voice",
		Text:        transcript,
	})
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, voiceResponse{Transcript: transcript, Result: res})
}

// dispatch runs one utterance under the session lock and records any order
// it confirms.
func (s *Server) dispatch(ctx context.Context, msg shoptalk.Message) (contractx.Result, int, error) {
	ctx = logx.WithSession(ctx, msg.SessionID)

	unlock := s.locks.lock(msg.SessionID)
	res, err := s.assistant.Handle(ctx, msg)
	unlock()
	if err != nil {
		if errors.Is(err, shoptalk.ErrInvalidSession) {
			return contractx.Result{}, http.StatusBadRequest, err
		}
		logx.FromContext(ctx).Error().Err(err).Msg("process message failed")
		return contractx.Result{}, http.StatusInternalServerError, errors.New("session storage unavailable")
	}

	s.metrics.IntentsTotal.WithLabelValues(string(res.Kind)).Inc()
	if res.Order != nil {
		s.recordOrder(ctx, res.Order)
	}
	return res, http.StatusOK, nil
}

// recordOrder never fails the request: the payment already succeeded in the
// session, so persistence problems are logged and counted.
func (s *Server) recordOrder(ctx context.Context, o *statex.Order) {
	if s.orders == nil {
		return
	}
	if err := s.orders.Record(context.WithoutCancel(ctx), o); err != nil {
		s.metrics.OrdersRecorded.WithLabelValues("failed").Inc()
		logx.FromContext(ctx).Error().Err(err).Str("order_id", o.ID).Msg("record order failed")
		return
	}
	s.metrics.OrdersRecorded.WithLabelValues("ok").Inc()
}

func (s *Server) cartHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	view, step, err := s.assistant.Cart(r.Context(), id)
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{SessionID: id, Step: step, Cart: view})
}

func (s *Server) resetSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	unlock := s.locks.lock(id)
	err := s.assistant.Reset(r.Context(), id)
	unlock()
	if err != nil {
		s.writeSessionError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, shoptalk.ErrInvalidSession) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	logx.FromContext(r.Context()).Error().Err(err).Msg("session store failed")
	writeError(w, http.StatusInternalServerError, "session storage unavailable")
}

func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("q"))
	if raw == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	products, err := s.catalog.Search(r.Context(), catalogx.ParseQuery(raw))
	if err != nil {
		logx.FromContext(r.Context()).Warn().Err(err).Str("query", raw).Msg("catalog search failed")
		writeError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}
	writeJSON(w, http.StatusOK, productsResponse{Query: raw, Products: nonNil(products)})
}

func (s *Server) categoryHandler(w http.ResponseWriter, r *http.Request) {
	category := mux.Vars(r)["category"]
	products, err := s.catalog.ByCategory(r.Context(), category)
	if err != nil {
		logx.FromContext(r.Context()).Warn().Err(err).Str("category", category).Msg("catalog category failed")
		writeError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}
	writeJSON(w, http.StatusOK, productsResponse{Category: category, Products: nonNil(products)})
}

func (s *Server) compareHandler(w http.ResponseWriter, r *http.Request) {
	if s.advisor == nil {
		writeError(w, http.StatusNotImplemented, "product advisor is not configured")
		return
	}
	var req compareRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	products := make([]catalogx.Product, 0, len(req.ProductIDs))
	for _, id := range req.ProductIDs {
		p, ok := s.lookupProduct(w, r, id)
		if !ok {
			return
		}
		products = append(products, p)
	}

	cmp, err := s.advisor.Compare(r.Context(), products)
	if err != nil {
		s.writeAdvisorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

func (s *Server) priceAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	if s.advisor == nil {
		writeError(w, http.StatusNotImplemented, "product advisor is not configured")
		return
	}
	p, ok := s.lookupProduct(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}
	analysis, err := s.advisor.AnalyzePrice(r.Context(), p)
	if err != nil {
		s.writeAdvisorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) askHandler(w http.ResponseWriter, r *http.Request) {
	if s.advisor == nil {
		writeError(w, http.StatusNotImplemented, "product advisor is not configured")
		return
	}
	var req askRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	p, ok := s.lookupProduct(w, r, mux.Vars(r)["id"])
	if !ok {
		return
	}
	answer, err := s.advisor.Ask(r.Context(), p, req.Question)
	if err != nil {
		s.writeAdvisorError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, askResponse{ProductID: p.ID, Answer: answer})
}

func (s *Server) lookupProduct(w http.ResponseWriter, r *http.Request, id string) (catalogx.Product, bool) {
	p, err := s.catalog.Get(r.Context(), id)
	switch {
	case catalogx.IsNotFound(err):
		writeError(w, http.StatusNotFound, fmt.Sprintf("product %s not found", id))
		return catalogx.Product{}, false
	case err != nil:
		logx.FromContext(r.Context()).Warn().Err(err).Str("product_id", id).Msg("catalog lookup failed")
		writeError(w, http.StatusBadGateway, "catalog unavailable")
		return catalogx.Product{}, false
	}
	return *p, true
}

func (s *Server) writeAdvisorError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, contractx.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, contractx.ErrSchemaViolation), errors.Is(err, contractx.ErrModelInvoke):
		logx.FromContext(r.Context()).Warn().Err(err).Msg("advisor failed")
		writeError(w, http.StatusBadGateway, "advisor unavailable")
	default:
		logx.FromContext(r.Context()).Error().Err(err).Msg("advisor failed")
		writeError(w, http.StatusInternalServerError, "advisor failed")
	}
}

func (s *Server) listOrdersHandler(w http.ResponseWriter, r *http.Request) {
	store := s.orders.Store()
	if store == nil {
		writeError(w, http.StatusNotImplemented, "order history is not configured")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxOrderLimit {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxOrderLimit))
			return
		}
		limit = n
	}

	user := mux.Vars(r)["user"]
	orders, err := store.ListByUser(r.Context(), user, limit)
	if err != nil {
		logx.FromContext(r.Context()).Error().Err(err).Str("user_id", user).Msg("list orders failed")
		writeError(w, http.StatusInternalServerError, "order history unavailable")
		return
	}
	if orders == nil {
		orders = []*orderdb.Order{}
	}
	writeJSON(w, http.StatusOK, ordersResponse{UserID: user, Orders: orders})
}

func (s *Server) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	store := s.orders.Store()
	if store == nil {
		writeError(w, http.StatusNotImplemented, "order history is not configured")
		return
	}

	id := mux.Vars(r)["id"]
	order, err := store.Get(r.Context(), id)
	switch {
	case errors.Is(err, orderdb.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("order %s not found", id))
		return
	case err != nil:
		logx.FromContext(r.Context()).Error().Err(err).Str("order_id", id).Msg("get order failed")
		writeError(w, http.StatusInternalServerError, "order history unavailable")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// decodeBody decodes and validates a JSON body, writing a 400 on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, formatValidationErrors(err))
		return false
	}
	return true
}

func nonNil(products []catalogx.Product) []catalogx.Product {
	if products == nil {
		return []catalogx.Product{}
	}
	return products
}
