package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"ragchat/models"
	"ragchat/services/chat"
	"ragchat/services/formatter"
	"ragchat/services/gateway"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

type QueryProcessor interface {
	ProcessQuery(ctx context.Context, query string, cfg chat.SessionConfig) (*models.Transcript, error)
}

type QueryHandler struct {
	service   QueryProcessor
	selector  *gateway.Selector
	formatter formatter.Formatter
	timeout   time.Duration
}

func NewQueryHandler(service QueryProcessor, selector *gateway.Selector, f formatter.Formatter, timeout time.Duration) *QueryHandler {
	if f == nil {
		f = formatter.Passthrough{}
	}
	return &QueryHandler{service: service, selector: selector, formatter: f, timeout: timeout}
}

func (h *QueryHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ping", h.Ping).Methods("GET")
	router.HandleFunc("/query", h.ProcessQuery).Methods("POST")
}

func (h *QueryHandler) Ping(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, true)
}

func (h *QueryHandler) ProcessQuery(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error().Err(err).Msg("Failed to decode query request JSON")
		writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	model := h.selector.Get()
	if req.Model != "" {
		model = gateway.Normalize(req.Model)
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	log.Info().Str("model", string(model)).Str("session_id", req.SessionID).Msg("Received query request")

	transcript, err := h.service.ProcessQuery(ctx, req.Query, chat.SessionConfig{
		SessionID: req.SessionID,
		Model:     model,
	})
	if err != nil {
		log.Error().Err(err).Msg("Query processing failed")
		writeErrorResponse(w, queryErrorStatus(err), err.Error())
		return
	}

	answer := transcript.FinalAnswer()
	formatted, err := h.formatter.Format(ctx, transcript)
	if err != nil {
		log.Warn().Err(err).Msg("Formatting failed, returning raw answer")
		formatted = answer
	}

	writeJSONResponse(w, http.StatusOK, models.QueryResponse{
		FinalResponse: formatted,
		Answer:        answer,
		Model:         model,
		Transcript:    transcript,
	})
}

func queryErrorStatus(err error) int {
	switch {
	case errors.Is(err, gateway.ErrUnsupportedModelChoice):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, gateway.ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
