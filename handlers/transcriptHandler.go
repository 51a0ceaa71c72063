package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"ragchat/db"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

type TranscriptHandler struct {
	repo db.TranscriptRepository
}

func NewTranscriptHandler(repo db.TranscriptRepository) *TranscriptHandler {
	return &TranscriptHandler{repo: repo}
}

func (h *TranscriptHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/transcripts", h.ListTranscripts).Methods("GET")
	router.HandleFunc("/transcripts/{id}", h.GetTranscript).Methods("GET")
}

func (h *TranscriptHandler) ListTranscripts(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeErrorResponse(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	records, err := h.repo.ListTranscripts(r.Context(), r.URL.Query().Get("session_id"), limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list transcripts")
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve transcripts")
		return
	}

	writeJSONResponse(w, http.StatusOK, records)
}

func (h *TranscriptHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	record, err := h.repo.GetTranscript(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrTranscriptNotFound) {
			writeErrorResponse(w, http.StatusNotFound, err.Error())
		} else {
			log.Error().Err(err).Str("id", id).Msg("Failed to get transcript")
			writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve transcript")
		}
		return
	}

	writeJSONResponse(w, http.StatusOK, record)
}
