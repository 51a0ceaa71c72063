package handlers

import (
	"context"
	"net/http"

	"ragchat/models"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

type ToolLister interface {
	Contracts(ctx context.Context) ([]models.ToolContract, error)
}

type PromptLister interface {
	Prompts(ctx context.Context) ([]models.PromptInfo, error)
}

type ToolsHandler struct {
	tools   ToolLister
	prompts PromptLister
}

func NewToolsHandler(tools ToolLister, prompts PromptLister) *ToolsHandler {
	return &ToolsHandler{tools: tools, prompts: prompts}
}

func (h *ToolsHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/tools", h.ListTools).Methods("GET")
	router.HandleFunc("/prompts", h.ListPrompts).Methods("GET")
}

func (h *ToolsHandler) ListTools(w http.ResponseWriter, r *http.Request) {
	contracts, err := h.tools.Contracts(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list tools")
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to list tools")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.ToolsResponse{Tools: contracts})
}

func (h *ToolsHandler) ListPrompts(w http.ResponseWriter, r *http.Request) {
	prompts, err := h.prompts.Prompts(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list prompts")
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to list prompts")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.PromptsResponse{Prompts: prompts})
}
