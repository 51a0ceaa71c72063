package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"ragchat/models"
	"ragchat/services/gateway"

	"github.com/gorilla/mux"
)

type ModelHandler struct {
	selector *gateway.Selector
	gateway  *gateway.Gateway
}

func NewModelHandler(selector *gateway.Selector, gw *gateway.Gateway) *ModelHandler {
	return &ModelHandler{selector: selector, gateway: gw}
}

func (h *ModelHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/model", h.GetModel).Methods("GET")
	router.HandleFunc("/model", h.SetModel).Methods("PUT")
}

func (h *ModelHandler) GetModel(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.ModelChoiceResponse{
		Model:     h.selector.Get(),
		Supported: h.gateway.Supported(),
	})
}

// SetModel stores the requested choice even when no provider serves it;
// queries then fail until a supported model is selected.
func (h *ModelHandler) SetModel(w http.ResponseWriter, r *http.Request) {
	var req models.ModelChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.Model) == "" {
		writeErrorResponse(w, http.StatusBadRequest, "model is required")
		return
	}

	choice := h.selector.Set(req.Model, h.gateway.Supports)

	resp := models.ModelChoiceResponse{Model: choice, Supported: h.gateway.Supported()}
	if !h.gateway.Supports(choice) {
		resp.Message = fmt.Sprintf("model %q is not supported; queries will fail until one of %v is selected", choice, resp.Supported)
	}
	writeJSONResponse(w, http.StatusOK, resp)
}
