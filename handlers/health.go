package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"pinbot/core/log"
	"pinbot/services/identity"
)

type HealthResponse struct {
	Status string  `json:"status"`
	Ready  bool    `json:"ready"`
	SelfID *string `json:"self_id"`
}

type HealthHandler struct {
	identityService *identity.IdentityService
}

func NewHealthHandler(identityService *identity.IdentityService) *HealthHandler {
	return &HealthHandler{
		identityService: identityService,
	}
}

// NewRouter exposes the health check for an external supervisor.
func (h *HealthHandler) NewRouter() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", h.HandleHealth).Methods("GET")
	return router
}

// HandleHealth reports the process as up; ready turns true once a gateway session is
// identified.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if selfID, ok := h.identityService.SelfID().Get(); ok {
		resp.Ready = true
		resp.SelfID = &selfID
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error("❌ Failed to write health check response", "error", err)
	}
}
