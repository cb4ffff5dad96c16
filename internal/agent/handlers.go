package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Handler is the agent's local control surface: submit a transfer, then
// poll pending/history to observe its outcome. It binds to loopback only;
// there is no authentication on it.
type Handler struct {
	agent    *Agent
	validate *validator.Validate
}

func NewHandler(a *Agent) *Handler {
	return &Handler{agent: a, validate: validator.New()}
}

func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/send", h.Send)
	r.Post("/retry", h.Retry)
	r.Post("/offline", h.Offline)
	r.Get("/pending", h.Pending)
	r.Get("/history", h.History)
	r.Get("/balance", h.Balance)
	r.Get("/status", h.Status)

	return r
}

type sendRequest struct {
	ReceiverID    string          `json:"receiver_id" validate:"required"`
	ReceiverBank  string          `json:"receiver_bank"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	TransactionID string          `json:"transaction_id"`
}

func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil || req.Amount.Sign() <= 0 {
		http.Error(w, "invalid send request", http.StatusBadRequest)
		return
	}
	txID := h.agent.SendMoney(req.ReceiverID, req.ReceiverBank, req.Amount, req.TransactionID)
	writeJSON(w, map[string]string{"transaction_id": txID, "status": "initiated"})
}

func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TransactionID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.agent.RetryTransaction(req.TransactionID); err != nil {
		if errors.Is(err, ErrNotInHistory) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"transaction_id": req.TransactionID, "status": "initiated"})
}

func (h *Handler) Offline(w http.ResponseWriter, r *http.Request) {
	h.agent.ForceOffline()
	writeJSON(w, map[string]bool{"online": false})
}

func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.agent.Pending())
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	writeJSON(w, h.agent.History(limit))
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	amount, err := h.agent.Balance(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]any{"amount": amount})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]bool{"online": h.agent.Online()})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}
