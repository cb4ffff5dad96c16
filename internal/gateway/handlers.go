package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/interpay/interbank/internal/callgate"
	"github.com/interpay/interbank/internal/models"
)

// Handler exposes the coordinator over the RPC surface.
type Handler struct {
	coord    *Coordinator
	validate *validator.Validate
}

func NewHandler(coord *Coordinator) *Handler {
	return &Handler{coord: coord, validate: validator.New()}
}

// Router builds the gateway's HTTP surface. Every operation except the ping
// passes through the call gate before reaching the coordinator.
func (h *Handler) Router(creds callgate.CredentialStore) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.With(callgate.Gate(creds, callgate.OpRegistration)).Post("/register", h.Registration)
	r.With(callgate.Gate(creds, callgate.OpMakePayment)).Post("/payments", h.MakePayment)
	r.With(callgate.Gate(creds, callgate.OpCheckBalance)).Get("/balance", h.CheckBalance)
	r.Post("/ping", h.Pinger)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (h *Handler) Registration(w http.ResponseWriter, r *http.Request) {
	var req models.RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, models.StatusResponse{TransactionID: req.TransactionID, Success: false})
		return
	}
	writeJSON(w, h.coord.Registration(r.Context(), req))
}

func (h *Handler) MakePayment(w http.ResponseWriter, r *http.Request) {
	var req models.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, models.PaymentResponse{TransactionID: req.TransactionID, Success: false, ErrorMessage: "invalid payment request"})
		return
	}
	if req.Amount.Sign() <= 0 {
		writeJSON(w, models.PaymentResponse{TransactionID: req.TransactionID, Success: false, ErrorMessage: "amount must be positive"})
		return
	}
	writeJSON(w, h.coord.MakePayment(r.Context(), req))
}

func (h *Handler) CheckBalance(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		writeJSON(w, errBalance())
		return
	}
	writeJSON(w, h.coord.CheckBalance(r.Context(), clientID))
}

func (h *Handler) Pinger(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, models.Ping{Alive: true})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[gateway] encode response: %v", err)
	}
}
