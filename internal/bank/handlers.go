package bank

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/interpay/interbank/internal/callgate"
	"github.com/interpay/interbank/internal/models"
)

// Handler exposes the participant service over the RPC surface.
type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validate: validator.New()}
}

// Router builds the bank's HTTP surface, gated per operation like the
// gateway's.
func (h *Handler) Router(creds callgate.CredentialStore) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.With(callgate.Gate(creds, callgate.OpRegistration)).Post("/register", h.Registration)
	r.With(callgate.Gate(creds, callgate.OpPrepare)).Post("/prepare", h.Prepare)
	r.With(callgate.Gate(creds, callgate.OpCommit)).Post("/commit", h.Commit)
	r.With(callgate.Gate(creds, callgate.OpCheckBalance)).Get("/balance", h.Balance)
	r.With(callgate.Gate(creds, callgate.OpMakePayment)).Post("/pay", h.Pay)
	r.Post("/ping", h.Pinger)

	return r
}

func (h *Handler) Registration(w http.ResponseWriter, r *http.Request) {
	var req models.RegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	writeJSON(w, h.svc.Registration(req))
}

func (h *Handler) Prepare(w http.ResponseWriter, r *http.Request) {
	var req models.PrepareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, models.PrepareResponse{TransactionID: req.TransactionID, Ready: false})
		return
	}
	writeJSON(w, h.svc.Prepare(req))
}

func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	var req models.CommitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, models.StatusResponse{TransactionID: req.TransactionID, Success: false})
		return
	}
	writeJSON(w, h.svc.Commit(req))
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	writeJSON(w, h.svc.Balance(accountID))
}

func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	var req models.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, models.PaymentResponse{TransactionID: req.TransactionID, Success: false, ErrorMessage: "invalid payment request"})
		return
	}
	writeJSON(w, h.svc.Pay(req))
}

func (h *Handler) Pinger(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, models.Ping{Alive: true})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[bank] encode response: %v", err)
	}
}
