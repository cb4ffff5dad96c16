// Package bank implements one participant in the payment network: the RPC
// surface over a single in-memory ledger, plus the link that keeps the
// bank registered with the gateway.
package bank

import (
	"errors"
	"log"

	"github.com/shopspring/decimal"

	"github.com/interpay/interbank/internal/accountstore"
	"github.com/interpay/interbank/internal/ledger"
	"github.com/interpay/interbank/internal/models"
)

// Service wires the participant operations to the ledger and the seeded
// credential store. Internal failures are converted to negative responses
// at this boundary; nothing here panics past the handler.
type Service struct {
	name   string
	ledger *ledger.Ledger
	creds  *accountstore.Store
}

func NewService(name string, l *ledger.Ledger, creds *accountstore.Store) *Service {
	return &Service{name: name, ledger: l, creds: creds}
}

// Registration validates a client's credentials on behalf of the gateway.
// Banks do not register with each other, so a request without an id is
// refused.
func (s *Service) Registration(req models.RegistrationRequest) models.StatusResponse {
	if req.ID == "" {
		return models.StatusResponse{TransactionID: req.TransactionID, Success: false}
	}
	if _, ok := s.creds.Authenticate(req.ID, req.Password); !ok {
		log.Printf("[%s] invalid client details for %s", s.name, req.ID)
		return models.StatusResponse{TransactionID: req.TransactionID, Success: false}
	}
	log.Printf("[%s] client %s validated", s.name, req.ID)
	return models.StatusResponse{TransactionID: req.TransactionID, Success: true}
}

// Prepare reserves one leg of a cross-bank transfer.
func (s *Service) Prepare(req models.PrepareRequest) models.PrepareResponse {
	ready := s.ledger.Prepare(req.TransactionID, req.AccountID, req.Amount, req.IsCredit)
	return models.PrepareResponse{TransactionID: req.TransactionID, Ready: ready}
}

// Commit resolves a prepared leg: apply it (commit=true) or discard it.
func (s *Service) Commit(req models.CommitRequest) models.StatusResponse {
	ok := s.ledger.Resolve(req.TransactionID, req.Commit)
	return models.StatusResponse{TransactionID: req.TransactionID, Success: ok}
}

// Balance answers a read-only balance query, -1 sentinel on lookup failure.
func (s *Service) Balance(accountID string) models.BalanceResponse {
	amount, err := s.ledger.Balance(accountID)
	if err != nil {
		log.Printf("[%s] balance check failed for %s: %v", s.name, accountID, err)
		return models.BalanceResponse{Amount: decimal.NewFromInt(-1), Status: models.BalanceError}
	}
	return models.BalanceResponse{Amount: amount, Status: models.BalanceOK}
}

// Pay is the same-bank fast path: both accounts live in this ledger, so the
// transfer applies atomically under the ledger lock with no prepare phase.
func (s *Service) Pay(req models.PaymentRequest) models.PaymentResponse {
	if req.ReceiverBank != "" && req.ReceiverBank != s.name {
		return models.PaymentResponse{TransactionID: req.TransactionID, Success: false,
			ErrorMessage: "receiver bank " + req.ReceiverBank + " not served here"}
	}
	err := s.ledger.LocalTransfer(req.TransactionID, req.SenderID, req.ReceiverID, req.Amount, req.IsCredit)
	if err != nil {
		msg := "payment failed"
		switch {
		case errors.Is(err, ledger.ErrAccountNotFound):
			msg = "account not found"
		case errors.Is(err, ledger.ErrInsufficientFunds):
			msg = "insufficient funds"
		}
		log.Printf("[%s] local payment %s failed: %v", s.name, req.TransactionID, err)
		return models.PaymentResponse{TransactionID: req.TransactionID, Success: false, ErrorMessage: msg}
	}
	return models.PaymentResponse{TransactionID: req.TransactionID, Success: true}
}

// Name identifies this bank.
func (s *Service) Name() string { return s.name }
