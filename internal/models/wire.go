package models

import "github.com/shopspring/decimal"

// RegistrationRequest enrolls a bank or a client with the gateway.
// A bank registration carries no ID/password; a client registration carries
// both and names the bank holding the account.
type RegistrationRequest struct {
	IP            string `json:"ip" validate:"required"`
	Port          int    `json:"port" validate:"required,gt=0,lt=65536"`
	Name          string `json:"name" validate:"required"`
	ID            string `json:"id,omitempty"`
	Password      string `json:"password,omitempty"`
	TransactionID string `json:"transaction_id" validate:"required"`
}

// StatusResponse is the generic success/failure envelope keyed by
// transaction id.
type StatusResponse struct {
	TransactionID string `json:"transaction_id"`
	Success       bool   `json:"success"`
}

// PrepareRequest asks a bank to reserve one leg of a transfer.
type PrepareRequest struct {
	TransactionID string          `json:"transaction_id" validate:"required"`
	AccountID     string          `json:"account_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	IsCredit      bool            `json:"is_credit"`
}

type PrepareResponse struct {
	TransactionID string `json:"transaction_id"`
	Ready         bool   `json:"ready"`
}

// CommitRequest resolves a prepared leg. Commit=false aborts it.
type CommitRequest struct {
	TransactionID string `json:"transaction_id" validate:"required"`
	Commit        bool   `json:"commit"`
}

// PaymentRequest initiates a transfer. Sent by clients to the gateway and by
// the gateway to a bank for the same-bank fast path.
type PaymentRequest struct {
	TransactionID string          `json:"transaction_id" validate:"required"`
	SenderID      string          `json:"sender_id" validate:"required"`
	ReceiverID    string          `json:"receiver_id" validate:"required"`
	ReceiverBank  string          `json:"receiver_bank"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	IsCredit      bool            `json:"is_credit"`
}

type PaymentResponse struct {
	TransactionID string `json:"transaction_id"`
	Success       bool   `json:"success"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// BalanceResponse carries an account balance. Status is "ok" on success;
// any other value marks the amount as a sentinel (-1) that must not be
// treated as a balance.
type BalanceResponse struct {
	Amount decimal.Decimal `json:"amount"`
	Status string          `json:"status"`
}

const (
	BalanceOK    = "ok"
	BalanceError = "error"
)

// Ping is the liveness probe payload, exempt from authentication.
type Ping struct {
	Alive bool `json:"alive"`
}
