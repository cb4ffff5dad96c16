package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a single ledger entry owned by one bank. Its balance is only
// mutated by committed transactions or the same-bank fast path.
type Account struct {
	ID       string          `json:"id"`
	BankName string          `json:"bank_name"`
	Balance  decimal.Decimal `json:"balance"`
}

// PreparedTransaction is one reserved leg of a transfer, held by a bank
// between prepare and commit/abort.
type PreparedTransaction struct {
	TransactionID string
	AccountID     string
	Amount        decimal.Decimal
	IsCredit      bool
	CreatedAt     time.Time
}

// TxState is the coordinator-side view of where a transfer is.
type TxState string

const (
	TxPreparing  TxState = "preparing"
	TxPrepared   TxState = "prepared"
	TxCommitting TxState = "committing"
	TxCommitted  TxState = "committed"
	TxAborting   TxState = "aborting"
	TxAborted    TxState = "aborted"
)

// Terminal reports whether the state can no longer change.
func (s TxState) Terminal() bool {
	return s == TxCommitted || s == TxAborted
}

// InProgressTransaction is the coordinator's record of a transfer being
// driven through the two-phase protocol.
type InProgressTransaction struct {
	TransactionID string
	SenderID      string
	SenderBank    string
	ReceiverID    string
	ReceiverBank  string
	Amount        decimal.Decimal
	State         TxState
	CreatedAt     time.Time
}

// PendingPayment is a client-side transfer not yet confirmed successful.
type PendingPayment struct {
	ReceiverID    string          `json:"receiver_id"`
	ReceiverBank  string          `json:"receiver_bank"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transaction_id"`
}

// History statuses. ERROR entries append transport detail after the prefix.
const (
	StatusPendingOffline = "PENDING-OFFLINE"
	StatusSuccess        = "SUCCESS"
	StatusFailed         = "FAILED"
	StatusErrorPrefix    = "ERROR-"
)

// HistoryEntry is one client-side audit record per transaction id. Entries
// are never removed; only Status changes as the transfer progresses.
type HistoryEntry struct {
	TransactionID string          `json:"transaction_id"`
	ReceiverID    string          `json:"receiver_id"`
	ReceiverBank  string          `json:"receiver_bank"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	Timestamp     time.Time       `json:"timestamp"`
}
