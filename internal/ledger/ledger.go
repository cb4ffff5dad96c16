package ledger

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/interpay/interbank/internal/models"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Ledger holds one bank's accounts and prepared-transaction table. All
// state lives in memory behind a single mutex; nothing in a critical
// section performs I/O.
type Ledger struct {
	bankName       string
	prepareTimeout time.Duration

	mu        sync.Mutex
	accounts  map[string]*models.Account
	prepared  map[string]*models.PreparedTransaction
	committed map[string]time.Time
}

func New(bankName string, prepareTimeout time.Duration) *Ledger {
	return &Ledger{
		bankName:       bankName,
		prepareTimeout: prepareTimeout,
		accounts:       make(map[string]*models.Account),
		prepared:       make(map[string]*models.PreparedTransaction),
		committed:      make(map[string]time.Time),
	}
}

// Seed installs the accounts loaded at startup. Existing entries with the
// same id are replaced.
func (l *Ledger) Seed(accounts []*models.Account) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, a := range accounts {
		copied := *a
		l.accounts[a.ID] = &copied
	}
}

// Prepare reserves one leg of a transfer without touching the balance.
// A replay of an already-prepared or already-committed transaction id
// answers ready=true so the coordinator can retry safely.
func (l *Ledger) Prepare(txID, accountID string, amount decimal.Decimal, isCredit bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.prepared[txID]; ok {
		log.Printf("[%s] transaction %s already prepared", l.bankName, txID)
		return true
	}
	if _, ok := l.committed[txID]; ok {
		log.Printf("[%s] transaction %s already committed, prepare is a no-op", l.bankName, txID)
		return true
	}

	account, ok := l.accounts[accountID]
	if !ok {
		log.Printf("[%s] prepare %s: account %s not found", l.bankName, txID, accountID)
		return false
	}
	if !isCredit && account.Balance.LessThan(amount) {
		log.Printf("[%s] prepare %s: insufficient funds in %s", l.bankName, txID, accountID)
		return false
	}

	l.prepared[txID] = &models.PreparedTransaction{
		TransactionID: txID,
		AccountID:     accountID,
		Amount:        amount,
		IsCredit:      isCredit,
		CreatedAt:     time.Now(),
	}
	return true
}

// Resolve finishes a prepared transaction. With commit=true the stored
// amount is applied to the account and the id moves to the commit log;
// with commit=false the reservation is discarded. Either way the prepared
// entry is gone afterwards. Resolving an unknown id reports false: the
// caller must not assume money moved.
func (l *Ledger) Resolve(txID string, commit bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, ok := l.prepared[txID]
	if !ok {
		log.Printf("[%s] transaction %s not prepared, cannot resolve", l.bankName, txID)
		return false
	}
	delete(l.prepared, txID)

	if !commit {
		log.Printf("[%s] transaction %s aborted", l.bankName, txID)
		return true
	}

	account, ok := l.accounts[tx.AccountID]
	if !ok {
		log.Printf("[%s] commit %s: account %s vanished", l.bankName, txID, tx.AccountID)
		return false
	}
	if tx.IsCredit {
		account.Balance = account.Balance.Add(tx.Amount)
	} else {
		// Balances can move between prepare and commit; the prepare-time
		// check is authoritative, this one keeps the balance non-negative.
		if account.Balance.LessThan(tx.Amount) {
			log.Printf("[%s] commit %s: balance moved below %s since prepare", l.bankName, txID, tx.Amount)
			return false
		}
		account.Balance = account.Balance.Sub(tx.Amount)
	}
	l.committed[txID] = time.Now()
	verb := "debited"
	if tx.IsCredit {
		verb = "credited"
	}
	log.Printf("[%s] transaction %s committed (%s %s on account %s)", l.bankName, txID, verb, tx.Amount, tx.AccountID)
	return true
}

// Balance returns the current balance of an account.
func (l *Ledger) Balance(accountID string) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	account, ok := l.accounts[accountID]
	if !ok {
		return decimal.Zero, ErrAccountNotFound
	}
	return account.Balance, nil
}

// LocalTransfer is the same-bank fast path: both legs live in this ledger,
// so the whole transfer happens under one lock with no prepare phase.
// Credit-only transfers skip the sender debit.
func (l *Ledger) LocalTransfer(txID, senderID, receiverID string, amount decimal.Decimal, creditOnly bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.committed[txID]; ok {
		log.Printf("[%s] transaction %s already applied", l.bankName, txID)
		return nil
	}

	receiver, ok := l.accounts[receiverID]
	if !ok {
		return ErrAccountNotFound
	}
	if creditOnly {
		receiver.Balance = receiver.Balance.Add(amount)
		l.committed[txID] = time.Now()
		return nil
	}

	sender, ok := l.accounts[senderID]
	if !ok {
		return ErrAccountNotFound
	}
	if sender.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	sender.Balance = sender.Balance.Sub(amount)
	receiver.Balance = receiver.Balance.Add(amount)
	l.committed[txID] = time.Now()
	log.Printf("[%s] local transfer %s: %s -> %s amount %s", l.bankName, txID, senderID, receiverID, amount)
	return nil
}

// Committed reports whether a transaction id is in the commit log.
func (l *Ledger) Committed(txID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.committed[txID]
	return ok
}

// SweepExpired drops prepared transactions older than the prepare timeout.
// The coordinator is assumed to have given up on them; no balance moves.
func (l *Ledger) SweepExpired() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	expired := 0
	for txID, tx := range l.prepared {
		if now.Sub(tx.CreatedAt) > l.prepareTimeout {
			log.Printf("[%s] transaction %s expired, automatic abort", l.bankName, txID)
			delete(l.prepared, txID)
			expired++
		}
	}
	return expired
}

// RunSweeper periodically expires stale prepared transactions until the
// context is cancelled.
func (l *Ledger) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.SweepExpired()
		}
	}
}

// BankName identifies the bank owning this ledger.
func (l *Ledger) BankName() string { return l.bankName }
