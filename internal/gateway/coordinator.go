package gateway

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/interpay/interbank/internal/models"
)

func errBalance() models.BalanceResponse {
	return models.BalanceResponse{Amount: decimal.NewFromInt(-1), Status: models.BalanceError}
}

// BankCaller is the coordinator's view of one registered bank. Satisfied by
// rpc.BankClient in production and by mocks in tests.
type BankCaller interface {
	PrepareTransaction(ctx context.Context, req models.PrepareRequest) (models.PrepareResponse, error)
	CommitTransaction(ctx context.Context, req models.CommitRequest) (models.StatusResponse, error)
	Registration(ctx context.Context, req models.RegistrationRequest) (models.StatusResponse, error)
	MakePayment(ctx context.Context, req models.PaymentRequest) (models.PaymentResponse, error)
	CheckBalance(ctx context.Context, accountID string) (models.BalanceResponse, error)
}

// Dialer produces a caller for a bank that just registered at addr.
type Dialer func(addr string) BankCaller

// Config carries the coordinator's protocol timings.
type Config struct {
	TransactionTimeout time.Duration
	CleanupInterval    time.Duration
	IdempotencyTTL     time.Duration
}

type clientEntry struct {
	addr     string
	bankName string
}

type idemRecord struct {
	seenAt  time.Time
	success bool
}

// Coordinator owns the bank/client directories, the idempotency log and
// the in-progress transaction table, and drives two-phase commit across
// the two banks party to each transfer. Directories and transaction state
// have separate locks; RPC calls to banks never happen while either lock
// is held.
type Coordinator struct {
	cfg  Config
	dial Dialer

	dirMu     sync.Mutex
	bankAddrs map[string]string
	banks     map[string]BankCaller
	clients   map[string]clientEntry

	txMu        sync.Mutex
	idempotency map[string]*idemRecord
	inProgress  map[string]*models.InProgressTransaction
}

func NewCoordinator(cfg Config, dial Dialer) *Coordinator {
	return &Coordinator{
		cfg:         cfg,
		dial:        dial,
		bankAddrs:   make(map[string]string),
		banks:       make(map[string]BankCaller),
		clients:     make(map[string]clientEntry),
		idempotency: make(map[string]*idemRecord),
		inProgress:  make(map[string]*models.InProgressTransaction),
	}
}

// Registration enrolls a bank (no password) or a client (id/password pair,
// validated against the named bank before the address is cached).
// Registrations are idempotent overwrites of the directory entry.
func (c *Coordinator) Registration(ctx context.Context, req models.RegistrationRequest) models.StatusResponse {
	addr := fmt.Sprintf("%s:%d", req.IP, req.Port)

	if req.ID == "" {
		if req.Password != "" {
			return models.StatusResponse{TransactionID: req.TransactionID, Success: false}
		}
		c.dirMu.Lock()
		c.bankAddrs[req.Name] = addr
		c.banks[req.Name] = c.dial(addr)
		c.dirMu.Unlock()
		log.Printf("[gateway] registered bank %s at %s", req.Name, addr)
		return models.StatusResponse{TransactionID: req.TransactionID, Success: true}
	}

	c.dirMu.Lock()
	bank, ok := c.banks[req.Name]
	c.dirMu.Unlock()
	if !ok {
		log.Printf("[gateway] client %s names unknown bank %s", req.ID, req.Name)
		return models.StatusResponse{TransactionID: req.TransactionID, Success: false}
	}

	validation, err := bank.Registration(ctx, req)
	if err != nil || !validation.Success {
		log.Printf("[gateway] bank %s rejected credentials for client %s", req.Name, req.ID)
		return models.StatusResponse{TransactionID: req.TransactionID, Success: false}
	}

	c.dirMu.Lock()
	c.clients[req.ID] = clientEntry{addr: addr, bankName: req.Name}
	c.dirMu.Unlock()
	log.Printf("[gateway] registered client %s at %s with bank %s", req.ID, addr, req.Name)
	return models.StatusResponse{TransactionID: req.TransactionID, Success: true}
}

// CheckBalance forwards a balance query to the client's registered bank.
// Any lookup failure answers the -1 sentinel with an error status.
func (c *Coordinator) CheckBalance(ctx context.Context, clientID string) models.BalanceResponse {
	c.dirMu.Lock()
	entry, ok := c.clients[clientID]
	var bank BankCaller
	if ok {
		bank = c.banks[entry.bankName]
	}
	c.dirMu.Unlock()

	if bank == nil {
		log.Printf("[gateway] balance check for unknown client %s", clientID)
		return errBalance()
	}
	resp, err := bank.CheckBalance(ctx, clientID)
	if err != nil {
		log.Printf("[gateway] balance check failed at %s: %v", entry.bankName, err)
		return errBalance()
	}
	return resp
}

// MakePayment drives one transfer through two-phase commit. Duplicate
// transaction ids answer the outcome recorded for the original attempt
// without touching the banks again.
func (c *Coordinator) MakePayment(ctx context.Context, req models.PaymentRequest) models.PaymentResponse {
	txID := req.TransactionID

	c.txMu.Lock()
	if rec, ok := c.idempotency[txID]; ok {
		c.txMu.Unlock()
		log.Printf("[gateway] duplicate transaction %s", txID)
		duplicateSubmissions.Inc()
		return models.PaymentResponse{TransactionID: txID, Success: rec.success}
	}
	c.idempotency[txID] = &idemRecord{seenAt: time.Now()}
	c.txMu.Unlock()

	senderBank, receiverBank, sender, receiver, err := c.resolveParties(req)
	if err != nil {
		log.Printf("[gateway] %s: %v", txID, err)
		return models.PaymentResponse{TransactionID: txID, Success: false, ErrorMessage: err.Error()}
	}

	c.txMu.Lock()
	c.inProgress[txID] = &models.InProgressTransaction{
		TransactionID: txID,
		SenderID:      req.SenderID,
		SenderBank:    senderBank,
		ReceiverID:    req.ReceiverID,
		ReceiverBank:  receiverBank,
		Amount:        req.Amount,
		State:         models.TxPreparing,
		CreatedAt:     time.Now(),
	}
	c.txMu.Unlock()

	log.Printf("[gateway] 2PC prepare: %s", txID)
	if !c.prepareAll(ctx, txID, req, sender, receiver) {
		prepareFailures.Inc()
		c.abort(ctx, txID)
		return models.PaymentResponse{TransactionID: txID, Success: false, ErrorMessage: "prepare phase failed"}
	}
	c.setState(txID, models.TxPrepared)

	log.Printf("[gateway] 2PC commit: %s", txID)
	c.setState(txID, models.TxCommitting)
	if !c.commitAll(ctx, txID, req, sender, receiver) {
		commitFailures.Inc()
		c.abort(ctx, txID)
		return models.PaymentResponse{TransactionID: txID, Success: false, ErrorMessage: "commit phase failed"}
	}
	c.setState(txID, models.TxCommitted)

	c.txMu.Lock()
	if rec, ok := c.idempotency[txID]; ok {
		rec.success = true
	}
	c.txMu.Unlock()
	transactionsCommitted.Inc()
	log.Printf("[gateway] transaction committed: %s", txID)
	return models.PaymentResponse{TransactionID: txID, Success: true}
}

// resolveParties maps the request onto two registered banks: the sender's
// from the directory, the receiver's from its registration, falling back to
// the bank named in the request for accounts that never registered.
func (c *Coordinator) resolveParties(req models.PaymentRequest) (senderBank, receiverBank string, sender, receiver BankCaller, err error) {
	c.dirMu.Lock()
	defer c.dirMu.Unlock()

	senderEntry, ok := c.clients[req.SenderID]
	if !ok {
		return "", "", nil, nil, fmt.Errorf("unknown sender %s", req.SenderID)
	}
	senderBank = senderEntry.bankName

	receiverBank = req.ReceiverBank
	if entry, ok := c.clients[req.ReceiverID]; ok {
		receiverBank = entry.bankName
	}
	if receiverBank == "" {
		return "", "", nil, nil, fmt.Errorf("unknown receiver %s", req.ReceiverID)
	}

	sender, ok = c.banks[senderBank]
	if !ok {
		return "", "", nil, nil, fmt.Errorf("unknown bank %s", senderBank)
	}
	receiver, ok = c.banks[receiverBank]
	if !ok {
		return "", "", nil, nil, fmt.Errorf("unknown bank %s", receiverBank)
	}
	return senderBank, receiverBank, sender, receiver, nil
}

// prepareAll runs phase one: the debit leg at the sender's bank, the credit
// leg at the receiver's. Both must report ready; any refusal or transport
// failure fails the phase before anything is committed.
func (c *Coordinator) prepareAll(ctx context.Context, txID string, req models.PaymentRequest, sender, receiver BankCaller) bool {
	legs := []struct {
		bank      BankCaller
		accountID string
		isCredit  bool
	}{
		{sender, req.SenderID, false},
		{receiver, req.ReceiverID, true},
	}
	for _, leg := range legs {
		resp, err := leg.bank.PrepareTransaction(ctx, models.PrepareRequest{
			TransactionID: txID,
			AccountID:     leg.accountID,
			Amount:        req.Amount,
			IsCredit:      leg.isCredit,
		})
		if err != nil {
			log.Printf("[gateway] prepare failed for %s: %v", txID, err)
			return false
		}
		if !resp.Ready {
			log.Printf("[gateway] bank not ready for %s (account %s)", txID, leg.accountID)
			return false
		}
	}
	return true
}

// commitAll runs phase two, sender first. A sender failure is safe: nothing
// has moved. A receiver failure after the sender committed triggers a
// best-effort compensating credit back to the sender's account.
func (c *Coordinator) commitAll(ctx context.Context, txID string, req models.PaymentRequest, sender, receiver BankCaller) bool {
	commit := models.CommitRequest{TransactionID: txID, Commit: true}

	resp, err := sender.CommitTransaction(ctx, commit)
	if err != nil || !resp.Success {
		log.Printf("[gateway] sender commit failed: %s", txID)
		return false
	}

	resp, err = receiver.CommitTransaction(ctx, commit)
	if err != nil || !resp.Success {
		log.Printf("[gateway] receiver commit failed: %s", txID)
		c.compensateDebit(ctx, txID, req, sender)
		return false
	}
	return true
}

// compensateDebit reverses an already-applied debit through the sender
// bank's local fast path, under a derived transaction id so the credit is
// itself idempotent.
func (c *Coordinator) compensateDebit(ctx context.Context, txID string, req models.PaymentRequest, sender BankCaller) {
	compensatingCredits.Inc()
	_, err := sender.MakePayment(ctx, models.PaymentRequest{
		TransactionID: "rollback-" + txID,
		SenderID:      req.SenderID,
		ReceiverID:    req.SenderID,
		Amount:        req.Amount,
		IsCredit:      true,
	})
	if err != nil {
		log.Printf("[gateway] compensating credit for %s failed: %v", txID, err)
		return
	}
	log.Printf("[gateway] rolled back debit for transaction %s", txID)
}

// abort resolves a non-terminal transaction to aborted, telling both banks
// to discard their prepared legs. Each commit(false) is a no-op at a bank
// that never prepared.
func (c *Coordinator) abort(ctx context.Context, txID string) {
	c.txMu.Lock()
	entry, ok := c.inProgress[txID]
	if !ok || entry.State.Terminal() {
		c.txMu.Unlock()
		return
	}
	entry.State = models.TxAborting
	senderBank, receiverBank := entry.SenderBank, entry.ReceiverBank
	c.txMu.Unlock()

	c.dirMu.Lock()
	sender := c.banks[senderBank]
	receiver := c.banks[receiverBank]
	c.dirMu.Unlock()

	abortReq := models.CommitRequest{TransactionID: txID, Commit: false}
	for name, bank := range map[string]BankCaller{senderBank: sender, receiverBank: receiver} {
		if bank == nil {
			continue
		}
		if _, err := bank.CommitTransaction(ctx, abortReq); err != nil {
			log.Printf("[gateway] error aborting %s with bank %s: %v", txID, name, err)
		}
	}

	c.setState(txID, models.TxAborted)
	transactionsAborted.Inc()
	log.Printf("[gateway] transaction %s aborted", txID)
}

func (c *Coordinator) setState(txID string, state models.TxState) {
	c.txMu.Lock()
	defer c.txMu.Unlock()
	if entry, ok := c.inProgress[txID]; ok {
		entry.State = state
	}
}

// State exposes the in-progress table for observation.
func (c *Coordinator) State(txID string) (models.TxState, bool) {
	c.txMu.Lock()
	defer c.txMu.Unlock()
	entry, ok := c.inProgress[txID]
	if !ok {
		return "", false
	}
	return entry.State, true
}

// Sweep evicts expired idempotency records and force-aborts transactions
// stuck in a non-terminal state past the transaction timeout. Terminal
// records older than the idempotency TTL are dropped from the table.
func (c *Coordinator) Sweep(ctx context.Context) {
	now := time.Now()

	c.txMu.Lock()
	for txID, rec := range c.idempotency {
		if now.Sub(rec.seenAt) > c.cfg.IdempotencyTTL {
			delete(c.idempotency, txID)
		}
	}
	var timedOut []string
	for txID, entry := range c.inProgress {
		if entry.State.Terminal() {
			if now.Sub(entry.CreatedAt) > c.cfg.IdempotencyTTL {
				delete(c.inProgress, txID)
			}
			continue
		}
		if now.Sub(entry.CreatedAt) > c.cfg.TransactionTimeout {
			log.Printf("[gateway] transaction %s timed out, automatic abort", txID)
			timedOut = append(timedOut, txID)
		}
	}
	c.txMu.Unlock()

	for _, txID := range timedOut {
		c.abort(ctx, txID)
	}
}

// RunSweeper drives Sweep on the cleanup interval until the context is
// cancelled.
func (c *Coordinator) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}
