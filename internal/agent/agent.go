// Package agent implements the client side of the payment network: a
// fire-and-forget submitter with a local pending queue, an append-only
// transaction history, and a background monitor that rides out gateway
// outages.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/interpay/interbank/internal/models"
	"github.com/interpay/interbank/internal/rpc"
)

// ErrOffline is returned by synchronous queries while the gateway is
// unreachable. Payments are never refused for being offline; they queue.
var ErrOffline = errors.New("client is offline")

var ErrNotInHistory = errors.New("transaction not found in history")

// GatewayCaller is the agent's view of the gateway. Satisfied by
// rpc.GatewayClient in production and by fakes in tests.
type GatewayCaller interface {
	Registration(ctx context.Context, req models.RegistrationRequest) (models.StatusResponse, error)
	MakePayment(ctx context.Context, req models.PaymentRequest) (models.PaymentResponse, error)
	CheckBalance(ctx context.Context, clientID string) (models.BalanceResponse, error)
	Ping(ctx context.Context) error
}

type Config struct {
	ClientID        string
	BankName        string
	Password        string
	IP              string
	Port            int
	MonitorInterval time.Duration
	ReplaySpacing   time.Duration
}

// Agent submits transfers on behalf of one client. The connection handle is
// toggled only by the monitor loop and the async send path, both under
// connMu; everything else just reads it to decide whether to attempt an
// RPC.
type Agent struct {
	cfg  Config
	dial func() GatewayCaller

	connMu sync.Mutex
	gw     GatewayCaller // nil while offline

	pendMu  sync.Mutex
	pending []models.PendingPayment

	histMu  sync.Mutex
	history []*models.HistoryEntry
}

func New(cfg Config, dial func() GatewayCaller) *Agent {
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = 5 * time.Second
	}
	if cfg.ReplaySpacing <= 0 {
		cfg.ReplaySpacing = time.Second
	}
	return &Agent{cfg: cfg, dial: dial}
}

// Connect dials the gateway and registers the client. Safe to call again
// after an outage; the monitor does exactly that.
func (a *Agent) Connect(ctx context.Context) error {
	gw := a.dial()
	if err := a.register(ctx, gw); err != nil {
		return err
	}
	a.connMu.Lock()
	a.gw = gw
	a.connMu.Unlock()
	return nil
}

func (a *Agent) register(ctx context.Context, gw GatewayCaller) error {
	resp, err := gw.Registration(ctx, models.RegistrationRequest{
		IP:            a.cfg.IP,
		Port:          a.cfg.Port,
		Name:          a.cfg.BankName,
		ID:            a.cfg.ClientID,
		Password:      a.cfg.Password,
		TransactionID: uuid.NewString(),
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return errors.New("gateway refused registration")
	}
	log.Printf("[%s] registered with gateway", a.cfg.ClientID)
	return nil
}

func (a *Agent) conn() GatewayCaller {
	a.connMu.Lock()
	defer a.connMu.Unlock()
	return a.gw
}

// Online reports the current reachability belief.
func (a *Agent) Online() bool { return a.conn() != nil }

// ForceOffline tears down the connection handle, e.g. for outage drills.
// The monitor will reconnect on its next tick.
func (a *Agent) ForceOffline() {
	a.connMu.Lock()
	a.gw = nil
	a.connMu.Unlock()
	log.Printf("[%s] switched to offline mode", a.cfg.ClientID)
}

// SendMoney initiates a transfer and returns immediately with its
// transaction id; the outcome lands in the history and pending queue. A
// retry passes the original transaction id so the gateway's idempotency
// log absorbs the duplicate.
func (a *Agent) SendMoney(receiverID, receiverBank string, amount decimal.Decimal, transactionID string) string {
	if transactionID == "" {
		transactionID = uuid.NewString()
	}
	go a.send(receiverID, receiverBank, amount, transactionID)
	return transactionID
}

func (a *Agent) send(receiverID, receiverBank string, amount decimal.Decimal, txID string) {
	gw := a.conn()
	if gw == nil {
		log.Printf("[%s] offline, queueing transaction %s", a.cfg.ClientID, txID)
		a.queue(receiverID, receiverBank, amount, txID, models.StatusPendingOffline)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	resp, err := gw.MakePayment(ctx, models.PaymentRequest{
		TransactionID: txID,
		SenderID:      a.cfg.ClientID,
		ReceiverID:    receiverID,
		ReceiverBank:  receiverBank,
		Amount:        amount,
	})
	switch {
	case err != nil:
		log.Printf("[%s] payment rpc failed for %s: %v", a.cfg.ClientID, txID, err)
		if errors.Is(err, rpc.ErrUnreachable) {
			a.ForceOffline()
		}
		a.queue(receiverID, receiverBank, amount, txID, models.StatusErrorPrefix+err.Error())
	case resp.Success:
		log.Printf("[%s] transaction %s completed", a.cfg.ClientID, txID)
		a.removePending(txID)
		a.recordHistory(txID, receiverID, receiverBank, amount, models.StatusSuccess)
	default:
		log.Printf("[%s] transaction %s refused by gateway", a.cfg.ClientID, txID)
		a.queue(receiverID, receiverBank, amount, txID, models.StatusFailed)
	}
}

// queue parks a transfer for the next reconnect cycle and records its
// status.
func (a *Agent) queue(receiverID, receiverBank string, amount decimal.Decimal, txID, status string) {
	a.pendMu.Lock()
	present := false
	for _, p := range a.pending {
		if p.TransactionID == txID {
			present = true
			break
		}
	}
	if !present {
		a.pending = append(a.pending, models.PendingPayment{
			ReceiverID:    receiverID,
			ReceiverBank:  receiverBank,
			Amount:        amount,
			TransactionID: txID,
		})
	}
	a.pendMu.Unlock()
	a.recordHistory(txID, receiverID, receiverBank, amount, status)
}

func (a *Agent) removePending(txID string) {
	a.pendMu.Lock()
	defer a.pendMu.Unlock()
	kept := a.pending[:0]
	for _, p := range a.pending {
		if p.TransactionID != txID {
			kept = append(kept, p)
		}
	}
	a.pending = kept
}

// Pending snapshots the unconfirmed transfers.
func (a *Agent) Pending() []models.PendingPayment {
	a.pendMu.Lock()
	defer a.pendMu.Unlock()
	out := make([]models.PendingPayment, len(a.pending))
	copy(out, a.pending)
	return out
}

// recordHistory appends the first entry for a transaction id and mutates
// the status of later observations. Entries are never deleted.
func (a *Agent) recordHistory(txID, receiverID, receiverBank string, amount decimal.Decimal, status string) {
	a.histMu.Lock()
	defer a.histMu.Unlock()
	for _, entry := range a.history {
		if entry.TransactionID == txID {
			entry.Status = status
			return
		}
	}
	a.history = append(a.history, &models.HistoryEntry{
		TransactionID: txID,
		ReceiverID:    receiverID,
		ReceiverBank:  receiverBank,
		Amount:        amount,
		Status:        status,
		Timestamp:     time.Now(),
	})
}

// History returns up to limit entries, most recent first.
func (a *Agent) History(limit int) []models.HistoryEntry {
	a.histMu.Lock()
	defer a.histMu.Unlock()
	out := make([]models.HistoryEntry, 0, len(a.history))
	for _, entry := range a.history {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Status reports the recorded history status for one transaction id.
func (a *Agent) Status(txID string) (string, bool) {
	a.histMu.Lock()
	defer a.histMu.Unlock()
	for _, entry := range a.history {
		if entry.TransactionID == txID {
			return entry.Status, true
		}
	}
	return "", false
}

// RetryTransaction resubmits a historical transfer under its original id.
func (a *Agent) RetryTransaction(txID string) error {
	a.histMu.Lock()
	var found *models.HistoryEntry
	for _, entry := range a.history {
		if entry.TransactionID == txID {
			found = entry
			break
		}
	}
	a.histMu.Unlock()
	if found == nil {
		return fmt.Errorf("%w: %s", ErrNotInHistory, txID)
	}
	log.Printf("[%s] retrying transaction %s", a.cfg.ClientID, txID)
	a.SendMoney(found.ReceiverID, found.ReceiverBank, found.Amount, txID)
	return nil
}

// Balance queries the gateway for this client's balance.
func (a *Agent) Balance(ctx context.Context) (decimal.Decimal, error) {
	gw := a.conn()
	if gw == nil {
		return decimal.Zero, ErrOffline
	}
	resp, err := gw.CheckBalance(ctx, a.cfg.ClientID)
	if err != nil {
		return decimal.Zero, err
	}
	if resp.Status != models.BalanceOK {
		return decimal.Zero, errors.New("balance lookup failed")
	}
	return resp.Amount, nil
}
