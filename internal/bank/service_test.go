package bank

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/interpay/interbank/internal/accountstore"
	"github.com/interpay/interbank/internal/ledger"
	"github.com/interpay/interbank/internal/models"
)

func testService(t *testing.T) *Service {
	t.Helper()

	hash, err := accountstore.HashPassword("pw")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "accounts.json")
	raw, err := json.Marshal(map[string][]accountstore.SeedAccount{"accounts": {
		{ID: "alice", BankName: "BankA", Balance: decimal.NewFromInt(100), Password: hash, Role: "cust"},
		{ID: "dave", BankName: "BankA", Balance: decimal.NewFromInt(10), Password: hash, Role: "cust"},
		{ID: "bob", BankName: "BankB", Balance: decimal.NewFromInt(0), Password: hash, Role: "cust"},
	}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	store, err := accountstore.Load(path, "BankA")
	require.NoError(t, err)
	l := ledger.New("BankA", 30*time.Second)
	l.Seed(store.Accounts())
	return NewService("BankA", l, store)
}

func TestService_Registration(t *testing.T) {
	svc := testService(t)

	t.Run("valid client credentials", func(t *testing.T) {
		resp := svc.Registration(models.RegistrationRequest{
			IP: "127.0.0.1", Port: 7000, Name: "BankA", ID: "alice", Password: "pw", TransactionID: "r1",
		})
		assert.True(t, resp.Success)
		assert.Equal(t, "r1", resp.TransactionID)
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := svc.Registration(models.RegistrationRequest{
			IP: "127.0.0.1", Port: 7000, Name: "BankA", ID: "alice", Password: "nope", TransactionID: "r2",
		})
		assert.False(t, resp.Success)
	})

	t.Run("no client id is refused", func(t *testing.T) {
		resp := svc.Registration(models.RegistrationRequest{
			IP: "127.0.0.1", Port: 7000, Name: "BankA", TransactionID: "r3",
		})
		assert.False(t, resp.Success)
	})

	t.Run("account held elsewhere", func(t *testing.T) {
		resp := svc.Registration(models.RegistrationRequest{
			IP: "127.0.0.1", Port: 7000, Name: "BankA", ID: "bob", Password: "pw", TransactionID: "r4",
		})
		assert.False(t, resp.Success)
	})
}

func TestService_PrepareCommit(t *testing.T) {
	svc := testService(t)

	ready := svc.Prepare(models.PrepareRequest{
		TransactionID: "tx1", AccountID: "alice", Amount: decimal.NewFromInt(30),
	})
	require.True(t, ready.Ready)

	status := svc.Commit(models.CommitRequest{TransactionID: "tx1", Commit: true})
	assert.True(t, status.Success)

	balance := svc.Balance("alice")
	assert.Equal(t, models.BalanceOK, balance.Status)
	assert.True(t, decimal.NewFromInt(70).Equal(balance.Amount))

	// Aborting an id that never prepared is a safe no-op.
	status = svc.Commit(models.CommitRequest{TransactionID: "never", Commit: false})
	assert.False(t, status.Success)
}

func TestService_Balance(t *testing.T) {
	svc := testService(t)

	t.Run("known account", func(t *testing.T) {
		resp := svc.Balance("dave")
		assert.Equal(t, models.BalanceOK, resp.Status)
		assert.True(t, decimal.NewFromInt(10).Equal(resp.Amount))
	})

	t.Run("unknown account answers the sentinel", func(t *testing.T) {
		resp := svc.Balance("mallory")
		assert.Equal(t, models.BalanceError, resp.Status)
		assert.True(t, decimal.NewFromInt(-1).Equal(resp.Amount))
	})
}

func TestService_Pay(t *testing.T) {
	t.Run("same-bank fast path", func(t *testing.T) {
		svc := testService(t)
		resp := svc.Pay(models.PaymentRequest{
			TransactionID: "pay1", SenderID: "alice", ReceiverID: "dave",
			ReceiverBank: "BankA", Amount: decimal.NewFromInt(25),
		})
		require.True(t, resp.Success)
		assert.True(t, decimal.NewFromInt(75).Equal(svc.Balance("alice").Amount))
		assert.True(t, decimal.NewFromInt(35).Equal(svc.Balance("dave").Amount))
	})

	t.Run("receiver bank mismatch", func(t *testing.T) {
		svc := testService(t)
		resp := svc.Pay(models.PaymentRequest{
			TransactionID: "pay2", SenderID: "alice", ReceiverID: "bob",
			ReceiverBank: "BankB", Amount: decimal.NewFromInt(25),
		})
		assert.False(t, resp.Success)
		assert.Contains(t, resp.ErrorMessage, "not served here")
	})

	t.Run("insufficient funds", func(t *testing.T) {
		svc := testService(t)
		resp := svc.Pay(models.PaymentRequest{
			TransactionID: "pay3", SenderID: "dave", ReceiverID: "alice",
			ReceiverBank: "BankA", Amount: decimal.NewFromInt(500),
		})
		assert.False(t, resp.Success)
		assert.Equal(t, "insufficient funds", resp.ErrorMessage)
	})

	t.Run("credit-only reversal", func(t *testing.T) {
		svc := testService(t)
		resp := svc.Pay(models.PaymentRequest{
			TransactionID: "rollback-pay4", SenderID: "alice", ReceiverID: "alice",
			Amount: decimal.NewFromInt(40), IsCredit: true,
		})
		require.True(t, resp.Success)
		assert.True(t, decimal.NewFromInt(140).Equal(svc.Balance("alice").Amount))
	})
}
