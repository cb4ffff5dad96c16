package gateway

import (
	"context"
	"encoding/json"
	"net"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/interpay/interbank/internal/accountstore"
	"github.com/interpay/interbank/internal/bank"
	"github.com/interpay/interbank/internal/ledger"
	"github.com/interpay/interbank/internal/models"
	"github.com/interpay/interbank/internal/rpc"
)

// network stands up two real banks and a gateway over httptest, talking to
// each other through the production HTTP clients.
type network struct {
	gatewayAddr string
}

func startNetwork(t *testing.T) *network {
	t.Helper()

	hash, err := accountstore.HashPassword("pw")
	require.NoError(t, err)
	seedPath := filepath.Join(t.TempDir(), "accounts.json")
	raw, err := json.Marshal(map[string][]accountstore.SeedAccount{"accounts": {
		{ID: "alice", BankName: "BankA", Balance: decimal.NewFromInt(100), Password: hash, Role: "cust"},
		{ID: "bob", BankName: "BankB", Balance: decimal.NewFromInt(0), Password: hash, Role: "cust"},
		{ID: "teller", BankName: "BankA", Balance: decimal.NewFromInt(0), Password: hash, Role: "cashier"},
	}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(seedPath, raw, 0o600))

	startBank := func(name string) *httptest.Server {
		store, err := accountstore.Load(seedPath, name)
		require.NoError(t, err)
		l := ledger.New(name, 30*time.Second)
		l.Seed(store.Accounts())
		srv := httptest.NewServer(bank.NewHandler(bank.NewService(name, l, store)).Router(store))
		t.Cleanup(srv.Close)
		return srv
	}
	bankA := startBank("BankA")
	bankB := startBank("BankB")

	gatewayStore, err := accountstore.Load(seedPath, "")
	require.NoError(t, err)
	coord := NewCoordinator(testConfig(), func(addr string) BankCaller {
		return rpc.NewBankClient(addr)
	})
	gwSrv := httptest.NewServer(NewHandler(coord).Router(gatewayStore))
	t.Cleanup(gwSrv.Close)

	n := &network{gatewayAddr: strings.TrimPrefix(gwSrv.URL, "http://")}

	ctx := context.Background()
	peer := rpc.NewGatewayClient(n.gatewayAddr, nil)
	for name, srv := range map[string]*httptest.Server{"BankA": bankA, "BankB": bankB} {
		ip, port := splitAddr(t, srv.URL)
		resp, err := peer.Registration(ctx, models.RegistrationRequest{
			IP: ip, Port: port, Name: name, TransactionID: "reg-" + name,
		})
		require.NoError(t, err)
		require.True(t, resp.Success)
	}

	for id, bankName := range map[string]string{"alice": "BankA", "bob": "BankB"} {
		resp, err := n.client(id, bankName).Registration(ctx, models.RegistrationRequest{
			IP: "127.0.0.1", Port: 7000, Name: bankName, ID: id, Password: "pw", TransactionID: "reg-" + id,
		})
		require.NoError(t, err)
		require.True(t, resp.Success)
	}
	return n
}

func (n *network) client(id, bankName string) *rpc.GatewayClient {
	return rpc.NewGatewayClient(n.gatewayAddr, &rpc.Credentials{ClientID: id, Password: "pw", BankName: bankName})
}

func (n *network) balanceOf(t *testing.T, clientID string) decimal.Decimal {
	t.Helper()
	teller := rpc.NewGatewayClient(n.gatewayAddr, &rpc.Credentials{ClientID: "teller", Password: "pw", BankName: "BankA"})
	resp, err := teller.CheckBalance(context.Background(), clientID)
	require.NoError(t, err)
	require.Equal(t, models.BalanceOK, resp.Status)
	return resp.Amount
}

func splitAddr(t *testing.T, serverURL string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(strings.TrimPrefix(serverURL, "http://"))
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestGateway_EndToEnd(t *testing.T) {
	n := startNetwork(t)
	ctx := context.Background()
	alice := n.client("alice", "BankA")

	t.Run("cross-bank transfer moves exactly the amount", func(t *testing.T) {
		resp, err := alice.MakePayment(ctx, models.PaymentRequest{
			TransactionID: "e2e-1",
			SenderID:      "alice",
			ReceiverID:    "bob",
			ReceiverBank:  "BankB",
			Amount:        decimal.NewFromInt(40),
		})
		require.NoError(t, err)
		assert.True(t, resp.Success)

		assert.True(t, decimal.NewFromInt(60).Equal(n.balanceOf(t, "alice")))
		assert.True(t, decimal.NewFromInt(40).Equal(n.balanceOf(t, "bob")))
	})

	t.Run("resubmitting the same transaction does not move money again", func(t *testing.T) {
		resp, err := alice.MakePayment(ctx, models.PaymentRequest{
			TransactionID: "e2e-1",
			SenderID:      "alice",
			ReceiverID:    "bob",
			ReceiverBank:  "BankB",
			Amount:        decimal.NewFromInt(40),
		})
		require.NoError(t, err)
		assert.True(t, resp.Success)

		assert.True(t, decimal.NewFromInt(60).Equal(n.balanceOf(t, "alice")))
		assert.True(t, decimal.NewFromInt(40).Equal(n.balanceOf(t, "bob")))
	})

	t.Run("insufficient funds leaves both ledgers untouched", func(t *testing.T) {
		resp, err := alice.MakePayment(ctx, models.PaymentRequest{
			TransactionID: "e2e-2",
			SenderID:      "alice",
			ReceiverID:    "bob",
			ReceiverBank:  "BankB",
			Amount:        decimal.NewFromInt(1000),
		})
		require.NoError(t, err)
		assert.False(t, resp.Success)

		assert.True(t, decimal.NewFromInt(60).Equal(n.balanceOf(t, "alice")))
		assert.True(t, decimal.NewFromInt(40).Equal(n.balanceOf(t, "bob")))
	})

	t.Run("non-positive amount is refused at the edge", func(t *testing.T) {
		resp, err := alice.MakePayment(ctx, models.PaymentRequest{
			TransactionID: "e2e-3",
			SenderID:      "alice",
			ReceiverID:    "bob",
			ReceiverBank:  "BankB",
			Amount:        decimal.NewFromInt(-5),
		})
		require.NoError(t, err)
		assert.False(t, resp.Success)
	})

	t.Run("wrong password is rejected by the call gate", func(t *testing.T) {
		mallory := rpc.NewGatewayClient(n.gatewayAddr, &rpc.Credentials{ClientID: "alice", Password: "nope", BankName: "BankA"})
		_, err := mallory.MakePayment(ctx, models.PaymentRequest{
			TransactionID: "e2e-4",
			SenderID:      "alice",
			ReceiverID:    "bob",
			ReceiverBank:  "BankB",
			Amount:        decimal.NewFromInt(1),
		})
		assert.Error(t, err)
	})

	t.Run("customers may not read balances", func(t *testing.T) {
		_, err := alice.CheckBalance(ctx, "alice")
		assert.Error(t, err)
	})

	t.Run("ping needs no credentials", func(t *testing.T) {
		peer := rpc.NewGatewayClient(n.gatewayAddr, nil)
		assert.NoError(t, peer.Ping(ctx))
	})
}
