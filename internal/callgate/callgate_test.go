package callgate

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeCreds map[string]string // id -> role, password is always "pw"

func (f fakeCreds) Authenticate(id, password string) (string, bool) {
	role, ok := f[id]
	if !ok || password != "pw" {
		return "", false
	}
	return role, true
}

func gatedRequest(t *testing.T, operation, clientID, password string) *httptest.ResponseRecorder {
	t.Helper()
	creds := fakeCreds{"alice": "cust", "carol": "cashier", "root": "admin"}

	reached := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := Gate(creds, operation)(reached)

	req := httptest.NewRequest("POST", "/", nil)
	if clientID != "" {
		req.Header.Set(HeaderClientID, clientID)
	}
	if password != "" {
		req.Header.Set(HeaderPassword, password)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestGate(t *testing.T) {
	t.Run("ping is exempt", func(t *testing.T) {
		w := gatedRequest(t, OpPinger, "", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("peer traffic without credentials passes", func(t *testing.T) {
		w := gatedRequest(t, OpPrepare, "", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("bad password is unauthenticated", func(t *testing.T) {
		w := gatedRequest(t, OpMakePayment, "alice", "nope")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown id is unauthenticated", func(t *testing.T) {
		w := gatedRequest(t, OpMakePayment, "mallory", "pw")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("customer may pay but not read balances", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, gatedRequest(t, OpMakePayment, "alice", "pw").Code)
		assert.Equal(t, http.StatusForbidden, gatedRequest(t, OpCheckBalance, "alice", "pw").Code)
	})

	t.Run("cashier reads balances", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, gatedRequest(t, OpCheckBalance, "carol", "pw").Code)
	})

	t.Run("only admin reaches prepare and commit", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, gatedRequest(t, OpPrepare, "carol", "pw").Code)
		assert.Equal(t, http.StatusOK, gatedRequest(t, OpPrepare, "root", "pw").Code)
		assert.Equal(t, http.StatusOK, gatedRequest(t, OpCommit, "root", "pw").Code)
	})
}
