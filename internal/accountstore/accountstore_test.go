package accountstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSeedFile(t *testing.T, accounts []SeedAccount) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.json")
	raw, err := json.Marshal(seedFile{Accounts: accounts})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func TestLoad(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	path := writeSeedFile(t, []SeedAccount{
		{ID: "alice", BankName: "BankA", Balance: decimal.NewFromInt(100), Password: hash, Role: "cust"},
		{ID: "bob", BankName: "BankB", Balance: decimal.NewFromInt(0), Password: hash, Role: "cust"},
	})

	t.Run("filters by bank", func(t *testing.T) {
		store, err := Load(path, "BankA")
		require.NoError(t, err)

		accounts := store.Accounts()
		require.Len(t, accounts, 1)
		assert.Equal(t, "alice", accounts[0].ID)
		assert.True(t, decimal.NewFromInt(100).Equal(accounts[0].Balance))
	})

	t.Run("empty bank name keeps everything", func(t *testing.T) {
		store, err := Load(path, "")
		require.NoError(t, err)
		assert.Len(t, store.Accounts(), 2)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"), "BankA")
		assert.Error(t, err)
	})
}

func TestAuthenticate(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	path := writeSeedFile(t, []SeedAccount{
		{ID: "alice", BankName: "BankA", Balance: decimal.NewFromInt(100), Password: hash, Role: "cashier"},
	})
	store, err := Load(path, "BankA")
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		role, ok := store.Authenticate("alice", "s3cret")
		assert.True(t, ok)
		assert.Equal(t, "cashier", role)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, ok := store.Authenticate("alice", "wrong")
		assert.False(t, ok)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, ok := store.Authenticate("mallory", "s3cret")
		assert.False(t, ok)
	})
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	assert.True(t, VerifyPassword("hunter2", hash))
	assert.False(t, VerifyPassword("hunter3", hash))
	assert.False(t, VerifyPassword("hunter2", "not-a-hash"))

	// Salted: two hashes of the same password differ.
	other, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other)
}
