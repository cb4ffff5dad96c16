package accountstore

import (
	cryptorand "crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"

	"github.com/interpay/interbank/internal/models"
)

// SeedAccount is one record of the flat seed file shared by all banks.
// Password holds an argon2id hash in salt$hash form.
type SeedAccount struct {
	ID       string          `json:"id"`
	BankName string          `json:"bank_name"`
	Balance  decimal.Decimal `json:"balance"`
	Password string          `json:"password"`
	Role     string          `json:"role"`
}

type seedFile struct {
	Accounts []SeedAccount `json:"accounts"`
}

// Store is the per-bank slice of the seed file: account balances for the
// ledger plus the credential/role table consumed by the call gate.
type Store struct {
	bankName string
	accounts map[string]SeedAccount
}

// Load reads the seed file and keeps only the accounts of the given bank.
// An empty bank name keeps everything; the gateway's call gate uses that
// form, since it authenticates clients of every bank.
func Load(path, bankName string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var file seedFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	store := &Store{bankName: bankName, accounts: make(map[string]SeedAccount)}
	for _, account := range file.Accounts {
		if bankName == "" || account.BankName == bankName {
			store.accounts[account.ID] = account
		}
	}
	log.Printf("[accountstore] loaded %d accounts for %q", len(store.accounts), bankName)
	return store, nil
}

// Accounts returns the ledger seed for this bank.
func (s *Store) Accounts() []*models.Account {
	out := make([]*models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, &models.Account{ID: a.ID, BankName: a.BankName, Balance: a.Balance})
	}
	return out
}

// Authenticate verifies an id/password pair and yields the account's role.
func (s *Store) Authenticate(id, password string) (string, bool) {
	account, ok := s.accounts[id]
	if !ok {
		return "", false
	}
	if !VerifyPassword(password, account.Password) {
		return "", false
	}
	return account.Role, true
}

func argon2Params() (time, memory uint32, threads uint8, keyLen uint32) {
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	return uint32(viper.GetInt("argon2.time")),
		uint32(viper.GetInt("argon2.memory")),
		uint8(viper.GetInt("argon2.threads")),
		uint32(viper.GetInt("argon2.key_length"))
}

// HashPassword derives an argon2id hash encoded as salt$hash, both base64.
func HashPassword(password string) (string, error) {
	viper.SetDefault("argon2.salt_length", 16)
	salt := make([]byte, viper.GetInt("argon2.salt_length"))
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	t, m, p, keyLen := argon2Params()
	hash := argon2.IDKey([]byte(password), salt, t, m, p, keyLen)
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

// VerifyPassword checks a plaintext password against a salt$hash value.
func VerifyPassword(password, hashedPassword string) bool {
	parts := strings.Split(hashedPassword, "$")
	if len(parts) != 2 {
		return false
	}
	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	t, m, p, keyLen := argon2Params()
	computed := argon2.IDKey([]byte(password), salt, t, m, p, keyLen)
	return string(hash) == string(computed)
}
