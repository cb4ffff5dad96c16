package callgate

import (
	"encoding/json"
	"log"
	"net/http"
)

// Operation names mirror the RPC surface; the gate keys its role table on
// them rather than on URL paths.
const (
	OpRegistration = "Registration"
	OpPrepare      = "PrepareTransaction"
	OpCommit       = "CommitTransaction"
	OpMakePayment  = "MakePayment"
	OpCheckBalance = "CheckBalance"
	OpPinger       = "Pinger"
)

// Credential headers attached by clients on every call.
const (
	HeaderClientID = "X-Client-ID"
	HeaderPassword = "X-Password"
	HeaderBankName = "X-Bank-Name"
)

// CredentialStore resolves an id/password pair to a role.
type CredentialStore interface {
	Authenticate(id, password string) (role string, ok bool)
}

var rolePerms = map[string][]string{
	"cust":    {OpMakePayment, OpRegistration, OpPinger},
	"cashier": {OpCheckBalance, OpMakePayment, OpRegistration, OpPinger},
	"admin":   {OpCheckBalance, OpMakePayment, OpRegistration, OpPinger, OpPrepare, OpCommit},
}

func allowed(role, operation string) bool {
	for _, op := range rolePerms[role] {
		if op == operation {
			return true
		}
	}
	return false
}

// Gate authenticates and authorizes one operation before it reaches
// business logic. Pings are exempt; calls without credential headers are
// peer traffic (gateway/bank) whose identity the transport layer has
// already established. Rejections never touch transaction state.
func Gate(store CredentialStore, operation string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if operation == OpPinger {
				next.ServeHTTP(w, r)
				return
			}

			clientID := r.Header.Get(HeaderClientID)
			password := r.Header.Get(HeaderPassword)
			if clientID == "" && password == "" {
				next.ServeHTTP(w, r)
				return
			}

			role, ok := store.Authenticate(clientID, password)
			if !ok {
				log.Printf("[callgate] authentication failed for %s on %s", clientID, operation)
				reject(w, http.StatusUnauthorized, "invalid credentials")
				return
			}
			if !allowed(role, operation) {
				log.Printf("[callgate] role %s not authorized for %s", role, operation)
				reject(w, http.StatusForbidden, "insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
