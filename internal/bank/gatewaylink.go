package bank

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/interpay/interbank/internal/models"
)

// GatewayConn is the slice of the gateway surface the link needs.
type GatewayConn interface {
	Registration(ctx context.Context, req models.RegistrationRequest) (models.StatusResponse, error)
	Ping(ctx context.Context) error
}

// GatewayLink keeps the bank enrolled with the gateway: it registers at
// startup, pings while connected, and re-registers after an outage. The
// link is the only writer of the connected flag.
type GatewayLink struct {
	bankName string
	selfIP   string
	selfPort int
	gateway  GatewayConn
	interval time.Duration

	mu        sync.Mutex
	connected bool
}

func NewGatewayLink(bankName, selfIP string, selfPort int, gw GatewayConn, interval time.Duration) *GatewayLink {
	return &GatewayLink{
		bankName: bankName,
		selfIP:   selfIP,
		selfPort: selfPort,
		gateway:  gw,
		interval: interval,
	}
}

// Connected reports the last observed gateway reachability.
func (g *GatewayLink) Connected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

func (g *GatewayLink) setConnected(v bool) {
	g.mu.Lock()
	g.connected = v
	g.mu.Unlock()
}

func (g *GatewayLink) register(ctx context.Context) bool {
	resp, err := g.gateway.Registration(ctx, models.RegistrationRequest{
		IP:            g.selfIP,
		Port:          g.selfPort,
		Name:          g.bankName,
		TransactionID: uuid.NewString(),
	})
	if err != nil || !resp.Success {
		log.Printf("[%s] gateway registration failed: %v", g.bankName, err)
		return false
	}
	log.Printf("[%s] registered with gateway", g.bankName)
	return true
}

// Run drives the register/ping cycle until the context is cancelled. One
// attempt happens immediately so a freshly started bank is reachable
// without waiting out the first tick.
func (g *GatewayLink) Run(ctx context.Context) {
	g.setConnected(g.register(ctx))

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if g.Connected() {
			if err := g.gateway.Ping(ctx); err != nil {
				log.Printf("[%s] gateway connection lost: %v", g.bankName, err)
				g.setConnected(false)
			}
			continue
		}
		g.setConnected(g.register(ctx))
	}
}
