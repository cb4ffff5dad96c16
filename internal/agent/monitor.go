package agent

import (
	"context"
	"log"
	"time"
)

// RunMonitor is the single reconnection loop for this agent. While offline
// it periodically redials, re-registers and replays the pending queue;
// while online it pings the gateway and flips back to offline on a failed
// ping. Runs until the context is cancelled.
func (a *Agent) RunMonitor(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.MonitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		gw := a.conn()
		if gw == nil {
			if err := a.Connect(ctx); err != nil {
				log.Printf("[%s] gateway still offline: %v", a.cfg.ClientID, err)
				continue
			}
			log.Printf("[%s] reconnected to gateway", a.cfg.ClientID)
			a.replayPending(ctx)
			continue
		}

		if err := gw.Ping(ctx); err != nil {
			log.Printf("[%s] gateway ping failed: %v", a.cfg.ClientID, err)
			a.ForceOffline()
		}
	}
}

// replayPending resubmits every queued transfer once, under its original
// transaction id, spaced out so a reconnect does not burst the gateway.
func (a *Agent) replayPending(ctx context.Context) {
	payments := a.Pending()
	if len(payments) == 0 {
		return
	}
	log.Printf("[%s] processing %d pending payments", a.cfg.ClientID, len(payments))

	go func() {
		for _, p := range payments {
			select {
			case <-ctx.Done():
				return
			default:
			}
			a.SendMoney(p.ReceiverID, p.ReceiverBank, p.Amount, p.TransactionID)
			time.Sleep(a.cfg.ReplaySpacing)
		}
	}()
}
