package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/interpay/interbank/internal/agent"
	"github.com/interpay/interbank/internal/config"
	"github.com/interpay/interbank/internal/rpc"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Agent.ClientID == "" || cfg.Agent.BankName == "" {
		log.Fatal("client id and bank name are required")
	}

	a := agent.New(agent.Config{
		ClientID:        cfg.Agent.ClientID,
		BankName:        cfg.Agent.BankName,
		Password:        cfg.Agent.Password,
		IP:              cfg.Agent.IP,
		Port:            cfg.Agent.Port,
		MonitorInterval: cfg.Agent.MonitorInterval,
		ReplaySpacing:   cfg.Agent.ReplaySpacing,
	}, func() agent.GatewayCaller {
		return rpc.NewGatewayClient(cfg.Agent.GatewayAddr, &rpc.Credentials{
			ClientID: cfg.Agent.ClientID,
			Password: cfg.Agent.Password,
			BankName: cfg.Agent.BankName,
		})
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A failed first connect is not fatal; the monitor keeps retrying and
	// submissions queue as pending in the meantime.
	connectCtx, connectCancel := context.WithTimeout(ctx, 15*time.Second)
	if err := a.Connect(connectCtx); err != nil {
		log.Printf("gateway not reachable yet, starting offline: %v", err)
	}
	connectCancel()
	go a.RunMonitor(ctx)

	handler := agent.NewHandler(a)
	server := &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Agent.ControlPort),
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("agent %s control surface on 127.0.0.1:%d", cfg.Agent.ClientID, cfg.Agent.ControlPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("agent failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("agent shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("agent forced to shutdown:", err)
	}
	log.Println("agent stopped")
}
