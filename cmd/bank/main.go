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

	"github.com/interpay/interbank/internal/accountstore"
	"github.com/interpay/interbank/internal/bank"
	"github.com/interpay/interbank/internal/config"
	"github.com/interpay/interbank/internal/ledger"
	"github.com/interpay/interbank/internal/rpc"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Bank.Name == "" {
		log.Fatal("bank name is required (BANK_NAME or bank.name)")
	}

	store, err := accountstore.Load(cfg.Bank.SeedFile, cfg.Bank.Name)
	if err != nil {
		log.Fatalf("load account seed: %v", err)
	}

	l := ledger.New(cfg.Bank.Name, cfg.Bank.PrepareTimeout)
	l.Seed(store.Accounts())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.RunSweeper(ctx, cfg.Bank.SweepInterval)

	svc := bank.NewService(cfg.Bank.Name, l, store)
	handler := bank.NewHandler(svc)

	link := bank.NewGatewayLink(
		cfg.Bank.Name, cfg.Bank.IP, cfg.Bank.Port,
		rpc.NewGatewayClient(cfg.Bank.GatewayAddr, nil),
		cfg.Bank.LinkInterval,
	)
	go link.Run(ctx)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Bank.Port),
		Handler:      handler.Router(store),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("bank %s starting on :%d", cfg.Bank.Name, cfg.Bank.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("bank failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("bank shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("bank forced to shutdown:", err)
	}
	log.Println("bank stopped")
}
