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
	"github.com/interpay/interbank/internal/config"
	"github.com/interpay/interbank/internal/gateway"
	"github.com/interpay/interbank/internal/rpc"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	seedFile := flag.String("accounts", "./accounts.json", "path to the account seed file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	creds, err := accountstore.Load(*seedFile, "")
	if err != nil {
		log.Fatalf("load account seed: %v", err)
	}

	coord := gateway.NewCoordinator(gateway.Config{
		TransactionTimeout: cfg.Gateway.TransactionTimeout,
		CleanupInterval:    cfg.Gateway.CleanupInterval,
		IdempotencyTTL:     cfg.Gateway.IdempotencyTTL,
	}, func(addr string) gateway.BankCaller {
		return rpc.NewBankClient(addr)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coord.RunSweeper(ctx)

	handler := gateway.NewHandler(coord)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Gateway.Port),
		Handler:      handler.Router(creds),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("gateway starting on :%d", cfg.Gateway.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("gateway failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("gateway shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal("gateway forced to shutdown:", err)
	}
	log.Println("gateway stopped")
}
