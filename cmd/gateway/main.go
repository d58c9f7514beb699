package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forwardme/checkout-gateway/internal/backend"
	"github.com/forwardme/checkout-gateway/internal/checkout"
	"github.com/forwardme/checkout-gateway/internal/config"
	"github.com/forwardme/checkout-gateway/internal/events"
	"github.com/forwardme/checkout-gateway/internal/httpapi"
	"github.com/forwardme/checkout-gateway/internal/session"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[CFG] %v", err)
	}
	log.Printf("[CFG] http=%s backend=%s kafka=%t country=%s weight=%s",
		cfg.HTTPAddr, cfg.BackendBaseURL, cfg.KafkaBrokers != "", cfg.DefaultCountry, cfg.FallbackWeightKg)

	client := backend.New(cfg.BackendBaseURL, cfg.BackendToken, time.Duration(cfg.BackendTimeout)*time.Second)
	store := session.New()

	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log.Printf)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Printf("[EVENTS] close: %v", err)
		}
	}()

	svc := checkout.NewService(client, store, publisher, log.Printf, cfg.DefaultCountry, cfg.FallbackWeightKg)
	api := httpapi.New(svc, store, log.Printf, version)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("[HTTP] listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[HTTP] %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[HTTP] shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[HTTP] shutdown error: %v", err)
	}
	log.Printf("[HTTP] bye")
}
