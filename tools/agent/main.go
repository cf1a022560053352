// The agent daemon polls the shared mailbox for portal work: scraping
// lease, tenant and property pages and staging charge drafts. It runs
// next to a logged-in portal session, separate from the billing service.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"utility-billing/internal/agent"
	"utility-billing/internal/mailbox"
	"utility-billing/internal/mailbox/redisstore"
	"utility-billing/internal/portal"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "agent ", log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := redisstore.NewStore(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatalf("redis error: %v", err)
	}
	defer store.Close()

	courier, err := mailbox.NewCourier(store)
	if err != nil {
		logger.Fatalf("courier error: %v", err)
	}
	client, err := portal.NewClient(cfg.PortalURL, cfg.PortalToken)
	if err != nil {
		logger.Fatalf("portal client error: %v", err)
	}

	opts := []agent.Option{}
	if cfg.PollInterval > 0 {
		opts = append(opts, agent.WithPollInterval(cfg.PollInterval))
	}
	a, err := agent.New(client, courier, logger, opts...)
	if err != nil {
		logger.Fatalf("agent error: %v", err)
	}

	logger.Printf("watching mailbox for %s", cfg.PortalURL)
	if err := a.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatalf("agent stopped: %v", err)
	}
	logger.Printf("shutting down")
}

type config struct {
	PortalURL    string
	PortalToken  string
	RedisURL     string
	PollInterval time.Duration
}

func loadConfig() config {
	cfg := config{
		PortalURL:    getenvDefault("PORTAL_URL", ""),
		PortalToken:  getenvDefault("PORTAL_TOKEN", ""),
		RedisURL:     getenvDefault("REDIS_URL", "redis://localhost:6379/0"),
		PollInterval: getenvDuration("AGENT_POLL_INTERVAL", 0),
	}
	if cfg.PortalURL == "" {
		log.Fatal("PORTAL_URL is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
