package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	apihttp "utility-billing/internal/api/http"
	"utility-billing/internal/audit"
	"utility-billing/internal/auth"
	"utility-billing/internal/extraction"
	"utility-billing/internal/mailbox"
	"utility-billing/internal/mailbox/memory"
	"utility-billing/internal/mailbox/redisstore"
	"utility-billing/internal/observability/metrics"
	"utility-billing/internal/settings"
	"utility-billing/internal/workflow"
	"utility-billing/internal/workflow/notify"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("db open error: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("db ping error: %v", err)
		}
	}

	metrics.Init(db, logger)

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatalf("mailbox store error: %v", err)
	}
	defer closeStore()

	courier, err := mailbox.NewCourier(store)
	if err != nil {
		logger.Fatalf("courier error: %v", err)
	}
	lock, err := mailbox.NewRunLock(store, "", cfg.LockTTL)
	if err != nil {
		logger.Fatalf("run lock error: %v", err)
	}
	leases, err := workflow.NewCourierLeaseSource(courier, cfg.LeaseListWait)
	if err != nil {
		logger.Fatalf("lease source error: %v", err)
	}

	profile, err := settings.Load(cfg.SettingsPath)
	if err != nil {
		if cfg.SettingsPath != "" && !os.IsNotExist(err) {
			logger.Fatalf("settings error: %v", err)
		}
		profile = settings.Defaults()
	}

	extractorOpts := []extraction.Option{}
	if cfg.ExtractionBaseURL != "" {
		extractorOpts = append(extractorOpts, extraction.WithBaseURL(cfg.ExtractionBaseURL))
	}
	if cfg.ExtractionModel != "" {
		extractorOpts = append(extractorOpts, extraction.WithModel(cfg.ExtractionModel))
	}
	extractor := extraction.NewClient(profile.ExtractionAPIKey, extractorOpts...)

	opts := []workflow.Option{}
	if db != nil {
		opts = append(opts, workflow.WithAuditLogger(audit.NewRepository(db)))
	}
	if cfg.WebhookURL != "" {
		opts = append(opts, workflow.WithNotifier(notify.NewWebhookNotifier(cfg.WebhookURL)))
	}
	orchestrator, err := workflow.NewOrchestrator(courier, lock, leases, extractor, profile, logger, opts...)
	if err != nil {
		logger.Fatalf("orchestrator error: %v", err)
	}

	runsHandler := apihttp.NewRunsHandler(orchestrator)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/runs", runsHandler)
	mux.Handle("/api/v1/runs/", runsHandler)
	mux.Handle("/api/v1/settings", apihttp.NewSettingsHandler(orchestrator))
	mux.Handle("/api/v1/agent", apihttp.NewAgentHandler(orchestrator))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	handler := http.Handler(mux)
	if cfg.JWTSecret != "" {
		policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
		handler = auth.NewMiddleware([]byte(cfg.JWTSecret), policy).Wrap(handler)
	} else {
		logger.Printf("AUTH_JWT_SECRET not set; API is unauthenticated")
	}

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(handler, logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	HTTPAddr          string
	RedisURL          string
	DatabaseURL       string
	SettingsPath      string
	ExtractionBaseURL string
	ExtractionModel   string
	WebhookURL        string
	JWTSecret         string
	LockTTL           time.Duration
	LeaseListWait     time.Duration
}

func loadConfig() config {
	return config{
		HTTPAddr:          getenvDefault("HTTP_ADDR", ":8080"),
		RedisURL:          getenvDefault("REDIS_URL", ""),
		DatabaseURL:       getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		SettingsPath:      getenvDefault("SETTINGS_PATH", ""),
		ExtractionBaseURL: getenvDefault("EXTRACTION_BASE_URL", ""),
		ExtractionModel:   getenvDefault("EXTRACTION_MODEL", ""),
		WebhookURL:        getenvDefault("WEBHOOK_URL", ""),
		JWTSecret:         getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		LockTTL:           getenvDuration("LEASE_LOCK_TTL", time.Hour),
		LeaseListWait:     getenvDuration("LEASE_LIST_WAIT", 15*time.Second),
	}
}

// openStore picks the mailbox backing store. Redis is the normal choice
// since the portal agent runs as a separate process; the in-memory store
// only works when the agent runs in the same process, as in tests.
func openStore(cfg config, logger *log.Logger) (mailbox.Store, func(), error) {
	if cfg.RedisURL == "" {
		logger.Printf("REDIS_URL not set; using in-process mailbox store")
		return memory.NewStore(), func() {}, nil
	}
	store, err := redisstore.NewStore(context.Background(), cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
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

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
