package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/solar-leads-bfa/internal/config"
	"github.com/boddenberg/solar-leads-bfa/internal/domain"
	"github.com/boddenberg/solar-leads-bfa/internal/handler"
	"github.com/boddenberg/solar-leads-bfa/internal/infra/cache"
	"github.com/boddenberg/solar-leads-bfa/internal/infra/observability"
	"github.com/boddenberg/solar-leads-bfa/internal/infra/resilience"
	"github.com/boddenberg/solar-leads-bfa/internal/infra/scraper"
	"github.com/boddenberg/solar-leads-bfa/internal/infra/session"
	"github.com/boddenberg/solar-leads-bfa/internal/infra/supabase"
	"github.com/boddenberg/solar-leads-bfa/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.String("storage_bucket", cfg.StorageBucket),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.Duration("referral_ttl", cfg.ReferralTTL),
		zap.String("default_commission_rate", cfg.DefaultCommissionRate.StringFixed(2)),
		zap.Int64("max_upload_bytes", cfg.MaxUploadBytes),
		zap.String("lead_status_policy", cfg.LeadStatusPolicy),
		zap.Bool("scraper_enabled", cfg.ScraperEnabled),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "solar-leads-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
	}
	cb := resilience.NewCircuitBreaker("supabase", supabase.BreakerSuccess)

	// --- Supabase ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))
	store := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		cfg.StorageBucket,
		cb,
		resilienceCfg,
		logger,
	)

	// --- Sessions ---
	sessions := session.NewMemoryStore(cfg.SessionTTL, cfg.ReferralTTL)
	defer sessions.Close()
	codec := session.NewCodec(cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure)

	// --- Leads ---
	policy, err := domain.PolicyByName(cfg.LeadStatusPolicy)
	if err != nil {
		logger.Fatal("invalid lead status policy", zap.Error(err))
	}
	leadMirror := cache.New[domain.Lead](cfg.LeadCacheTTL)
	defer leadMirror.Close()

	// --- Services ---
	referrals := service.NewReferralService(sessions, store, cfg.DefaultCommissionRate, metrics, logger)
	svcs := handler.Services{
		Sessions: service.NewSessionService(sessions, referrals, store, store, logger),
		Pipeline: service.NewLeadPipeline(referrals, store, store, service.PipelineConfig{
			MaxUploadBytes:         cfg.MaxUploadBytes,
			CleanupOrphanedUploads: cfg.CleanupOrphanedUploads,
		}, metrics, logger),
		Leads:      service.NewLeadService(store, policy, leadMirror, metrics, logger),
		Affiliates: service.NewAffiliateService(store, sessions, cfg.DefaultCommissionRate, logger),
		AdminAuth:  service.NewAdminAuthService(store, store, sessions, logger),
		Dashboards: service.NewDashboardService(store, store, metrics, logger),
	}

	if cfg.ScraperEnabled {
		maps := scraper.NewMaps(cfg.ScraperBrowserBin, cfg.ScraperWaitTimeout, logger)
		svcs.Scraper = service.NewScraperService(maps, cfg.ScraperMaxConcurrency, metrics, logger)
		logger.Info("scraper enabled", zap.Int("max_concurrency", cfg.ScraperMaxConcurrency))
	} else {
		logger.Warn("scraper disabled, search route unavailable")
	}

	// --- Router ---
	router := handler.NewRouter(svcs, codec, handler.RouterConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MaxUploadBytes:     cfg.MaxUploadBytes,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
