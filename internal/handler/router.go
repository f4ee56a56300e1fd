package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"
	"github.com/boddenberg/solar-leads-bfa/internal/infra/observability"
	"github.com/boddenberg/solar-leads-bfa/internal/infra/session"
	"github.com/boddenberg/solar-leads-bfa/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services groups the application services the router dispatches to.
// Scraper may be nil when scraping is disabled.
type Services struct {
	Sessions   *service.SessionService
	Pipeline   *service.LeadPipeline
	Leads      *service.LeadService
	Affiliates *service.AffiliateService
	AdminAuth  *service.AdminAuthService
	Dashboards *service.DashboardService
	Scraper    *service.ScraperService
}

// RouterConfig holds the HTTP-level settings.
type RouterConfig struct {
	CORSAllowedOrigins []string
	MaxUploadBytes     int64
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, codec *session.Codec, cfg RouterConfig, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc.Dashboards, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(SessionMiddleware(codec, logger))

		// Session / role resolution
		r.Get("/session", getSessionHandler(svc.Sessions, logger))
		r.Post("/session/logout", logoutHandler(svc.Sessions, logger))
		r.Group(func(r chi.Router) {
			r.Use(RequireRole(svc.Sessions, logger, domain.RoleAffiliate))
			r.Put("/session/screen", selectScreenHandler(svc.Sessions, logger))
			r.Delete("/session/screen", backToMenuHandler(svc.Sessions))
		})

		// Public simulator and lead form
		r.Post("/simulations", simulateHandler(logger))
		r.Post("/leads", submitLeadHandler(svc.Pipeline, cfg.MaxUploadBytes, logger))

		// Auth
		r.Post("/auth/affiliate/login", affiliateLoginHandler(svc.Affiliates, logger))
		r.Post("/auth/admin/login", adminLoginHandler(svc.AdminAuth, logger))

		// Affiliate area
		r.Group(func(r chi.Router) {
			r.Use(RequireRole(svc.Sessions, logger, domain.RoleAffiliate))
			r.Get("/affiliate/dashboard", affiliateDashboardHandler(svc.Dashboards, logger))
			r.Get("/affiliate/leads", listAffiliateLeadsHandler(svc.Leads, logger))
			r.Patch("/affiliate/leads/{leadId}", updateLeadHandler(svc.Leads, "PATCH /v1/affiliate/leads/{leadId}", logger))
		})

		// Shared staff tools
		r.Group(func(r chi.Router) {
			r.Use(RequireRole(svc.Sessions, logger, domain.RoleAffiliate, domain.RoleAdmin))
			r.Get("/affiliates/ranking", rankingHandler(svc.Affiliates, logger))
			r.Post("/scraper/search", scraperSearchHandler(svc.Scraper, logger))
		})

		// Admin area
		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireRole(svc.Sessions, logger, domain.RoleAdmin))
			r.Get("/dashboard", adminDashboardHandler(svc.Dashboards, logger))
			r.Get("/leads", listAdminLeadsHandler(svc.Leads, logger))
			r.Patch("/leads/{leadId}", updateLeadHandler(svc.Leads, "PATCH /v1/admin/leads/{leadId}", logger))
			r.Get("/affiliates", listAffiliatesHandler(svc.Affiliates, logger))
			r.Post("/affiliates", createAffiliateHandler(svc.Affiliates, logger))
			r.Put("/affiliates/{affiliateId}", updateAffiliateHandler(svc.Affiliates, logger))
			r.Delete("/affiliates/{affiliateId}", deleteAffiliateHandler(svc.Affiliates, logger))
		})
	})

	return r
}

// ============================================================
// Health
// ============================================================

func healthzHandler(dash *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "bfa-api", Status: "healthy", LastChecked: now},
		}

		if dash != nil {
			start := time.Now()
			err := dash.Ping(ctx)
			latency := time.Since(start).Milliseconds()
			status := "healthy"
			if err != nil {
				logger.Warn("healthz: supabase ping failed", zap.Error(err))
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "supabase", Status: status, LatencyMs: latency, LastChecked: now,
			})
		}

		overallStatus := "healthy"
		for _, s := range services {
			if s.Status == "unhealthy" {
				overallStatus = "unhealthy"
				break
			}
			if s.Status == "degraded" {
				overallStatus = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
