package handler

import (
	"net/http"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"
	"github.com/boddenberg/solar-leads-bfa/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Dashboards
// ============================================================

func affiliateDashboardHandler(svc *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/affiliate/dashboard")
		defer span.End()

		dash, err := svc.Affiliate(ctx, ActorFromContext(ctx).AffiliateID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, dash)
	}
}

func adminDashboardHandler(svc *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/dashboard")
		defer span.End()

		dash, err := svc.Admin(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, dash)
	}
}

func rankingHandler(svc *service.AffiliateService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/affiliates/ranking")
		defer span.End()

		top, err := svc.Ranking(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Affiliate]{Data: top, Total: len(top)})
	}
}

// ============================================================
// Affiliate management — /v1/admin/affiliates
// ============================================================

func listAffiliatesHandler(svc *service.AffiliateService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/affiliates")
		defer span.End()

		list, err := svc.List(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Affiliate]{Data: list, Total: len(list)})
	}
}

func createAffiliateHandler(svc *service.AffiliateService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/admin/affiliates")
		defer span.End()

		var req domain.CreateAffiliateRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		created, err := svc.Create(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

func updateAffiliateHandler(svc *service.AffiliateService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/admin/affiliates/{affiliateId}")
		defer span.End()

		affiliateID := chi.URLParam(r, "affiliateId")
		span.SetAttributes(attribute.String("affiliate.id", affiliateID))

		var req domain.UpdateAffiliateRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		updated, err := svc.Update(ctx, affiliateID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func deleteAffiliateHandler(svc *service.AffiliateService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/admin/affiliates/{affiliateId}")
		defer span.End()

		affiliateID := chi.URLParam(r, "affiliateId")
		if err := svc.Delete(ctx, affiliateID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "afiliado removido", ID: affiliateID})
	}
}

// ============================================================
// Scraper — POST /v1/scraper/search
// ============================================================

func scraperSearchHandler(svc *service.ScraperService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/scraper/search")
		defer span.End()

		if svc == nil {
			writeError(w, http.StatusServiceUnavailable, "scraper desabilitado")
			return
		}

		var req domain.ScrapeRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		resp, err := svc.Search(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
