package handler

import (
	"net/http"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"
	"github.com/boddenberg/solar-leads-bfa/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Login — POST /v1/auth/{affiliate,admin}/login
// ============================================================

func affiliateLoginHandler(svc *service.AffiliateService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/affiliate/login")
		defer span.End()

		var req domain.LoginRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		affiliate, err := svc.Login(ctx, SessionIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.Resolution{
			Role:      domain.RoleAffiliate,
			View:      domain.ViewAffiliateMenu,
			Affiliate: affiliate,
		})
	}
}

func adminLoginHandler(svc *service.AdminAuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/admin/login")
		defer span.End()

		var req domain.LoginRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		admin, err := svc.Login(ctx, SessionIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.Resolution{
			Role:  domain.RoleAdmin,
			View:  domain.ViewAdminDashboard,
			Admin: admin,
		})
	}
}
