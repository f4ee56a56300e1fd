package handler

import (
	"net/http"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"
	"github.com/boddenberg/solar-leads-bfa/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Session — GET /v1/session?ref=
// ============================================================

func getSessionHandler(svc *service.SessionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/session")
		defer span.End()

		sid := SessionIDFromContext(ctx)
		res := svc.Resolve(ctx, sid, r.URL.Query().Get("ref"))
		span.SetAttributes(
			attribute.String("session.role", string(res.Role)),
			attribute.String("session.view", string(res.View)),
		)
		logger.Debug("session resolved", zap.String("role", string(res.Role)), zap.String("view", string(res.View)))

		writeJSON(w, http.StatusOK, res)
	}
}

func logoutHandler(svc *service.SessionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/session/logout")
		defer span.End()

		view := svc.Logout(ctx, SessionIDFromContext(ctx))
		logger.Debug("session logged out")
		writeJSON(w, http.StatusOK, domain.ViewResponse{View: view})
	}
}

// ============================================================
// Affiliate sub-screen — PUT/DELETE /v1/session/screen
// ============================================================

func selectScreenHandler(svc *service.SessionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.ScreenRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		view, err := svc.SelectScreen(SessionIDFromContext(r.Context()), req.Screen)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ViewResponse{View: view})
	}
}

func backToMenuHandler(svc *service.SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view := svc.BackToMenu(SessionIDFromContext(r.Context()))
		writeJSON(w, http.StatusOK, domain.ViewResponse{View: view})
	}
}
