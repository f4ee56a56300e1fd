package service

import (
	"context"
	"errors"
	"strings"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"
	"github.com/boddenberg/solar-leads-bfa/internal/infra/observability"
	"github.com/boddenberg/solar-leads-bfa/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var adminAuthTracer = otel.Tracer("service/admin_auth")

// AdminAuthService logs administrators in through the identity provider.
type AdminAuthService struct {
	identity port.IdentityProvider
	admins   port.AdminStore
	sessions port.SessionStore
	logger   *zap.Logger
}

func NewAdminAuthService(identity port.IdentityProvider, admins port.AdminStore, sessions port.SessionStore, logger *zap.Logger) *AdminAuthService {
	return &AdminAuthService{
		identity: identity,
		admins:   admins,
		sessions: sessions,
		logger:   logger,
	}
}

// Login signs in, requires an active admins row and stores the admin
// session for sid.
func (s *AdminAuthService) Login(ctx context.Context, sid string, req *domain.LoginRequest) (*domain.Admin, error) {
	ctx, span := adminAuthTracer.Start(ctx, "AdminAuthService.Login")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "email e senha são obrigatórios"}
	}

	identity, err := s.identity.SignInWithPassword(ctx, email, req.Password)
	if err != nil {
		s.logger.Info("admin login: sign-in failed", zap.String("email", observability.MaskEmail(email)), zap.Error(err))
		return nil, err
	}

	admin, err := s.admins.GetAdminByAuthUserID(ctx, identity.User.ID)
	if err != nil {
		var notFound *domain.ErrNotFound
		if !errors.As(err, &notFound) {
			return nil, err
		}
		admin = nil
	}
	if admin == nil || !admin.IsActive {
		s.logger.Warn("admin login: not an active admin", zap.String("auth_user_id", identity.User.ID))
		if err := s.identity.SignOut(ctx, identity.AccessToken); err != nil {
			s.logger.Debug("admin login: sign-out after rejection failed", zap.Error(err))
		}
		return nil, &domain.ErrForbidden{Action: "acesso restrito a administradores"}
	}

	s.sessions.SetAdminSession(sid, &domain.AdminSession{Admin: *admin, AccessToken: identity.AccessToken})
	s.logger.Info("admin logged in", zap.String("admin_id", admin.ID))
	return admin, nil
}
