package service

import (
	"context"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"
	"github.com/boddenberg/solar-leads-bfa/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var sessionTracer = otel.Tracer("service/session")

// SessionService decides who a browser session is and which view it lands
// on after a load.
type SessionService struct {
	sessions  port.SessionStore
	referrals *ReferralService
	identity  port.IdentityProvider
	admins    port.AdminStore
	logger    *zap.Logger
}

// NewSessionService creates the session resolver.
func NewSessionService(sessions port.SessionStore, referrals *ReferralService, identity port.IdentityProvider, admins port.AdminStore, logger *zap.Logger) *SessionService {
	return &SessionService{
		sessions:  sessions,
		referrals: referrals,
		identity:  identity,
		admins:    admins,
		logger:    logger,
	}
}

// Resolve captures ref when present, then picks the role and view. Admin
// wins over affiliate, affiliate over anonymous. It never fails.
func (s *SessionService) Resolve(ctx context.Context, sid, ref string) domain.Resolution {
	ctx, span := sessionTracer.Start(ctx, "SessionService.Resolve")
	defer span.End()

	s.referrals.Capture(sid, ref)
	pending, _ := s.referrals.Pending(sid)

	if admin, ok := s.verifiedAdmin(ctx, sid); ok {
		span.SetAttributes(attribute.String("session.role", string(domain.RoleAdmin)))
		return domain.Resolution{
			Role:            domain.RoleAdmin,
			View:            domain.ViewAdminDashboard,
			Admin:           admin,
			PendingReferral: pending,
		}
	}

	if aff, ok := s.sessions.AffiliateSession(sid); ok {
		span.SetAttributes(attribute.String("session.role", string(domain.RoleAffiliate)))
		res := domain.Resolution{
			Role:            domain.RoleAffiliate,
			Affiliate:       &aff.Affiliate,
			PendingReferral: pending,
		}
		if ref != "" {
			// a referred visitor always sees the public simulator
			res.View = domain.ViewLanding
			return res
		}
		screen, _ := s.sessions.Screen(sid)
		res.View = screen.View()
		return res
	}

	span.SetAttributes(attribute.String("session.role", string(domain.RoleAnonymous)))
	return domain.Resolution{
		Role:            domain.RoleAnonymous,
		View:            domain.ViewLanding,
		PendingReferral: pending,
	}
}

// verifiedAdmin checks the stored admin marker against the identity
// provider and the admins table. A stale marker is cleared.
func (s *SessionService) verifiedAdmin(ctx context.Context, sid string) (*domain.Admin, bool) {
	stored, ok := s.sessions.AdminSession(sid)
	if !ok {
		return nil, false
	}

	user, err := s.identity.GetUser(ctx, stored.AccessToken)
	if err != nil {
		s.logger.Info("admin session no longer valid", zap.Error(err))
		s.sessions.ClearAdminSession(sid)
		return nil, false
	}

	admin, err := s.admins.GetAdminByAuthUserID(ctx, user.ID)
	if err != nil || admin == nil || !admin.IsActive {
		s.logger.Warn("admin session rejected",
			zap.String("auth_user_id", user.ID),
			zap.Error(err),
		)
		s.sessions.ClearAdminSession(sid)
		return nil, false
	}

	s.sessions.SetAdminSession(sid, &domain.AdminSession{Admin: *admin, AccessToken: stored.AccessToken})
	return admin, true
}

// Actor reports the caller behind sid from the local markers alone.
func (s *SessionService) Actor(sid string) domain.Actor {
	if a, ok := s.sessions.AdminSession(sid); ok {
		return domain.Actor{Role: domain.RoleAdmin, AdminID: a.Admin.ID}
	}
	if a, ok := s.sessions.AffiliateSession(sid); ok {
		return domain.Actor{Role: domain.RoleAffiliate, AffiliateID: a.Affiliate.ID}
	}
	return domain.Actor{Role: domain.RoleAnonymous}
}

// Logout clears both login markers and the sub-screen. The pending
// referral survives. Sign-out failures are logged only.
func (s *SessionService) Logout(ctx context.Context, sid string) domain.View {
	ctx, span := sessionTracer.Start(ctx, "SessionService.Logout")
	defer span.End()

	if admin, ok := s.sessions.AdminSession(sid); ok && admin.AccessToken != "" {
		if err := s.identity.SignOut(ctx, admin.AccessToken); err != nil {
			s.logger.Warn("identity sign-out failed", zap.Error(err))
		}
	}

	s.sessions.ClearAdminSession(sid)
	s.sessions.ClearAffiliateSession(sid)
	s.sessions.ClearScreen(sid)
	return domain.ViewLanding
}

// SelectScreen remembers the affiliate sub-screen.
func (s *SessionService) SelectScreen(sid, screen string) (domain.View, error) {
	parsed, err := domain.ParseScreen(screen)
	if err != nil {
		return "", err
	}
	s.sessions.SetScreen(sid, parsed)
	return parsed.View(), nil
}

// BackToMenu forgets the sub-screen.
func (s *SessionService) BackToMenu(sid string) domain.View {
	s.sessions.ClearScreen(sid)
	return domain.ViewAffiliateMenu
}
