package service

import (
	"context"
	"errors"
	"strings"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"
	"github.com/boddenberg/solar-leads-bfa/internal/infra/observability"
	"github.com/boddenberg/solar-leads-bfa/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var referralTracer = otel.Tracer("service/referral")

// ReferralService captures, resolves and consumes referral codes.
type ReferralService struct {
	sessions    port.SessionStore
	affiliates  port.AffiliateStore
	defaultRate decimal.Decimal
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewReferralService creates a referral service.
func NewReferralService(sessions port.SessionStore, affiliates port.AffiliateStore, defaultRate decimal.Decimal, metrics *observability.Metrics, logger *zap.Logger) *ReferralService {
	return &ReferralService{
		sessions:    sessions,
		affiliates:  affiliates,
		defaultRate: defaultRate,
		metrics:     metrics,
		logger:      logger,
	}
}

// Capture remembers code for the session. Blank codes are ignored and a new
// code replaces the previous one.
func (s *ReferralService) Capture(sid, code string) {
	code = strings.TrimSpace(code)
	if code == "" {
		return
	}
	s.sessions.SetPendingReferral(sid, code)
	s.logger.Debug("referral captured", zap.String("code", code))
}

// Pending returns the code waiting to be used, if any.
func (s *ReferralService) Pending(sid string) (string, bool) {
	return s.sessions.PendingReferral(sid)
}

// Consume drops the pending code once a lead has been persisted.
func (s *ReferralService) Consume(sid string) {
	s.sessions.ClearPendingReferral(sid)
}

// Resolve maps code to the attributed affiliate and its commission rate.
// It never fails: unknown codes and lookup errors fall back to the default
// rate without an affiliate.
func (s *ReferralService) Resolve(ctx context.Context, code string) domain.Attribution {
	ctx, span := referralTracer.Start(ctx, "ReferralService.Resolve")
	defer span.End()

	fallback := domain.Attribution{Code: code, CommissionRate: s.defaultRate}
	if code == "" {
		return fallback
	}

	affiliate, err := s.affiliates.GetAffiliateByCode(ctx, code)
	if err != nil {
		var notFound *domain.ErrNotFound
		if errors.As(err, &notFound) {
			s.metrics.IncrReferral("unknown")
			s.logger.Info("referral code not found", zap.String("code", code))
		} else {
			s.metrics.IncrReferral("error")
			s.logger.Warn("referral lookup failed, using default commission",
				zap.String("code", code),
				zap.Error(err),
			)
		}
		return fallback
	}
	if affiliate == nil {
		s.metrics.IncrReferral("unknown")
		return fallback
	}

	span.SetAttributes(attribute.String("affiliate.id", affiliate.ID))
	s.metrics.IncrReferral("attributed")

	id := affiliate.ID
	return domain.Attribution{
		Code:           code,
		AffiliateID:    &id,
		CommissionRate: affiliate.CommissionRate,
		Affiliate:      affiliate,
	}
}
