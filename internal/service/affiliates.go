package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"
	"github.com/boddenberg/solar-leads-bfa/internal/infra/observability"
	"github.com/boddenberg/solar-leads-bfa/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var affiliatesTracer = otel.Tracer("service/affiliates")

const (
	bcryptCost       = 12
	minPasswordLen   = 6
	rankingSize      = 5
	invalidLoginText = "Email ou senha incorretos"
)

// AffiliateService manages affiliates and their logins.
type AffiliateService struct {
	affiliates  port.AffiliateStore
	sessions    port.SessionStore
	defaultRate decimal.Decimal
	cost        int
	logger      *zap.Logger
}

// NewAffiliateService creates the affiliate service.
func NewAffiliateService(affiliates port.AffiliateStore, sessions port.SessionStore, defaultRate decimal.Decimal, logger *zap.Logger) *AffiliateService {
	return &AffiliateService{
		affiliates:  affiliates,
		sessions:    sessions,
		defaultRate: defaultRate,
		cost:        bcryptCost,
		logger:      logger,
	}
}

// WithHashCost overrides the bcrypt cost.
func (s *AffiliateService) WithHashCost(cost int) *AffiliateService {
	s.cost = cost
	return s
}

// ============================================================
// Admin CRUD
// ============================================================

// Create registers a new affiliate. The store assigns the affiliate code.
func (s *AffiliateService) Create(ctx context.Context, req *domain.CreateAffiliateRequest) (*domain.Affiliate, error) {
	ctx, span := affiliatesTracer.Start(ctx, "AffiliateService.Create")
	defer span.End()

	name := strings.TrimSpace(req.Name)
	if err := domain.ValidateRequired("name", name); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	phone, err := normalizeOptionalPhone(req.Phone)
	if err != nil {
		return nil, err
	}
	if len(req.Password) < minPasswordLen {
		return nil, &domain.ErrValidation{Field: "password", Message: fmt.Sprintf("mínimo de %d caracteres", minPasswordLen)}
	}

	rate := s.defaultRate
	if req.CommissionRate != nil {
		rate = *req.CommissionRate
	}
	if err := domain.ValidateCommissionRate(rate); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.affiliates.CreateAffiliate(ctx, &domain.NewAffiliate{
		Name:           name,
		Email:          email,
		Phone:          phone,
		PasswordHash:   string(hash),
		CommissionRate: rate,
	})
	if err != nil {
		s.logger.Error("failed to create affiliate", zap.String("email", observability.MaskEmail(email)), zap.Error(err))
		return nil, err
	}

	span.SetAttributes(attribute.String("affiliate.id", created.ID))
	s.logger.Info("affiliate created",
		zap.String("affiliate_id", created.ID),
		zap.String("affiliate_code", created.AffiliateCode),
	)
	return created, nil
}

// Update changes any of the editable fields. A non-empty password rotates
// the credential.
func (s *AffiliateService) Update(ctx context.Context, affiliateID string, req *domain.UpdateAffiliateRequest) (*domain.Affiliate, error) {
	ctx, span := affiliatesTracer.Start(ctx, "AffiliateService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("affiliate.id", affiliateID))

	var update domain.AffiliateUpdate
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := domain.ValidateRequired("name", name); err != nil {
			return nil, err
		}
		update.Name = &name
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if err := domain.ValidateEmail(email); err != nil {
			return nil, err
		}
		update.Email = &email
	}
	if req.Phone != nil {
		phone, err := normalizeOptionalPhone(*req.Phone)
		if err != nil {
			return nil, err
		}
		update.Phone = &phone
	}
	if req.CommissionRate != nil {
		if err := domain.ValidateCommissionRate(*req.CommissionRate); err != nil {
			return nil, err
		}
		rate := *req.CommissionRate
		update.CommissionRate = &rate
	}
	if req.Password != nil && *req.Password != "" {
		if len(*req.Password) < minPasswordLen {
			return nil, &domain.ErrValidation{Field: "password", Message: fmt.Sprintf("mínimo de %d caracteres", minPasswordLen)}
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), s.cost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		h := string(hash)
		update.PasswordHash = &h
	}
	if update.IsEmpty() {
		return nil, &domain.ErrValidation{Field: "body", Message: "nada para atualizar"}
	}

	updated, err := s.affiliates.UpdateAffiliate(ctx, affiliateID, update)
	if err != nil {
		return nil, err
	}
	s.logger.Info("affiliate updated",
		zap.String("affiliate_id", affiliateID),
		zap.Bool("password_rotated", update.PasswordHash != nil),
	)
	return updated, nil
}

func (s *AffiliateService) Delete(ctx context.Context, affiliateID string) error {
	ctx, span := affiliatesTracer.Start(ctx, "AffiliateService.Delete")
	defer span.End()

	if err := s.affiliates.DeleteAffiliate(ctx, affiliateID); err != nil {
		return err
	}
	s.logger.Info("affiliate deleted", zap.String("affiliate_id", affiliateID))
	return nil
}

func (s *AffiliateService) List(ctx context.Context) ([]domain.Affiliate, error) {
	ctx, span := affiliatesTracer.Start(ctx, "AffiliateService.List")
	defer span.End()

	return s.affiliates.ListAffiliates(ctx)
}

// Ranking returns the top affiliates by closed leads.
func (s *AffiliateService) Ranking(ctx context.Context) ([]domain.Affiliate, error) {
	ctx, span := affiliatesTracer.Start(ctx, "AffiliateService.Ranking")
	defer span.End()

	return s.affiliates.TopAffiliates(ctx, rankingSize)
}

// ============================================================
// Login — POST /v1/auth/affiliate/login
// ============================================================

// Login checks the credentials and stores the affiliate snapshot in the
// session.
func (s *AffiliateService) Login(ctx context.Context, sid string, req *domain.LoginRequest) (*domain.Affiliate, error) {
	ctx, span := affiliatesTracer.Start(ctx, "AffiliateService.Login")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "email e senha são obrigatórios"}
	}

	cred, err := s.affiliates.GetAffiliateCredentials(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get affiliate credentials: %w", err)
	}
	if cred == nil {
		s.logger.Info("affiliate login: unknown email", zap.String("email", observability.MaskEmail(email)))
		return nil, &domain.ErrUnauthorized{Message: invalidLoginText}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("affiliate login: wrong password", zap.String("affiliate_id", cred.Affiliate.ID))
		return nil, &domain.ErrUnauthorized{Message: invalidLoginText}
	}

	s.sessions.SetAffiliateSession(sid, &domain.AffiliateSession{Affiliate: cred.Affiliate})
	s.logger.Info("affiliate logged in", zap.String("affiliate_id", cred.Affiliate.ID))

	aff := cred.Affiliate
	return &aff, nil
}

// normalizeOptionalPhone keeps digits only; an empty phone is allowed.
func normalizeOptionalPhone(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	if !domain.IsValidPhone(raw) {
		return "", &domain.ErrValidation{Field: "phone", Message: "telefone deve ter 10 ou 11 dígitos"}
	}
	return domain.UnformatPhone(raw), nil
}
