package service

import (
	"context"
	"strings"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"
	"github.com/boddenberg/solar-leads-bfa/internal/infra/cache"
	"github.com/boddenberg/solar-leads-bfa/internal/infra/observability"
	"github.com/boddenberg/solar-leads-bfa/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var leadsTracer = otel.Tracer("service/leads")

const mirrorCacheName = "lead_mirror"

// LeadService lists leads and moves them through the pipeline. It keeps a
// local mirror of the rows it has seen; the mirror only ever reflects
// writes the store confirmed.
type LeadService struct {
	leads   port.LeadStore
	policy  domain.TransitionPolicy
	mirror  *cache.InMemory[domain.Lead]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewLeadService creates a lead service. A nil policy means FreeTransitions.
func NewLeadService(leads port.LeadStore, policy domain.TransitionPolicy, mirror *cache.InMemory[domain.Lead], metrics *observability.Metrics, logger *zap.Logger) *LeadService {
	if policy == nil {
		policy = domain.FreeTransitions{}
	}
	return &LeadService{
		leads:   leads,
		policy:  policy,
		mirror:  mirror,
		metrics: metrics,
		logger:  logger,
	}
}

// ============================================================
// Listing
// ============================================================

// ListForAffiliate returns the affiliate's own leads, newest first.
func (s *LeadService) ListForAffiliate(ctx context.Context, affiliateID string, status domain.LeadStatus) ([]domain.Lead, error) {
	ctx, span := leadsTracer.Start(ctx, "LeadService.ListForAffiliate")
	defer span.End()

	if affiliateID == "" {
		return nil, &domain.ErrUnauthorized{Message: "sessão de afiliado necessária"}
	}

	leads, err := s.leads.ListLeads(ctx, domain.LeadFilter{AffiliateID: affiliateID, Status: status})
	if err != nil {
		return nil, err
	}
	for _, l := range leads {
		s.mirror.Set(l.ID, l)
	}
	return leads, nil
}

// ListAll returns every lead with its referring affiliate embedded. An
// unfiltered listing rebuilds the mirror wholesale.
func (s *LeadService) ListAll(ctx context.Context, filter domain.LeadFilter) ([]domain.Lead, error) {
	ctx, span := leadsTracer.Start(ctx, "LeadService.ListAll")
	defer span.End()

	filter.WithAffiliate = true
	leads, err := s.leads.ListLeads(ctx, filter)
	if err != nil {
		return nil, err
	}

	if filter.AffiliateID == "" && filter.Status == 0 {
		entries := make(map[string]domain.Lead, len(leads))
		for _, l := range leads {
			entries[l.ID] = l
		}
		s.mirror.Replace(entries)
	} else {
		for _, l := range leads {
			s.mirror.Set(l.ID, l)
		}
	}
	return leads, nil
}

// Cached returns the mirrored copy of a lead, if any.
func (s *LeadService) Cached(leadID string) (domain.Lead, bool) {
	l, ok := s.mirror.Get(leadID)
	if ok {
		s.metrics.IncrCacheHit(mirrorCacheName)
	} else {
		s.metrics.IncrCacheMiss(mirrorCacheName)
	}
	return l, ok
}

// ============================================================
// Updates
// ============================================================

// SetStatus moves a lead to another pipeline status.
func (s *LeadService) SetStatus(ctx context.Context, actor domain.Actor, leadID string, to domain.LeadStatus) (*domain.Lead, error) {
	return s.apply(ctx, actor, leadID, domain.LeadUpdate{Status: &to})
}

// UpdateClientName fills in or corrects the client name after creation.
func (s *LeadService) UpdateClientName(ctx context.Context, actor domain.Actor, leadID, name string) (*domain.Lead, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &domain.ErrValidation{Field: "client_name", Message: "nome é obrigatório"}
	}
	return s.apply(ctx, actor, leadID, domain.LeadUpdate{ClientName: &name})
}

// Update applies a PATCH body carrying a status, a client name or both.
func (s *LeadService) Update(ctx context.Context, actor domain.Actor, leadID string, req *domain.UpdateLeadRequest) (*domain.Lead, error) {
	var update domain.LeadUpdate
	if req.Status != "" {
		to, err := domain.ParseLeadStatus(req.Status)
		if err != nil {
			return nil, err
		}
		update.Status = &to
	}
	if req.ClientName != nil {
		name := strings.TrimSpace(*req.ClientName)
		if name == "" {
			return nil, &domain.ErrValidation{Field: "client_name", Message: "nome é obrigatório"}
		}
		update.ClientName = &name
	}
	if update.Status == nil && update.ClientName == nil {
		return nil, &domain.ErrValidation{Field: "body", Message: "informe status ou client_name"}
	}
	return s.apply(ctx, actor, leadID, update)
}

// apply loads the authoritative row, authorizes, checks the policy, writes
// remote and only then refreshes the mirror.
func (s *LeadService) apply(ctx context.Context, actor domain.Actor, leadID string, update domain.LeadUpdate) (*domain.Lead, error) {
	ctx, span := leadsTracer.Start(ctx, "LeadService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("lead.id", leadID), attribute.String("actor.role", string(actor.Role)))

	if leadID == "" {
		return nil, &domain.ErrValidation{Field: "lead_id", Message: "obrigatório"}
	}

	current, err := s.leads.GetLead(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if err := authorizeLead(actor, current); err != nil {
		s.logger.Warn("lead update denied",
			zap.String("lead_id", observability.MaskID(leadID)),
			zap.String("role", string(actor.Role)),
		)
		return nil, err
	}
	if update.Status != nil {
		if err := s.policy.Allow(current.Status, *update.Status); err != nil {
			return nil, err
		}
	}

	updated, err := s.leads.UpdateLead(ctx, leadID, update)
	if err != nil {
		s.logger.Error("lead update failed",
			zap.String("lead_id", observability.MaskID(leadID)),
			zap.Error(err),
		)
		return nil, err
	}

	s.mirror.Set(updated.ID, *updated)

	if update.Status != nil && current.Status != updated.Status {
		s.metrics.IncrStatusTransition(updated.Status)
		s.logger.Info("lead status changed",
			zap.String("lead_id", observability.MaskID(leadID)),
			zap.String("from", current.Status.Encode()),
			zap.String("to", updated.Status.Encode()),
			zap.String("role", string(actor.Role)),
		)
	}
	return updated, nil
}

// authorizeLead lets admins act on any lead and affiliates on their own.
func authorizeLead(actor domain.Actor, lead *domain.Lead) error {
	switch actor.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleAffiliate:
		if lead.OwnedBy(actor.AffiliateID) {
			return nil
		}
		return &domain.ErrForbidden{Action: "alterar lead de outro afiliado"}
	default:
		return &domain.ErrUnauthorized{Message: "login necessário"}
	}
}
