package service

import (
	"context"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"
	"github.com/boddenberg/solar-leads-bfa/internal/infra/observability"
	"github.com/boddenberg/solar-leads-bfa/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var dashboardTracer = otel.Tracer("service/dashboard")

// DashboardService aggregates KPIs for the admin and affiliate home screens.
type DashboardService struct {
	leads      port.LeadStore
	affiliates port.AffiliateStore
	metrics    *observability.Metrics
	logger     *zap.Logger
}

func NewDashboardService(leads port.LeadStore, affiliates port.AffiliateStore, metrics *observability.Metrics, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		leads:      leads,
		affiliates: affiliates,
		metrics:    metrics,
		logger:     logger,
	}
}

// Admin returns the global totals. Commissions only count closed leads.
func (s *DashboardService) Admin(ctx context.Context) (*domain.AdminDashboard, error) {
	ctx, span := dashboardTracer.Start(ctx, "DashboardService.Admin")
	defer span.End()

	var (
		affiliates int
		rows       []domain.LeadMetricRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.affiliates.CountAffiliates(gctx)
		affiliates = n
		return err
	})
	g.Go(func() error {
		r, err := s.leads.LeadMetrics(gctx, "")
		rows = r
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("admin dashboard failed", zap.Error(err))
		return nil, err
	}

	dash := &domain.AdminDashboard{
		TotalAffiliates:  affiliates,
		TotalLeads:       len(rows),
		TotalCommissions: decimal.Zero,
		Pipeline:         s.metrics.PipelineSnapshot(),
	}
	for _, r := range rows {
		if r.Status == domain.LeadStatusClosed {
			dash.TotalClosed++
			dash.TotalCommissions = dash.TotalCommissions.Add(r.CommissionAmount)
		}
	}
	return dash, nil
}

// Affiliate returns the affiliate record, its leads and their summary.
// Projected commission counts every lead regardless of status.
func (s *DashboardService) Affiliate(ctx context.Context, affiliateID string) (*domain.AffiliateDashboard, error) {
	ctx, span := dashboardTracer.Start(ctx, "DashboardService.Affiliate")
	defer span.End()

	if affiliateID == "" {
		return nil, &domain.ErrUnauthorized{Message: "sessão de afiliado necessária"}
	}

	var (
		affiliate *domain.Affiliate
		leads     []domain.Lead
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := s.affiliates.GetAffiliateByID(gctx, affiliateID)
		affiliate = a
		return err
	})
	g.Go(func() error {
		l, err := s.leads.ListLeads(gctx, domain.LeadFilter{AffiliateID: affiliateID})
		leads = l
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("affiliate dashboard failed", zap.String("affiliate_id", affiliateID), zap.Error(err))
		return nil, err
	}

	if leads == nil {
		leads = []domain.Lead{}
	}
	dash := &domain.AffiliateDashboard{
		Affiliate: affiliate,
		Leads:     leads,
		Metrics:   domain.AffiliateDashboardStats{ProjectedCommission: decimal.Zero},
	}
	for _, l := range leads {
		switch l.Status {
		case domain.LeadStatusNew:
			dash.Metrics.NewLeads++
		case domain.LeadStatusClosed:
			dash.Metrics.ClosedLeads++
		}
		dash.Metrics.ProjectedCommission = dash.Metrics.ProjectedCommission.Add(l.CommissionAmount)
	}
	return dash, nil
}

// Ping checks the backing store with the cheapest query available.
func (s *DashboardService) Ping(ctx context.Context) error {
	_, err := s.affiliates.CountAffiliates(ctx)
	return err
}
