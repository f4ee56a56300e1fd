package service

import (
	"context"
	"strings"
	"time"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"
	"github.com/boddenberg/solar-leads-bfa/internal/infra/observability"
	"github.com/boddenberg/solar-leads-bfa/internal/infra/resilience"
	"github.com/boddenberg/solar-leads-bfa/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var scraperTracer = otel.Tracer("service/scraper")

// ScraperService finds B2B prospects on a map service. A bulkhead caps
// concurrent browser sessions.
type ScraperService struct {
	scraper  port.BusinessScraper
	bulkhead *resilience.Bulkhead
	metrics  *observability.Metrics
	logger   *zap.Logger
}

func NewScraperService(scraper port.BusinessScraper, maxConcurrency int, metrics *observability.Metrics, logger *zap.Logger) *ScraperService {
	return &ScraperService{
		scraper:  scraper,
		bulkhead: resilience.NewBulkhead(maxConcurrency),
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *ScraperService) Search(ctx context.Context, req *domain.ScrapeRequest) (*domain.ScrapeResponse, error) {
	ctx, span := scraperTracer.Start(ctx, "ScraperService.Search")
	defer span.End()

	query := strings.TrimSpace(req.Query)
	location := strings.TrimSpace(req.Location)
	if query == "" || location == "" {
		return nil, &domain.ErrValidation{Field: "query", Message: "Query e localização são obrigatórios"}
	}

	if err := s.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.bulkhead.Release()

	start := time.Now()
	listings, err := s.scraper.Search(ctx, query, location)
	s.metrics.RecordRequestDuration("scraper_search", time.Since(start))
	if err != nil {
		s.metrics.IncrExternalError("scraper")
		s.logger.Error("scraper search failed", zap.String("query", query), zap.Error(err))
		return nil, asExternal("scraper", err)
	}

	return &domain.ScrapeResponse{
		Count:       len(listings),
		Leads:       listings,
		SearchQuery: query + " em " + location,
	}, nil
}
