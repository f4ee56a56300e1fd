// Package scraper drives a headless Chromium to read business listings from
// Google Maps search results.
package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"
	"github.com/boddenberg/solar-leads-bfa/internal/port"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("scraper")

var _ port.BusinessScraper = (*Maps)(nil)

const (
	defaultCategory = "Negócio Local"
	userAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	cardSelector    = ".Nv2PK"
	nameSelector    = ".fontHeadlineSmall"
	addressSelector = ".fontBodyMedium"
	ratingSelector  = ".fontDisplaySmall"
	websiteSelector = `[data-value="Website"]`
	reviewsSelector = ".UY7F9"
)

// Maps scrapes Google Maps with go-rod. Every Search launches and tears
// down its own browser.
type Maps struct {
	baseURL     string
	browserBin  string
	waitTimeout time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewMaps creates the scraper. browserBin may be empty to let rod locate or
// download a browser.
func NewMaps(browserBin string, waitTimeout time.Duration, logger *zap.Logger) *Maps {
	return &Maps{
		baseURL:     "https://maps.google.com/search/",
		browserBin:  browserBin,
		waitTimeout: waitTimeout,
		logger:      logger,
		now:         time.Now,
	}
}

// SearchURL builds the results page address for query in location.
func (m *Maps) SearchURL(query, location string) string {
	return m.baseURL + url.PathEscape(query) + "+" + url.PathEscape(location)
}

// Search opens the results page and extracts every complete card.
func (m *Maps) Search(ctx context.Context, query, location string) ([]domain.BusinessListing, error) {
	ctx, span := tracer.Start(ctx, "Scraper.Search")
	defer span.End()
	span.SetAttributes(attribute.String("scraper.query", query), attribute.String("scraper.location", location))

	l := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage")
	if m.browserBin != "" {
		l = l.Bin(m.browserBin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "scraper", Err: fmt.Errorf("launch browser: %w", err)}
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, &domain.ErrExternalService{Service: "scraper", Err: fmt.Errorf("connect browser: %w", err)}
	}
	defer func() {
		if err := browser.Close(); err != nil {
			m.logger.Debug("scraper: browser close failed", zap.Error(err))
		}
	}()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "scraper", Err: fmt.Errorf("open page: %w", err)}
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: userAgent}); err != nil {
		return nil, &domain.ErrExternalService{Service: "scraper", Err: fmt.Errorf("set user agent: %w", err)}
	}

	target := m.SearchURL(query, location)
	if err := page.Navigate(target); err != nil {
		return nil, &domain.ErrExternalService{Service: "scraper", Err: fmt.Errorf("navigate: %w", err)}
	}
	if _, err := page.Timeout(m.waitTimeout).Element(cardSelector); err != nil {
		m.logger.Info("scraper: no result cards", zap.String("query", query), zap.Error(err))
		return []domain.BusinessListing{}, nil
	}

	cards, err := page.Elements(cardSelector)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "scraper", Err: fmt.Errorf("list cards: %w", err)}
	}

	raw := make([]Card, 0, len(cards))
	for _, card := range cards {
		raw = append(raw, readCard(card))
	}

	listings := BuildListings(raw, m.now())
	m.logger.Info("scraper: search done",
		zap.String("query", query),
		zap.Int("cards", len(cards)),
		zap.Int("listings", len(listings)),
	)
	return listings, nil
}

// Card holds the raw text read from one result card.
type Card struct {
	Name    string
	Address string
	Rating  string
	Website string
	Reviews string
}

func readCard(el *rod.Element) Card {
	return Card{
		Name:    childText(el, nameSelector),
		Address: childText(el, addressSelector),
		Rating:  childText(el, ratingSelector),
		Website: childAttr(el, websiteSelector, "href"),
		Reviews: childText(el, reviewsSelector),
	}
}

// childText returns the trimmed text of the first match, or "" when absent.
// Has does not wait, unlike Element.
func childText(el *rod.Element, selector string) string {
	ok, child, err := el.Has(selector)
	if err != nil || !ok {
		return ""
	}
	text, err := child.Text()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

func childAttr(el *rod.Element, selector, name string) string {
	ok, child, err := el.Has(selector)
	if err != nil || !ok {
		return ""
	}
	v, err := child.Attribute(name)
	if err != nil || v == nil {
		return ""
	}
	return *v
}

// BuildListings turns raw cards into listings. Cards missing a name or an
// address are dropped.
func BuildListings(cards []Card, now time.Time) []domain.BusinessListing {
	out := make([]domain.BusinessListing, 0, len(cards))
	for i, c := range cards {
		if c.Name == "" || c.Address == "" {
			continue
		}
		rating := c.Rating
		if rating == "" {
			rating = "N/A"
		}
		out = append(out, domain.BusinessListing{
			ID:           fmt.Sprintf("lead_%d_%d", now.UnixMilli(), i),
			Name:         c.Name,
			Category:     defaultCategory,
			Rating:       rating,
			Address:      c.Address,
			Website:      c.Website,
			ReviewsCount: parseReviews(c.Reviews),
			ScrapedAt:    now.UTC(),
		})
	}
	return out
}

// parseReviews reads "(1.234)" style counts. Anything unreadable is 0.
func parseReviews(s string) int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
