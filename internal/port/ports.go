// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// LeadStore persists leads. Implemented by the Supabase adapter.
type LeadStore interface {
	CreateLead(ctx context.Context, lead *domain.NewLead) (*domain.Lead, error)
	GetLead(ctx context.Context, leadID string) (*domain.Lead, error)
	ListLeads(ctx context.Context, filter domain.LeadFilter) ([]domain.Lead, error)
	// UpdateLead applies the update and returns the row as confirmed by the store.
	UpdateLead(ctx context.Context, leadID string, update domain.LeadUpdate) (*domain.Lead, error)
	LeadMetrics(ctx context.Context, affiliateID string) ([]domain.LeadMetricRow, error)
}

// AffiliateStore persists affiliates.
type AffiliateStore interface {
	GetAffiliateByCode(ctx context.Context, code string) (*domain.Affiliate, error)
	GetAffiliateByID(ctx context.Context, affiliateID string) (*domain.Affiliate, error)
	GetAffiliateCredentials(ctx context.Context, email string) (*domain.AffiliateCredentials, error)
	ListAffiliates(ctx context.Context) ([]domain.Affiliate, error)
	TopAffiliates(ctx context.Context, limit int) ([]domain.Affiliate, error)
	CountAffiliates(ctx context.Context) (int, error)
	CreateAffiliate(ctx context.Context, a *domain.NewAffiliate) (*domain.Affiliate, error)
	UpdateAffiliate(ctx context.Context, affiliateID string, update domain.AffiliateUpdate) (*domain.Affiliate, error)
	DeleteAffiliate(ctx context.Context, affiliateID string) error
}

// AdminStore reads administrator profiles.
type AdminStore interface {
	GetAdminByAuthUserID(ctx context.Context, authUserID string) (*domain.Admin, error)
}

// IdentityProvider authenticates admins against the hosted auth service.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*domain.IdentitySession, error)
	GetUser(ctx context.Context, accessToken string) (*domain.IdentityUser, error)
	SignOut(ctx context.Context, accessToken string) error
}

// DocumentStore keeps uploaded bill documents.
type DocumentStore interface {
	// Upload stores body under key and returns its public URL.
	Upload(ctx context.Context, key, contentType string, body []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

// SessionStore holds per-browser-session state. Each key is independent;
// clearing one never touches the others.
type SessionStore interface {
	AdminSession(sid string) (*domain.AdminSession, bool)
	SetAdminSession(sid string, s *domain.AdminSession)
	ClearAdminSession(sid string)

	AffiliateSession(sid string) (*domain.AffiliateSession, bool)
	SetAffiliateSession(sid string, s *domain.AffiliateSession)
	ClearAffiliateSession(sid string)

	Screen(sid string) (domain.Screen, bool)
	SetScreen(sid string, screen domain.Screen)
	ClearScreen(sid string)

	PendingReferral(sid string) (string, bool)
	SetPendingReferral(sid, code string)
	ClearPendingReferral(sid string)
}

// BusinessScraper searches a map service for business listings.
type BusinessScraper interface {
	Search(ctx context.Context, query, location string) ([]domain.BusinessListing, error)
}
