package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCommissionRate applies when a lead has no resolvable affiliate.
var DefaultCommissionRate = decimal.RequireFromString("40.00")

// Affiliate is a referral partner. The credential never appears here.
type Affiliate struct {
	ID               string          `json:"id"`
	AffiliateCode    string          `json:"affiliate_code"`
	Name             string          `json:"name"`
	Email            string          `json:"email"`
	Phone            string          `json:"phone,omitempty"`
	CommissionRate   decimal.Decimal `json:"commission_rate"`
	TotalLeads       int             `json:"total_leads"`
	TotalClosedLeads int             `json:"total_closed_leads"`
	TotalCommission  decimal.Decimal `json:"total_commission"`
	CreatedAt        time.Time       `json:"created_at"`
}

// AffiliateCredentials pairs an affiliate with its stored password hash.
// Only the login flow reads it.
type AffiliateCredentials struct {
	Affiliate    Affiliate
	PasswordHash string
}

// NewAffiliate is the write model for creating an affiliate. The store
// assigns the id, the affiliate code and the counters.
type NewAffiliate struct {
	Name           string
	Email          string
	Phone          string
	PasswordHash   string
	CommissionRate decimal.Decimal
}

// AffiliateUpdate carries the admin-editable fields. Nil means unchanged.
type AffiliateUpdate struct {
	Name           *string
	Email          *string
	Phone          *string
	CommissionRate *decimal.Decimal
	PasswordHash   *string
}

// IsEmpty reports whether the update changes nothing.
func (u AffiliateUpdate) IsEmpty() bool {
	return u.Name == nil && u.Email == nil && u.Phone == nil && u.CommissionRate == nil && u.PasswordHash == nil
}

// Attribution is the outcome of resolving a referral code at submit time.
type Attribution struct {
	Code           string
	AffiliateID    *string
	CommissionRate decimal.Decimal
	Affiliate      *Affiliate
}

// Attributed reports whether the referral resolved to an affiliate.
func (a Attribution) Attributed() bool {
	return a.AffiliateID != nil
}

// ============================================================
// Request / response types
// ============================================================

// CreateAffiliateRequest is the body for POST /v1/admin/affiliates.
type CreateAffiliateRequest struct {
	Name           string           `json:"name"`
	Email          string           `json:"email"`
	Phone          string           `json:"phone,omitempty"`
	Password       string           `json:"password"`
	CommissionRate *decimal.Decimal `json:"commission_rate,omitempty"`
}

// UpdateAffiliateRequest is the body for PUT /v1/admin/affiliates/{id}.
type UpdateAffiliateRequest struct {
	Name           *string          `json:"name,omitempty"`
	Email          *string          `json:"email,omitempty"`
	Phone          *string          `json:"phone,omitempty"`
	Password       *string          `json:"password,omitempty"`
	CommissionRate *decimal.Decimal `json:"commission_rate,omitempty"`
}

// LoginRequest is the body for both affiliate and admin login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AffiliateDashboard is the affiliate's home screen.
type AffiliateDashboard struct {
	Affiliate *Affiliate              `json:"affiliate"`
	Leads     []Lead                  `json:"leads"`
	Metrics   AffiliateDashboardStats `json:"metrics"`
}

// AffiliateDashboardStats summarizes an affiliate's leads.
type AffiliateDashboardStats struct {
	NewLeads            int             `json:"new_leads"`
	ClosedLeads         int             `json:"closed_leads"`
	ProjectedCommission decimal.Decimal `json:"projected_commission"`
}

// AdminDashboard holds the global KPIs.
type AdminDashboard struct {
	TotalAffiliates  int             `json:"total_affiliates"`
	TotalLeads       int             `json:"total_leads"`
	TotalClosed      int             `json:"total_closed"`
	TotalCommissions decimal.Decimal `json:"total_commissions"`
	Pipeline         *PipelineStats  `json:"pipeline,omitempty"`
}

// PipelineStats is a process-local snapshot of submission counters.
type PipelineStats struct {
	Submitted       int64 `json:"submitted"`
	Failed          int64 `json:"failed"`
	Rejected        int64 `json:"rejected"`
	OrphanedUploads int64 `json:"orphaned_uploads"`
}
