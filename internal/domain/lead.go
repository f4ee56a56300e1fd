// Package domain defines the core business entities of the solar leads BFA.
// These models are independent of Supabase and represent the canonical
// data structures used throughout the service.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Leads
// ============================================================

// Lead is a prospective customer's simulation request.
type Lead struct {
	ID               string          `json:"id"`
	BillValue        decimal.Decimal `json:"bill_value"`
	MonthlyEconomy   decimal.Decimal `json:"monthly_economy"`
	YearlyEconomy    decimal.Decimal `json:"yearly_economy"`
	Status           LeadStatus      `json:"status"`
	AffiliateID      *string         `json:"affiliate_id"`
	ClientName       string          `json:"client_name,omitempty"`
	ClientPhone      string          `json:"client_phone,omitempty"`
	EnergyBillFile   string          `json:"energy_bill_file"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	CommissionRate   decimal.Decimal `json:"commission_rate"`
	CreatedAt        time.Time       `json:"created_at"`

	// Affiliate is only populated by the admin listing.
	Affiliate *LeadAffiliate `json:"affiliate,omitempty"`
}

// LeadAffiliate is the referring affiliate summary embedded in admin views.
type LeadAffiliate struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	AffiliateCode string `json:"affiliate_code"`
}

// OwnedBy reports whether the lead was sourced by the given affiliate.
func (l *Lead) OwnedBy(affiliateID string) bool {
	return l.AffiliateID != nil && affiliateID != "" && *l.AffiliateID == affiliateID
}

// NewLead is the write model handed to the LeadStore by the submission
// pipeline. Every derived figure is already frozen.
type NewLead struct {
	ID               string
	ClientName       string
	ClientPhone      string
	BillValue        decimal.Decimal
	MonthlyEconomy   decimal.Decimal
	YearlyEconomy    decimal.Decimal
	CommissionAmount decimal.Decimal
	CommissionRate   decimal.Decimal
	AffiliateID      *string
	EnergyBillFile   string
	Status           LeadStatus
}

// LeadFilter narrows a lead listing.
type LeadFilter struct {
	AffiliateID string
	Status      LeadStatus
	// WithAffiliate embeds the referring affiliate summary.
	WithAffiliate bool
}

// LeadUpdate carries the mutable lead fields. Nil means "leave unchanged".
// Commission figures are deliberately absent.
type LeadUpdate struct {
	Status     *LeadStatus
	ClientName *string
}

// LeadMetricRow is the projection used by the dashboard aggregations.
type LeadMetricRow struct {
	Status           LeadStatus      `json:"status"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
}

// UpdateLeadRequest is the body for PATCH /v1/{affiliate,admin}/leads/{id}.
type UpdateLeadRequest struct {
	Status     string  `json:"status,omitempty"`
	ClientName *string `json:"client_name,omitempty"`
}

// ============================================================
// Submission
// ============================================================

// BillFile is the proof-of-bill document attached to a submission.
type BillFile struct {
	Name        string
	ContentType string
	Size        int64
	Body        []byte
}

// SubmitInput carries everything the visitor typed into the lead form.
type SubmitInput struct {
	BillValue   string
	ClientName  string
	ClientPhone string
	BillFile    *BillFile
}

// SimulationRequest is the body for POST /v1/simulations.
type SimulationRequest struct {
	BillValue string `json:"bill_value"`
}

// SimulationResponse is the economy teaser.
type SimulationResponse struct {
	BillValue        decimal.Decimal `json:"bill_value"`
	MonthlyEconomy   decimal.Decimal `json:"monthly_economy"`
	YearlyEconomy    decimal.Decimal `json:"yearly_economy"`
	FunEquivalent    string          `json:"fun_equivalent"`
	TeaserEquivalent string          `json:"teaser_equivalent"`
}

// SubmitResponse is returned after a lead is created.
type SubmitResponse struct {
	Lead          *Lead        `json:"lead"`
	FunEquivalent string       `json:"fun_equivalent"`
	Affiliate     *ContactCard `json:"affiliate,omitempty"`
}

// ContactCard lets the thank-you page open a WhatsApp chat with the
// referring affiliate.
type ContactCard struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}
