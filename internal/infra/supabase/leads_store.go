package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// LeadStore implementation — leads table via PostgREST
// ============================================================

const (
	leadsService       = "supabase/leads"
	leadAffiliateEmbed = "users!leads_affiliate_id_fkey(id,name,affiliate_code)"
)

// leadRow maps the leads table columns.
type leadRow struct {
	ID               string          `json:"id"`
	ClientName       *string         `json:"client_name"`
	ClientPhone      *string         `json:"client_phone"`
	EnergyBillValue  decimal.Decimal `json:"energy_bill_value"`
	MonthlyEconomy   decimal.Decimal `json:"monthly_economy"`
	YearlyEconomy    decimal.Decimal `json:"yearly_economy"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	CommissionRate   decimal.Decimal `json:"commission_rate"`
	AffiliateID      *string         `json:"affiliate_id"`
	EnergyBillFile   string          `json:"energy_bill_file"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`

	Users *domain.LeadAffiliate `json:"users,omitempty"`
}

func (r *leadRow) toDomain() (domain.Lead, error) {
	status, err := domain.ParseLeadStatus(r.Status)
	if err != nil {
		return domain.Lead{}, fmt.Errorf("lead %s: %w", r.ID, err)
	}
	l := domain.Lead{
		ID:               r.ID,
		BillValue:        r.EnergyBillValue,
		MonthlyEconomy:   r.MonthlyEconomy,
		YearlyEconomy:    r.YearlyEconomy,
		Status:           status,
		AffiliateID:      r.AffiliateID,
		EnergyBillFile:   r.EnergyBillFile,
		CommissionAmount: r.CommissionAmount,
		CommissionRate:   r.CommissionRate,
		CreatedAt:        r.CreatedAt,
		Affiliate:        r.Users,
	}
	if r.ClientName != nil {
		l.ClientName = *r.ClientName
	}
	if r.ClientPhone != nil {
		l.ClientPhone = *r.ClientPhone
	}
	return l, nil
}

func decodeLeads(body []byte) ([]domain.Lead, error) {
	if isEmpty(body) {
		return []domain.Lead{}, nil
	}
	var rows []leadRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode leads: %w", err)
	}
	leads := make([]domain.Lead, 0, len(rows))
	for i := range rows {
		l, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, nil
}

func firstLead(body []byte, leadID string) (*domain.Lead, error) {
	leads, err := decodeLeads(body)
	if err != nil {
		return nil, err
	}
	if len(leads) == 0 {
		return nil, &domain.ErrNotFound{Resource: "lead", ID: leadID}
	}
	return &leads[0], nil
}

// CreateLead inserts a lead. The bill file URL is mandatory.
func (c *Client) CreateLead(ctx context.Context, lead *domain.NewLead) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateLead")
	defer span.End()
	span.SetAttributes(attribute.String("lead.id", lead.ID))

	if lead.EnergyBillFile == "" {
		return nil, &domain.ErrValidation{Field: "energy_bill_file", Message: "comprovante é obrigatório"}
	}

	data := map[string]any{
		"id":                lead.ID,
		"client_name":       lead.ClientName,
		"client_phone":      lead.ClientPhone,
		"energy_bill_value": lead.BillValue,
		"monthly_economy":   lead.MonthlyEconomy,
		"yearly_economy":    lead.YearlyEconomy,
		"commission_amount": lead.CommissionAmount,
		"commission_rate":   lead.CommissionRate,
		"affiliate_id":      lead.AffiliateID,
		"energy_bill_file":  lead.EnergyBillFile,
		"status":            lead.Status.Encode(),
	}

	body, err := c.exec(leadsService, func() ([]byte, error) {
		return c.doPost(ctx, "leads", data)
	})
	if err != nil {
		return nil, err
	}
	created, err := firstLead(body, lead.ID)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: leadsService, Err: err}
	}
	return created, nil
}

// GetLead fetches a single lead by id.
func (c *Client) GetLead(ctx context.Context, leadID string) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetLead")
	defer span.End()
	span.SetAttributes(attribute.String("lead.id", leadID))

	path := fmt.Sprintf("leads?id=eq.%s&limit=1", url.QueryEscape(leadID))
	body, err := c.read(ctx, leadsService, path)
	if err != nil {
		return nil, err
	}
	return firstLead(body, leadID)
}

// ListLeads returns leads newest first.
func (c *Client) ListLeads(ctx context.Context, filter domain.LeadFilter) ([]domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListLeads")
	defer span.End()

	q := url.Values{}
	if filter.WithAffiliate {
		q.Set("select", "*,"+leadAffiliateEmbed)
	} else {
		q.Set("select", "*")
	}
	if filter.AffiliateID != "" {
		q.Set("affiliate_id", "eq."+filter.AffiliateID)
	}
	if filter.Status.IsValid() {
		q.Set("status", "eq."+filter.Status.Encode())
	}
	q.Set("order", "created_at.desc")

	body, err := c.read(ctx, leadsService, "leads?"+q.Encode())
	if err != nil {
		return nil, err
	}
	leads, err := decodeLeads(body)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: leadsService, Err: err}
	}
	return leads, nil
}

// UpdateLead patches status and/or client name and returns the stored row.
// Commission figures are never written here.
func (c *Client) UpdateLead(ctx context.Context, leadID string, update domain.LeadUpdate) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateLead")
	defer span.End()
	span.SetAttributes(attribute.String("lead.id", leadID))

	data := map[string]any{}
	if update.Status != nil {
		data["status"] = update.Status.Encode()
	}
	if update.ClientName != nil {
		data["client_name"] = strings.TrimSpace(*update.ClientName)
	}
	if len(data) == 0 {
		return nil, &domain.ErrValidation{Field: "lead", Message: "nothing to update"}
	}

	path := fmt.Sprintf("leads?id=eq.%s", url.QueryEscape(leadID))
	body, err := c.exec(leadsService, func() ([]byte, error) {
		return c.doPatch(ctx, path, data)
	})
	if err != nil {
		return nil, err
	}
	return firstLead(body, leadID)
}

// LeadMetrics returns the status/commission projection, optionally scoped
// to one affiliate.
func (c *Client) LeadMetrics(ctx context.Context, affiliateID string) ([]domain.LeadMetricRow, error) {
	ctx, span := tracer.Start(ctx, "Supabase.LeadMetrics")
	defer span.End()

	q := url.Values{}
	q.Set("select", "status,commission_amount")
	if affiliateID != "" {
		q.Set("affiliate_id", "eq."+affiliateID)
	}

	body, err := c.read(ctx, leadsService, "leads?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if isEmpty(body) {
		return []domain.LeadMetricRow{}, nil
	}

	var rows []struct {
		Status           string          `json:"status"`
		CommissionAmount decimal.Decimal `json:"commission_amount"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &domain.ErrExternalService{Service: leadsService, Err: fmt.Errorf("decode lead metrics: %w", err)}
	}

	out := make([]domain.LeadMetricRow, 0, len(rows))
	for _, r := range rows {
		status, err := domain.ParseLeadStatus(r.Status)
		if err != nil {
			c.logger.Warn("supabase: skipping lead with unknown status")
			continue
		}
		out = append(out, domain.LeadMetricRow{Status: status, CommissionAmount: r.CommissionAmount})
	}
	return out, nil
}
