package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// AffiliateStore implementation — users table via PostgREST
// ============================================================

const (
	affiliatesService = "supabase/users"

	// affiliateColumns never includes password_hash.
	affiliateColumns = "id,affiliate_code,name,email,phone,commission_rate,total_leads,total_closed_leads,total_commission,created_at"
)

type affiliateRow struct {
	ID               string           `json:"id"`
	AffiliateCode    string           `json:"affiliate_code"`
	Name             string           `json:"name"`
	Email            string           `json:"email"`
	Phone            *string          `json:"phone"`
	CommissionRate   *decimal.Decimal `json:"commission_rate"`
	TotalLeads       *int             `json:"total_leads"`
	TotalClosedLeads *int             `json:"total_closed_leads"`
	TotalCommission  *decimal.Decimal `json:"total_commission"`
	CreatedAt        time.Time        `json:"created_at"`
	PasswordHash     string           `json:"password_hash,omitempty"`
}

func (r *affiliateRow) toDomain() domain.Affiliate {
	a := domain.Affiliate{
		ID:             r.ID,
		AffiliateCode:  r.AffiliateCode,
		Name:           r.Name,
		Email:          r.Email,
		CommissionRate: domain.DefaultCommissionRate,
		CreatedAt:      r.CreatedAt,
	}
	if r.Phone != nil {
		a.Phone = *r.Phone
	}
	if r.CommissionRate != nil {
		a.CommissionRate = *r.CommissionRate
	}
	if r.TotalLeads != nil {
		a.TotalLeads = *r.TotalLeads
	}
	if r.TotalClosedLeads != nil {
		a.TotalClosedLeads = *r.TotalClosedLeads
	}
	if r.TotalCommission != nil {
		a.TotalCommission = *r.TotalCommission
	}
	return a
}

func decodeAffiliateRows(body []byte) ([]affiliateRow, error) {
	if isEmpty(body) {
		return nil, nil
	}
	var rows []affiliateRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return rows, nil
}

func decodeAffiliates(body []byte) ([]domain.Affiliate, error) {
	rows, err := decodeAffiliateRows(body)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: affiliatesService, Err: err}
	}
	out := make([]domain.Affiliate, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (c *Client) getAffiliateBy(ctx context.Context, column, value string) (*domain.Affiliate, error) {
	q := url.Values{}
	q.Set("select", affiliateColumns)
	q.Set(column, "eq."+value)
	q.Set("limit", "1")

	body, err := c.read(ctx, affiliatesService, "users?"+q.Encode())
	if err != nil {
		return nil, err
	}
	affiliates, err := decodeAffiliates(body)
	if err != nil {
		return nil, err
	}
	if len(affiliates) == 0 {
		return nil, &domain.ErrNotFound{Resource: "affiliate", ID: value}
	}
	return &affiliates[0], nil
}

// GetAffiliateByCode resolves a referral code.
func (c *Client) GetAffiliateByCode(ctx context.Context, code string) (*domain.Affiliate, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetAffiliateByCode")
	defer span.End()
	span.SetAttributes(attribute.String("affiliate.code", code))

	return c.getAffiliateBy(ctx, "affiliate_code", code)
}

// GetAffiliateByID fetches an affiliate by primary key.
func (c *Client) GetAffiliateByID(ctx context.Context, affiliateID string) (*domain.Affiliate, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetAffiliateByID")
	defer span.End()
	span.SetAttributes(attribute.String("affiliate.id", affiliateID))

	return c.getAffiliateBy(ctx, "id", affiliateID)
}

// GetAffiliateCredentials returns the affiliate and its password hash, or
// (nil, nil) when no affiliate uses the email.
func (c *Client) GetAffiliateCredentials(ctx context.Context, email string) (*domain.AffiliateCredentials, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetAffiliateCredentials")
	defer span.End()

	q := url.Values{}
	q.Set("select", affiliateColumns+",password_hash")
	q.Set("email", "eq."+email)
	q.Set("limit", "1")

	body, err := c.read(ctx, affiliatesService, "users?"+q.Encode())
	if err != nil {
		return nil, err
	}
	rows, err := decodeAffiliateRows(body)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: affiliatesService, Err: err}
	}
	if len(rows) == 0 {
		return nil, nil // not found is not an error for auth lookup
	}
	return &domain.AffiliateCredentials{
		Affiliate:    rows[0].toDomain(),
		PasswordHash: rows[0].PasswordHash,
	}, nil
}

// ListAffiliates returns every affiliate, newest first.
func (c *Client) ListAffiliates(ctx context.Context) ([]domain.Affiliate, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListAffiliates")
	defer span.End()

	q := url.Values{}
	q.Set("select", affiliateColumns)
	q.Set("order", "created_at.desc")

	body, err := c.read(ctx, affiliatesService, "users?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return decodeAffiliates(body)
}

// TopAffiliates returns the affiliates with the most closed leads.
func (c *Client) TopAffiliates(ctx context.Context, limit int) ([]domain.Affiliate, error) {
	ctx, span := tracer.Start(ctx, "Supabase.TopAffiliates")
	defer span.End()

	q := url.Values{}
	q.Set("select", affiliateColumns)
	q.Set("order", "total_closed_leads.desc.nullslast")
	q.Set("limit", strconv.Itoa(limit))

	body, err := c.read(ctx, affiliatesService, "users?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return decodeAffiliates(body)
}

// CountAffiliates returns the exact number of affiliates.
func (c *Client) CountAffiliates(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CountAffiliates")
	defer span.End()

	var n int
	_, err := c.exec(affiliatesService, func() ([]byte, error) {
		var err error
		n, err = c.doCount(ctx, "users?select=id")
		return nil, err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// CreateAffiliate inserts an affiliate. The database assigns the id and the
// affiliate code.
func (c *Client) CreateAffiliate(ctx context.Context, a *domain.NewAffiliate) (*domain.Affiliate, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateAffiliate")
	defer span.End()

	data := map[string]any{
		"name":            a.Name,
		"email":           a.Email,
		"password_hash":   a.PasswordHash,
		"commission_rate": a.CommissionRate,
	}
	if a.Phone != "" {
		data["phone"] = a.Phone
	}

	body, err := c.exec(affiliatesService, func() ([]byte, error) {
		return c.doPost(ctx, "users?select="+affiliateColumns, data)
	})
	if err != nil {
		return nil, duplicateEmail(err)
	}
	affiliates, err := decodeAffiliates(body)
	if err != nil {
		return nil, err
	}
	if len(affiliates) == 0 {
		return nil, &domain.ErrExternalService{Service: affiliatesService, Err: fmt.Errorf("insert returned no row")}
	}
	return &affiliates[0], nil
}

// UpdateAffiliate patches the given fields. affiliate_code is never written.
func (c *Client) UpdateAffiliate(ctx context.Context, affiliateID string, update domain.AffiliateUpdate) (*domain.Affiliate, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateAffiliate")
	defer span.End()
	span.SetAttributes(attribute.String("affiliate.id", affiliateID))

	data := map[string]any{}
	if update.Name != nil {
		data["name"] = *update.Name
	}
	if update.Email != nil {
		data["email"] = *update.Email
	}
	if update.Phone != nil {
		data["phone"] = *update.Phone
	}
	if update.CommissionRate != nil {
		data["commission_rate"] = *update.CommissionRate
	}
	if update.PasswordHash != nil {
		data["password_hash"] = *update.PasswordHash
	}

	path := fmt.Sprintf("users?id=eq.%s&select=%s", url.QueryEscape(affiliateID), affiliateColumns)
	body, err := c.exec(affiliatesService, func() ([]byte, error) {
		return c.doPatch(ctx, path, data)
	})
	if err != nil {
		return nil, duplicateEmail(err)
	}
	affiliates, err := decodeAffiliates(body)
	if err != nil {
		return nil, err
	}
	if len(affiliates) == 0 {
		return nil, &domain.ErrNotFound{Resource: "affiliate", ID: affiliateID}
	}
	return &affiliates[0], nil
}

// DeleteAffiliate removes an affiliate.
func (c *Client) DeleteAffiliate(ctx context.Context, affiliateID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteAffiliate")
	defer span.End()
	span.SetAttributes(attribute.String("affiliate.id", affiliateID))

	path := fmt.Sprintf("users?id=eq.%s&select=id", url.QueryEscape(affiliateID))
	body, err := c.exec(affiliatesService, func() ([]byte, error) {
		return c.doDelete(ctx, path)
	})
	if err != nil {
		return err
	}
	if isEmpty(body) {
		return &domain.ErrNotFound{Resource: "affiliate", ID: affiliateID}
	}
	return nil
}

func duplicateEmail(err error) error {
	var conflict *domain.ErrConflict
	if errors.As(err, &conflict) {
		return &domain.ErrConflict{Message: "email já cadastrado"}
	}
	return err
}
