package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"
)

const adminsService = "supabase/admins"

// GetAdminByAuthUserID loads the admin profile linked to an auth user.
func (c *Client) GetAdminByAuthUserID(ctx context.Context, authUserID string) (*domain.Admin, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetAdminByAuthUserID")
	defer span.End()

	path := fmt.Sprintf("admins?auth_user_id=eq.%s&limit=1", url.QueryEscape(authUserID))
	body, err := c.read(ctx, adminsService, path)
	if err != nil {
		return nil, err
	}
	if isEmpty(body) {
		return nil, &domain.ErrNotFound{Resource: "admin", ID: authUserID}
	}

	var rows []domain.Admin
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &domain.ErrExternalService{Service: adminsService, Err: fmt.Errorf("decode admins: %w", err)}
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "admin", ID: authUserID}
	}
	return &rows[0], nil
}
