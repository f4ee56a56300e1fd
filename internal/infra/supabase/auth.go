package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"
)

// ============================================================
// IdentityProvider implementation — GoTrue auth API
// ============================================================

const authService = "supabase/auth"

func (c *Client) authURL(path string) string {
	return fmt.Sprintf("%s/auth/v1/%s", c.baseURL, path)
}

// asUnauthorized turns a GoTrue 400/401/403 into ErrUnauthorized.
func asUnauthorized(err error, msg string) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity:
			return &domain.ErrUnauthorized{Message: msg}
		}
	}
	return err
}

// SignInWithPassword exchanges email and password for an access token.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.IdentitySession, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SignInWithPassword")
	defer span.End()

	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}

	body, err := c.exec(authService, func() ([]byte, error) {
		resp, err := c.send(ctx, http.MethodPost, c.authURL("token?grant_type=password"), bytes.NewReader(payload), http.Header{
			"Authorization": {"Bearer " + c.apiKey},
		})
		if err != nil {
			return nil, err
		}
		return resp.body, nil
	})
	if err != nil {
		return nil, asUnauthorized(err, "Email ou senha inválidos")
	}

	var session domain.IdentitySession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, &domain.ErrExternalService{Service: authService, Err: fmt.Errorf("decode session: %w", err)}
	}
	if session.AccessToken == "" || session.User.ID == "" {
		return nil, &domain.ErrExternalService{Service: authService, Err: fmt.Errorf("incomplete session in response")}
	}
	return &session, nil
}

// GetUser returns the user owning accessToken, validating it with GoTrue.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*domain.IdentityUser, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetUser")
	defer span.End()

	body, err := c.exec(authService, func() ([]byte, error) {
		resp, err := c.send(ctx, http.MethodGet, c.authURL("user"), nil, http.Header{
			"Authorization": {"Bearer " + accessToken},
		})
		if err != nil {
			return nil, err
		}
		return resp.body, nil
	})
	if err != nil {
		return nil, asUnauthorized(err, "Sessão expirada")
	}

	var user domain.IdentityUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, &domain.ErrExternalService{Service: authService, Err: fmt.Errorf("decode user: %w", err)}
	}
	if user.ID == "" {
		return nil, &domain.ErrUnauthorized{Message: "Sessão expirada"}
	}
	return &user, nil
}

// SignOut revokes accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	ctx, span := tracer.Start(ctx, "Supabase.SignOut")
	defer span.End()

	_, err := c.exec(authService, func() ([]byte, error) {
		_, err := c.send(ctx, http.MethodPost, c.authURL("logout"), nil, http.Header{
			"Authorization": {"Bearer " + accessToken},
		})
		return nil, err
	})
	return err
}
