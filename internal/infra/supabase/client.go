// Package supabase provides a client for Supabase (PostgREST, GoTrue Auth
// and Storage). It is the real data backend for leads, affiliates, admins
// and uploaded bills.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"
	"github.com/boddenberg/solar-leads-bfa/internal/infra/resilience"
	"github.com/boddenberg/solar-leads-bfa/internal/port"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

var (
	_ port.LeadStore        = (*Client)(nil)
	_ port.AffiliateStore   = (*Client)(nil)
	_ port.AdminStore       = (*Client)(nil)
	_ port.IdentityProvider = (*Client)(nil)
	_ port.DocumentStore    = (*Client)(nil)
)

// Client wraps HTTP calls to the Supabase APIs.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	bucket         string
	cb             *gobreaker.CircuitBreaker
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey, bucket string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	if apiKey == "" {
		apiKey = serviceRoleKey
	}
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		bucket:         bucket,
		cb:             cb,
		cfg:            cfg,
		logger:         logger,
	}
}

// APIError is a non-2xx answer from any Supabase API. Body is the raw
// response so the caller can surface the upstream message.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("supabase returned status %d: %s", e.Status, e.Body)
}

// BreakerSuccess reports whether err should count as healthy for the
// circuit breaker. Client errors and cancellations are not upstream faults.
func BreakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError
}

// read runs an idempotent GET through the breaker with retry.
func (c *Client) read(ctx context.Context, service, path string) ([]byte, error) {
	var body []byte
	_, err := c.cb.Execute(func() (any, error) {
		return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			b, err := c.doRequest(ctx, http.MethodGet, path)
			if err != nil {
				var apiErr *APIError
				if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
					return resilience.Permanent(err)
				}
				return err
			}
			body = b
			return nil
		})
	})
	if err != nil {
		return nil, c.wrapErr(service, err)
	}
	return body, nil
}

// exec runs a write exactly once through the breaker.
func (c *Client) exec(service string, fn func() ([]byte, error)) ([]byte, error) {
	out, err := c.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		return nil, c.wrapErr(service, err)
	}
	body, _ := out.([]byte)
	return body, nil
}

func (c *Client) wrapErr(service string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.Error("supabase: circuit open", zap.String("service", service))
		return &domain.ErrCircuitOpen{Service: service}
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
		return &domain.ErrConflict{Message: apiErr.Body}
	}
	return &domain.ErrExternalService{Service: service, Err: err}
}

func (c *Client) restURL(path string) string {
	return fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)
}
