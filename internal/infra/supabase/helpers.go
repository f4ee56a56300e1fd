package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ============================================================
// HTTP helpers for GET, POST, PATCH, DELETE
// ============================================================

type response struct {
	status int
	header http.Header
	body   []byte
}

// send executes an authenticated request. The service role key is used as
// bearer unless header already carries an Authorization value. Non-2xx
// answers become *APIError.
func (c *Client) send(ctx context.Context, method, url string, body io.Reader, header http.Header) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.Error(err),
		)
		return nil, err
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", req.URL.Path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	data, err := readBody(resp)
	if err != nil {
		c.logger.Error("supabase: failed to read response body",
			zap.String("method", method),
			zap.String("path", req.URL.Path),
			zap.Error(err),
		)
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(data)),
		)
		return nil, &APIError{Status: resp.StatusCode, Body: string(data)}
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
	)
	return &response{status: resp.StatusCode, header: resp.Header, body: data}, nil
}

// doRequest executes a body-less PostgREST request. A 404 or 204 yields
// (nil, nil).
func (c *Client) doRequest(ctx context.Context, method, path string) ([]byte, error) {
	resp, err := c.send(ctx, method, c.restURL(path), nil, nil)
	if err != nil {
		if apiErr, ok := err.(*APIError); ok && apiErr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	if resp.status == http.StatusNoContent {
		return nil, nil
	}
	return resp.body, nil
}

func (c *Client) doPost(ctx context.Context, table string, data map[string]any) ([]byte, error) {
	return c.doWithBody(ctx, http.MethodPost, table, data)
}

func (c *Client) doPatch(ctx context.Context, path string, data map[string]any) ([]byte, error) {
	return c.doWithBody(ctx, http.MethodPatch, path, data)
}

func (c *Client) doWithBody(ctx context.Context, method, path string, data map[string]any) ([]byte, error) {
	jsonBody, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, method, c.restURL(path), bytes.NewReader(jsonBody), http.Header{
		"Prefer": {"return=representation"},
	})
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}

func (c *Client) doDelete(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodDelete, c.restURL(path), nil, http.Header{
		"Prefer": {"return=representation"},
	})
	if err != nil {
		return nil, err
	}
	return resp.body, nil
}

// doCount asks PostgREST for an exact row count without fetching rows.
func (c *Client) doCount(ctx context.Context, path string) (int, error) {
	resp, err := c.send(ctx, http.MethodHead, c.restURL(path), nil, http.Header{
		"Prefer": {"count=exact"},
	})
	if err != nil {
		return 0, err
	}
	return parseContentRange(resp.header.Get("Content-Range"))
}

// parseContentRange reads the total from "0-24/1234" or "*/0".
func parseContentRange(v string) (int, error) {
	_, total, ok := strings.Cut(v, "/")
	if !ok || total == "*" {
		return 0, fmt.Errorf("supabase: missing count in Content-Range %q", v)
	}
	n, err := strconv.Atoi(total)
	if err != nil {
		return 0, fmt.Errorf("supabase: bad Content-Range %q: %w", v, err)
	}
	return n, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isEmpty(body []byte) bool {
	s := strings.TrimSpace(string(body))
	return s == "" || s == "[]" || s == "null"
}
