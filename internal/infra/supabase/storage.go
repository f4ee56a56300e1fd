package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// DocumentStore implementation — Storage API
// ============================================================

const storageService = "supabase/storage"

// PublicURL returns the public address of an object in the bucket.
func (c *Client) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, key)
}

// Upload stores body under key without overwriting and returns its public URL.
func (c *Client) Upload(ctx context.Context, key, contentType string, body []byte) (string, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Upload")
	defer span.End()
	span.SetAttributes(
		attribute.String("storage.key", key),
		attribute.Int("storage.size", len(body)),
	)

	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, key)
	_, err := c.exec(storageService, func() ([]byte, error) {
		_, err := c.send(ctx, http.MethodPost, url, bytes.NewReader(body), http.Header{
			"Content-Type":  {contentType},
			"Cache-Control": {"3600"},
			"X-Upsert":      {"false"},
		})
		return nil, err
	})
	if err != nil {
		return "", err
	}
	return c.PublicURL(key), nil
}

// Delete removes an object. Used only for orphan cleanup.
func (c *Client) Delete(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteObject")
	defer span.End()
	span.SetAttributes(attribute.String("storage.key", key))

	payload, err := json.Marshal(map[string][]string{"prefixes": {key}})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/storage/v1/object/%s", c.baseURL, c.bucket)
	_, err = c.exec(storageService, func() ([]byte, error) {
		_, err := c.send(ctx, http.MethodDelete, url, bytes.NewReader(payload), nil)
		return nil, err
	})
	return err
}
