// Package apiclient calls the backend API on behalf of a signed-in viewer.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/louisbranch/gatehouse/internal/platform/timeouts"
	apperrors "github.com/louisbranch/gatehouse/internal/services/shell/platform/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/louisbranch/gatehouse/internal/services/shell/apiclient"
	maxErrorBody        = 4 << 10
)

// Profile is the viewer record returned by GET /v1/me.
type Profile struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Onboarded   bool   `json:"onboarded"`
}

// Client is a JSON API client rooted at BaseURL.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	tracer  trace.Tracer
}

// New builds a Client. A nil httpClient uses a client with the default API
// request timeout.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("api base url is required")
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("api base url scheme %q is not http or https", parsed.Scheme)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeouts.APIRequest}
	}
	return &Client{
		baseURL: parsed,
		http:    httpClient,
		tracer:  otel.Tracer(instrumentationName),
	}, nil
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Fetch sends a JSON request and decodes a JSON response into out. Non-2xx
// responses become typed errors classified by status.
func (c *Client) Fetch(ctx context.Context, token, method, path string, body, out any) (err error) {
	if c == nil {
		return errors.New("api client is not configured")
	}
	ctx, span := c.tracer.Start(ctx, "api "+method+" "+path, trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), reader)
	if err != nil {
		return fmt.Errorf("build api request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token = strings.TrimSpace(token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "api request", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		message := fmt.Sprintf("api %s %s returned %s", method, path, resp.Status)
		if text := strings.TrimSpace(string(detail)); text != "" {
			message += ": " + text
		}
		return apperrors.E(apperrors.KindFromStatus(resp.StatusCode), message)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode api response: %w", err)
	}
	return nil
}

func (c *Client) resolve(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	ref := *c.baseURL
	rawPath, rawQuery, _ := strings.Cut(path, "?")
	ref.Path = strings.TrimRight(c.baseURL.Path, "/") + rawPath
	ref.RawQuery = rawQuery
	return ref.String()
}

// Me returns the profile of the viewer owning token.
func (c *Client) Me(ctx context.Context, token string) (Profile, error) {
	var profile Profile
	if err := c.Fetch(ctx, token, http.MethodGet, "/v1/me", nil, &profile); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// Ping checks that the API answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.Fetch(ctx, "", http.MethodGet, "/healthz", nil, nil)
}
