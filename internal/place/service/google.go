package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jep-hq/tools/internal/config"
	"github.com/jep-hq/tools/internal/observability/tracing"
	"github.com/jep-hq/tools/internal/place/domain"
)

// detailFields is the field mask requested from the Places API.
var detailFields = []string{
	"name",
	"displayName",
	"formattedAddress",
	"location",
	"rating",
	"reviews",
	"photos",
}

type googleClient struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// NewGoogleClient builds the Places API details client. The base URL is
// overridable so tests can point it at a local server.
func NewGoogleClient(cfg config.Config) domain.Client {
	return &googleClient{
		http:    tracing.WrapHTTPClient(&http.Client{Timeout: 10 * time.Second}),
		baseURL: strings.TrimRight(cfg.Google.PlacesBaseURL, "/"),
		apiKey:  cfg.Google.APIKey,
	}
}

func (c *googleClient) Details(ctx context.Context, placeID string) (*domain.Details, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: GOOGLE_API_KEY is not configured", domain.ErrUpstream)
	}

	endpoint := fmt.Sprintf("%s/places/%s", c.baseURL, url.PathEscape(placeID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	q.Set("fields", strings.Join(detailFields, ","))
	req.URL.RawQuery = q.Encode()

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrPlaceNotFound
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d", domain.ErrUpstream, resp.StatusCode)
	}

	var details domain.Details
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrUpstream, err)
	}
	return &details, nil
}
