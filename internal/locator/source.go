package locator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bloodconnect/bloodconnect-api/internal/models"
)

// Query describes the area a source should search.
type Query struct {
	Latitude  float64
	Longitude float64
	Location  string
}

// Source is an opaque provider of facility records for an area. Providers
// are treated as black boxes returning arrays of facilities.
type Source interface {
	Name() string
	Fetch(ctx context.Context, q Query) ([]models.Facility, error)
}

// HTTPSource queries a JSON-over-HTTP facility provider.
type HTTPSource struct {
	name    string
	baseURL string
	client  *http.Client
}

// NewHTTPSource builds a source for the given endpoint. The endpoint is
// called with lat, lon and location query parameters and must respond with
// a JSON array of facility objects.
func NewHTTPSource(name, baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPSource{
		name:    name,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name identifies the source in logs and merged results.
func (s *HTTPSource) Name() string {
	return s.name
}

// Fetch retrieves facilities around the query coordinate.
func (s *HTTPSource) Fetch(ctx context.Context, q Query) ([]models.Facility, error) {
	endpoint, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("source %s: parse url: %w", s.name, err)
	}
	params := endpoint.Query()
	params.Set("lat", strconv.FormatFloat(q.Latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(q.Longitude, 'f', -1, 64))
	params.Set("location", q.Location)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("source %s: build request: %w", s.name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source %s: fetch: %w", s.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source %s: unexpected status %d", s.name, resp.StatusCode)
	}

	var facilities []models.Facility
	if err := json.NewDecoder(resp.Body).Decode(&facilities); err != nil {
		return nil, fmt.Errorf("source %s: decode response: %w", s.name, err)
	}
	for i := range facilities {
		facilities[i].Source = s.name
	}
	return facilities, nil
}
