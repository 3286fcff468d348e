// Package geocode resolves coordinates into street addresses and coordinates
// the concurrent lookups fired while an operator drags map anchors around.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"campus_wayfinder/internal/geo"
)

var (
	// ErrNoResult means the provider answered but had no address for the point.
	ErrNoResult = errors.New("geocode: no result")
	// ErrNotConfigured is returned by providers built without an API key.
	ErrNotConfigured = errors.New("geocode: provider not configured")
)

// Geocoder resolves a coordinate to a human-readable address.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, p geo.Point) (string, error)
}

// PlaceSearcher returns ranked place predictions for a partial query.
type PlaceSearcher interface {
	Autocomplete(ctx context.Context, query string, bias *geo.Point) ([]Prediction, error)
}

// GeocoderFunc adapts a function to the Geocoder interface.
type GeocoderFunc func(ctx context.Context, p geo.Point) (string, error)

func (f GeocoderFunc) ReverseGeocode(ctx context.Context, p geo.Point) (string, error) {
	return f(ctx, p)
}

// Prediction is one autocomplete suggestion.
type Prediction struct {
	PlaceID     string `json:"place_id"`
	Description string `json:"description"`
}

const (
	defaultBaseURL    = "https://maps.googleapis.com/maps/api"
	autocompleteBiasM = 5000
)

// GoogleClient talks to the Google Maps geocoding and places web services.
type GoogleClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a GoogleClient.
type Option func(*GoogleClient)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(g *GoogleClient) { g.baseURL = u }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *GoogleClient) { g.httpClient = c }
}

func NewGoogleClient(apiKey string, opts ...Option) *GoogleClient {
	g := &GoogleClient{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
	} `json:"results"`
}

type autocompleteResponse struct {
	Status       string       `json:"status"`
	ErrorMessage string       `json:"error_message"`
	Predictions  []Prediction `json:"predictions"`
}

// ReverseGeocode returns the formatted address of the closest result.
func (g *GoogleClient) ReverseGeocode(ctx context.Context, p geo.Point) (string, error) {
	if g.apiKey == "" {
		return "", ErrNotConfigured
	}

	q := url.Values{}
	q.Set("latlng", p.String())
	q.Set("key", g.apiKey)

	var resp geocodeResponse
	if err := g.get(ctx, "/geocode/json", q, &resp); err != nil {
		return "", err
	}

	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return "", ErrNoResult
	default:
		return "", fmt.Errorf("geocode: status %s: %s", resp.Status, resp.ErrorMessage)
	}
	if len(resp.Results) == 0 || resp.Results[0].FormattedAddress == "" {
		return "", ErrNoResult
	}
	return resp.Results[0].FormattedAddress, nil
}

// Autocomplete returns place predictions, biased towards bias when given.
func (g *GoogleClient) Autocomplete(ctx context.Context, query string, bias *geo.Point) ([]Prediction, error) {
	if g.apiKey == "" {
		return nil, ErrNotConfigured
	}

	q := url.Values{}
	q.Set("input", query)
	q.Set("key", g.apiKey)
	if bias != nil {
		q.Set("location", bias.String())
		q.Set("radius", strconv.Itoa(autocompleteBiasM))
	}

	var resp autocompleteResponse
	if err := g.get(ctx, "/place/autocomplete/json", q, &resp); err != nil {
		return nil, err
	}

	switch resp.Status {
	case "OK":
		return resp.Predictions, nil
	case "ZERO_RESULTS":
		return []Prediction{}, nil
	default:
		return nil, fmt.Errorf("autocomplete: status %s: %s", resp.Status, resp.ErrorMessage)
	}
}

func (g *GoogleClient) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	res, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s: unexpected status %d", path, res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
