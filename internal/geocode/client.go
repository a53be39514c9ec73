// Package geocode provides a reverse-geocoding client for the Nominatim
// /reverse endpoint. Given a latitude/longitude it returns the display
// address and the region (state) field used to pick certificate artwork.
//
// Nominatim's usage policy requires an identifying User-Agent and at most
// one request per second; a certificate session makes a single lookup.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the public OpenStreetMap Nominatim instance.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"

	// DefaultUserAgent identifies this tool to Nominatim.
	DefaultUserAgent = "civic-certificate/1.0"

	// defaultTimeout is the HTTP client timeout for lookups.
	defaultTimeout = 15 * time.Second
)

// Place is the subset of a reverse-geocoding response the certificate uses.
type Place struct {
	DisplayName string
	Region      string
	Country     string
}

// Client calls the Nominatim reverse endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	language   string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a self-hosted Nominatim.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the HTTP client timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLanguage sets the accept-language parameter (e.g. "en").
func WithLanguage(lang string) Option {
	return func(c *Client) {
		if lang != "" {
			c.language = lang
		}
	}
}

// NewClient creates a Nominatim client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    DefaultBaseURL,
		userAgent:  DefaultUserAgent,
		language:   "en",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is returned for non-2xx responses and Nominatim error bodies.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("nominatim error (status %d): %s", e.StatusCode, e.Message)
	}
	return "nominatim error: " + e.Message
}

// reverseResponse is the jsonv2 /reverse payload.
type reverseResponse struct {
	DisplayName string         `json:"display_name"`
	Address     map[string]any `json:"address"`
	Error       string         `json:"error,omitempty"`
}

// regionKeys are tried in order; Nominatim uses different keys for the
// first-level subdivision depending on the country.
var regionKeys = []string{"state", "state_district", "region", "province", "territory"}

// Reverse looks up the address of a coordinate.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (*Place, error) {
	params := url.Values{
		"format":         {"jsonv2"},
		"lat":            {strconv.FormatFloat(lat, 'f', 6, 64)},
		"lon":            {strconv.FormatFloat(lon, 'f', 6, 64)},
		"addressdetails": {"1"},
	}
	if c.language != "" {
		params.Set("accept-language", c.language)
	}

	startTime := time.Now()
	log.Debug().Float64("lat", lat).Float64("lon", lon).Msg("Nominatim reverse request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		log.Debug().Int("statusCode", 0).Dur("duration", duration).Err(err).Msg("Nominatim response")
		return nil, fmt.Errorf("reverse geocode request: %w", err)
	}
	defer httpResp.Body.Close()

	log.Debug().Int("statusCode", httpResp.StatusCode).Dur("duration", duration).Msg("Nominatim response")

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &APIError{StatusCode: httpResp.StatusCode, Message: truncate(string(body), 200)}
	}

	var resp reverseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w (body: %s)", err, truncate(string(body), 200))
	}
	if resp.Error != "" {
		return nil, &APIError{Message: resp.Error}
	}

	place := &Place{
		DisplayName: resp.DisplayName,
		Region:      firstString(resp.Address, regionKeys...),
		Country:     firstString(resp.Address, "country"),
	}

	log.Debug().
		Str("region", place.Region).
		Int("address_length", len(place.DisplayName)).
		Msg("Reverse geocode complete")

	return place, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
