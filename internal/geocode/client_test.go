package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"unicode/utf8"
)

// newTestClient creates a Client pointing at a test HTTP server.
func newTestClient(server *httptest.Server) *Client {
	return NewClient(WithBaseURL(server.URL), WithHTTPClient(server.Client()), WithUserAgent("test-agent"))
}

func TestReverse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/reverse" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("lat") != "30.733300" || q.Get("lon") != "76.779400" {
			t.Errorf("unexpected coordinates: lat=%s lon=%s", q.Get("lat"), q.Get("lon"))
		}
		if q.Get("format") != "jsonv2" {
			t.Errorf("unexpected format: %s", q.Get("format"))
		}
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("unexpected User-Agent: %s", r.Header.Get("User-Agent"))
		}
		w.Write([]byte(`{
			"display_name": "123 Main St, Chandigarh, Punjab, India",
			"address": {"road": "Main St", "state": "Punjab", "country": "India"}
		}`))
	}))
	defer server.Close()

	place, err := newTestClient(server).Reverse(context.Background(), 30.7333, 76.7794)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if place.DisplayName != "123 Main St, Chandigarh, Punjab, India" {
		t.Errorf("unexpected display name: %s", place.DisplayName)
	}
	if place.Region != "Punjab" {
		t.Errorf("expected region Punjab, got %s", place.Region)
	}
	if place.Country != "India" {
		t.Errorf("expected country India, got %s", place.Country)
	}
}

func TestReverseRegionFallbackKeys(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"display_name": "Leh", "address": {"state_district": "Leh", "region": "Ladakh"}}`))
	}))
	defer server.Close()

	place, err := newTestClient(server).Reverse(context.Background(), 34.15, 77.57)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if place.Region != "Leh" {
		t.Errorf("expected state_district to win over region, got %s", place.Region)
	}
}

func TestReverseErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "Unable to geocode"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server).Reverse(context.Background(), 0, 0)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Message != "Unable to geocode" {
		t.Errorf("unexpected message: %s", apiErr.Message)
	}
}

func TestReverseHTTPStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(server).Reverse(context.Background(), 1, 2)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 APIError, got %v", err)
	}
}

func TestReverseHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := newTestClient(server).Reverse(ctx, 1, 2); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc..."},
		{"héllo", 2, "h..."},
		{"日本語", 4, "日..."},
		{"日本語", 6, "日本..."},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.n)
		if got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) split a rune: %q", tt.in, tt.n, got)
		}
	}
}
