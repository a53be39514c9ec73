package share

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

const (
	// defaultGraphURL is the Instagram Graph API base URL.
	defaultGraphURL = "https://graph.instagram.com/v22.0"

	defaultGraphTimeout = 30 * time.Second
)

// Instagram publishes single-image posts through the Graph API. Publishing
// is two calls: create a media container from a public image URL, then
// publish that container.
type Instagram struct {
	httpClient  *http.Client
	accessToken string
	userID      string
	baseURL     string
}

// NewInstagram creates a Graph API client for one account.
func NewInstagram(accessToken, userID string) *Instagram {
	return &Instagram{
		httpClient:  &http.Client{Timeout: defaultGraphTimeout},
		accessToken: accessToken,
		userID:      userID,
		baseURL:     defaultGraphURL,
	}
}

type graphResponse struct {
	ID    string      `json:"id"`
	Error *graphError `json:"error,omitempty"`
}

type graphError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	FBTraceID string `json:"fbtrace_id,omitempty"`
}

// PostImage creates and publishes a post, returning the media ID.
func (c *Instagram) PostImage(ctx context.Context, imageURL, caption string) (string, error) {
	containerID, err := c.createContainer(ctx, imageURL, caption)
	if err != nil {
		return "", err
	}
	return c.publish(ctx, containerID)
}

func (c *Instagram) createContainer(ctx context.Context, imageURL, caption string) (string, error) {
	params := url.Values{
		"image_url":    {imageURL},
		"caption":      {caption},
		"access_token": {c.accessToken},
	}
	resp, err := c.postForm(ctx, fmt.Sprintf("/%s/media", c.userID), params)
	if err != nil {
		return "", fmt.Errorf("create image container: %w", err)
	}
	log.Debug().Str("containerId", resp.ID).Msg("Instagram container created")
	return resp.ID, nil
}

func (c *Instagram) publish(ctx context.Context, containerID string) (string, error) {
	params := url.Values{
		"creation_id":  {containerID},
		"access_token": {c.accessToken},
	}
	resp, err := c.postForm(ctx, fmt.Sprintf("/%s/media_publish", c.userID), params)
	if err != nil {
		return "", fmt.Errorf("publish container %s: %w", containerID, err)
	}
	log.Info().Str("containerId", containerID).Str("postId", resp.ID).Msg("Certificate published to Instagram")
	return resp.ID, nil
}

func (c *Instagram) postForm(ctx context.Context, endpoint string, params url.Values) (*graphResponse, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint,
		strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	log.Debug().
		Str("path", endpoint).
		Int("statusCode", httpResp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Instagram API response")

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp graphResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w (body: %s)", err, truncate(string(body), 200))
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("Instagram API error: %s (type: %s, code: %d)",
			resp.Error.Message, resp.Error.Type, resp.Error.Code)
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("unexpected response: no ID returned (body: %s)", truncate(string(body), 200))
	}
	return &resp, nil
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
