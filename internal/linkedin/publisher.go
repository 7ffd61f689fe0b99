// Package linkedin is the REST client the publish pipeline calls to
// create posts. It deliberately knows nothing about scheduling: content
// and resolved media URLs in, a share URN out.
package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultBaseURL = "https://api.linkedin.com"
	ugcPostsPath   = "/v2/ugcPosts"
	postURLFormat  = "https://www.linkedin.com/feed/update/%s/"
)

// Request carries everything a publish call needs.
type Request struct {
	AccessToken string
	AuthorID    string // LinkedIn member ID
	Content     string
	MediaURLs   []string
}

// Result is the successful outcome of a publish call.
type Result struct {
	PostID  string // share URN, e.g. urn:li:share:123
	PostURL string
}

// Publisher posts content to LinkedIn on behalf of a user.
type Publisher interface {
	Publish(ctx context.Context, req Request) (Result, error)
}

// Client implements Publisher against the LinkedIn REST API.
type Client struct {
	baseURL string
	timeout time.Duration
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (tests).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient creates a LinkedIn API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Publish creates a UGC post. Credential rejections (401/403) surface as
// ErrCredentialRejected; other API and transport failures are transient
// from the caller's point of view.
func (c *Client) Publish(ctx context.Context, req Request) (Result, error) {
	body, err := json.Marshal(buildUGCPost(req))
	if err != nil {
		return Result{}, fmt.Errorf("linkedin: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ugcPostsPath, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("linkedin: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	// A per-request token source keeps the http.Client shareable across
	// users while still attaching the right Bearer header.
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: req.AccessToken,
	}))
	httpClient.Timeout = c.timeout

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return Result{}, errors.Join(ErrPublishFailed, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Result{}, fmt.Errorf("%w: status %d: %s", ErrCredentialRejected, resp.StatusCode, respBody)
	case resp.StatusCode >= 300:
		return Result{}, fmt.Errorf("%w: status %d: %s", ErrPublishFailed, resp.StatusCode, respBody)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil || out.ID == "" {
		return Result{}, fmt.Errorf("%w: unexpected response: %s", ErrPublishFailed, respBody)
	}

	return Result{
		PostID:  out.ID,
		PostURL: fmt.Sprintf(postURLFormat, out.ID),
	}, nil
}

// buildUGCPost shapes the request the way the ugcPosts endpoint expects.
// Media beyond the first URL rides along as additional article media.
func buildUGCPost(req Request) map[string]any {
	shareContent := map[string]any{
		"shareCommentary": map[string]any{
			"text": req.Content,
		},
		"shareMediaCategory": "NONE",
	}

	if len(req.MediaURLs) > 0 {
		media := make([]map[string]any, len(req.MediaURLs))
		for i, url := range req.MediaURLs {
			media[i] = map[string]any{
				"status":      "READY",
				"originalUrl": url,
			}
		}
		shareContent["shareMediaCategory"] = "ARTICLE"
		shareContent["media"] = media
	}

	return map[string]any{
		"author":         "urn:li:person:" + req.AuthorID,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": shareContent,
		},
		"visibility": map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}
}
