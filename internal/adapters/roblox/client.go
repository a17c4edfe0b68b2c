// Package roblox is a thin client over the public Roblox user APIs, used by
// the verification flow to resolve usernames and read profile descriptions
package roblox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	perr "bridgebot/internal/platform/errors"
	"bridgebot/internal/platform/logger"
)

// Options configures the client
type Options struct {
	// BaseURL overrides the API host, mainly for tests
	BaseURL string
	// LegacyBaseURL overrides the legacy username-lookup host
	LegacyBaseURL string
	// Timeout bounds each request (default 8s)
	Timeout time.Duration
	// UserAgent is sent on every request
	UserAgent string
	// HTTPClient overrides the transport when set
	HTTPClient *http.Client
}

// Client calls the Roblox user APIs
type Client struct {
	base       string
	legacyBase string
	ua         string
	http       *http.Client
	log        logger.Logger
}

// New builds a client with defaults filled in
func New(opt Options) *Client {
	if opt.BaseURL == "" {
		opt.BaseURL = "https://users.roblox.com"
	}
	if opt.LegacyBaseURL == "" {
		opt.LegacyBaseURL = "https://api.roblox.com"
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 8 * time.Second
	}
	hc := opt.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opt.Timeout}
	}
	return &Client{
		base:       opt.BaseURL,
		legacyBase: opt.LegacyBaseURL,
		ua:         opt.UserAgent,
		http:       hc,
		log:        *logger.Named("roblox"),
	}
}

// LookupID resolves a username to its numeric user id
func (c *Client) LookupID(ctx context.Context, username string) (int64, error) {
	if username == "" {
		return 0, perr.InvalidArgf("username is required")
	}
	u := fmt.Sprintf("%s/users/get-by-username?username=%s", c.legacyBase, url.QueryEscape(username))

	var out struct {
		ID           int64  `json:"Id"`
		ErrorMessage string `json:"errorMessage"`
	}
	if err := c.getJSON(ctx, u, &out); err != nil {
		return 0, err
	}
	if out.ID == 0 {
		return 0, perr.NotFoundf("roblox user %q not found", username)
	}
	return out.ID, nil
}

// Description fetches the profile description for a user id
func (c *Client) Description(ctx context.Context, userID int64) (string, error) {
	u := fmt.Sprintf("%s/v1/users/%d", c.base, userID)

	var out struct {
		Description string `json:"description"`
	}
	if err := c.getJSON(ctx, u, &out); err != nil {
		return "", err
	}
	return out.Description, nil
}

func (c *Client) getJSON(ctx context.Context, u string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnknown, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if c.ua != "" {
		req.Header.Set("User-Agent", c.ua)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "roblox api unreachable")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return perr.NotFoundf("roblox resource not found")
	case resp.StatusCode == http.StatusTooManyRequests:
		return perr.Unavailablef("roblox api rate limited")
	case resp.StatusCode >= 400:
		c.log.Warn().Int("status", resp.StatusCode).Str("url", u).Msg("roblox api error")
		return perr.Unavailablef("roblox api returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "read roblox response")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return perr.JSONErrf("decode roblox response: %v", err)
	}
	return nil
}
