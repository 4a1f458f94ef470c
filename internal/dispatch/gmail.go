package dispatch

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GmailConfig configures the programmatic Gmail channel.
type GmailConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	TokenURL     string
	SendURL      string

	AttachmentTimeout time.Duration
}

// Configured reports whether the full OAuth credential triple is present.
func (c GmailConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// GmailChannel delivers through the Gmail REST API: refresh-token grant,
// best-effort attachment fetch, MIME assembly, authenticated send.
type GmailChannel struct {
	config  GmailConfig
	client  *http.Client
	fetcher *attachmentFetcher
	logger  *slog.Logger
}

// NewGmailChannel creates the programmatic channel.
func NewGmailChannel(cfg GmailConfig, logger *slog.Logger) *GmailChannel {
	if logger == nil {
		logger = slog.Default()
	}
	return &GmailChannel{
		config:  cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		fetcher: newAttachmentFetcher(cfg.AttachmentTimeout, logger),
		logger:  logger,
	}
}

// Name implements Channel.
func (c *GmailChannel) Name() string { return "gmail" }

// Send implements Channel. With credentials absent the channel reports
// unavailable without touching the network.
func (c *GmailChannel) Send(ctx context.Context, msg *Message) (*Result, error) {
	if !c.config.Configured() {
		return &Result{Outcome: OutcomeUnavailable}, nil
	}

	token, err := c.refreshAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	attachments := c.fetcher.fetchAll(ctx, msg.Attachments)
	raw := buildMIME(msg, attachments)

	if err := c.send(ctx, token, raw); err != nil {
		return nil, err
	}

	c.logger.Info("approval mail sent via gmail",
		"to", msg.To,
		"attachments", len(attachments),
	)
	return &Result{Outcome: OutcomeDelivered}, nil
}

// refreshAccessToken exchanges the refresh token for a short-lived access
// token.
func (c *GmailChannel) refreshAccessToken(ctx context.Context) (string, error) {
	form := url.Values{
		"client_id":     {c.config.ClientID},
		"client_secret": {c.config.ClientSecret},
		"refresh_token": {c.config.RefreshToken},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access token")
	}

	return payload.AccessToken, nil
}

// send submits the base64url-encoded raw message to the send endpoint.
func (c *GmailChannel) send(ctx context.Context, token string, raw []byte) error {
	body, err := json.Marshal(map[string]string{
		"raw": base64.URLEncoding.EncodeToString(raw),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.SendURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("send endpoint returned status %d: %s", resp.StatusCode, respBody)
	}

	return nil
}
