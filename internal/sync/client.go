package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/medetbek/worklens/internal/config"
)

// ErrNotAuthenticated means there is no usable credential: either none was
// stored, or the stored pair failed its one refresh attempt.
var ErrNotAuthenticated = errors.New("not authenticated")

// TokenSource supplies and persists the credential pair. *config.Config
// satisfies it.
type TokenSource interface {
	Tokens() config.Credentials
	SaveTokens(config.Credentials) error
	ClearTokens() error
}

// Client talks to the remote sync endpoint. Every request carries a bearer
// access token; a 401 triggers exactly one refresh and one retry.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     *zap.Logger
}

// NewClient builds the API client.
func NewClient(baseURL string, tokens TokenSource, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 2 * time.Minute},
		tokens:  tokens,
		log:     log,
	}
}

// Authenticated reports whether a stored access token exists. It says
// nothing about validity; the server decides that.
func (c *Client) Authenticated() bool {
	return c.tokens.Tokens().AccessToken != ""
}

// UploadBatch POSTs one batch of sessions and screenshots.
func (c *Client) UploadBatch(ctx context.Context, batch batchRequest) (*batchResponse, error) {
	creds := c.tokens.Tokens()
	if creds.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch: %w", err)
	}

	resp, err := c.post(ctx, "/v1/sync/batch", creds.AccessToken, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		token, err := c.refresh(ctx, creds.RefreshToken)
		if err != nil {
			return nil, err
		}
		c.log.Info("access token refreshed, retrying batch")
		resp, err = c.post(ctx, "/v1/sync/batch", token, body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			return nil, ErrNotAuthenticated
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("sync endpoint returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out batchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode batch response: %w", err)
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path, token string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return c.http.Do(req)
}

// refresh trades the refresh token for a new pair and persists it. On any
// failure the stored credentials are cleared so the next attempt reports
// not-authenticated instead of looping.
func (c *Client) refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		c.clear()
		return "", ErrNotAuthenticated
	}

	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/auth/refresh", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.clear()
		return "", fmt.Errorf("token refresh failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.clear()
		return "", ErrNotAuthenticated
	}

	var out refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.AccessToken == "" {
		c.clear()
		return "", ErrNotAuthenticated
	}

	if err := c.tokens.SaveTokens(config.Credentials{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
	}); err != nil {
		c.log.Warn("could not persist refreshed tokens", zap.Error(err))
	}
	return out.AccessToken, nil
}

func (c *Client) clear() {
	if err := c.tokens.ClearTokens(); err != nil {
		c.log.Warn("could not clear stored credentials", zap.Error(err))
	}
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
