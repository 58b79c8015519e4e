// Package remote talks to the paysplit settings service over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Veraticus/paysplit/internal/common"
	"github.com/Veraticus/paysplit/internal/model"
	"github.com/Veraticus/paysplit/internal/service"
)

// SettingsPath is the settings resource on the remote service.
const SettingsPath = "/settings"

const maxBodyBytes = 1 << 20

var (
	// ErrStaleVersion means the service already holds a newer save.
	ErrStaleVersion = errors.New("remote holds newer settings")
	// ErrBadResponse means the service answered with something unusable.
	ErrBadResponse = errors.New("unexpected response from settings service")
)

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Retry   service.RetryOptions
}

// Client implements service.RemoteStore.
type Client struct {
	httpClient *http.Client
	endpoint   string
	retry      service.RetryOptions
}

// NewClient creates a settings client for cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("%w: remote base URL is required", common.ErrMissingConfig)
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: remote base URL %q", common.ErrInvalidConfig, cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		endpoint: base + SettingsPath,
		retry:    cfg.Retry,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Fetch retrieves the stored settings, retrying transient failures.
func (c *Client) Fetch(ctx context.Context) (model.Settings, error) {
	var out model.Settings
	err := common.WithRetry(ctx, func(ctx context.Context) error {
		s, err := c.fetchOnce(ctx)
		if err != nil {
			return err
		}
		out = s
		return nil
	}, c.retry)
	return out, err
}

func (c *Client) fetchOnce(ctx context.Context) (model.Settings, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return model.Settings{}, common.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	body, status, err := c.do(req)
	if err != nil {
		return model.Settings{}, err
	}
	if err := statusError(status, body); err != nil {
		return model.Settings{}, err
	}

	var s model.Settings
	if err := json.Unmarshal(body, &s); err != nil {
		return model.Settings{}, common.Permanent(fmt.Errorf("%w: %v", ErrBadResponse, err))
	}
	return s, nil
}

// Push stores settings remotely and returns the service's message. It is
// not retried: a late duplicate would race newer saves.
func (c *Client) Push(ctx context.Context, settings model.Settings) (string, error) {
	payload, err := json.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("failed to marshal settings: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, status, err := c.do(req)
	if err != nil {
		return "", err
	}
	if status == http.StatusConflict {
		return "", fmt.Errorf("%w: version %d", ErrStaleVersion, settings.Version)
	}
	if err := statusError(status, body); err != nil {
		return "", err
	}

	var ack struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &ack); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return ack.Message, nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", common.ErrRemoteUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func statusError(status int, body []byte) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w (status %d)", common.ErrRateLimit, status)
	case status >= 500:
		return fmt.Errorf("%w (status %d): %s", common.ErrRemoteUnavailable, status, strings.TrimSpace(string(body)))
	default:
		return common.Permanent(fmt.Errorf("%w (status %d): %s", ErrBadResponse, status, strings.TrimSpace(string(body))))
	}
}
