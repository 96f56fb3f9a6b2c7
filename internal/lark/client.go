// Package lark syncs article summaries into a Lark (Feishu) Bitable table.
package lark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ryosukesatoh/rss-digest/internal/retry"
)

const (
	tokenPath = "/open-apis/auth/v3/tenant_access_token/internal"
	pageSize  = 500
	// MaxBatchSize is the largest batch_create request the API accepts.
	MaxBatchSize = 500
	// tokens are refreshed this long before the server-side expiry
	tokenSafetyMargin = 5 * time.Minute
)

// APIError is a well-formed response whose code is not 0.
type APIError struct {
	Op   string
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lark: %s failed: code=%d msg=%s", e.Op, e.Code, e.Msg)
}

// Client is a minimal Bitable API client with a cached tenant access token.
type Client struct {
	host      string
	appID     string
	appSecret string
	http      *http.Client
	retryCfg  retry.Config
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

func NewClient(host, appID, appSecret string, logger *slog.Logger) *Client {
	return &Client{
		host:      strings.TrimRight(host, "/"),
		appID:     appID,
		appSecret: appSecret,
		http:      &http.Client{Timeout: 30 * time.Second},
		retryCfg:  retry.DefaultConfig(),
		logger:    logger,
		now:       time.Now,
	}
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type tokenResponse struct {
	Code              int    `json:"code"`
	Msg               string `json:"msg"`
	TenantAccessToken string `json:"tenant_access_token"`
	Expire            int    `json:"expire"`
}

// accessToken returns the cached tenant token, fetching a new one when it is
// missing or within the safety margin of expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	token, exp := c.token, c.expiresAt
	c.mu.RUnlock()
	if token != "" && c.now().Before(exp) {
		return token, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}

	payload, err := json.Marshal(map[string]string{"app_id": c.appID, "app_secret": c.appSecret})
	if err != nil {
		return "", fmt.Errorf("lark: failed to marshal token request: %w", err)
	}

	var tr tokenResponse
	err = retry.WithBackoff(ctx, c.retryCfg, func(ctx context.Context) error {
		body, err := c.send(ctx, http.MethodPost, c.host+tokenPath, payload, "")
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &tr); err != nil {
			return fmt.Errorf("lark: failed to parse token response: %w", err)
		}
		if tr.Code != 0 {
			return retry.Permanent(&APIError{Op: "get access token", Code: tr.Code, Msg: tr.Msg})
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	c.token = tr.TenantAccessToken
	c.expiresAt = c.now().Add(time.Duration(tr.Expire)*time.Second - tokenSafetyMargin)
	return c.token, nil
}

// call performs an authenticated request and decodes the data member of the
// response envelope into out.
func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, reqBody any, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var payload []byte
	if reqBody != nil {
		payload, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("lark: failed to marshal %s request: %w", op, err)
		}
	}

	endpoint := c.host + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	return retry.WithBackoff(ctx, c.retryCfg, func(ctx context.Context) error {
		body, err := c.send(ctx, method, endpoint, payload, token)
		if err != nil {
			return err
		}
		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return fmt.Errorf("lark: failed to parse %s response: %w", op, err)
		}
		if env.Code != 0 {
			return retry.Permanent(&APIError{Op: op, Code: env.Code, Msg: env.Msg})
		}
		if out != nil && len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, out); err != nil {
				return retry.Permanent(fmt.Errorf("lark: failed to decode %s data: %w", op, err))
			}
		}
		return nil
	})
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte, token string) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("lark: failed to create request: %w", err))
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lark: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("lark: failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &retry.StatusError{Op: "lark", StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

func recordsPath(appToken, tableID string) string {
	return fmt.Sprintf("/open-apis/bitable/v1/apps/%s/tables/%s/records", url.PathEscape(appToken), url.PathEscape(tableID))
}
