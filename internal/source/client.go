// Package source implements the client for the legacy (v1) store: session
// authentication, connection health, and read-only table access.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotConnected indicates a read was attempted before Connect succeeded.
var ErrNotConnected = errors.New("legacy client not initialized")

// tokenExpirySlack forces re-authentication shortly before the access token lapses.
const tokenExpirySlack = time.Minute

// Status is the externally visible connection state.
type Status struct {
	IsConnected bool
	LastCheck   time.Time
	Email       string
}

// Option configures optional behaviour for the Client.
type Option func(*Client)

// WithLogger overrides the logger used to report connection events.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithHealthWindow overrides the staleness window between health probes.
func WithHealthWindow(d time.Duration) Option {
	return func(c *Client) { c.healthWindow = d }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client talks to the legacy store. One Client backs one migration run; the
// HTTP client is reused across re-authentication.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	logger       *log.Logger
	healthWindow time.Duration
	now          func() time.Time

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
	connected   bool
	lastCheck   time.Time
	email       string
	password    string
}

// New constructs a Client for the legacy store at baseURL.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		httpClient:   &http.Client{},
		logger:       log.New(log.Writer(), "[source] ", log.LstdFlags),
		healthWindow: 5 * time.Minute,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// Connect authenticates against the legacy store with email/password
// credentials and retains them in memory for transparent reconnection.
// Calling Connect on an already-connected client reuses the HTTP client.
func (c *Client) Connect(ctx context.Context, email, password string) error {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/v1/token?grant_type=password", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.markDisconnected()
		return fmt.Errorf("legacy authentication failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.markDisconnected()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("legacy authentication failed: status %d: %s", resp.StatusCode, msg)
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		c.markDisconnected()
		return fmt.Errorf("legacy authentication failed: %w", err)
	}

	c.mu.Lock()
	c.accessToken = token.AccessToken
	c.tokenExpiry = c.parseExpiry(token)
	c.connected = true
	c.lastCheck = c.now()
	c.email = email
	c.password = password
	c.mu.Unlock()

	c.logger.Printf("connected to legacy store as %s", email)
	return nil
}

// parseExpiry reads the exp claim from the access token without verifying the
// signature; the token is only inspected for refresh scheduling, never trusted.
func (c *Client) parseExpiry(token tokenResponse) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token.AccessToken, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	if token.ExpiresIn > 0 {
		return c.now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}
	return time.Time{}
}

// EnsureHealthy verifies the session is usable before a remote read or write.
// An unauthenticated client fails fast. If the last successful check is older
// than the health window, or the access token is about to expire, a count
// probe is issued; on probe failure exactly one re-authentication is attempted
// with the retained credentials.
func (c *Client) EnsureHealthy(ctx context.Context) error {
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return ErrNotConnected
	}
	stale := c.now().Sub(c.lastCheck) > c.healthWindow
	expiring := !c.tokenExpiry.IsZero() && c.now().After(c.tokenExpiry.Add(-tokenExpirySlack))
	email, password := c.email, c.password
	c.mu.Unlock()

	if !stale && !expiring {
		return nil
	}

	if expiring {
		c.logger.Printf("access token near expiry, re-authenticating")
		return c.reconnect(ctx, email, password)
	}

	if _, err := c.count(ctx, "activities"); err != nil {
		c.logger.Printf("health probe failed, attempting reconnection: %v", err)
		return c.reconnect(ctx, email, password)
	}

	c.mu.Lock()
	c.lastCheck = c.now()
	c.mu.Unlock()
	return nil
}

func (c *Client) reconnect(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		c.markDisconnected()
		return errors.New("cannot reconnect: credentials not stored")
	}
	if err := c.Connect(ctx, email, password); err != nil {
		c.markDisconnected()
		return fmt.Errorf("connection health check failed: %w", err)
	}
	return nil
}

// Close signs out of the legacy store and clears all retained state, including
// credentials, regardless of whether the sign-out call succeeds.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	token := c.accessToken
	connected := c.connected
	c.mu.Unlock()

	var err error
	if connected && token != "" {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/logout", nil)
		if reqErr == nil {
			req.Header.Set("apikey", c.apiKey)
			req.Header.Set("Authorization", "Bearer "+token)
			resp, doErr := c.httpClient.Do(req)
			if doErr != nil {
				err = doErr
			} else {
				resp.Body.Close()
			}
		}
	}
	if err != nil {
		c.logger.Printf("sign-out failed: %v", err)
	}

	c.mu.Lock()
	c.accessToken = ""
	c.tokenExpiry = time.Time{}
	c.connected = false
	c.lastCheck = c.now()
	c.email = ""
	c.password = ""
	c.mu.Unlock()
	return err
}

// Status reports the current connection state. Credentials are never exposed.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{IsConnected: c.connected, LastCheck: c.lastCheck, Email: c.email}
}

func (c *Client) markDisconnected() {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}
