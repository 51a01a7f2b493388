// Package garmin provides client functionality for interacting with the
// Garmin Connect API: daily step totals, recent activities, and the
// session lifecycle around them.
package garmin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultTimeout = 30 * time.Second

	loginEndpoint      = "/auth/login"
	stepsEndpoint      = "/usersummary-service/stats/steps/daily"
	activitiesEndpoint = "/activitylist-service/activities/search/activities"
	userEndpoint       = "/userprofile-service/userprofile"
)

// Config holds Garmin client configuration
type Config struct {
	BaseURL     string
	Email       string
	Password    string
	SessionFile string
	Timeout     time.Duration
}

// Client for the Garmin Connect API
type Client struct {
	baseURL     string
	email       string
	password    string
	sessionFile string
	httpClient  *http.Client
	log         zerolog.Logger

	mu      sync.Mutex
	session *Session
}

// DailySteps is one entry of the step-history window
type DailySteps struct {
	CalendarDate string `json:"calendarDate"` // YYYY-MM-DD
	TotalSteps   int    `json:"totalSteps"`
}

// Activity is one entry of the recent-activity listing
type Activity struct {
	ActivityType    ActivityTypeRef `json:"activityType"`
	StartTimeLocal  string          `json:"startTimeLocal"` // "YYYY-MM-DD HH:MM:SS" in device-local time
	DurationSeconds float64         `json:"duration"`
	AverageHR       float64         `json:"averageHR"`
}

// ActivityTypeRef is the provider's nested activity type object
type ActivityTypeRef struct {
	TypeKey string `json:"typeKey"` // e.g. "running", "strength_training"
}

// NewClient creates a new Garmin Connect client.
// A previously saved session is resumed lazily on first use.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		email:       cfg.Email,
		password:    cfg.Password,
		sessionFile: cfg.SessionFile,
		httpClient:  &http.Client{Timeout: timeout},
		log:         log.With().Str("client", "garmin").Logger(),
	}
}

// Login authenticates with email/password and saves the session for reuse
func (c *Client) Login(ctx context.Context) error {
	if c.email == "" || c.password == "" {
		return ErrAuthRequired
	}

	payload, err := json.Marshal(map[string]string{
		"email":    c.email,
		"password": c.password,
	})
	if err != nil {
		return fmt.Errorf("failed to serialize login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginEndpoint, bytes.NewReader(payload))
	if err != nil {
		return &ProviderError{Endpoint: loginEndpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ProviderError{Endpoint: loginEndpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrAuthRequired
	}
	if resp.StatusCode != http.StatusOK {
		return &ProviderError{Endpoint: loginEndpoint, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var body struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return &ProviderError{Endpoint: loginEndpoint, Err: fmt.Errorf("failed to decode login response: %w", err)}
	}
	if body.Token == "" {
		return &ProviderError{Endpoint: loginEndpoint, Err: fmt.Errorf("login response missing token")}
	}

	session := &Session{
		Token:     body.Token,
		Email:     c.email,
		ExpiresAt: body.ExpiresAt,
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	if c.sessionFile != "" {
		if err := SaveSession(c.sessionFile, session); err != nil {
			c.log.Warn().Err(err).Msg("Failed to persist session, continuing with in-memory session")
		}
	}

	c.log.Info().Str("email", c.email).Msg("Logged in to Garmin Connect")
	return nil
}

// GetStepHistory returns the trailing window of daily step totals.
// The window covers the most recent windowDays days including today.
func (c *Client) GetStepHistory(ctx context.Context, windowDays int) ([]DailySteps, error) {
	if windowDays <= 0 {
		windowDays = 1
	}

	url := fmt.Sprintf("%s%s?period=%d", c.baseURL, stepsEndpoint, windowDays)

	var entries []DailySteps
	if err := c.getJSON(ctx, stepsEndpoint, url, &entries); err != nil {
		return nil, err
	}

	c.log.Debug().Int("window_days", windowDays).Int("entries", len(entries)).Msg("Fetched step history")
	return entries, nil
}

// GetRecentActivities returns the most recent activities, newest first
func (c *Client) GetRecentActivities(ctx context.Context, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 20
	}

	url := fmt.Sprintf("%s%s?start=0&limit=%d", c.baseURL, activitiesEndpoint, limit)

	var activities []Activity
	if err := c.getJSON(ctx, activitiesEndpoint, url, &activities); err != nil {
		return nil, err
	}

	c.log.Debug().Int("limit", limit).Int("activities", len(activities)).Msg("Fetched recent activities")
	return activities, nil
}

// IsConnected checks whether the current session is accepted by the API
func (c *Client) IsConnected(ctx context.Context) bool {
	var profile map[string]interface{}
	err := c.getJSON(ctx, userEndpoint, c.baseURL+userEndpoint, &profile)
	if err != nil {
		c.log.Debug().Err(err).Msg("IsConnected: profile request failed")
		return false
	}
	return true
}

// getJSON performs an authenticated GET and decodes the JSON response into out.
// A 401/403 clears the cached session and returns ErrAuthRequired.
func (c *Client) getJSON(ctx context.Context, endpoint, url string, out interface{}) error {
	token, err := c.ensureSession(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &ProviderError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ProviderError{Endpoint: endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.invalidateSession()
		return ErrAuthRequired
	case resp.StatusCode != http.StatusOK:
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return &ProviderError{Endpoint: endpoint, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProviderError{Endpoint: endpoint, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	return nil
}

// ensureSession returns a usable token, resuming the saved session or
// logging in with configured credentials as needed.
func (c *Client) ensureSession(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.session.Valid() {
		token := c.session.Token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	// Try resuming a saved session first
	if c.sessionFile != "" {
		saved, err := LoadSession(c.sessionFile)
		if err != nil {
			c.log.Warn().Err(err).Msg("Failed to load saved session")
		} else if saved.Valid() {
			c.mu.Lock()
			c.session = saved
			c.mu.Unlock()
			c.log.Debug().Msg("Resumed saved session")
			return saved.Token, nil
		}
	}

	// Fall back to a fresh login
	if err := c.Login(ctx); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.Valid() {
		return "", ErrAuthRequired
	}
	return c.session.Token, nil
}

func (c *Client) invalidateSession() {
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
}
