package garmin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Session holds the authenticated state for Garmin Connect.
// It is persisted to disk so restarts do not require a fresh login.
type Session struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Valid reports whether the session can still be used for API calls
func (s *Session) Valid() bool {
	if s == nil || s.Token == "" {
		return false
	}
	// Treat sessions without an expiry as valid; the API rejects them if not
	if s.ExpiresAt.IsZero() {
		return true
	}
	return time.Now().Before(s.ExpiresAt)
}

// LoadSession reads a previously saved session from path.
// Returns nil (not an error) if no session file exists.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}

	return &s, nil
}

// SaveSession writes the session to path, creating parent directories as needed.
// The file is written with 0600 since it holds a bearer token.
func SaveSession(path string, s *Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}
