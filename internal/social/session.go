package social

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SavedSession is the on-disk form of an authenticated session.
type SavedSession struct {
	Username string    `json:"username"`
	Token    string    `json:"token"`
	UserID   string    `json:"user_id,omitempty"`
	SavedAt  time.Time `json:"saved_at"`
}

// Expired reports whether the token's exp claim is in the past. Tokens that
// are not JWTs, or carry no exp claim, are never considered expired here;
// the server decides.
func (s SavedSession) Expired(now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

// SessionCache stores one SavedSession in a file.
type SessionCache struct {
	path string
}

// NewSessionCache returns a cache backed by path.
func NewSessionCache(path string) *SessionCache {
	return &SessionCache{path: path}
}

// Load returns the saved session, or nil when none exists.
func (c *SessionCache) Load() (*SavedSession, error) {
	raw, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var s SavedSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if s.Token == "" {
		return nil, nil
	}
	return &s, nil
}

// Save overwrites the cached session. The file is private to the user.
func (c *SessionCache) Save(s SavedSession) error {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename session: %w", err)
	}
	return nil
}
