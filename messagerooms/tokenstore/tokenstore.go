// Package tokenstore persists the access token and the authenticated user
// between runs.
package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vovakirdan/messagerooms-sdk/messagerooms/model"
)

// Keys under which credentials are stored.
const (
	KeyAccessToken       = "accessToken"
	KeyAuthenticatedUser = "authenticatedUser"
)

// Backend is a string key/value store.
type Backend interface {
	// Get returns the value for key and whether it exists.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}

// TokenStore reads and writes credentials through a Backend.
type TokenStore struct {
	backend Backend
}

// New returns a TokenStore over b.
func New(b Backend) *TokenStore {
	return &TokenStore{backend: b}
}

// Backend returns the underlying backend.
func (s *TokenStore) Backend() Backend { return s.backend }

// AccessToken returns the stored token, or "" when none is stored.
func (s *TokenStore) AccessToken() (string, error) {
	v, _, err := s.backend.Get(KeyAccessToken)
	if err != nil {
		return "", fmt.Errorf("get access token: %w", err)
	}
	return v, nil
}

// SetAccessToken stores token. An empty token removes the stored one.
func (s *TokenStore) SetAccessToken(token string) error {
	if token == "" {
		return s.backend.Delete(KeyAccessToken)
	}
	if err := s.backend.Set(KeyAccessToken, token); err != nil {
		return fmt.Errorf("set access token: %w", err)
	}
	return nil
}

// User returns the stored user, or nil when none is stored.
func (s *TokenStore) User() (*model.User, error) {
	raw, ok, err := s.backend.Get(KeyAuthenticatedUser)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("parse stored user: %w", err)
	}
	return &u, nil
}

// SetUser stores u as JSON.
func (s *TokenStore) SetUser(u model.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := s.backend.Set(KeyAuthenticatedUser, string(data)); err != nil {
		return fmt.Errorf("set user: %w", err)
	}
	return nil
}

// Save stores the user and token of a successful login.
func (s *TokenStore) Save(u model.User, token string) error {
	if err := s.SetUser(u); err != nil {
		return err
	}
	return s.SetAccessToken(token)
}

// Clear removes both credentials.
func (s *TokenStore) Clear() error {
	return errors.Join(
		s.backend.Delete(KeyAccessToken),
		s.backend.Delete(KeyAuthenticatedUser),
	)
}

// Close releases the backend if it holds resources.
func (s *TokenStore) Close() error {
	if c, ok := s.backend.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
