package session

import (
	"context"
	"errors"

	"github.com/vovakirdan/messagerooms-sdk/messagerooms/tokenstore"
)

// Follow keeps the session in step with logins and logouts made by another
// process sharing the same token file. Only file token stores can be
// followed; others return errors.ErrUnsupported.
func (s *Session) Follow(ctx context.Context) error {
	fb, ok := s.tokens.Backend().(*tokenstore.FileBackend)
	if !ok {
		return errors.ErrUnsupported
	}
	return fb.Watch(ctx, func() { s.syncTokens(ctx) })
}

func (s *Session) syncTokens(ctx context.Context) {
	token, err := s.tokens.AccessToken()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to re-read token store")
		return
	}
	if token == s.store.Auth().AccessToken {
		return
	}

	if err := s.Stop(); err != nil {
		s.logger.WithError(err).Debug("Closing stream after token change")
	}
	if token == "" {
		s.store.Logout()
		s.api.SetToken("")
		s.logger.Info("Logged out by another process")
		return
	}

	ok, err := s.Bootstrap()
	if err != nil || !ok {
		if err != nil {
			s.logger.WithError(err).Warn("Failed to restore session after token change")
		}
		return
	}
	s.logger.Info("Session replaced by another process")
	if err := s.Start(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to reopen event stream")
		s.reportError(err)
	}
}
