package notify

import (
	"context"
	"errors"
	"time"

	"group-chat/internal/apperr"
)

type TokenStore interface {
	TokenFor(ctx context.Context, memberID int) (string, error)
	Save(ctx context.Context, memberID int, token string) error
}

// Service resolves a member's device token and dispatches to it. Every call
// is bounded by timeout so a slow transport never stalls the caller.
type Service struct {
	tokens     TokenStore
	dispatcher Dispatcher
	timeout    time.Duration
}

func NewService(tokens TokenStore, dispatcher Dispatcher, timeout time.Duration) *Service {
	return &Service{tokens: tokens, dispatcher: dispatcher, timeout: timeout}
}

func (s *Service) Notify(ctx context.Context, memberID int, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	token, err := s.tokens.TokenFor(ctx, memberID)
	if errors.Is(err, ErrNoToken) {
		return apperr.Wrap(apperr.KindNotification, "no push token for member", err)
	}
	if err != nil {
		return apperr.Wrap(apperr.KindNotification, "push token lookup failed", err)
	}

	if err := s.dispatcher.Dispatch(ctx, token, ev); err != nil {
		return apperr.Wrap(apperr.KindNotification, "notification dispatch failed", err)
	}
	return nil
}

func (s *Service) RegisterToken(ctx context.Context, memberID int, token string) error {
	if token == "" {
		return apperr.InvalidInput("Missing required information")
	}
	if err := s.tokens.Save(ctx, memberID, token); err != nil {
		return apperr.Storage(err)
	}
	return nil
}

// Owns reports whether token is the one registered for memberID.
func (s *Service) Owns(ctx context.Context, memberID int, token string) (bool, error) {
	registered, err := s.tokens.TokenFor(ctx, memberID)
	if errors.Is(err, ErrNoToken) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Storage(err)
	}
	return registered == token, nil
}
