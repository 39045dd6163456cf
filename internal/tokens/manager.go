// Package tokens implements refresh-token rotation. The provider issues
// single-use refresh tokens: every exchange burns the submitted token and
// returns a replacement, so the store must always hold exactly the most
// recently issued token. The manager enforces the one ordering that keeps
// that invariant — persist the new refresh token, then release the access
// token.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ocf/boxbackup/internal/box"
	"github.com/ocf/boxbackup/internal/kvstore"
	"github.com/ocf/boxbackup/internal/secrets"
)

// Exchanger performs the provider-side token exchange. Defined at the
// consumer per Go convention; *box.Client is the real implementation.
type Exchanger interface {
	ExchangeRefreshToken(ctx context.Context, refreshToken, clientID, clientSecret string) (*box.TokenPair, error)
}

// Manager rotates the durable refresh token and hands out the ephemeral
// access token for the remainder of a run. Access tokens live only in
// process memory and are never persisted.
type Manager struct {
	store     kvstore.Store
	exchanger Exchanger
	logger    *slog.Logger
}

// NewManager creates a token manager over the given store and exchanger.
func NewManager(store kvstore.Store, exchanger Exchanger, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{store: store, exchanger: exchanger, logger: logger}
}

// Refresh reads the current refresh token from the durable store, exchanges
// it, persists the newly issued refresh token, and only then returns the
// access token.
//
// The persist-before-return ordering is load-bearing: the old token is
// invalid the moment the exchange succeeds. If the process crashes after
// the exchange but before the store write, the system is locked out until
// credentials are manually repaired — an accepted risk, not mitigated here.
// A failed exchange is terminal and never retried, because replaying a
// possibly-burnt token can only make things worse.
func (m *Manager) Refresh(ctx context.Context, creds *secrets.Credentials) (string, error) {
	current, err := m.store.Get(ctx, kvstore.RefreshTokenKey)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return "", fmt.Errorf("tokens: no refresh token in store — seed %q before the first run: %w",
				kvstore.RefreshTokenKey, err)
		}

		return "", fmt.Errorf("tokens: reading refresh token: %w", err)
	}

	pair, err := m.exchanger.ExchangeRefreshToken(ctx, current, creds.ClientID, creds.ClientSecret)
	if err != nil {
		return "", fmt.Errorf("tokens: exchange failed: %w", err)
	}

	if err := m.store.Put(ctx, kvstore.RefreshTokenKey, pair.RefreshToken); err != nil {
		// The exchange already burnt the old token. Surface loudly: the
		// store now holds a dead token and the next run will fail.
		m.logger.Error("rotated refresh token could not be persisted; manual repair required")

		return "", fmt.Errorf("tokens: persisting rotated refresh token: %w", err)
	}

	m.logger.Info("refresh token rotated")

	return pair.AccessToken, nil
}
