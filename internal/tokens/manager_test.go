package tokens

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocf/boxbackup/internal/box"
	"github.com/ocf/boxbackup/internal/kvstore"
	"github.com/ocf/boxbackup/internal/secrets"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCreds() *secrets.Credentials {
	return &secrets.Credentials{ClientID: "cid", ClientSecret: "csecret"}
}

// fakeStore records operations in order so tests can assert the
// persist-before-return invariant.
type fakeStore struct {
	values map[string]string
	ops    []string
	putErr error
}

func newFakeStore(seed string) *fakeStore {
	values := map[string]string{}
	if seed != "" {
		values[kvstore.RefreshTokenKey] = seed
	}

	return &fakeStore{values: values}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	f.ops = append(f.ops, "get")

	v, ok := f.values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", kvstore.ErrNotFound, key)
	}

	return v, nil
}

func (f *fakeStore) Put(_ context.Context, key, value string) error {
	f.ops = append(f.ops, "put")

	if f.putErr != nil {
		return f.putErr
	}

	f.values[key] = value

	return nil
}

func (f *fakeStore) Close() error { return nil }

// fakeExchanger returns a canned pair and records what it was handed.
type fakeExchanger struct {
	gotToken  string
	gotID     string
	gotSecret string
	pair      *box.TokenPair
	err       error
	calls     int
}

func (f *fakeExchanger) ExchangeRefreshToken(_ context.Context, refreshToken, clientID, clientSecret string) (*box.TokenPair, error) {
	f.calls++
	f.gotToken = refreshToken
	f.gotID = clientID
	f.gotSecret = clientSecret

	if f.err != nil {
		return nil, f.err
	}

	return f.pair, nil
}

func TestRefreshRotatesToken(t *testing.T) {
	store := newFakeStore("rt-old")
	exch := &fakeExchanger{pair: &box.TokenPair{AccessToken: "at-new", RefreshToken: "rt-new"}}
	mgr := NewManager(store, exch, testLogger())

	access, err := mgr.Refresh(context.Background(), testCreds())
	require.NoError(t, err)

	assert.Equal(t, "at-new", access)
	assert.Equal(t, "rt-old", exch.gotToken)
	assert.Equal(t, "cid", exch.gotID)
	assert.Equal(t, "csecret", exch.gotSecret)

	// The store ends the run holding exactly the newly issued token.
	got, err := store.Get(context.Background(), kvstore.RefreshTokenKey)
	require.NoError(t, err)
	assert.Equal(t, "rt-new", got)
}

func TestRefreshPersistsBeforeReturning(t *testing.T) {
	store := newFakeStore("rt-old")
	exch := &fakeExchanger{pair: &box.TokenPair{AccessToken: "at", RefreshToken: "rt-new"}}
	mgr := NewManager(store, exch, testLogger())

	_, err := mgr.Refresh(context.Background(), testCreds())
	require.NoError(t, err)

	// Read, then write — nothing else touches the store.
	assert.Equal(t, []string{"get", "put"}, store.ops)
}

func TestRefreshExchangeFailureLeavesStoreUntouched(t *testing.T) {
	store := newFakeStore("rt-old")
	exch := &fakeExchanger{err: errors.New("boom")}
	mgr := NewManager(store, exch, testLogger())

	_, err := mgr.Refresh(context.Background(), testCreds())
	require.Error(t, err)

	// Never retried: one exchange, no write.
	assert.Equal(t, 1, exch.calls)
	assert.Equal(t, []string{"get"}, store.ops)

	got, getErr := store.Get(context.Background(), kvstore.RefreshTokenKey)
	require.NoError(t, getErr)
	assert.Equal(t, "rt-old", got)
}

func TestRefreshMissingStoredToken(t *testing.T) {
	store := newFakeStore("")
	exch := &fakeExchanger{}
	mgr := NewManager(store, exch, testLogger())

	_, err := mgr.Refresh(context.Background(), testCreds())
	require.Error(t, err)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
	assert.Zero(t, exch.calls)
}

func TestRefreshPersistFailureSurfaces(t *testing.T) {
	store := newFakeStore("rt-old")
	store.putErr = errors.New("disk full")
	exch := &fakeExchanger{pair: &box.TokenPair{AccessToken: "at", RefreshToken: "rt-new"}}
	mgr := NewManager(store, exch, testLogger())

	_, err := mgr.Refresh(context.Background(), testCreds())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persisting rotated refresh token")
}
