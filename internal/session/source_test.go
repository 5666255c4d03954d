package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/healping/internal/model"
	"github.com/dtroode/healping/internal/testutil"
	"github.com/dtroode/healping/internal/token"
)

const testSecret = "test-secret"

type fakeProvider struct {
	refreshed  []string
	next       model.TokenPair
	refreshErr error
	loggedOut  []string
	logoutErr  error
}

func (f *fakeProvider) Refresh(_ context.Context, refreshToken string) (model.TokenPair, error) {
	f.refreshed = append(f.refreshed, refreshToken)
	if f.refreshErr != nil {
		return model.TokenPair{}, f.refreshErr
	}
	return f.next, nil
}

func (f *fakeProvider) Logout(_ context.Context, accessToken string) error {
	f.loggedOut = append(f.loggedOut, accessToken)
	return f.logoutErr
}

type recordedEvent struct {
	event   model.SessionEvent
	session *model.Session
}

func pairFor(t *testing.T, userID string, expiresAt time.Time, refresh string) model.TokenPair {
	t.Helper()
	access, err := token.NewJWT(testSecret).GenerateAccessToken(model.Session{
		UserID:    userID,
		Email:     userID + "@clinic.test",
		FullName:  "User " + userID,
		ExpiresAt: expiresAt,
	})
	require.NoError(t, err)
	return model.TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt.Truncate(time.Second)}
}

func newTestSource(provider Provider, store Store) *Source {
	return NewSource(provider, store, token.NewJWT(testSecret), time.Minute, testutil.MakeNoopLogger(), nil)
}

func record(src *Source) (*[]recordedEvent, model.Subscription) {
	var events []recordedEvent
	sub := src.OnSessionChange(func(event model.SessionEvent, session *model.Session) {
		events = append(events, recordedEvent{event: event, session: session})
	})
	return &events, sub
}

func TestSource_GetCurrentSession_Empty(t *testing.T) {
	src := newTestSource(&fakeProvider{}, NewMemoryStore())

	session, err := src.GetCurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestSource_GetCurrentSession_Valid(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, pairFor(t, "u1", time.Now().Add(time.Hour), "r1")))
	provider := &fakeProvider{}
	src := newTestSource(provider, store)
	events, _ := record(src)

	session, err := src.GetCurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "u1", session.UserID)
	assert.Equal(t, "u1@clinic.test", session.Email)
	assert.Equal(t, "User u1", session.FullName)
	assert.Equal(t, "r1", session.RefreshToken)
	assert.Empty(t, provider.refreshed)
	assert.Empty(t, *events)
}

func TestSource_GetCurrentSession_RefreshesNearExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, pairFor(t, "u1", time.Now().Add(10*time.Second), "r1")))
	provider := &fakeProvider{next: pairFor(t, "u1", time.Now().Add(time.Hour), "r2")}
	src := newTestSource(provider, store)
	events, _ := record(src)

	session, err := src.GetCurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "r2", session.RefreshToken)
	assert.Equal(t, []string{"r1"}, provider.refreshed)
	assert.Empty(t, *events, "initial resolution must not emit events")

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r2", stored.RefreshToken)
}

func TestSource_GetCurrentSession_RefreshRejected(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, pairFor(t, "u1", time.Now().Add(-time.Hour), "r1")))
	provider := &fakeProvider{refreshErr: fmt.Errorf("%w: used", model.ErrRefreshRejected)}
	src := newTestSource(provider, store)

	session, err := src.GetCurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, session)

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSource_GetCurrentSession_RefreshFailsWhileStillValid(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, pairFor(t, "u1", time.Now().Add(30*time.Second), "r1")))
	src := newTestSource(&fakeProvider{refreshErr: errors.New("offline")}, store)

	session, err := src.GetCurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "r1", session.RefreshToken)
}

func TestSource_GetCurrentSession_RefreshFailsWhenExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, pairFor(t, "u1", time.Now().Add(-time.Second), "r1")))
	src := newTestSource(&fakeProvider{refreshErr: errors.New("offline")}, store)

	session, err := src.GetCurrentSession(ctx)
	require.Error(t, err)
	assert.Nil(t, session)
}

func TestSource_GetCurrentSession_UnreadableToken(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, model.TokenPair{AccessToken: "garbage", RefreshToken: "r1"}))
	src := newTestSource(&fakeProvider{}, store)

	session, err := src.GetCurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, session)

	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSource_SignIn(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	src := newTestSource(&fakeProvider{}, store)

	var order []string
	src.OnSessionChange(func(model.SessionEvent, *model.Session) { order = append(order, "first") })
	src.OnSessionChange(func(model.SessionEvent, *model.Session) { order = append(order, "second") })
	events, _ := record(src)

	session, err := src.SignIn(ctx, pairFor(t, "u1", time.Now().Add(time.Hour), "r1"))
	require.NoError(t, err)
	assert.Equal(t, "u1", session.UserID)

	require.Len(t, *events, 1)
	assert.Equal(t, model.EventSignedIn, (*events)[0].event)
	assert.Equal(t, "u1", (*events)[0].session.UserID)
	assert.Equal(t, []string{"first", "second"}, order)

	_, err = store.Load(ctx)
	require.NoError(t, err)
}

func TestSource_SignIn_InvalidToken(t *testing.T) {
	src := newTestSource(&fakeProvider{}, NewMemoryStore())
	events, _ := record(src)

	_, err := src.SignIn(context.Background(), model.TokenPair{AccessToken: "garbage"})
	require.ErrorIs(t, err, model.ErrTokenInvalid)
	assert.Empty(t, *events)
}

func TestSource_Unsubscribe(t *testing.T) {
	src := newTestSource(&fakeProvider{}, NewMemoryStore())
	events, sub := record(src)

	sub.Unsubscribe()
	sub.Unsubscribe()

	_, err := src.SignIn(context.Background(), pairFor(t, "u1", time.Now().Add(time.Hour), "r1"))
	require.NoError(t, err)
	assert.Empty(t, *events)
}

func TestSource_SignOut(t *testing.T) {
	tests := []struct {
		name      string
		logoutErr error
		wantErr   bool
	}{
		{name: "success"},
		{name: "remote failure still clears locally", logoutErr: errors.New("offline"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := NewMemoryStore()
			pair := pairFor(t, "u1", time.Now().Add(time.Hour), "r1")
			require.NoError(t, store.Save(ctx, pair))
			provider := &fakeProvider{logoutErr: tt.logoutErr}
			src := newTestSource(provider, store)
			events, _ := record(src)

			err := src.SignOut(ctx)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, []string{pair.AccessToken}, provider.loggedOut)
			_, err = store.Load(ctx)
			assert.ErrorIs(t, err, model.ErrNotFound)
			require.Len(t, *events, 1)
			assert.Equal(t, model.EventSignedOut, (*events)[0].event)
			assert.Nil(t, (*events)[0].session)
		})
	}
}

func TestSource_SignOut_WithoutSession(t *testing.T) {
	provider := &fakeProvider{}
	src := newTestSource(provider, NewMemoryStore())
	events, _ := record(src)

	require.NoError(t, src.SignOut(context.Background()))
	assert.Empty(t, provider.loggedOut)
	require.Len(t, *events, 1)
	assert.Equal(t, model.EventSignedOut, (*events)[0].event)
}

func TestSource_RefreshNow(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, pairFor(t, "u1", time.Now().Add(time.Hour), "r1")))
	provider := &fakeProvider{next: pairFor(t, "u1", time.Now().Add(2*time.Hour), "r2")}
	src := newTestSource(provider, store)
	events, _ := record(src)

	require.NoError(t, src.RefreshNow(ctx))

	require.Len(t, *events, 1)
	assert.Equal(t, model.EventTokenRefreshed, (*events)[0].event)
	assert.Equal(t, "u1", (*events)[0].session.UserID)
	assert.Equal(t, "r2", (*events)[0].session.RefreshToken)
}

func TestSource_RefreshNow_Rejected(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, pairFor(t, "u1", time.Now().Add(time.Hour), "r1")))
	src := newTestSource(&fakeProvider{refreshErr: model.ErrRefreshRejected}, store)
	events, _ := record(src)

	err := src.RefreshNow(ctx)
	require.ErrorIs(t, err, model.ErrRefreshRejected)

	require.Len(t, *events, 1)
	assert.Equal(t, model.EventSignedOut, (*events)[0].event)
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSource_RefreshNow_NoSession(t *testing.T) {
	src := newTestSource(&fakeProvider{}, NewMemoryStore())
	require.ErrorIs(t, src.RefreshNow(context.Background()), model.ErrNoSession)
}

func TestSource_RefreshIfDue(t *testing.T) {
	ctx := context.Background()

	t.Run("not due", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, pairFor(t, "u1", time.Now().Add(time.Hour), "r1")))
		provider := &fakeProvider{}
		src := newTestSource(provider, store)

		refreshed, err := src.RefreshIfDue(ctx)
		require.NoError(t, err)
		assert.False(t, refreshed)
		assert.Empty(t, provider.refreshed)
	})

	t.Run("due", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(ctx, pairFor(t, "u1", time.Now().Add(30*time.Second), "r1")))
		provider := &fakeProvider{next: pairFor(t, "u1", time.Now().Add(time.Hour), "r2")}
		src := newTestSource(provider, store)
		events, _ := record(src)

		refreshed, err := src.RefreshIfDue(ctx)
		require.NoError(t, err)
		assert.True(t, refreshed)
		require.Len(t, *events, 1)
		assert.Equal(t, model.EventTokenRefreshed, (*events)[0].event)
	})

	t.Run("no session", func(t *testing.T) {
		refreshed, err := newTestSource(&fakeProvider{}, NewMemoryStore()).RefreshIfDue(ctx)
		require.NoError(t, err)
		assert.False(t, refreshed)
	})
}

type countingRefresher struct {
	calls int
	err   error
}

func (c *countingRefresher) RefreshIfDue(context.Context) (bool, error) {
	c.calls++
	return c.err == nil, c.err
}

func TestRefresher_RunOnce(t *testing.T) {
	for _, err := range []error{nil, errors.New("offline")} {
		src := &countingRefresher{err: err}
		NewRefresher(src, testutil.MakeNoopLogger()).RunOnce(context.Background())
		assert.Equal(t, 1, src.calls)
	}
}

func TestRefresher_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		NewRefresher(&countingRefresher{}, testutil.MakeNoopLogger()).Start(ctx, time.Millisecond)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
}
