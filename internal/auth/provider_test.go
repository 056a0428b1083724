package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zombiefinance/internal/cache"
)

type fakeAuth struct {
	signIn     *Session
	signUp     *Session
	err        error
	signedOut  []string
	signOutErr error
}

func (f *fakeAuth) SignInWithPassword(context.Context, string, string) (*Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := *f.signIn
	return &s, nil
}

func (f *fakeAuth) SignUp(context.Context, string, string) (*Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := *f.signUp
	return &s, nil
}

func (f *fakeAuth) SignOut(_ context.Context, token string) error {
	f.signedOut = append(f.signedOut, token)
	return f.signOutErr
}

func activeSession(token string) *Session {
	return &Session{
		AccessToken: token,
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
		User:        User{ID: "u-" + token, Email: token + "@example.com"},
	}
}

func TestProviderSignInNotifiesAndCaches(t *testing.T) {
	fa := &fakeAuth{signIn: activeSession("tok1")}
	p := NewProvider(fa, cache.NewLRUCache[Session](10, time.Hour), nil)

	var events []Event
	unsubscribe := p.OnAuthStateChange(func(e Event, s *Session) {
		events = append(events, e)
	})
	defer unsubscribe()

	_, ok := p.Session()
	assert.False(t, ok)

	s, err := p.SignIn(context.Background(), "tok1@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "tok1", s.AccessToken)

	cur, ok := p.Session()
	require.True(t, ok)
	assert.Equal(t, "u-tok1", cur.User.ID)

	cached, ok := p.Lookup("tok1")
	require.True(t, ok)
	assert.Equal(t, "u-tok1", cached.User.ID)

	assert.Equal(t, []Event{EventSignedIn}, events)
}

func TestProviderSignInFailureKeepsState(t *testing.T) {
	fa := &fakeAuth{err: &Error{Status: 400, Message: "Invalid login credentials"}}
	p := NewProvider(fa, nil, nil)
	calls := 0
	p.OnAuthStateChange(func(Event, *Session) { calls++ })

	_, err := p.SignIn(context.Background(), "a@b.c", "bad")
	var authErr *Error
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "Invalid login credentials", authErr.Message)
	_, ok := p.Session()
	assert.False(t, ok)
	assert.Zero(t, calls)
}

func TestProviderSignUpPendingConfirmation(t *testing.T) {
	fa := &fakeAuth{signUp: &Session{User: User{ID: "u9", Email: "n@b.c"}}}
	p := NewProvider(fa, nil, nil)
	calls := 0
	p.OnAuthStateChange(func(Event, *Session) { calls++ })

	s, err := p.SignUp(context.Background(), "n@b.c", "pw")
	require.NoError(t, err)
	assert.Equal(t, "u9", s.User.ID)
	_, ok := p.Session()
	assert.False(t, ok)
	assert.Zero(t, calls)
}

func TestProviderSignOut(t *testing.T) {
	fa := &fakeAuth{signIn: activeSession("tok2"), signOutErr: errors.New("network down")}
	p := NewProvider(fa, nil, nil)

	var got []Event
	var lastSession *Session
	p.OnAuthStateChange(func(e Event, s *Session) {
		got = append(got, e)
		lastSession = s
	})

	_, err := p.SignIn(context.Background(), "x", "y")
	require.NoError(t, err)
	p.SignOut(context.Background())

	assert.Equal(t, []Event{EventSignedIn, EventSignedOut}, got)
	assert.Nil(t, lastSession)
	assert.Equal(t, []string{"tok2"}, fa.signedOut)
	_, ok := p.Session()
	assert.False(t, ok)
	_, ok = p.Lookup("tok2")
	assert.False(t, ok)

	// Signing out twice is a no-op.
	p.SignOut(context.Background())
	assert.Len(t, got, 2)
}

func TestProviderUnsubscribe(t *testing.T) {
	fa := &fakeAuth{signIn: activeSession("tok3")}
	p := NewProvider(fa, nil, nil)

	calls := 0
	unsubscribe := p.OnAuthStateChange(func(Event, *Session) { calls++ })
	unsubscribe()
	unsubscribe()

	_, err := p.SignIn(context.Background(), "x", "y")
	require.NoError(t, err)
	assert.Zero(t, calls)
}

func TestProviderExpiredSessionIsInactive(t *testing.T) {
	expired := &Session{AccessToken: "old", ExpiresAt: time.Now().Add(-time.Minute).Unix()}
	p := NewProvider(&fakeAuth{signIn: expired}, nil, nil)
	_, err := p.SignIn(context.Background(), "x", "y")
	require.NoError(t, err)
	_, ok := p.Session()
	assert.False(t, ok)
	_, ok = p.Lookup("old")
	assert.False(t, ok)
}
