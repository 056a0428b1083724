package auth

import (
	"context"
	"sort"
	"sync"
	"time"

	"zombiefinance/internal/cache"
	"zombiefinance/internal/log"
)

// Event names a session change delivered to listeners.
type Event string

const (
	EventSignedIn  Event = "SIGNED_IN"
	EventSignedOut Event = "SIGNED_OUT"
)

// Listener receives session changes. session is nil on sign-out.
type Listener func(event Event, session *Session)

// Authenticator is the identity service the Provider drives.
type Authenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Provider holds the current session and fans out changes to listeners.
// Active sessions are also cached by access token so callers holding only
// a token (a cookie, say) can look them up.
type Provider struct {
	client Authenticator
	cache  *cache.LRUCache[Session]
	now    func() time.Time
	logger *log.Logger

	mu        sync.Mutex
	current   *Session
	listeners map[int]Listener
	nextID    int
}

func NewProvider(client Authenticator, sessions *cache.LRUCache[Session], logger *log.Logger) *Provider {
	if logger == nil {
		logger = log.Nop()
	}
	if sessions == nil {
		sessions = cache.NewLRUCache[Session](100, time.Hour)
	}
	return &Provider{
		client:    client,
		cache:     sessions,
		now:       time.Now,
		logger:    logger.WithComponent(log.ComponentAuth),
		listeners: make(map[int]Listener),
	}
}

// Session returns the current session, if any.
func (p *Provider) Session() (*Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil || !p.current.Active(p.now()) {
		return nil, false
	}
	s := *p.current
	return &s, true
}

// Lookup returns the cached session for an access token.
func (p *Provider) Lookup(accessToken string) (*Session, bool) {
	if accessToken == "" {
		return nil, false
	}
	s, ok := p.cache.Get(accessToken)
	if !ok || !s.Active(p.now()) {
		return nil, false
	}
	return &s, true
}

// SignIn authenticates and makes the result the current session.
func (p *Provider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	s, err := p.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		p.logger.WarnContext(ctx, "Sign-in failed", log.FieldOperation, log.OpSignIn, log.FieldError, err)
		return nil, err
	}
	p.setCurrent(ctx, s)
	return s, nil
}

// SignUp registers a user. A returned session without access token means
// the address still has to be confirmed; the current session is unchanged.
func (p *Provider) SignUp(ctx context.Context, email, password string) (*Session, error) {
	s, err := p.client.SignUp(ctx, email, password)
	if err != nil {
		p.logger.WarnContext(ctx, "Sign-up failed", log.FieldOperation, log.OpSignUp, log.FieldError, err)
		return nil, err
	}
	if s.Active(p.now()) {
		p.setCurrent(ctx, s)
	} else {
		p.logger.InfoContext(ctx, "Sign-up pending confirmation", log.FieldOperation, log.OpSignUp)
	}
	return s, nil
}

// SignOut clears the current session. The remote revoke is best effort.
func (p *Provider) SignOut(ctx context.Context) {
	p.mu.Lock()
	prev := p.current
	p.current = nil
	p.mu.Unlock()

	if prev == nil {
		return
	}
	p.cache.Delete(prev.AccessToken)
	if err := p.client.SignOut(ctx, prev.AccessToken); err != nil {
		p.logger.WarnContext(ctx, "Remote sign-out failed", log.FieldError, err)
	}
	p.notify(EventSignedOut, nil)
}

// OnAuthStateChange registers fn and returns a function that removes it.
func (p *Provider) OnAuthStateChange(fn Listener) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

func (p *Provider) setCurrent(ctx context.Context, s *Session) {
	cp := *s
	p.mu.Lock()
	p.current = &cp
	p.mu.Unlock()

	p.cache.SetWithTTL(cp.AccessToken, cp, cp.TTL(p.now()))
	p.logger.InfoContext(ctx, "Signed in", "user_id", cp.User.ID)
	p.notify(EventSignedIn, &cp)
}

// notify calls listeners in registration order, outside the lock.
func (p *Provider) notify(event Event, s *Session) {
	p.mu.Lock()
	ids := make([]int, 0, len(p.listeners))
	for id := range p.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, p.listeners[id])
	}
	p.mu.Unlock()

	for _, fn := range fns {
		var arg *Session
		if s != nil {
			c := *s
			arg = &c
		}
		fn(event, arg)
	}
}
