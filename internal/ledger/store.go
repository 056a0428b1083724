// Package ledger holds the active user's transactions and screen, and
// mirrors every change to durable storage.
package ledger

import (
	"context"
	"fmt"
	"time"

	"zombiefinance/internal/core"
	"zombiefinance/internal/log"
	"zombiefinance/internal/metrics"
)

// Persister stores whole per-user snapshots.
type Persister interface {
	Save(ctx context.Context, username string, snap core.Snapshot) error
	Load(ctx context.Context, username string) (core.Snapshot, bool, error)
}

// Store is the transaction store of one user at a time. It is not safe for
// concurrent use; callers with several goroutines must serialize access.
//
// Mutating methods return (false, nil) when the action is rejected and
// nothing changed. A non-nil error means storage failed; the in-memory
// state has been rolled back to what it was before the call.
type Store struct {
	persist Persister
	now     func() time.Time
	ids     *IDGenerator
	logger  *log.Logger
	events  *log.StructuredLogger

	session *Session
	txs     []core.Transaction
	nav     Navigator
	summary *core.Summary
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now for dating entries and generating ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func NewStore(p Persister, opts ...Option) *Store {
	s := &Store{
		persist: p,
		now:     time.Now,
		logger:  log.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentLedger)
	s.events = log.NewStructuredLogger(s.logger)
	s.ids = NewIDGenerator(s.now)
	return s
}

// Session returns the active session and whether there is one.
func (s *Store) Session() (Session, bool) {
	if s.session == nil {
		return Session{}, false
	}
	return *s.session, true
}

// Transactions returns a copy of the active ledger in insertion order.
func (s *Store) Transactions() []core.Transaction {
	return append([]core.Transaction(nil), s.txs...)
}

// Screen returns the current screen, or "" when nobody is logged in.
func (s *Store) Screen() core.Screen {
	return s.nav.Screen()
}

// Summary returns the totals of the active ledger. The result is cached
// until the next mutation.
func (s *Store) Summary() core.Summary {
	if s.summary == nil {
		sum := core.Summarize(s.txs)
		s.summary = &sum
	}
	out := *s.summary
	out.ByCategory = append([]core.CategoryAmount(nil), s.summary.ByCategory...)
	return out
}

// Mood classifies the active balance.
func (s *Store) Mood() core.Mood {
	return s.Summary().Mood()
}

// SwitchUser opens a session for username and loads its stored ledger.
// A missing or unreadable record yields an empty ledger on the home screen.
func (s *Store) SwitchUser(ctx context.Context, username string) (bool, error) {
	sess, err := NewSession(username, s.now())
	if err != nil {
		s.reject(ctx, log.OpSwitchUser, metrics.ReasonEmptyUsername)
		return false, nil
	}

	snap, found, err := s.persist.Load(ctx, sess.Username)
	if err != nil {
		return false, fmt.Errorf("switch to %q: %w", sess.Username, err)
	}

	s.session = &sess
	s.txs = append([]core.Transaction(nil), snap.Transactions...)
	s.ids.Seed(s.txs)
	s.nav.Start(snap.Screen)
	s.invalidate()

	metrics.UserSwitches.Inc()
	s.logger.InfoContext(ctx, "Session switched",
		log.FieldUsername, sess.Username,
		log.FieldTxCount, len(s.txs),
		log.FieldScreen, s.nav.Screen(),
		"found", found)
	return true, nil
}

// Logout drops the session and the in-memory ledger. Storage is untouched.
func (s *Store) Logout() {
	if s.session != nil {
		s.logger.Info("Session closed", log.FieldUsername, s.session.Username)
	}
	s.session = nil
	s.txs = nil
	s.nav.End()
	s.invalidate()
}

// AddIncome appends an income dated today and returns to the home screen.
func (s *Store) AddIncome(ctx context.Context, amount float64) (bool, error) {
	if s.session == nil {
		s.reject(ctx, log.OpAppend, metrics.ReasonNoSession)
		return false, nil
	}
	if !core.ValidAmount(amount) {
		s.reject(ctx, log.OpAppend, metrics.ReasonInvalidAmount)
		return false, nil
	}
	tx := core.Transaction{
		Type:        core.Income,
		Amount:      amount,
		Description: core.IncomeDescription,
	}
	return s.append(ctx, tx, core.ScreenHome)
}

// AddExpense appends an expense dated today. categoryID may be a canonical
// id or an alias; the canonical id is stored. The screen does not change.
func (s *Store) AddExpense(ctx context.Context, categoryID string, amount float64) (bool, error) {
	if s.session == nil {
		s.reject(ctx, log.OpAppend, metrics.ReasonNoSession)
		return false, nil
	}
	if !core.ValidAmount(amount) {
		s.reject(ctx, log.OpAppend, metrics.ReasonInvalidAmount)
		return false, nil
	}
	cat, ok := core.LookupCategory(categoryID)
	if !ok {
		s.reject(ctx, log.OpAppend, metrics.ReasonUnknownCategory)
		return false, nil
	}
	tx := core.Transaction{
		Type:     core.Expense,
		Amount:   amount,
		Category: cat.ID,
	}
	return s.append(ctx, tx, s.nav.Screen())
}

// Navigate moves from home to an entry screen and persists the change.
func (s *Store) Navigate(ctx context.Context, to core.Screen) (bool, error) {
	return s.moveScreen(ctx, func(n *Navigator) bool { return n.Navigate(to) })
}

// Back returns to home and persists the change.
func (s *Store) Back(ctx context.Context) (bool, error) {
	return s.moveScreen(ctx, (*Navigator).Back)
}

func (s *Store) moveScreen(ctx context.Context, move func(*Navigator) bool) (bool, error) {
	if s.session == nil {
		s.reject(ctx, log.OpNavigate, metrics.ReasonNoSession)
		return false, nil
	}
	prev := s.nav.Screen()
	if !move(&s.nav) {
		s.reject(ctx, log.OpNavigate, metrics.ReasonInvalidScreen)
		return false, nil
	}
	if err := s.save(ctx); err != nil {
		s.nav.set(prev)
		return false, err
	}
	s.logger.DebugContext(ctx, "Screen changed",
		log.FieldUsername, s.session.Username, log.FieldScreen, s.nav.Screen())
	return true, nil
}

func (s *Store) append(ctx context.Context, tx core.Transaction, screen core.Screen) (bool, error) {
	prevLen, prevScreen, prevID := len(s.txs), s.nav.Screen(), s.ids.Last()

	tx.ID = s.ids.Next()
	tx.Date = core.DateOf(s.now())
	s.txs = append(s.txs, tx)
	s.nav.set(screen)
	s.invalidate()

	if err := s.save(ctx); err != nil {
		s.txs = s.txs[:prevLen:prevLen]
		s.nav.set(prevScreen)
		s.ids.restore(prevID)
		s.invalidate()
		return false, err
	}

	metrics.TransactionsAppended.WithLabelValues(string(tx.Type)).Inc()
	s.events.LogTransactionAppended(ctx, s.session.Username, tx.ID, string(tx.Type), tx.Amount, tx.Category)
	return true, nil
}

func (s *Store) save(ctx context.Context) error {
	snap := core.Snapshot{
		Transactions: append([]core.Transaction{}, s.txs...),
		Screen:       s.nav.Screen(),
	}
	return s.persist.Save(ctx, s.session.Username, snap)
}

func (s *Store) reject(ctx context.Context, op, reason string) {
	metrics.RejectedActions.WithLabelValues(reason).Inc()
	s.events.LogRejected(ctx, op, reason)
}

func (s *Store) invalidate() { s.summary = nil }
