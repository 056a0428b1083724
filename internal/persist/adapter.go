// Package persist maps a username to its stored ledger snapshot.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"zombiefinance/internal/core"
	"zombiefinance/internal/log"
	"zombiefinance/internal/metrics"
	"zombiefinance/internal/storage"
)

// DefaultPrefix namespaces every ledger key in the backing store.
const DefaultPrefix = "zombieFinance_"

// Adapter reads and writes whole snapshots. It never merges: Save
// replaces whatever was stored for the user.
type Adapter struct {
	store  storage.KeyValueStore
	prefix string
	logger *log.Logger
}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(prefix string) Option {
	return func(a *Adapter) { a.prefix = prefix }
}

func WithLogger(l *log.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

func New(store storage.KeyValueStore, opts ...Option) *Adapter {
	a := &Adapter{
		store:  store,
		prefix: DefaultPrefix,
		logger: log.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.WithComponent(log.ComponentPersist)
	return a
}

// Key returns the storage key for username. The username is used verbatim.
func (a *Adapter) Key(username string) string {
	return a.prefix + username
}

// record mirrors core.Snapshot but keeps transactions as raw messages so a
// single bad entry does not poison the rest.
type record struct {
	Transactions []json.RawMessage `json:"transactions"`
	Screen       core.Screen       `json:"screen"`
}

// Save serializes snap and stores it under the user's key.
func (a *Adapter) Save(ctx context.Context, username string, snap core.Snapshot) error {
	if snap.Transactions == nil {
		snap.Transactions = []core.Transaction{}
	}
	if !snap.Screen.Valid() {
		snap.Screen = core.ScreenHome
	}
	b, err := json.Marshal(snap)
	if err != nil {
		metrics.SaveOutcome(err)
		return fmt.Errorf("%w: encode: %v", core.ErrPersist, err)
	}
	err = a.store.Set(ctx, a.Key(username), string(b))
	metrics.SaveOutcome(err)
	if err != nil {
		a.logger.ErrorContext(ctx, "Snapshot save failed",
			log.FieldUsername, username, log.FieldOperation, log.OpSave, log.FieldError, err)
		return fmt.Errorf("%w: %w", core.ErrPersist, err)
	}
	a.logger.DebugContext(ctx, "Snapshot saved",
		log.FieldUsername, username, log.FieldTxCount, len(snap.Transactions))
	return nil
}

// Load returns the stored snapshot for username. found is false when no
// record exists or the record cannot be decoded; in both cases the returned
// snapshot is empty and positioned on the home screen. err is only set
// when the backing store itself fails.
func (a *Adapter) Load(ctx context.Context, username string) (snap core.Snapshot, found bool, err error) {
	key := a.Key(username)
	raw, err := a.store.Get(ctx, key)
	if errors.Is(err, core.ErrNotFound) {
		return core.EmptySnapshot(), false, nil
	}
	if err != nil {
		return core.EmptySnapshot(), false, fmt.Errorf("load %s: %w", key, err)
	}

	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		metrics.CorruptSnapshots.Inc()
		a.logger.WarnContext(ctx, "Stored snapshot is corrupt, starting empty",
			log.FieldUsername, username, log.FieldKey, key, log.FieldError, err)
		return core.EmptySnapshot(), false, nil
	}

	snap = core.EmptySnapshot()
	if rec.Screen.Valid() {
		snap.Screen = rec.Screen
	}
	for i, item := range rec.Transactions {
		var tx core.Transaction
		if err := json.Unmarshal(item, &tx); err != nil {
			a.logger.WarnContext(ctx, "Skipping undecodable transaction",
				log.FieldUsername, username, "index", i, log.FieldError, err)
			continue
		}
		if err := tx.Validate(); err != nil {
			a.logger.WarnContext(ctx, "Skipping invalid transaction",
				log.FieldUsername, username, log.FieldTxID, tx.ID, log.FieldError, err)
			continue
		}
		if c, ok := core.LookupCategory(tx.Category); ok && tx.Type == core.Expense {
			tx.Category = c.ID
		}
		snap.Transactions = append(snap.Transactions, tx)
	}
	return snap, true, nil
}
