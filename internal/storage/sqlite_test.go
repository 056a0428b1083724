package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"zombiefinance/internal/core"
)

func newTestStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "zombie.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestSQLiteStoreSetGetDelete(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	if _, err := s.Get(ctx, "zombieFinance_alice"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Set(ctx, "zombieFinance_alice", `{"transactions":[]}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "zombieFinance_alice", `{"transactions":[],"screen":"home"}`); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	v, err := s.Get(ctx, "zombieFinance_alice")
	if err != nil || v != `{"transactions":[],"screen":"home"}` {
		t.Fatalf("unexpected get: v=%q err=%v", v, err)
	}
	if err := s.Delete(ctx, "zombieFinance_alice"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "zombieFinance_alice"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	s, path := newTestStore(t)
	if err := s.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	s.Close()

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	v, err := reopened.Get(ctx, "k")
	if err != nil || v != "v" {
		t.Fatalf("value lost across reopen: v=%q err=%v", v, err)
	}
}

func TestSQLiteStoreKeys(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	for _, k := range []string{"zombieFinance_bob", "zombieFinance_alice", "misc"} {
		if err := s.Set(ctx, k, "{}"); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}
	keys, err := s.Keys(ctx, "zombieFinance_")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 || keys[0] != "zombieFinance_alice" || keys[1] != "zombieFinance_bob" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}
