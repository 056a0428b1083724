package ledger

import (
	"strings"
	"time"

	"zombiefinance/internal/core"
)

// Session identifies the user whose ledger is loaded.
type Session struct {
	Username  string
	StartedAt time.Time
}

// NewSession trims username and rejects it when nothing is left.
func NewSession(username string, now time.Time) (Session, error) {
	name := strings.TrimSpace(username)
	if name == "" {
		return Session{}, core.ErrEmptyUsername
	}
	return Session{Username: name, StartedAt: now}, nil
}
