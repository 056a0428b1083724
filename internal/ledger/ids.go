package ledger

import (
	"time"

	"zombiefinance/internal/core"
)

// IDGenerator hands out strictly increasing transaction ids close to the
// current time in milliseconds, so two entries created in the same
// millisecond still get distinct ids.
type IDGenerator struct {
	last int64
	now  func() time.Time
}

func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

// Next returns max(nowMillis, last+1).
func (g *IDGenerator) Next() int64 {
	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// Seed makes every future id larger than any id in txs.
func (g *IDGenerator) Seed(txs []core.Transaction) {
	g.last = 0
	for _, t := range txs {
		if t.ID > g.last {
			g.last = t.ID
		}
	}
}

// Last returns the most recently issued or seeded id.
func (g *IDGenerator) Last() int64 { return g.last }

func (g *IDGenerator) restore(last int64) { g.last = last }
