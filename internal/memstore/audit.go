package memstore

import (
	"context"
	"sort"

	"github.com/mimoreirac/pi-tercero/internal/modules/audit"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

type Audit struct {
	db *DB
}

var _ audit.Repository = (*Audit)(nil)

func (s *Audit) Append(_ context.Context, e *audit.Entry) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e.ID = int64(len(s.db.audit) + 1)
	s.db.audit = append(s.db.audit, *e)
	return nil
}

func (s *Audit) ListByUser(_ context.Context, userID types.ID, limit int) ([]audit.Entry, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []audit.Entry
	for _, e := range s.db.audit {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Actions returns every recorded action in insertion order.
func (s *Audit) Actions() []audit.Action {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]audit.Action, 0, len(s.db.audit))
	for _, e := range s.db.audit {
		out = append(out, e.Action)
	}
	return out
}
