// README: Audit service: persists entries and forwards them to the broker; never fails the caller.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mimoreirac/pi-tercero/internal/logging"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type Service struct {
	repo      Repository
	publisher Publisher
	log       logging.Logger
	now       func() time.Time
}

// NewService builds the audit trail. publisher may be nil when no broker is configured.
func NewService(repo Repository, publisher Publisher, log logging.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, log: log, now: time.Now}
}

// Record appends e and publishes it. Failures are logged, not returned.
func (s *Service) Record(ctx context.Context, e Entry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	if err := s.repo.Append(ctx, &e); err != nil {
		s.log.Error(ctx, "audit append failed", "action", e.Action, "resource_id", e.ResourceID, "err", err)
		return
	}
	if s.publisher == nil {
		return
	}
	body, err := json.Marshal(e)
	if err != nil {
		s.log.Error(ctx, "audit encode failed", "action", e.Action, "err", err)
		return
	}
	if err := s.publisher.Publish(ctx, e.RoutingKey(), body); err != nil {
		s.log.Warn(ctx, "audit publish failed", "routing_key", e.RoutingKey(), "err", err)
	}
}

// ListByUser returns the user's most recent entries. limit is clamped to [1, MaxListLimit].
func (s *Service) ListByUser(ctx context.Context, userID types.ID, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.repo.ListByUser(ctx, userID, limit)
}
