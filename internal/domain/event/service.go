package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

var ErrInvalidLimit = errors.New("invalid limit")

type Repository interface {
	Save(ctx context.Context, e Event) error
	List(ctx context.Context, limit int) ([]Event, error)
}

type Servicer interface {
	Record(ctx context.Context, action Action, cardID uint32, outcome string)
	List(ctx context.Context, limit int) ([]Event, error)
}

type Service struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With("component", "journal"),
		now:  time.Now,
	}
}

// Record stores an event. A journal failure never fails the card operation, so it is
// only logged.
func (s *Service) Record(ctx context.Context, action Action, cardID uint32, outcome string) {
	id, err := uuid.NewV7()
	if err != nil {
		s.log.Error("generate event id", "error", err)
		return
	}

	e := Event{
		ID:      id.String(),
		At:      s.now().UTC(),
		Action:  action,
		CardID:  cardID,
		Outcome: outcome,
	}

	if err := s.repo.Save(ctx, e); err != nil {
		s.log.Error("failed to save event", "action", action, "card_id", cardID, "error", err)
	}
}

// List returns up to limit events, newest first. limit 0 means DefaultLimit.
func (s *Service) List(ctx context.Context, limit int) ([]Event, error) {
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 0 || limit > MaxLimit {
		return nil, fmt.Errorf("%w: %d, want 1..%d", ErrInvalidLimit, limit, MaxLimit)
	}

	events, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	return events, nil
}
