package sqlite

import (
	"context"
	"fmt"

	"doorkeeper/internal/domain/event"

	"golang.org/x/exp/slog"
)

type EventRepository struct {
	db  *Storage
	log *slog.Logger
}

func NewEventRepository(db *Storage, log *slog.Logger) *EventRepository {
	return &EventRepository{
		db:  db,
		log: log,
	}
}

func (r *EventRepository) Save(ctx context.Context, e event.Event) error {
	_, err := r.db.DB().ExecContext(ctx,
		`INSERT INTO events (id, at, action, card_id, outcome)
         VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.At.UTC(), string(e.Action), int64(e.CardID), e.Outcome)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (r *EventRepository) List(ctx context.Context, limit int) ([]event.Event, error) {
	rows, err := r.db.DB().QueryContext(ctx,
		`SELECT id, at, action, card_id, outcome FROM events
         ORDER BY at DESC, id DESC
         LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := make([]event.Event, 0, limit)
	for rows.Next() {
		var (
			e      event.Event
			action string
			cardID int64
		)
		if err := rows.Scan(&e.ID, &e.At, &action, &cardID, &e.Outcome); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Action = event.Action(action)
		e.CardID = uint32(cardID)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}
