package repo

import (
	"context"
	"database/sql"

	"github.com/Masterminds/squirrel"

	"plurianual/internal/domain"
)

type EventFilters struct {
	Type       string
	EntityKind string
	EntityID   string
	// Cursor returns events older than this id.
	Cursor int64
	Limit  int
}

var eventColumns = []string{"id", "ts", "type", "entity_kind", "entity_id", "actor_id", "payload_json"}

// LatestEvents returns the newest events first.
func (r Repo) LatestEvents(ctx context.Context, f EventFilters) ([]domain.Event, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	sel := builder.Select(eventColumns...).From("events").OrderBy("id DESC").Limit(uint64(f.Limit))
	if f.Type != "" {
		sel = sel.Where(squirrel.Eq{"type": f.Type})
	}
	if f.EntityKind != "" {
		sel = sel.Where(squirrel.Eq{"entity_kind": f.EntityKind})
	}
	if f.EntityID != "" {
		sel = sel.Where(squirrel.Eq{"entity_id": f.EntityID})
	}
	if f.Cursor > 0 {
		sel = sel.Where(squirrel.Lt{"id": f.Cursor})
	}
	return r.events(ctx, sel)
}

// EventsAfter returns events with IDs greater than the cursor in ascending order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	sel := builder.Select(eventColumns...).From("events").OrderBy("id ASC").Limit(uint64(limit))
	if cursor > 0 {
		sel = sel.Where(squirrel.Gt{"id": cursor})
	}
	return r.events(ctx, sel)
}

// LatestEventID returns the most recent event ID, 0 when there are none.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events`).Scan(&id)
	return id, err
}

func (r Repo) events(ctx context.Context, sel squirrel.SelectBuilder) ([]domain.Event, error) {
	rows, err := query(ctx, r.DB, sel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Event{}
	for rows.Next() {
		var e domain.Event
		var entityID sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &entityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		e.EntityID = entityID.String
		res = append(res, e)
	}
	return res, rows.Err()
}
