package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// DefaultActor is recorded when a mutation carries no authenticated actor.
const DefaultActor = "local-user"

// Event types.
const (
	ProgramCreated = "program.created"
	ProgramUpdated = "program.updated"
	ProgramDeleted = "program.deleted"
	IdeaCreated    = "idea.created"
	IdeaPromoted   = "idea.promoted"
	IdeaDeleted    = "idea.deleted"
	AxisCreated    = "axis.created"
	AxisDeleted    = "axis.deleted"
	AxesResynced   = "axes.resynced"
	IdeasResynced  = "ideas.resynced"
	APIKeyCreated  = "api_key.created"
	APIKeyRevoked  = "api_key.revoked"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

// Append records an event inside tx so it commits with the change it describes.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, entityKind, entityID, actorID string, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	if actorID == "" {
		actorID = DefaultActor
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?)`,
		ts, evtType, entityKind, nullable(entityID), actorID, string(data))
	if err != nil {
		return fmt.Errorf("append event %s: %w", evtType, err)
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
