package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Event types written by the engine.
const (
	PersonaCreated    = "persona.created"
	PersonaUpdated    = "persona.updated"
	PersonaDeleted    = "persona.deleted"
	WorkstreamCreated = "workstream.created"
	WorkstreamUpdated = "workstream.updated"
	WorkstreamDeleted = "workstream.deleted"
	TaskCreated       = "task.created"
	TaskUpdated       = "task.updated"
	TaskStatusUpdated = "task.status.updated"
	TaskDeleted       = "task.deleted"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type Payload map[string]any

// Append records an activity event inside tx.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, entityKind, entityID string, payload Payload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339Nano)
	if payload == nil {
		payload = Payload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,entity_kind,entity_id,payload_json) VALUES (?,?,?,?,?)`,
		ts, evtType, entityKind, nullable(entityID), string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
