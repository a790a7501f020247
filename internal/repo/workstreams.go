package repo

import (
	"context"
	"database/sql"
	"errors"

	"lifeline/internal/domain"
	"lifeline/internal/status"
)

const workstreamSelect = `SELECT w.id,w.persona_id,w.name,w.description,w.status,w.priority,w.created_at,w.updated_at,
COALESCE(p.name,''),COALESCE(p.color,'')
FROM workstreams w LEFT JOIN personas p ON p.id = w.persona_id`

// scanWorkstream also normalizes status and priority, since older rows may
// carry quoted or mixed-case values.
func scanWorkstream(row rowScanner) (domain.Workstream, error) {
	var (
		ws                   domain.Workstream
		desc                 sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&ws.ID, &ws.PersonaID, &ws.Name, &desc, &ws.Status, &ws.Priority, &createdAt, &updatedAt,
		&ws.PersonaName, &ws.PersonaColor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ws, ErrNotFound
		}
		return ws, err
	}
	if desc.Valid {
		ws.Description = desc.String
	}
	ws.Status = status.Workstream(ws.Status)
	ws.Priority = status.Priority(ws.Priority)
	ws.CreatedAt = parseTime(createdAt)
	ws.UpdatedAt = parseTime(updatedAt)
	return ws, nil
}

func (r Repo) InsertWorkstream(ctx context.Context, tx *sql.Tx, ws domain.Workstream) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO workstreams(id,persona_id,name,description,status,priority,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		ws.ID, ws.PersonaID, ws.Name, nullable(ws.Description), ws.Status, ws.Priority, formatTime(ws.CreatedAt), formatTime(ws.UpdatedAt))
	return err
}

func (r Repo) UpdateWorkstream(ctx context.Context, tx *sql.Tx, ws domain.Workstream) error {
	res, err := tx.ExecContext(ctx, `UPDATE workstreams SET name=?, description=?, status=?, priority=?, updated_at=? WHERE id=?`,
		ws.Name, nullable(ws.Description), ws.Status, ws.Priority, formatTime(ws.UpdatedAt), ws.ID)
	if err != nil {
		return err
	}
	return affected(res)
}

func (r Repo) DeleteWorkstream(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM workstreams WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affected(res)
}

func (r Repo) GetWorkstream(ctx context.Context, id string) (domain.Workstream, error) {
	return r.GetWorkstreamTx(ctx, nil, id)
}

func (r Repo) GetWorkstreamTx(ctx context.Context, tx *sql.Tx, id string) (domain.Workstream, error) {
	return scanWorkstream(r.on(tx).QueryRowContext(ctx, workstreamSelect+` WHERE w.id=?`, id))
}

// ListWorkstreams lists workstreams, newest first, optionally for one persona.
func (r Repo) ListWorkstreams(ctx context.Context, personaID string) ([]domain.Workstream, error) {
	query := workstreamSelect
	var args []any
	if personaID != "" {
		query += ` WHERE w.persona_id=?`
		args = append(args, personaID)
	}
	rows, err := r.DB.QueryContext(ctx, query+` ORDER BY w.created_at DESC, w.id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Workstream{}
	for rows.Next() {
		ws, err := scanWorkstream(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, ws)
	}
	return res, rows.Err()
}

// CountWorkstreams counts the workstreams a persona owns.
func (r Repo) CountWorkstreams(ctx context.Context, tx *sql.Tx, personaID string) (int, error) {
	var n int
	err := r.on(tx).QueryRowContext(ctx, `SELECT COUNT(*) FROM workstreams WHERE persona_id=?`, personaID).Scan(&n)
	return n, err
}
