package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"lifeline/internal/domain"
	"lifeline/internal/status"
)

const taskSelect = `SELECT t.id,t.workstream_id,t.title,t.description,t.status,t.priority,t.created_at,t.updated_at,t.completed_at,t.due_date,
COALESCE(w.name,''),COALESCE(w.persona_id,''),COALESCE(p.color,'')
FROM tasks t
LEFT JOIN workstreams w ON w.id = t.workstream_id
LEFT JOIN personas p ON p.id = w.persona_id`

type TaskFilters struct {
	WorkstreamID string
	PersonaID    string
	Limit        int
}

func scanTask(row rowScanner) (domain.Task, error) {
	var (
		t                    domain.Task
		desc, completedAt    sql.NullString
		dueDate              sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&t.ID, &t.WorkstreamID, &t.Title, &desc, &t.Status, &t.Priority, &createdAt, &updatedAt, &completedAt, &dueDate,
		&t.WorkstreamName, &t.PersonaID, &t.PersonaColor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, ErrNotFound
		}
		return t, err
	}
	if desc.Valid {
		t.Description = desc.String
	}
	t.DueDate = dueDate.String
	t.Status = status.Task(t.Status)
	t.Priority = status.Priority(t.Priority)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	if completedAt.Valid && completedAt.String != "" {
		ts := parseTime(completedAt.String)
		t.CompletedAt = &ts
	}
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tasks(id,workstream_id,title,description,status,priority,created_at,updated_at,completed_at,due_date) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.WorkstreamID, t.Title, nullable(t.Description), t.Status, t.Priority,
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt), nullableTime(t.CompletedAt), nullable(t.DueDate))
	return err
}

func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET title=?, description=?, status=?, priority=?, updated_at=?, completed_at=?, due_date=? WHERE id=?`,
		t.Title, nullable(t.Description), t.Status, t.Priority, formatTime(t.UpdatedAt), nullableTime(t.CompletedAt), nullable(t.DueDate), t.ID)
	if err != nil {
		return err
	}
	return affected(res)
}

func (r Repo) DeleteTask(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affected(res)
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return r.GetTaskTx(ctx, nil, id)
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id string) (domain.Task, error) {
	return scanTask(r.on(tx).QueryRowContext(ctx, taskSelect+` WHERE t.id=?`, id))
}

// ListTasks lists tasks newest first. Status filtering is left to callers
// because stored values are only normalized on read.
func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	var (
		clauses []string
		args    []any
	)
	if f.WorkstreamID != "" {
		clauses = append(clauses, "t.workstream_id=?")
		args = append(args, f.WorkstreamID)
	}
	if f.PersonaID != "" {
		clauses = append(clauses, "w.persona_id=?")
		args = append(args, f.PersonaID)
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}
	query := taskSelect + where + ` ORDER BY t.created_at DESC, t.id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// CountTasksByStatus groups by the stored status value, optionally within
// one workstream. Keys are raw and may need normalizing.
func (r Repo) CountTasksByStatus(ctx context.Context, workstreamID string) (map[string]int, error) {
	query := `SELECT status, count(*) FROM tasks`
	var args []any
	if workstreamID != "" {
		query += ` WHERE workstream_id=?`
		args = append(args, workstreamID)
	}
	rows, err := r.DB.QueryContext(ctx, query+` GROUP BY status`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var s string
		var count int
		if err := rows.Scan(&s, &count); err != nil {
			return nil, err
		}
		res[s] = count
	}
	return res, rows.Err()
}

// CountTasksInWorkstream counts the tasks a workstream owns.
func (r Repo) CountTasksInWorkstream(ctx context.Context, tx *sql.Tx, workstreamID string) (int, error) {
	var n int
	err := r.on(tx).QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE workstream_id=?`, workstreamID).Scan(&n)
	return n, err
}

// CountTasksForPersona counts tasks across all of a persona's workstreams.
func (r Repo) CountTasksForPersona(ctx context.Context, tx *sql.Tx, personaID string) (int, error) {
	var n int
	err := r.on(tx).QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks t JOIN workstreams w ON w.id = t.workstream_id WHERE w.persona_id=?`, personaID).Scan(&n)
	return n, err
}
