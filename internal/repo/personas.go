package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"lifeline/internal/domain"
)

const personaColumns = `id,name,description,color,is_active,created_at,updated_at`

type PersonaFilters struct {
	// Active, when set, keeps only personas with that is_active value.
	Active *bool
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPersona(row rowScanner) (domain.Persona, error) {
	var (
		p                    domain.Persona
		desc                 sql.NullString
		active               int
		createdAt, updatedAt string
	)
	if err := row.Scan(&p.ID, &p.Name, &desc, &p.Color, &active, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, ErrNotFound
		}
		return p, err
	}
	if desc.Valid {
		p.Description = desc.String
	}
	p.IsActive = active != 0
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r Repo) InsertPersona(ctx context.Context, tx *sql.Tx, p domain.Persona) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO personas(`+personaColumns+`) VALUES (?,?,?,?,?,?,?)`,
		p.ID, p.Name, nullable(p.Description), p.Color, boolInt(p.IsActive), formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	return err
}

func (r Repo) UpdatePersona(ctx context.Context, tx *sql.Tx, p domain.Persona) error {
	res, err := tx.ExecContext(ctx, `UPDATE personas SET name=?, description=?, color=?, is_active=?, updated_at=? WHERE id=?`,
		p.Name, nullable(p.Description), p.Color, boolInt(p.IsActive), formatTime(p.UpdatedAt), p.ID)
	if err != nil {
		return err
	}
	return affected(res)
}

// DeletePersona removes the persona; workstreams and tasks follow through
// ON DELETE CASCADE.
func (r Repo) DeletePersona(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM personas WHERE id=?`, id)
	if err != nil {
		return err
	}
	return affected(res)
}

func (r Repo) GetPersona(ctx context.Context, id string) (domain.Persona, error) {
	return r.GetPersonaTx(ctx, nil, id)
}

func (r Repo) GetPersonaTx(ctx context.Context, tx *sql.Tx, id string) (domain.Persona, error) {
	return scanPersona(r.on(tx).QueryRowContext(ctx, `SELECT `+personaColumns+` FROM personas WHERE id=?`, id))
}

func (r Repo) ListPersonas(ctx context.Context, f PersonaFilters) ([]domain.Persona, error) {
	var (
		clauses []string
		args    []any
	)
	if f.Active != nil {
		clauses = append(clauses, "is_active=?")
		args = append(args, boolInt(*f.Active))
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+personaColumns+` FROM personas `+where+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Persona{}
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}
