// README: Audit store backed by PostgreSQL (append-only).
package audit

import (
	"context"
	"fmt"

	"github.com/mimoreirac/pi-tercero/internal/dbx"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

type Store struct {
	db dbx.DBTX
}

func NewStore(db dbx.DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, e *Entry) error {
	row := s.db.QueryRow(ctx, `
		INSERT INTO registro_auditoria (id_usuario, accion, tipo_recurso, id_recurso, detalle, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id_registro`,
		string(e.UserID), string(e.Action), string(e.ResourceType), e.ResourceID, e.Detail, e.CreatedAt,
	)
	if err := row.Scan(&e.ID); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *Store) ListByUser(ctx context.Context, userID types.ID, limit int) ([]Entry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id_registro, id_usuario, accion, tipo_recurso, id_recurso, detalle, created_at
		FROM registro_auditoria
		WHERE id_usuario = $1
		ORDER BY created_at DESC, id_registro DESC
		LIMIT $2`, string(userID), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.ResourceType, &e.ResourceID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
