// README: Trip store backed by PostgreSQL (viajes table).
package trip

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/mimoreirac/pi-tercero/internal/dbx"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

// Columns is the select list understood by Scan.
const Columns = `id_viaje, id_conductor, origen, destino, hora_salida, asientos_disponibles,
	descripcion, estado, etiquetas_area, created_at, updated_at`

type Store struct {
	db dbx.DBTX
}

func NewStore(db dbx.DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, t *Trip) error {
	row := s.db.QueryRow(ctx, `
		INSERT INTO viajes (
			id_viaje, id_conductor, origen, destino, hora_salida,
			asientos_disponibles, descripcion, estado, etiquetas_area
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		string(t.ID),
		string(t.DriverID),
		t.Origin,
		t.Destination,
		t.DepartureAt,
		t.SeatsAvailable,
		t.Description,
		string(t.Status),
		t.AreaTags,
	)
	if err := row.Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Trip, error) {
	t, err := Scan(s.db.QueryRow(ctx, `SELECT `+Columns+` FROM viajes WHERE id_viaje = $1`, string(id)))
	if dbx.NoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select trip: %w", err)
	}
	return t, nil
}

func (s *Store) ListActive(ctx context.Context) ([]*Trip, error) {
	return s.list(ctx, `
		SELECT `+Columns+` FROM viajes
		WHERE estado = $1
		ORDER BY hora_salida ASC, id_viaje ASC`, string(StatusActive))
}

func (s *Store) ListByDriver(ctx context.Context, driverID types.ID) ([]*Trip, error) {
	return s.list(ctx, `
		SELECT `+Columns+` FROM viajes
		WHERE id_conductor = $1
		ORDER BY hora_salida DESC, id_viaje ASC`, string(driverID))
}

// Update writes only the whitelisted columns present in changes.
func (s *Store) Update(ctx context.Context, id types.ID, changes Changes) (*Trip, error) {
	if len(changes) == 0 {
		return s.Get(ctx, id)
	}
	sets := make([]string, 0, len(changes)+1)
	args := make([]any, 0, len(changes)+1)
	for _, field := range MutableFields {
		v, ok := changes[field]
		if !ok {
			continue
		}
		if st, isStatus := v.(Status); isStatus {
			v = string(st)
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", field, len(args)))
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, string(id))

	query := fmt.Sprintf(`UPDATE viajes SET %s WHERE id_viaje = $%d RETURNING `+Columns,
		strings.Join(sets, ", "), len(args))
	t, err := Scan(s.db.QueryRow(ctx, query, args...))
	if dbx.NoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update trip: %w", err)
	}
	return t, nil
}

func (s *Store) Delete(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM viajes WHERE id_viaje = $1`, string(id))
	if err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*Trip, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	defer rows.Close()

	var out []*Trip
	for rows.Next() {
		t, err := Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Scan reads one row selected with Columns.
func Scan(row pgx.Row) (*Trip, error) {
	var t Trip
	err := row.Scan(
		&t.ID, &t.DriverID, &t.Origin, &t.Destination, &t.DepartureAt, &t.SeatsAvailable,
		&t.Description, &t.Status, &t.AreaTags, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
