// README: Incident store backed by PostgreSQL (incidentes table).
package incident

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mimoreirac/pi-tercero/internal/dbx"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

const incidentColumns = `i.id_incidente, i.id_viaje, i.id_reportador, i.tipo_incidente, i.descripcion, i.estado, i.created_at, i.updated_at`

type Store struct {
	db dbx.DBTX
}

func NewStore(db dbx.DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, i *Incident) error {
	row := s.db.QueryRow(ctx, `
		INSERT INTO incidentes (id_incidente, id_viaje, id_reportador, tipo_incidente, descripcion, estado)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		string(i.ID), string(i.TripID), string(i.ReporterID), string(i.Category), i.Description, string(i.Status),
	)
	if err := row.Scan(&i.CreatedAt, &i.UpdatedAt); err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Incident, error) {
	var i Incident
	err := s.db.QueryRow(ctx,
		`SELECT `+incidentColumns+` FROM incidentes i WHERE i.id_incidente = $1`, string(id),
	).Scan(incidentDest(&i)...)
	if dbx.NoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select incident: %w", err)
	}
	return &i, nil
}

func (s *Store) ListByTrip(ctx context.Context, tripID types.ID) ([]*TripIncident, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+incidentColumns+`, u.nombre
		FROM incidentes i
		JOIN usuarios u ON u.id_usuario = i.id_reportador
		WHERE i.id_viaje = $1
		ORDER BY i.created_at DESC, i.id_incidente ASC`, string(tripID))
	if err != nil {
		return nil, fmt.Errorf("list trip incidents: %w", err)
	}
	return collect(rows, func(row pgx.Rows) (*TripIncident, error) {
		var ti TripIncident
		err := row.Scan(append(incidentDest(&ti.Incident), &ti.ReporterName)...)
		return &ti, err
	})
}

func (s *Store) ListByReporter(ctx context.Context, reporterID types.ID) ([]*ReporterIncident, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+incidentColumns+`, v.origen, v.destino, v.hora_salida
		FROM incidentes i
		JOIN viajes v ON v.id_viaje = i.id_viaje
		WHERE i.id_reportador = $1
		ORDER BY i.created_at DESC, i.id_incidente ASC`, string(reporterID))
	if err != nil {
		return nil, fmt.Errorf("list reporter incidents: %w", err)
	}
	return collect(rows, func(row pgx.Rows) (*ReporterIncident, error) {
		var ri ReporterIncident
		err := row.Scan(append(incidentDest(&ri.Incident), &ri.Origin, &ri.Destination, &ri.DepartureAt)...)
		return &ri, err
	})
}

func (s *Store) Update(ctx context.Context, in *Incident) (*Incident, error) {
	var out Incident
	err := s.db.QueryRow(ctx, `
		UPDATE incidentes i
		SET tipo_incidente = $1, descripcion = $2, estado = $3, updated_at = NOW()
		WHERE i.id_incidente = $4
		RETURNING `+incidentColumns,
		string(in.Category), in.Description, string(in.Status), string(in.ID),
	).Scan(incidentDest(&out)...)
	if dbx.NoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}
	return &out, nil
}

func (s *Store) Delete(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM incidentes WHERE id_incidente = $1`, string(id))
	if err != nil {
		return fmt.Errorf("delete incident: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func incidentDest(i *Incident) []any {
	return []any{&i.ID, &i.TripID, &i.ReporterID, &i.Category, &i.Description, &i.Status, &i.CreatedAt, &i.UpdatedAt}
}

func collect[T any](rows pgx.Rows, scan func(pgx.Rows) (*T, error)) ([]*T, error) {
	defer rows.Close()
	var out []*T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
