// README: Reservation store backed by PostgreSQL; strict-mode creation runs in a serializable tx.
package reservation

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mimoreirac/pi-tercero/internal/dbx"
	"github.com/mimoreirac/pi-tercero/internal/modules/trip"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

const (
	reservationColumns = `id_reserva, id_viaje, id_pasajero, estado, created_at, updated_at`

	// partial unique index over (id_pasajero, id_viaje) for pendiente/confirmada rows
	activeReservationIndex = "reservas_pasajero_viaje_activa_key"
)

type Store struct {
	db dbx.DB
}

func NewStore(db dbx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, r *Reservation) error {
	return insert(ctx, s.db, r)
}

func (s *Store) CreateLocked(ctx context.Context, r *Reservation, check CreateCheck) error {
	err := dbx.WithTx(ctx, s.db, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(ctx context.Context, tx pgx.Tx) error {
		t, err := trip.Scan(tx.QueryRow(ctx,
			`SELECT `+trip.Columns+` FROM viajes WHERE id_viaje = $1 FOR UPDATE`, string(r.TripID)))
		if dbx.NoRows(err) {
			return trip.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock trip: %w", err)
		}
		hasActive, err := exists(ctx, tx, `
			SELECT EXISTS (
				SELECT 1 FROM reservas
				WHERE id_pasajero = $1 AND id_viaje = $2 AND estado IN ('pendiente', 'confirmada')
			)`, r.PassengerID, r.TripID)
		if err != nil {
			return err
		}
		if err := check(t, hasActive); err != nil {
			return err
		}
		if err := insert(ctx, tx, r); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE viajes
			SET asientos_disponibles = asientos_disponibles - 1, updated_at = NOW()
			WHERE id_viaje = $1`, string(r.TripID)); err != nil {
			return fmt.Errorf("take seat: %w", err)
		}
		return nil
	})
	if dbx.SerializationFailure(err) {
		return ErrConflict
	}
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Reservation, error) {
	r, err := scanReservation(s.db.QueryRow(ctx,
		`SELECT `+reservationColumns+` FROM reservas WHERE id_reserva = $1`, string(id)))
	if dbx.NoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select reservation: %w", err)
	}
	return r, nil
}

func (s *Store) UpdateStatus(ctx context.Context, r *Reservation, to Status, releaseSeat bool) (*Reservation, error) {
	var updated *Reservation
	apply := func(ctx context.Context, q dbx.DBTX) error {
		var err error
		updated, err = scanReservation(q.QueryRow(ctx, `
			UPDATE reservas
			SET estado = $1, updated_at = NOW()
			WHERE id_reserva = $2 AND estado = $3
			RETURNING `+reservationColumns,
			string(to), string(r.ID), string(r.Status),
		))
		if dbx.NoRows(err) {
			return ErrConflict
		}
		if err != nil {
			return fmt.Errorf("update reservation: %w", err)
		}
		if !releaseSeat {
			return nil
		}
		if _, err := q.Exec(ctx, `
			UPDATE viajes
			SET asientos_disponibles = asientos_disponibles + 1, updated_at = NOW()
			WHERE id_viaje = $1`, string(r.TripID)); err != nil {
			return fmt.Errorf("release seat: %w", err)
		}
		return nil
	}

	if !releaseSeat {
		if err := apply(ctx, s.db); err != nil {
			return nil, err
		}
		return updated, nil
	}
	err := dbx.WithTx(ctx, s.db, pgx.TxOptions{}, func(ctx context.Context, tx pgx.Tx) error {
		return apply(ctx, tx)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) HasActive(ctx context.Context, passengerID, tripID types.ID) (bool, error) {
	return exists(ctx, s.db, `
		SELECT EXISTS (
			SELECT 1 FROM reservas
			WHERE id_pasajero = $1 AND id_viaje = $2 AND estado IN ('pendiente', 'confirmada')
		)`, passengerID, tripID)
}

func (s *Store) HasConfirmed(ctx context.Context, passengerID, tripID types.ID) (bool, error) {
	return exists(ctx, s.db, `
		SELECT EXISTS (
			SELECT 1 FROM reservas
			WHERE id_pasajero = $1 AND id_viaje = $2 AND estado = 'confirmada'
		)`, passengerID, tripID)
}

func (s *Store) ListActiveByTrip(ctx context.Context, tripID types.ID) ([]*Reservation, error) {
	return s.list(ctx, `
		SELECT `+reservationColumns+` FROM reservas
		WHERE id_viaje = $1 AND estado NOT IN ('rechazada', 'cancelada')
		ORDER BY created_at ASC, id_reserva ASC`, string(tripID))
}

func (s *Store) ListByPassenger(ctx context.Context, passengerID types.ID) ([]*Reservation, error) {
	return s.list(ctx, `
		SELECT `+reservationColumns+` FROM reservas
		WHERE id_pasajero = $1
		ORDER BY created_at DESC, id_reserva ASC`, string(passengerID))
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*Reservation, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var out []*Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func insert(ctx context.Context, q dbx.DBTX, r *Reservation) error {
	row := q.QueryRow(ctx, `
		INSERT INTO reservas (id_reserva, id_viaje, id_pasajero, estado)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		string(r.ID), string(r.TripID), string(r.PassengerID), string(r.Status),
	)
	if err := row.Scan(&r.CreatedAt, &r.UpdatedAt); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func exists(ctx context.Context, q dbx.DBTX, query string, passengerID, tripID types.ID) (bool, error) {
	var ok bool
	if err := q.QueryRow(ctx, query, string(passengerID), string(tripID)).Scan(&ok); err != nil {
		return false, fmt.Errorf("reservation exists: %w", err)
	}
	return ok, nil
}

func scanReservation(row pgx.Row) (*Reservation, error) {
	var r Reservation
	if err := row.Scan(&r.ID, &r.TripID, &r.PassengerID, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func mapWriteError(err error) error {
	if constraint, ok := dbx.UniqueViolation(err); ok && constraint == activeReservationIndex {
		return ErrDuplicate
	}
	if dbx.SerializationFailure(err) {
		return ErrConflict
	}
	return fmt.Errorf("insert reservation: %w", err)
}
