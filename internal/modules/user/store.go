// README: User store backed by PostgreSQL (usuarios table).
package user

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mimoreirac/pi-tercero/internal/apperr"
	"github.com/mimoreirac/pi-tercero/internal/dbx"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

const userColumns = `id_usuario, firebase_uid, email, nombre, numero_telefono, password_hash, created_at, updated_at`

// constraintFields maps unique constraint names to the wire field they protect.
var constraintFields = map[string]string{
	"usuarios_email_key":           "email",
	"usuarios_numero_telefono_key": "numero_telefono",
	"usuarios_firebase_uid_key":    "firebase_uid",
}

type Store struct {
	db dbx.DBTX
}

func NewStore(db dbx.DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, u *User) error {
	row := s.db.QueryRow(ctx, `
		INSERT INTO usuarios (id_usuario, firebase_uid, email, nombre, numero_telefono, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		string(u.ID), u.ExternalID, u.Email, u.Name, u.Phone, u.PasswordHash,
	)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return mapWriteError("insert user", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id types.ID) (*User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM usuarios WHERE id_usuario = $1`, string(id))
}

func (s *Store) GetByExternalID(ctx context.Context, externalID string) (*User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM usuarios WHERE firebase_uid = $1`, externalID)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.getOne(ctx, `SELECT `+userColumns+` FROM usuarios WHERE email = $1`, email)
}

func (s *Store) UpdateProfile(ctx context.Context, id types.ID, name string, phone *string) (*User, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE usuarios
		SET nombre = $1, numero_telefono = $2, updated_at = NOW()
		WHERE id_usuario = $3
		RETURNING `+userColumns,
		name, phone, string(id),
	)
	u, err := scanUser(row)
	if dbx.NoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, mapWriteError("update user", err)
	}
	return u, nil
}

func (s *Store) Delete(ctx context.Context, id types.ID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM usuarios WHERE id_usuario = $1`, string(id))
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) getOne(ctx context.Context, query string, arg any) (*User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, query, arg))
	if dbx.NoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.ExternalID, &u.Email, &u.Name, &u.Phone, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func mapWriteError(op string, err error) error {
	if constraint, ok := dbx.UniqueViolation(err); ok {
		if field, known := constraintFields[constraint]; known {
			return &apperr.DuplicateFieldError{Field: field}
		}
		return &apperr.DuplicateFieldError{Field: constraint}
	}
	return fmt.Errorf("%s: %w", op, err)
}
