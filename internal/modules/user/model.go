// README: User model, repository contract and error values for the identity resolver.
package user

import (
	"context"
	"time"

	"github.com/mimoreirac/pi-tercero/internal/apperr"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

// LocalSubjectPrefix marks external ids minted for password accounts.
const LocalSubjectPrefix = "local:"

var ErrNotFound = apperr.NotFound("user not found")

type User struct {
	ID           types.ID  `json:"id_usuario"`
	ExternalID   string    `json:"firebase_uid"`
	Email        string    `json:"email"`
	Name         string    `json:"nombre"`
	Phone        *string   `json:"numero_telefono"`
	PasswordHash *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity is the caller view of u handed to the other modules.
func (u *User) Identity() types.Identity {
	return types.Identity{
		UserID:     u.ID,
		ExternalID: u.ExternalID,
		Email:      u.Email,
		Name:       u.Name,
	}
}

// PublicProfile is what other users may see.
type PublicProfile struct {
	ID   types.ID `json:"id_usuario"`
	Name string   `json:"nombre"`
}

func (u *User) Public() PublicProfile {
	return PublicProfile{ID: u.ID, Name: u.Name}
}

// Repository persists users. Unique violations come back as *apperr.DuplicateFieldError.
type Repository interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id types.ID) (*User, error)
	GetByExternalID(ctx context.Context, externalID string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, id types.ID, name string, phone *string) (*User, error)
	Delete(ctx context.Context, id types.ID) error
}

// Cache holds users keyed by external id in front of the repository.
type Cache interface {
	Get(ctx context.Context, externalID string) (*User, bool, error)
	Set(ctx context.Context, u *User) error
	Delete(ctx context.Context, externalID string) error
}

type ProfileUpdate struct {
	Name  *string
	Phone *string
}

type RegisterCommand struct {
	Email    string
	Name     string
	Phone    *string
	Password string
}
