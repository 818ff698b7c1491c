// README: Identity resolver: maps verified credentials to internal users; profile and password-account flows.
package user

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mimoreirac/pi-tercero/internal/apperr"
	"github.com/mimoreirac/pi-tercero/internal/logging"
	"github.com/mimoreirac/pi-tercero/internal/modules/audit"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

const minPasswordLen = 8

var errBadLogin = apperr.Unauthenticated("invalid email or password")

type Auditor interface {
	Record(ctx context.Context, e audit.Entry)
}

type Service struct {
	repo       Repository
	cache      Cache
	auditor    Auditor
	log        logging.Logger
	bcryptCost int
}

// NewService wires the resolver. cache and auditor may be nil.
func NewService(repo Repository, cache Cache, auditor Auditor, log logging.Logger) *Service {
	return &Service{
		repo:       repo,
		cache:      cache,
		auditor:    auditor,
		log:        log,
		bcryptCost: bcrypt.DefaultCost,
	}
}

// SetBcryptCost overrides the hashing cost; tests lower it to keep runs fast.
func (s *Service) SetBcryptCost(cost int) {
	s.bcryptCost = cost
}

// ResolveOrCreate returns the user bound to cred, inserting one on first sight.
// created reports whether a row was inserted.
func (s *Service) ResolveOrCreate(ctx context.Context, cred types.Credential, phone *string) (*User, bool, error) {
	if cred.Subject == "" {
		return nil, false, apperr.Unauthenticated("credential has no subject")
	}
	u, err := s.repo.GetByExternalID(ctx, cred.Subject)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	email := normalizeEmail(cred.Email)
	if email == "" {
		return nil, false, apperr.InvalidInput("credential carries no email")
	}
	u = &User{
		ID:         types.ID(uuid.NewString()),
		ExternalID: cred.Subject,
		Email:      email,
		Name:       displayName(cred.Name, email),
		Phone:      normalizePhone(phone),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		// A concurrent sync of the same credential won the insert.
		if field, ok := apperr.DuplicateField(err); ok && field == "firebase_uid" {
			existing, getErr := s.repo.GetByExternalID(ctx, cred.Subject)
			if getErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}
	s.record(ctx, u.ID, audit.ActionUserCreated, u.ID)
	return u, true, nil
}

// Lookup resolves an external id without creating anything.
func (s *Service) Lookup(ctx context.Context, externalID string) (*User, error) {
	if s.cache != nil {
		u, ok, err := s.cache.Get(ctx, externalID)
		if err != nil {
			s.log.Warn(ctx, "user cache get failed", "err", err)
		}
		if ok {
			return u, nil
		}
	}
	u, err := s.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, u); err != nil {
			s.log.Warn(ctx, "user cache set failed", "err", err)
		}
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*User, error) {
	return s.repo.Get(ctx, id)
}

// UpdateProfile changes the caller's own name and phone. An empty phone clears it.
func (s *Service) UpdateProfile(ctx context.Context, caller types.Identity, upd ProfileUpdate) (*User, error) {
	current, err := s.repo.Get(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	name := current.Name
	if upd.Name != nil {
		name = strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, apperr.InvalidInput("nombre must not be empty")
		}
	}
	phone := current.Phone
	if upd.Phone != nil {
		phone = normalizePhone(upd.Phone)
	}
	u, err := s.repo.UpdateProfile(ctx, caller.UserID, name, phone)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, caller.ExternalID)
	return u, nil
}

// Delete removes the caller's account; dependent trips, reservations and incidents go with it.
func (s *Service) Delete(ctx context.Context, caller types.Identity) error {
	if err := s.repo.Delete(ctx, caller.UserID); err != nil {
		return err
	}
	s.invalidate(ctx, caller.ExternalID)
	s.record(ctx, caller.UserID, audit.ActionUserDeleted, caller.UserID)
	return nil
}

// Register creates a password account. Only used when the server runs in local auth mode.
func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*User, error) {
	email := normalizeEmail(cmd.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.InvalidInput("a valid email is required")
	}
	if len(cmd.Password) < minPasswordLen {
		return nil, apperr.InvalidInput("password must be at least %d characters", minPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), s.bcryptCost)
	if err != nil {
		return nil, err
	}
	h := string(hash)
	u := &User{
		ID:           types.ID(uuid.NewString()),
		ExternalID:   LocalSubjectPrefix + uuid.NewString(),
		Email:        email,
		Name:         displayName(cmd.Name, email),
		Phone:        normalizePhone(cmd.Phone),
		PasswordHash: &h,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	s.record(ctx, u.ID, audit.ActionUserCreated, u.ID)
	return u, nil
}

// Login checks a password account's credentials. Every failure looks the same to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil, errBadLogin
	}
	if err != nil {
		return nil, err
	}
	if u.PasswordHash == nil {
		return nil, errBadLogin
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(password)); err != nil {
		return nil, errBadLogin
	}
	return u, nil
}

func (s *Service) invalidate(ctx context.Context, externalID string) {
	if s.cache == nil || externalID == "" {
		return
	}
	if err := s.cache.Delete(ctx, externalID); err != nil {
		s.log.Warn(ctx, "user cache invalidate failed", "err", err)
	}
}

func (s *Service) record(ctx context.Context, actor types.ID, action audit.Action, id types.ID) {
	if s.auditor == nil {
		return
	}
	s.auditor.Record(ctx, audit.Entry{
		UserID:       actor,
		Action:       action,
		ResourceType: audit.ResourceUser,
		ResourceID:   id.String(),
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizePhone(phone *string) *string {
	if phone == nil {
		return nil
	}
	p := strings.TrimSpace(*phone)
	if p == "" {
		return nil
	}
	return &p
}

// displayName falls back to the local part of the email when the credential has no name.
func displayName(name, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
