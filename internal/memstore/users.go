package memstore

import (
	"context"
	"sync"

	"github.com/mimoreirac/pi-tercero/internal/apperr"
	"github.com/mimoreirac/pi-tercero/internal/modules/user"
	"github.com/mimoreirac/pi-tercero/internal/types"
)

type Users struct {
	db *DB
}

var _ user.Repository = (*Users)(nil)

func (s *Users) Create(_ context.Context, u *user.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.uniqueLocked(u.ID, u.ExternalID, u.Email, u.Phone); err != nil {
		return err
	}
	now := s.db.tick()
	u.CreatedAt, u.UpdatedAt = now, now
	s.db.users[u.ID] = cloneUser(u)
	return nil
}

func (s *Users) Get(_ context.Context, id types.ID) (*user.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Users) GetByExternalID(_ context.Context, externalID string) (*user.User, error) {
	return s.find(func(u *user.User) bool { return u.ExternalID == externalID })
}

func (s *Users) GetByEmail(_ context.Context, email string) (*user.User, error) {
	return s.find(func(u *user.User) bool { return u.Email == email })
}

func (s *Users) UpdateProfile(_ context.Context, id types.ID, name string, phone *string) (*user.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	if err := s.uniqueLocked(id, "", "", phone); err != nil {
		return nil, err
	}
	u.Name = name
	u.Phone = clonePtr(phone)
	u.UpdatedAt = s.db.tick()
	return cloneUser(u), nil
}

func (s *Users) Delete(_ context.Context, id types.ID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[id]; !ok {
		return user.ErrNotFound
	}
	delete(s.db.users, id)
	for tid, t := range s.db.trips {
		if t.DriverID == id {
			s.db.deleteTripLocked(tid)
		}
	}
	for rid, r := range s.db.reservations {
		if r.PassengerID == id {
			delete(s.db.reservations, rid)
		}
	}
	for iid, i := range s.db.incidents {
		if i.ReporterID == id {
			delete(s.db.incidents, iid)
		}
	}
	return nil
}

func (s *Users) find(match func(*user.User) bool) (*user.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, user.ErrNotFound
}

// uniqueLocked checks the unique columns against every user except self. Empty values are skipped.
func (s *Users) uniqueLocked(self types.ID, externalID, email string, phone *string) error {
	for id, u := range s.db.users {
		if id == self {
			continue
		}
		switch {
		case externalID != "" && u.ExternalID == externalID:
			return &apperr.DuplicateFieldError{Field: "firebase_uid"}
		case email != "" && u.Email == email:
			return &apperr.DuplicateFieldError{Field: "email"}
		case phone != nil && u.Phone != nil && *u.Phone == *phone:
			return &apperr.DuplicateFieldError{Field: "numero_telefono"}
		}
	}
	return nil
}

func cloneUser(u *user.User) *user.User {
	c := *u
	c.Phone = clonePtr(u.Phone)
	c.PasswordHash = clonePtr(u.PasswordHash)
	return &c
}

// Cache is an in-memory user.Cache.
type Cache struct {
	mu    sync.Mutex
	items map[string]user.User
}

var _ user.Cache = (*Cache)(nil)

func NewCache() *Cache {
	return &Cache{items: map[string]user.User{}}
}

func (c *Cache) Get(_ context.Context, externalID string) (*user.User, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.items[externalID]
	if !ok {
		return nil, false, nil
	}
	return &u, true, nil
}

func (c *Cache) Set(_ context.Context, u *user.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *u
	cp.PasswordHash = nil
	c.items[u.ExternalID] = cp
	return nil
}

func (c *Cache) Delete(_ context.Context, externalID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, externalID)
	return nil
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
