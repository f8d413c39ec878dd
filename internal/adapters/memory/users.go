package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"tradebidz-core-service/internal/domain/shared"
)

// UserDirectory is an in-memory read-only identity lookup
type UserDirectory struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*shared.User
}

func NewUserDirectory() *UserDirectory {
	return &UserDirectory{users: make(map[uuid.UUID]*shared.User)}
}

// Put inserts or replaces a user. Intended for seeding.
func (d *UserDirectory) Put(u *shared.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *u
	d.users[u.ID] = &cp
}

// GetByID retrieves a user by ID
func (d *UserDirectory) GetByID(ctx context.Context, id uuid.UUID) (*shared.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}
