// Package directory exposes the external user directory consumed by the
// messaging core for display names and push targets.
package directory

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhive/messaging-platform/internal/apperr"
)

// User is the directory's view of a user.
type User struct {
	ID        string
	Name      string
	PushToken string // empty when the user has no registered device
}

// Directory resolves user ids to display names and push tokens.
type Directory interface {
	FindUser(ctx context.Context, id string) (*User, error)
}

// Memory is an in-memory Directory for tests and local development.
type Memory struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemory creates an empty in-memory directory.
func NewMemory() *Memory {
	return &Memory{users: make(map[string]User)}
}

// Put adds or replaces a user.
func (m *Memory) Put(u User) {
	m.mu.Lock()
	m.users[u.ID] = u
	m.mu.Unlock()
}

// FindUser returns a user by id.
func (m *Memory) FindUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	u, ok := m.users[id]
	m.mu.RUnlock()

	if !ok {
		return nil, apperr.NotFound("user %s not found", id)
	}
	out := u
	return &out, nil
}

// Postgres is a pgx-backed Directory over the marketplace users table.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres creates a directory over the given pool.
func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// FindUser returns a user by id.
func (p *Postgres) FindUser(ctx context.Context, id string) (*User, error) {
	var u User
	var token *string
	err := p.db.QueryRow(ctx,
		`SELECT id, name, push_token FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &token)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("user %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	if token != nil {
		u.PushToken = *token
	}
	return &u, nil
}
