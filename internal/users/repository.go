// Package users is the tenant-scoped user repository over the shared user
// table. Every query is bound to the tenant given at construction.
package users

import "context"

type Repository interface {
	Register(ctx context.Context, reg Registration) (*User, error)
	Authenticate(ctx context.Context, identifier, password string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdateStats(ctx context.Context, id int64, delta StatsDelta) (bool, error)
	ListAll(ctx context.Context) ([]User, error)
	Count(ctx context.Context) (int, error)
	CountAll(ctx context.Context) (int, error)
}

// Committer persists the current in-memory image after a mutation.
type Committer interface {
	Commit(ctx context.Context) error
}

type nopCommitter struct{}

func (nopCommitter) Commit(context.Context) error { return nil }
