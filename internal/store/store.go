// Package store is the entry point of a sitestore instance: it bootstraps
// the working database, brings the schema up to date, seeds an empty tenant
// and exposes the tenant's user repository.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/sitestore/internal/bootstrap"
	"github.com/dmitrijs2005/sitestore/internal/common"
	"github.com/dmitrijs2005/sitestore/internal/config"
	"github.com/dmitrijs2005/sitestore/internal/cryptox"
	"github.com/dmitrijs2005/sitestore/internal/engine"
	"github.com/dmitrijs2005/sitestore/internal/filex"
	"github.com/dmitrijs2005/sitestore/internal/kvstore"
	"github.com/dmitrijs2005/sitestore/internal/logging"
	"github.com/dmitrijs2005/sitestore/internal/persistence"
	"github.com/dmitrijs2005/sitestore/internal/schema"
	"github.com/dmitrijs2005/sitestore/internal/snapshot"
	"github.com/dmitrijs2005/sitestore/internal/users"
	"github.com/google/uuid"
)

// Status describes the store for health reporting.
type Status struct {
	Loaded             bool   `json:"loaded"`
	HasDatabase        bool   `json:"hasDatabase"`
	Tenant             string `json:"tenant"`
	Source             string `json:"source,omitempty"`
	Degraded           bool   `json:"degraded"`
	UserCountForTenant int    `json:"userCountForTenant"`
	TotalUserCount     int    `json:"totalUserCount"`
}

type Option func(*Store)

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithHasher(h cryptox.PasswordHasher) Option {
	return func(s *Store) { s.hasher = h }
}

// WithFetcher replaces the remote snapshot backend chosen by the config.
func WithFetcher(f snapshot.Fetcher) Option {
	return func(s *Store) { s.fetcher = f }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

type Store struct {
	cfg     *config.Config
	id      string
	logger  logging.Logger
	hasher  cryptox.PasswordHasher
	fetcher snapshot.Fetcher
	now     func() time.Time

	mu       sync.RWMutex
	opened   bool
	closed   bool
	kvDB     *sql.DB
	engine   *engine.Engine
	repo     *users.SQLiteRepository
	origin   bootstrap.Origin
	degraded bool
}

// New prepares a store for cfg. Nothing is read until Open.
func New(cfg *config.Config, opts ...Option) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is required", common.ErrValidation)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Store{
		cfg:    cfg,
		id:     uuid.NewString(),
		logger: logging.Discard(),
		hasher: cryptox.NewArgon2(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("tenant", cfg.Tenant, "instance", s.id)
	return s, nil
}

// ID identifies this store instance in logs.
func (s *Store) ID() string { return s.id }

// Open runs bootstrap, schema migration, seeding and the first commit. It may
// be called once.
func (s *Store) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return common.ErrStoreUnavailable
	}
	if s.opened {
		return common.ErrAlreadyBootstrapped
	}

	if err := filex.EnsureParentDir(s.cfg.CacheDSN); err != nil {
		return fmt.Errorf("prepare local cache: %w", err)
	}
	kvDB, err := kvstore.Open(ctx, s.cfg.CacheDSN)
	if err != nil {
		return fmt.Errorf("open local cache: %w", err)
	}
	kv := kvstore.NewSQLiteRepository(kvDB)
	slot := s.cfg.SlotKey()

	local := snapshot.NewLocalCacheSource(kv, slot, s.logger)
	development := bootstrap.IsDevelopmentOrigin(s.cfg.Origin)
	b := bootstrap.New(local, s.remoteSource(ctx), development, s.logger)

	res, err := b.Run(ctx)
	if err != nil {
		_ = kvDB.Close()
		return fmt.Errorf("bootstrap: %w", err)
	}

	db := res.Engine.DB()
	mgr := schema.NewManager(db, s.hasher, s.logger)
	layout, err := mgr.EnsureSchema(ctx)
	if err != nil {
		if !errors.Is(err, common.ErrMigrationFailed) {
			_ = res.Engine.Close()
			_ = kvDB.Close()
			return err
		}
		s.degraded = true
		s.logger.Error(ctx, "schema migration failed, store is degraded", "error", err)
	}

	sink := persistence.NewSink(res.Engine, kv, slot, s.logger)

	if layout.TenantColumn != "" {
		if n, err := mgr.EnsureSeedUsers(ctx, s.cfg.Tenant); err != nil {
			s.logger.Warn(ctx, "seeding failed", "error", err)
		} else if n > 0 {
			s.logger.Info(ctx, "tenant seeded", "users", n)
		}

		repo, err := users.NewSQLiteRepository(db, layout, users.Options{
			Tenant:                   s.cfg.Tenant,
			SortOrder:                users.ParseSortOrder(s.cfg.SortOrder),
			MigrateLegacyCredentials: s.cfg.MigrateLegacyCredentials,
			Hasher:                   s.hasher,
			Sink:                     sink,
			Logger:                   s.logger,
			Now:                      s.now,
		})
		if err != nil {
			_ = res.Engine.Close()
			_ = kvDB.Close()
			return err
		}
		s.repo = repo
	}

	if err := sink.Commit(ctx); err != nil {
		s.logger.Warn(ctx, "initial commit failed", "error", err)
	}

	s.kvDB = kvDB
	s.engine = res.Engine
	s.origin = res.Origin
	s.opened = true

	s.logger.Info(ctx, "store opened", "source", string(res.Origin), "degraded", s.degraded)
	return nil
}

// remoteSource builds the configured remote backend. A backend that cannot
// be constructed is logged and treated as absent.
func (s *Store) remoteSource(ctx context.Context) snapshot.Source {
	f := s.fetcher
	if f == nil {
		switch s.cfg.RemoteKind {
		case config.RemoteGitHub:
			g := s.cfg.GitHub
			f = snapshot.NewGitHubFetcher(g.APIBaseURL,
				snapshot.GitHubLocation{Owner: g.Owner, Repo: g.Repo, Path: g.Path}, g.Token)
		case config.RemoteS3:
			c := s.cfg.S3
			client, err := snapshot.NewS3Client(ctx, snapshot.S3Options{
				Region:       c.Region,
				BaseEndpoint: c.BaseEndpoint,
				AccessKey:    c.AccessKey,
				SecretKey:    c.SecretKey,
			})
			if err != nil {
				s.logger.Warn(ctx, "s3 remote unavailable", "error", err)
				return nil
			}
			f = &snapshot.S3Fetcher{Client: client, Bucket: c.Bucket, Key: c.Key, Base64: c.Base64}
		default:
			return nil
		}
	}
	return snapshot.NewRemoteSnapshotSource(f, s.cfg.RemoteTimeout, s.logger)
}

// Close releases the engine and the local cache. It is safe to call twice.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.repo = nil

	var errs []error
	if s.engine != nil {
		errs = append(errs, s.engine.Close())
	}
	if s.kvDB != nil {
		errs = append(errs, s.kvDB.Close())
	}
	return errors.Join(errs...)
}

func (s *Store) Status(ctx context.Context) (Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{Tenant: s.cfg.Tenant}
	if !s.opened || s.closed {
		return st, nil
	}
	st.Loaded = true
	st.HasDatabase = s.engine != nil
	st.Source = string(s.origin)
	st.Degraded = s.degraded

	if s.repo == nil {
		return st, nil
	}
	var err error
	if st.UserCountForTenant, err = s.repo.Count(ctx); err != nil {
		return st, err
	}
	if st.TotalUserCount, err = s.repo.CountAll(ctx); err != nil {
		return st, err
	}
	return st, nil
}

// withRepo runs fn while the store is open.
func (s *Store) withRepo(fn func(users.Repository) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.repo == nil {
		return common.ErrStoreUnavailable
	}
	return fn(s.repo)
}

func (s *Store) Register(ctx context.Context, reg users.Registration) (u *users.User, err error) {
	err = s.withRepo(func(r users.Repository) error {
		u, err = r.Register(ctx, reg)
		return err
	})
	return u, err
}

func (s *Store) Authenticate(ctx context.Context, identifier, password string) (u *users.User, err error) {
	err = s.withRepo(func(r users.Repository) error {
		u, err = r.Authenticate(ctx, identifier, password)
		return err
	})
	return u, err
}

func (s *Store) GetByUsername(ctx context.Context, username string) (u *users.User, err error) {
	err = s.withRepo(func(r users.Repository) error {
		u, err = r.GetByUsername(ctx, username)
		return err
	})
	return u, err
}

func (s *Store) UsernameExists(ctx context.Context, username string) (ok bool, err error) {
	err = s.withRepo(func(r users.Repository) error {
		ok, err = r.UsernameExists(ctx, username)
		return err
	})
	return ok, err
}

func (s *Store) EmailExists(ctx context.Context, email string) (ok bool, err error) {
	err = s.withRepo(func(r users.Repository) error {
		ok, err = r.EmailExists(ctx, email)
		return err
	})
	return ok, err
}

func (s *Store) UpdateStats(ctx context.Context, id int64, delta users.StatsDelta) (ok bool, err error) {
	err = s.withRepo(func(r users.Repository) error {
		ok, err = r.UpdateStats(ctx, id, delta)
		return err
	})
	return ok, err
}

func (s *Store) ListAll(ctx context.Context) (list []users.User, err error) {
	err = s.withRepo(func(r users.Repository) error {
		list, err = r.ListAll(ctx)
		return err
	})
	return list, err
}
