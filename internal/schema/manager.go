// Package schema creates the shared user table or brings an older one up to
// the current layout, and seeds the default accounts for an empty tenant.
//
// Migration is additive only. Images are shared between tenants and between
// older deployments, so columns are never dropped or renamed.
package schema

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/sitestore/internal/common"
	"github.com/dmitrijs2005/sitestore/internal/cryptox"
	"github.com/dmitrijs2005/sitestore/internal/dbx"
	"github.com/dmitrijs2005/sitestore/internal/logging"
)

var createTableSQL = `CREATE TABLE ` + Table + ` (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	app TEXT NOT NULL,
	username TEXT NOT NULL,
	email TEXT,
	password TEXT NOT NULL,
	displayName TEXT,
	firstName TEXT,
	lastName TEXT,
	role TEXT DEFAULT 'user',
	totalScore INTEGER DEFAULT 0,
	gamesPlayed INTEGER DEFAULT 0,
	correctAnswers INTEGER DEFAULT 0,
	wrongAnswers INTEGER DEFAULT 0,
	bestStreak INTEGER DEFAULT 0,
	badges TEXT DEFAULT '[]',
	createdAt TEXT DEFAULT CURRENT_TIMESTAMP,
	lastLogin TEXT,
	UNIQUE(app, username),
	UNIQUE(app, email)
)`

type Manager struct {
	db     *sql.DB
	hasher cryptox.PasswordHasher
	logger logging.Logger
	now    func() time.Time
	layout *Layout
}

func NewManager(db *sql.DB, hasher cryptox.PasswordHasher, logger logging.Logger) *Manager {
	return &Manager{db: db, hasher: hasher, logger: logger, now: time.Now}
}

// EnsureSchema returns the layout of the user table, creating or migrating
// it first. On a migration failure the best-known layout is returned together
// with an error wrapping common.ErrMigrationFailed.
func (m *Manager) EnsureSchema(ctx context.Context) (Layout, error) {
	exists, err := m.tableExists(ctx)
	if err != nil {
		return Layout{}, fmt.Errorf("%w: %w", common.ErrMigrationFailed, err)
	}

	if !exists {
		if _, err := m.db.ExecContext(ctx, createTableSQL); err != nil {
			return Layout{}, fmt.Errorf("%w: create %s: %w", common.ErrMigrationFailed, Table, err)
		}
		l := CurrentLayout()
		m.layout = &l
		m.logger.Info(ctx, "user table created")
		return l, nil
	}

	l, err := m.migrate(ctx)
	m.layout = &l
	return l, err
}

func (m *Manager) tableExists(ctx context.Context) (bool, error) {
	n, err := dbx.Count(ctx, m.db, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, Table)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (m *Manager) columns(ctx context.Context) (map[string]string, error) {
	rows, err := m.db.QueryContext(ctx, `PRAGMA table_info(`+Table+`)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := map[string]string{}
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[strings.ToLower(name)] = name
	}
	return cols, rows.Err()
}

func (m *Manager) migrate(ctx context.Context) (Layout, error) {
	cols, err := m.columns(ctx)
	if err != nil {
		return Layout{}, fmt.Errorf("%w: inspect %s: %w", common.ErrMigrationFailed, Table, err)
	}
	if _, ok := cols[ColUsername]; !ok {
		return Layout{}, fmt.Errorf("%w: %s has no %s column", common.ErrMigrationFailed, Table, ColUsername)
	}

	var errs []error
	addColumn := func(name, ddl string) bool {
		stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, Table, Quote(name), ddl)
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			errs = append(errs, fmt.Errorf("add column %s: %w", name, err))
			return false
		}
		m.logger.Info(ctx, "column added", "column", name)
		cols[strings.ToLower(name)] = name
		return true
	}

	tenant := resolve(cols, tenantAliases)
	if tenant == "" {
		if addColumn(ColTenant, fmt.Sprintf("TEXT NOT NULL DEFAULT '%s'", common.LegacyTenant)) {
			tenant = ColTenant
		}
	}
	credential := resolve(cols, credentialAliases)
	if credential == "" {
		if addColumn(ColPassword, "TEXT NOT NULL DEFAULT ''") {
			credential = ColPassword
		}
	}
	for _, c := range optionalColumns {
		if _, ok := cols[strings.ToLower(c.name)]; !ok {
			addColumn(c.name, c.ddl)
		}
	}

	if tenant == "" || credential == "" {
		return Layout{}, fmt.Errorf("%w: %w", common.ErrMigrationFailed, errors.Join(errs...))
	}

	for _, idx := range []struct{ name, col string }{
		{"users_tenant_username", ColUsername},
		{"users_tenant_email", ColEmail},
	} {
		stmt := fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s, %s)`,
			idx.name, Table, Quote(tenant), Quote(idx.col))
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", idx.name, err))
		}
	}

	present := make([]string, 0, len(cols))
	for _, name := range cols {
		present = append(present, name)
	}
	l := NewLayout(tenant, credential, present...)

	if len(errs) > 0 {
		return l, fmt.Errorf("%w: %w", common.ErrMigrationFailed, errors.Join(errs...))
	}
	return l, nil
}

func resolve(cols map[string]string, aliases []string) string {
	for _, a := range aliases {
		if name, ok := cols[strings.ToLower(a)]; ok {
			return name
		}
	}
	return ""
}

// EnsureSeedUsers inserts SeedUsers for tenant when the tenant has no rows.
// It returns how many users were inserted.
func (m *Manager) EnsureSeedUsers(ctx context.Context, tenant string) (int, error) {
	if m.layout == nil {
		return 0, fmt.Errorf("seed %s: schema not ensured", tenant)
	}
	l := *m.layout

	countSQL := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = ?`, Table, l.Tenant())
	n, err := dbx.Count(ctx, m.db, countSQL, tenant)
	if err != nil {
		return 0, fmt.Errorf("count users for %s: %w", tenant, err)
	}
	if n > 0 {
		return 0, nil
	}

	type column struct {
		name  string
		value func(SeedUser) (any, error)
	}
	created := m.now().UTC().Format(TimeLayout)
	candidates := []column{
		{ColEmail, func(u SeedUser) (any, error) { return u.Email, nil }},
		{ColDisplayName, func(u SeedUser) (any, error) { return u.FirstName + " " + u.LastName, nil }},
		{ColFirstName, func(u SeedUser) (any, error) { return u.FirstName, nil }},
		{ColLastName, func(u SeedUser) (any, error) { return u.LastName, nil }},
		{ColRole, func(u SeedUser) (any, error) { return u.Role, nil }},
		{ColTotalScore, func(u SeedUser) (any, error) { return u.TotalScore, nil }},
		{ColGamesPlayed, func(u SeedUser) (any, error) { return u.GamesPlayed, nil }},
		{ColCorrectAnswers, func(u SeedUser) (any, error) { return u.CorrectAnswers, nil }},
		{ColWrongAnswers, func(u SeedUser) (any, error) { return u.WrongAnswers, nil }},
		{ColBestStreak, func(u SeedUser) (any, error) { return u.BestStreak, nil }},
		{ColBadges, func(u SeedUser) (any, error) {
			b, err := json.Marshal(u.Badges)
			return string(b), err
		}},
		{ColCreatedAt, func(SeedUser) (any, error) { return created, nil }},
	}

	names := []string{l.Tenant(), Quote(ColUsername), l.Credential()}
	var extra []column
	for _, c := range candidates {
		if l.Has(c.name) {
			names = append(names, Quote(c.name))
			extra = append(extra, c)
		}
	}
	insertSQL := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, Table,
		strings.Join(names, ", "), strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", "))

	err = dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, u := range SeedUsers {
			digest, err := m.hasher.Hash(u.Password)
			if err != nil {
				return fmt.Errorf("hash seed %s: %w", u.Username, err)
			}
			args := []any{tenant, u.Username, digest}
			for _, c := range extra {
				v, err := c.value(u)
				if err != nil {
					return err
				}
				args = append(args, v)
			}
			if _, err := tx.ExecContext(ctx, insertSQL, args...); err != nil {
				return fmt.Errorf("insert seed %s: %w", u.Username, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	m.logger.Info(ctx, "seed users created", "count", len(SeedUsers))
	return len(SeedUsers), nil
}
