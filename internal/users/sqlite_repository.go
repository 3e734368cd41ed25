package users

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/sitestore/internal/common"
	"github.com/dmitrijs2005/sitestore/internal/cryptox"
	"github.com/dmitrijs2005/sitestore/internal/dbx"
	"github.com/dmitrijs2005/sitestore/internal/logging"
	"github.com/dmitrijs2005/sitestore/internal/schema"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var _ Repository = (*SQLiteRepository)(nil)

type Options struct {
	Tenant    string
	SortOrder SortOrder
	// MigrateLegacyCredentials replaces a plaintext credential with a digest
	// after the first successful login that used it.
	MigrateLegacyCredentials bool
	Hasher                   cryptox.PasswordHasher
	Sink                     Committer
	Logger                   logging.Logger
	Now                      func() time.Time
}

type queries struct {
	byID          string
	byUsername    string
	usernameCount string
	emailCount    string
	credentials   string
	insert        string
	insertColumns []string
	touchLogin    string
	upgrade       string
	updateStats   string
	list          string
	count         string
	countAll      string
}

type SQLiteRepository struct {
	db      *sql.DB
	layout  schema.Layout
	tenant  string
	order   SortOrder
	migrate bool
	hasher  cryptox.PasswordHasher
	sink    Committer
	logger  logging.Logger
	now     func() time.Time
	q       queries

	// mu orders each mutation together with its commit.
	mu sync.Mutex

	dummyOnce   sync.Once
	dummyDigest string
}

// NewSQLiteRepository binds a repository to one tenant of the user table
// described by layout.
func NewSQLiteRepository(db *sql.DB, layout schema.Layout, o Options) (*SQLiteRepository, error) {
	tenant := strings.TrimSpace(o.Tenant)
	if tenant == "" {
		return nil, fmt.Errorf("%w: tenant is required", common.ErrValidation)
	}
	if o.Hasher == nil {
		o.Hasher = cryptox.NewArgon2()
	}
	if o.Sink == nil {
		o.Sink = nopCommitter{}
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.SortOrder == "" {
		o.SortOrder = SortByScore
	}

	r := &SQLiteRepository{
		db:      db,
		layout:  layout,
		tenant:  tenant,
		order:   o.SortOrder,
		migrate: o.MigrateLegacyCredentials,
		hasher:  o.Hasher,
		sink:    o.Sink,
		logger:  o.Logger,
		now:     o.Now,
	}
	r.q = buildQueries(layout, o.SortOrder)
	return r, nil
}

var orderClauses = map[SortOrder]string{
	SortByScore:    `COALESCE(%s, 0) DESC, LOWER("username") ASC, "id" ASC`,
	SortByUsername: `LOWER("username") ASC, "id" ASC`,
}

func buildQueries(l schema.Layout, order SortOrder) queries {
	from := fmt.Sprintf(`FROM %s WHERE %s = ?`, schema.Table, l.Tenant())
	cols := selectColumns(l)
	lowerEmail := fmt.Sprintf(`LOWER(%s)`, l.Col(schema.ColEmail))

	clause, ok := orderClauses[order]
	if !ok {
		clause = orderClauses[SortByScore]
	}
	if strings.Contains(clause, "%s") {
		clause = fmt.Sprintf(clause, l.Col(schema.ColTotalScore))
	}

	insertColumns := []string{schema.ColEmail, schema.ColDisplayName, schema.ColFirstName,
		schema.ColLastName, schema.ColRole, schema.ColTotalScore, schema.ColGamesPlayed,
		schema.ColCorrectAnswers, schema.ColWrongAnswers, schema.ColBestStreak,
		schema.ColBadges, schema.ColCreatedAt}
	names := []string{l.Tenant(), schema.Quote(schema.ColUsername), l.Credential()}
	var present []string
	for _, c := range insertColumns {
		if l.Has(c) {
			present = append(present, c)
			names = append(names, schema.Quote(c))
		}
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")

	return queries{
		byID:          fmt.Sprintf(`SELECT %s %s AND "id" = ?`, cols, from),
		byUsername:    fmt.Sprintf(`SELECT %s %s AND LOWER("username") = ? ORDER BY "id" LIMIT 1`, cols, from),
		usernameCount: fmt.Sprintf(`SELECT COUNT(*) %s AND LOWER("username") = ?`, from),
		emailCount:    fmt.Sprintf(`SELECT COUNT(*) %s AND %s = ?`, from, lowerEmail),
		credentials: fmt.Sprintf(`SELECT "id", COALESCE(%s, '') %s AND (LOWER("username") = ? OR %s = ?) ORDER BY "id"`,
			l.Credential(), from, lowerEmail),
		insert: fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
			schema.Table, strings.Join(names, ", "), placeholders),
		insertColumns: present,
		touchLogin: fmt.Sprintf(`UPDATE %s SET %s = ? WHERE "id" = ? AND %s = ?`,
			schema.Table, l.Col(schema.ColLastLogin), l.Tenant()),
		upgrade: fmt.Sprintf(`UPDATE %s SET %s = ? WHERE "id" = ? AND %s = ?`,
			schema.Table, l.Credential(), l.Tenant()),
		updateStats: fmt.Sprintf(`UPDATE %s SET
			"totalScore" = COALESCE("totalScore", 0) + ?,
			"gamesPlayed" = COALESCE("gamesPlayed", 0) + 1,
			"correctAnswers" = COALESCE("correctAnswers", 0) + ?,
			"wrongAnswers" = COALESCE("wrongAnswers", 0) + ?,
			"bestStreak" = MAX(COALESCE("bestStreak", 0), ?)
			WHERE "id" = ? AND %s = ?`, schema.Table, l.Tenant()),
		list:     fmt.Sprintf(`SELECT %s %s ORDER BY %s`, cols, from, clause),
		count:    fmt.Sprintf(`SELECT COUNT(*) %s`, from),
		countAll: fmt.Sprintf(`SELECT COUNT(*) FROM %s`, schema.Table),
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (r *SQLiteRepository) Register(ctx context.Context, reg Registration) (*User, error) {
	username := normalize(reg.Username)
	email := normalize(reg.Email)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", common.ErrValidation)
	}
	if reg.Password == "" {
		return nil, fmt.Errorf("%w: password is required", common.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	taken, err := r.exists(ctx, r.q.usernameCount, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, common.ErrDuplicateUsername
	}
	if email != "" {
		taken, err := r.exists(ctx, r.q.emailCount, email)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, common.ErrDuplicateEmail
		}
	}

	digest, err := r.hasher.Hash(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("hash credential: %w", err)
	}

	displayName := strings.TrimSpace(reg.DisplayName)
	if displayName == "" {
		displayName = strings.TrimSpace(reg.FirstName + " " + reg.LastName)
	}
	if displayName == "" {
		displayName = username
	}

	values := map[string]any{
		schema.ColEmail:          sql.NullString{String: email, Valid: email != ""},
		schema.ColDisplayName:    displayName,
		schema.ColFirstName:      strings.TrimSpace(reg.FirstName),
		schema.ColLastName:       strings.TrimSpace(reg.LastName),
		schema.ColRole:           string(RoleUser),
		schema.ColTotalScore:     0,
		schema.ColGamesPlayed:    0,
		schema.ColCorrectAnswers: 0,
		schema.ColWrongAnswers:   0,
		schema.ColBestStreak:     0,
		schema.ColBadges:         "[]",
		schema.ColCreatedAt:      formatTime(r.now()),
	}
	args := []any{r.tenant, username, digest}
	for _, c := range r.q.insertColumns {
		args = append(args, values[c])
	}

	res, err := r.db.ExecContext(ctx, r.q.insert, args...)
	if err != nil {
		return nil, classifyInsertError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read new user id: %w", err)
	}

	r.logger.Info(ctx, "user registered", "id", id, "username", username)
	r.commit(ctx)

	return r.getByID(ctx, id)
}

// classifyInsertError maps a uniqueness violation that slipped past the
// tenant-scoped checks (for example a legacy single-tenant UNIQUE) to the
// matching sentinel.
func classifyInsertError(err error) error {
	var serr *sqlite.Error
	if errors.As(err, &serr) && serr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		msg := serr.Error()
		switch {
		case strings.Contains(msg, "."+schema.ColEmail):
			return fmt.Errorf("%w: %w", common.ErrDuplicateEmail, err)
		case strings.Contains(msg, "."+schema.ColUsername):
			return fmt.Errorf("%w: %w", common.ErrDuplicateUsername, err)
		}
	}
	return fmt.Errorf("insert user: %w", err)
}

type credential struct {
	id     int64
	stored string
}

func (r *SQLiteRepository) Authenticate(ctx context.Context, identifier, password string) (*User, error) {
	ident := normalize(identifier)
	if ident == "" || password == "" {
		return nil, common.ErrInvalidCredentials
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	candidates, err := r.credentialsFor(ctx, ident)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		// keep the unknown-identifier path as slow as a wrong password
		_, _ = r.hasher.Verify(password, r.dummy())
		return nil, common.ErrInvalidCredentials
	}

	for _, c := range candidates {
		ok, legacy := r.check(ctx, password, c.stored)
		if !ok {
			continue
		}
		if err := r.recordLogin(ctx, c.id, password, legacy); err != nil {
			return nil, err
		}
		r.commit(ctx)
		return r.getByID(ctx, c.id)
	}
	return nil, common.ErrInvalidCredentials
}

// credentialsFor reads every candidate before returning; the engine has a
// single connection, so rows must be closed before the next statement.
func (r *SQLiteRepository) credentialsFor(ctx context.Context, ident string) ([]credential, error) {
	rows, err := r.db.QueryContext(ctx, r.q.credentials, r.tenant, ident, ident)
	if err != nil {
		return nil, fmt.Errorf("lookup credentials: %w", err)
	}
	defer rows.Close()

	var out []credential
	for rows.Next() {
		var c credential
		if err := rows.Scan(&c.id, &c.stored); err != nil {
			return nil, fmt.Errorf("scan credentials: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lookup credentials: %w", err)
	}
	return out, nil
}

// check verifies password against stored. Digests are verified with the
// hasher; anything else is a legacy plaintext credential compared verbatim.
// legacy reports that the plaintext path matched.
func (r *SQLiteRepository) check(ctx context.Context, password, stored string) (ok, legacy bool) {
	if stored == "" {
		return false, false
	}
	if cryptox.IsDigest(stored) {
		ok, err := r.hasher.Verify(password, stored)
		if err != nil {
			r.logger.Warn(ctx, "stored digest is unreadable", "error", err)
			return false, false
		}
		return ok, false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(stored)) == 1, true
}

func (r *SQLiteRepository) recordLogin(ctx context.Context, id int64, password string, legacy bool) error {
	if r.layout.Has(schema.ColLastLogin) {
		if _, err := r.db.ExecContext(ctx, r.q.touchLogin, formatTime(r.now()), id, r.tenant); err != nil {
			return fmt.Errorf("update last login: %w", err)
		}
	}

	if legacy && r.migrate {
		digest, err := r.hasher.Hash(password)
		if err != nil {
			r.logger.Warn(ctx, "credential upgrade skipped", "id", id, "error", err)
			return nil
		}
		if _, err := r.db.ExecContext(ctx, r.q.upgrade, digest, id, r.tenant); err != nil {
			return fmt.Errorf("upgrade credential: %w", err)
		}
		r.logger.Info(ctx, "legacy credential upgraded", "id", id)
	}
	return nil
}

func (r *SQLiteRepository) dummy() string {
	r.dummyOnce.Do(func() {
		d, err := r.hasher.Hash("sitestore-dummy")
		if err == nil {
			r.dummyDigest = d
		}
	})
	return r.dummyDigest
}

func (r *SQLiteRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	var rw row
	err := rw.scan(r.db.QueryRowContext(ctx, r.q.byUsername, r.tenant, normalize(username)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %q: %w", username, err)
	}
	return rw.user(), nil
}

func (r *SQLiteRepository) getByID(ctx context.Context, id int64) (*User, error) {
	var rw row
	err := rw.scan(r.db.QueryRowContext(ctx, r.q.byID, r.tenant, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return rw.user(), nil
}

func (r *SQLiteRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, r.q.usernameCount, normalize(username))
}

func (r *SQLiteRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	email = normalize(email)
	if email == "" {
		return false, nil
	}
	return r.exists(ctx, r.q.emailCount, email)
}

func (r *SQLiteRepository) exists(ctx context.Context, query, value string) (bool, error) {
	n, err := dbx.Count(ctx, r.db, query, r.tenant, value)
	if err != nil {
		return false, fmt.Errorf("lookup %q: %w", value, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) UpdateStats(ctx context.Context, id int64, d StatsDelta) (bool, error) {
	if d.Score < 0 || d.Correct < 0 || d.Wrong < 0 || d.Streak < 0 {
		return false, common.ErrInvalidStatsDelta
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, r.q.updateStats, d.Score, d.Correct, d.Wrong, d.Streak, id, r.tenant)
	if err != nil {
		return false, fmt.Errorf("update stats for %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update stats for %d: %w", id, err)
	}
	if n == 0 {
		return false, nil
	}

	r.commit(ctx)
	return true, nil
}

func (r *SQLiteRepository) ListAll(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, r.q.list, r.tenant)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	list := []User{}
	for rows.Next() {
		var rw row
		if err := rw.scan(rows); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		list = append(list, *rw.user())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return list, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	n, err := dbx.Count(ctx, r.db, r.q.count, r.tenant)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CountAll(ctx context.Context) (int, error) {
	n, err := dbx.Count(ctx, r.db, r.q.countAll)
	if err != nil {
		return 0, fmt.Errorf("count all users: %w", err)
	}
	return n, nil
}

// commit persists the image. A failure is logged and the in-memory change
// stays; the next successful commit carries it.
func (r *SQLiteRepository) commit(ctx context.Context) {
	if err := r.sink.Commit(ctx); err != nil {
		r.logger.Warn(ctx, "commit failed", "error", err)
	}
}
