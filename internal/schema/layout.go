package schema

import "strings"

// Table is the user table shared by every tenant in the image.
const Table = "users"

// TimeLayout is the timestamp text format used by SQLite CURRENT_TIMESTAMP,
// and therefore by every writer of the shared image.
const TimeLayout = "2006-01-02 15:04:05"

// Canonical column names.
const (
	ColID             = "id"
	ColTenant         = "app"
	ColUsername       = "username"
	ColEmail          = "email"
	ColPassword       = "password"
	ColDisplayName    = "displayName"
	ColFirstName      = "firstName"
	ColLastName       = "lastName"
	ColRole           = "role"
	ColTotalScore     = "totalScore"
	ColGamesPlayed    = "gamesPlayed"
	ColCorrectAnswers = "correctAnswers"
	ColWrongAnswers   = "wrongAnswers"
	ColBestStreak     = "bestStreak"
	ColBadges         = "badges"
	ColCreatedAt      = "createdAt"
	ColLastLogin      = "lastLogin"
)

// Alternative names seen in older images.
var (
	tenantAliases     = []string{ColTenant, "site"}
	credentialAliases = []string{"password_hash", "passwordHash", ColPassword}
)

// optionalColumns are added with ALTER TABLE when an older image lacks them.
// SQLite only accepts constant defaults in ADD COLUMN.
var optionalColumns = []struct {
	name string
	ddl  string
}{
	{ColEmail, "TEXT"},
	{ColDisplayName, "TEXT"},
	{ColFirstName, "TEXT"},
	{ColLastName, "TEXT"},
	{ColRole, "TEXT DEFAULT 'user'"},
	{ColTotalScore, "INTEGER DEFAULT 0"},
	{ColGamesPlayed, "INTEGER DEFAULT 0"},
	{ColCorrectAnswers, "INTEGER DEFAULT 0"},
	{ColWrongAnswers, "INTEGER DEFAULT 0"},
	{ColBestStreak, "INTEGER DEFAULT 0"},
	{ColBadges, "TEXT DEFAULT '[]'"},
	{ColCreatedAt, "TEXT"},
	{ColLastLogin, "TEXT"},
}

// Layout describes the user table as it exists in the loaded image: which
// columns are present and what the tenant and credential columns are called.
// Column names in a Layout only ever come from the fixed sets above, never
// from caller input, so they are safe to place in SQL text.
type Layout struct {
	TenantColumn     string
	CredentialColumn string
	columns          map[string]bool
}

// NewLayout returns a layout with the given columns present.
func NewLayout(tenantColumn, credentialColumn string, columns ...string) Layout {
	l := Layout{TenantColumn: tenantColumn, CredentialColumn: credentialColumn, columns: map[string]bool{}}
	for _, c := range columns {
		l.columns[strings.ToLower(c)] = true
	}
	l.columns[strings.ToLower(tenantColumn)] = true
	l.columns[strings.ToLower(credentialColumn)] = true
	return l
}

// CurrentLayout is the layout of a table created by this version.
func CurrentLayout() Layout {
	cols := []string{ColID, ColUsername}
	for _, c := range optionalColumns {
		cols = append(cols, c.name)
	}
	return NewLayout(ColTenant, ColPassword, cols...)
}

// Has reports whether column name exists (case-insensitive, as in SQLite).
func (l Layout) Has(name string) bool {
	return l.columns[strings.ToLower(name)]
}

// Col returns the quoted column, or NULL when the column is missing so reads
// keep working against a partially migrated table.
func (l Layout) Col(name string) string {
	if !l.Has(name) {
		return "NULL"
	}
	return Quote(name)
}

// Tenant returns the quoted tenant column.
func (l Layout) Tenant() string { return Quote(l.TenantColumn) }

// Credential returns the quoted credential column.
func (l Layout) Credential() string { return Quote(l.CredentialColumn) }

// Quote quotes an SQL identifier.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
