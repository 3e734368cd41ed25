package users

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/dmitrijs2005/sitestore/internal/schema"
)

var timeLayouts = []string{
	schema.TimeLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

type scanner interface {
	Scan(dest ...any) error
}

// row mirrors one user record as stored. Every column of an older image may
// be NULL, so all fields are nullable.
type row struct {
	id             int64
	username       string
	email          sql.NullString
	displayName    sql.NullString
	firstName      sql.NullString
	lastName       sql.NullString
	role           sql.NullString
	totalScore     sql.NullInt64
	gamesPlayed    sql.NullInt64
	correctAnswers sql.NullInt64
	wrongAnswers   sql.NullInt64
	bestStreak     sql.NullInt64
	badges         sql.NullString
	createdAt      sql.NullString
	lastLogin      sql.NullString
}

// selectColumns returns the projection matching row.scan for layout l.
func selectColumns(l schema.Layout) string {
	cols := []string{
		schema.Quote(schema.ColID),
		schema.Quote(schema.ColUsername),
		l.Col(schema.ColEmail),
		l.Col(schema.ColDisplayName),
		l.Col(schema.ColFirstName),
		l.Col(schema.ColLastName),
		l.Col(schema.ColRole),
		l.Col(schema.ColTotalScore),
		l.Col(schema.ColGamesPlayed),
		l.Col(schema.ColCorrectAnswers),
		l.Col(schema.ColWrongAnswers),
		l.Col(schema.ColBestStreak),
		l.Col(schema.ColBadges),
		l.Col(schema.ColCreatedAt),
		l.Col(schema.ColLastLogin),
	}
	return strings.Join(cols, ", ")
}

func (r *row) scan(s scanner) error {
	return s.Scan(
		&r.id, &r.username, &r.email, &r.displayName, &r.firstName, &r.lastName, &r.role,
		&r.totalScore, &r.gamesPlayed, &r.correctAnswers, &r.wrongAnswers, &r.bestStreak,
		&r.badges, &r.createdAt, &r.lastLogin,
	)
}

func (r *row) user() *User {
	u := &User{
		ID:          r.id,
		Username:    r.username,
		Email:       r.email.String,
		DisplayName: r.displayName.String,
		FirstName:   r.firstName.String,
		LastName:    r.lastName.String,
		Role:        RoleUser,
		Stats: Stats{
			TotalScore:     r.totalScore.Int64,
			GamesPlayed:    r.gamesPlayed.Int64,
			CorrectAnswers: r.correctAnswers.Int64,
			WrongAnswers:   r.wrongAnswers.Int64,
			BestStreak:     r.bestStreak.Int64,
			Badges:         parseBadges(r.badges.String),
		},
	}
	if u.DisplayName == "" {
		u.DisplayName = r.username
	}
	if r.role.Valid && r.role.String != "" {
		u.Role = Role(r.role.String)
	}
	if t, ok := parseTime(r.createdAt.String); ok {
		u.CreatedAt = t
	}
	if t, ok := parseTime(r.lastLogin.String); ok {
		u.LastLogin = &t
	}
	return u
}

// parseBadges never fails: malformed or missing badge text yields an empty list.
func parseBadges(s string) []string {
	badges := []string{}
	if s == "" {
		return badges
	}
	if err := json.Unmarshal([]byte(s), &badges); err != nil || badges == nil {
		return []string{}
	}
	return badges
}

func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(schema.TimeLayout)
}
