package users

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/sitestore/internal/schema"
	"github.com/stretchr/testify/assert"
)

func TestParseBadges(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{}},
		{"[]", []string{}},
		{"null", []string{}},
		{"{broken", []string{}},
		{`["🔥 Hot Streak"]`, []string{"🔥 Hot Streak"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseBadges(tt.in), tt.in)
	}
}

func TestParseTime(t *testing.T) {
	want := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)

	for _, s := range []string{"2025-03-04 05:06:07", "2025-03-04T05:06:07Z", "2025-03-04T05:06:07"} {
		got, ok := parseTime(s)
		assert.True(t, ok, s)
		assert.True(t, want.Equal(got), s)
	}

	_, ok := parseTime("yesterday")
	assert.False(t, ok)
	_, ok = parseTime("")
	assert.False(t, ok)
}

func TestSelectColumns_MissingColumnsReadAsNull(t *testing.T) {
	l := schema.NewLayout("site", "passwordHash", "id", "username", "email")
	cols := selectColumns(l)
	assert.Contains(t, cols, `"email"`)
	assert.Contains(t, cols, "NULL")
	assert.NotContains(t, cols, `"badges"`)
}
