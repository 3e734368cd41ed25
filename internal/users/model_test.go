package users

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_JSONShape(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("stats nested and credential absent", func(t *testing.T) {
		login := created.Add(time.Hour)
		u := User{
			ID: 1, Username: "alice", Email: "a@x.com", DisplayName: "Alice",
			FirstName: "Alice", LastName: "Liddell", Role: RoleUser,
			CreatedAt: created, LastLogin: &login,
			Stats: Stats{TotalScore: 5, GamesPlayed: 1, CorrectAnswers: 4, WrongAnswers: 1, BestStreak: 3,
				Badges: []string{"🎯 Sharpshooter"}},
		}

		b, err := json.Marshal(u)
		require.NoError(t, err)

		assert.JSONEq(t, `{
			"id": 1,
			"username": "alice",
			"email": "a@x.com",
			"displayName": "Alice",
			"firstName": "Alice",
			"lastName": "Liddell",
			"role": "user",
			"createdAt": "2024-03-01T12:00:00Z",
			"lastLogin": "2024-03-01T13:00:00Z",
			"stats": {
				"totalScore": 5,
				"gamesPlayed": 1,
				"correctAnswers": 4,
				"wrongAnswers": 1,
				"bestStreak": 3,
				"badges": ["🎯 Sharpshooter"]
			}
		}`, string(b))
	})

	t.Run("absent email and login are null", func(t *testing.T) {
		b, err := json.Marshal(&User{ID: 2, Username: "bob", Role: RoleUser, CreatedAt: created})
		require.NoError(t, err)

		var m map[string]any
		require.NoError(t, json.Unmarshal(b, &m))
		for _, key := range []string{"email", "lastLogin"} {
			v, ok := m[key]
			assert.True(t, ok, "%s must be present", key)
			assert.Nil(t, v, key)
		}
		assert.NotContains(t, m, "totalScore")
		assert.NotContains(t, m, "password")

		stats, ok := m["stats"].(map[string]any)
		require.True(t, ok, "stats must be an object: %s", b)
		assert.Equal(t, []any{}, stats["badges"])
	})
}
