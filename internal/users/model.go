package users

import (
	"encoding/json"
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Stats are the per-user game counters.
type Stats struct {
	TotalScore     int64    `json:"totalScore"`
	GamesPlayed    int64    `json:"gamesPlayed"`
	CorrectAnswers int64    `json:"correctAnswers"`
	WrongAnswers   int64    `json:"wrongAnswers"`
	BestStreak     int64    `json:"bestStreak"`
	Badges         []string `json:"badges"`
}

// User is the public projection of a row. It never carries the credential.
// An empty Email and a nil LastLogin are encoded as JSON null.
type User struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	DisplayName string     `json:"displayName"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Role        Role       `json:"role"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLogin   *time.Time `json:"lastLogin"`
	Stats       Stats      `json:"stats"`
}

func (u User) MarshalJSON() ([]byte, error) {
	type plain User
	out := struct {
		plain
		Email *string `json:"email"`
	}{plain: plain(u)}
	if u.Email != "" {
		out.Email = &u.Email
	}
	if out.Stats.Badges == nil {
		out.Stats.Badges = []string{}
	}
	return json.Marshal(out)
}

type Registration struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
	FirstName   string
	LastName    string
}

// StatsDelta is the result of one finished game.
type StatsDelta struct {
	Score   int64
	Correct int64
	Wrong   int64
	Streak  int64
}

type SortOrder string

const (
	SortByScore    SortOrder = "score"
	SortByUsername SortOrder = "username"
)

// ParseSortOrder maps a config value to a SortOrder, defaulting to score.
func ParseSortOrder(s string) SortOrder {
	if SortOrder(s) == SortByUsername {
		return SortByUsername
	}
	return SortByScore
}
