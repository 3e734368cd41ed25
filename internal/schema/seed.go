package schema

// SeedUser is one of the default accounts created for an empty tenant.
type SeedUser struct {
	Username       string
	Email          string
	Password       string
	FirstName      string
	LastName       string
	Role           string
	TotalScore     int64
	GamesPlayed    int64
	CorrectAnswers int64
	WrongAnswers   int64
	BestStreak     int64
	Badges         []string
}

// SeedUsers is the documented default set. Passwords are stored as digests.
var SeedUsers = []SeedUser{
	{
		Username: "admin", Email: "admin@example.com", Password: "admin123",
		FirstName: "Admin", LastName: "User", Role: "admin",
		TotalScore: 5000, GamesPlayed: 50, CorrectAnswers: 400, WrongAnswers: 50, BestStreak: 15,
		Badges: []string{"🏆 Perfect Score", "🔥 Hot Streak", "🎯 Sharp Eye"},
	},
	{
		Username: "demo", Email: "demo@example.com", Password: "demo123",
		FirstName: "Demo", LastName: "User", Role: "user",
		TotalScore: 1500, GamesPlayed: 20, CorrectAnswers: 150, WrongAnswers: 50, BestStreak: 8,
		Badges: []string{"🔥 Hot Streak"},
	},
	{
		Username: "sarahlogic", Email: "sarah@example.com", Password: "password123",
		FirstName: "Sarah", LastName: "Logic", Role: "user",
		TotalScore: 3200, GamesPlayed: 35, CorrectAnswers: 280, WrongAnswers: 70, BestStreak: 12,
		Badges: []string{"🔥 Hot Streak", "🎮 Regular Player"},
	},
}
