package service

// Services aggregates every application service for wiring.
type Services struct {
	Auth        *AuthService
	Games       *GameService
	Questions   *QuestionService
	Leaderboard *LeaderboardService
}
