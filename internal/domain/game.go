package domain

import (
	"time"

	"github.com/google/uuid"
)

// GameStatus is the lifecycle state of a game session.
type GameStatus string

const (
	GameStatusNotStarted GameStatus = "not-started"
	GameStatusLive       GameStatus = "live"
	// GameStatusFinished is representable but no session transition
	// targets it; only an explicit admin update can set it.
	GameStatusFinished GameStatus = "finished"
)

// ValidGameStatus reports whether s is one of the known statuses.
func ValidGameStatus(s GameStatus) bool {
	switch s {
	case GameStatusNotStarted, GameStatusLive, GameStatusFinished:
		return true
	}
	return false
}

// Game is the root of the content hierarchy and the unit of a live
// session. Status is mutated only by start/restart; movies are ordered
// by their index.
type Game struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Status          GameStatus `json:"status"`
	AllowShowAnswer bool       `json:"allowShowAnswer"`
	MovieIDs        []string   `json:"movieIds"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// NewGame constructs a game with all fields explicitly defaulted.
func NewGame(title, description string) *Game {
	now := time.Now().UTC()
	return &Game{
		ID:              uuid.NewString(),
		Title:           title,
		Description:     description,
		Status:          GameStatusNotStarted,
		AllowShowAnswer: false,
		MovieIDs:        []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// CreateGameRequest is the payload for creating a game.
type CreateGameRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateGameRequest is the payload for admin game updates. Pointer
// fields distinguish "not provided" from zero values.
type UpdateGameRequest struct {
	Title           *string     `json:"title,omitempty"`
	Description     *string     `json:"description,omitempty"`
	Status          *GameStatus `json:"status,omitempty"`
	AllowShowAnswer *bool       `json:"allowShowAnswer,omitempty"`
}

// GameSnapshot is the full per-game state pushed to broadcast
// subscribers. Consumers replace state wholesale, they never merge.
type GameSnapshot struct {
	Game  *Game          `json:"game"`
	Teams []TeamStanding `json:"teams"`
}
