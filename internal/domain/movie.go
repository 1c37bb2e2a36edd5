package domain

import (
	"time"

	"github.com/google/uuid"
)

// LevelName is a difficulty tier grouping questions under a movie.
type LevelName string

const (
	LevelEasy   LevelName = "easy"
	LevelMedium LevelName = "medium"
	LevelHard   LevelName = "hard"
)

// LevelNames lists every tier in play order.
func LevelNames() []LevelName {
	return []LevelName{LevelEasy, LevelMedium, LevelHard}
}

// ValidLevelName reports whether l is a known difficulty tier.
func ValidLevelName(l LevelName) bool {
	switch l {
	case LevelEasy, LevelMedium, LevelHard:
		return true
	}
	return false
}

// Movie is a themed round inside a game. Index is the stable ordering
// key, unique per game. Movies are immutable during a session.
type Movie struct {
	ID        string               `json:"id"`
	GameID    string               `json:"gameId"`
	Title     string               `json:"title"`
	Index     int                  `json:"index"`
	Levels    map[LevelName]string `json:"levels"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

// Level groups the questions of one difficulty tier under a movie.
type Level struct {
	ID          string    `json:"id"`
	MovieID     string    `json:"movieId"`
	LevelName   LevelName `json:"levelName"`
	QuestionIDs []string  `json:"questionIds"`
}

// NewMovie constructs a movie and its three levels. Every movie gets
// an easy/medium/hard level up front so question authoring never has
// to branch on level presence.
func NewMovie(gameID, title string, index int) (*Movie, []*Level) {
	now := time.Now().UTC()
	movie := &Movie{
		ID:        uuid.NewString(),
		GameID:    gameID,
		Title:     title,
		Index:     index,
		Levels:    make(map[LevelName]string, 3),
		CreatedAt: now,
		UpdatedAt: now,
	}

	levels := make([]*Level, 0, 3)
	for _, name := range LevelNames() {
		level := &Level{
			ID:          uuid.NewString(),
			MovieID:     movie.ID,
			LevelName:   name,
			QuestionIDs: []string{},
		}
		movie.Levels[name] = level.ID
		levels = append(levels, level)
	}
	return movie, levels
}

// CreateMovieRequest is the payload for adding a movie to a game.
type CreateMovieRequest struct {
	Title string `json:"title"`
	Index int    `json:"index"`
}
