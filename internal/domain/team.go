package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Team is a per-game competitor. TeamNumber is unique per game and
// assigned 1..n during setup; counters never go below zero, score may.
type Team struct {
	ID           string    `json:"id"`
	GameID       string    `json:"gameId"`
	TeamNumber   int       `json:"teamNumber"`
	Score        int       `json:"score"`
	CorrectCount int       `json:"correctCount"`
	WrongCount   int       `json:"wrongCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewTeam constructs a zeroed team for a game.
func NewTeam(gameID string, teamNumber int) *Team {
	now := time.Now().UTC()
	return &Team{
		ID:           uuid.NewString(),
		GameID:       gameID,
		TeamNumber:   teamNumber,
		Score:        0,
		CorrectCount: 0,
		WrongCount:   0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// TeamStanding is the ranked leaderboard projection of a team.
type TeamStanding struct {
	Rank         int `json:"rank"`
	TeamNumber   int `json:"teamNumber"`
	Score        int `json:"score"`
	CorrectCount int `json:"correctCount"`
	WrongCount   int `json:"wrongCount"`
}

// RankTeams derives the leaderboard: score descending, then correct
// count descending, then team number ascending. The order is total and
// deterministic, so ranks are unique 1-based positions.
func RankTeams(teams []*Team) []TeamStanding {
	sorted := make([]*Team, len(teams))
	copy(sorted, teams)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.CorrectCount != b.CorrectCount {
			return a.CorrectCount > b.CorrectCount
		}
		return a.TeamNumber < b.TeamNumber
	})

	standings := make([]TeamStanding, len(sorted))
	for i, team := range sorted {
		standings[i] = TeamStanding{
			Rank:         i + 1,
			TeamNumber:   team.TeamNumber,
			Score:        team.Score,
			CorrectCount: team.CorrectCount,
			WrongCount:   team.WrongCount,
		}
	}
	return standings
}

// Standing projects a single team into its leaderboard shape without a
// rank (rank is only meaningful relative to the full set).
func (t *Team) Standing() *TeamStanding {
	return &TeamStanding{
		TeamNumber:   t.TeamNumber,
		Score:        t.Score,
		CorrectCount: t.CorrectCount,
		WrongCount:   t.WrongCount,
	}
}

// CreateTeamsRequest is the payload for the one-shot team setup.
type CreateTeamsRequest struct {
	NumberOfTeams int `json:"numberOfTeams"`
}

// UpdateTeamScoreRequest is the payload for the manual score override.
// Score is required and absolute; the optional counters replace their
// current values when provided.
type UpdateTeamScoreRequest struct {
	Score        *int `json:"score"`
	CorrectCount *int `json:"correctCount,omitempty"`
	WrongCount   *int `json:"wrongCount,omitempty"`
}
