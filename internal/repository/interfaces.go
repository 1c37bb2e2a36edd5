package repository

import (
	"context"
	"errors"

	"cinetrivia/internal/domain"
)

// ErrTeamNotFound is returned by ResolveAnswer when the target team
// does not exist for the game; the whole resolution is rolled back.
var ErrTeamNotFound = errors.New("team not found for game")

// ErrNotFound is returned by update/delete methods when the target
// entity does not exist.
var ErrNotFound = errors.New("entity not found")

// ErrDuplicateTeam is returned by CreateBatch when a team number of the
// batch already exists for the game; nothing is persisted.
var ErrDuplicateTeam = errors.New("team already exists for game")

// Lookup methods return (nil, nil) when the entity is absent; callers
// translate that into their own not-found semantics. Conditional
// lifecycle methods additionally return (nil, nil) when the state
// condition did not hold, so concurrent races resolve to exactly one
// winner at the store.

// GameRepository defines the interface for game document operations
type GameRepository interface {
	// Create persists a new game
	Create(ctx context.Context, game *domain.Game) error

	// GetByID retrieves a game by ID
	GetByID(ctx context.Context, id string) (*domain.Game, error)

	// List retrieves all games, newest first
	List(ctx context.Context) ([]*domain.Game, error)

	// Update persists admin-editable game fields
	Update(ctx context.Context, game *domain.Game) error

	// MarkLive transitions a game to live, conditional on it not
	// already being live
	MarkLive(ctx context.Context, id string) (*domain.Game, error)

	// ToggleShowAnswer flips allowShowAnswer atomically
	ToggleShowAnswer(ctx context.Context, id string) (*domain.Game, error)

	// Delete removes a game and all of its content
	Delete(ctx context.Context, id string) error
}

// MovieRepository defines the interface for movie and level operations
type MovieRepository interface {
	// Create persists a movie together with its provisioned levels
	Create(ctx context.Context, movie *domain.Movie, levels []*domain.Level) error

	// GetByID retrieves a movie by ID
	GetByID(ctx context.Context, id string) (*domain.Movie, error)

	// ListByGame retrieves a game's movies ordered by index
	ListByGame(ctx context.Context, gameID string) ([]*domain.Movie, error)

	// GetLevels retrieves a movie's levels with their ordered question IDs
	GetLevels(ctx context.Context, movieID string) ([]*domain.Level, error)

	// Delete removes a movie, its levels and their questions
	Delete(ctx context.Context, id string) error
}

// QuestionRepository defines the interface for question operations
type QuestionRepository interface {
	// Create persists a new question
	Create(ctx context.Context, question *domain.Question) error

	// GetByID retrieves a question by ID
	GetByID(ctx context.Context, id string) (*domain.Question, error)

	// ListByGame retrieves every question of a game
	ListByGame(ctx context.Context, gameID string) ([]*domain.Question, error)

	// UpdateContent replaces the editable content fields
	UpdateContent(ctx context.Context, id, text string, options []string, correctIndex int) (*domain.Question, error)

	// Delete removes a question
	Delete(ctx context.Context, id string) error

	// MarkOpened opens a question, conditional on it being unopened.
	// holder 0 leaves the question unassigned.
	MarkOpened(ctx context.Context, id string, holder int) (*domain.Question, error)

	// AppendPass appends a pass entry and moves the current holder to
	// the pass target, conditional on the question being opened,
	// unanswered and held by entry.FromTeam (or unassigned)
	AppendPass(ctx context.Context, id string, entry domain.PassEntry) (*domain.Question, error)
}

// TeamRepository defines the interface for team score bookkeeping
type TeamRepository interface {
	// CreateBatch persists the teams of one setup operation; returns
	// ErrDuplicateTeam (nothing persisted) when a team number of the
	// batch already exists for its game
	CreateBatch(ctx context.Context, teams []*domain.Team) error

	// ListByGame retrieves a game's teams ordered by team number
	ListByGame(ctx context.Context, gameID string) ([]*domain.Team, error)

	// GetByNumber retrieves one team of a game
	GetByNumber(ctx context.Context, gameID string, teamNumber int) (*domain.Team, error)

	// UpdateCounters overwrites a team's score and counters; returns
	// (nil, nil) when the team does not exist
	UpdateCounters(ctx context.Context, gameID string, teamNumber, score, correctCount, wrongCount int) (*domain.Team, error)

	// CountByGame counts the teams of a game
	CountByGame(ctx context.Context, gameID string) (int, error)

	// DeleteByGame removes every team of a game, returning the count
	DeleteByGame(ctx context.Context, gameID string) (int64, error)
}

// SessionRepository owns the multi-entity session transitions that
// must commit as a single unit.
type SessionRepository interface {
	// ResolveAnswer marks the question answered and applies the score
	// delta to the team in one transaction. The question update is
	// conditional on opened, not answered, and the pass history still
	// holding exactly passCount entries (the state the delta was
	// computed from). Returns (nil, nil, nil) when that condition no
	// longer holds, and ErrTeamNotFound (nothing committed) when the
	// team is absent.
	ResolveAnswer(ctx context.Context, questionID string, passCount, teamNumber, delta int, isCorrect bool) (*domain.Question, *domain.Team, error)

	// ResetGame restores a game to its pre-session state in one
	// transaction: every question unopened/unanswered with empty pass
	// history, every team zeroed, game status back to not-started.
	// Content and team rosters are untouched.
	ResetGame(ctx context.Context, gameID string) error
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Games     GameRepository
	Movies    MovieRepository
	Questions QuestionRepository
	Teams     TeamRepository
	Sessions  SessionRepository
}
