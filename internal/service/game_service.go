package service

import (
	"context"
	"fmt"

	"cinetrivia/internal/broadcast"
	"cinetrivia/internal/domain"
	"cinetrivia/internal/repository"
	"cinetrivia/internal/scoring"
	apperrors "cinetrivia/pkg/errors"
	"cinetrivia/pkg/logger"
)

// MaxTeams bounds one-shot team setup; team numbers stay readable on a
// stage display.
const MaxTeams = 100

// GameService owns the game content hierarchy and session lifecycle.
type GameService struct {
	repos       *repository.Repositories
	leaderboard *LeaderboardService
	gateway     broadcast.Gateway
	engine      *scoring.Engine
	logger      *logger.Logger
}

func NewGameService(repos *repository.Repositories, leaderboard *LeaderboardService, gateway broadcast.Gateway, engine *scoring.Engine, log *logger.Logger) *GameService {
	return &GameService{
		repos:       repos,
		leaderboard: leaderboard,
		gateway:     gateway,
		engine:      engine,
		logger:      log,
	}
}

// CreateGame creates a new game in the not-started state.
func (s *GameService) CreateGame(ctx context.Context, req *domain.CreateGameRequest) (*domain.Game, error) {
	if req.Title == "" {
		return nil, apperrors.NewValidationError("Game title is required", nil)
	}

	game := domain.NewGame(req.Title, req.Description)
	if err := s.repos.Games.Create(ctx, game); err != nil {
		return nil, apperrors.NewDependencyError("Failed to create game", err)
	}

	s.logger.WithField("game_id", game.ID).Info("Game created")
	return game, nil
}

// GetGame retrieves a game with its ordered movie references.
func (s *GameService) GetGame(ctx context.Context, id string) (*domain.Game, error) {
	game, err := s.repos.Games.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewDependencyError("Failed to get game", err)
	}
	if game == nil {
		return nil, apperrors.NewNotFoundError("Game not found")
	}
	return game, nil
}

// ListGames lists all games, newest first.
func (s *GameService) ListGames(ctx context.Context) ([]*domain.Game, error) {
	games, err := s.repos.Games.List(ctx)
	if err != nil {
		return nil, apperrors.NewDependencyError("Failed to list games", err)
	}
	return games, nil
}

// UpdateGame applies admin edits to a game. Lifecycle transitions keep
// their dedicated operations; this accepts status only for the explicit
// admin override (for example marking a game finished).
func (s *GameService) UpdateGame(ctx context.Context, id string, req *domain.UpdateGameRequest) (*domain.Game, error) {
	game, err := s.GetGame(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		if *req.Title == "" {
			return nil, apperrors.NewValidationError("Game title is required", nil)
		}
		game.Title = *req.Title
	}
	if req.Description != nil {
		game.Description = *req.Description
	}
	if req.Status != nil {
		if !domain.ValidGameStatus(*req.Status) {
			return nil, apperrors.NewValidationError("Unknown game status", map[string]interface{}{
				"status": *req.Status,
			})
		}
		game.Status = *req.Status
	}
	if req.AllowShowAnswer != nil {
		game.AllowShowAnswer = *req.AllowShowAnswer
	}

	if err := s.repos.Games.Update(ctx, game); err != nil {
		if err == repository.ErrNotFound {
			return nil, apperrors.NewNotFoundError("Game not found")
		}
		return nil, apperrors.NewDependencyError("Failed to update game", err)
	}

	s.publishSnapshot(ctx, game.ID)
	return game, nil
}

// DeleteGame removes a game and all of its movies, levels, questions
// and teams.
func (s *GameService) DeleteGame(ctx context.Context, id string) error {
	if err := s.repos.Games.Delete(ctx, id); err != nil {
		if err == repository.ErrNotFound {
			return apperrors.NewNotFoundError("Game not found")
		}
		return apperrors.NewDependencyError("Failed to delete game", err)
	}

	s.leaderboard.Invalidate(ctx, id)
	s.logger.WithField("game_id", id).Info("Game deleted")
	return nil
}

// Start transitions a game to live. Starting an already live game is a
// state conflict, not an idempotent no-op, so two operators racing the
// button see exactly one success.
func (s *GameService) Start(ctx context.Context, id string) (*domain.Game, error) {
	game, err := s.repos.Games.MarkLive(ctx, id)
	if err != nil {
		return nil, apperrors.NewDependencyError("Failed to start game", err)
	}
	if game == nil {
		if _, err := s.GetGame(ctx, id); err != nil {
			return nil, err
		}
		return nil, apperrors.NewStateConflictError("Game is already live", nil)
	}

	s.logger.WithField("game_id", id).Info("Game started")
	s.publishSnapshot(ctx, id)
	return game, nil
}

// Restart resets the session state of a game in one atomic unit: every
// question back to unopened with empty pass history, every team zeroed,
// status back to not-started. Content and rosters survive.
func (s *GameService) Restart(ctx context.Context, id string) error {
	if err := s.repos.Sessions.ResetGame(ctx, id); err != nil {
		if err == repository.ErrNotFound {
			return apperrors.NewNotFoundError("Game not found")
		}
		return apperrors.NewDependencyError("Failed to restart game", err)
	}

	s.leaderboard.Invalidate(ctx, id)
	s.logger.WithField("game_id", id).Info("Game restarted")

	s.publishSnapshot(ctx, id)
	s.publishLeaderboard(ctx, id)
	return nil
}

// ToggleShowAnswer flips whether viewers may see correct answers.
func (s *GameService) ToggleShowAnswer(ctx context.Context, id string) (*domain.Game, error) {
	game, err := s.repos.Games.ToggleShowAnswer(ctx, id)
	if err != nil {
		return nil, apperrors.NewDependencyError("Failed to toggle show answer", err)
	}
	if game == nil {
		return nil, apperrors.NewNotFoundError("Game not found")
	}

	s.publishSnapshot(ctx, id)
	return game, nil
}

// CreateTeams provisions teams 1..n for a game in one shot. Setup is
// rejected when any roster already exists; operators must tear the old
// roster down first so scores are never silently mixed across setups.
func (s *GameService) CreateTeams(ctx context.Context, gameID string, req *domain.CreateTeamsRequest) ([]*domain.Team, error) {
	if req.NumberOfTeams < 1 || req.NumberOfTeams > MaxTeams {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("Number of teams must be between 1 and %d", MaxTeams),
			map[string]interface{}{"numberOfTeams": req.NumberOfTeams})
	}

	if _, err := s.GetGame(ctx, gameID); err != nil {
		return nil, err
	}

	count, err := s.repos.Teams.CountByGame(ctx, gameID)
	if err != nil {
		return nil, apperrors.NewDependencyError("Failed to count teams", err)
	}
	if count > 0 {
		return nil, apperrors.NewStateConflictError("Teams already exist for this game", map[string]interface{}{
			"existingTeams": count,
		})
	}

	teams := make([]*domain.Team, 0, req.NumberOfTeams)
	for i := 1; i <= req.NumberOfTeams; i++ {
		teams = append(teams, domain.NewTeam(gameID, i))
	}
	if err := s.repos.Teams.CreateBatch(ctx, teams); err != nil {
		if err == repository.ErrDuplicateTeam {
			// A concurrent setup slipped in between the count and the
			// insert; the store's uniqueness guard broke the tie.
			return nil, apperrors.NewStateConflictError("Teams already exist for this game", nil)
		}
		return nil, apperrors.NewDependencyError("Failed to create teams", err)
	}

	s.leaderboard.Invalidate(ctx, gameID)
	s.logger.WithFields(map[string]interface{}{
		"game_id": gameID,
		"teams":   req.NumberOfTeams,
	}).Info("Teams created")

	s.publishLeaderboard(ctx, gameID)
	return teams, nil
}

// ListTeams lists a game's teams ordered by team number.
func (s *GameService) ListTeams(ctx context.Context, gameID string) ([]*domain.Team, error) {
	if _, err := s.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	teams, err := s.repos.Teams.ListByGame(ctx, gameID)
	if err != nil {
		return nil, apperrors.NewDependencyError("Failed to list teams", err)
	}
	return teams, nil
}

// UpdateTeamScore applies a manual override to a team's score and
// counters, for correcting a mis-scored round without restarting the
// session. Values are absolute; last write wins.
func (s *GameService) UpdateTeamScore(ctx context.Context, gameID string, teamNumber int, req *domain.UpdateTeamScoreRequest) (*domain.Team, error) {
	if req.Score == nil {
		return nil, apperrors.NewValidationError("Score is required", nil)
	}
	if req.CorrectCount != nil && *req.CorrectCount < 0 {
		return nil, apperrors.NewValidationError("Correct count must not be negative", map[string]interface{}{
			"correctCount": *req.CorrectCount,
		})
	}
	if req.WrongCount != nil && *req.WrongCount < 0 {
		return nil, apperrors.NewValidationError("Wrong count must not be negative", map[string]interface{}{
			"wrongCount": *req.WrongCount,
		})
	}

	team, err := s.repos.Teams.GetByNumber(ctx, gameID, teamNumber)
	if err != nil {
		return nil, apperrors.NewDependencyError("Failed to get team", err)
	}
	if team == nil {
		return nil, apperrors.NewNotFoundError("Team not found for this game")
	}

	correctCount, wrongCount := team.CorrectCount, team.WrongCount
	if req.CorrectCount != nil {
		correctCount = *req.CorrectCount
	}
	if req.WrongCount != nil {
		wrongCount = *req.WrongCount
	}

	updated, err := s.repos.Teams.UpdateCounters(ctx, gameID, teamNumber, *req.Score, correctCount, wrongCount)
	if err != nil {
		return nil, apperrors.NewDependencyError("Failed to update team score", err)
	}
	if updated == nil {
		return nil, apperrors.NewNotFoundError("Team not found for this game")
	}

	s.leaderboard.Invalidate(ctx, gameID)
	s.logger.WithFields(map[string]interface{}{
		"game_id":     gameID,
		"team_number": teamNumber,
		"score":       updated.Score,
	}).Info("Team score overridden")

	s.publishLeaderboard(ctx, gameID)
	return updated, nil
}

// DeleteTeams tears down a game's roster, returning the removed count.
func (s *GameService) DeleteTeams(ctx context.Context, gameID string) (int64, error) {
	if _, err := s.GetGame(ctx, gameID); err != nil {
		return 0, err
	}

	deleted, err := s.repos.Teams.DeleteByGame(ctx, gameID)
	if err != nil {
		return 0, apperrors.NewDependencyError("Failed to delete teams", err)
	}

	s.leaderboard.Invalidate(ctx, gameID)
	s.publishLeaderboard(ctx, gameID)
	return deleted, nil
}

// CreateMovie adds a movie to a game with its three levels provisioned.
func (s *GameService) CreateMovie(ctx context.Context, gameID string, req *domain.CreateMovieRequest) (*domain.Movie, error) {
	if req.Title == "" {
		return nil, apperrors.NewValidationError("Movie title is required", nil)
	}
	if req.Index < 0 {
		return nil, apperrors.NewValidationError("Movie index must not be negative", map[string]interface{}{
			"index": req.Index,
		})
	}

	if _, err := s.GetGame(ctx, gameID); err != nil {
		return nil, err
	}

	existing, err := s.repos.Movies.ListByGame(ctx, gameID)
	if err != nil {
		return nil, apperrors.NewDependencyError("Failed to check movie index", err)
	}
	for _, m := range existing {
		if m.Index == req.Index {
			return nil, apperrors.NewStateConflictError("Movie index is already taken", map[string]interface{}{
				"index": req.Index,
			})
		}
	}

	movie, levels := domain.NewMovie(gameID, req.Title, req.Index)
	if err := s.repos.Movies.Create(ctx, movie, levels); err != nil {
		return nil, apperrors.NewDependencyError("Failed to create movie", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"game_id":  gameID,
		"movie_id": movie.ID,
	}).Info("Movie created")
	return movie, nil
}

// ListMovies lists a game's movies ordered by index.
func (s *GameService) ListMovies(ctx context.Context, gameID string) ([]*domain.Movie, error) {
	if _, err := s.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	movies, err := s.repos.Movies.ListByGame(ctx, gameID)
	if err != nil {
		return nil, apperrors.NewDependencyError("Failed to list movies", err)
	}
	return movies, nil
}

// GetMovie retrieves a movie with its levels and their question IDs.
func (s *GameService) GetMovie(ctx context.Context, id string) (*domain.Movie, []*domain.Level, error) {
	movie, err := s.repos.Movies.GetByID(ctx, id)
	if err != nil {
		return nil, nil, apperrors.NewDependencyError("Failed to get movie", err)
	}
	if movie == nil {
		return nil, nil, apperrors.NewNotFoundError("Movie not found")
	}

	levels, err := s.repos.Movies.GetLevels(ctx, id)
	if err != nil {
		return nil, nil, apperrors.NewDependencyError("Failed to get movie levels", err)
	}
	return movie, levels, nil
}

// DeleteMovie removes a movie with its levels and questions.
func (s *GameService) DeleteMovie(ctx context.Context, id string) error {
	if err := s.repos.Movies.Delete(ctx, id); err != nil {
		if err == repository.ErrNotFound {
			return apperrors.NewNotFoundError("Movie not found")
		}
		return apperrors.NewDependencyError("Failed to delete movie", err)
	}
	return nil
}

// ScoringRules exposes the effective per-level point values so clients
// render the same numbers the engine applies.
func (s *GameService) ScoringRules() map[domain.LevelName]scoring.LevelRules {
	return s.engine.Rules()
}

// publishSnapshot pushes the full game state to broadcast subscribers.
// Broadcast is best effort; the mutation already committed.
func (s *GameService) publishSnapshot(ctx context.Context, gameID string) {
	game, err := s.repos.Games.GetByID(ctx, gameID)
	if err != nil || game == nil {
		return
	}
	teams, err := s.repos.Teams.ListByGame(ctx, gameID)
	if err != nil {
		return
	}

	event := broadcast.Event{
		Type:   broadcast.EventGameStateUpdate,
		GameID: gameID,
		Payload: domain.GameSnapshot{
			Game:  game,
			Teams: domain.RankTeams(teams),
		},
	}
	if err := s.gateway.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithField("game_id", gameID).Warn("Failed to broadcast game state")
	}
}

func (s *GameService) publishLeaderboard(ctx context.Context, gameID string) {
	teams, err := s.repos.Teams.ListByGame(ctx, gameID)
	if err != nil {
		return
	}

	event := broadcast.Event{
		Type:    broadcast.EventLeaderboardUpdate,
		GameID:  gameID,
		Payload: domain.RankTeams(teams),
	}
	if err := s.gateway.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithField("game_id", gameID).Warn("Failed to broadcast leaderboard")
	}
}
