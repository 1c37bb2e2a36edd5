package service

import (
	"context"
	"encoding/json"

	"cinetrivia/internal/domain"
	"cinetrivia/internal/repository"
	apperrors "cinetrivia/pkg/errors"
	"cinetrivia/pkg/logger"
	"cinetrivia/pkg/redis"
)

// LeaderboardService serves the ranked standings of a game, fronted by
// a short-TTL Redis cache. The cache is invalidated on every score
// mutation, so the TTL only bounds staleness across instances that
// missed an invalidation.
type LeaderboardService struct {
	repos  *repository.Repositories
	redis  *redis.Client // nil when Redis is not configured
	logger *logger.Logger
}

func NewLeaderboardService(repos *repository.Repositories, redisClient *redis.Client, log *logger.Logger) *LeaderboardService {
	return &LeaderboardService{
		repos:  repos,
		redis:  redisClient,
		logger: log,
	}
}

// Leaderboard returns the deterministic standings of a game: score
// descending, correct count descending, team number ascending.
func (s *LeaderboardService) Leaderboard(ctx context.Context, gameID string) ([]domain.TeamStanding, error) {
	if standings, ok := s.fromCache(ctx, gameID); ok {
		return standings, nil
	}

	game, err := s.repos.Games.GetByID(ctx, gameID)
	if err != nil {
		return nil, apperrors.NewDependencyError("Failed to get game", err)
	}
	if game == nil {
		return nil, apperrors.NewNotFoundError("Game not found")
	}

	teams, err := s.repos.Teams.ListByGame(ctx, gameID)
	if err != nil {
		return nil, apperrors.NewDependencyError("Failed to list teams", err)
	}

	standings := domain.RankTeams(teams)
	s.toCache(ctx, gameID, standings)
	return standings, nil
}

// Invalidate drops the cached standings of a game. Called after every
// score mutation and on restart/teardown.
func (s *LeaderboardService) Invalidate(ctx context.Context, gameID string) {
	if s.redis == nil {
		return
	}
	key := s.redis.KeyBuilder.KeyLeaderboard(gameID)
	if err := s.redis.Delete(ctx, key); err != nil {
		s.logger.WithError(err).WithField("game_id", gameID).Warn("Failed to invalidate leaderboard cache")
	}
}

func (s *LeaderboardService) fromCache(ctx context.Context, gameID string) ([]domain.TeamStanding, bool) {
	if s.redis == nil {
		return nil, false
	}

	key := s.redis.KeyBuilder.KeyLeaderboard(gameID)
	cached, err := s.redis.Get(ctx, key)
	if err != nil {
		if !redis.IsNil(err) {
			s.logger.WithError(err).Warn("Leaderboard cache read failed")
		}
		return nil, false
	}

	var standings []domain.TeamStanding
	if err := json.Unmarshal([]byte(cached), &standings); err != nil {
		s.logger.WithError(err).Warn("Leaderboard cache entry is corrupt")
		return nil, false
	}
	return standings, true
}

func (s *LeaderboardService) toCache(ctx context.Context, gameID string, standings []domain.TeamStanding) {
	if s.redis == nil {
		return
	}

	encoded, err := json.Marshal(standings)
	if err != nil {
		return
	}
	key := s.redis.KeyBuilder.KeyLeaderboard(gameID)
	if err := s.redis.Set(ctx, key, encoded, redis.TTLLeaderboard); err != nil {
		s.logger.WithError(err).Warn("Leaderboard cache write failed")
	}
}
