package container

import (
	"context"
	"fmt"

	"cinetrivia/internal/broadcast"
	"cinetrivia/internal/config"
	"cinetrivia/internal/hub"
	"cinetrivia/internal/repository"
	"cinetrivia/internal/repository/memory"
	"cinetrivia/internal/scoring"
	"cinetrivia/internal/service"
	"cinetrivia/pkg/database"
	"cinetrivia/pkg/logger"
	"cinetrivia/pkg/redis"
)

// Container holds all application dependencies.
type Container struct {
	Config       *config.Config
	Logger       *logger.Logger
	RedisClient  *redis.Client        // nil when Redis is not configured
	DB           *database.PostgresDB // nil when running on the in-memory store
	Repositories *repository.Repositories
	Services     *service.Services
	Hub          *hub.Hub
	Gateway      broadcast.Gateway
}

// New creates a new dependency injection container. Redis and Postgres
// are both optional: without Redis events stay in-process through the
// local gateway, without Postgres the in-memory store backs the
// repositories (single-instance development mode).
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	table, err := scoring.TableByName(cfg.ScoringTable)
	if err != nil {
		return nil, fmt.Errorf("invalid scoring configuration: %w", err)
	}
	engine := scoring.NewEngine(table)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Redis client, proceeding without caching")
		} else {
			redisClient = client
			log.Info("Redis client initialized successfully")
		}
	} else {
		log.Info("Redis URL not configured, proceeding without caching")
	}

	var db *database.PostgresDB
	var repos *repository.Repositories
	if cfg.DatabaseURL != "" {
		pg, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			if redisClient != nil {
				redisClient.Close()
			}
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		db = pg
		repos = &repository.Repositories{
			Games:     repository.NewPostgresGameRepository(pg),
			Movies:    repository.NewPostgresMovieRepository(pg),
			Questions: repository.NewPostgresQuestionRepository(pg),
			Teams:     repository.NewPostgresTeamRepository(pg),
			Sessions:  repository.NewPostgresSessionRepository(pg),
		}
		log.Info("Postgres repositories initialized")
	} else {
		repos = memory.NewStore().Repositories()
		log.Warn("Database URL not configured, using the in-memory store")
	}

	eventHub := hub.New(cfg.AllowedOrigins, log)

	var gateway broadcast.Gateway
	if redisClient != nil {
		redisGateway := broadcast.NewRedisGateway(redisClient, log)
		eventHub.SetStateSource(redisGateway.Snapshot)
		gateway = redisGateway
	} else {
		localGateway := hub.NewLocalGateway(eventHub)
		eventHub.SetStateSource(localGateway.Snapshot)
		gateway = localGateway
	}

	leaderboard := service.NewLeaderboardService(repos, redisClient, log)
	services := &service.Services{
		Auth:        service.NewAuthService(cfg.JWTSecret, cfg.AdminPasswordHash, log),
		Games:       service.NewGameService(repos, leaderboard, gateway, engine, log),
		Questions:   service.NewQuestionService(repos, leaderboard, gateway, engine, log),
		Leaderboard: leaderboard,
	}

	return &Container{
		Config:       cfg,
		Logger:       log,
		RedisClient:  redisClient,
		DB:           db,
		Repositories: repos,
		Services:     services,
		Hub:          eventHub,
		Gateway:      gateway,
	}, nil
}

// HasRedis reports whether a Redis client is available.
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}

// HasDatabase reports whether Postgres backs the repositories.
func (c *Container) HasDatabase() bool {
	return c.DB != nil
}

// Close releases the container's external connections.
func (c *Container) Close() {
	if c.DB != nil {
		c.DB.Close()
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.WithError(err).Warn("Failed to close Redis client")
		}
	}
}
