package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"cinetrivia/internal/domain"
	"cinetrivia/pkg/database"
)

type PostgresMovieRepository struct {
	db *database.PostgresDB
}

func NewPostgresMovieRepository(db *database.PostgresDB) *PostgresMovieRepository {
	return &PostgresMovieRepository{db: db}
}

// Create persists a movie together with its provisioned levels
func (r *PostgresMovieRepository) Create(ctx context.Context, movie *domain.Movie, levels []*domain.Level) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO movies (id, game_id, title, index, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, movie.ID, movie.GameID, movie.Title, movie.Index, movie.CreatedAt, movie.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create movie: %w", err)
		}

		for _, level := range levels {
			_, err := tx.Exec(ctx, `
				INSERT INTO levels (id, movie_id, level_name)
				VALUES ($1, $2, $3)
			`, level.ID, level.MovieID, string(level.LevelName))
			if err != nil {
				return fmt.Errorf("failed to create level: %w", err)
			}
		}
		return nil
	})
}

// GetByID retrieves a movie with its level references
func (r *PostgresMovieRepository) GetByID(ctx context.Context, id string) (*domain.Movie, error) {
	var movie domain.Movie
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, game_id, title, index, created_at, updated_at
		FROM movies
		WHERE id = $1
	`, id).Scan(&movie.ID, &movie.GameID, &movie.Title, &movie.Index, &movie.CreatedAt, &movie.UpdatedAt)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get movie: %w", err)
	}

	if err := r.fillLevelRefs(ctx, &movie); err != nil {
		return nil, err
	}
	return &movie, nil
}

// ListByGame retrieves a game's movies ordered by index
func (r *PostgresMovieRepository) ListByGame(ctx context.Context, gameID string) ([]*domain.Movie, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, game_id, title, index, created_at, updated_at
		FROM movies
		WHERE game_id = $1
		ORDER BY index
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	defer rows.Close()

	movies := make([]*domain.Movie, 0)
	for rows.Next() {
		var movie domain.Movie
		if err := rows.Scan(&movie.ID, &movie.GameID, &movie.Title, &movie.Index, &movie.CreatedAt, &movie.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan movie: %w", err)
		}
		movies = append(movies, &movie)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read movies: %w", err)
	}

	for _, movie := range movies {
		if err := r.fillLevelRefs(ctx, movie); err != nil {
			return nil, err
		}
	}
	return movies, nil
}

// GetLevels retrieves a movie's levels with their ordered question IDs
func (r *PostgresMovieRepository) GetLevels(ctx context.Context, movieID string) ([]*domain.Level, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, movie_id, level_name
		FROM levels
		WHERE movie_id = $1
	`, movieID)
	if err != nil {
		return nil, fmt.Errorf("failed to list levels: %w", err)
	}
	defer rows.Close()

	levels := make([]*domain.Level, 0, 3)
	for rows.Next() {
		var level domain.Level
		var name string
		if err := rows.Scan(&level.ID, &level.MovieID, &name); err != nil {
			return nil, fmt.Errorf("failed to scan level: %w", err)
		}
		level.LevelName = domain.LevelName(name)
		level.QuestionIDs = []string{}
		levels = append(levels, &level)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read levels: %w", err)
	}

	for _, level := range levels {
		questionRows, err := r.db.Pool.Query(ctx,
			"SELECT id FROM questions WHERE level_id = $1 ORDER BY created_at", level.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list level questions: %w", err)
		}
		for questionRows.Next() {
			var questionID string
			if err := questionRows.Scan(&questionID); err != nil {
				questionRows.Close()
				return nil, fmt.Errorf("failed to scan question id: %w", err)
			}
			level.QuestionIDs = append(level.QuestionIDs, questionID)
		}
		questionRows.Close()
		if err := questionRows.Err(); err != nil {
			return nil, fmt.Errorf("failed to read level questions: %w", err)
		}
	}
	return levels, nil
}

// Delete removes a movie, its levels and their questions
func (r *PostgresMovieRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM questions WHERE movie_id = $1", id); err != nil {
			return fmt.Errorf("failed to delete movie questions: %w", err)
		}
		if _, err := tx.Exec(ctx, "DELETE FROM levels WHERE movie_id = $1", id); err != nil {
			return fmt.Errorf("failed to delete movie levels: %w", err)
		}

		tag, err := tx.Exec(ctx, "DELETE FROM movies WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("failed to delete movie: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *PostgresMovieRepository) fillLevelRefs(ctx context.Context, movie *domain.Movie) error {
	rows, err := r.db.Pool.Query(ctx,
		"SELECT id, level_name FROM levels WHERE movie_id = $1", movie.ID)
	if err != nil {
		return fmt.Errorf("failed to list level refs: %w", err)
	}
	defer rows.Close()

	movie.Levels = make(map[domain.LevelName]string, 3)
	for rows.Next() {
		var levelID, name string
		if err := rows.Scan(&levelID, &name); err != nil {
			return fmt.Errorf("failed to scan level ref: %w", err)
		}
		movie.Levels[domain.LevelName(name)] = levelID
	}
	return rows.Err()
}
