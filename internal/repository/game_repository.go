package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"cinetrivia/internal/domain"
	"cinetrivia/pkg/database"
)

type PostgresGameRepository struct {
	db *database.PostgresDB
}

func NewPostgresGameRepository(db *database.PostgresDB) *PostgresGameRepository {
	return &PostgresGameRepository{db: db}
}

const gameColumns = "id, title, description, status, allow_show_answer, created_at, updated_at"

func scanGame(row pgx.Row) (*domain.Game, error) {
	var game domain.Game
	var status string
	err := row.Scan(
		&game.ID,
		&game.Title,
		&game.Description,
		&status,
		&game.AllowShowAnswer,
		&game.CreatedAt,
		&game.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	game.Status = domain.GameStatus(status)
	game.MovieIDs = []string{}
	return &game, nil
}

// Create persists a new game
func (r *PostgresGameRepository) Create(ctx context.Context, game *domain.Game) error {
	query := `
		INSERT INTO games (id, title, description, status, allow_show_answer, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		game.ID,
		game.Title,
		game.Description,
		string(game.Status),
		game.AllowShowAnswer,
		game.CreatedAt,
		game.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

// GetByID retrieves a game with its ordered movie references
func (r *PostgresGameRepository) GetByID(ctx context.Context, id string) (*domain.Game, error) {
	query := fmt.Sprintf("SELECT %s FROM games WHERE id = $1", gameColumns)

	game, err := scanGame(r.db.Pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx,
		"SELECT id FROM movies WHERE game_id = $1 ORDER BY index", id)
	if err != nil {
		return nil, fmt.Errorf("failed to list game movies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var movieID string
		if err := rows.Scan(&movieID); err != nil {
			return nil, fmt.Errorf("failed to scan movie id: %w", err)
		}
		game.MovieIDs = append(game.MovieIDs, movieID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read game movies: %w", err)
	}

	return game, nil
}

// List retrieves all games, newest first
func (r *PostgresGameRepository) List(ctx context.Context) ([]*domain.Game, error) {
	query := fmt.Sprintf("SELECT %s FROM games ORDER BY created_at DESC", gameColumns)

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	games := make([]*domain.Game, 0)
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read games: %w", err)
	}

	return games, nil
}

// Update persists admin-editable game fields
func (r *PostgresGameRepository) Update(ctx context.Context, game *domain.Game) error {
	query := `
		UPDATE games
		SET title = $2, description = $3, status = $4, allow_show_answer = $5, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		game.ID,
		game.Title,
		game.Description,
		string(game.Status),
		game.AllowShowAnswer,
	)
	if err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkLive transitions a game to live, conditional on it not already
// being live. Returns (nil, nil) when no unstarted game matched.
func (r *PostgresGameRepository) MarkLive(ctx context.Context, id string) (*domain.Game, error) {
	query := fmt.Sprintf(`
		UPDATE games
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status <> $2
		RETURNING %s
	`, gameColumns)

	game, err := scanGame(r.db.Pool.QueryRow(ctx, query, id, string(domain.GameStatusLive)))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark game live: %w", err)
	}
	return game, nil
}

// ToggleShowAnswer flips allowShowAnswer atomically
func (r *PostgresGameRepository) ToggleShowAnswer(ctx context.Context, id string) (*domain.Game, error) {
	query := fmt.Sprintf(`
		UPDATE games
		SET allow_show_answer = NOT allow_show_answer, updated_at = now()
		WHERE id = $1
		RETURNING %s
	`, gameColumns)

	game, err := scanGame(r.db.Pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to toggle show answer: %w", err)
	}
	return game, nil
}

// Delete removes a game and all of its content in one transaction
func (r *PostgresGameRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		statements := []string{
			"DELETE FROM questions WHERE game_id = $1",
			"DELETE FROM levels WHERE movie_id IN (SELECT id FROM movies WHERE game_id = $1)",
			"DELETE FROM movies WHERE game_id = $1",
			"DELETE FROM teams WHERE game_id = $1",
		}
		for _, stmt := range statements {
			if _, err := tx.Exec(ctx, stmt, id); err != nil {
				return fmt.Errorf("failed to delete game content: %w", err)
			}
		}

		tag, err := tx.Exec(ctx, "DELETE FROM games WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("failed to delete game: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}
