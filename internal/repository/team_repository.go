package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"cinetrivia/internal/domain"
	"cinetrivia/pkg/database"
)

type PostgresTeamRepository struct {
	db *database.PostgresDB
}

func NewPostgresTeamRepository(db *database.PostgresDB) *PostgresTeamRepository {
	return &PostgresTeamRepository{db: db}
}

const teamColumns = "id, game_id, team_number, score, correct_count, wrong_count, created_at, updated_at"

func scanTeam(row pgx.Row) (*domain.Team, error) {
	var team domain.Team
	err := row.Scan(
		&team.ID,
		&team.GameID,
		&team.TeamNumber,
		&team.Score,
		&team.CorrectCount,
		&team.WrongCount,
		&team.CreatedAt,
		&team.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// CreateBatch persists the teams of one setup operation in a single
// transaction so a failed setup leaves no partial roster behind. The
// UNIQUE (game_id, team_number) constraint catches a setup racing an
// existing roster; that case surfaces as ErrDuplicateTeam.
func (r *PostgresTeamRepository) CreateBatch(ctx context.Context, teams []*domain.Team) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		for _, team := range teams {
			_, err := tx.Exec(ctx, `
				INSERT INTO teams (id, game_id, team_number, score, correct_count, wrong_count, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, team.ID, team.GameID, team.TeamNumber, team.Score, team.CorrectCount, team.WrongCount, team.CreatedAt, team.UpdatedAt)
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == "23505" {
					return ErrDuplicateTeam
				}
				return fmt.Errorf("failed to create team %d: %w", team.TeamNumber, err)
			}
		}
		return nil
	})
}

// ListByGame retrieves a game's teams ordered by team number
func (r *PostgresTeamRepository) ListByGame(ctx context.Context, gameID string) ([]*domain.Team, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM teams WHERE game_id = $1 ORDER BY team_number", teamColumns)

	rows, err := r.db.Pool.Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	teams := make([]*domain.Team, 0)
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read teams: %w", err)
	}
	return teams, nil
}

// GetByNumber retrieves one team of a game
func (r *PostgresTeamRepository) GetByNumber(ctx context.Context, gameID string, teamNumber int) (*domain.Team, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM teams WHERE game_id = $1 AND team_number = $2", teamColumns)

	team, err := scanTeam(r.db.Pool.QueryRow(ctx, query, gameID, teamNumber))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// UpdateCounters overwrites a team's score and counters
func (r *PostgresTeamRepository) UpdateCounters(ctx context.Context, gameID string, teamNumber, score, correctCount, wrongCount int) (*domain.Team, error) {
	query := fmt.Sprintf(`
		UPDATE teams
		SET score = $3, correct_count = $4, wrong_count = $5, updated_at = now()
		WHERE game_id = $1 AND team_number = $2
		RETURNING %s
	`, teamColumns)

	team, err := scanTeam(r.db.Pool.QueryRow(ctx, query, gameID, teamNumber, score, correctCount, wrongCount))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update team counters: %w", err)
	}
	return team, nil
}

// CountByGame counts the teams of a game
func (r *PostgresTeamRepository) CountByGame(ctx context.Context, gameID string) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM teams WHERE game_id = $1", gameID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count teams: %w", err)
	}
	return count, nil
}

// DeleteByGame removes every team of a game, returning the count
func (r *PostgresTeamRepository) DeleteByGame(ctx context.Context, gameID string) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, "DELETE FROM teams WHERE game_id = $1", gameID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete teams: %w", err)
	}
	return tag.RowsAffected(), nil
}
