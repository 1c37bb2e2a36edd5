package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"cinetrivia/internal/domain"
	"cinetrivia/pkg/database"
)

type PostgresSessionRepository struct {
	db *database.PostgresDB
}

func NewPostgresSessionRepository(db *database.PostgresDB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

// ResolveAnswer marks the question answered and applies the score
// delta to the team in one transaction. The lifecycle update is keyed
// on the exact state the caller computed the delta from (opened, not
// answered, passCount pass entries), so a concurrent pass or answer
// makes this attempt a no-op instead of committing a stale delta.
func (r *PostgresSessionRepository) ResolveAnswer(ctx context.Context, questionID string, passCount, teamNumber, delta int, isCorrect bool) (*domain.Question, *domain.Team, error) {
	var question *domain.Question
	var team *domain.Team

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		questionQuery := fmt.Sprintf(`
			UPDATE questions
			SET answered = TRUE, updated_at = now()
			WHERE id = $1 AND opened = TRUE AND answered = FALSE
				AND jsonb_array_length(pass_history) = $2
			RETURNING %s
		`, questionColumns)

		var err error
		question, err = scanQuestion(tx.QueryRow(ctx, questionQuery, questionID, passCount))
		if err == pgx.ErrNoRows {
			question = nil
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to mark question answered: %w", err)
		}

		correctInc, wrongInc := 0, 1
		if isCorrect {
			correctInc, wrongInc = 1, 0
		}

		teamQuery := fmt.Sprintf(`
			UPDATE teams
			SET score = score + $3,
				correct_count = correct_count + $4,
				wrong_count = wrong_count + $5,
				updated_at = now()
			WHERE game_id = $1 AND team_number = $2
			RETURNING %s
		`, teamColumns)

		team, err = scanTeam(tx.QueryRow(ctx, teamQuery,
			question.GameID, teamNumber, delta, correctInc, wrongInc))
		if err == pgx.ErrNoRows {
			// Roll the lifecycle transition back; the question stays
			// answerable and no score moved.
			return ErrTeamNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to apply team result: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if question == nil {
		return nil, nil, nil
	}
	return question, team, nil
}

// ResetGame restores a game to its pre-session state in one
// transaction. Content, ordering and team rosters are untouched.
func (r *PostgresSessionRepository) ResetGame(ctx context.Context, gameID string) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE questions
			SET opened = FALSE, answered = FALSE, pass_history = '[]'::jsonb,
				current_holder = 0, updated_at = now()
			WHERE game_id = $1
		`, gameID)
		if err != nil {
			return fmt.Errorf("failed to reset questions: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE teams
			SET score = 0, correct_count = 0, wrong_count = 0, updated_at = now()
			WHERE game_id = $1
		`, gameID)
		if err != nil {
			return fmt.Errorf("failed to reset teams: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			UPDATE games
			SET status = $2, updated_at = now()
			WHERE id = $1
		`, gameID, string(domain.GameStatusNotStarted))
		if err != nil {
			return fmt.Errorf("failed to reset game status: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}
