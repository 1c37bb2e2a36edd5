package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"cinetrivia/internal/domain"
	"cinetrivia/pkg/database"
)

type PostgresQuestionRepository struct {
	db *database.PostgresDB
}

func NewPostgresQuestionRepository(db *database.PostgresDB) *PostgresQuestionRepository {
	return &PostgresQuestionRepository{db: db}
}

const questionColumns = `id, game_id, movie_id, level_id, level, text, options,
	correct_index, opened, answered, current_holder, pass_history, created_at, updated_at`

func scanQuestion(row pgx.Row) (*domain.Question, error) {
	var q domain.Question
	var level string
	var history []byte
	err := row.Scan(
		&q.ID,
		&q.GameID,
		&q.MovieID,
		&q.LevelID,
		&level,
		&q.Text,
		&q.Options,
		&q.CorrectIndex,
		&q.Opened,
		&q.Answered,
		&q.CurrentHolder,
		&history,
		&q.CreatedAt,
		&q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	q.Level = domain.LevelName(level)
	q.PassHistory = []domain.PassEntry{}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &q.PassHistory); err != nil {
			return nil, fmt.Errorf("failed to decode pass history: %w", err)
		}
	}
	return &q, nil
}

// Create persists a new question
func (r *PostgresQuestionRepository) Create(ctx context.Context, question *domain.Question) error {
	history, err := json.Marshal(question.PassHistory)
	if err != nil {
		return fmt.Errorf("failed to encode pass history: %w", err)
	}

	query := `
		INSERT INTO questions (id, game_id, movie_id, level_id, level, text, options,
			correct_index, opened, answered, current_holder, pass_history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.db.Pool.Exec(ctx, query,
		question.ID,
		question.GameID,
		question.MovieID,
		question.LevelID,
		string(question.Level),
		question.Text,
		question.Options,
		question.CorrectIndex,
		question.Opened,
		question.Answered,
		question.CurrentHolder,
		history,
		question.CreatedAt,
		question.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}
	return nil
}

// GetByID retrieves a question by ID
func (r *PostgresQuestionRepository) GetByID(ctx context.Context, id string) (*domain.Question, error) {
	query := fmt.Sprintf("SELECT %s FROM questions WHERE id = $1", questionColumns)

	question, err := scanQuestion(r.db.Pool.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return question, nil
}

// ListByGame retrieves every question of a game
func (r *PostgresQuestionRepository) ListByGame(ctx context.Context, gameID string) ([]*domain.Question, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM questions WHERE game_id = $1 ORDER BY created_at", questionColumns)

	rows, err := r.db.Pool.Query(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	questions := make([]*domain.Question, 0)
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, question)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read questions: %w", err)
	}
	return questions, nil
}

// UpdateContent replaces the editable content fields
func (r *PostgresQuestionRepository) UpdateContent(ctx context.Context, id, text string, options []string, correctIndex int) (*domain.Question, error) {
	query := fmt.Sprintf(`
		UPDATE questions
		SET text = $2, options = $3, correct_index = $4, updated_at = now()
		WHERE id = $1
		RETURNING %s
	`, questionColumns)

	question, err := scanQuestion(r.db.Pool.QueryRow(ctx, query, id, text, options, correctIndex))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}
	return question, nil
}

// Delete removes a question
func (r *PostgresQuestionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, "DELETE FROM questions WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkOpened opens a question, conditional on it being unopened. The
// single conditional UPDATE makes concurrent opens resolve to exactly
// one winner at the store.
func (r *PostgresQuestionRepository) MarkOpened(ctx context.Context, id string, holder int) (*domain.Question, error) {
	query := fmt.Sprintf(`
		UPDATE questions
		SET opened = TRUE, current_holder = $2, updated_at = now()
		WHERE id = $1 AND opened = FALSE
		RETURNING %s
	`, questionColumns)

	question, err := scanQuestion(r.db.Pool.QueryRow(ctx, query, id, holder))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open question: %w", err)
	}
	return question, nil
}

// AppendPass appends a pass entry and moves the current holder to the
// pass target, conditional on the question being opened, unanswered and
// still held by the passing team (or unassigned). The holder condition
// keeps two racing passes from the same holder from both committing.
func (r *PostgresQuestionRepository) AppendPass(ctx context.Context, id string, entry domain.PassEntry) (*domain.Question, error) {
	encoded, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pass entry: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE questions
		SET pass_history = pass_history || $2::jsonb, current_holder = $3, updated_at = now()
		WHERE id = $1 AND opened = TRUE AND answered = FALSE
			AND (current_holder = 0 OR current_holder = $4)
		RETURNING %s
	`, questionColumns)

	question, err := scanQuestion(r.db.Pool.QueryRow(ctx, query, id, encoded, entry.ToTeam, entry.FromTeam))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to append pass: %w", err)
	}
	return question, nil
}
