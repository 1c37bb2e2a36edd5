package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinetrivia/internal/broadcast"
	"cinetrivia/internal/domain"
	"cinetrivia/internal/repository"
	"cinetrivia/internal/repository/memory"
	"cinetrivia/internal/scoring"
	apperrors "cinetrivia/pkg/errors"
	"cinetrivia/pkg/logger"
)

func intPtr(v int) *int { return &v }

func TestQuestionService_CreateQuestion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	game := env.seedGame(t, 2)
	movie, err := env.games.CreateMovie(ctx, game.ID, &domain.CreateMovieRequest{Title: "The Matrix", Index: 0})
	require.NoError(t, err)

	question, err := env.questions.CreateQuestion(ctx, &domain.CreateQuestionRequest{
		GameID:       game.ID,
		MovieID:      movie.ID,
		Level:        domain.LevelMedium,
		Text:         "What year was it released?",
		Options:      []string{"1997", "1999", "2001", "2003"},
		CorrectIndex: intPtr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, movie.Levels[domain.LevelMedium], question.LevelID)
	assert.False(t, question.Opened)
	assert.Empty(t, question.PassHistory)

	// Shape violations.
	_, err = env.questions.CreateQuestion(ctx, &domain.CreateQuestionRequest{
		GameID:       game.ID,
		MovieID:      movie.ID,
		Level:        domain.LevelMedium,
		Text:         "Too few options",
		Options:      []string{"a", "b"},
		CorrectIndex: intPtr(0),
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = env.questions.CreateQuestion(ctx, &domain.CreateQuestionRequest{
		GameID:       game.ID,
		MovieID:      movie.ID,
		Level:        "impossible",
		Text:         "Bad level",
		Options:      []string{"a", "b", "c", "d"},
		CorrectIndex: intPtr(0),
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	// Movie must belong to the game.
	other := env.seedGame(t, 0)
	_, err = env.questions.CreateQuestion(ctx, &domain.CreateQuestionRequest{
		GameID:       other.ID,
		MovieID:      movie.ID,
		Level:        domain.LevelEasy,
		Text:         "Wrong game",
		Options:      []string{"a", "b", "c", "d"},
		CorrectIndex: intPtr(0),
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestQuestionService_UpdateQuestion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	game := env.seedGame(t, 0)
	question := env.seedQuestion(t, game.ID, domain.LevelEasy, 0)

	text := "Rephrased?"
	updated, err := env.questions.UpdateQuestion(ctx, question.ID, &domain.UpdateQuestionRequest{
		Text:         &text,
		CorrectIndex: intPtr(2),
	})
	require.NoError(t, err)
	assert.Equal(t, "Rephrased?", updated.Text)
	assert.Equal(t, 2, updated.CorrectIndex)
	assert.Equal(t, question.Options, updated.Options)

	_, err = env.questions.UpdateQuestion(ctx, question.ID, &domain.UpdateQuestionRequest{
		CorrectIndex: intPtr(7),
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestQuestionService_Open(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	game := env.seedGame(t, 2)
	question := env.seedQuestion(t, game.ID, domain.LevelEasy, 0)

	opened, err := env.questions.Open(ctx, question.ID, &domain.OpenQuestionRequest{TeamNumber: 1})
	require.NoError(t, err)
	assert.True(t, opened.Opened)
	assert.Equal(t, 1, opened.CurrentHolder)

	// Re-opening is a conflict, not an idempotent success.
	_, err = env.questions.Open(ctx, question.ID, nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStateConflict))

	_, err = env.questions.Open(ctx, "no-such-question", nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestQuestionService_Open_UnknownTeam(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	game := env.seedGame(t, 2)
	question := env.seedQuestion(t, game.ID, domain.LevelEasy, 0)

	_, err := env.questions.Open(ctx, question.ID, &domain.OpenQuestionRequest{TeamNumber: 99})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	// The failed open left the question untouched.
	got, err := env.questions.GetQuestion(ctx, question.ID)
	require.NoError(t, err)
	assert.False(t, got.Opened)
}

func TestQuestionService_Pass(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	game := env.seedGame(t, 3)
	question := env.seedQuestion(t, game.ID, domain.LevelEasy, 0)

	// Passing before open is a conflict.
	_, err := env.questions.Pass(ctx, question.ID, &domain.PassQuestionRequest{FromTeam: intPtr(1), ToTeam: intPtr(2)})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStateConflict))

	_, err = env.questions.Open(ctx, question.ID, &domain.OpenQuestionRequest{TeamNumber: 1})
	require.NoError(t, err)

	// Self-pass is invalid.
	_, err = env.questions.Pass(ctx, question.ID, &domain.PassQuestionRequest{FromTeam: intPtr(1), ToTeam: intPtr(1)})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	// Only the holder may pass.
	_, err = env.questions.Pass(ctx, question.ID, &domain.PassQuestionRequest{FromTeam: intPtr(3), ToTeam: intPtr(2)})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStateConflict))

	passed, err := env.questions.Pass(ctx, question.ID, &domain.PassQuestionRequest{FromTeam: intPtr(1), ToTeam: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, 2, passed.CurrentHolder)
	require.Len(t, passed.PassHistory, 1)
	assert.Equal(t, 1, passed.PassHistory[0].FromTeam)
	assert.Equal(t, 2, passed.PassHistory[0].ToTeam)
	assert.False(t, passed.PassHistory[0].At.IsZero())

	// Multiple hops are allowed while unanswered.
	passed, err = env.questions.Pass(ctx, question.ID, &domain.PassQuestionRequest{FromTeam: intPtr(2), ToTeam: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, passed.CurrentHolder)
	assert.Len(t, passed.PassHistory, 2)
}

func TestQuestionService_Pass_ConcurrentSameHolder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	game := env.seedGame(t, 3)
	question := env.seedQuestion(t, game.ID, domain.LevelEasy, 0)

	_, err := env.questions.Open(ctx, question.ID, &domain.OpenQuestionRequest{TeamNumber: 1})
	require.NoError(t, err)

	// Two passes racing from the same holder commit at most one entry;
	// the loser's fromTeam is no longer the holder when it lands.
	targets := []int{2, 3}
	var wg sync.WaitGroup
	errs := make([]error, len(targets))
	for i, to := range targets {
		wg.Add(1)
		go func(i, to int) {
			defer wg.Done()
			_, errs[i] = env.questions.Pass(ctx, question.ID, &domain.PassQuestionRequest{
				FromTeam: intPtr(1),
				ToTeam:   intPtr(to),
			})
		}(i, to)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStateConflict))
		}
	}
	assert.Equal(t, 1, winners)

	got, err := env.questions.GetQuestion(ctx, question.ID)
	require.NoError(t, err)
	require.Len(t, got.PassHistory, 1)
	assert.Equal(t, 1, got.PassHistory[0].FromTeam)
	assert.Equal(t, got.PassHistory[0].ToTeam, got.CurrentHolder)
}

func TestQuestionService_Answer_Correct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	game := env.seedGame(t, 2)
	question := env.seedQuestion(t, game.ID, domain.LevelHard, 2)

	_, err := env.questions.Open(ctx, question.ID, &domain.OpenQuestionRequest{TeamNumber: 1})
	require.NoError(t, err)

	result, err := env.questions.Answer(ctx, question.ID, &domain.AnswerQuestionRequest{
		TeamNumber:          intPtr(1),
		SelectedOptionIndex: intPtr(2),
	})
	require.NoError(t, err)
	assert.True(t, result.IsCorrect)
	assert.Equal(t, 2, result.CorrectIndex)
	assert.Equal(t, 1000, result.ScoreChange)
	require.NotNil(t, result.Team)
	assert.Equal(t, 1000, result.Team.Score)
	assert.Equal(t, 1, result.Team.CorrectCount)

	// Answering again is a conflict.
	_, err = env.questions.Answer(ctx, question.ID, &domain.AnswerQuestionRequest{
		TeamNumber:          intPtr(1),
		SelectedOptionIndex: intPtr(2),
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStateConflict))

	assert.NotEmpty(t, env.gateway.byType(broadcast.EventLeaderboardUpdate))
}

func TestQuestionService_Answer_WrongAndPassed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	game := env.seedGame(t, 2)

	// Wrong, not passed: -round(base/2).
	q1 := env.seedQuestion(t, game.ID, domain.LevelEasy, 0)
	_, err := env.questions.Open(ctx, q1.ID, &domain.OpenQuestionRequest{TeamNumber: 1})
	require.NoError(t, err)
	result, err := env.questions.Answer(ctx, q1.ID, &domain.AnswerQuestionRequest{
		TeamNumber:          intPtr(1),
		SelectedOptionIndex: intPtr(3),
	})
	require.NoError(t, err)
	assert.False(t, result.IsCorrect)
	assert.Equal(t, -150, result.ScoreChange)
	assert.Equal(t, 1, result.Team.WrongCount)

	// Correct after a pass: +round(base/2) for the receiving team.
	q2 := env.seedQuestion(t, game.ID, domain.LevelEasy, 0)
	_, err = env.questions.Open(ctx, q2.ID, &domain.OpenQuestionRequest{TeamNumber: 1})
	require.NoError(t, err)
	_, err = env.questions.Pass(ctx, q2.ID, &domain.PassQuestionRequest{FromTeam: intPtr(1), ToTeam: intPtr(2)})
	require.NoError(t, err)
	result, err = env.questions.Answer(ctx, q2.ID, &domain.AnswerQuestionRequest{
		TeamNumber:          intPtr(2),
		SelectedOptionIndex: intPtr(0),
	})
	require.NoError(t, err)
	assert.True(t, result.IsCorrect)
	assert.Equal(t, 150, result.ScoreChange)

	// Wrong after a pass: -round(base/4).
	q3 := env.seedQuestion(t, game.ID, domain.LevelEasy, 0)
	_, err = env.questions.Open(ctx, q3.ID, &domain.OpenQuestionRequest{TeamNumber: 1})
	require.NoError(t, err)
	_, err = env.questions.Pass(ctx, q3.ID, &domain.PassQuestionRequest{FromTeam: intPtr(1), ToTeam: intPtr(2)})
	require.NoError(t, err)
	result, err = env.questions.Answer(ctx, q3.ID, &domain.AnswerQuestionRequest{
		TeamNumber:          intPtr(2),
		SelectedOptionIndex: intPtr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, -75, result.ScoreChange)
}

func TestQuestionService_Answer_HolderEnforced(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	game := env.seedGame(t, 2)
	question := env.seedQuestion(t, game.ID, domain.LevelEasy, 0)

	_, err := env.questions.Open(ctx, question.ID, &domain.OpenQuestionRequest{TeamNumber: 1})
	require.NoError(t, err)

	_, err = env.questions.Answer(ctx, question.ID, &domain.AnswerQuestionRequest{
		TeamNumber:          intPtr(2),
		SelectedOptionIndex: intPtr(0),
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStateConflict))

	// An unassigned question accepts any team.
	q2 := env.seedQuestion(t, game.ID, domain.LevelEasy, 0)
	_, err = env.questions.Open(ctx, q2.ID, nil)
	require.NoError(t, err)
	_, err = env.questions.Answer(ctx, q2.ID, &domain.AnswerQuestionRequest{
		TeamNumber:          intPtr(2),
		SelectedOptionIndex: intPtr(0),
	})
	require.NoError(t, err)
}

func TestQuestionService_Answer_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	game := env.seedGame(t, 2)
	question := env.seedQuestion(t, game.ID, domain.LevelEasy, 0)

	_, err := env.questions.Answer(ctx, question.ID, &domain.AnswerQuestionRequest{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = env.questions.Answer(ctx, question.ID, &domain.AnswerQuestionRequest{
		TeamNumber:          intPtr(1),
		SelectedOptionIndex: intPtr(4),
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	// Not opened yet.
	_, err = env.questions.Answer(ctx, question.ID, &domain.AnswerQuestionRequest{
		TeamNumber:          intPtr(1),
		SelectedOptionIndex: intPtr(0),
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStateConflict))
}

// failingSessionRepo simulates an unreachable store at answer
// resolution time.
type failingSessionRepo struct {
	repository.SessionRepository
}

func (failingSessionRepo) ResolveAnswer(ctx context.Context, questionID string, passCount, teamNumber, delta int, isCorrect bool) (*domain.Question, *domain.Team, error) {
	return nil, nil, errors.New("connection refused")
}

func TestQuestionService_Answer_DependencyFailure(t *testing.T) {
	log, err := logger.New("error", "test")
	require.NoError(t, err)

	repos := memory.NewStore().Repositories()
	repos.Sessions = failingSessionRepo{repos.Sessions}
	gateway := &captureGateway{}
	engine := scoring.NewEngine(scoring.TableArena)
	board := NewLeaderboardService(repos, nil, log)
	env := &testEnv{
		games:     NewGameService(repos, board, gateway, engine, log),
		questions: NewQuestionService(repos, board, gateway, engine, log),
		board:     board,
		gateway:   gateway,
	}

	ctx := context.Background()
	game := env.seedGame(t, 2)
	question := env.seedQuestion(t, game.ID, domain.LevelEasy, 0)
	_, err = env.questions.Open(ctx, question.ID, nil)
	require.NoError(t, err)

	_, err = env.questions.Answer(ctx, question.ID, &domain.AnswerQuestionRequest{
		TeamNumber:          intPtr(1),
		SelectedOptionIndex: intPtr(0),
	})
	require.True(t, apperrors.IsType(err, apperrors.ErrorTypeDependency))

	// Nothing committed: the question stays answerable and no score moved.
	got, err := env.questions.GetQuestion(ctx, question.ID)
	require.NoError(t, err)
	assert.False(t, got.Answered)

	standings, err := env.board.Leaderboard(ctx, game.ID)
	require.NoError(t, err)
	for _, standing := range standings {
		assert.Zero(t, standing.Score)
	}
}

func TestQuestionService_Answer_ConcurrentSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	game := env.seedGame(t, 8)
	question := env.seedQuestion(t, game.ID, domain.LevelEasy, 0)

	_, err := env.questions.Open(ctx, question.ID, nil)
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	results := make([]*domain.AnswerResult, attempts)
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = env.questions.Answer(ctx, question.ID, &domain.AnswerQuestionRequest{
				TeamNumber:          intPtr(i + 1),
				SelectedOptionIndex: intPtr(0),
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < attempts; i++ {
		if errs[i] == nil {
			winners++
			assert.True(t, results[i].IsCorrect)
		} else {
			assert.True(t, apperrors.IsType(errs[i], apperrors.ErrorTypeStateConflict))
		}
	}
	assert.Equal(t, 1, winners)

	// Exactly one team scored.
	standings, err := env.board.Leaderboard(ctx, game.ID)
	require.NoError(t, err)
	total := 0
	for _, standing := range standings {
		total += standing.Score
	}
	assert.Equal(t, 300, total)
}
