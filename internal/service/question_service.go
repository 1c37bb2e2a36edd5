package service

import (
	"context"
	"time"

	"cinetrivia/internal/broadcast"
	"cinetrivia/internal/domain"
	"cinetrivia/internal/repository"
	"cinetrivia/internal/scoring"
	apperrors "cinetrivia/pkg/errors"
	"cinetrivia/pkg/logger"
)

// answerAttempts bounds the retry loop of Answer. Each retry re-reads
// the question, so a pass landing between read and commit costs one
// extra round trip, not a wrong delta.
const answerAttempts = 3

// QuestionService owns question authoring and the open/pass/answer
// lifecycle.
type QuestionService struct {
	repos       *repository.Repositories
	leaderboard *LeaderboardService
	gateway     broadcast.Gateway
	engine      *scoring.Engine
	logger      *logger.Logger
}

func NewQuestionService(repos *repository.Repositories, leaderboard *LeaderboardService, gateway broadcast.Gateway, engine *scoring.Engine, log *logger.Logger) *QuestionService {
	return &QuestionService{
		repos:       repos,
		leaderboard: leaderboard,
		gateway:     gateway,
		engine:      engine,
		logger:      log,
	}
}

// CreateQuestion authors a question under a movie's level.
func (s *QuestionService) CreateQuestion(ctx context.Context, req *domain.CreateQuestionRequest) (*domain.Question, error) {
	if req.CorrectIndex == nil {
		return nil, apperrors.NewValidationError("Correct index is required", nil)
	}
	if err := domain.ValidateQuestionShape(req.Level, req.Text, req.Options, *req.CorrectIndex); err != nil {
		return nil, err
	}

	game, err := s.repos.Games.GetByID(ctx, req.GameID)
	if err != nil {
		return nil, apperrors.NewDependencyError("Failed to get game", err)
	}
	if game == nil {
		return nil, apperrors.NewNotFoundError("Game not found")
	}

	movie, err := s.repos.Movies.GetByID(ctx, req.MovieID)
	if err != nil {
		return nil, apperrors.NewDependencyError("Failed to get movie", err)
	}
	if movie == nil || movie.GameID != req.GameID {
		return nil, apperrors.NewNotFoundError("Movie not found in this game")
	}

	levelID, ok := movie.Levels[req.Level]
	if !ok {
		return nil, apperrors.NewInternalError("Movie is missing its level", nil)
	}

	question, err := domain.NewQuestion(req.GameID, req.MovieID, levelID, req.Level, req.Text, req.Options, *req.CorrectIndex)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Questions.Create(ctx, question); err != nil {
		return nil, apperrors.NewDependencyError("Failed to create question", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"game_id":     req.GameID,
		"question_id": question.ID,
		"level":       req.Level,
	}).Info("Question created")
	return question, nil
}

// GetQuestion retrieves a question by ID.
func (s *QuestionService) GetQuestion(ctx context.Context, id string) (*domain.Question, error) {
	question, err := s.repos.Questions.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewDependencyError("Failed to get question", err)
	}
	if question == nil {
		return nil, apperrors.NewNotFoundError("Question not found")
	}
	return question, nil
}

// ListQuestions lists every question of a game.
func (s *QuestionService) ListQuestions(ctx context.Context, gameID string) ([]*domain.Question, error) {
	questions, err := s.repos.Questions.ListByGame(ctx, gameID)
	if err != nil {
		return nil, apperrors.NewDependencyError("Failed to list questions", err)
	}
	return questions, nil
}

// UpdateQuestion edits question content. Lifecycle fields are never
// editable through this path.
func (s *QuestionService) UpdateQuestion(ctx context.Context, id string, req *domain.UpdateQuestionRequest) (*domain.Question, error) {
	question, err := s.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}

	text := question.Text
	if req.Text != nil {
		text = *req.Text
	}
	options := question.Options
	if req.Options != nil {
		options = req.Options
	}
	correctIndex := question.CorrectIndex
	if req.CorrectIndex != nil {
		correctIndex = *req.CorrectIndex
	}

	if err := domain.ValidateQuestionShape(question.Level, text, options, correctIndex); err != nil {
		return nil, err
	}

	updated, err := s.repos.Questions.UpdateContent(ctx, id, text, options, correctIndex)
	if err != nil {
		return nil, apperrors.NewDependencyError("Failed to update question", err)
	}
	if updated == nil {
		return nil, apperrors.NewNotFoundError("Question not found")
	}
	return updated, nil
}

// DeleteQuestion removes a question.
func (s *QuestionService) DeleteQuestion(ctx context.Context, id string) error {
	if err := s.repos.Questions.Delete(ctx, id); err != nil {
		if err == repository.ErrNotFound {
			return apperrors.NewNotFoundError("Question not found")
		}
		return apperrors.NewDependencyError("Failed to delete question", err)
	}
	return nil
}

// Open transitions a question to opened. An optional team number
// assigns the opening team as the initial holder; 0 leaves the
// question unassigned until the first pass. Concurrent opens resolve
// to exactly one winner; the losers get a state conflict.
func (s *QuestionService) Open(ctx context.Context, id string, req *domain.OpenQuestionRequest) (*domain.Question, error) {
	holder := 0
	if req != nil && req.TeamNumber != 0 {
		if req.TeamNumber < 0 {
			return nil, apperrors.NewValidationError("Team number must be positive", map[string]interface{}{
				"teamNumber": req.TeamNumber,
			})
		}
		current, err := s.GetQuestion(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.requireTeam(ctx, current.GameID, req.TeamNumber); err != nil {
			return nil, err
		}
		holder = req.TeamNumber
	}

	question, err := s.repos.Questions.MarkOpened(ctx, id, holder)
	if err != nil {
		return nil, apperrors.NewDependencyError("Failed to open question", err)
	}
	if question == nil {
		// Lost the conditional update: either missing or already opened.
		if _, err := s.GetQuestion(ctx, id); err != nil {
			return nil, err
		}
		return nil, apperrors.NewStateConflictError("Question is already opened", nil)
	}

	s.logger.WithFields(map[string]interface{}{
		"question_id": id,
		"holder":      holder,
	}).Info("Question opened")
	s.publishState(ctx, question.GameID)
	return question, nil
}

// Pass hands an opened, unanswered question from one team to another.
// The pass entry is appended to the history and the target becomes the
// current holder.
func (s *QuestionService) Pass(ctx context.Context, id string, req *domain.PassQuestionRequest) (*domain.Question, error) {
	if req.FromTeam == nil || req.ToTeam == nil {
		return nil, apperrors.NewValidationError("fromTeam and toTeam are required", nil)
	}
	fromTeam, toTeam := *req.FromTeam, *req.ToTeam
	if fromTeam < 1 || toTeam < 1 {
		return nil, apperrors.NewValidationError("Team numbers must be positive", map[string]interface{}{
			"fromTeam": fromTeam,
			"toTeam":   toTeam,
		})
	}
	if fromTeam == toTeam {
		return nil, apperrors.NewValidationError("A team cannot pass a question to itself", map[string]interface{}{
			"fromTeam": fromTeam,
		})
	}

	question, err := s.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if !question.Opened {
		return nil, apperrors.NewStateConflictError("Question is not opened", nil)
	}
	if question.Answered {
		return nil, apperrors.NewStateConflictError("Question is already answered", nil)
	}
	if question.CurrentHolder != 0 && question.CurrentHolder != fromTeam {
		return nil, apperrors.NewStateConflictError("Question is not held by the passing team", map[string]interface{}{
			"currentHolder": question.CurrentHolder,
			"fromTeam":      fromTeam,
		})
	}
	if err := s.requireTeam(ctx, question.GameID, fromTeam); err != nil {
		return nil, err
	}
	if err := s.requireTeam(ctx, question.GameID, toTeam); err != nil {
		return nil, err
	}

	entry := domain.PassEntry{FromTeam: fromTeam, ToTeam: toTeam, At: time.Now().UTC()}
	updated, err := s.repos.Questions.AppendPass(ctx, id, entry)
	if err != nil {
		return nil, apperrors.NewDependencyError("Failed to pass question", err)
	}
	if updated == nil {
		// Lost the conditional append: answered, deleted, or the
		// holder moved between the read and the append.
		current, err := s.GetQuestion(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.CurrentHolder != 0 && current.CurrentHolder != fromTeam {
			return nil, apperrors.NewStateConflictError("Question is not held by the passing team", map[string]interface{}{
				"currentHolder": current.CurrentHolder,
				"fromTeam":      fromTeam,
			})
		}
		return nil, apperrors.NewStateConflictError("Question is no longer passable", nil)
	}

	s.logger.WithFields(map[string]interface{}{
		"question_id": id,
		"from_team":   fromTeam,
		"to_team":     toTeam,
	}).Info("Question passed")
	s.publishState(ctx, updated.GameID)
	return updated, nil
}

// Answer resolves an opened question for a team. The score delta
// depends on correctness, the question's level and whether it was ever
// passed; resolution commits only if the pass history is still the one
// the delta was computed from, so a concurrent pass triggers a
// recompute instead of a stale score.
func (s *QuestionService) Answer(ctx context.Context, id string, req *domain.AnswerQuestionRequest) (*domain.AnswerResult, error) {
	if req.TeamNumber == nil || req.SelectedOptionIndex == nil {
		return nil, apperrors.NewValidationError("teamNumber and selectedOptionIndex are required", nil)
	}
	teamNumber, selected := *req.TeamNumber, *req.SelectedOptionIndex
	if teamNumber < 1 {
		return nil, apperrors.NewValidationError("Team number must be positive", map[string]interface{}{
			"teamNumber": teamNumber,
		})
	}
	if selected < 0 || selected >= domain.OptionCount {
		return nil, apperrors.NewValidationError("Selected option index must be between 0 and 3", map[string]interface{}{
			"selectedOptionIndex": selected,
		})
	}

	for attempt := 0; attempt < answerAttempts; attempt++ {
		question, err := s.GetQuestion(ctx, id)
		if err != nil {
			return nil, err
		}
		if !question.Opened {
			return nil, apperrors.NewStateConflictError("Question is not opened", nil)
		}
		if question.Answered {
			return nil, apperrors.NewStateConflictError("Question is already answered", nil)
		}
		if question.CurrentHolder != 0 && question.CurrentHolder != teamNumber {
			return nil, apperrors.NewStateConflictError("Question is not held by the answering team", map[string]interface{}{
				"currentHolder": question.CurrentHolder,
				"teamNumber":    teamNumber,
			})
		}

		isCorrect := selected == question.CorrectIndex
		delta := s.engine.Score(question.Level, isCorrect, question.IsPassed())

		resolved, team, err := s.repos.Sessions.ResolveAnswer(ctx, id, len(question.PassHistory), teamNumber, delta, isCorrect)
		if err != nil {
			if err == repository.ErrTeamNotFound {
				return nil, apperrors.NewNotFoundError("Team not found for this game")
			}
			return nil, apperrors.NewDependencyError("Failed to resolve answer", err)
		}
		if resolved == nil {
			// The question moved underneath us; re-read and retry.
			continue
		}

		s.leaderboard.Invalidate(ctx, resolved.GameID)
		s.logger.WithFields(map[string]interface{}{
			"question_id":  id,
			"team_number":  teamNumber,
			"is_correct":   isCorrect,
			"score_change": delta,
		}).Info("Question answered")

		s.publishLeaderboard(ctx, resolved.GameID)
		s.publishState(ctx, resolved.GameID)

		return &domain.AnswerResult{
			IsCorrect:    isCorrect,
			CorrectIndex: resolved.CorrectIndex,
			ScoreChange:  delta,
			Team:         team.Standing(),
		}, nil
	}

	return nil, apperrors.NewStateConflictError("Question state kept changing, try again", nil)
}

func (s *QuestionService) requireTeam(ctx context.Context, gameID string, teamNumber int) error {
	team, err := s.repos.Teams.GetByNumber(ctx, gameID, teamNumber)
	if err != nil {
		return apperrors.NewDependencyError("Failed to get team", err)
	}
	if team == nil {
		return apperrors.NewNotFoundError("Team not found for this game")
	}
	return nil
}

func (s *QuestionService) publishState(ctx context.Context, gameID string) {
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

func (s *QuestionService) publishLeaderboard(ctx context.Context, gameID string) {
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
