package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "cinetrivia/pkg/errors"
)

// OptionCount is the fixed number of answer options per question.
const OptionCount = 4

// PassEntry records one hand-off of an opened question between teams.
type PassEntry struct {
	FromTeam int       `json:"fromTeam"`
	ToTeam   int       `json:"toTeam"`
	At       time.Time `json:"at"`
}

// Question is the unit of play. PassHistory may only grow while the
// question is opened and unanswered; Answered is monotonic and only a
// game restart reverts it. CurrentHolder is the team entitled to
// answer: the target of the most recent pass, otherwise the team the
// operator assigned at open time, otherwise 0 (unassigned).
type Question struct {
	ID            string      `json:"id"`
	GameID        string      `json:"gameId"`
	MovieID       string      `json:"movieId"`
	LevelID       string      `json:"levelId"`
	Level         LevelName   `json:"level"`
	Text          string      `json:"text"`
	Options       []string    `json:"options"`
	CorrectIndex  int         `json:"correctIndex"`
	Opened        bool        `json:"opened"`
	Answered      bool        `json:"answered"`
	CurrentHolder int         `json:"currentHolder"`
	PassHistory   []PassEntry `json:"passHistory"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// NewQuestion constructs an unopened question after validating shape.
func NewQuestion(gameID, movieID, levelID string, level LevelName, text string, options []string, correctIndex int) (*Question, error) {
	if err := ValidateQuestionShape(level, text, options, correctIndex); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Question{
		ID:            uuid.NewString(),
		GameID:        gameID,
		MovieID:       movieID,
		LevelID:       levelID,
		Level:         level,
		Text:          text,
		Options:       options,
		CorrectIndex:  correctIndex,
		Opened:        false,
		Answered:      false,
		CurrentHolder: 0,
		PassHistory:   []PassEntry{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// ValidateQuestionShape enforces the fixed question shape: a known
// level, non-empty text, exactly four options, correct index in range.
func ValidateQuestionShape(level LevelName, text string, options []string, correctIndex int) error {
	if !ValidLevelName(level) {
		return apperrors.NewValidationError("Level must be easy, medium or hard", map[string]interface{}{
			"level": level,
		})
	}
	if text == "" {
		return apperrors.NewValidationError("Question text is required", nil)
	}
	if len(options) != OptionCount {
		return apperrors.NewValidationError("Options must contain exactly 4 choices", map[string]interface{}{
			"optionCount": len(options),
		})
	}
	for i, opt := range options {
		if opt == "" {
			return apperrors.NewValidationError("Options must not be empty", map[string]interface{}{
				"optionIndex": i,
			})
		}
	}
	if correctIndex < 0 || correctIndex >= OptionCount {
		return apperrors.NewValidationError("Correct index must be between 0 and 3", map[string]interface{}{
			"correctIndex": correctIndex,
		})
	}
	return nil
}

// IsPassed reports whether the question was handed off at least once.
func (q *Question) IsPassed() bool {
	return len(q.PassHistory) > 0
}

// CreateQuestionRequest is the payload for authoring a question.
type CreateQuestionRequest struct {
	GameID       string    `json:"gameId"`
	MovieID      string    `json:"movieId"`
	Level        LevelName `json:"level"`
	Text         string    `json:"text"`
	Options      []string  `json:"options"`
	CorrectIndex *int      `json:"correctIndex"`
}

// UpdateQuestionRequest is the payload for editing question content.
// Lifecycle fields (opened/answered/passHistory) are never editable
// through this request.
type UpdateQuestionRequest struct {
	Text         *string  `json:"text,omitempty"`
	Options      []string `json:"options,omitempty"`
	CorrectIndex *int     `json:"correctIndex,omitempty"`
}

// OpenQuestionRequest optionally assigns the opening team as the
// initial holder.
type OpenQuestionRequest struct {
	TeamNumber int `json:"teamNumber,omitempty"`
}

// PassQuestionRequest routes an opened question between teams.
type PassQuestionRequest struct {
	FromTeam *int `json:"fromTeam"`
	ToTeam   *int `json:"toTeam"`
}

// AnswerQuestionRequest resolves an opened question for a team.
// Pointers distinguish a missing field from option index 0 or team 0.
type AnswerQuestionRequest struct {
	TeamNumber          *int `json:"teamNumber"`
	SelectedOptionIndex *int `json:"selectedOptionIndex"`
}

// AnswerResult is returned to the caller after an answer resolves.
type AnswerResult struct {
	IsCorrect    bool          `json:"isCorrect"`
	CorrectIndex int           `json:"correctAnswer"`
	ScoreChange  int           `json:"scoreChange"`
	Team         *TeamStanding `json:"team"`
}
