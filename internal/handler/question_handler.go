package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"cinetrivia/internal/domain"
	"cinetrivia/internal/service"
	"cinetrivia/pkg/logger"
)

// QuestionHandler serves question authoring and the open/pass/answer
// lifecycle endpoints.
type QuestionHandler struct {
	questions *service.QuestionService
	logger    *logger.Logger
}

func NewQuestionHandler(questions *service.QuestionService, log *logger.Logger) *QuestionHandler {
	return &QuestionHandler{
		questions: questions,
		logger:    log,
	}
}

// CreateQuestion handles POST /api/questions
func (h *QuestionHandler) CreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateQuestionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	question, err := h.questions.CreateQuestion(r.Context(), &req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusCreated, question)
}

// GetQuestion handles GET /api/questions/{id}
func (h *QuestionHandler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	question, err := h.questions.GetQuestion(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, question)
}

// ListQuestions handles GET /api/games/{id}/questions
func (h *QuestionHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.questions.ListQuestions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, questions)
}

// UpdateQuestion handles PUT /api/questions/{id}
func (h *QuestionHandler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateQuestionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	question, err := h.questions.UpdateQuestion(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, question)
}

// DeleteQuestion handles DELETE /api/questions/{id}
func (h *QuestionHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := h.questions.DeleteQuestion(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// OpenQuestion handles POST /api/questions/{id}/open. The body is
// optional; an empty one opens the question unassigned.
func (h *QuestionHandler) OpenQuestion(w http.ResponseWriter, r *http.Request) {
	req := &domain.OpenQuestionRequest{}
	if r.ContentLength > 0 {
		if err := decodeJSON(r, req); err != nil {
			respondError(w, r, err, h.logger)
			return
		}
	}

	question, err := h.questions.Open(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, question)
}

// PassQuestion handles POST /api/questions/{id}/pass
func (h *QuestionHandler) PassQuestion(w http.ResponseWriter, r *http.Request) {
	var req domain.PassQuestionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	question, err := h.questions.Pass(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, question)
}

// AnswerQuestion handles POST /api/questions/{id}/answer
func (h *QuestionHandler) AnswerQuestion(w http.ResponseWriter, r *http.Request) {
	var req domain.AnswerQuestionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	result, err := h.questions.Answer(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
