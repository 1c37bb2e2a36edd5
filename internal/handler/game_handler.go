package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"cinetrivia/internal/domain"
	"cinetrivia/internal/service"
	apperrors "cinetrivia/pkg/errors"
	"cinetrivia/pkg/logger"
)

// GameHandler serves the game, team, movie and leaderboard endpoints.
type GameHandler struct {
	games       *service.GameService
	leaderboard *service.LeaderboardService
	logger      *logger.Logger
}

func NewGameHandler(games *service.GameService, leaderboard *service.LeaderboardService, log *logger.Logger) *GameHandler {
	return &GameHandler{
		games:       games,
		leaderboard: leaderboard,
		logger:      log,
	}
}

// CreateGame handles POST /api/games
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateGameRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	game, err := h.games.CreateGame(r.Context(), &req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusCreated, game)
}

// ListGames handles GET /api/games
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.games.ListGames(r.Context())
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, games)
}

// GetGame handles GET /api/games/{id}
func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.games.GetGame(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, game)
}

// UpdateGame handles PUT /api/games/{id}
func (h *GameHandler) UpdateGame(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateGameRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	game, err := h.games.UpdateGame(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, game)
}

// DeleteGame handles DELETE /api/games/{id}
func (h *GameHandler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	if err := h.games.DeleteGame(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// StartGame handles POST /api/games/{id}/start
func (h *GameHandler) StartGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.games.Start(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, game)
}

// RestartGame handles POST /api/games/{id}/restart
func (h *GameHandler) RestartGame(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "id")
	if err := h.games.Restart(r.Context(), gameID); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	game, err := h.games.GetGame(r.Context(), gameID)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, game)
}

// ToggleShowAnswer handles POST /api/games/{id}/toggle-show-answer
func (h *GameHandler) ToggleShowAnswer(w http.ResponseWriter, r *http.Request) {
	game, err := h.games.ToggleShowAnswer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, game)
}

// CreateTeams handles POST /api/games/{id}/teams
func (h *GameHandler) CreateTeams(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTeamsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	teams, err := h.games.CreateTeams(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusCreated, teams)
}

// ListTeams handles GET /api/games/{id}/teams
func (h *GameHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.games.ListTeams(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, teams)
}

// UpdateTeamScore handles PUT /api/games/{id}/teams/{teamNumber}/score
func (h *GameHandler) UpdateTeamScore(w http.ResponseWriter, r *http.Request) {
	teamNumber, err := strconv.Atoi(chi.URLParam(r, "teamNumber"))
	if err != nil {
		respondError(w, r, apperrors.NewValidationError("Team number must be an integer", nil), h.logger)
		return
	}

	var req domain.UpdateTeamScoreRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	team, err := h.games.UpdateTeamScore(r.Context(), chi.URLParam(r, "id"), teamNumber, &req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, team)
}

// DeleteTeams handles DELETE /api/games/{id}/teams
func (h *GameHandler) DeleteTeams(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.games.DeleteTeams(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// GetLeaderboard handles GET /api/games/{id}/leaderboard
func (h *GameHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	standings, err := h.leaderboard.Leaderboard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, standings)
}

// GetScoringRules handles GET /api/games/{id}/scoring
func (h *GameHandler) GetScoringRules(w http.ResponseWriter, r *http.Request) {
	if _, err := h.games.GetGame(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, h.games.ScoringRules())
}

// CreateMovie handles POST /api/games/{id}/movies
func (h *GameHandler) CreateMovie(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateMovieRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	movie, err := h.games.CreateMovie(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusCreated, movie)
}

// ListMovies handles GET /api/games/{id}/movies
func (h *GameHandler) ListMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := h.games.ListMovies(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, movies)
}

// GetMovie handles GET /api/movies/{id}
func (h *GameHandler) GetMovie(w http.ResponseWriter, r *http.Request) {
	movie, levels, err := h.games.GetMovie(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"movie":  movie,
		"levels": levels,
	})
}

// DeleteMovie handles DELETE /api/movies/{id}
func (h *GameHandler) DeleteMovie(w http.ResponseWriter, r *http.Request) {
	if err := h.games.DeleteMovie(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
