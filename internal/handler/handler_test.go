package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"cinetrivia/internal/broadcast"
	"cinetrivia/internal/domain"
	"cinetrivia/internal/middleware"
	"cinetrivia/internal/repository/memory"
	"cinetrivia/internal/scoring"
	"cinetrivia/internal/service"
	"cinetrivia/pkg/logger"
)

const testAdminPassword = "stage-operator"

func setupTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	log, err := logger.New("error", "test")
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	repos := memory.NewStore().Repositories()
	engine := scoring.NewEngine(scoring.TableArena)
	leaderboard := service.NewLeaderboardService(repos, nil, log)
	games := service.NewGameService(repos, leaderboard, broadcast.NoopGateway{}, engine, log)
	questions := service.NewQuestionService(repos, leaderboard, broadcast.NoopGateway{}, engine, log)
	auth := service.NewAuthService("test-secret", string(hash), log)

	authHandler := NewAuthHandler(auth, log)
	gameHandler := NewGameHandler(games, leaderboard, log)
	questionHandler := NewQuestionHandler(questions, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Get("/auth/verify", authHandler.Verify)

		r.Get("/games", gameHandler.ListGames)
		r.Get("/games/{id}", gameHandler.GetGame)
		r.Get("/games/{id}/teams", gameHandler.ListTeams)
		r.Get("/games/{id}/leaderboard", gameHandler.GetLeaderboard)
		r.Get("/games/{id}/scoring", gameHandler.GetScoringRules)
		r.Get("/games/{id}/movies", gameHandler.ListMovies)
		r.Get("/games/{id}/questions", questionHandler.ListQuestions)
		r.Get("/movies/{id}", gameHandler.GetMovie)
		r.Get("/questions/{id}", questionHandler.GetQuestion)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(auth, log))

			r.Post("/games", gameHandler.CreateGame)
			r.Put("/games/{id}", gameHandler.UpdateGame)
			r.Delete("/games/{id}", gameHandler.DeleteGame)
			r.Post("/games/{id}/start", gameHandler.StartGame)
			r.Post("/games/{id}/restart", gameHandler.RestartGame)
			r.Post("/games/{id}/toggle-show-answer", gameHandler.ToggleShowAnswer)
			r.Post("/games/{id}/teams", gameHandler.CreateTeams)
			r.Put("/games/{id}/teams/{teamNumber}/score", gameHandler.UpdateTeamScore)
			r.Delete("/games/{id}/teams", gameHandler.DeleteTeams)
			r.Post("/games/{id}/movies", gameHandler.CreateMovie)
			r.Delete("/movies/{id}", gameHandler.DeleteMovie)

			r.Post("/questions", questionHandler.CreateQuestion)
			r.Put("/questions/{id}", questionHandler.UpdateQuestion)
			r.Delete("/questions/{id}", questionHandler.DeleteQuestion)
			r.Post("/questions/{id}/open", questionHandler.OpenQuestion)
			r.Post("/questions/{id}/pass", questionHandler.PassQuestion)
			r.Post("/questions/{id}/answer", questionHandler.AnswerQuestion)
		})
	})
	return r
}

func login(t *testing.T, router *chi.Mux) string {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/api/auth/login", "",
		domain.LoginRequest{Password: testAdminPassword})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func doJSON(t *testing.T, router *chi.Mux, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createGame(t *testing.T, router *chi.Mux, token string) *domain.Game {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/api/games", token,
		domain.CreateGameRequest{Title: "Movie Night"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var game domain.Game
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &game))
	return &game
}

func TestAuthEndpoints(t *testing.T) {
	router := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/auth/login", "",
		domain.LoginRequest{Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := login(t, router)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var claims domain.AuthClaims
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &claims))
	assert.Equal(t, "admin", claims.Subject)
}

func TestGameEndpoints_RequireAuth(t *testing.T) {
	router := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/games", "",
		domain.CreateGameRequest{Title: "No token"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGameCRUD(t *testing.T) {
	router := setupTestRouter(t)
	token := login(t, router)

	game := createGame(t, router, token)
	assert.Equal(t, domain.GameStatusNotStarted, game.Status)

	rec := doJSON(t, router, http.MethodGet, "/api/games/"+game.ID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/games/no-such-game", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"not_found"`)

	rec = doJSON(t, router, http.MethodPut, "/api/games/"+game.ID, token,
		map[string]string{"title": "Renamed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Renamed")

	rec = doJSON(t, router, http.MethodDelete, "/api/games/"+game.ID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/games/"+game.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTeamEndpoints(t *testing.T) {
	router := setupTestRouter(t)
	token := login(t, router)
	game := createGame(t, router, token)

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/games/%s/teams", game.ID), token,
		domain.CreateTeamsRequest{NumberOfTeams: 3})
	require.Equal(t, http.StatusCreated, rec.Code)

	var teams []*domain.Team
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &teams))
	require.Len(t, teams, 3)

	// A second setup conflicts.
	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/games/%s/teams", game.ID), token,
		domain.CreateTeamsRequest{NumberOfTeams: 2})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"state_conflict"`)

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/games/%s/teams", game.ID), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Manual score override.
	score := 450
	rec = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/games/%s/teams/2/score", game.ID), token,
		domain.UpdateTeamScoreRequest{Score: &score})
	require.Equal(t, http.StatusOK, rec.Code)
	var overridden domain.Team
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &overridden))
	assert.Equal(t, 450, overridden.Score)

	rec = doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/games/%s/teams/nope/score", game.ID), token,
		domain.UpdateTeamScoreRequest{Score: &score})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, fmt.Sprintf("/api/games/%s/teams", game.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deleted":3`)
}

func TestQuestionLifecycleOverHTTP(t *testing.T) {
	router := setupTestRouter(t)
	token := login(t, router)
	game := createGame(t, router, token)

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/games/%s/teams", game.ID), token,
		domain.CreateTeamsRequest{NumberOfTeams: 2})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/games/%s/movies", game.ID), token,
		domain.CreateMovieRequest{Title: "The Matrix", Index: 0})
	require.Equal(t, http.StatusCreated, rec.Code)
	var movie domain.Movie
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &movie))

	correct := 1
	rec = doJSON(t, router, http.MethodPost, "/api/questions", token, domain.CreateQuestionRequest{
		GameID:       game.ID,
		MovieID:      movie.ID,
		Level:        domain.LevelMedium,
		Text:         "What year was it released?",
		Options:      []string{"1997", "1999", "2001", "2003"},
		CorrectIndex: &correct,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var question domain.Question
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &question))

	// Open for team 1.
	rec = doJSON(t, router, http.MethodPost, "/api/questions/"+question.ID+"/open", token,
		domain.OpenQuestionRequest{TeamNumber: 1})
	require.Equal(t, http.StatusOK, rec.Code)

	// Re-open conflicts.
	rec = doJSON(t, router, http.MethodPost, "/api/questions/"+question.ID+"/open", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Pass to team 2.
	from, to := 1, 2
	rec = doJSON(t, router, http.MethodPost, "/api/questions/"+question.ID+"/pass", token,
		domain.PassQuestionRequest{FromTeam: &from, ToTeam: &to})
	require.Equal(t, http.StatusOK, rec.Code)
	var passed domain.Question
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &passed))
	assert.Equal(t, 2, passed.CurrentHolder)

	// Team 2 answers correctly after the pass: half credit of 600.
	team, selected := 2, 1
	rec = doJSON(t, router, http.MethodPost, "/api/questions/"+question.ID+"/answer", token,
		domain.AnswerQuestionRequest{TeamNumber: &team, SelectedOptionIndex: &selected})
	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.AnswerResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.IsCorrect)
	assert.Equal(t, 1, result.CorrectIndex)
	assert.Equal(t, 300, result.ScoreChange)
	require.NotNil(t, result.Team)
	assert.Equal(t, 2, result.Team.TeamNumber)

	// Leaderboard reflects the answer.
	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/games/%s/leaderboard", game.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var standings []domain.TeamStanding
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &standings))
	require.Len(t, standings, 2)
	assert.Equal(t, 2, standings[0].TeamNumber)
	assert.Equal(t, 300, standings[0].Score)

	// Restart brings everything back.
	rec = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/games/%s/restart", game.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/questions/"+question.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var afterRestart domain.Question
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &afterRestart))
	assert.False(t, afterRestart.Opened)
	assert.False(t, afterRestart.Answered)
	assert.Empty(t, afterRestart.PassHistory)
}

func TestScoringEndpoint(t *testing.T) {
	router := setupTestRouter(t)
	token := login(t, router)
	game := createGame(t, router, token)

	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/games/%s/scoring", game.ID), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rules map[domain.LevelName]scoring.LevelRules
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rules))
	assert.Equal(t, 300, rules[domain.LevelEasy].Correct)
	assert.Equal(t, -300, rules[domain.LevelMedium].Wrong)
	assert.Equal(t, 500, rules[domain.LevelHard].Pass)
}

func TestValidationErrorShape(t *testing.T) {
	router := setupTestRouter(t)
	token := login(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/games", token,
		domain.CreateGameRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"validation"`)
	assert.Contains(t, rec.Body.String(), `"request_id"`)
}
