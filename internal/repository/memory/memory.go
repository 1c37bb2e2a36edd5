// Package memory provides an in-process implementation of the
// repository contracts. It backs service tests and the no-database
// development mode; every conditional lifecycle update runs under one
// store lock, giving the same exactly-one-winner semantics the
// Postgres implementation gets from conditional UPDATEs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cinetrivia/internal/domain"
	"cinetrivia/internal/repository"
)

// Store holds every entity of every game behind a single mutex.
type Store struct {
	mu        sync.RWMutex
	games     map[string]*domain.Game
	movies    map[string]*domain.Movie
	levels    map[string]*domain.Level
	questions map[string]*domain.Question
	teams     map[string]*domain.Team
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		games:     make(map[string]*domain.Game),
		movies:    make(map[string]*domain.Movie),
		levels:    make(map[string]*domain.Level),
		questions: make(map[string]*domain.Question),
		teams:     make(map[string]*domain.Team),
	}
}

// Repositories returns the aggregate repository view over this store.
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Games:     &GameRepo{store: s},
		Movies:    &MovieRepo{store: s},
		Questions: &QuestionRepo{store: s},
		Teams:     &TeamRepo{store: s},
		Sessions:  &SessionRepo{store: s},
	}
}

func cloneGame(g *domain.Game) *domain.Game {
	out := *g
	out.MovieIDs = append([]string{}, g.MovieIDs...)
	return &out
}

func cloneMovie(m *domain.Movie) *domain.Movie {
	out := *m
	out.Levels = make(map[domain.LevelName]string, len(m.Levels))
	for k, v := range m.Levels {
		out.Levels[k] = v
	}
	return &out
}

func cloneLevel(l *domain.Level) *domain.Level {
	out := *l
	out.QuestionIDs = append([]string{}, l.QuestionIDs...)
	return &out
}

func cloneQuestion(q *domain.Question) *domain.Question {
	out := *q
	out.Options = append([]string{}, q.Options...)
	out.PassHistory = append([]domain.PassEntry{}, q.PassHistory...)
	return &out
}

func cloneTeam(t *domain.Team) *domain.Team {
	out := *t
	return &out
}

// movieIDsLocked returns a game's movie ids ordered by index.
func (s *Store) movieIDsLocked(gameID string) []string {
	movies := make([]*domain.Movie, 0)
	for _, m := range s.movies {
		if m.GameID == gameID {
			movies = append(movies, m)
		}
	}
	sort.Slice(movies, func(i, j int) bool { return movies[i].Index < movies[j].Index })

	ids := make([]string, len(movies))
	for i, m := range movies {
		ids[i] = m.ID
	}
	return ids
}

// GameRepo implements repository.GameRepository.
type GameRepo struct {
	store *Store
}

func (r *GameRepo) Create(ctx context.Context, game *domain.Game) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.games[game.ID] = cloneGame(game)
	return nil
}

func (r *GameRepo) GetByID(ctx context.Context, id string) (*domain.Game, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	game, ok := r.store.games[id]
	if !ok {
		return nil, nil
	}
	out := cloneGame(game)
	out.MovieIDs = r.store.movieIDsLocked(id)
	return out, nil
}

func (r *GameRepo) List(ctx context.Context) ([]*domain.Game, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	games := make([]*domain.Game, 0, len(r.store.games))
	for _, game := range r.store.games {
		games = append(games, cloneGame(game))
	}
	sort.Slice(games, func(i, j int) bool { return games[i].CreatedAt.After(games[j].CreatedAt) })
	return games, nil
}

func (r *GameRepo) Update(ctx context.Context, game *domain.Game) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.games[game.ID]
	if !ok {
		return repository.ErrNotFound
	}
	existing.Title = game.Title
	existing.Description = game.Description
	existing.Status = game.Status
	existing.AllowShowAnswer = game.AllowShowAnswer
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *GameRepo) MarkLive(ctx context.Context, id string) (*domain.Game, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	game, ok := r.store.games[id]
	if !ok || game.Status == domain.GameStatusLive {
		return nil, nil
	}
	game.Status = domain.GameStatusLive
	game.UpdatedAt = time.Now().UTC()
	return cloneGame(game), nil
}

func (r *GameRepo) ToggleShowAnswer(ctx context.Context, id string) (*domain.Game, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	game, ok := r.store.games[id]
	if !ok {
		return nil, nil
	}
	game.AllowShowAnswer = !game.AllowShowAnswer
	game.UpdatedAt = time.Now().UTC()
	return cloneGame(game), nil
}

func (r *GameRepo) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.games[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.store.games, id)
	for movieID, movie := range r.store.movies {
		if movie.GameID == id {
			delete(r.store.movies, movieID)
		}
	}
	for levelID, level := range r.store.levels {
		if _, ok := r.store.movies[level.MovieID]; !ok {
			delete(r.store.levels, levelID)
		}
	}
	for questionID, question := range r.store.questions {
		if question.GameID == id {
			delete(r.store.questions, questionID)
		}
	}
	for teamID, team := range r.store.teams {
		if team.GameID == id {
			delete(r.store.teams, teamID)
		}
	}
	return nil
}

// MovieRepo implements repository.MovieRepository.
type MovieRepo struct {
	store *Store
}

func (r *MovieRepo) Create(ctx context.Context, movie *domain.Movie, levels []*domain.Level) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.movies[movie.ID] = cloneMovie(movie)
	for _, level := range levels {
		r.store.levels[level.ID] = cloneLevel(level)
	}
	return nil
}

func (r *MovieRepo) GetByID(ctx context.Context, id string) (*domain.Movie, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	movie, ok := r.store.movies[id]
	if !ok {
		return nil, nil
	}
	return cloneMovie(movie), nil
}

func (r *MovieRepo) ListByGame(ctx context.Context, gameID string) ([]*domain.Movie, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	movies := make([]*domain.Movie, 0)
	for _, movie := range r.store.movies {
		if movie.GameID == gameID {
			movies = append(movies, cloneMovie(movie))
		}
	}
	sort.Slice(movies, func(i, j int) bool { return movies[i].Index < movies[j].Index })
	return movies, nil
}

func (r *MovieRepo) GetLevels(ctx context.Context, movieID string) ([]*domain.Level, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	levels := make([]*domain.Level, 0, 3)
	for _, level := range r.store.levels {
		if level.MovieID != movieID {
			continue
		}
		out := cloneLevel(level)
		out.QuestionIDs = r.store.levelQuestionIDsLocked(level.ID)
		levels = append(levels, out)
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].LevelName < levels[j].LevelName })
	return levels, nil
}

func (s *Store) levelQuestionIDsLocked(levelID string) []string {
	questions := make([]*domain.Question, 0)
	for _, q := range s.questions {
		if q.LevelID == levelID {
			questions = append(questions, q)
		}
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].CreatedAt.Before(questions[j].CreatedAt) })

	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return ids
}

func (r *MovieRepo) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.movies[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.store.movies, id)
	for levelID, level := range r.store.levels {
		if level.MovieID == id {
			delete(r.store.levels, levelID)
		}
	}
	for questionID, question := range r.store.questions {
		if question.MovieID == id {
			delete(r.store.questions, questionID)
		}
	}
	return nil
}

// QuestionRepo implements repository.QuestionRepository.
type QuestionRepo struct {
	store *Store
}

func (r *QuestionRepo) Create(ctx context.Context, question *domain.Question) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.questions[question.ID] = cloneQuestion(question)
	return nil
}

func (r *QuestionRepo) GetByID(ctx context.Context, id string) (*domain.Question, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	question, ok := r.store.questions[id]
	if !ok {
		return nil, nil
	}
	return cloneQuestion(question), nil
}

func (r *QuestionRepo) ListByGame(ctx context.Context, gameID string) ([]*domain.Question, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	questions := make([]*domain.Question, 0)
	for _, question := range r.store.questions {
		if question.GameID == gameID {
			questions = append(questions, cloneQuestion(question))
		}
	}
	sort.Slice(questions, func(i, j int) bool {
		return questions[i].CreatedAt.Before(questions[j].CreatedAt)
	})
	return questions, nil
}

func (r *QuestionRepo) UpdateContent(ctx context.Context, id, text string, options []string, correctIndex int) (*domain.Question, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	question, ok := r.store.questions[id]
	if !ok {
		return nil, nil
	}
	question.Text = text
	question.Options = append([]string{}, options...)
	question.CorrectIndex = correctIndex
	question.UpdatedAt = time.Now().UTC()
	return cloneQuestion(question), nil
}

func (r *QuestionRepo) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.questions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.store.questions, id)
	return nil
}

func (r *QuestionRepo) MarkOpened(ctx context.Context, id string, holder int) (*domain.Question, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	question, ok := r.store.questions[id]
	if !ok || question.Opened {
		return nil, nil
	}
	question.Opened = true
	question.CurrentHolder = holder
	question.UpdatedAt = time.Now().UTC()
	return cloneQuestion(question), nil
}

func (r *QuestionRepo) AppendPass(ctx context.Context, id string, entry domain.PassEntry) (*domain.Question, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	question, ok := r.store.questions[id]
	if !ok || !question.Opened || question.Answered {
		return nil, nil
	}
	if question.CurrentHolder != 0 && question.CurrentHolder != entry.FromTeam {
		return nil, nil
	}
	question.PassHistory = append(question.PassHistory, entry)
	question.CurrentHolder = entry.ToTeam
	question.UpdatedAt = time.Now().UTC()
	return cloneQuestion(question), nil
}

// TeamRepo implements repository.TeamRepository.
type TeamRepo struct {
	store *Store
}

func (r *TeamRepo) CreateBatch(ctx context.Context, teams []*domain.Team) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, team := range teams {
		if r.store.teamByNumberLocked(team.GameID, team.TeamNumber) != nil {
			return repository.ErrDuplicateTeam
		}
	}
	for _, team := range teams {
		r.store.teams[team.ID] = cloneTeam(team)
	}
	return nil
}

func (r *TeamRepo) ListByGame(ctx context.Context, gameID string) ([]*domain.Team, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	teams := make([]*domain.Team, 0)
	for _, team := range r.store.teams {
		if team.GameID == gameID {
			teams = append(teams, cloneTeam(team))
		}
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].TeamNumber < teams[j].TeamNumber })
	return teams, nil
}

func (r *TeamRepo) GetByNumber(ctx context.Context, gameID string, teamNumber int) (*domain.Team, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	team := r.store.teamByNumberLocked(gameID, teamNumber)
	if team == nil {
		return nil, nil
	}
	return cloneTeam(team), nil
}

func (s *Store) teamByNumberLocked(gameID string, teamNumber int) *domain.Team {
	for _, team := range s.teams {
		if team.GameID == gameID && team.TeamNumber == teamNumber {
			return team
		}
	}
	return nil
}

func (r *TeamRepo) UpdateCounters(ctx context.Context, gameID string, teamNumber, score, correctCount, wrongCount int) (*domain.Team, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	team := r.store.teamByNumberLocked(gameID, teamNumber)
	if team == nil {
		return nil, nil
	}
	team.Score = score
	team.CorrectCount = correctCount
	team.WrongCount = wrongCount
	team.UpdatedAt = time.Now().UTC()
	return cloneTeam(team), nil
}

func (r *TeamRepo) CountByGame(ctx context.Context, gameID string) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	count := 0
	for _, team := range r.store.teams {
		if team.GameID == gameID {
			count++
		}
	}
	return count, nil
}

func (r *TeamRepo) DeleteByGame(ctx context.Context, gameID string) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var deleted int64
	for id, team := range r.store.teams {
		if team.GameID == gameID {
			delete(r.store.teams, id)
			deleted++
		}
	}
	return deleted, nil
}

// SessionRepo implements repository.SessionRepository.
type SessionRepo struct {
	store *Store
}

func (r *SessionRepo) ResolveAnswer(ctx context.Context, questionID string, passCount, teamNumber, delta int, isCorrect bool) (*domain.Question, *domain.Team, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	question, ok := r.store.questions[questionID]
	if !ok || !question.Opened || question.Answered || len(question.PassHistory) != passCount {
		return nil, nil, nil
	}

	team := r.store.teamByNumberLocked(question.GameID, teamNumber)
	if team == nil {
		return nil, nil, repository.ErrTeamNotFound
	}

	now := time.Now().UTC()
	question.Answered = true
	question.UpdatedAt = now

	team.Score += delta
	if isCorrect {
		team.CorrectCount++
	} else {
		team.WrongCount++
	}
	team.UpdatedAt = now

	return cloneQuestion(question), cloneTeam(team), nil
}

func (r *SessionRepo) ResetGame(ctx context.Context, gameID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	game, ok := r.store.games[gameID]
	if !ok {
		return repository.ErrNotFound
	}

	now := time.Now().UTC()
	for _, question := range r.store.questions {
		if question.GameID != gameID {
			continue
		}
		question.Opened = false
		question.Answered = false
		question.PassHistory = []domain.PassEntry{}
		question.CurrentHolder = 0
		question.UpdatedAt = now
	}
	for _, team := range r.store.teams {
		if team.GameID != gameID {
			continue
		}
		team.Score = 0
		team.CorrectCount = 0
		team.WrongCount = 0
		team.UpdatedAt = now
	}
	game.Status = domain.GameStatusNotStarted
	game.UpdatedAt = now
	return nil
}
