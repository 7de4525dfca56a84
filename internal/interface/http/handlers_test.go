package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduverse/progress-engine/internal/application/command"
	"github.com/eduverse/progress-engine/internal/application/query"
	"github.com/eduverse/progress-engine/internal/domain/progress"
	"github.com/eduverse/progress-engine/internal/infrastructure/persistence/memory"
	"github.com/eduverse/progress-engine/pkg/logger"
)

func testServer(t *testing.T, cfg Config) (*Server, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	log := logger.New(nil, logger.LevelError)

	deps := Dependencies{
		CompleteQuiz: command.NewCompleteQuizHandler(store, nil, nil, log),
		StudySet:     command.NewStudyFlashcardSetHandler(store, nil, nil, log),
		Reset:        command.NewResetProgressHandler(store, nil, nil, log),
		GetProgress:  query.NewGetProgressHandler(store, nil, 0, log),
		Store:        store,
		Logger:       log,
	}
	return NewServer(cfg, deps), store
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func quizBody(score, total int) completeQuizRequest {
	req := completeQuizRequest{
		QuizID:         "quiz-1",
		QuizTitle:      "Go Basics",
		Score:          score,
		TotalQuestions: total,
	}
	for i := 0; i < total; i++ {
		req.Answers = append(req.Answers, quizAnswerDTO{
			QuestionID: fmt.Sprintf("q%d", i),
			IsCorrect:  i < score,
		})
	}
	return req
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t, DefaultConfig())

	rec := doJSON(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCompleteQuiz_HTTP(t *testing.T) {
	srv, store := testServer(t, DefaultConfig())

	rec := doJSON(t, srv, http.MethodPost, "/v1/users/user-1/quiz-completions", "", quizBody(4, 5))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp completeQuizResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 65, resp.XPEarned)
	assert.Equal(t, 65, resp.Progress.XP)
	assert.Equal(t, 1, resp.Progress.Streak)
	require.Len(t, resp.UnlockedBadges, 1)
	assert.Equal(t, "first_quiz", resp.UnlockedBadges[0].ID)

	// The quiz history rides along in the snapshot.
	require.Len(t, resp.Progress.QuizResults, 1)
	assert.Equal(t, "quiz-1", resp.Progress.QuizResults[0].QuizID)
	assert.Equal(t, 65, resp.Progress.QuizResults[0].XPEarned)
	assert.Len(t, resp.Progress.QuizResults[0].Answers, 5)

	_, version, err := store.Load(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, progress.Version(1), version)
}

func TestGetProgress_ReturnsQuizHistory(t *testing.T) {
	srv, _ := testServer(t, DefaultConfig())

	rec := doJSON(t, srv, http.MethodPost, "/v1/users/user-1/quiz-completions", "", quizBody(3, 5))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, srv, http.MethodPost, "/v1/users/user-1/quiz-completions", "", quizBody(5, 5))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/v1/users/user-1/progress", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp progressResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.QuizResults, 2)
	assert.Equal(t, 3, resp.QuizResults[0].Score)
	assert.Equal(t, 5, resp.QuizResults[1].Score)
	assert.Equal(t, 2, resp.CompletedQuizzes)

	assert.Contains(t, rec.Body.String(), `"quiz_results"`)
}

func TestCompleteQuiz_ValidationError(t *testing.T) {
	srv, store := testServer(t, DefaultConfig())

	rec := doJSON(t, srv, http.MethodPost, "/v1/users/user-1/quiz-completions", "", quizBody(7, 5))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation", resp.Error)
	assert.Equal(t, 0, store.Len())
}

func TestCompleteQuiz_MalformedBody(t *testing.T) {
	srv, _ := testServer(t, DefaultConfig())

	req := httptest.NewRequest(http.MethodPost, "/v1/users/user-1/quiz-completions",
		bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Empty body is rejected too.
	rec = doJSON(t, srv, http.MethodPost, "/v1/users/user-1/quiz-completions", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProgress_HTTP(t *testing.T) {
	srv, _ := testServer(t, DefaultConfig())

	// An unknown user reads as the zero state, not as 404.
	rec := doJSON(t, srv, http.MethodGet, "/v1/users/user-1/progress", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp progressResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "user-1", resp.UserID)
	assert.Equal(t, 0, resp.XP)
	assert.Equal(t, 1, resp.Level)
	assert.Nil(t, resp.LastActivityAt)
	assert.NotNil(t, resp.Badges)
	assert.NotNil(t, resp.QuizResults)
	assert.NotNil(t, resp.StudiedFlashcardSets)
}

func TestStudySession_HTTP(t *testing.T) {
	srv, _ := testServer(t, DefaultConfig())

	rec := doJSON(t, srv, http.MethodPost, "/v1/users/user-1/study-sessions", "",
		studySessionRequest{FlashcardSetID: "set-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp studySessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.FirstStudy)
	assert.Equal(t, []string{"set-1"}, resp.Progress.StudiedFlashcardSets)

	rec = doJSON(t, srv, http.MethodPost, "/v1/users/user-1/study-sessions", "",
		studySessionRequest{FlashcardSetID: "set-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.FirstStudy)
}

func TestServiceTokenAuth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ServiceTokens = []string{"svc-token"}
	srv, _ := testServer(t, cfg)

	rec := doJSON(t, srv, http.MethodGet, "/v1/users/user-1/progress", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/v1/users/user-1/progress", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/v1/users/user-1/progress", "svc-token", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays open.
	rec = doJSON(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReset_HTTP(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ServiceTokens = []string{"svc-token"}
	cfg.AdminTokens = []string{"admin-token"}
	srv, _ := testServer(t, cfg)

	rec := doJSON(t, srv, http.MethodPost, "/v1/users/user-1/quiz-completions", "svc-token", quizBody(4, 5))
	require.Equal(t, http.StatusOK, rec.Code)

	// A service token is not enough for the reset route.
	rec = doJSON(t, srv, http.MethodPost, "/v1/users/user-1/progress/reset", "svc-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/v1/users/user-1/progress/reset", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp progressResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.XP)
	assert.Equal(t, 1, resp.Level)
}

func TestResetPrincipal(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/users/user-1/progress/reset", nil)
	assert.Equal(t, "admin", resetPrincipal(req))

	req.Header.Set("X-Requested-By", "support-desk")
	assert.Equal(t, "support-desk", resetPrincipal(req))

	// The bearer token never leaks into the audit identity.
	req.Header.Del("X-Requested-By")
	req.Header.Set("Authorization", "Bearer admin-secret")
	assert.Equal(t, "admin", resetPrincipal(req))
}

func TestReset_UnknownUser(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AdminTokens = []string{"admin-token"}
	srv, _ := testServer(t, cfg)

	rec := doJSON(t, srv, http.MethodPost, "/v1/users/missing/progress/reset", "admin-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	srv, _ := testServer(t, DefaultConfig())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))

	// A request without one gets a generated id.
	rec = doJSON(t, srv, http.MethodGet, "/healthz", "", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
