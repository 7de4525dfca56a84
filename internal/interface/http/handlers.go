package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/eduverse/progress-engine/internal/application/command"
	"github.com/eduverse/progress-engine/internal/application/query"
	"github.com/eduverse/progress-engine/internal/domain/progress"
	"github.com/eduverse/progress-engine/internal/domain/shared"
	"github.com/eduverse/progress-engine/pkg/logger"
)

// maxBodyBytes caps request bodies. Quiz payloads are small; anything
// bigger is garbage.
const maxBodyBytes = 1 << 20

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST / RESPONSE DTOs
// ══════════════════════════════════════════════════════════════════════════════

// quizAnswerDTO is the wire form of one answered question, shared by the
// completion request and the quiz-history entries in responses.
type quizAnswerDTO struct {
	QuestionID     string `json:"question_id"`
	SelectedAnswer int    `json:"selected_answer"`
	CorrectAnswer  int    `json:"correct_answer"`
	IsCorrect      bool   `json:"is_correct"`
}

type completeQuizRequest struct {
	QuizID         string          `json:"quiz_id"`
	QuizTitle      string          `json:"quiz_title"`
	Score          int             `json:"score"`
	TotalQuestions int             `json:"total_questions"`
	Answers        []quizAnswerDTO `json:"answers"`
}

type studySessionRequest struct {
	FlashcardSetID string `json:"flashcard_set_id"`
}

type badgeResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Emoji       string    `json:"emoji"`
	UnlockedAt  time.Time `json:"unlocked_at"`
}

type quizResultResponse struct {
	QuizID         string          `json:"quiz_id"`
	QuizTitle      string          `json:"quiz_title"`
	Score          int             `json:"score"`
	TotalQuestions int             `json:"total_questions"`
	XPEarned       int             `json:"xp_earned"`
	CompletedAt    time.Time       `json:"completed_at"`
	Answers        []quizAnswerDTO `json:"answers"`
}

type progressResponse struct {
	UserID               string               `json:"user_id"`
	XP                   int                  `json:"xp"`
	Level                int                  `json:"level"`
	Streak               int                  `json:"streak"`
	LastActivityAt       *time.Time           `json:"last_activity_at,omitempty"`
	CompletedQuizzes     int                  `json:"completed_quizzes"`
	TotalQuizScore       int                  `json:"total_quiz_score"`
	Badges               []badgeResponse      `json:"badges"`
	QuizResults          []quizResultResponse `json:"quiz_results"`
	StudiedFlashcardSets []string             `json:"studied_flashcard_sets"`
}

type completeQuizResponse struct {
	Progress       progressResponse `json:"progress"`
	XPEarned       int              `json:"xp_earned"`
	LeveledUp      bool             `json:"leveled_up"`
	UnlockedBadges []badgeResponse  `json:"unlocked_badges"`
}

type studySessionResponse struct {
	Progress   progressResponse `json:"progress"`
	FirstStudy bool             `json:"first_study"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func toBadgeResponses(badges []progress.Badge) []badgeResponse {
	out := make([]badgeResponse, 0, len(badges))
	for _, b := range badges {
		out = append(out, badgeResponse{
			ID:          b.ID,
			Title:       b.Title,
			Description: b.Description,
			Emoji:       b.Emoji,
			UnlockedAt:  b.UnlockedAt,
		})
	}
	return out
}

func toQuizResultResponses(results []progress.QuizResult) []quizResultResponse {
	out := make([]quizResultResponse, 0, len(results))
	for _, r := range results {
		answers := make([]quizAnswerDTO, 0, len(r.Answers))
		for _, a := range r.Answers {
			answers = append(answers, quizAnswerDTO{
				QuestionID:     a.QuestionID,
				SelectedAnswer: a.SelectedAnswer,
				CorrectAnswer:  a.CorrectAnswer,
				IsCorrect:      a.IsCorrect,
			})
		}
		out = append(out, quizResultResponse{
			QuizID:         r.QuizID,
			QuizTitle:      r.QuizTitle,
			Score:          r.Score,
			TotalQuestions: r.TotalQuestions,
			XPEarned:       r.XPEarned,
			CompletedAt:    r.CompletedAt,
			Answers:        answers,
		})
	}
	return out
}

func toProgressResponse(p progress.Progress) progressResponse {
	resp := progressResponse{
		UserID:               p.UserID.String(),
		XP:                   p.XP,
		Level:                p.Level,
		Streak:               p.Streak,
		CompletedQuizzes:     p.CompletedQuizzes,
		TotalQuizScore:       p.TotalQuizScore,
		Badges:               toBadgeResponses(p.Badges),
		QuizResults:          toQuizResultResponses(p.QuizResults),
		StudiedFlashcardSets: p.StudiedFlashcardSets,
	}
	if resp.StudiedFlashcardSets == nil {
		resp.StudiedFlashcardSets = []string{}
	}
	if !p.LastActivityAt.IsZero() {
		t := p.LastActivityAt
		resp.LastActivityAt = &t
	}
	return resp
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type progressAPI struct {
	deps Dependencies
	log  *logger.Logger
}

func (a *progressAPI) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if a.deps.Store != nil {
		if err := a.deps.Store.Ping(r.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
			a.log.Warn("store ping failed", logger.Err(err))
		}
	}
	writeJSON(w, code, map[string]string{"status": status})
}

func (a *progressAPI) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	userID := progress.UserID(r.PathValue("id"))

	result, err := a.deps.GetProgress.Handle(r.Context(), query.GetProgressQuery{UserID: userID})
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProgressResponse(result.Progress))
}

func (a *progressAPI) handleCompleteQuiz(w http.ResponseWriter, r *http.Request) {
	var req completeQuizRequest
	if !decodeBody(w, r, &req) {
		return
	}

	answers := make([]progress.QuizAnswer, 0, len(req.Answers))
	for _, ans := range req.Answers {
		answers = append(answers, progress.QuizAnswer{
			QuestionID:     ans.QuestionID,
			SelectedAnswer: ans.SelectedAnswer,
			CorrectAnswer:  ans.CorrectAnswer,
			IsCorrect:      ans.IsCorrect,
		})
	}

	result, err := a.deps.CompleteQuiz.Handle(r.Context(), command.CompleteQuizCommand{
		UserID:         progress.UserID(r.PathValue("id")),
		QuizID:         req.QuizID,
		QuizTitle:      req.QuizTitle,
		Score:          req.Score,
		TotalQuestions: req.TotalQuestions,
		Answers:        answers,
	})
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, completeQuizResponse{
		Progress:       toProgressResponse(result.Progress),
		XPEarned:       result.XPEarned,
		LeveledUp:      result.LeveledUp,
		UnlockedBadges: toBadgeResponses(result.UnlockedBadges),
	})
}

func (a *progressAPI) handleStudySession(w http.ResponseWriter, r *http.Request) {
	var req studySessionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := a.deps.StudySet.Handle(r.Context(), command.StudyFlashcardSetCommand{
		UserID:         progress.UserID(r.PathValue("id")),
		FlashcardSetID: req.FlashcardSetID,
	})
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, studySessionResponse{
		Progress:   toProgressResponse(result.Progress),
		FirstStudy: result.FirstStudy,
	})
}

func (a *progressAPI) handleReset(w http.ResponseWriter, r *http.Request) {
	result, err := a.deps.Reset.Handle(r.Context(), command.ResetProgressCommand{
		UserID:      progress.UserID(r.PathValue("id")),
		RequestedBy: resetPrincipal(r),
	})
	if err != nil {
		a.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProgressResponse(result.Progress))
}

// resetPrincipal names the authorizing principal for the reset audit log.
// The admin token itself is a secret and never logged; callers identify
// themselves through the X-Requested-By header.
func resetPrincipal(r *http.Request) string {
	if by := r.Header.Get("X-Requested-By"); by != "" {
		return by
	}
	return "admin"
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "validation", "request body is required")
			return false
		}
		writeError(w, http.StatusBadRequest, "validation", "malformed request body: "+err.Error())
		return false
	}
	return true
}

func (a *progressAPI) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsValidation(err):
		writeError(w, http.StatusBadRequest, "validation", err.Error())
	case shared.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsUnauthorized(err):
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case shared.IsTransient(err):
		writeError(w, http.StatusServiceUnavailable, "transient", "temporarily unable to process the request, retry later")
	default:
		a.log.Error("request failed",
			logger.String("request_id", RequestID(r.Context())),
			logger.String("path", r.URL.Path),
			logger.Err(err))
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}
