package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/eduverse/progress-engine/internal/domain/progress"
	"github.com/eduverse/progress-engine/internal/domain/shared"
	"github.com/eduverse/progress-engine/pkg/timeutil"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progress.Store for PostgreSQL.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

// Load returns the record and its current version.
func (r *ProgressRepository) Load(ctx context.Context, userID progress.UserID) (progress.Progress, progress.Version, error) {
	query := `
		SELECT user_id, xp, level, streak, last_activity_at,
		       completed_quizzes, total_quiz_score,
		       badges, quiz_results, studied_sets, version
		FROM student_progress
		WHERE user_id = $1
	`

	var (
		p            progress.Progress
		uid          string
		lastActivity *time.Time
		badgesJSON   []byte
		resultsJSON  []byte
		setsJSON     []byte
		version      int64
	)

	row := r.conn.QueryRow(ctx, query, userID.String())
	err := row.Scan(&uid, &p.XP, &p.Level, &p.Streak, &lastActivity,
		&p.CompletedQuizzes, &p.TotalQuizScore,
		&badgesJSON, &resultsJSON, &setsJSON, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return progress.Progress{}, 0, shared.NewDomainError("progress", "Load", shared.ErrNotFound,
			"no progress record for user")
	}
	if err != nil {
		return progress.Progress{}, 0, shared.WrapError("progress", "Load", shared.ErrTransient,
			"query failed", err)
	}

	p.UserID = progress.UserID(uid)
	if lastActivity != nil {
		p.LastActivityAt = lastActivity.UTC()
	}
	if err := json.Unmarshal(badgesJSON, &p.Badges); err != nil {
		return progress.Progress{}, 0, shared.WrapError("progress", "Load", shared.ErrCorruptRecord,
			"undecodable badges", err)
	}
	if err := json.Unmarshal(resultsJSON, &p.QuizResults); err != nil {
		return progress.Progress{}, 0, shared.WrapError("progress", "Load", shared.ErrCorruptRecord,
			"undecodable quiz results", err)
	}
	if err := json.Unmarshal(setsJSON, &p.StudiedFlashcardSets); err != nil {
		return progress.Progress{}, 0, shared.WrapError("progress", "Load", shared.ErrCorruptRecord,
			"undecodable studied sets", err)
	}

	// A stored record that breaks an invariant is corruption; abort
	// loudly instead of repairing it.
	if err := p.CheckInvariants(); err != nil {
		return progress.Progress{}, 0, err
	}

	return p, progress.Version(version), nil
}

// Save persists the record under the version guard. Expected version zero
// inserts; anything else updates the row only if the stored version still
// matches.
func (r *ProgressRepository) Save(ctx context.Context, p progress.Progress, expected progress.Version) (progress.Version, error) {
	badgesJSON, resultsJSON, setsJSON, err := marshalRecord(p)
	if err != nil {
		return 0, shared.WrapError("progress", "Save", shared.ErrValidation, "encode record", err)
	}

	var lastActivity *time.Time
	if !p.LastActivityAt.IsZero() {
		t := p.LastActivityAt.UTC()
		lastActivity = &t
	}
	now := timeutil.NowUTC()

	if expected == 0 {
		query := `
			INSERT INTO student_progress (
				user_id, xp, level, streak, last_activity_at,
				completed_quizzes, total_quiz_score,
				badges, quiz_results, studied_sets,
				version, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, $11, $11)
			ON CONFLICT (user_id) DO NOTHING
		`
		tag, err := r.conn.Exec(ctx, query,
			p.UserID.String(), p.XP, p.Level, p.Streak, lastActivity,
			p.CompletedQuizzes, p.TotalQuizScore,
			badgesJSON, resultsJSON, setsJSON, now)
		if err != nil {
			return 0, shared.WrapError("progress", "Save", shared.ErrTransient, "insert failed", err)
		}
		if tag.RowsAffected() == 0 {
			// Someone else created the record since our load.
			return 0, shared.NewDomainError("progress", "Save", shared.ErrVersionConflict,
				"record created concurrently")
		}
		return 1, nil
	}

	query := `
		UPDATE student_progress SET
			xp = $2,
			level = $3,
			streak = $4,
			last_activity_at = $5,
			completed_quizzes = $6,
			total_quiz_score = $7,
			badges = $8,
			quiz_results = $9,
			studied_sets = $10,
			version = version + 1,
			updated_at = $11
		WHERE user_id = $1 AND version = $12
	`
	tag, err := r.conn.Exec(ctx, query,
		p.UserID.String(), p.XP, p.Level, p.Streak, lastActivity,
		p.CompletedQuizzes, p.TotalQuizScore,
		badgesJSON, resultsJSON, setsJSON, now, int64(expected))
	if err != nil {
		return 0, shared.WrapError("progress", "Save", shared.ErrTransient, "update failed", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, shared.NewDomainError("progress", "Save", shared.ErrVersionConflict,
			"stored version changed since load")
	}

	return expected + 1, nil
}

// Ping implements progress.Store.
func (r *ProgressRepository) Ping(ctx context.Context) error {
	return r.conn.Ping(ctx)
}

func marshalRecord(p progress.Progress) (badges, results, sets []byte, err error) {
	if badges, err = json.Marshal(emptyIfNilBadges(p.Badges)); err != nil {
		return nil, nil, nil, err
	}
	if results, err = json.Marshal(emptyIfNilResults(p.QuizResults)); err != nil {
		return nil, nil, nil, err
	}
	if sets, err = json.Marshal(emptyIfNilStrings(p.StudiedFlashcardSets)); err != nil {
		return nil, nil, nil, err
	}
	return badges, results, sets, nil
}

func emptyIfNilBadges(v []progress.Badge) []progress.Badge {
	if v == nil {
		return []progress.Badge{}
	}
	return v
}

func emptyIfNilResults(v []progress.QuizResult) []progress.QuizResult {
	if v == nil {
		return []progress.QuizResult{}
	}
	return v
}

func emptyIfNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
