package postgres

import (
	"context"
	"fmt"
)

// migrations are applied in order at startup. Idempotent by construction.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS student_progress (
		user_id            TEXT PRIMARY KEY,
		xp                 INTEGER NOT NULL DEFAULT 0 CHECK (xp >= 0),
		level              INTEGER NOT NULL DEFAULT 1 CHECK (level >= 1),
		streak             INTEGER NOT NULL DEFAULT 0 CHECK (streak >= 0),
		last_activity_at   TIMESTAMPTZ,
		completed_quizzes  INTEGER NOT NULL DEFAULT 0 CHECK (completed_quizzes >= 0),
		total_quiz_score   INTEGER NOT NULL DEFAULT 0 CHECK (total_quiz_score >= 0),
		badges             JSONB NOT NULL DEFAULT '[]',
		quiz_results       JSONB NOT NULL DEFAULT '[]',
		studied_sets       JSONB NOT NULL DEFAULT '[]',
		version            BIGINT NOT NULL DEFAULT 1,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_student_progress_xp
		ON student_progress (xp DESC)`,
}

// Migrate applies the schema. Safe to run on every startup.
func Migrate(ctx context.Context, conn *Connection) error {
	for i, stmt := range migrations {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migration %d failed: %w", i, err)
		}
	}
	return nil
}
