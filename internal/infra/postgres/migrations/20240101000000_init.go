package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

var Migrations = migrate.NewMigrations()

const createTablesSQL = `
CREATE TABLE IF NOT EXISTS daily_completions (
	user_id TEXT PRIMARY KEY,
	data    JSONB NOT NULL,
	version BIGINT NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS user_progressions (
	user_id          TEXT PRIMARY KEY,
	display_name     TEXT NOT NULL DEFAULT '',
	xp               BIGINT NOT NULL DEFAULT 0,
	level            BIGINT NOT NULL DEFAULT 1,
	xp_to_next_level BIGINT NOT NULL DEFAULT 100,
	coins            BIGINT NOT NULL DEFAULT 0,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS leaderboard_scores (
	quiz_id      TEXT NOT NULL,
	category_id  TEXT NOT NULL DEFAULT '',
	user_id      TEXT NOT NULL,
	day          DATE NOT NULL,
	score        INT NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (quiz_id, category_id, user_id, day)
);

CREATE INDEX IF NOT EXISTS idx_leaderboard_scores_scope
	ON leaderboard_scores (quiz_id, category_id, completed_at);
`

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createTablesSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `
				DROP TABLE IF EXISTS leaderboard_scores;
				DROP TABLE IF EXISTS user_progressions;
				DROP TABLE IF EXISTS daily_completions;
			`)
			return err
		},
	)
}
