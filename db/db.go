// Package db provides the optional question archive: grabbed questions (and
// only those; never the raw chat stream) are written to Postgres so they
// survive the session. An empty DB_DSN disables the whole package.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'

	"github.com/DarkAutumn/QuestionGrabber/grab"
	"github.com/DarkAutumn/QuestionGrabber/telemetry"
)

// Connect opens a Postgres connection for the given DSN.
func Connect(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty dsn")
	}
	return sql.Open("pgx", dsn)
}

// Migrate applies idempotent schema changes for the questions table.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS questions (
			id UUID PRIMARY KEY,
			channel TEXT NOT NULL,
			username TEXT NOT NULL,
			message TEXT NOT NULL,
			kind TEXT NOT NULL,
			moderator BOOLEAN DEFAULT FALSE,
			subscriber BOOLEAN DEFAULT FALSE,
			asked_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_questions_channel_asked ON questions(channel, asked_at)`,
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("postgres migrate step %d failed: %w", i, err)
		}
	}
	return nil
}

// InsertQuestion stores one grabbed question.
func InsertQuestion(ctx context.Context, db *sql.DB, channel string, item grab.Item) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO questions (id, channel, username, message, kind, moderator, subscriber, asked_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8) ON CONFLICT (id) DO NOTHING`,
		item.ID, channel, item.User, item.Text, item.Kind.String(), item.Moderator, item.Subscriber, item.At)
	return err
}

// ArchivedQuestion is the row shape returned to the API.
type ArchivedQuestion struct {
	ID         string    `json:"id"`
	Channel    string    `json:"channel"`
	User       string    `json:"user"`
	Text       string    `json:"text"`
	Kind       string    `json:"kind"`
	Moderator  bool      `json:"moderator"`
	Subscriber bool      `json:"subscriber"`
	AskedAt    time.Time `json:"asked_at"`
}

// RecentQuestions returns the latest archived questions for a channel, newest
// first.
func RecentQuestions(ctx context.Context, db *sql.DB, channel string, limit int) ([]ArchivedQuestion, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, channel, username, message, kind, moderator, subscriber, asked_at
		 FROM questions WHERE channel=$1 ORDER BY asked_at DESC LIMIT $2`, channel, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Warn("failed to close rows", slog.Any("err", err))
		}
	}()
	out := make([]ArchivedQuestion, 0, limit)
	for rows.Next() {
		var q ArchivedQuestion
		if err := rows.Scan(&q.ID, &q.Channel, &q.User, &q.Text, &q.Kind, &q.Moderator, &q.Subscriber, &q.AskedAt); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// StartQuestionArchiver drains the grabber's append stream into the archive
// until ctx is cancelled. Insert failures are logged and skipped; the archive
// is best-effort and never feeds back into the engine.
func StartQuestionArchiver(ctx context.Context, database *sql.DB, channel string, items <-chan grab.Item) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-items:
			if err := InsertQuestion(ctx, database, channel, item); err != nil {
				slog.Error("failed to archive question", slog.Any("err", err), slog.String("user", item.User))
				continue
			}
			telemetry.CountArchiveInsert()
		}
	}
}
