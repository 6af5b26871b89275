// Package seed sets up the chat schema and loads demo data for local
// development environments.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"parley/internal/repository/postgres"
)

// ChatSeeder creates the chat tables and sample conversation data.
type ChatSeeder struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewChatSeeder creates a new ChatSeeder
func NewChatSeeder(pool *pgxpool.Pool, tables *postgres.TableNames, logger *slog.Logger) *ChatSeeder {
	return &ChatSeeder{
		pool:   pool,
		tables: tables,
		logger: logger,
	}
}

// EnsureSchema creates the chat tables if they do not exist.
func (s *ChatSeeder) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			name VARCHAR(255) NOT NULL,
			persona_id TEXT,
			model TEXT NOT NULL,
			persona_message TEXT NOT NULL DEFAULT '',
			temperature REAL NOT NULL DEFAULT 0.7,
			extension_ids TEXT[] NOT NULL DEFAULT '{}',
			document_ids TEXT[] NOT NULL DEFAULT '{}',
			bookmarked BOOLEAN NOT NULL DEFAULT false,
			is_deleted BOOLEAN NOT NULL DEFAULT false,
			assistant_thread_id TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			last_message_at TIMESTAMPTZ NOT NULL
		)`, s.tables.Threads),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_user_activity_idx
			ON %s (user_id, bookmarked DESC, last_message_at DESC)
			WHERE is_deleted = false`, s.tables.Threads, s.tables.Threads),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			thread_id UUID NOT NULL,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			multimodal_image TEXT,
			is_deleted BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL
		)`, s.tables.Messages),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_thread_idx
			ON %s (thread_id, created_at DESC)
			WHERE is_deleted = false`, s.tables.Messages, s.tables.Messages),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			execution_steps TEXT NOT NULL DEFAULT '',
			is_published BOOLEAN NOT NULL DEFAULT false,
			headers JSONB NOT NULL DEFAULT '[]',
			functions JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL
		)`, s.tables.Extensions),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`, s.tables.SecuredHeaders),
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema setup: %w", err)
		}
	}

	s.logger.Info("chat schema ready", "prefix_tables", s.tables.Threads)
	return nil
}

// SeedDemoData creates one sample thread with a short conversation and
// one published extension backed by a secured header.
func (s *ChatSeeder) SeedDemoData(ctx context.Context, userID string) error {
	now := time.Now()

	threadID := "11111111-1111-1111-1111-111111111111"
	query := fmt.Sprintf(`INSERT INTO %s
		(id, user_id, name, model, persona_message, temperature, extension_ids, document_ids, created_at, last_message_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (id) DO NOTHING`, s.tables.Threads)
	_, err := s.pool.Exec(ctx, query,
		threadID, userID, "Sample Chat - Getting Started", "gpt-4o",
		"You are a helpful onboarding guide.", 0.7,
		[]string{"weather-demo"}, []string{}, now)
	if err != nil {
		return fmt.Errorf("seed thread: %w", err)
	}

	messages := []struct {
		id, role, content string
		offset            time.Duration
	}{
		{"22222222-2222-2222-2222-222222222221", "user", "What can I do here?", 0},
		{"22222222-2222-2222-2222-222222222222", "assistant", "You can chat with different models, attach documents for grounded answers, and ask me to **create an image**.", time.Second},
	}
	for _, m := range messages {
		q := fmt.Sprintf(`INSERT INTO %s (id, thread_id, user_id, role, content, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING`, s.tables.Messages)
		if _, err := s.pool.Exec(ctx, q, m.id, threadID, userID, m.role, m.content, now.Add(m.offset)); err != nil {
			return fmt.Errorf("seed message: %w", err)
		}
	}

	headerID := "33333333-3333-3333-3333-333333333331"
	q := fmt.Sprintf(`INSERT INTO %s (id, value) VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`, s.tables.SecuredHeaders)
	if _, err := s.pool.Exec(ctx, q, headerID, "demo-api-key"); err != nil {
		return fmt.Errorf("seed secured header: %w", err)
	}

	headers := fmt.Sprintf(`[{"id": %q, "key": "x-api-key"}]`, headerID)
	functions := `[{
		"id": "44444444-4444-4444-4444-444444444441",
		"name": "get_weather",
		"description": "Look up the current weather for a city",
		"parameters": {"type": "object", "properties": {"query": {"type": "object", "properties": {"city": {"type": "string"}}}}},
		"endpoint": "https://wttr.in/city?format=j1",
		"method": "GET"
	}]`
	q = fmt.Sprintf(`INSERT INTO %s
		(id, user_id, name, description, execution_steps, is_published, headers, functions, created_at)
		VALUES ($1, $2, $3, $4, $5, true, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`, s.tables.Extensions)
	_, err = s.pool.Exec(ctx, q,
		"weather-demo", userID, "Weather Demo",
		"Answers weather questions via wttr.in",
		"Use get_weather when the user asks about the weather in a city. Substitute the city into the endpoint.",
		headers, functions, now)
	if err != nil {
		return fmt.Errorf("seed extension: %w", err)
	}

	s.logger.Info("demo data seeded", "thread_id", threadID)
	return nil
}

// ClearData removes all rows while keeping the schema.
func (s *ChatSeeder) ClearData(ctx context.Context) error {
	for _, table := range []string{s.tables.Messages, s.tables.Threads, s.tables.Extensions, s.tables.SecuredHeaders} {
		if _, err := s.pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}
