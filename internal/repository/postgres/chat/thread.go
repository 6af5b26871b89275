package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"parley/internal/domain"
	chatModels "parley/internal/domain/models/chat"
	chatRepo "parley/internal/domain/repositories/chat"
	"parley/internal/repository/postgres"
)

// PostgresThreadRepository implements the ThreadRepository interface using PostgreSQL
type PostgresThreadRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewThreadRepository creates a new PostgresThreadRepository
func NewThreadRepository(config *postgres.RepositoryConfig) chatRepo.ThreadRepository {
	return &PostgresThreadRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const threadColumns = `id, user_id, name, persona_id, model, persona_message, temperature,
		extension_ids, document_ids, bookmarked, is_deleted, assistant_thread_id,
		created_at, last_message_at`

func scanThread(row interface{ Scan(dest ...any) error }, t *chatModels.Thread) error {
	return row.Scan(
		&t.ID,
		&t.UserID,
		&t.Name,
		&t.PersonaID,
		&t.Model,
		&t.PersonaMessage,
		&t.Temperature,
		&t.ExtensionIDs,
		&t.DocumentIDs,
		&t.Bookmarked,
		&t.IsDeleted,
		&t.AssistantThreadID,
		&t.CreatedAt,
		&t.LastMessageAt,
	)
}

// CreateThread creates a new conversation thread
func (r *PostgresThreadRepository) CreateThread(ctx context.Context, thread *chatModels.Thread) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, name, persona_id, model, persona_message, temperature,
			extension_ids, document_ids, bookmarked, is_deleted, assistant_thread_id,
			created_at, last_message_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, false, $11, $12, $12)
		RETURNING created_at, last_message_at
	`, r.tables.Threads)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		thread.ID,
		thread.UserID,
		thread.Name,
		thread.PersonaID,
		thread.Model,
		thread.PersonaMessage,
		thread.Temperature,
		thread.ExtensionIDs,
		thread.DocumentIDs,
		thread.Bookmarked,
		thread.AssistantThreadID,
		time.Now(),
	).Scan(&thread.CreatedAt, &thread.LastMessageAt)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("thread '%s' already exists", thread.ID),
				ResourceType: "thread",
				ResourceID:   thread.ID,
			}
		}
		return fmt.Errorf("create thread: %w", err)
	}

	return nil
}

// GetThread retrieves a thread by ID (scoped to user)
func (r *PostgresThreadRepository) GetThread(ctx context.Context, threadID, userID string) (*chatModels.Thread, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND user_id = $2 AND is_deleted = false
	`, threadColumns, r.tables.Threads)

	var thread chatModels.Thread
	executor := postgres.GetExecutor(ctx, r.pool)
	err := scanThread(executor.QueryRow(ctx, query, threadID, userID), &thread)

	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get thread: %w", err)
	}

	return &thread, nil
}

// ListThreads retrieves all live threads for a user, newest activity first
func (r *PostgresThreadRepository) ListThreads(ctx context.Context, userID string) ([]chatModels.Thread, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1 AND is_deleted = false
		ORDER BY bookmarked DESC, last_message_at DESC
	`, threadColumns, r.tables.Threads)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	var threads []chatModels.Thread
	for rows.Next() {
		var thread chatModels.Thread
		if err := scanThread(rows, &thread); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		threads = append(threads, thread)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}

	// Return empty slice instead of nil
	if threads == nil {
		threads = []chatModels.Thread{}
	}

	return threads, nil
}

// UpdateThread updates a thread's mutable fields
func (r *PostgresThreadRepository) UpdateThread(ctx context.Context, thread *chatModels.Thread) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, persona_id = $2, model = $3, persona_message = $4,
			temperature = $5, extension_ids = $6, document_ids = $7,
			bookmarked = $8, assistant_thread_id = $9
		WHERE id = $10 AND user_id = $11 AND is_deleted = false
	`, r.tables.Threads)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		thread.Name,
		thread.PersonaID,
		thread.Model,
		thread.PersonaMessage,
		thread.Temperature,
		thread.ExtensionIDs,
		thread.DocumentIDs,
		thread.Bookmarked,
		thread.AssistantThreadID,
		thread.ID,
		thread.UserID,
	)

	if err != nil {
		return fmt.Errorf("update thread: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("thread %s: %w", thread.ID, domain.ErrNotFound)
	}

	return nil
}

// TouchLastMessage bumps last_message_at to now
func (r *PostgresThreadRepository) TouchLastMessage(ctx context.Context, threadID, userID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET last_message_at = $1
		WHERE id = $2 AND user_id = $3 AND is_deleted = false
	`, r.tables.Threads)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, time.Now(), threadID, userID)
	if err != nil {
		return fmt.Errorf("touch last_message_at: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
	}

	return nil
}

// DeleteThread soft-deletes a thread
func (r *PostgresThreadRepository) DeleteThread(ctx context.Context, threadID, userID string) (*chatModels.Thread, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_deleted = true
		WHERE id = $1 AND user_id = $2 AND is_deleted = false
		RETURNING %s
	`, r.tables.Threads, threadColumns)

	executor := postgres.GetExecutor(ctx, r.pool)

	var thread chatModels.Thread
	err := scanThread(executor.QueryRow(ctx, query, threadID, userID), &thread)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("thread %s: %w", threadID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("delete thread: %w", err)
	}

	return &thread, nil
}
