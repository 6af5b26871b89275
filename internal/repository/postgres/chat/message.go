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

// PostgresMessageRepository implements the MessageRepository interface using PostgreSQL
type PostgresMessageRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewMessageRepository creates a new PostgresMessageRepository
func NewMessageRepository(config *postgres.RepositoryConfig) chatRepo.MessageRepository {
	return &PostgresMessageRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// AppendMessage upserts one message into the thread's history log.
// The upsert keyed by id makes each write independently atomic and
// retry-safe.
func (r *PostgresMessageRepository) AppendMessage(ctx context.Context, msg *chatModels.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, thread_id, user_id, name, role, content, multimodal_image, is_deleted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8)
		ON CONFLICT (id) DO UPDATE
		SET content = EXCLUDED.content, multimodal_image = EXCLUDED.multimodal_image
	`, r.tables.Messages)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		msg.ID,
		msg.ThreadID,
		msg.UserID,
		msg.Name,
		msg.Role,
		msg.Content,
		msg.MultiModalImage,
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	return nil
}

// FindTopByThread retrieves the most recent live messages for a thread,
// newest first
func (r *PostgresMessageRepository) FindTopByThread(ctx context.Context, threadID, userID string, limit int) ([]chatModels.Message, error) {
	query := fmt.Sprintf(`
		SELECT id, thread_id, user_id, name, role, content, multimodal_image, is_deleted, created_at
		FROM %s
		WHERE thread_id = $1 AND user_id = $2 AND is_deleted = false
		ORDER BY created_at DESC
		LIMIT $3
	`, r.tables.Messages)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, threadID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	defer rows.Close()

	var messages []chatModels.Message
	for rows.Next() {
		var msg chatModels.Message
		err := rows.Scan(
			&msg.ID,
			&msg.ThreadID,
			&msg.UserID,
			&msg.Name,
			&msg.Role,
			&msg.Content,
			&msg.MultiModalImage,
			&msg.IsDeleted,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// Return empty slice instead of nil
	if messages == nil {
		messages = []chatModels.Message{}
	}

	return messages, nil
}

// SoftDeleteMessage marks a single message deleted
func (r *PostgresMessageRepository) SoftDeleteMessage(ctx context.Context, messageID, userID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_deleted = true
		WHERE id = $1 AND user_id = $2 AND is_deleted = false
	`, r.tables.Messages)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, messageID, userID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
	}

	return nil
}

// SoftDeleteByThread marks every message in a thread deleted
func (r *PostgresMessageRepository) SoftDeleteByThread(ctx context.Context, threadID, userID string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_deleted = true
		WHERE thread_id = $1 AND user_id = $2 AND is_deleted = false
	`, r.tables.Messages)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, threadID, userID); err != nil {
		return fmt.Errorf("delete thread messages: %w", err)
	}

	return nil
}
