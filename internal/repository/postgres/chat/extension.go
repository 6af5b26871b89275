package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"parley/internal/domain"
	chatModels "parley/internal/domain/models/chat"
	chatRepo "parley/internal/domain/repositories/chat"
	"parley/internal/repository/postgres"
)

// PostgresExtensionRepository implements the ExtensionRepository interface using PostgreSQL.
// Headers and functions are stored as JSONB; secured header values live
// in a separate table and are only ever read through SecureHeaderValue.
type PostgresExtensionRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewExtensionRepository creates a new PostgresExtensionRepository
func NewExtensionRepository(config *postgres.RepositoryConfig) chatRepo.ExtensionRepository {
	return &PostgresExtensionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// GetExtension retrieves one extension visible to the user (owned or published)
func (r *PostgresExtensionRepository) GetExtension(ctx context.Context, extensionID, userID string) (*chatModels.Extension, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, name, description, execution_steps, is_published, headers, functions, created_at
		FROM %s
		WHERE id = $1 AND (user_id = $2 OR is_published = true)
	`, r.tables.Extensions)

	var ext chatModels.Extension
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, extensionID, userID).Scan(
		&ext.ID,
		&ext.UserID,
		&ext.Name,
		&ext.Description,
		&ext.ExecutionSteps,
		&ext.IsPublished,
		&ext.Headers,
		&ext.Functions,
		&ext.CreatedAt,
	)

	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("extension %s: %w", extensionID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get extension: %w", err)
	}

	return &ext, nil
}

// ListExtensions retrieves the extensions for a set of ids, preserving
// input order and skipping ids the user cannot see
func (r *PostgresExtensionRepository) ListExtensions(ctx context.Context, extensionIDs []string, userID string) ([]chatModels.Extension, error) {
	if len(extensionIDs) == 0 {
		return []chatModels.Extension{}, nil
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, name, description, execution_steps, is_published, headers, functions, created_at
		FROM %s
		WHERE id = ANY($1) AND (user_id = $2 OR is_published = true)
	`, r.tables.Extensions)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, extensionIDs, userID)
	if err != nil {
		return nil, fmt.Errorf("list extensions: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]chatModels.Extension, len(extensionIDs))
	for rows.Next() {
		var ext chatModels.Extension
		err := rows.Scan(
			&ext.ID,
			&ext.UserID,
			&ext.Name,
			&ext.Description,
			&ext.ExecutionSteps,
			&ext.IsPublished,
			&ext.Headers,
			&ext.Functions,
			&ext.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan extension: %w", err)
		}
		byID[ext.ID] = ext
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate extensions: %w", err)
	}

	extensions := make([]chatModels.Extension, 0, len(byID))
	for _, id := range extensionIDs {
		if ext, ok := byID[id]; ok {
			extensions = append(extensions, ext)
		}
	}

	return extensions, nil
}

// SecureHeaderValue resolves a secured header's secret value by id.
// The value is never logged.
func (r *PostgresExtensionRepository) SecureHeaderValue(ctx context.Context, headerID string) (string, error) {
	query := fmt.Sprintf(`
		SELECT value FROM %s WHERE id = $1
	`, r.tables.SecuredHeaders)

	var value string
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, headerID).Scan(&value)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return "", fmt.Errorf("secured header %s: %w", headerID, domain.ErrNotFound)
		}
		return "", fmt.Errorf("get secured header: %w", err)
	}

	return value, nil
}
