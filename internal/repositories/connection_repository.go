package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"

	"chat-sync-service/internal/apperrors"
	"chat-sync-service/internal/models"
)

const connectionColumns = `id, participants, sides, conversation_ids, connected_at`

// ConnectionRepo is the sqlx implementation of ConnectionRepository.
type ConnectionRepo struct {
	q queryer
}

// GetByParticipants fetches the single record for a pair key.
func (r *ConnectionRepo) GetByParticipants(ctx context.Context, participants string) (models.Connection, error) {
	var conn models.Connection
	err := sqlx.GetContext(ctx, r.q, &conn,
		`SELECT `+connectionColumns+` FROM connections WHERE participants=$1`, participants)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Connection{}, apperrors.NotFound("connection not found")
	}
	if err != nil {
		return models.Connection{}, apperrors.StoreFailure("get connection", err)
	}
	return conn, nil
}

// ListByUsername returns every connection the user participates in, using
// JSONB containment against the sides column.
func (r *ConnectionRepo) ListByUsername(ctx context.Context, username string) ([]models.Connection, error) {
	member, err := json.Marshal([]map[string]string{{"username": username}})
	if err != nil {
		return nil, apperrors.StoreFailure("marshal side filter", err)
	}

	var conns []models.Connection
	if err := sqlx.SelectContext(ctx, r.q, &conns,
		`SELECT `+connectionColumns+` FROM connections WHERE sides @> $1`, member); err != nil {
		return nil, apperrors.StoreFailure("list connections", err)
	}
	return conns, nil
}

// Save upserts the record keyed by id.
func (r *ConnectionRepo) Save(ctx context.Context, conn *models.Connection) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO connections (id, participants, sides, conversation_ids, connected_at)
         VALUES ($1, $2, $3, $4, $5)
         ON CONFLICT (id) DO UPDATE SET sides = EXCLUDED.sides, conversation_ids = EXCLUDED.conversation_ids`,
		conn.ID, conn.Participants, conn.Sides, conn.ConversationIDs, conn.ConnectedAt)
	if err != nil {
		return apperrors.StoreFailure("save connection", err)
	}
	return nil
}
