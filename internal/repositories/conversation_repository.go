package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"chat-sync-service/internal/apperrors"
	"chat-sync-service/internal/models"
)

const conversationColumns = `id, sender, sender_id, receiver, receiver_id, body, kind, status,
    file_name, file_size, replied, replied_by, replied_message_id,
    deleted_by_sender, deleted_by_receiver, created_at`

// ConversationRepo is the sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	q queryer
}

// Get retrieves a single conversation.
func (r *ConversationRepo) Get(ctx context.Context, id string) (models.Conversation, error) {
	var conv models.Conversation
	err := sqlx.GetContext(ctx, r.q, &conv,
		`SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, apperrors.NotFound("conversation not found")
	}
	if err != nil {
		return models.Conversation{}, apperrors.StoreFailure("get conversation", err)
	}
	return conv, nil
}

// GetMany returns the requested conversations newest-first, ties broken by id
// descending. Missing ids are silently skipped.
func (r *ConversationRepo) GetMany(ctx context.Context, ids []string) ([]models.Conversation, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var convs []models.Conversation
	err := sqlx.SelectContext(ctx, r.q, &convs,
		`SELECT `+conversationColumns+` FROM conversations
         WHERE id = ANY($1)
         ORDER BY created_at DESC, id DESC`, pq.StringArray(ids))
	if err != nil {
		return nil, apperrors.StoreFailure("get conversations", err)
	}
	return convs, nil
}

// Save upserts one conversation.
func (r *ConversationRepo) Save(ctx context.Context, conv *models.Conversation) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO conversations (id, sender, sender_id, receiver, receiver_id, body, kind, status,
             file_name, file_size, replied, replied_by, replied_message_id,
             deleted_by_sender, deleted_by_receiver, created_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
         ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status,
             deleted_by_sender = EXCLUDED.deleted_by_sender,
             deleted_by_receiver = EXCLUDED.deleted_by_receiver`,
		conv.ID, conv.Sender, conv.SenderID, conv.Receiver, conv.ReceiverID, conv.Body, conv.Kind, conv.Status,
		conv.FileName, conv.FileSize, conv.Replied, conv.RepliedBy, conv.RepliedMessageID,
		conv.DeletedBySender, conv.DeletedByReceiver, conv.CreatedAt)
	if err != nil {
		return apperrors.StoreFailure("save conversation", err)
	}
	return nil
}

// SaveAll upserts a batch.
func (r *ConversationRepo) SaveAll(ctx context.Context, convs []models.Conversation) error {
	for i := range convs {
		if err := r.Save(ctx, &convs[i]); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes one conversation.
func (r *ConversationRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM conversations WHERE id=$1`, id); err != nil {
		return apperrors.StoreFailure("delete conversation", err)
	}
	return nil
}

// DeleteMany removes a batch.
func (r *ConversationRepo) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.q.ExecContext(ctx, `DELETE FROM conversations WHERE id = ANY($1)`, pq.StringArray(ids)); err != nil {
		return apperrors.StoreFailure("delete conversations", err)
	}
	return nil
}
