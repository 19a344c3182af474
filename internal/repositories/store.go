package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"chat-sync-service/internal/apperrors"
	"chat-sync-service/internal/models"
)

// ConnectionRepository abstracts pair-record persistence. Connections are
// looked up by their unique participants key, never by raw id.
type ConnectionRepository interface {
	GetByParticipants(ctx context.Context, participants string) (models.Connection, error)
	ListByUsername(ctx context.Context, username string) ([]models.Connection, error)
	Save(ctx context.Context, conn *models.Connection) error
}

// ConversationRepository abstracts message persistence.
//
// GetMany returns conversations newest-first, ties broken by id descending.
// The ordering is part of the contract: the read-marking short-circuit in the
// status engine depends on it and must survive a storage swap.
type ConversationRepository interface {
	Get(ctx context.Context, id string) (models.Conversation, error)
	GetMany(ctx context.Context, ids []string) ([]models.Conversation, error)
	Save(ctx context.Context, conv *models.Conversation) error
	SaveAll(ctx context.Context, convs []models.Conversation) error
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) error
}

// UserRepository abstracts identity/presence records.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (models.User, error)
	Save(ctx context.Context, user *models.User) error
	Search(ctx context.Context, query, exclude string) ([]models.UserSummary, error)
}

// Store bundles the repositories and provides the single atomic unit the pair
// engine runs its critical sections in: inside Atomic, every repository write
// belongs to one transaction, so a mid-sequence failure cannot leave a
// conversation saved with its membership id missing, or vice versa.
type Store interface {
	Connections() ConnectionRepository
	Conversations() ConversationRepository
	Users() UserRepository
	Atomic(ctx context.Context, fn func(Store) error) error
}

// queryer is what both *sqlx.DB and *sqlx.Tx satisfy.
type queryer interface {
	sqlx.ExtContext
}

// SQLStore is the sqlx-backed Store.
type SQLStore struct {
	db *sqlx.DB
	q  queryer
}

// NewSQLStore wraps a connected database handle.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, q: db}
}

func (s *SQLStore) Connections() ConnectionRepository {
	return &ConnectionRepo{q: s.q}
}

func (s *SQLStore) Conversations() ConversationRepository {
	return &ConversationRepo{q: s.q}
}

func (s *SQLStore) Users() UserRepository {
	return &UserRepo{q: s.q}
}

// Atomic runs fn against transaction-backed repositories. Nested calls reuse
// the enclosing transaction.
func (s *SQLStore) Atomic(ctx context.Context, fn func(Store) error) error {
	if _, nested := s.q.(*sqlx.Tx); nested {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.StoreFailure("begin transaction", err)
	}

	if err := fn(&SQLStore{db: s.db, q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperrors.StoreFailure("commit transaction", err)
	}
	return nil
}
