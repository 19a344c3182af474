package chat

import (
	"context"
	"net/http"

	"chat-sync-service/internal/apperrors"
	"chat-sync-service/internal/models"
	"chat-sync-service/internal/repositories"
)

// DeleteMessages removes a batch of messages for the viewer (everyone=false)
// or for both sides (everyone=true).
//
// Delete-for-me sets the viewer's soft-delete flag; when the other side has
// already soft-deleted the same message nothing references it anymore and it
// is hard-removed instead. Delete-for-everyone hard-removes unconditionally.
// Hard removal drops the id from the store and the membership set in the same
// atomic unit.
func (s *Service) DeleteMessages(ctx context.Context, viewer, counterpart string, ids []string, everyone bool) error {
	if len(ids) == 0 {
		return apperrors.Invalid("no message ids given")
	}
	pairKey, err := models.PairKey(viewer, counterpart)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(pairKey)
	conn, err := s.deleteLocked(ctx, pairKey, viewer, counterpart, ids, everyone)
	unlock()
	if err != nil {
		return err
	}

	counterpartUser, err := s.store.Users().GetByUsername(ctx, counterpart)
	if err != nil {
		return err
	}
	s.notify(viewer, sendPayload(counterpart, nil, buildView(conn, viewer, &counterpartUser, 0), http.StatusOK, "messages deleted"))

	// The counterpart only cares while looking at the thread; their next full
	// fetch reflects the deletion regardless.
	if conn.OtherSide(viewer).ChatOpen {
		viewerUser, err := s.store.Users().GetByUsername(ctx, viewer)
		if err != nil {
			return err
		}
		s.notify(counterpart, receivePayload(viewer, nil, buildView(conn, counterpart, &viewerUser, 0), http.StatusOK, "messages deleted"))
	}
	return nil
}

func (s *Service) deleteLocked(ctx context.Context, pairKey, viewer, counterpart string, ids []string, everyone bool) (*models.Connection, error) {
	conn, err := s.store.Connections().GetByParticipants(ctx, pairKey)
	if err != nil {
		return nil, err
	}

	batch := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if !conn.HasConversation(id) {
			return nil, apperrors.NotFound("conversation is not part of this connection")
		}
		batch[id] = struct{}{}
	}

	convs, err := s.store.Conversations().GetMany(ctx, conn.ConversationIDs)
	if err != nil {
		return nil, err
	}

	hardDeleted := make(map[string]struct{})
	var toSave []models.Conversation
	for i := range convs {
		conv := &convs[i]
		if _, targeted := batch[conv.ID]; !targeted {
			continue
		}
		switch {
		case everyone:
			hardDeleted[conv.ID] = struct{}{}
		case conv.DeletedFor(counterpart):
			// Second soft delete: nothing references the record anymore.
			hardDeleted[conv.ID] = struct{}{}
		default:
			conv.MarkDeletedFor(viewer)
			toSave = append(toSave, *conv)
		}
	}

	refreshPreviewsAfterDeletion(&conn, convs, viewer, batch, hardDeleted)

	hardIDs := make([]string, 0, len(hardDeleted))
	for id := range hardDeleted {
		hardIDs = append(hardIDs, id)
	}
	conn.RemoveConversations(hardDeleted)

	err = s.store.Atomic(ctx, func(st repositories.Store) error {
		if err := st.Conversations().DeleteMany(ctx, hardIDs); err != nil {
			return err
		}
		if len(toSave) > 0 {
			if err := st.Conversations().SaveAll(ctx, toSave); err != nil {
				return err
			}
		}
		return st.Connections().Save(ctx, &conn)
	})
	if err != nil {
		return nil, err
	}
	return &conn, nil
}
