package chat

import (
	"chat-sync-service/internal/models"
)

// applySendPreviews points both sides at a freshly sent message, unless the
// receiver has blocked the sender, in which case the receiver's pointer is
// left untouched: the message is invisible to them.
func applySendPreviews(conn *models.Connection, conv *models.Conversation, blocked bool) {
	preview := conv.Preview()
	if side := conn.Side(conv.Sender); side != nil {
		side.LastMsg = preview
	}
	if blocked {
		return
	}
	if side := conn.OtherSide(conv.Sender); side != nil {
		side.LastMsg = preview
	}
}

// recomputePreview refreshes one side's pointer after a deletion batch.
// Candidates are the remaining member conversations, excluding every id hard-
// removed in the same operation so the pointer cannot land on a message that
// is about to disappear. convs must be newest-first (the GetMany contract);
// the first visible survivor wins. Returns nil when nothing remains.
func recomputePreview(convs []models.Conversation, sideUser string, hardDeleted map[string]struct{}) *models.LastMessage {
	for i := range convs {
		conv := &convs[i]
		if _, gone := hardDeleted[conv.ID]; gone {
			continue
		}
		if conv.DeletedFor(sideUser) {
			continue
		}
		return conv.Preview()
	}
	return nil
}

// refreshPreviewsAfterDeletion recomputes whichever side pointers were aimed
// at a message affected by the batch: a hard removal invalidates both sides, a
// soft delete only the deleting side (whose DeletedFor flags have already been
// updated in convs).
func refreshPreviewsAfterDeletion(conn *models.Connection, convs []models.Conversation, deleter string, batch, hardDeleted map[string]struct{}) {
	for i := range conn.Sides {
		side := &conn.Sides[i]
		if side.LastMsg == nil {
			continue
		}
		pointed := side.LastMsg.ID

		if _, hard := hardDeleted[pointed]; !hard {
			_, inBatch := batch[pointed]
			if !inBatch || side.Username != deleter {
				continue
			}
		}
		side.LastMsg = recomputePreview(convs, side.Username, hardDeleted)
	}
}
