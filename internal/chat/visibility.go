package chat

import (
	"sort"

	"chat-sync-service/internal/models"
)

// visibleTo applies the per-viewer filters: soft-deletes hide a message from
// one side, and the clear-chat fence hides everything created at or before the
// viewer's cleared-at timestamp.
func visibleTo(conv *models.Conversation, viewer string, side *models.Side) bool {
	if conv.DeletedFor(viewer) {
		return false
	}
	if side != nil && side.ClearedAt != nil && !conv.CreatedAt.After(*side.ClearedAt) {
		return false
	}
	return true
}

// filterForViewer returns the viewer's chronological message list: ascending
// createdAt, ties broken by id, stable for rendering.
func filterForViewer(convs []models.Conversation, viewer string, side *models.Side) []models.Conversation {
	visible := make([]models.Conversation, 0, len(convs))
	for i := range convs {
		if visibleTo(&convs[i], viewer, side) {
			visible = append(visible, convs[i])
		}
	}

	sort.Slice(visible, func(i, j int) bool {
		if !visible[i].CreatedAt.Equal(visible[j].CreatedAt) {
			return visible[i].CreatedAt.Before(visible[j].CreatedAt)
		}
		return visible[i].ID < visible[j].ID
	})
	return visible
}

// countUnread derives the viewer's unread badge: inbound messages not yet Read
// and not soft-deleted for the viewer. The clear fence deliberately does not
// apply; a genuinely unread message counts until it is read.
func countUnread(convs []models.Conversation, viewer string) int {
	unread := 0
	for i := range convs {
		conv := &convs[i]
		if conv.Receiver == viewer && conv.Status != models.StatusRead && !conv.DeletedFor(viewer) {
			unread++
		}
	}
	return unread
}

// buildView projects a Connection for one specific viewer. When the
// counterpart has blocked the viewer, the counterpart's presence, last-seen,
// picture and the unread count are withheld entirely.
func buildView(conn *models.Connection, viewer string, counterpart *models.User, unread int) *models.ConnectionView {
	viewerSide := conn.Side(viewer)
	if viewerSide == nil {
		return nil
	}
	otherSide := conn.OtherSide(viewer)

	view := &models.ConnectionView{
		ID:           conn.ID,
		Counterpart:  otherSide.Username,
		LastMsg:      viewerSide.LastMsg,
		LastActivity: conn.LastActivity(),
		Blocked:      viewerSide.Blocked,
		Deleted:      viewerSide.Deleted,
		ConnectedAt:  conn.ConnectedAt,
	}

	if counterpart != nil {
		view.Email = counterpart.Email
	}

	if otherSide.Blocked {
		// Blocking hides presence, not just messages.
		return view
	}

	view.Unread = unread
	if counterpart != nil {
		status := counterpart.Status
		lastSeen := counterpart.LastSeen
		picture := counterpart.ProfilePicture
		view.LoginStatus = &status
		view.LastSeen = &lastSeen
		view.Picture = &picture
	}
	return view
}
