package chat

import (
	"chat-sync-service/internal/models"
	"chat-sync-service/internal/observability"
)

// Notifier delivers fanout payloads to a user's private channel. Delivery is
// best-effort: a user without a live channel simply misses the push and
// re-derives state on their next full fetch.
type Notifier interface {
	Push(username string, payloads []models.StatusResponse)
}

func (s *Service) notify(username string, payloads ...models.StatusResponse) {
	if s.notifier == nil || len(payloads) == 0 {
		return
	}
	for _, payload := range payloads {
		observability.IncFanoutPush(payload.ResponseType)
	}
	s.notifier.Push(username, payloads)
}

// sendPayload is the acting user's own notification.
func sendPayload(counterpart string, conv *models.Conversation, view *models.ConnectionView, code int, text string) models.StatusResponse {
	return models.StatusResponse{
		Username:     counterpart,
		Conversation: conv,
		Connection:   view,
		StatusCode:   code,
		Message:      text,
		ResponseType: models.ResponseTypeSend,
	}
}

// receivePayload is the counterpart's notification.
func receivePayload(counterpart string, conv *models.Conversation, view *models.ConnectionView, code int, text string) models.StatusResponse {
	return models.StatusResponse{
		Username:     counterpart,
		Conversation: conv,
		Connection:   view,
		StatusCode:   code,
		Message:      text,
		ResponseType: models.ResponseTypeReceive,
	}
}
