package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-sync-service/internal/models"
)

type ChatServiceMock struct {
	mock.Mock
}

func (m *ChatServiceMock) ListConnections(ctx context.Context, viewer string) ([]models.ConnectionView, error) {
	args := m.Called(ctx, viewer)
	var views []models.ConnectionView
	if val := args.Get(0); val != nil {
		views = val.([]models.ConnectionView)
	}
	return views, args.Error(1)
}

func (m *ChatServiceMock) ListMessages(ctx context.Context, viewer, counterpart string) ([]models.Conversation, error) {
	args := m.Called(ctx, viewer, counterpart)
	var msgs []models.Conversation
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Conversation)
	}
	return msgs, args.Error(1)
}

func (m *ChatServiceMock) SendMessages(ctx context.Context, batch []models.Conversation) ([]models.SendResult, error) {
	args := m.Called(ctx, batch)
	var results []models.SendResult
	if val := args.Get(0); val != nil {
		results = val.([]models.SendResult)
	}
	return results, args.Error(1)
}

func (m *ChatServiceMock) DeleteMessages(ctx context.Context, viewer, counterpart string, ids []string, everyone bool) error {
	args := m.Called(ctx, viewer, counterpart, ids, everyone)
	return args.Error(0)
}

func (m *ChatServiceMock) SetChatOpen(ctx context.Context, viewer, counterpart, previous string) error {
	args := m.Called(ctx, viewer, counterpart, previous)
	return args.Error(0)
}

func (m *ChatServiceMock) CloseChat(ctx context.Context, viewer, counterpart string) error {
	args := m.Called(ctx, viewer, counterpart)
	return args.Error(0)
}

func (m *ChatServiceMock) SetBlocked(ctx context.Context, viewer, counterpart string, blocked bool) error {
	args := m.Called(ctx, viewer, counterpart, blocked)
	return args.Error(0)
}

func (m *ChatServiceMock) ClearChat(ctx context.Context, viewer, counterpart string) error {
	args := m.Called(ctx, viewer, counterpart)
	return args.Error(0)
}

func (m *ChatServiceMock) DeleteConnection(ctx context.Context, viewer, counterpart string, block bool) error {
	args := m.Called(ctx, viewer, counterpart, block)
	return args.Error(0)
}

func (m *ChatServiceMock) SearchUsers(ctx context.Context, query, viewer string) ([]models.UserSummary, error) {
	args := m.Called(ctx, query, viewer)
	var users []models.UserSummary
	if val := args.Get(0); val != nil {
		users = val.([]models.UserSummary)
	}
	return users, args.Error(1)
}

func (m *ChatServiceMock) OnPresenceChanged(ctx context.Context, username string, online bool) error {
	args := m.Called(ctx, username, online)
	return args.Error(0)
}
