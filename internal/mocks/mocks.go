package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-sync-service/internal/models"
	"chat-sync-service/internal/repositories"
)

type ConnectionRepositoryMock struct {
	mock.Mock
}

func (m *ConnectionRepositoryMock) GetByParticipants(ctx context.Context, participants string) (models.Connection, error) {
	args := m.Called(ctx, participants)
	var conn models.Connection
	if val := args.Get(0); val != nil {
		conn = val.(models.Connection)
	}
	return conn, args.Error(1)
}

func (m *ConnectionRepositoryMock) ListByUsername(ctx context.Context, username string) ([]models.Connection, error) {
	args := m.Called(ctx, username)
	var list []models.Connection
	if val := args.Get(0); val != nil {
		list = val.([]models.Connection)
	}
	return list, args.Error(1)
}

func (m *ConnectionRepositoryMock) Save(ctx context.Context, conn *models.Connection) error {
	args := m.Called(ctx, conn)
	return args.Error(0)
}

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) Get(ctx context.Context, id string) (models.Conversation, error) {
	args := m.Called(ctx, id)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) GetMany(ctx context.Context, ids []string) ([]models.Conversation, error) {
	args := m.Called(ctx, ids)
	var convs []models.Conversation
	if val := args.Get(0); val != nil {
		convs = val.([]models.Conversation)
	}
	return convs, args.Error(1)
}

func (m *ConversationRepositoryMock) Save(ctx context.Context, conv *models.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) SaveAll(ctx context.Context, convs []models.Conversation) error {
	args := m.Called(ctx, convs)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) DeleteMany(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetByUsername(ctx context.Context, username string) (models.User, error) {
	args := m.Called(ctx, username)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) Save(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepositoryMock) Search(ctx context.Context, query, exclude string) ([]models.UserSummary, error) {
	args := m.Called(ctx, query, exclude)
	var users []models.UserSummary
	if val := args.Get(0); val != nil {
		users = val.([]models.UserSummary)
	}
	return users, args.Error(1)
}

// StoreMock bundles the repository mocks. Atomic runs the callback against
// the same mock, mirroring the nested-transaction reuse of the real store.
type StoreMock struct {
	ConnectionsRepo   ConnectionRepositoryMock
	ConversationsRepo ConversationRepositoryMock
	UsersRepo         UserRepositoryMock
}

func (m *StoreMock) Connections() repositories.ConnectionRepository {
	return &m.ConnectionsRepo
}

func (m *StoreMock) Conversations() repositories.ConversationRepository {
	return &m.ConversationsRepo
}

func (m *StoreMock) Users() repositories.UserRepository {
	return &m.UsersRepo
}

func (m *StoreMock) Atomic(ctx context.Context, fn func(repositories.Store) error) error {
	return fn(m)
}

func (m *StoreMock) AssertExpectations(t mock.TestingT) bool {
	ok := m.ConnectionsRepo.AssertExpectations(t)
	ok = m.ConversationsRepo.AssertExpectations(t) && ok
	ok = m.UsersRepo.AssertExpectations(t) && ok
	return ok
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) Push(username string, payloads []models.StatusResponse) {
	m.Called(username, payloads)
}

var _ repositories.ConnectionRepository = (*ConnectionRepositoryMock)(nil)
var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.Store = (*StoreMock)(nil)
