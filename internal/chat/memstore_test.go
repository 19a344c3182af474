package chat

import (
	"context"
	"sort"
	"strings"
	"sync"

	"chat-sync-service/internal/apperrors"
	"chat-sync-service/internal/models"
	"chat-sync-service/internal/repositories"
)

// memStore is an in-memory Store used by the engine tests. Atomic applies the
// callback directly; the scenarios exercise sequencing, not rollback.
type memStore struct {
	mu    sync.Mutex
	users map[string]models.User
	conns map[string]models.Connection
	convs map[string]models.Conversation
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[string]models.User),
		conns: make(map[string]models.Connection),
		convs: make(map[string]models.Conversation),
	}
}

func (s *memStore) Connections() repositories.ConnectionRepository { return (*memConnRepo)(s) }

func (s *memStore) Conversations() repositories.ConversationRepository { return (*memConvRepo)(s) }

func (s *memStore) Users() repositories.UserRepository { return (*memUserRepo)(s) }

func (s *memStore) Atomic(ctx context.Context, fn func(repositories.Store) error) error {
	return fn(s)
}

type memConnRepo memStore

func (r *memConnRepo) GetByParticipants(_ context.Context, participants string) (models.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[participants]
	if !ok {
		return models.Connection{}, apperrors.NotFound("connection not found")
	}
	return cloneConnection(conn), nil
}

func (r *memConnRepo) ListByUsername(_ context.Context, username string) ([]models.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []models.Connection
	for _, conn := range r.conns {
		if conn.SideOf(username) >= 0 {
			list = append(list, cloneConnection(conn))
		}
	}
	return list, nil
}

func (r *memConnRepo) Save(_ context.Context, conn *models.Connection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.Participants] = cloneConnection(*conn)
	return nil
}

type memConvRepo memStore

func (r *memConvRepo) Get(_ context.Context, id string) (models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.convs[id]
	if !ok {
		return models.Conversation{}, apperrors.NotFound("conversation not found")
	}
	return conv, nil
}

func (r *memConvRepo) GetMany(_ context.Context, ids []string) ([]models.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	convs := make([]models.Conversation, 0, len(ids))
	for _, id := range ids {
		if conv, ok := r.convs[id]; ok {
			convs = append(convs, conv)
		}
	}
	// Newest first, ties by id descending, matching the SQL contract.
	sort.Slice(convs, func(i, j int) bool {
		if !convs[i].CreatedAt.Equal(convs[j].CreatedAt) {
			return convs[i].CreatedAt.After(convs[j].CreatedAt)
		}
		return convs[i].ID > convs[j].ID
	})
	return convs, nil
}

func (r *memConvRepo) Save(_ context.Context, conv *models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.convs[conv.ID] = *conv
	return nil
}

func (r *memConvRepo) SaveAll(ctx context.Context, convs []models.Conversation) error {
	for i := range convs {
		if err := r.Save(ctx, &convs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *memConvRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.convs, id)
	return nil
}

func (r *memConvRepo) DeleteMany(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := r.Delete(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

type memUserRepo memStore

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[username]
	if !ok {
		return models.User{}, apperrors.NotFound("user not found")
	}
	return user, nil
}

func (r *memUserRepo) Save(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.Username] = *user
	return nil
}

func (r *memUserRepo) Search(_ context.Context, query, exclude string) ([]models.UserSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found []models.UserSummary
	for _, user := range r.users {
		if user.Username == exclude {
			continue
		}
		if containsFold(user.Username, query) || containsFold(user.Email, query) {
			found = append(found, models.UserSummary{Username: user.Username, Email: user.Email, ProfilePicture: user.ProfilePicture})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Username < found[j].Username })
	return found, nil
}

func cloneConnection(conn models.Connection) models.Connection {
	out := conn
	out.ConversationIDs = append([]string(nil), conn.ConversationIDs...)
	for i := range conn.Sides {
		if lm := conn.Sides[i].LastMsg; lm != nil {
			copied := *lm
			out.Sides[i].LastMsg = &copied
		}
		if cleared := conn.Sides[i].ClearedAt; cleared != nil {
			copied := *cleared
			out.Sides[i].ClearedAt = &copied
		}
	}
	return out
}

// recordingNotifier collects fanout pushes per recipient.
type recordingNotifier struct {
	mu     sync.Mutex
	pushes map[string][]models.StatusResponse
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{pushes: make(map[string][]models.StatusResponse)}
}

func (n *recordingNotifier) Push(username string, payloads []models.StatusResponse) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pushes[username] = append(n.pushes[username], payloads...)
}

func (n *recordingNotifier) forUser(username string) []models.StatusResponse {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.StatusResponse(nil), n.pushes[username]...)
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pushes = make(map[string][]models.StatusResponse)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
