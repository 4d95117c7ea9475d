package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"flowboard/internal/domain/conversation"
	"flowboard/internal/domain/message"
	"flowboard/internal/domain/user"
	"flowboard/internal/repository"
	flowboard_errors "flowboard/pkg/errors"

	"github.com/google/uuid"
)

// In-memory repository fakes. They mirror the store's concurrency
// guarantees: the pair-key unique constraint, idempotent reaction
// upserts, and the read watermark. All methods are safe for concurrent
// use.

type fakeConversationRepo struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]conversation.Conversation
	pairKeys      map[string]uuid.UUID
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		conversations: make(map[uuid.UUID]conversation.Conversation),
		pairKeys:      make(map[string]uuid.UUID),
	}
}

func (r *fakeConversationRepo) Create(ctx context.Context, c *conversation.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.PairKey.Valid {
		if _, taken := r.pairKeys[c.PairKey.String]; taken {
			return flowboard_errors.ErrAlreadyExists
		}
		r.pairKeys[c.PairKey.String] = c.ID
	}
	r.conversations[c.ID] = *c
	return nil
}

func (r *fakeConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return conversation.Conversation{}, flowboard_errors.ErrNotFound
	}
	return c, nil
}

func (r *fakeConversationRepo) FindDirect(ctx context.Context, userA, userB uuid.UUID) (conversation.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.pairKeys[conversation.PairKeyFor(userA, userB)]
	if !ok {
		return conversation.Conversation{}, flowboard_errors.ErrNotFound
	}
	return r.conversations[id], nil
}

func (r *fakeConversationRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]repository.ConversationListing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []repository.ConversationListing
	for _, c := range r.conversations {
		if c.HasParticipant(userID) {
			out = append(out, repository.ConversationListing{Conversation: c})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Conversation.LastMessageAt.After(out[j].Conversation.LastMessageAt)
	})
	return out, nil
}

func (r *fakeConversationRepo) IsParticipant(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[conversationID]
	if !ok {
		return false, nil
	}
	return c.HasParticipant(userID), nil
}

func (r *fakeConversationRepo) GetParticipants(ctx context.Context, conversationID uuid.UUID) ([]conversation.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[conversationID]
	if !ok {
		return nil, flowboard_errors.ErrNotFound
	}
	return append([]conversation.Participant(nil), c.Participants...), nil
}

func (r *fakeConversationRepo) MarkRead(ctx context.Context, conversationID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[conversationID]
	if !ok {
		return flowboard_errors.ErrNotFound
	}
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			c.Participants[i].LastReadAt.Time = time.Now()
			c.Participants[i].LastReadAt.Valid = true
			r.conversations[conversationID] = c
			return nil
		}
	}
	return flowboard_errors.ErrNotFound
}

func (r *fakeConversationRepo) Touch(ctx context.Context, conversationID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[conversationID]
	if !ok {
		return flowboard_errors.ErrNotFound
	}
	c.LastMessageAt = at
	c.UpdatedAt = at
	r.conversations[conversationID] = c
	return nil
}

// watermark returns the participant's read watermark for assertions.
func (r *fakeConversationRepo) watermark(conversationID, userID uuid.UUID) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.conversations[conversationID]
	for _, p := range c.Participants {
		if p.UserID == userID {
			return p.LastReadAt.Time, p.LastReadAt.Valid
		}
	}
	return time.Time{}, false
}

type reactionKey struct {
	messageID uuid.UUID
	userID    uuid.UUID
	emoji     string
}

type fakeMessageRepo struct {
	mu        sync.Mutex
	messages  map[uuid.UUID]message.Message
	order     []uuid.UUID
	reactions map[reactionKey]message.MessageReaction
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{
		messages:  make(map[uuid.UUID]message.Message),
		reactions: make(map[reactionKey]message.MessageReaction),
	}
}

func (r *fakeMessageRepo) Create(ctx context.Context, m *message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[m.ID] = *m
	r.order = append(r.order, m.ID)
	return nil
}

func (r *fakeMessageRepo) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return message.Message{}, flowboard_errors.ErrNotFound
	}
	return m, nil
}

func (r *fakeMessageRepo) ListBefore(ctx context.Context, conversationID uuid.UUID, before time.Time, limit int) ([]message.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []message.Message
	for _, id := range r.order {
		m := r.messages[id]
		if m.ConversationID != conversationID {
			continue
		}
		if !before.IsZero() && !m.CreatedAt.Before(before) {
			continue
		}
		all = append(all, m)
	}
	// Newest first, like the store.
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *fakeMessageRepo) AddReaction(ctx context.Context, reaction *message.MessageReaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := reactionKey{reaction.MessageID, reaction.UserID, reaction.Emoji}
	if _, exists := r.reactions[key]; !exists {
		r.reactions[key] = *reaction
	}
	return nil
}

func (r *fakeMessageRepo) RemoveReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := reactionKey{messageID, userID, emoji}
	if _, exists := r.reactions[key]; !exists {
		return false, nil
	}
	delete(r.reactions, key)
	return true, nil
}

func (r *fakeMessageRepo) GetReactions(ctx context.Context, messageID uuid.UUID) ([]message.MessageReaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []message.MessageReaction
	for key, reaction := range r.reactions {
		if key.messageID == messageID {
			out = append(out, reaction)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) messageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func (r *fakeMessageRepo) reactionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reactions)
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]user.User
}

func newFakeUserRepo(users ...user.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uuid.UUID]user.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return flowboard_errors.ErrAlreadyExists
		}
	}
	r.users[u.ID] = *u
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return user.User{}, flowboard_errors.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, flowboard_errors.ErrNotFound
}

func (r *fakeUserRepo) ListExcept(ctx context.Context, userID uuid.UUID) ([]user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []user.User
	for _, u := range r.users {
		if u.ID != userID {
			out = append(out, u)
		}
	}
	return out, nil
}

// broadcastRecord captures one fan-out call for ordering assertions.
type broadcastRecord struct {
	Channel string
	UserID  uuid.UUID
	Event   string
	Payload any
}

type recordingBroadcaster struct {
	mu      sync.Mutex
	records []broadcastRecord
}

func (b *recordingBroadcaster) Broadcast(channel, event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append(b.records, broadcastRecord{Channel: channel, Event: event, Payload: payload})
}

func (b *recordingBroadcaster) BroadcastToUser(userID uuid.UUID, event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append(b.records, broadcastRecord{UserID: userID, Event: event, Payload: payload})
}

func (b *recordingBroadcaster) all() []broadcastRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]broadcastRecord(nil), b.records...)
}

func (b *recordingBroadcaster) byEvent(event string) []broadcastRecord {
	var out []broadcastRecord
	for _, rec := range b.all() {
		if rec.Event == event {
			out = append(out, rec)
		}
	}
	return out
}
