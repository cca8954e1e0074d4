// ABOUTME: Conversation memory with per-conversation history and context
// ABOUTME: Every mutation synchronously persists the whole conversation to the store

package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/harperreed/partneros/models"
	"go.uber.org/zap"
)

// DefaultConversationID is used when a caller does not name a conversation.
const DefaultConversationID = "default"

// Memory caches every conversation and writes through to its Store.
// Callers serialize mutations of a single conversation id.
type Memory struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time

	mu            sync.Mutex
	conversations map[string]*models.Conversation
}

// New loads all persisted conversations from store.
func New(ctx context.Context, store Store, logger *zap.Logger) (*Memory, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	convs, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}

	m := &Memory{
		store:         store,
		logger:        logger,
		now:           time.Now,
		conversations: make(map[string]*models.Conversation, len(convs)),
	}
	for _, c := range convs {
		if c.Context == nil {
			c.Context = map[string]string{}
		}
		m.conversations[c.ID] = c
	}
	logger.Debug("conversation memory loaded", zap.Int("conversations", len(convs)))
	return m, nil
}

func (m *Memory) newConversation(id string) *models.Conversation {
	return &models.Conversation{
		ID:        id,
		CreatedAt: m.now(),
		Messages:  []models.Message{},
		Context:   map[string]string{},
	}
}

// lookup returns the live conversation or nil. Read paths use it so unknown ids stay untracked.
// Caller holds mu.
func (m *Memory) lookup(id string) *models.Conversation {
	if id == "" {
		id = DefaultConversationID
	}
	return m.conversations[id]
}

// getOrCreate returns the live conversation, tracking a new one. Only mutations call it.
// Caller holds mu.
func (m *Memory) getOrCreate(id string) *models.Conversation {
	if id == "" {
		id = DefaultConversationID
	}
	conv, ok := m.conversations[id]
	if !ok {
		conv = m.newConversation(id)
		m.conversations[id] = conv
	}
	return conv
}

// GetOrCreate returns a copy of the conversation, or an empty one if unknown.
// An unknown id is neither tracked nor persisted until it is first mutated.
func (m *Memory) GetOrCreate(id string) *models.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if conv := m.lookup(id); conv != nil {
		return conv.Clone()
	}
	if id == "" {
		id = DefaultConversationID
	}
	return m.newConversation(id)
}

// Append adds msg to the conversation and persists it. A zero timestamp is filled in.
func (m *Memory) Append(ctx context.Context, id string, msg models.Message) error {
	if id == "" {
		id = DefaultConversationID
	}
	if err := ValidateID(id); err != nil {
		return err
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = m.now()
	}
	if msg.SkillsUsed == nil {
		msg.SkillsUsed = []string{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	conv := m.getOrCreate(id)
	conv.Messages = append(conv.Messages, msg)
	return m.persist(ctx, conv)
}

// AddMessage appends a message built from its parts.
func (m *Memory) AddMessage(ctx context.Context, id, role, content, agent string, skills []string) error {
	return m.Append(ctx, id, models.Message{
		Role:       role,
		Content:    content,
		Agent:      agent,
		SkillsUsed: skills,
	})
}

// History returns up to limit of the most recent messages, oldest first.
// A limit of zero or less returns the whole history.
func (m *Memory) History(id string, limit int) []models.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv := m.lookup(id)
	if conv == nil {
		return []models.Message{}
	}
	msgs := conv.Messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]models.Message, len(msgs))
	for i, msg := range msgs {
		out[i] = msg
		out[i].SkillsUsed = append([]string{}, msg.SkillsUsed...)
	}
	return out
}

// SetContext stores a context value and persists the conversation.
func (m *Memory) SetContext(ctx context.Context, id, key, value string) error {
	if id == "" {
		id = DefaultConversationID
	}
	if err := ValidateID(id); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	conv := m.getOrCreate(id)
	conv.Context[key] = value
	return m.persist(ctx, conv)
}

// Context returns the stored value for key, or def when unset.
func (m *Memory) Context(id, key, def string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv := m.lookup(id)
	if conv == nil {
		return def
	}
	if v, ok := conv.Context[key]; ok {
		return v
	}
	return def
}

// Clear replaces the conversation with an empty one and persists it.
// Unknown ids are left alone.
func (m *Memory) Clear(ctx context.Context, id string) error {
	if id == "" {
		id = DefaultConversationID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[id]; !ok {
		return nil
	}
	conv := &models.Conversation{
		ID:        id,
		CreatedAt: m.now(),
		Messages:  []models.Message{},
		Context:   map[string]string{},
	}
	m.conversations[id] = conv
	return m.persist(ctx, conv)
}

// IDs returns every known conversation id, sorted.
func (m *Memory) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.conversations))
	for id := range m.conversations {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (m *Memory) persist(ctx context.Context, conv *models.Conversation) error {
	if err := m.store.Save(ctx, conv); err != nil {
		m.logger.Error("failed to persist conversation", zap.String("conversation", conv.ID), zap.Error(err))
		return fmt.Errorf("failed to save conversation %s: %w", conv.ID, err)
	}
	return nil
}
