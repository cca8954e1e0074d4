// ABOUTME: Persistence backends for conversation memory
// ABOUTME: FileStore writes one JSON file per conversation, KVStore keeps them in charm kv

package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/harperreed/partneros/charm"
	"github.com/harperreed/partneros/models"
	"go.uber.org/zap"
)

var ErrInvalidConversationID = errors.New("invalid conversation id")

var validID = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,128}$`)

// ValidateID rejects ids that are not safe as file names or keys.
func ValidateID(id string) error {
	if !validID.MatchString(id) || strings.Trim(id, ".") == "" {
		return fmt.Errorf("%w: %q", ErrInvalidConversationID, id)
	}
	return nil
}

// Store persists whole conversations.
type Store interface {
	Load(ctx context.Context) ([]*models.Conversation, error)
	Save(ctx context.Context, conv *models.Conversation) error
}

// FileStore keeps each conversation in <dir>/<id>.json.
type FileStore struct {
	dir    string
	logger *zap.Logger
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create memory directory: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Load reads every conversation file. Unreadable files are skipped.
func (s *FileStore) Load(_ context.Context) ([]*models.Conversation, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	sort.Strings(matches)

	var out []*models.Conversation
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable conversation", zap.String("path", path), zap.Error(err))
			continue
		}
		var conv models.Conversation
		if err := json.Unmarshal(data, &conv); err != nil || conv.ID == "" {
			s.logger.Warn("skipping corrupt conversation", zap.String("path", path), zap.Error(err))
			continue
		}
		out = append(out, &conv)
	}
	return out, nil
}

// Save overwrites the conversation file through a temp file and rename.
func (s *FileStore) Save(_ context.Context, conv *models.Conversation) error {
	if err := ValidateID(conv.ID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode conversation: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+conv.ID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp conversation file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write conversation: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write conversation: %w", err)
	}
	if err := os.Rename(tmpName, s.path(conv.ID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace conversation: %w", err)
	}
	return nil
}

const kvPrefix = "conversation:"

// KVStore keeps conversations in charm kv under conversation:<id>.
type KVStore struct {
	client *charm.Client
	logger *zap.Logger
}

func NewKVStore(client *charm.Client, logger *zap.Logger) *KVStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KVStore{client: client, logger: logger}
}

func (s *KVStore) Load(_ context.Context) ([]*models.Conversation, error) {
	keys, err := s.client.KeysWithPrefix([]byte(kvPrefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	var out []*models.Conversation
	for _, key := range keys {
		data, err := s.client.Get(key)
		if err != nil {
			s.logger.Warn("skipping unreadable conversation", zap.ByteString("key", key), zap.Error(err))
			continue
		}
		var conv models.Conversation
		if err := json.Unmarshal(data, &conv); err != nil || conv.ID == "" {
			s.logger.Warn("skipping corrupt conversation", zap.ByteString("key", key), zap.Error(err))
			continue
		}
		out = append(out, &conv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *KVStore) Save(_ context.Context, conv *models.Conversation) error {
	if err := ValidateID(conv.ID); err != nil {
		return err
	}
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to encode conversation: %w", err)
	}
	if err := s.client.Set([]byte(kvPrefix+conv.ID), data); err != nil {
		return fmt.Errorf("failed to store conversation: %w", err)
	}
	return nil
}
