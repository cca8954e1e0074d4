// ABOUTME: Partner ledger repository backed by a single JSON file
// ABOUTME: Owns the mtime-keyed partner cache and the derived stats cache

package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/harperreed/partneros/models"
	"go.uber.org/zap"
)

var (
	ErrInvalidName = errors.New("partner name is required")
	ErrInvalidTier = errors.New("invalid tier")
)

const maxNameLength = 100

// Stats summarizes the whole ledger.
type Stats struct {
	Total      int                 `json:"total"`
	Tiers      map[models.Tier]int `json:"tiers"`
	TotalDeals int                 `json:"total_deals"`
	TotalValue int64               `json:"total_value"`
}

// Patch describes a partial partner update. Nil fields are left alone.
type Patch struct {
	Tier    *models.Tier
	Status  *string
	Contact *string
	Email   *string
	Note    string
}

// DocumentInput is what the caller knows about a freshly written document.
type DocumentInput struct {
	Type     models.DocType
	Template string
	Path     string
	Fields   map[string]string
}

// Ledger is the system of record for partners, deals and documents.
// Every mutation is a read-modify-write of the whole collection, serialized by mu.
type Ledger struct {
	path   string
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	partners []models.Partner
	modTime  time.Time
	size     int64
	loaded   bool
	stats    *Stats
}

// Open creates a ledger stored at path. The file is created lazily on first write.
func Open(path string, logger *zap.Logger) (*Ledger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	l := &Ledger{path: path, logger: logger, now: time.Now}
	l.mu.Lock()
	l.load()
	l.mu.Unlock()
	return l, nil
}

// Path returns the ledger file location.
func (l *Ledger) Path() string {
	return l.path
}

// load refreshes the cache when the file changed on disk. Caller holds mu.
// An unreadable or corrupt file leaves the last good snapshot in place.
func (l *Ledger) load() []models.Partner {
	info, err := os.Stat(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		if l.loaded && l.modTime.IsZero() {
			return l.partners
		}
		if len(l.partners) > 0 {
			l.logger.Warn("ledger file disappeared, starting empty", zap.String("path", l.path))
		}
		l.partners = nil
		l.modTime = time.Time{}
		l.size = 0
		l.stats = nil
		l.loaded = true
		return l.partners
	}
	if err != nil {
		l.logger.Warn("failed to stat ledger file", zap.String("path", l.path), zap.Error(err))
		return l.partners
	}

	if l.loaded && info.ModTime().Equal(l.modTime) && info.Size() == l.size {
		return l.partners
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		l.logger.Warn("failed to read ledger file, using last snapshot", zap.String("path", l.path), zap.Error(err))
		return l.partners
	}

	var partners []models.Partner
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &partners); err != nil {
			l.logger.Warn("corrupt ledger file, using last snapshot", zap.String("path", l.path), zap.Error(err))
			return l.partners
		}
	}

	l.partners = partners
	l.modTime = info.ModTime()
	l.size = info.Size()
	l.loaded = true
	l.stats = nil
	return l.partners
}

// save writes the full collection through a temp file and rename. Caller holds mu.
func (l *Ledger) save(partners []models.Partner) error {
	if partners == nil {
		partners = []models.Partner{}
	}
	data, err := json.MarshalIndent(partners, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".partners-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp ledger file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace ledger: %w", err)
	}

	l.partners = partners
	l.stats = nil
	l.loaded = true
	if info, err := os.Stat(l.path); err == nil {
		l.modTime = info.ModTime()
		l.size = info.Size()
	}
	return nil
}

// mutate copies the current collection, hands partner i (or -1) to fn and persists the result.
func (l *Ledger) mutate(name string, fn func(next []models.Partner, i int) ([]models.Partner, error)) error {
	current := l.load()
	next := make([]models.Partner, len(current))
	copy(next, current)

	i := indexOf(next, name)
	if i >= 0 {
		next[i] = *next[i].Clone()
	}

	next, err := fn(next, i)
	if err != nil || next == nil {
		return err
	}
	return l.save(next)
}

func indexOf(partners []models.Partner, name string) int {
	name = strings.TrimSpace(name)
	for i := range partners {
		if strings.EqualFold(partners[i].Name, name) {
			return i
		}
	}
	return -1
}

func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > maxNameLength {
		name = strings.TrimSpace(string([]rune(name)[:maxNameLength]))
	}
	return name
}

// Add creates a partner. An existing partner (any case) is returned unchanged.
func (l *Ledger) Add(name string, tier string, contact, email string) (*models.Partner, error) {
	name = normalizeName(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	t, ok := models.ParseTier(tier)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTier, tier)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var result *models.Partner
	err := l.mutate(name, func(next []models.Partner, i int) ([]models.Partner, error) {
		if i >= 0 {
			result = next[i].Clone()
			return nil, nil
		}

		now := l.now()
		p := models.Partner{
			ID:        uuid.New(),
			Name:      name,
			Tier:      t,
			Contact:   strings.TrimSpace(contact),
			Email:     strings.TrimSpace(email),
			Status:    models.StatusOnboarding,
			CreatedAt: now,
			UpdatedAt: now,
			Deals:     []models.Deal{},
			Documents: []models.Document{},
			Notes:     []string{},
		}
		result = p.Clone()
		l.logger.Info("partner created", zap.String("partner", name), zap.String("tier", string(t)))
		return append(next, p), nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Get looks a partner up by case-insensitive name. Returns nil, nil when absent.
func (l *Ledger) Get(name string) (*models.Partner, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	partners := l.load()
	i := indexOf(partners, name)
	if i < 0 {
		return nil, nil
	}
	return partners[i].Clone(), nil
}

// List returns every partner in insertion order.
func (l *Ledger) List() ([]models.Partner, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	partners := l.load()
	out := make([]models.Partner, len(partners))
	for i := range partners {
		out[i] = *partners[i].Clone()
	}
	return out, nil
}

// Names returns partner names in insertion order.
func (l *Ledger) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	partners := l.load()
	names := make([]string, len(partners))
	for i, p := range partners {
		names[i] = p.Name
	}
	return names
}

// Update applies patch to the named partner. Returns nil, nil when absent.
func (l *Ledger) Update(name string, patch Patch) (*models.Partner, error) {
	var tier models.Tier
	if patch.Tier != nil {
		t, ok := models.ParseTier(string(*patch.Tier))
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTier, *patch.Tier)
		}
		tier = t
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var result *models.Partner
	err := l.mutate(name, func(next []models.Partner, i int) ([]models.Partner, error) {
		if i < 0 {
			return nil, nil
		}
		p := &next[i]
		if patch.Tier != nil {
			p.Tier = tier
		}
		if patch.Status != nil {
			p.Status = strings.TrimSpace(*patch.Status)
		}
		if patch.Contact != nil {
			p.Contact = strings.TrimSpace(*patch.Contact)
		}
		if patch.Email != nil {
			p.Email = strings.TrimSpace(*patch.Email)
		}
		if note := strings.TrimSpace(patch.Note); note != "" {
			p.Notes = append(p.Notes, note)
		}
		p.UpdatedAt = l.now()
		result = p.Clone()
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RegisterDeal appends a deal to the named partner. Returns nil, nil when the partner is absent.
func (l *Ledger) RegisterDeal(name string, value int64, account string) (*models.Deal, error) {
	if value < 0 {
		value = 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var result *models.Deal
	err := l.mutate(name, func(next []models.Partner, i int) ([]models.Partner, error) {
		if i < 0 {
			return nil, nil
		}
		p := &next[i]
		if strings.TrimSpace(account) == "" {
			account = p.Name
		}
		now := l.now()
		deal := models.Deal{
			ID:           fmt.Sprintf("deal-%d", len(p.Deals)+1),
			Value:        value,
			Account:      strings.TrimSpace(account),
			Status:       models.DealRegistered,
			RegisteredAt: now,
		}
		p.Deals = append(p.Deals, deal)
		p.UpdatedAt = now
		result = &deal
		l.logger.Info("deal registered",
			zap.String("partner", p.Name),
			zap.String("deal", deal.ID),
			zap.Int64("value", value))
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AddDocument records a generated document on the named partner. Returns nil, nil when absent.
func (l *Ledger) AddDocument(name string, in DocumentInput) (*models.Document, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result *models.Document
	err := l.mutate(name, func(next []models.Partner, i int) ([]models.Partner, error) {
		if i < 0 {
			return nil, nil
		}
		p := &next[i]
		fields := make(map[string]string, len(in.Fields))
		for k, v := range in.Fields {
			fields[k] = v
		}
		now := l.now()
		doc := models.Document{
			ID:        fmt.Sprintf("doc-%d", len(p.Documents)+1),
			Type:      in.Type,
			Template:  in.Template,
			Path:      in.Path,
			Status:    models.DocumentDraft,
			Fields:    fields,
			CreatedAt: now,
		}
		p.Documents = append(p.Documents, doc)
		p.UpdatedAt = now
		result = &doc
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the named partner. It reports whether a partner was removed.
func (l *Ledger) Delete(name string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	deleted := false
	err := l.mutate(name, func(next []models.Partner, i int) ([]models.Partner, error) {
		if i < 0 {
			return nil, nil
		}
		deleted = true
		l.logger.Info("partner deleted", zap.String("partner", next[i].Name))
		return append(next[:i], next[i+1:]...), nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// Stats returns cached aggregate counts, recomputing after any write or external change.
func (l *Ledger) Stats() (Stats, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	partners := l.load()
	if l.stats == nil {
		s := Stats{Tiers: make(map[models.Tier]int, len(models.Tiers))}
		for _, t := range models.Tiers {
			s.Tiers[t] = 0
		}
		for i := range partners {
			s.Total++
			s.Tiers[partners[i].Tier]++
			s.TotalDeals += len(partners[i].Deals)
			s.TotalValue += partners[i].TotalDealValue()
		}
		l.stats = &s
	}

	out := *l.stats
	out.Tiers = make(map[models.Tier]int, len(l.stats.Tiers))
	for k, v := range l.stats.Tiers {
		out.Tiers[k] = v
	}
	return out, nil
}
