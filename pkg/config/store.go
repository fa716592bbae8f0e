package config

import (
	"errors"
	"strings"
	"sync"

	"github.com/tinyland-inc/relaybot/pkg/forward"
	"github.com/tinyland-inc/relaybot/pkg/rules"
)

var (
	// ErrDuplicate is returned when adding an entry that is already present.
	ErrDuplicate = errors.New("already present")
	// ErrNotFound is returned when removing an entry that is not present.
	ErrNotFound = errors.New("not found")
	// ErrEmptyRule is returned for replacement rules with an empty side.
	ErrEmptyRule = errors.New("rule key and value must be non-empty")
	// ErrEmptyEntry is returned for blank channel identifiers.
	ErrEmptyEntry = errors.New("empty channel identifier")
	// ErrUnknownCategory is returned for a replacement category that is not
	// links, words or sentences.
	ErrUnknownCategory = errors.New("unknown replacement category")
)

// Store owns the live configuration and its persistence. All mutation
// methods take the write lock and save to disk before returning; Snapshot
// hands out an atomically-read deep copy for the forwarding pipeline.
type Store struct {
	mu   sync.RWMutex
	path string
	cfg  *Config
}

func NewStore(path string, cfg *Config) *Store {
	return &Store{path: path, cfg: cfg}
}

// Snapshot returns a consistent view of the fields the forwarding pipeline
// reads. Sources and rules are deep-copied so a concurrent administrative
// mutation can never tear a decision mid-flight.
func (s *Store) Snapshot() forward.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sources := make([]string, len(s.cfg.SourceChannels))
	copy(sources, s.cfg.SourceChannels)

	return forward.Snapshot{
		Enabled: s.cfg.ForwardingEnabled,
		Target:  s.cfg.TargetChannel,
		Sources: sources,
		Rules:   s.cfg.Replacements.Clone(),
	}
}

// Save persists the current configuration. Mutation methods call this with
// the lock held; it is also exposed for the final save on shutdown.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.save()
}

func (s *Store) save() error {
	return SaveConfig(s.path, s.cfg)
}

func (s *Store) IsAdmin(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.cfg.AdminUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func (s *Store) HasAdmins() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cfg.AdminUsers) > 0
}

func (s *Store) Admins() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int64, len(s.cfg.AdminUsers))
	copy(out, s.cfg.AdminUsers)
	return out
}

func (s *Store) AddAdmin(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.cfg.AdminUsers {
		if id == userID {
			return ErrDuplicate
		}
	}
	s.cfg.AdminUsers = append(s.cfg.AdminUsers, userID)
	return s.save()
}

func (s *Store) RemoveAdmin(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, id := range s.cfg.AdminUsers {
		if id == userID {
			s.cfg.AdminUsers = append(s.cfg.AdminUsers[:i], s.cfg.AdminUsers[i+1:]...)
			return s.save()
		}
	}
	return ErrNotFound
}

func (s *Store) Sources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.cfg.SourceChannels))
	copy(out, s.cfg.SourceChannels)
	return out
}

// AddSource stores a source channel entry without its leading "@".
// Duplicate detection is case-insensitive, matching the source matcher.
func (s *Store) AddSource(channel string) (string, error) {
	normalized := strings.TrimPrefix(strings.TrimSpace(channel), "@")
	if normalized == "" {
		return "", ErrEmptyEntry
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.cfg.SourceChannels {
		if strings.EqualFold(strings.TrimPrefix(existing, "@"), normalized) {
			return normalized, ErrDuplicate
		}
	}
	s.cfg.SourceChannels = append(s.cfg.SourceChannels, normalized)
	return normalized, s.save()
}

// RemoveSource removes the stored entry matching channel (case-insensitive,
// sigil-insensitive) and returns it.
func (s *Store) RemoveSource(channel string) (string, error) {
	normalized := strings.TrimPrefix(strings.TrimSpace(channel), "@")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.cfg.SourceChannels {
		if strings.EqualFold(strings.TrimPrefix(existing, "@"), normalized) {
			s.cfg.SourceChannels = append(s.cfg.SourceChannels[:i], s.cfg.SourceChannels[i+1:]...)
			return existing, s.save()
		}
	}
	return "", ErrNotFound
}

func (s *Store) Target() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.TargetChannel
}

func (s *Store) SetTarget(target string) (string, error) {
	normalized := strings.TrimPrefix(strings.TrimSpace(target), "@")
	if normalized == "" {
		return "", ErrEmptyEntry
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.TargetChannel == normalized {
		return normalized, ErrDuplicate
	}
	s.cfg.TargetChannel = normalized
	return normalized, s.save()
}

// ClearTarget unsets the target channel. Clearing the target forces
// forwarding off; relaying without a destination is never valid.
func (s *Store) ClearTarget() (old string, wasEnabled bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.TargetChannel == "" {
		return "", false, ErrNotFound
	}
	old = s.cfg.TargetChannel
	wasEnabled = s.cfg.ForwardingEnabled
	s.cfg.TargetChannel = ""
	s.cfg.ForwardingEnabled = false
	return old, wasEnabled, s.save()
}

func (s *Store) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.ForwardingEnabled
}

func (s *Store) SetEnabled(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.ForwardingEnabled = enabled
	return s.save()
}

// Rules returns a deep copy of the current ruleset.
func (s *Store) Rules() rules.Ruleset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Replacements.Clone()
}

func (s *Store) category(name string) (map[string]string, bool) {
	switch name {
	case rules.CategoryLinks:
		return s.cfg.Replacements.Links, true
	case rules.CategoryWords:
		return s.cfg.Replacements.Words, true
	case rules.CategorySentences:
		return s.cfg.Replacements.Sentences, true
	}
	return nil, false
}

// AddRule inserts a replacement into a category. Empty keys or values are
// rejected here, at the mutation boundary; the engine assumes they never
// reach a ruleset. Last write wins for an existing key.
func (s *Store) AddRule(category, old, new string) error {
	old = strings.TrimSpace(old)
	new = strings.TrimSpace(new)
	if old == "" || new == "" {
		return ErrEmptyRule
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.category(category)
	if !ok {
		return ErrUnknownCategory
	}
	m[old] = new
	return s.save()
}

// RemoveRule deletes a replacement and returns its former value.
func (s *Store) RemoveRule(category, old string) (string, error) {
	old = strings.TrimSpace(old)

	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.category(category)
	if !ok {
		return "", ErrUnknownCategory
	}
	value, exists := m[old]
	if !exists {
		return "", ErrNotFound
	}
	delete(m, old)
	return value, s.save()
}

// ClearRules empties one category, or all of them for "all", returning how
// many rules were removed.
func (s *Store) ClearRules(category string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if category == "all" {
		count := s.cfg.Replacements.Count()
		s.cfg.Replacements = rules.NewRuleset()
		return count, s.save()
	}

	m, ok := s.category(category)
	if !ok {
		return 0, ErrUnknownCategory
	}
	count := len(m)
	for k := range m {
		delete(m, k)
	}
	return count, s.save()
}

// Status describes the store for the /status endpoint and command.
type Status struct {
	BotRunning         bool   `json:"bot_running"`
	ForwardingEnabled  bool   `json:"forwarding_enabled"`
	SourceChannels     int    `json:"source_channels_count"`
	TargetChannel      string `json:"target_channel"`
	AdminUsers         int    `json:"admin_users_count"`
	ActiveReplacements int    `json:"active_replacements_count"`
}

func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	target := s.cfg.TargetChannel
	if target == "" {
		target = "Not Set"
	}

	return Status{
		BotRunning:         true,
		ForwardingEnabled:  s.cfg.ForwardingEnabled,
		SourceChannels:     len(s.cfg.SourceChannels),
		TargetChannel:      target,
		AdminUsers:         len(s.cfg.AdminUsers),
		ActiveReplacements: s.cfg.Replacements.Count(),
	}
}
