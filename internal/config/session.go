package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Session represents the persisted client session: who is signed in and
// which conversation was last open, restored on the next launch.
type Session struct {
	// PrincipalID is the signed-in principal.
	PrincipalID string `yaml:"principal,omitempty"`
	// DisplayName is the principal's human-readable name (for display).
	DisplayName string `yaml:"display_name,omitempty"`
	// ConversationID is the last open conversation.
	ConversationID string `yaml:"conversation,omitempty"`
	// UpdatedAt is when the session was last modified.
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
}

// IsEmpty returns true if nobody is signed in.
func (s *Session) IsEmpty() bool {
	return s.PrincipalID == ""
}

// HasConversation returns true if a conversation is set.
func (s *Session) HasConversation() bool {
	return s.ConversationID != ""
}

// SignIn sets the signed-in principal, dropping any previous selection.
func (s *Session) SignIn(principalID, displayName string) {
	s.PrincipalID = principalID
	s.DisplayName = displayName
	s.ConversationID = ""
	s.UpdatedAt = time.Now()
}

// SetConversation records the last open conversation.
func (s *Session) SetConversation(id string) {
	s.ConversationID = id
	s.UpdatedAt = time.Now()
}

// Clear signs out.
func (s *Session) Clear() {
	s.PrincipalID = ""
	s.DisplayName = ""
	s.ConversationID = ""
	s.UpdatedAt = time.Now()
}

// String returns a human-readable representation of the session.
func (s *Session) String() string {
	if s.IsEmpty() {
		return "(signed out)"
	}
	name := s.DisplayName
	if name == "" {
		name = shortID(s.PrincipalID)
	}
	result := fmt.Sprintf("principal:%s", name)
	if s.HasConversation() {
		result += fmt.Sprintf(" conversation:%s", shortID(s.ConversationID))
	}
	return result
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// SessionStore manages loading and saving the session file.
type SessionStore struct {
	path string
	mu   sync.RWMutex
}

// NewSessionStore creates a new session store.
// If path is empty, uses the default path (~/.config/syncengine/session.yaml).
func NewSessionStore(path string) *SessionStore {
	if path == "" {
		homeDir, _ := os.UserHomeDir()
		path = filepath.Join(homeDir, ".config", "syncengine", "session.yaml")
	}
	return &SessionStore{path: path}
}

// Path returns the session file path.
func (s *SessionStore) Path() string {
	return s.path
}

// Load reads the session from disk.
// Returns an empty session if the file doesn't exist.
func (s *SessionStore) Load() (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := &Session{}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return sess, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	if err := yaml.Unmarshal(data, sess); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}

	return sess, nil
}

// Save writes the session to disk.
func (s *SessionStore) Save(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := yaml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	return nil
}

// Clear removes the session file.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
