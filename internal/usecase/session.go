package usecase

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"pluto-ai/internal/domain"
)

// Session is a unit of multi-turn conversational continuity owned by
// exactly one agent.
type Session struct {
	mu        sync.RWMutex
	ID        string           `json:"id"` // ULID
	AgentID   string           `json:"agent_id"`
	Msgs      []domain.Message `json:"messages"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NewSession creates a new empty session with a generated ULID.
func NewSession(agentID string) *Session {
	now := time.Now()
	return &Session{
		ID:        generateULID(now),
		AgentID:   agentID,
		Msgs:      make([]domain.Message, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// generateULID derives the timestamp half from t and the entropy half
// from the process-wide monotonic reader, so sessions created in the
// same instant still get distinct IDs.
func generateULID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String()
}

// AddMessage appends a message and updates the timestamp (thread-safe).
func (s *Session) AddMessage(msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.Msgs = append(s.Msgs, msg)
	s.UpdatedAt = time.Now()
}

// Messages returns a copy of the message history (thread-safe).
func (s *Session) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]domain.Message, len(s.Msgs))
	copy(cp, s.Msgs)
	return cp
}

// SessionManager owns an agent's sessions and its single active-session
// slot. All writes to the registry and the active pointer are serialized
// by the manager's mutex: two callers racing on Start/Load can never leave
// the active session pointing outside the registry.
type SessionManager struct {
	mu       sync.RWMutex
	agentID  string
	sessions map[string]*Session
	active   *Session
	dataDir  string // empty = no persistence
}

// NewSessionManager creates a session manager for one agent. dataDir may
// be empty to disable persistence.
func NewSessionManager(agentID, dataDir string) *SessionManager {
	return &SessionManager{
		agentID:  agentID,
		sessions: make(map[string]*Session),
		dataDir:  dataDir,
	}
}

// Start always creates a fresh session, registers it, and makes it the
// active session.
func (sm *SessionManager) Start() *Session {
	s := NewSession(sm.agentID)

	sm.mu.Lock()
	sm.sessions[s.ID] = s
	sm.active = s
	sm.mu.Unlock()

	return s
}

// Load looks up a session by ID. On a hit it becomes the active session;
// a miss returns (nil, false) and leaves the active session unchanged.
func (sm *SessionManager) Load(id string) (*Session, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	s, ok := sm.sessions[id]
	if !ok {
		// Fall back to disk before reporting a miss.
		loaded, err := sm.loadFromDisk(id)
		if err != nil {
			return nil, false
		}
		s = loaded
		sm.sessions[id] = s
	}
	sm.active = s
	return s, true
}

// Active returns the current active session, or nil before the first
// Start or successful Load.
func (sm *SessionManager) Active() *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.active
}

// Count returns the number of registered sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// List returns all registered session IDs.
func (sm *SessionManager) List() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	ids := make([]string, 0, len(sm.sessions))
	for id := range sm.sessions {
		ids = append(ids, id)
	}
	return ids
}

// validateSessionID checks if a session ID is safe for filesystem use.
// It rejects path separators, parent directory references, and null bytes.
func validateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	if strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("session ID contains path separators: %q", id)
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("session ID contains parent directory reference: %q", id)
	}
	if strings.Contains(id, "\x00") {
		return fmt.Errorf("session ID contains null byte: %q", id)
	}
	if clean := filepath.Clean(id); clean != id {
		return fmt.Errorf("session ID not clean path: %q vs %q", id, clean)
	}
	return nil
}

// Save persists a session to disk as JSON.
func (sm *SessionManager) Save(id string) error {
	if sm.dataDir == "" {
		return nil
	}
	if err := validateSessionID(id); err != nil {
		return domain.NewDomainError("SessionManager.Save", err, id)
	}

	sm.mu.RLock()
	s, ok := sm.sessions[id]
	sm.mu.RUnlock()

	if !ok {
		return domain.NewDomainError("SessionManager.Save", domain.ErrSessionNotFound, id)
	}

	if err := os.MkdirAll(sm.dataDir, 0700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	s.mu.RLock()
	data, err := json.MarshalIndent(s, "", "  ")
	s.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	path := filepath.Join(sm.dataDir, id+".json")
	return os.WriteFile(path, data, 0600)
}

// ReapStale deletes sessions not updated within maxAge and returns the
// count of reaped sessions. The active session is never reaped. Both
// in-memory state and on-disk files are removed; files left behind by
// earlier runs, which have no in-memory entry, are reaped by file age.
func (sm *SessionManager) ReapStale(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	sm.mu.Lock()
	var staleIDs []string
	live := make(map[string]bool, len(sm.sessions))
	for id, s := range sm.sessions {
		if sm.active != nil && id == sm.active.ID {
			live[id] = true
			continue
		}
		s.mu.RLock()
		stale := s.UpdatedAt.Before(cutoff)
		s.mu.RUnlock()
		if stale {
			staleIDs = append(staleIDs, id)
		} else {
			live[id] = true
		}
	}
	for _, id := range staleIDs {
		delete(sm.sessions, id)
	}
	var activeID string
	if sm.active != nil {
		activeID = sm.active.ID
	}
	sm.mu.Unlock()

	reaped := len(staleIDs)
	if sm.dataDir == "" {
		return reaped
	}

	for _, id := range staleIDs {
		if err := validateSessionID(id); err != nil {
			continue
		}
		os.Remove(filepath.Join(sm.dataDir, id+".json"))
	}

	// Orphaned files carry no in-memory timestamp; the file mtime is
	// authoritative because Save rewrites the file on every update.
	entries, err := os.ReadDir(sm.dataDir)
	if err != nil {
		return reaped
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		if id == activeID || live[id] {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if os.Remove(filepath.Join(sm.dataDir, name)) == nil {
			reaped++
		}
	}
	return reaped
}

func (sm *SessionManager) loadFromDisk(id string) (*Session, error) {
	if sm.dataDir == "" {
		return nil, domain.ErrSessionNotFound
	}
	if err := validateSessionID(id); err != nil {
		return nil, domain.NewDomainError("SessionManager.loadFromDisk", err, id)
	}

	data, err := os.ReadFile(filepath.Join(sm.dataDir, id+".json"))
	if err != nil {
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}

	// Sessions belong to exactly one agent; refuse another agent's file.
	if s.AgentID != sm.agentID {
		return nil, domain.NewDomainError("SessionManager.loadFromDisk", domain.ErrSessionNotFound, id)
	}

	return &s, nil
}
