package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/hexdraft/internal/game/engine"
)

// ErrSessionNotFound is returned for an unknown session id.
var ErrSessionNotFound = errors.New("session not found")

// Factory builds a new game. A nil seed seeds from the clock.
type Factory func(seed *int64) (*engine.Game, error)

// Session is one player's game.
type Session struct {
	// ID is a random UUID string.
	ID string
	// Started is when the session was created.
	Started time.Time
	// Outbox carries server notices to the player's connection.
	Outbox *Outbox

	mu   sync.Mutex
	game *engine.Game
}

// Do runs fn with exclusive access to the session's game.
func (s *Session) Do(fn func(g *engine.Game) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.game)
}

// Manager tracks all live sessions. All methods are safe for concurrent use;
// games in different sessions run concurrently.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	factory  Factory
	logger   *zap.Logger
}

// NewManager creates an empty Manager.
//
// Precondition: factory and logger must be non-nil.
func NewManager(factory Factory, logger *zap.Logger) *Manager {
	if factory == nil || logger == nil {
		panic("session.NewManager: factory and logger must not be nil")
	}
	return &Manager{
		sessions: make(map[string]*Session),
		factory:  factory,
		logger:   logger,
	}
}

// Create starts a new game in a new session.
//
// Postcondition: Returns the registered Session, or an error if the factory fails.
func (m *Manager) Create(seed *int64) (*Session, error) {
	g, err := m.factory(seed)
	if err != nil {
		return nil, fmt.Errorf("creating game: %w", err)
	}
	id := uuid.NewString()
	sess := &Session{
		ID:      id,
		Started: time.Now(),
		Outbox:  NewOutbox(id, 16),
		game:    g,
	}

	m.mu.Lock()
	m.sessions[id] = sess
	count := len(m.sessions)
	m.mu.Unlock()

	m.logger.Info("session created",
		zap.String("session", id),
		zap.Int64("seed", g.Seed()),
		zap.Int("sessions", count),
	)
	return sess, nil
}

// Get returns the session for id.
//
// Postcondition: Returns ErrSessionNotFound if id is unknown.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// Remove drops the session, closes its outbox, and releases its game.
//
// Postcondition: Returns ErrSessionNotFound if id is unknown.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.Outbox.Close()
	_ = sess.Do(func(g *engine.Game) error {
		g.Close()
		return nil
	})
	m.logger.Info("session removed", zap.String("session", id))
	return nil
}

// Do runs fn with exclusive access to the game of session id.
//
// Postcondition: Returns ErrSessionNotFound if id is unknown, otherwise fn's error.
func (m *Manager) Do(id string, fn func(g *engine.Game) error) error {
	sess, err := m.Get(id)
	if err != nil {
		return err
	}
	return sess.Do(fn)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs returns the live session ids in sorted order.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Broadcast queues note for every live session and returns how many accepted it.
func (m *Manager) Broadcast(note string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	delivered := 0
	for id, sess := range m.sessions {
		if err := sess.Outbox.Push(note); err != nil {
			m.logger.Debug("broadcast dropped", zap.String("session", id), zap.Error(err))
			continue
		}
		delivered++
	}
	return delivered
}
