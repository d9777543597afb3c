package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"plantwatch/internal/types"
)

// Session is one dashboard page load. A full reload creates a new session
// and therefore a fresh Idle trigger.
type Session struct {
	ID        string
	CreatedAt time.Time
	Trigger   *Trigger

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(at time.Time) {
	s.mu.Lock()
	s.lastSeen = at
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// DefaultMaxSessions bounds the store when SessionConfig.MaxSessions is zero.
const DefaultMaxSessions = 10000

// SessionConfig tunes a SessionStore.
type SessionConfig struct {
	TTL                 time.Duration
	CollaboratorTimeout time.Duration
	BreakerCooldown     time.Duration
	// MaxSessions caps live sessions; at the cap the least recently seen
	// session is evicted.
	MaxSessions int
}

// SessionStore holds page sessions in memory and routes user actions to the
// recommendation collaborator.
type SessionStore struct {
	recommender Recommender
	guard       *Guard[string]
	ttl         time.Duration
	maxSessions int
	logger      *slog.Logger
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore(rec Recommender, cfg SessionConfig, logger *slog.Logger) *SessionStore {
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	return &SessionStore{
		recommender: rec,
		guard:       NewGuard[string]("recommendation", cfg.CollaboratorTimeout, cfg.BreakerCooldown),
		ttl:         cfg.TTL,
		maxSessions: cfg.MaxSessions,
		logger:      logger,
		now:         time.Now,
		sessions:    make(map[string]*Session),
	}
}

// Create starts a new session in the Idle state, evicting the least
// recently seen session when the store is full.
func (s *SessionStore) Create() *Session {
	now := s.now().UTC()
	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		Trigger:   &Trigger{},
		lastSeen:  now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.sessions) >= s.maxSessions {
		s.evictOldestLocked()
	}
	s.sessions[sess.ID] = sess
	return sess
}

// evictOldestLocked removes the least recently seen session. s.mu must be
// held for writing.
func (s *SessionStore) evictOldestLocked() {
	var (
		oldestID string
		oldestAt time.Time
	)
	for id, sess := range s.sessions {
		at := sess.idleSince()
		if oldestID == "" || at.Before(oldestAt) {
			oldestID, oldestAt = id, at
		}
	}
	delete(s.sessions, oldestID)
	s.logger.Warn("session limit reached, evicted least recently seen session",
		"session_id", oldestID,
		"max_sessions", s.maxSessions,
	)
}

// Get returns the session with id or a not_found_session error.
func (s *SessionStore) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, types.NewAppError(types.ErrCodeNotFoundSession, "session not found", nil)
	}
	sess.touch(s.now())
	return sess, nil
}

// Act is the button press for session id. Every action asks the
// collaborator for fresh text; nothing is cached.
func (s *SessionStore) Act(ctx context.Context, id string) (TriggerView, error) {
	sess, err := s.Get(id)
	if err != nil {
		return TriggerView{}, err
	}

	view, err := sess.Trigger.Act(ctx, s.now().UTC(), func(ctx context.Context) (string, error) {
		return s.guard.Do(ctx, s.recommender.Recommend)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "recommendation failed, previous text retained",
			"session_id", id,
			"error", err,
		)
		return view, err
	}
	return view, nil
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (s *SessionStore) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// RunSweeper sweeps expired sessions every interval until ctx is cancelled.
func (s *SessionStore) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info("expired page sessions removed", "count", n)
			}
		}
	}
}
