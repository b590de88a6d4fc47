package chat

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/z-chat/backend/internal/model/chat"
)

var ErrSessionNotFound = errors.New("session not found")

type entry struct {
	session    chat.Session
	transcript *chat.Transcript
	inFlight   int
}

// Service owns one transcript per session. Sessions never share state; the
// mutex only guards the registry itself.
type Service struct {
	mu           sync.RWMutex
	sessions     map[string]*entry
	systemPrompt string
	now          func() time.Time
}

// NewService bootstraps the in-memory session registry. systemPrompt seeds
// every new transcript.
func NewService(systemPrompt string) *Service {
	return &Service{
		sessions:     make(map[string]*entry),
		systemPrompt: systemPrompt,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateSession provisions an anonymous session with a freshly seeded transcript.
func (s *Service) CreateSession(_ context.Context) (chat.Session, error) {
	now := s.now()
	session := chat.Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		LastActive: now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = &entry{
		session:    session,
		transcript: chat.NewTranscript(s.systemPrompt),
	}
	s.mu.Unlock()

	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return e.session, nil
}

// DeleteSession discards a session and its transcript.
func (s *Service) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

// Append adds a turn to the session transcript.
func (s *Service) Append(_ context.Context, sessionID string, role chat.Role, content string) error {
	transcript, err := s.touch(sessionID)
	if err != nil {
		return err
	}
	return transcript.Append(role, content)
}

// Reset clears the session transcript back to its system seed.
func (s *Service) Reset(_ context.Context, sessionID string) error {
	transcript, err := s.touch(sessionID)
	if err != nil {
		return err
	}
	transcript.Reset()
	return nil
}

// Snapshot returns the full transcript, system seed included.
func (s *Service) Snapshot(_ context.Context, sessionID string) ([]chat.Message, error) {
	transcript, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	return transcript.Snapshot(), nil
}

// LoadTranscript returns the displayable messages for the provided session.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	transcript, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	return transcript.History(), nil
}

// BeginTurn marks a conversation turn as in flight so ExpireIdle leaves the
// session alone. The returned func ends the turn and counts as activity.
func (s *Service) BeginTurn(_ context.Context, sessionID string) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.inFlight++
	e.session.LastActive = s.now()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			e.inFlight--
			e.session.LastActive = s.now()
		})
	}, nil
}

// ExpireIdle drops sessions whose last activity is older than ttl and
// returns how many were removed. Sessions with a turn in flight are kept.
func (s *Service) ExpireIdle(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		if e.inFlight == 0 && e.session.LastActive.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// RunJanitor expires idle sessions every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, ttl, interval time.Duration) {
	if ttl <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.ExpireIdle(ttl); n > 0 {
				log.Printf("[chat] expired %d idle sessions", n)
			}
		}
	}
}

// Count reports the number of live sessions.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Service) touch(sessionID string) (*chat.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.session.LastActive = s.now()
	return e.transcript, nil
}
