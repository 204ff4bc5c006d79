package bot

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/winstonzhaozhekai/Facility-Booking-Bot/storage"
)

// Stage identifies where a user is in a multi-step dialog. Each stage
// has exactly one handler; invalid input either re-prompts the same
// stage or aborts the session.
type Stage int

const (
	StageIdle Stage = iota

	// Registration
	StageAwaitingName

	// Booking wizard
	StageAwaitingVenue
	StageAwaitingDate
	StageAwaitingStart
	StageAwaitingStartConfirm
	StageAwaitingDuration
	StageAwaitingDurationConfirm
	StageAwaitingReason

	// Cancellation and approval pickers
	StageAwaitingCancelID
	StageAwaitingApproveID

	// Admin role editor
	StageAwaitingAdminUserID
	StageAwaitingAdminRole
	StageAwaitingAdminCCA
)

// Session is the ephemeral per-user flow state. It lives only in memory:
// a process restart drops every in-progress dialog and users start over
// with the entry command.
type Session struct {
	ID    string
	Stage Stage

	// Booking wizard answers, accumulated stage by stage.
	User             *storage.User
	AccessibleVenues []storage.Venue
	Venue            *storage.Venue
	BookingDate      time.Time
	ProposedStart    time.Time
	Start            time.Time
	ProposedDuration string
	Duration         string

	// Admin role editor answers.
	TargetUserID int64
	NewRole      string

	touched time.Time
}

// SessionStore holds in-progress dialog sessions keyed by Telegram user
// ID. Implementations evict sessions that have been idle past their TTL.
type SessionStore interface {
	// Get returns the user's session, or nil if none exists (never
	// started, completed, aborted, or expired).
	Get(userID int64) *Session

	// Begin creates a fresh session for the user, replacing any
	// existing one.
	Begin(userID int64, stage Stage) *Session

	// Touch refreshes the session's idle timer.
	Touch(userID int64)

	// Delete removes the user's session.
	Delete(userID int64)
}

// memorySessionStore is the in-process SessionStore. A background sweep
// drops sessions idle longer than the TTL so abandoned wizards do not
// accumulate.
type memorySessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	ttl      time.Duration
}

// NewMemorySessionStore creates an in-memory session store and starts
// its eviction sweep.
func NewMemorySessionStore(ttl time.Duration) SessionStore {
	s := &memorySessionStore{
		sessions: make(map[int64]*Session),
		ttl:      ttl,
	}
	go s.sweep()
	return s
}

func (s *memorySessionStore) Get(userID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return nil
	}
	if s.ttl > 0 && time.Since(sess.touched) > s.ttl {
		delete(s.sessions, userID)
		return nil
	}
	return sess
}

func (s *memorySessionStore) Begin(userID int64, stage Stage) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &Session{
		ID:      uuid.NewString(),
		Stage:   stage,
		touched: time.Now(),
	}
	s.sessions[userID] = sess
	return sess
}

func (s *memorySessionStore) Touch(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[userID]; ok {
		sess.touched = time.Now()
	}
}

func (s *memorySessionStore) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

func (s *memorySessionStore) sweep() {
	if s.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-s.ttl)
		s.mu.Lock()
		for id, sess := range s.sessions {
			if sess.touched.Before(cutoff) {
				delete(s.sessions, id)
			}
		}
		s.mu.Unlock()
	}
}
