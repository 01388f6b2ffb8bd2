package studio

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// SessionObserver is notified when sessions are created and evicted.
type SessionObserver interface {
	SessionOpened()
	SessionClosed()
}

// Sessions keeps one Studio per browser session and evicts idle ones after a TTL.
// Every lookup slides the expiry.
type Sessions struct {
	cache     *cache.Cache
	newStudio func() *Studio
	observer  SessionObserver

	// mu makes lookup-or-create atomic
	mu sync.Mutex
}

// NewSessions creates an empty session store. observer may be nil.
func NewSessions(ttl time.Duration, newStudio func() *Studio, observer SessionObserver) *Sessions {
	cleanup := ttl
	if cleanup > time.Minute {
		cleanup = time.Minute
	}
	return newSessions(ttl, cleanup, newStudio, observer)
}

func newSessions(ttl, cleanup time.Duration, newStudio func() *Studio, observer SessionObserver) *Sessions {
	s := &Sessions{
		cache:     cache.New(ttl, cleanup),
		newStudio: newStudio,
		observer:  observer,
	}
	s.cache.OnEvicted(func(_ string, v interface{}) {
		if st, ok := v.(*Studio); ok {
			st.Close()
		}
		if s.observer != nil {
			s.observer.SessionClosed()
		}
	})
	return s
}

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}

// Get returns the studio for id, if it is still live.
func (s *Sessions) Get(id string) (*Studio, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touch(id)
}

// GetOrCreate returns the studio for id, creating it when absent. The second result
// reports whether a new studio was created.
func (s *Sessions) GetOrCreate(id string) (*Studio, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.touch(id); ok {
		return st, false
	}
	st := s.newStudio()
	s.cache.SetDefault(id, st)
	if s.observer != nil {
		s.observer.SessionOpened()
	}
	return st, true
}

// touch slides the expiry of a live session. An expired entry the janitor has not
// swept yet is evicted here, so its studio is closed before the id is reused.
func (s *Sessions) touch(id string) (*Studio, bool) {
	v, ok := s.cache.Get(id)
	if !ok {
		s.cache.Delete(id)
		return nil, false
	}
	st := v.(*Studio)
	s.cache.SetDefault(id, st)
	return st, true
}

// Delete closes and forgets the session id.
func (s *Sessions) Delete(id string) {
	s.cache.Delete(id)
}

// Sweep evicts expired sessions now instead of waiting for the janitor.
func (s *Sessions) Sweep() {
	s.cache.DeleteExpired()
}

// Len returns the number of held sessions, including expired ones not yet swept.
func (s *Sessions) Len() int {
	return s.cache.ItemCount()
}

// Close evicts every session.
func (s *Sessions) Close() {
	s.cache.DeleteExpired()
	for id := range s.cache.Items() {
		s.cache.Delete(id)
	}
}
