// Package preview holds the locally resolvable image references shown next to each
// upload slot. A reference is allocated once per accepted file and released exactly once.
package preview

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// DefaultPathPrefix is the URL path previews are served under.
const DefaultPathPrefix = "/previews/"

// Entry is one stored preview.
type Entry struct {
	ID        string
	MIMEType  string
	Data      []byte
	ETag      string
	CreatedAt time.Time
}

// Store maps preview references to image bytes.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	prefix  string
}

// NewStore creates an empty store whose references start with prefix.
// An empty prefix uses DefaultPathPrefix.
func NewStore(prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPathPrefix
	}
	return &Store{
		entries: make(map[string]*Entry),
		prefix:  prefix,
	}
}

// Allocate stores data and returns its reference URL.
func (s *Store) Allocate(mimeType string, data []byte) string {
	id := uuid.NewString()
	entry := &Entry{
		ID:        id,
		MIMEType:  mimeType,
		Data:      data,
		ETag:      ETag(data),
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.entries[id] = entry
	s.mu.Unlock()

	return s.prefix + id
}

// Get resolves a reference URL or a bare id.
func (s *Store) Get(ref string) (*Entry, bool) {
	id := s.idOf(ref)
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	return entry, ok
}

// Release frees a reference. It reports whether the reference was live, so a second
// release of the same reference returns false.
func (s *Store) Release(ref string) bool {
	if ref == "" {
		return false
	}
	id := s.idOf(ref)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	return true
}

// Len returns the number of live references.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) idOf(ref string) string {
	return strings.TrimPrefix(ref, s.prefix)
}

// ETag returns a strong entity tag for data.
func ETag(data []byte) string {
	return fmt.Sprintf(`"%016x"`, xxhash.Sum64(data))
}
