package prompt

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Store maps user identities to conversation buffers. Get creates an empty
// buffer on first access. Do runs fn inside a per-user critical section:
// fn receives the user's current buffer and returns the buffer to persist,
// or nil to leave the stored buffer untouched. Do is the only safe way to
// run a read-modify-write turn cycle; concurrent turns for the same user
// serialize, turns for different users do not contend.
type Store interface {
	Get(userID string) *Buffer
	Set(userID string, buf *Buffer)
	Do(userID string, fn func(buf *Buffer) (*Buffer, error)) error
}

// keyedMutex hands out one mutex per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (km *keyedMutex) get(key string) *sync.Mutex {
	km.mu.Lock()
	defer km.mu.Unlock()
	if km.locks == nil {
		km.locks = map[string]*sync.Mutex{}
	}
	l, ok := km.locks[key]
	if !ok {
		l = &sync.Mutex{}
		km.locks[key] = l
	}
	return l
}

// MemoryStore is the in-process Store backing. Buffers persist for the
// process lifetime; nothing is ever evicted.
type MemoryStore struct {
	mu       sync.Mutex
	buffers  map[string]*Buffer
	locks    keyedMutex
	maxTurns int
}

// NewMemoryStore creates an empty in-memory store. maxTurns is passed through
// to buffers created on first access.
func NewMemoryStore(maxTurns int) *MemoryStore {
	return &MemoryStore{
		buffers:  map[string]*Buffer{},
		maxTurns: maxTurns,
	}
}

func (s *MemoryStore) Get(userID string) *Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.buffers[userID]
	if !ok {
		buf = NewBuffer(s.maxTurns)
		s.buffers[userID] = buf
	}
	return buf
}

func (s *MemoryStore) Set(userID string, buf *Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffers[userID] = buf
}

func (s *MemoryStore) Do(userID string, fn func(buf *Buffer) (*Buffer, error)) error {
	l := s.locks.get(userID)
	l.Lock()
	defer l.Unlock()

	next, err := fn(s.Get(userID))
	if err != nil {
		return err
	}
	if next != nil {
		s.Set(userID, next)
	}
	return nil
}

// LRUStore bounds the number of tracked users. The least recently active
// user's buffer is evicted when the bound is exceeded; that user simply
// starts a fresh conversation on their next message.
type LRUStore struct {
	cache    *lru.Cache[string, *Buffer]
	locks    keyedMutex
	maxTurns int
}

// NewLRUStore creates a store holding buffers for at most maxUsers users.
func NewLRUStore(maxUsers, maxTurns int) (*LRUStore, error) {
	cache, err := lru.New[string, *Buffer](maxUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to create prompt cache: %w", err)
	}
	return &LRUStore{cache: cache, maxTurns: maxTurns}, nil
}

func (s *LRUStore) Get(userID string) *Buffer {
	if buf, ok := s.cache.Get(userID); ok {
		return buf
	}
	buf := NewBuffer(s.maxTurns)
	s.cache.Add(userID, buf)
	return buf
}

func (s *LRUStore) Set(userID string, buf *Buffer) {
	s.cache.Add(userID, buf)
}

func (s *LRUStore) Do(userID string, fn func(buf *Buffer) (*Buffer, error)) error {
	l := s.locks.get(userID)
	l.Lock()
	defer l.Unlock()

	next, err := fn(s.Get(userID))
	if err != nil {
		return err
	}
	if next != nil {
		s.Set(userID, next)
	}
	return nil
}
