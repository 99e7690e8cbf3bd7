package session

import (
	"sync"
)

// Store is the concurrency-safe token -> User mapping shared by every
// request handler. It is the single source of truth for "who is this
// token" inside the process.
//
// Locking is deliberately coarse: one mutex for the whole map, held across
// the lookup-or-insert sequence in GetOrCreate so that concurrent first
// requests for the same brand-new token construct exactly one record.
// Per-key locking would only pay off at record volumes this server never
// sees; the critical section is a cheap map operation and all hub calls
// happen outside it.
type Store struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{users: make(map[string]User)}
}

// Get returns the record for token, if cached.
func (s *Store) Get(token string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[token]
	return u, ok
}

// GetOrCreate returns the cached record for token, or inserts the result of
// build and returns it. The lookup and the conditional insert happen under
// one exclusive lock; build must therefore be cheap and must not block.
//
// created reports whether build ran.
func (s *Store) GetOrCreate(token string, build func() User) (u User, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[token]; ok {
		return u, false
	}
	u = build()
	s.users[token] = u
	return u, true
}

// Put inserts or replaces the record under its own token.
func (s *Store) Put(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Token] = u
}

// Update applies an allow-listed field update to the record for token and
// returns the updated record. Unknown tokens perform no mutation.
func (s *Store) Update(token string, upd Update) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[token]
	if !ok {
		return User{}, false
	}
	u.apply(upd)
	s.users[token] = u
	return u, true
}

// Delete evicts the record for token, reporting whether it existed.
func (s *Store) Delete(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[token]
	delete(s.users, token)
	return ok
}

// Len reports the number of cached records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
