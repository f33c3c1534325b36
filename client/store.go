package client

import "sync"

// User is the wire shape of an account as the API returns it.
type User struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	IsVerified  bool   `json:"isVerified"`
	LastLoginAt string `json:"lastLogin,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// State is the session mirror the presentation layer reads. It is advisory
// only, the server remains the source of truth and protected views should
// re-validate through CheckAuth.
type State struct {
	User            *User
	IsAuthenticated bool
	IsLoading       bool
	IsCheckingAuth  bool
	Error           string
	Message         string
}

// Listener observes store changes.
type Listener func(State)

// Store holds the client-side session mirror. Implementations must be safe
// for concurrent use.
type Store interface {
	State() State
	Update(mutate func(*State))
	Subscribe(listener Listener) (unsubscribe func())
}

// MemoryStore is the default in-process Store.
type MemoryStore struct {
	mu        sync.RWMutex
	state     State
	listeners map[int]Listener
	nextID    int
}

// NewMemoryStore creates an empty, anonymous session mirror.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		listeners: map[int]Listener{},
	}
}

func (s *MemoryStore) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *MemoryStore) Update(mutate func(*State)) {
	if mutate == nil {
		return
	}

	s.mu.Lock()
	mutate(&s.state)
	next := s.state
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
}

func (s *MemoryStore) Subscribe(listener Listener) func() {
	if listener == nil {
		return func() {}
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

var _ Store = (*MemoryStore)(nil)
