package store

import (
	"sort"
	"sync"
)

// MemoryStore keeps everything for the lifetime of the process.
type MemoryStore struct {
	rooms *roomLocks

	mu       sync.RWMutex
	history  map[string][]HistoryEntry
	users    map[string]*User // keyed by normalized email
	payments map[string]*Payment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:    newRoomLocks(),
		history:  make(map[string][]HistoryEntry),
		users:    make(map[string]*User),
		payments: make(map[string]*Payment),
	}
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) AppendHistory(roomID string, entry HistoryEntry) error {
	unlock := s.rooms.lock(roomID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[roomID] = append(s.history[roomID], cloneEntry(entry))
	return nil
}

func (s *MemoryStore) RecentHistory(roomID string, limit int) ([]HistoryEntry, error) {
	unlock := s.rooms.lock(roomID)
	defer unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()
	return tail(s.history[roomID], limit), nil
}

func (s *MemoryStore) PruneHistory(roomID string, keep int) (int, error) {
	unlock := s.rooms.lock(roomID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	log := s.history[roomID]
	kept := tail(log, keep)
	s.history[roomID] = kept
	return len(log) - len(kept), nil
}

func (s *MemoryStore) ListRooms() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]string, 0, len(s.history))
	for id := range s.history {
		rooms = append(rooms, id)
	}
	sort.Strings(rooms)
	return rooms, nil
}

func (s *MemoryStore) GetUserByEmail(email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[normalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) GetUserByID(id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) CreateUser(user *User) error {
	prepareUser(user)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.Email]; exists {
		return ErrUserExists
	}
	cp := *user
	s.users[user.Email] = &cp
	return nil
}

func (s *MemoryStore) CreatePayment(payment *Payment) error {
	preparePayment(payment)

	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *payment
	s.payments[payment.ID] = &cp
	return nil
}

func (s *MemoryStore) GetPayment(id string) (*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func cloneEntry(entry HistoryEntry) HistoryEntry {
	comments := make([]Comment, len(entry.Comments))
	copy(comments, entry.Comments)
	return HistoryEntry{Caption: entry.Caption, Comments: comments}
}
