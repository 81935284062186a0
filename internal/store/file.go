package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

const (
	roomsDirName     = "rooms"
	usersFileName    = "users.json"
	paymentsFileName = "payments.json"
)

// FileStore persists every collection as a JSON array on disk. Each write
// replaces the whole file through a rename so readers never see a partial log.
type FileStore struct {
	dir   string
	rooms *roomLocks

	// guards users.json and payments.json
	mu sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, roomsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{dir: dir, rooms: newRoomLocks()}, nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) roomPath(roomID string) string {
	return filepath.Join(s.dir, roomsDirName, roomFileName(roomID))
}

func (s *FileStore) AppendHistory(roomID string, entry HistoryEntry) error {
	unlock := s.rooms.lock(roomFileName(roomID))
	defer unlock()

	path := s.roomPath(roomID)
	var log []HistoryEntry
	if err := readJSON(path, &log); err != nil {
		return fmt.Errorf("failed to read history for room %s: %w", roomID, err)
	}
	if entry.Comments == nil {
		entry.Comments = []Comment{}
	}
	log = append(log, entry)
	if err := writeJSON(path, log); err != nil {
		return fmt.Errorf("failed to write history for room %s: %w", roomID, err)
	}
	return nil
}

func (s *FileStore) RecentHistory(roomID string, limit int) ([]HistoryEntry, error) {
	unlock := s.rooms.lock(roomFileName(roomID))
	defer unlock()

	var log []HistoryEntry
	if err := readJSON(s.roomPath(roomID), &log); err != nil {
		return nil, fmt.Errorf("failed to read history for room %s: %w", roomID, err)
	}
	return tail(log, limit), nil
}

func (s *FileStore) PruneHistory(roomID string, keep int) (int, error) {
	unlock := s.rooms.lock(roomFileName(roomID))
	defer unlock()

	path := s.roomPath(roomID)
	var log []HistoryEntry
	if err := readJSON(path, &log); err != nil {
		return 0, fmt.Errorf("failed to read history for room %s: %w", roomID, err)
	}
	kept := tail(log, keep)
	if len(kept) == len(log) {
		return 0, nil
	}
	if err := writeJSON(path, kept); err != nil {
		return 0, fmt.Errorf("failed to write history for room %s: %w", roomID, err)
	}
	return len(log) - len(kept), nil
}

func (s *FileStore) ListRooms() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, roomsDirName))
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	var rooms []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if id, ok := roomIDFromFileName(e.Name()); ok {
			rooms = append(rooms, id)
		}
	}
	sort.Strings(rooms)
	return rooms, nil
}

func (s *FileStore) GetUserByEmail(email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers()
	if err != nil {
		return nil, err
	}
	email = normalizeEmail(email)
	for i := range users {
		if users[i].Email == email {
			return &users[i], nil
		}
	}
	return nil, nil
}

func (s *FileStore) GetUserByID(id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].ID == id {
			return &users[i], nil
		}
	}
	return nil, nil
}

func (s *FileStore) CreateUser(user *User) error {
	prepareUser(user)

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers()
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.Email == user.Email {
			return ErrUserExists
		}
	}
	users = append(users, *user)
	if err := writeJSON(filepath.Join(s.dir, usersFileName), users); err != nil {
		return fmt.Errorf("failed to write users: %w", err)
	}
	return nil
}

func (s *FileStore) loadUsers() ([]User, error) {
	var users []User
	if err := readJSON(filepath.Join(s.dir, usersFileName), &users); err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}
	return users, nil
}

func (s *FileStore) CreatePayment(payment *Payment) error {
	preparePayment(payment)

	s.mu.Lock()
	defer s.mu.Unlock()

	payments, err := s.loadPayments()
	if err != nil {
		return err
	}
	payments = append(payments, *payment)
	if err := writeJSON(filepath.Join(s.dir, paymentsFileName), payments); err != nil {
		return fmt.Errorf("failed to write payments: %w", err)
	}
	return nil
}

func (s *FileStore) GetPayment(id string) (*Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payments, err := s.loadPayments()
	if err != nil {
		return nil, err
	}
	for i := range payments {
		if payments[i].ID == id {
			return &payments[i], nil
		}
	}
	return nil, nil
}

func (s *FileStore) loadPayments() ([]Payment, error) {
	var payments []Payment
	if err := readJSON(filepath.Join(s.dir, paymentsFileName), &payments); err != nil {
		return nil, fmt.Errorf("failed to read payments: %w", err)
	}
	return payments, nil
}

// readJSON leaves v untouched when path does not exist yet.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
