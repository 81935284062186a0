package store

import (
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrUserExists = errors.New("user already exists")

const roomFileExt = ".json"

// HistoryStore is the per-room append-only log of generation requests.
type HistoryStore interface {
	AppendHistory(roomID string, entry HistoryEntry) error
	// RecentHistory returns at most limit entries, oldest first.
	RecentHistory(roomID string, limit int) ([]HistoryEntry, error)
	PruneHistory(roomID string, keep int) (int, error)
	ListRooms() ([]string, error)
}

type UserStore interface {
	// GetUserByEmail returns nil, nil when no user matches.
	GetUserByEmail(email string) (*User, error)
	GetUserByID(id string) (*User, error)
	CreateUser(user *User) error
}

type PaymentStore interface {
	CreatePayment(payment *Payment) error
	GetPayment(id string) (*Payment, error)
}

type Store interface {
	HistoryStore
	UserStore
	PaymentStore
	Close() error
}

// roomLocks hands out one mutex per room so appends to the same log serialize
// while different rooms proceed independently.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *roomLocks) lock(roomID string) func() {
	l.mu.Lock()
	m, ok := l.locks[roomID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[roomID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// tail returns the last limit entries of log as a fresh slice.
func tail(log []HistoryEntry, limit int) []HistoryEntry {
	if limit <= 0 || len(log) == 0 {
		return []HistoryEntry{}
	}
	if limit > len(log) {
		limit = len(log)
	}
	out := make([]HistoryEntry, limit)
	copy(out, log[len(log)-limit:])
	return out
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// roomFileName maps a room id onto a file name inside the rooms directory.
// The encoding is reversible so distinct ids never share a file.
func roomFileName(roomID string) string {
	return url.PathEscape(roomID) + roomFileExt
}

func roomIDFromFileName(name string) (string, bool) {
	if !strings.HasSuffix(name, roomFileExt) {
		return "", false
	}
	id, err := url.PathUnescape(strings.TrimSuffix(name, roomFileExt))
	if err != nil {
		return "", false
	}
	return id, true
}

func prepareUser(user *User) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Email = normalizeEmail(user.Email)
}

func preparePayment(payment *Payment) {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}
	if payment.Status == "" {
		payment.Status = PaymentPending
	}
	payment.Email = normalizeEmail(payment.Email)
}
