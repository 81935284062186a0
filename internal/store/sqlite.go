package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time, sqlite would otherwise answer "database is locked"
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS history (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        room_id TEXT NOT NULL,
        caption TEXT NOT NULL,
        comments_json TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS idx_history_room ON history (room_id, id);

    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY, -- UUID
        email TEXT UNIQUE NOT NULL,
        name TEXT NOT NULL,
        password_hash TEXT NOT NULL,
        credits INTEGER NOT NULL DEFAULT 0,
        created_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS payments (
        id TEXT PRIMARY KEY, -- UUID
        user_id TEXT NOT NULL,
        email TEXT NOT NULL,
        dollar_value REAL NOT NULL,
        credits INTEGER NOT NULL,
        status TEXT NOT NULL,
        created_at DATETIME NOT NULL,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// History methods
func (s *SQLiteStore) AppendHistory(roomID string, entry HistoryEntry) error {
	if entry.Comments == nil {
		entry.Comments = []Comment{}
	}
	commentsJSON, err := json.Marshal(entry.Comments)
	if err != nil {
		return fmt.Errorf("failed to marshal comments: %w", err)
	}

	_, err = s.db.Exec("INSERT INTO history (room_id, caption, comments_json) VALUES (?, ?, ?)", roomID, entry.Caption, string(commentsJSON))
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecentHistory(roomID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		return []HistoryEntry{}, nil
	}

	query := `
        SELECT caption, comments_json FROM (
            SELECT id, caption, comments_json
            FROM history
            WHERE room_id = ?
            ORDER BY id DESC
            LIMIT ?
        ) ORDER BY id ASC
    `
	rows, err := s.db.Query(query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var entry HistoryEntry
		var commentsJSON string
		if err := rows.Scan(&entry.Caption, &commentsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if err := json.Unmarshal([]byte(commentsJSON), &entry.Comments); err != nil {
			return nil, fmt.Errorf("failed to unmarshal comments: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) PruneHistory(roomID string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.Exec(`
        DELETE FROM history
        WHERE room_id = ? AND id NOT IN (
            SELECT id FROM history WHERE room_id = ? ORDER BY id DESC LIMIT ?
        )`, roomID, roomID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

func (s *SQLiteStore) ListRooms() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT room_id FROM history ORDER BY room_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []string
	for rows.Next() {
		var room string
		if err := rows.Scan(&room); err != nil {
			return nil, fmt.Errorf("failed to scan room row: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// User methods
func (s *SQLiteStore) GetUserByEmail(email string) (*User, error) {
	return s.queryUser("SELECT id, email, name, password_hash, credits, created_at FROM users WHERE email = ?", normalizeEmail(email))
}

func (s *SQLiteStore) GetUserByID(id string) (*User, error) {
	return s.queryUser("SELECT id, email, name, password_hash, credits, created_at FROM users WHERE id = ?", id)
}

func (s *SQLiteStore) queryUser(query string, arg any) (*User, error) {
	var user User
	err := s.db.QueryRow(query, arg).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Credits, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) CreateUser(user *User) error {
	prepareUser(user)

	_, err := s.db.Exec("INSERT INTO users (id, email, name, password_hash, credits, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		user.ID, user.Email, user.Name, user.PasswordHash, user.Credits, user.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrUserExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// Payment methods
func (s *SQLiteStore) CreatePayment(payment *Payment) error {
	preparePayment(payment)

	stmt, err := s.db.Prepare("INSERT INTO payments (id, user_id, email, dollar_value, credits, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare payment insert: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(payment.ID, payment.UserID, payment.Email, payment.DollarValue, payment.Credits, payment.Status, payment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to execute payment insert: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetPayment(id string) (*Payment, error) {
	var p Payment
	err := s.db.QueryRow("SELECT id, user_id, email, dollar_value, credits, status, created_at FROM payments WHERE id = ?", id).
		Scan(&p.ID, &p.UserID, &p.Email, &p.DollarValue, &p.Credits, &p.Status, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &p, nil
}
