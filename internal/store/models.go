package store

import "time"

type Comment struct {
	Username string `json:"username"`
	Reply    string `json:"reply"`
}

type HistoryEntry struct {
	Caption  string    `json:"caption"`
	Comments []Comment `json:"comments"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	Credits      int64     `json:"credits"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PublicUser is the part of a user that may leave the service.
type PublicUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Credits   int64     `json:"credits"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Credits:   u.Credits,
		CreatedAt: u.CreatedAt,
	}
}

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
)

type Payment struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	DollarValue float64   `json:"dollarValue"`
	Credits     int64     `json:"credits"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}
