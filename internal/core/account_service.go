package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kiraleos/reply-engine/internal/auth"
	"github.com/kiraleos/reply-engine/internal/store"
)

const (
	MinimumPaymentDollars = 5
	MaximumPaymentDollars = 10000
	CreditsPerDollar      = 100
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrMinimumPayment     = fmt.Errorf("Minimum payment is $%d", MinimumPaymentDollars)
	ErrMaximumPayment     = fmt.Errorf("Maximum payment is $%d", MaximumPaymentDollars)
)

type accountStore interface {
	store.UserStore
	store.PaymentStore
}

// AccountService backs the registration, login and payment routes.
type AccountService struct {
	store     accountStore
	jwtSecret string
}

func NewAccountService(s accountStore, jwtSecret string) *AccountService {
	return &AccountService{store: s, jwtSecret: jwtSecret}
}

// Register creates a user and returns it with a fresh token. When the email is
// taken it returns the existing user together with store.ErrUserExists.
func (s *AccountService) Register(email, password, name string) (*store.User, string, error) {
	existing, err := s.store.GetUserByEmail(email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}
	if existing != nil {
		return existing, "", store.ErrUserExists
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}
	if strings.TrimSpace(name) == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	user := &store.User{Email: email, Name: name, PasswordHash: hash}
	if err := s.store.CreateUser(user); err != nil {
		if errors.Is(err, store.ErrUserExists) {
			// lost a race with a concurrent registration
			existing, lookupErr := s.store.GetUserByEmail(email)
			if lookupErr != nil {
				return nil, "", fmt.Errorf("failed to look up user: %w", lookupErr)
			}
			return existing, "", err
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := auth.GenerateJWT(s.jwtSecret, user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}
	return user, token, nil
}

func (s *AccountService) Login(email, password string) (*store.User, string, error) {
	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil || !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := auth.GenerateJWT(s.jwtSecret, user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}
	return user, token, nil
}

// UserFromToken resolves a bearer token to its user; nil, nil when the user no
// longer exists.
func (s *AccountService) UserFromToken(token string) (*store.User, error) {
	userID, err := auth.ValidateJWT(s.jwtSecret, token)
	if err != nil {
		return nil, err
	}
	return s.store.GetUserByID(userID)
}

func (s *AccountService) GetUser(userID string) (*store.User, error) {
	return s.store.GetUserByID(userID)
}

// CreatePayment records a pending payment. The amount bounds are checked
// before anything is looked up or written.
func (s *AccountService) CreatePayment(email string, dollarValue float64) (*store.Payment, error) {
	if err := checkPaymentAmount(dollarValue); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	payment := &store.Payment{
		UserID:      user.ID,
		Email:       user.Email,
		DollarValue: dollarValue,
		Credits:     int64(dollarValue * CreditsPerDollar),
	}
	if err := s.store.CreatePayment(payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	return payment, nil
}

// checkPaymentAmount keeps credits inside int64 range.
func checkPaymentAmount(dollarValue float64) error {
	switch {
	case dollarValue < MinimumPaymentDollars:
		return ErrMinimumPayment
	case dollarValue > MaximumPaymentDollars:
		return ErrMaximumPayment
	}
	return nil
}

func (s *AccountService) GetPayment(id string) (*store.Payment, error) {
	return s.store.GetPayment(id)
}
