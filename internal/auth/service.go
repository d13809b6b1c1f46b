package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskdeck/internal/clock"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidUsername    = errors.New("username must be 3-50 characters")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// Service implements the user collaborator contract the task engine
// assumes: authenticate and create, both fail-reportable.
type Service struct {
	repo   *FileRepo
	clk    clock.Clock
	logger *zap.Logger
}

func NewService(repo *FileRepo, clk clock.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, clk: clk, logger: logger}
}

func validateUsername(username string) error {
	n := len([]rune(username))
	if n < 3 || n > 50 {
		return ErrInvalidUsername
	}
	return nil
}

func hashPassword(salt, password string) string {
	sum := sha256.Sum256([]byte(salt + ":" + password))
	return hex.EncodeToString(sum[:])
}

func generateSalt() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

// Authenticate returns the user on a credential match, or
// ErrInvalidCredentials. Unknown username and wrong password are not
// distinguished.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)

	u, ok := s.repo.Get(username)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	want := hashPassword(u.Salt, password)
	if subtle.ConstantTimeCompare([]byte(want), []byte(u.Hash)) != 1 {
		return nil, ErrInvalidCredentials
	}

	pub := u.Public()
	return &pub, nil
}

// Create registers a new user and returns it with credentials stripped.
func (s *Service) Create(ctx context.Context, username, password string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}
	if _, ok := s.repo.Get(username); ok {
		return nil, ErrUsernameTaken
	}

	salt, err := generateSalt()
	if err != nil {
		return nil, err
	}
	u := User{
		ID:        uuid.NewString(),
		Username:  username,
		Salt:      salt,
		Hash:      hashPassword(salt, password),
		CreatedAt: s.clk.Now(),
	}
	if err := s.repo.Put(u); err != nil {
		return nil, err
	}
	s.logger.Info("user created", zap.String("username", username))

	pub := u.Public()
	return &pub, nil
}
