package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"roomchat/backend/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrInvalidRegistration = errors.New("invalid registration")
)

var validate = validator.New()

// AccountStore is the slice of storage the account service needs.
type AccountStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

type RegisterRequest struct {
	Username    string `validate:"required,min=3,max=64,alphanum"`
	Password    string `validate:"required,min=8,max=72"`
	DisplayName string `validate:"omitempty,max=128"`
	AvatarURL   string `validate:"omitempty,url"`
}

// Service registers users and logs them in, returning a session token.
type Service struct {
	Store  AccountStore
	Tokens *TokenManager
}

func NewService(store AccountStore, tokens *TokenManager) *Service {
	return &Service{Store: store, Tokens: tokens}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (string, *models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := validate.Struct(req); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidRegistration, err)
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return "", nil, fmt.Errorf("hashing failed: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		AvatarURL:    req.AvatarURL,
		PasswordHash: hash,
	}
	if err := s.Store.CreateUser(ctx, user); err != nil {
		return "", nil, err
	}

	token, err := s.Tokens.Generate(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("token generation: %w", err)
	}
	return token, user, nil
}

func (s *Service) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.Store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", nil, err
	}
	if user == nil {
		return "", nil, ErrInvalidCredentials
	}

	match, err := ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.Tokens.Generate(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("token generation: %w", err)
	}
	return token, user, nil
}
