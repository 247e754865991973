package services

import (
	"context"
	"errors"
	"log/slog"

	"task-weather-api/internal/models"
	"task-weather-api/internal/repositories"
)

type CredentialStore interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Verify(ctx context.Context, username, password string) (*models.User, error)
}

type CredentialStoreImpl struct {
	users  repositories.UserRepository
	hasher PasswordHasher
	logger *slog.Logger

	// dummyHash is compared against when the username is unknown so that
	// both failure paths pay for one hash comparison.
	dummyHash string
}

func NewCredentialStore(users repositories.UserRepository, hasher PasswordHasher, logger *slog.Logger) *CredentialStoreImpl {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	dummy, err := hasher.Hash("not-a-real-password")
	if err != nil {
		logger.Warn("could not precompute dummy password hash", "error", err)
	}
	return &CredentialStoreImpl{
		users:     users,
		hasher:    hasher,
		logger:    logger,
		dummyHash: dummy,
	}
}

func (s *CredentialStoreImpl) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.users.FindByUsername(ctx, normalizeUsername(username))
}

func (s *CredentialStoreImpl) Verify(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.users.FindByUsername(ctx, normalizeUsername(username))
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			s.hasher.Compare(s.dummyHash, password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
