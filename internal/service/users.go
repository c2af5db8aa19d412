package service

import (
	"context"
	"strings"
	"time"

	"registration-service/internal/model"
	"registration-service/internal/repository"
)

// UserService orchestrates user directory operations.
type UserService struct {
	directory repository.UserDirectory
	timeout   time.Duration
}

// NewUserService constructs a UserService.
func NewUserService(directory repository.UserDirectory, timeout time.Duration) *UserService {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &UserService{directory: directory, timeout: timeout}
}

// CreateUser validates the display name and creates the user.
func (s *UserService) CreateUser(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	name := strings.TrimSpace(req.Name)
	if err := validateLength("name", name, 1, 200); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.directory.Create(ctx, name)
	if err != nil {
		return nil, classify(err)
	}
	return user, nil
}

// GetUser returns a single user by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, invalidf("user id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.directory.GetByID(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	return user, nil
}
