package service

import (
	"context"
	"errors"
	"fmt"

	"meowchi_miniapp/internal/model"
	"meowchi_miniapp/internal/repository"
)

const leaderboardSize = 100

type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{
		repo: repo,
	}
}

// RegisterUser creates the account; a returning user only gets the auth
// date refreshed and ErrUserAlreadyExists back.
func (s *UserService) RegisterUser(ctx context.Context, user *model.User) error {
	err := s.repo.CreateUser(ctx, user)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrAlreadyExists) {
		return storageErr(fmt.Errorf("failed to register user: %w", err))
	}

	if err := s.repo.TouchUserAuthDate(ctx, user.TelegramID, user.AuthDate); err != nil {
		return storageErr(fmt.Errorf("failed to update auth date: %w", err))
	}
	return ErrUserAlreadyExists
}

func (s *UserService) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storageErr(fmt.Errorf("failed to get user by telegram ID: %w", err))
	}
	return user, nil
}

func (s *UserService) GetLeaderboard(ctx context.Context) ([]*model.User, error) {
	users, err := s.repo.GetTopUsers(ctx, leaderboardSize)
	if err != nil {
		return nil, storageErr(fmt.Errorf("failed to get top users: %w", err))
	}
	return users, nil
}
