package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/utsav/utsav/internal/utils"
)

type Service interface {
	GetCurrentUser(ctx context.Context) (User, error)
	GetUserByClerkId(ctx context.Context, clerkId string) (User, error)
	Sync(ctx context.Context, clerkId string, email string, name string) (User, error)
}

type UserServiceImpl struct {
	repo  Repo
	clock utils.Clock
}

func NewUserService(repo Repo) *UserServiceImpl {
	return &UserServiceImpl{repo: repo, clock: &utils.SystemClock{}}
}

func (u *UserServiceImpl) GetCurrentUser(ctx context.Context) (User, error) {
	userId, err := CurrentId(ctx)
	if err != nil {
		return User{}, fmt.Errorf("failed to get current user: %w", err)
	}
	return u.repo.GetUser(ctx, userId)
}

func (u *UserServiceImpl) GetUserByClerkId(ctx context.Context, clerkId string) (User, error) {
	return u.repo.GetUserByClerkId(ctx, clerkId)
}

// Sync provisions the caller from the identity provider: creates the user on
// first sight (role defaults to student) and refreshes email/name afterwards.
func (u *UserServiceImpl) Sync(ctx context.Context, clerkId string, email string, name string) (User, error) {
	existing, err := u.repo.GetUserByClerkId(ctx, clerkId)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return User{}, err
		}
		newUser := User{
			Uid:       uuid.NewString(),
			ClerkId:   clerkId,
			Email:     email,
			Name:      name,
			Role:      RoleStudent,
			CreatedAt: u.clock.Now(),
		}
		id, err := u.repo.CreateUser(ctx, newUser)
		if err != nil {
			return User{}, fmt.Errorf("failed to provision user: %w", err)
		}
		newUser.Id = id
		return newUser, nil
	}

	if existing.Email != email || existing.Name != name {
		if err := u.repo.UpdateUser(ctx, existing.Id, email, name); err != nil {
			return User{}, fmt.Errorf("failed to refresh user: %w", err)
		}
		existing.Email = email
		existing.Name = name
	}
	return existing, nil
}
