package user

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

var ErrUserNotFound = errors.New("user does not exist")

type Repo interface {
	CreateUser(ctx context.Context, user User) (int, error)
	GetUser(ctx context.Context, id int) (User, error)
	GetUserByUid(ctx context.Context, uid string) (User, error)
	GetUserByClerkId(ctx context.Context, clerkId string) (User, error)
	UpdateUser(ctx context.Context, userId int, email string, name string) error
}

type UserRepoImpl struct {
	db *pgxpool.Pool
}

func NewUserRepo(db *pgxpool.Pool) *UserRepoImpl {
	return &UserRepoImpl{db: db}
}

func (u *UserRepoImpl) CreateUser(ctx context.Context, user User) (int, error) {
	query := `INSERT INTO users (uid, clerk_id, email, name, role, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	var id int
	err := u.db.QueryRow(ctx, query,
		user.Uid,
		user.ClerkId,
		user.Email,
		user.Name,
		user.Role,
		user.CreatedAt,
	).Scan(&id)
	if err != nil {
		log.Errorf("failed to create user: %v", err)
		return 0, err
	}
	return id, nil
}

func (u *UserRepoImpl) GetUser(ctx context.Context, id int) (User, error) {
	query := `SELECT id, uid, clerk_id, email, name, role, created_at FROM users WHERE id = $1`
	return u.scanUser(u.db.QueryRow(ctx, query, id))
}

func (u *UserRepoImpl) GetUserByUid(ctx context.Context, uid string) (User, error) {
	query := `SELECT id, uid, clerk_id, email, name, role, created_at FROM users WHERE uid = $1`
	return u.scanUser(u.db.QueryRow(ctx, query, uid))
}

func (u *UserRepoImpl) GetUserByClerkId(ctx context.Context, clerkId string) (User, error) {
	query := `SELECT id, uid, clerk_id, email, name, role, created_at FROM users WHERE clerk_id = $1`
	return u.scanUser(u.db.QueryRow(ctx, query, clerkId))
}

func (u *UserRepoImpl) UpdateUser(ctx context.Context, userId int, email string, name string) error {
	query := `UPDATE users SET email = $2, name = $3 WHERE id = $1`
	tag, err := u.db.Exec(ctx, query, userId, email, name)
	if err != nil {
		log.Errorf("failed to update user %d: %v", userId, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (u *UserRepoImpl) scanUser(row pgx.Row) (User, error) {
	var user User
	var createdAt time.Time
	err := row.Scan(&user.Id, &user.Uid, &user.ClerkId, &user.Email, &user.Name, &user.Role, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		log.Errorf("failed to read user: %v", err)
		return User{}, err
	}
	user.CreatedAt = createdAt
	return user, nil
}
