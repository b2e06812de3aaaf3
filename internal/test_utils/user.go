package test_utils

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/utsav/utsav/pkg/user"
)

// SeedUser inserts a user row directly, for repository tests that need a
// provisioned student or admin.
func SeedUser(t *testing.T, db *pgxpool.Pool, name string, role user.Role) user.User {
	t.Helper()

	seeded := user.User{
		Uid:       uuid.NewString(),
		ClerkId:   "clerk_" + uuid.NewString(),
		Email:     name + "@uni.edu",
		Name:      name,
		Role:      role,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	err := db.QueryRow(context.Background(),
		`INSERT INTO users (uid, clerk_id, email, name, role, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		seeded.Uid, seeded.ClerkId, seeded.Email, seeded.Name, seeded.Role, seeded.CreatedAt,
	).Scan(&seeded.Id)
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return seeded
}

// StudentContext returns a context carrying a student identity.
func StudentContext(id int) context.Context {
	return user.WithUser(context.Background(), user.User{
		Id:      id,
		Uid:     "student-uid",
		ClerkId: "clerk_student",
		Email:   "student@uni.edu",
		Name:    "Test Student",
		Role:    user.RoleStudent,
	})
}

// AdminContext returns a context carrying an admin identity.
func AdminContext(id int) context.Context {
	return user.WithUser(context.Background(), user.User{
		Id:      id,
		Uid:     "admin-uid",
		ClerkId: "clerk_admin",
		Email:   "admin@uni.edu",
		Name:    "Test Admin",
		Role:    user.RoleAdmin,
	})
}
