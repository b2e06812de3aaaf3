package registration

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/utsav/utsav/internal/test_utils"
	"github.com/utsav/utsav/pkg/event"
	"github.com/utsav/utsav/pkg/user"
)

var db *pgxpool.Pool

func TestMain(m *testing.M) {
	var cleanup func()
	db, cleanup = test_utils.TestWithDB()
	defer cleanup()
	code := m.Run()
	os.Exit(code)
}

func seedDBEvent(t *testing.T, createdBy int, capacity int) event.Event {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	seeded := event.Event{
		Uid:         uuid.NewString(),
		Name:        "Robo Wars Qualifiers",
		Description: "Combat robotics qualifiers, bring your own bot and batteries.",
		Category:    event.CategoryTechnical,
		Date:        "2026-02-20",
		Time:        "14:00",
		Venue:       "Mechanical Workshop",
		Capacity:    capacity,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	id, err := event.NewEventRepo(db).CreateEvent(context.Background(), seeded)
	if err != nil {
		t.Fatalf("failed to seed event: %v", err)
	}
	seeded.Id = id
	return seeded
}

func eventCount(t *testing.T, uid string) int {
	t.Helper()
	stored, err := event.NewEventRepo(db).GetEvent(context.Background(), uid)
	if err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if stored == nil {
		t.Fatalf("event %s not found", uid)
	}
	return stored.RegisteredCount
}

func TestRepositoryImpl_Create(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistrationRepo(db)
	student := test_utils.SeedUser(t, db, "create-student", user.RoleStudent)
	seeded := seedDBEvent(t, student.Id, 5)

	registration, err := repo.Create(ctx, student.Id, uuid.NewString(), seeded.Uid, time.Now())
	assert.NoError(t, err)
	assert.Equal(t, StatusPending, registration.Status)
	assert.Equal(t, seeded.Id, registration.EventId)
	assert.Equal(t, 1, eventCount(t, seeded.Uid))
}

func TestRepositoryImpl_Create_UnknownEvent(t *testing.T) {
	repo := NewRegistrationRepo(db)
	student := test_utils.SeedUser(t, db, "create-unknown", user.RoleStudent)

	_, err := repo.Create(context.Background(), student.Id, uuid.NewString(), uuid.NewString(), time.Now())
	assert.ErrorIs(t, err, event.ErrEventNotFound)
}

func TestRepositoryImpl_Create_Duplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistrationRepo(db)
	student := test_utils.SeedUser(t, db, "dup-student", user.RoleStudent)
	seeded := seedDBEvent(t, student.Id, 5)

	_, err := repo.Create(ctx, student.Id, uuid.NewString(), seeded.Uid, time.Now())
	assert.NoError(t, err)
	_, err = repo.Create(ctx, student.Id, uuid.NewString(), seeded.Uid, time.Now())
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	assert.Equal(t, 1, eventCount(t, seeded.Uid))
}

func TestRepositoryImpl_Create_Full(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistrationRepo(db)
	first := test_utils.SeedUser(t, db, "full-first", user.RoleStudent)
	second := test_utils.SeedUser(t, db, "full-second", user.RoleStudent)
	seeded := seedDBEvent(t, first.Id, 1)

	_, err := repo.Create(ctx, first.Id, uuid.NewString(), seeded.Uid, time.Now())
	assert.NoError(t, err)
	_, err = repo.Create(ctx, second.Id, uuid.NewString(), seeded.Uid, time.Now())
	assert.ErrorIs(t, err, ErrEventFull)
	assert.Equal(t, 1, eventCount(t, seeded.Uid))
}

func TestRepositoryImpl_Create_Concurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistrationRepo(db)
	first := test_utils.SeedUser(t, db, "race-first", user.RoleStudent)
	second := test_utils.SeedUser(t, db, "race-second", user.RoleStudent)
	seeded := seedDBEvent(t, first.Id, 1)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, u := range []user.User{first, second} {
		wg.Add(1)
		go func(i int, userId int) {
			defer wg.Done()
			_, errs[i] = repo.Create(ctx, userId, uuid.NewString(), seeded.Uid, time.Now())
		}(i, u.Id)
	}
	wg.Wait()

	var successes, fulls int
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrEventFull)
			fulls++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, fulls)
	assert.Equal(t, 1, eventCount(t, seeded.Uid))
}

func TestRepositoryImpl_Cancel(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistrationRepo(db)
	student := test_utils.SeedUser(t, db, "cancel-student", user.RoleStudent)
	seeded := seedDBEvent(t, student.Id, 5)

	registration, err := repo.Create(ctx, student.Id, uuid.NewString(), seeded.Uid, time.Now())
	assert.NoError(t, err)

	cancelled, err := repo.Cancel(ctx, registration.Uid, time.Now())
	assert.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, 0, eventCount(t, seeded.Uid))

	_, err = repo.Cancel(ctx, registration.Uid, time.Now())
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	assert.Equal(t, 0, eventCount(t, seeded.Uid))
}

func TestRepositoryImpl_SetStatus_UncancelAtCapacity(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistrationRepo(db)
	first := test_utils.SeedUser(t, db, "uncancel-first", user.RoleStudent)
	second := test_utils.SeedUser(t, db, "uncancel-second", user.RoleStudent)
	seeded := seedDBEvent(t, first.Id, 1)

	registration, err := repo.Create(ctx, first.Id, uuid.NewString(), seeded.Uid, time.Now())
	assert.NoError(t, err)
	_, err = repo.Cancel(ctx, registration.Uid, time.Now())
	assert.NoError(t, err)
	_, err = repo.Create(ctx, second.Id, uuid.NewString(), seeded.Uid, time.Now())
	assert.NoError(t, err)

	_, err = repo.SetStatus(ctx, registration.Uid, StatusPending, time.Now())
	assert.ErrorIs(t, err, ErrEventFull)

	// The rejected transition must roll back completely.
	unchanged, err := repo.GetByUid(ctx, registration.Uid)
	assert.NoError(t, err)
	assert.Equal(t, StatusCancelled, unchanged.Status)
	assert.Equal(t, 1, eventCount(t, seeded.Uid))
}

func TestRepositoryImpl_SetStatus_Transitions(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistrationRepo(db)
	student := test_utils.SeedUser(t, db, "transitions", user.RoleStudent)
	seeded := seedDBEvent(t, student.Id, 3)

	registration, err := repo.Create(ctx, student.Id, uuid.NewString(), seeded.Uid, time.Now())
	assert.NoError(t, err)

	confirmed, err := repo.SetStatus(ctx, registration.Uid, StatusConfirmed, time.Now())
	assert.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	assert.Equal(t, 1, eventCount(t, seeded.Uid))

	cancelled, err := repo.SetStatus(ctx, registration.Uid, StatusCancelled, time.Now())
	assert.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, 0, eventCount(t, seeded.Uid))

	restored, err := repo.SetStatus(ctx, registration.Uid, StatusPending, time.Now())
	assert.NoError(t, err)
	assert.Equal(t, StatusPending, restored.Status)
	assert.Equal(t, 1, eventCount(t, seeded.Uid))
}

func TestRepositoryImpl_ListByUser(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistrationRepo(db)
	student := test_utils.SeedUser(t, db, "list-mine", user.RoleStudent)
	other := test_utils.SeedUser(t, db, "list-other", user.RoleStudent)
	seeded := seedDBEvent(t, student.Id, 5)

	mineReg, err := repo.Create(ctx, student.Id, uuid.NewString(), seeded.Uid, time.Now())
	assert.NoError(t, err)
	_, err = repo.Create(ctx, other.Id, uuid.NewString(), seeded.Uid, time.Now())
	assert.NoError(t, err)

	mine, err := repo.ListByUser(ctx, student.Id)
	assert.NoError(t, err)
	assert.Len(t, mine, 1)
	assert.Equal(t, mineReg.Uid, mine[0].Uid)
	assert.NotNil(t, mine[0].Event)
	assert.Equal(t, seeded.Uid, mine[0].Event.Uid)
	assert.Equal(t, 2, mine[0].Event.RegisteredCount)
}

func TestRepositoryImpl_ListByUser_AfterEventDeleted(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistrationRepo(db)
	eventRepo := event.NewEventRepo(db)
	student := test_utils.SeedUser(t, db, "list-deleted", user.RoleStudent)
	seeded := seedDBEvent(t, student.Id, 5)

	registration, err := repo.Create(ctx, student.Id, uuid.NewString(), seeded.Uid, time.Now())
	assert.NoError(t, err)

	cancelled, found, err := eventRepo.DeleteEvent(ctx, seeded.Uid, time.Now())
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, cancelled)

	mine, err := repo.ListByUser(ctx, student.Id)
	assert.NoError(t, err)
	assert.Len(t, mine, 1)
	assert.Equal(t, registration.Uid, mine[0].Uid)
	assert.Equal(t, StatusCancelled, mine[0].Status)
	assert.Nil(t, mine[0].Event)
}

func TestRepositoryImpl_ListAll(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistrationRepo(db)
	first := test_utils.SeedUser(t, db, "all-first", user.RoleStudent)
	second := test_utils.SeedUser(t, db, "all-second", user.RoleStudent)
	eventA := seedDBEvent(t, first.Id, 5)
	eventB := seedDBEvent(t, first.Id, 5)

	regA, err := repo.Create(ctx, first.Id, uuid.NewString(), eventA.Uid, time.Now())
	assert.NoError(t, err)
	_, err = repo.Create(ctx, second.Id, uuid.NewString(), eventA.Uid, time.Now())
	assert.NoError(t, err)
	_, err = repo.Create(ctx, first.Id, uuid.NewString(), eventB.Uid, time.Now())
	assert.NoError(t, err)
	_, err = repo.Cancel(ctx, regA.Uid, time.Now())
	assert.NoError(t, err)

	byEvent, err := repo.ListAll(ctx, Filter{EventUid: &eventA.Uid})
	assert.NoError(t, err)
	assert.Len(t, byEvent, 2)
	for _, entry := range byEvent {
		assert.NotNil(t, entry.Event)
		assert.NotNil(t, entry.User)
		assert.Equal(t, eventA.Uid, entry.Event.Uid)
	}

	cancelledStatus := StatusCancelled
	byStatus, err := repo.ListAll(ctx, Filter{EventUid: &eventA.Uid, Status: &cancelledStatus})
	assert.NoError(t, err)
	// EventUid takes precedence, so the status filter is ignored.
	assert.Len(t, byStatus, 2)
}
