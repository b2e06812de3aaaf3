package registration

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/utsav/utsav/internal/event_bus"
	"github.com/utsav/utsav/internal/utils"
	"github.com/utsav/utsav/pkg/user"
)

type Service interface {
	Register(ctx context.Context, eventUid string) (Registration, error)
	Cancel(ctx context.Context, registrationUid string) (Registration, error)
	ListMine(ctx context.Context) ([]WithEvent, error)
	ListAll(ctx context.Context, filter Filter) ([]Details, error)
	SetStatus(ctx context.Context, registrationUid string, status Status) (Registration, error)
}

type ServiceImpl struct {
	repo  Repository
	bus   *event_bus.EventBus
	clock utils.Clock
}

func NewRegistrationService(repo Repository, bus *event_bus.EventBus) *ServiceImpl {
	return &ServiceImpl{repo: repo, bus: bus, clock: &utils.SystemClock{}}
}

// Register creates a pending registration for the current user and increments
// the event's registered count in the same transactional unit.
func (s *ServiceImpl) Register(ctx context.Context, eventUid string) (Registration, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return Registration{}, fmt.Errorf("failed to get current user: %w", err)
	}

	registration, err := s.repo.Create(ctx, currentUser.Id, uuid.NewString(), eventUid, s.clock.Now())
	if err != nil {
		return Registration{}, err
	}

	if err := s.bus.Publish(event_bus.NewEvent(ctx, event_bus.RegistrationCreatedType, event_bus.RegistrationCreated{
		Uid:      registration.Uid,
		EventUid: registration.EventUid,
		UserUid:  currentUser.Uid,
	})); err != nil {
		log.Warnf("failed to publish registration created: %v", err)
	}
	return registration, nil
}

// Cancel transitions the registration to cancelled. Students may only cancel
// their own registrations; admins may cancel any.
func (s *ServiceImpl) Cancel(ctx context.Context, registrationUid string) (Registration, error) {
	currentUser, err := user.CurrentUser(ctx)
	if err != nil {
		return Registration{}, fmt.Errorf("failed to get current user: %w", err)
	}

	registration, err := s.repo.GetByUid(ctx, registrationUid)
	if err != nil {
		return Registration{}, err
	}
	if registration == nil {
		return Registration{}, ErrRegistrationNotFound
	}
	if registration.UserId != currentUser.Id && !currentUser.IsAdmin() {
		return Registration{}, user.ErrNotAdmin
	}

	cancelled, err := s.repo.Cancel(ctx, registrationUid, s.clock.Now())
	if err != nil {
		return Registration{}, err
	}

	if err := s.bus.Publish(event_bus.NewEvent(ctx, event_bus.RegistrationCancelledType, event_bus.RegistrationCancelled{
		Uid:      cancelled.Uid,
		EventUid: cancelled.EventUid,
		ByAdmin:  registration.UserId != currentUser.Id,
	})); err != nil {
		log.Warnf("failed to publish registration cancelled: %v", err)
	}
	return cancelled, nil
}

// ListMine returns the caller's registrations joined with event snapshots.
// An unauthenticated caller gets an empty list, not an error.
func (s *ServiceImpl) ListMine(ctx context.Context) ([]WithEvent, error) {
	userId, err := user.CurrentId(ctx)
	if err != nil {
		if errors.Is(err, user.ErrNoUser) {
			return []WithEvent{}, nil
		}
		return nil, err
	}
	return s.repo.ListByUser(ctx, userId)
}

func (s *ServiceImpl) ListAll(ctx context.Context, filter Filter) ([]Details, error) {
	if _, err := user.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListAll(ctx, filter)
}

// SetStatus is the admin moderation transition. Un-cancelling re-checks the
// event capacity and fails with ErrEventFull when no spot is left.
func (s *ServiceImpl) SetStatus(ctx context.Context, registrationUid string, status Status) (Registration, error) {
	if _, err := user.RequireAdmin(ctx); err != nil {
		return Registration{}, err
	}
	if !status.IsValid() {
		return Registration{}, fmt.Errorf("unknown registration status %q", status)
	}

	previous, err := s.repo.GetByUid(ctx, registrationUid)
	if err != nil {
		return Registration{}, err
	}
	if previous == nil {
		return Registration{}, ErrRegistrationNotFound
	}

	updated, err := s.repo.SetStatus(ctx, registrationUid, status, s.clock.Now())
	if err != nil {
		return Registration{}, err
	}

	if err := s.bus.Publish(event_bus.NewEvent(ctx, event_bus.RegistrationStatusChangedType, event_bus.RegistrationStatusChanged{
		Uid:        updated.Uid,
		EventUid:   updated.EventUid,
		FromStatus: string(previous.Status),
		ToStatus:   string(updated.Status),
	})); err != nil {
		log.Warnf("failed to publish registration status change: %v", err)
	}
	return updated, nil
}
