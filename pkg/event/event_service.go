package event

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/utsav/utsav/internal/event_bus"
	"github.com/utsav/utsav/internal/utils"
	"github.com/utsav/utsav/pkg/user"
)

type Service interface {
	ListEvents(ctx context.Context, category *Category, search string) ([]Event, error)
	GetEvent(ctx context.Context, uid string) (*Event, error)
	CreateEvent(ctx context.Context, fields Fields) (Event, error)
	UpdateEvent(ctx context.Context, uid string, fields Fields) (Event, error)
	DeleteEvent(ctx context.Context, uid string) error
}

type ServiceImpl struct {
	repo  Repository
	bus   *event_bus.EventBus
	clock utils.Clock
}

func NewEventService(repo Repository, bus *event_bus.EventBus) *ServiceImpl {
	return &ServiceImpl{repo: repo, bus: bus, clock: &utils.SystemClock{}}
}

// ListEvents returns the public catalog, optionally filtered by category
// and/or a fuzzy name match. Both filters combine with AND.
func (s *ServiceImpl) ListEvents(ctx context.Context, category *Category, search string) ([]Event, error) {
	return s.repo.ListEvents(ctx, category, search)
}

// GetEvent returns nil (not an error) when the event does not exist.
func (s *ServiceImpl) GetEvent(ctx context.Context, uid string) (*Event, error) {
	return s.repo.GetEvent(ctx, uid)
}

func (s *ServiceImpl) CreateEvent(ctx context.Context, fields Fields) (Event, error) {
	admin, err := user.RequireAdmin(ctx)
	if err != nil {
		return Event{}, err
	}
	if err := fields.Validate(); err != nil {
		return Event{}, err
	}

	now := s.clock.Now()
	event := Event{
		Uid:             uuid.NewString(),
		Name:            fields.Name,
		Description:     fields.Description,
		Category:        fields.Category,
		Date:            fields.Date,
		Time:            fields.Time,
		Venue:           fields.Venue,
		Capacity:        fields.Capacity,
		RegisteredCount: 0,
		CreatedBy:       admin.Id,
		CreatedByUid:    admin.Uid,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	id, err := s.repo.CreateEvent(ctx, event)
	if err != nil {
		return Event{}, fmt.Errorf("failed to create event: %w", err)
	}
	event.Id = id

	if err := s.bus.Publish(event_bus.NewEvent(ctx, event_bus.EventCreatedType, event_bus.EventCreated{
		Uid:      event.Uid,
		Name:     event.Name,
		Category: string(event.Category),
		Capacity: event.Capacity,
	})); err != nil {
		log.Warnf("failed to publish event created: %v", err)
	}

	return event, nil
}

func (s *ServiceImpl) UpdateEvent(ctx context.Context, uid string, fields Fields) (Event, error) {
	if _, err := user.RequireAdmin(ctx); err != nil {
		return Event{}, err
	}
	if err := fields.Validate(); err != nil {
		return Event{}, err
	}

	// No guard against lowering capacity below registered_count: the catalog
	// then reports the event as full with negative available spots.
	found, err := s.repo.UpdateEvent(ctx, uid, fields, s.clock.Now())
	if err != nil {
		return Event{}, fmt.Errorf("failed to update event: %w", err)
	}
	if !found {
		return Event{}, ErrEventNotFound
	}

	updated, err := s.repo.GetEvent(ctx, uid)
	if err != nil {
		return Event{}, err
	}
	if updated == nil {
		return Event{}, ErrEventNotFound
	}
	return *updated, nil
}

func (s *ServiceImpl) DeleteEvent(ctx context.Context, uid string) error {
	if _, err := user.RequireAdmin(ctx); err != nil {
		return err
	}

	cancelled, found, err := s.repo.DeleteEvent(ctx, uid, s.clock.Now())
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if !found {
		return ErrEventNotFound
	}

	log.Debugf("deleted event %s, cascade-cancelled %d registrations", uid, cancelled)
	if err := s.bus.Publish(event_bus.NewEvent(ctx, event_bus.EventDeletedType, event_bus.EventDeleted{
		Uid:                    uid,
		CancelledRegistrations: cancelled,
	})); err != nil {
		log.Warnf("failed to publish event deleted: %v", err)
	}
	return nil
}
