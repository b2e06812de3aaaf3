package event

import (
	"context"
	"strings"
	"time"
)

type StubEventRepo struct {
	nextId int
	data   map[string]Event
	// CancelledOnDelete is returned as the cascade count by DeleteEvent.
	CancelledOnDelete int
}

func NewStubEventRepo() *StubEventRepo {
	return &StubEventRepo{data: map[string]Event{}}
}

func (s *StubEventRepo) ListEvents(ctx context.Context, category *Category, search string) ([]Event, error) {
	events := make([]Event, 0, len(s.data))
	for _, event := range s.data {
		if category != nil && event.Category != *category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(event.Name), strings.ToLower(search)) {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

func (s *StubEventRepo) GetEvent(ctx context.Context, uid string) (*Event, error) {
	event, ok := s.data[uid]
	if !ok {
		return nil, nil
	}
	return &event, nil
}

func (s *StubEventRepo) CreateEvent(ctx context.Context, event Event) (int, error) {
	s.nextId++
	event.Id = s.nextId
	s.data[event.Uid] = event
	return event.Id, nil
}

func (s *StubEventRepo) UpdateEvent(ctx context.Context, uid string, fields Fields, updatedAt time.Time) (bool, error) {
	event, ok := s.data[uid]
	if !ok {
		return false, nil
	}
	event.Name = fields.Name
	event.Description = fields.Description
	event.Category = fields.Category
	event.Date = fields.Date
	event.Time = fields.Time
	event.Venue = fields.Venue
	event.Capacity = fields.Capacity
	event.UpdatedAt = updatedAt
	s.data[uid] = event
	return true, nil
}

func (s *StubEventRepo) DeleteEvent(ctx context.Context, uid string, now time.Time) (int, bool, error) {
	if _, ok := s.data[uid]; !ok {
		return 0, false, nil
	}
	delete(s.data, uid)
	return s.CancelledOnDelete, true, nil
}
