package registration

import (
	"context"
	"sync"
	"time"

	"github.com/utsav/utsav/pkg/event"
	"github.com/utsav/utsav/pkg/user"
)

// StubRegistrationRepo is an in-memory Repository with the same transactional
// semantics as the SQL implementation. The mutex makes every method an atomic
// unit, so it can also back concurrency tests.
type StubRegistrationRepo struct {
	mu     sync.Mutex
	nextId int
	events map[string]*event.Event
	regs   map[string]*Registration
	users  map[int]user.User
}

func NewStubRegistrationRepo() *StubRegistrationRepo {
	return &StubRegistrationRepo{
		events: map[string]*event.Event{},
		regs:   map[string]*Registration{},
		users:  map[int]user.User{},
	}
}

func (s *StubRegistrationRepo) AddEvent(e event.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.Uid] = &e
}

func (s *StubRegistrationRepo) AddUser(u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.Id] = u
}

// RemoveEvent drops the event record without touching registrations, to
// simulate a registration outliving its deleted event.
func (s *StubRegistrationRepo) RemoveEvent(uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.events, uid)
}

func (s *StubRegistrationRepo) EventSnapshot(uid string) *event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.events[uid]; ok {
		snapshot := *e
		return &snapshot
	}
	return nil
}

func (s *StubRegistrationRepo) Create(ctx context.Context, userId int, uid string, eventUid string, now time.Time) (Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[eventUid]
	if !ok {
		return Registration{}, event.ErrEventNotFound
	}
	for _, reg := range s.regs {
		if reg.UserId == userId && reg.EventUid == eventUid && reg.Status.IsActive() {
			return Registration{}, ErrAlreadyRegistered
		}
	}
	if e.RegisteredCount >= e.Capacity {
		return Registration{}, ErrEventFull
	}

	s.nextId++
	registration := Registration{
		Id:           s.nextId,
		Uid:          uid,
		UserId:       userId,
		EventId:      e.Id,
		EventUid:     eventUid,
		Status:       StatusPending,
		RegisteredAt: now,
		UpdatedAt:    now,
	}
	s.regs[uid] = &registration
	e.RegisteredCount++
	e.UpdatedAt = now
	return registration, nil
}

func (s *StubRegistrationRepo) GetByUid(ctx context.Context, uid string) (*Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reg, ok := s.regs[uid]; ok {
		copied := *reg
		return &copied, nil
	}
	return nil, nil
}

func (s *StubRegistrationRepo) Cancel(ctx context.Context, uid string, now time.Time) (Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.regs[uid]
	if !ok {
		return Registration{}, ErrRegistrationNotFound
	}
	if reg.Status == StatusCancelled {
		return Registration{}, ErrAlreadyCancelled
	}

	reg.Status = StatusCancelled
	reg.UpdatedAt = now
	if e, ok := s.events[reg.EventUid]; ok {
		if e.RegisteredCount > 0 {
			e.RegisteredCount--
		}
		e.UpdatedAt = now
	}
	return *reg, nil
}

func (s *StubRegistrationRepo) SetStatus(ctx context.Context, uid string, status Status, now time.Time) (Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.regs[uid]
	if !ok {
		return Registration{}, ErrRegistrationNotFound
	}

	if e, ok := s.events[reg.EventUid]; ok {
		switch {
		case reg.Status.IsActive() && status == StatusCancelled:
			if e.RegisteredCount > 0 {
				e.RegisteredCount--
			}
			e.UpdatedAt = now
		case reg.Status == StatusCancelled && status.IsActive():
			if e.RegisteredCount >= e.Capacity {
				return Registration{}, ErrEventFull
			}
			e.RegisteredCount++
			e.UpdatedAt = now
		}
	}

	reg.Status = status
	reg.UpdatedAt = now
	return *reg, nil
}

func (s *StubRegistrationRepo) ListByUser(ctx context.Context, userId int) ([]WithEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]WithEvent, 0)
	for _, reg := range s.regs {
		if reg.UserId != userId {
			continue
		}
		result = append(result, WithEvent{Registration: *reg, Event: s.eventCopy(reg.EventUid)})
	}
	return result, nil
}

func (s *StubRegistrationRepo) ListAll(ctx context.Context, filter Filter) ([]Details, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Details, 0)
	for _, reg := range s.regs {
		switch {
		case filter.EventUid != nil:
			if reg.EventUid != *filter.EventUid {
				continue
			}
		case filter.Status != nil:
			if reg.Status != *filter.Status {
				continue
			}
		}
		var registrant *user.User
		if u, ok := s.users[reg.UserId]; ok {
			copied := u
			registrant = &copied
		}
		result = append(result, Details{Registration: *reg, Event: s.eventCopy(reg.EventUid), User: registrant})
	}
	return result, nil
}

func (s *StubRegistrationRepo) eventCopy(uid string) *event.Event {
	if e, ok := s.events[uid]; ok {
		copied := *e
		return &copied
	}
	return nil
}
