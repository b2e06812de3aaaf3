package registration

import (
	"errors"
	"time"

	"github.com/utsav/utsav/pkg/event"
	"github.com/utsav/utsav/pkg/user"
)

var ErrRegistrationNotFound = errors.New("registration not found")
var ErrAlreadyRegistered = errors.New("already registered for this event")
var ErrAlreadyCancelled = errors.New("registration already cancelled")
var ErrEventFull = errors.New("event is full")

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsValid() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusCancelled
}

// IsActive reports whether the registration counts toward event capacity.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

type Registration struct {
	Id           int
	Uid          string
	UserId       int
	EventId      int
	EventUid     string
	Status       Status
	RegisteredAt time.Time
	UpdatedAt    time.Time
}

// WithEvent is a registration joined with a snapshot of its event. Event is
// nil when the event has been deleted since.
type WithEvent struct {
	Registration
	Event *event.Event
}

// Details is the admin view: registration joined with event and registrant.
type Details struct {
	Registration
	Event *event.Event
	User  *user.User
}

// Filter narrows ListAll. EventUid takes precedence over Status when both
// are set.
type Filter struct {
	EventUid *string
	Status   *Status
}
