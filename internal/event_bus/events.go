package event_bus

const (
	EventCreatedType              EventType = "event.created"
	EventDeletedType              EventType = "event.deleted"
	RegistrationCreatedType       EventType = "registration.created"
	RegistrationCancelledType     EventType = "registration.cancelled"
	RegistrationStatusChangedType EventType = "registration.status_changed"
)

type EventCreated struct {
	Uid      string
	Name     string
	Category string
	Capacity int
}

type EventDeleted struct {
	Uid                    string
	CancelledRegistrations int
}

type RegistrationCreated struct {
	Uid      string
	EventUid string
	UserUid  string
}

type RegistrationCancelled struct {
	Uid      string
	EventUid string
	// ByAdmin is true when the cancellation came from moderation rather than
	// the owning student.
	ByAdmin bool
}

type RegistrationStatusChanged struct {
	Uid        string
	EventUid   string
	FromStatus string
	ToStatus   string
}
