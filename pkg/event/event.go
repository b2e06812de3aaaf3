package event

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

var ErrEventNotFound = errors.New("event not found")
var ErrInvalidEvent = errors.New("invalid event")

type Category string

const (
	CategoryMusic     Category = "Music"
	CategoryDance     Category = "Dance"
	CategoryDrama     Category = "Drama"
	CategoryArt       Category = "Art"
	CategorySports    Category = "Sports"
	CategoryTechnical Category = "Technical"
	CategoryLiterary  Category = "Literary"
	CategoryOther     Category = "Other"
)

var Categories = []Category{
	CategoryMusic,
	CategoryDance,
	CategoryDrama,
	CategoryArt,
	CategorySports,
	CategoryTechnical,
	CategoryLiterary,
	CategoryOther,
}

func (c Category) IsValid() bool {
	for _, category := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Event is a festival event. RegisteredCount is denormalized: it must equal
// the number of non-cancelled registrations after every committed operation.
type Event struct {
	Id              int
	Uid             string
	Name            string
	Description     string
	Category        Category
	Date            string // ISO 8601 date (YYYY-MM-DD)
	Time            string // HH:MM
	Venue           string
	Capacity        int
	RegisteredCount int
	CreatedBy       int
	CreatedByUid    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (e Event) AvailableSpots() int {
	return e.Capacity - e.RegisteredCount
}

func (e Event) IsFull() bool {
	return e.RegisteredCount >= e.Capacity
}

// Fields are the admin-editable attributes of an event. RegisteredCount,
// CreatedBy and CreatedAt are never writable through them.
type Fields struct {
	Name        string
	Description string
	Category    Category
	Date        string
	Time        string
	Venue       string
	Capacity    int
}

var timePattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

func (f Fields) Validate() error {
	if len(f.Name) < 3 || len(f.Name) > 100 {
		return fmt.Errorf("%w: name must be between 3 and 100 characters", ErrInvalidEvent)
	}
	if len(f.Description) < 10 || len(f.Description) > 1000 {
		return fmt.Errorf("%w: description must be between 10 and 1000 characters", ErrInvalidEvent)
	}
	if !f.Category.IsValid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidEvent, f.Category)
	}
	if _, err := time.Parse("2006-01-02", f.Date); err != nil {
		return fmt.Errorf("%w: date must be an ISO 8601 date", ErrInvalidEvent)
	}
	if !timePattern.MatchString(f.Time) {
		return fmt.Errorf("%w: time must be in HH:MM format", ErrInvalidEvent)
	}
	if len(f.Venue) < 3 {
		return fmt.Errorf("%w: venue must be at least 3 characters", ErrInvalidEvent)
	}
	if f.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be a positive integer", ErrInvalidEvent)
	}
	return nil
}
