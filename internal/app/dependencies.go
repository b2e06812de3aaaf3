package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/utsav/utsav/internal/event_bus"
	"github.com/utsav/utsav/pkg/event"
	"github.com/utsav/utsav/pkg/registration"
	"github.com/utsav/utsav/pkg/user"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Bus *event_bus.EventBus

	UserService user.Service
	UserHandler *user.Handler

	EventRepo    event.Repository
	EventService event.Service
	EventHandler *event.Handler

	RegistrationRepo    registration.Repository
	RegistrationService registration.Service
	RegistrationHandler *registration.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool) *Dependencies {
	deps := &Dependencies{}

	deps.Bus = event_bus.NewEventBus()

	deps.UserService = user.NewUserService(user.NewUserRepo(db))
	deps.UserHandler = user.NewHandler(deps.UserService)

	deps.EventRepo = event.NewEventRepo(db)
	deps.EventService = event.NewEventService(deps.EventRepo, deps.Bus)
	deps.EventHandler = event.NewHandler(deps.EventService)

	deps.RegistrationRepo = registration.NewRegistrationRepo(db)
	deps.RegistrationService = registration.NewRegistrationService(deps.RegistrationRepo, deps.Bus)
	deps.RegistrationHandler = registration.NewHandler(deps.RegistrationService)

	SubscribeAuditLog(deps.Bus)

	return deps
}
