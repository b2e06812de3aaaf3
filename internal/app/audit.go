package app

import (
	log "github.com/sirupsen/logrus"
	"github.com/utsav/utsav/internal/event_bus"
)

// SubscribeAuditLog attaches audit logging to the domain events published by
// the event and registration services.
func SubscribeAuditLog(bus *event_bus.EventBus) {
	event_bus.SubscribeTyped(bus, event_bus.EventCreatedType,
		func(e event_bus.EventT[event_bus.EventCreated]) error {
			log.Infof("audit: event %s created (%s, capacity %d)", e.Data.Uid, e.Data.Category, e.Data.Capacity)
			return nil
		})
	event_bus.SubscribeTyped(bus, event_bus.EventDeletedType,
		func(e event_bus.EventT[event_bus.EventDeleted]) error {
			log.Infof("audit: event %s deleted, %d registrations cancelled", e.Data.Uid, e.Data.CancelledRegistrations)
			return nil
		})
	event_bus.SubscribeTyped(bus, event_bus.RegistrationCreatedType,
		func(e event_bus.EventT[event_bus.RegistrationCreated]) error {
			log.Infof("audit: registration %s created for event %s by user %s", e.Data.Uid, e.Data.EventUid, e.Data.UserUid)
			return nil
		})
	event_bus.SubscribeTyped(bus, event_bus.RegistrationCancelledType,
		func(e event_bus.EventT[event_bus.RegistrationCancelled]) error {
			log.Infof("audit: registration %s cancelled (by admin: %t)", e.Data.Uid, e.Data.ByAdmin)
			return nil
		})
	event_bus.SubscribeTyped(bus, event_bus.RegistrationStatusChangedType,
		func(e event_bus.EventT[event_bus.RegistrationStatusChanged]) error {
			log.Infof("audit: registration %s status %s -> %s", e.Data.Uid, e.Data.FromStatus, e.Data.ToStatus)
			return nil
		})
}
