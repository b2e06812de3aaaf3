package app

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Event catalog
	r.HandleFunc("/api/event", deps.EventHandler.ListEvents).Methods("GET")
	r.HandleFunc("/api/event", deps.EventHandler.CreateEvent).Methods("POST")
	r.HandleFunc("/api/event/{eventUid}", deps.EventHandler.GetEvent).Methods("GET")
	r.HandleFunc("/api/event/{eventUid}", deps.EventHandler.UpdateEvent).Methods("PUT")
	r.HandleFunc("/api/event/{eventUid}", deps.EventHandler.DeleteEvent).Methods("DELETE")

	// Registrations
	r.HandleFunc("/api/registration", deps.RegistrationHandler.Register).Methods("POST")
	r.HandleFunc("/api/registration", deps.RegistrationHandler.ListMine).Methods("GET")
	r.HandleFunc("/api/registration/all", deps.RegistrationHandler.ListAll).Methods("GET")
	r.HandleFunc("/api/registration/{registrationUid}", deps.RegistrationHandler.Cancel).Methods("DELETE")
	r.HandleFunc("/api/registration/{registrationUid}/status", deps.RegistrationHandler.SetStatus).Methods("PATCH")

	// User management
	r.HandleFunc("/api/user/sync", deps.UserHandler.Sync).Methods("POST")
	r.HandleFunc("/api/user/current", deps.UserHandler.CurrentUser).Methods("GET")
}
