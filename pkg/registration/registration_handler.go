package registration

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/utsav/utsav/internal/rest"
	"github.com/utsav/utsav/pkg/event"
	"github.com/utsav/utsav/pkg/user"
)

type RegistrationDTO struct {
	Uid          string          `json:"uid"`
	EventId      string          `json:"eventId"`
	Status       string          `json:"status"`
	RegisteredAt string          `json:"registeredAt"`
	UpdatedAt    string          `json:"updatedAt"`
	Event        *event.EventDTO `json:"event,omitempty"`
	User         *user.UserDTO   `json:"user,omitempty"`
}

type Handler struct {
	registrationService Service
}

func NewHandler(registrationService Service) *Handler {
	return &Handler{registrationService}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	log.Trace("Registering for event")

	var registerRequest struct {
		EventId string `json:"eventId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&registerRequest); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body format", "")
		return
	}
	if registerRequest.EventId == "" {
		writeError(w, http.StatusBadRequest, "Missing 'eventId' in request body", "")
		return
	}

	registration, err := h.registrationService.Register(r.Context(), registerRequest.EventId)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(registrationToDTO(registration)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	log.Trace("Cancelling registration")

	uid := mux.Vars(r)["registrationUid"]
	cancelled, err := h.registrationService.Cancel(r.Context(), uid)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if err := json.NewEncoder(w).Encode(registrationToDTO(cancelled)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	registrations, err := h.registrationService.ListMine(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	response := make([]RegistrationDTO, 0, len(registrations))
	for _, registration := range registrations {
		dto := registrationToDTO(registration.Registration)
		if registration.Event != nil {
			eventDTO := event.EventToDTO(*registration.Event)
			dto.Event = &eventDTO
		}
		response = append(response, dto)
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var filter Filter
	if eventId := r.URL.Query().Get("eventId"); eventId != "" {
		filter.EventUid = &eventId
	}
	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		status := Status(statusParam)
		if !status.IsValid() {
			writeError(w, http.StatusBadRequest, "Unknown registration status", statusParam)
			return
		}
		filter.Status = &status
	}

	registrations, err := h.registrationService.ListAll(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	response := make([]RegistrationDTO, 0, len(registrations))
	for _, registration := range registrations {
		dto := registrationToDTO(registration.Registration)
		if registration.Event != nil {
			eventDTO := event.EventToDTO(*registration.Event)
			dto.Event = &eventDTO
		}
		if registration.User != nil {
			userDTO := user.UserToDTO(*registration.User)
			dto.User = &userDTO
		}
		response = append(response, dto)
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	log.Trace("Updating registration status")

	var statusRequest struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&statusRequest); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body format", "")
		return
	}
	status := Status(statusRequest.Status)
	if !status.IsValid() {
		writeError(w, http.StatusBadRequest, "Unknown registration status", statusRequest.Status)
		return
	}

	uid := mux.Vars(r)["registrationUid"]
	updated, err := h.registrationService.SetStatus(r.Context(), uid, status)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if err := json.NewEncoder(w).Encode(registrationToDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrNoUser):
		writeError(w, http.StatusUnauthorized, "Authentication required", "")
	case errors.Is(err, user.ErrNotAdmin):
		writeError(w, http.StatusForbidden, "Access denied", "")
	case errors.Is(err, ErrRegistrationNotFound):
		writeError(w, http.StatusNotFound, "Registration not found", "")
	case errors.Is(err, event.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "Event not found", "")
	case errors.Is(err, ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, "Already registered for this event", "")
	case errors.Is(err, ErrAlreadyCancelled):
		writeError(w, http.StatusConflict, "Registration already cancelled", "")
	case errors.Is(err, ErrEventFull):
		writeError(w, http.StatusConflict, "Event is full", "")
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string, details string) {
	w.WriteHeader(status)
	encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
		Error:   message,
		Details: details,
	})
	if encodeErr != nil {
		http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
	}
}

func registrationToDTO(registration Registration) RegistrationDTO {
	return RegistrationDTO{
		Uid:          registration.Uid,
		EventId:      registration.EventUid,
		Status:       string(registration.Status),
		RegisteredAt: registration.RegisteredAt.Format(time.RFC3339),
		UpdatedAt:    registration.UpdatedAt.Format(time.RFC3339),
	}
}
