package event

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/utsav/utsav/internal/rest"
	"github.com/utsav/utsav/pkg/user"
)

type EventDTO struct {
	Uid             string `json:"uid"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	Venue           string `json:"venue"`
	Capacity        int    `json:"capacity"`
	RegisteredCount int    `json:"registeredCount"`
	AvailableSpots  int    `json:"availableSpots"`
	IsFull          bool   `json:"isFull"`
	CreatedBy       string `json:"createdBy"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

type EventRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Venue       string `json:"venue"`
	Capacity    int    `json:"capacity"`
}

type Handler struct {
	eventService Service
}

func NewHandler(eventService Service) *Handler {
	return &Handler{eventService}
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	log.Trace("Listing events")

	var category *Category
	if categoryParam := r.URL.Query().Get("category"); categoryParam != "" {
		candidate := Category(categoryParam)
		if !candidate.IsValid() {
			writeError(w, http.StatusBadRequest, "Unknown category", categoryParam)
			return
		}
		category = &candidate
	}
	search := r.URL.Query().Get("search")

	events, err := h.eventService.ListEvents(r.Context(), category, search)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	response := make([]EventDTO, 0, len(events))
	for _, event := range events {
		response = append(response, EventToDTO(event))
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	uid := mux.Vars(r)["eventUid"]
	event, err := h.eventService.GetEvent(r.Context(), uid)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if event == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if err := json.NewEncoder(w).Encode(EventToDTO(*event)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	log.Trace("Creating new event")

	var request EventRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body format", "")
		return
	}

	created, err := h.eventService.CreateEvent(r.Context(), requestToFields(request))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(EventToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	log.Trace("Updating event")

	var request EventRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body format", "")
		return
	}

	uid := mux.Vars(r)["eventUid"]
	updated, err := h.eventService.UpdateEvent(r.Context(), uid, requestToFields(request))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if err := json.NewEncoder(w).Encode(EventToDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	log.Trace("Deleting event")

	uid := mux.Vars(r)["eventUid"]
	if err := h.eventService.DeleteEvent(r.Context(), uid); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, user.ErrNoUser):
		writeError(w, http.StatusUnauthorized, "Authentication required", "")
	case errors.Is(err, user.ErrNotAdmin):
		writeError(w, http.StatusForbidden, "Admin access required", "")
	case errors.Is(err, ErrEventNotFound):
		writeError(w, http.StatusNotFound, "Event not found", "")
	case errors.Is(err, ErrInvalidEvent):
		writeError(w, http.StatusBadRequest, "Invalid event", err.Error())
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

func requestToFields(request EventRequest) Fields {
	return Fields{
		Name:        request.Name,
		Description: request.Description,
		Category:    Category(request.Category),
		Date:        request.Date,
		Time:        request.Time,
		Venue:       request.Venue,
		Capacity:    request.Capacity,
	}
}

// EventToDTO is exported for handlers embedding event snapshots.
func EventToDTO(event Event) EventDTO {
	return EventDTO{
		Uid:             event.Uid,
		Name:            event.Name,
		Description:     event.Description,
		Category:        string(event.Category),
		Date:            event.Date,
		Time:            event.Time,
		Venue:           event.Venue,
		Capacity:        event.Capacity,
		RegisteredCount: event.RegisteredCount,
		AvailableSpots:  event.AvailableSpots(),
		IsFull:          event.IsFull(),
		CreatedBy:       event.CreatedByUid,
		CreatedAt:       event.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       event.UpdatedAt.Format(time.RFC3339),
	}
}
