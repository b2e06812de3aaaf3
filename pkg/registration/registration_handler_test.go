package registration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/utsav/utsav/pkg/user"
)

// withIdentity injects the given user into the request context, standing in
// for the identity middleware.
func withIdentity(identity *user.User, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if identity != nil {
			ctx = user.WithUser(ctx, *identity)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func setupHandlerTest(t *testing.T) (*StubRegistrationRepo, *Handler) {
	t.Helper()
	repo := NewStubRegistrationRepo()
	seedEvent(repo, "evt-1", 2)
	handler := NewHandler(newTestService(repo))
	return repo, handler
}

func handlerRouter(handler *Handler, identity *user.User) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/api/registration", handler.Register).Methods("POST")
	router.HandleFunc("/api/registration", handler.ListMine).Methods("GET")
	router.HandleFunc("/api/registration/all", handler.ListAll).Methods("GET")
	router.HandleFunc("/api/registration/{registrationUid}", handler.Cancel).Methods("DELETE")
	router.HandleFunc("/api/registration/{registrationUid}/status", handler.SetStatus).Methods("PATCH")
	router.Use(func(next http.Handler) http.Handler {
		return withIdentity(identity, next)
	})
	return router
}

func TestRegisterHandler(t *testing.T) {
	student := &user.User{Id: 1, Uid: "student-uid", Role: user.RoleStudent}

	t.Run("Creates a registration", func(t *testing.T) {
		_, handler := setupHandlerTest(t)
		router := handlerRouter(handler, student)

		body := bytes.NewBufferString(`{"eventId": "evt-1"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/registration", body)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var dto RegistrationDTO
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&dto))
		assert.NotEmpty(t, dto.Uid)
		assert.Equal(t, "evt-1", dto.EventId)
		assert.Equal(t, "pending", dto.Status)
	})

	t.Run("Missing eventId", func(t *testing.T) {
		_, handler := setupHandlerTest(t)
		router := handlerRouter(handler, student)

		req := httptest.NewRequest(http.MethodPost, "/api/registration", bytes.NewBufferString(`{}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("No identity", func(t *testing.T) {
		_, handler := setupHandlerTest(t)
		router := handlerRouter(handler, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/registration", bytes.NewBufferString(`{"eventId": "evt-1"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Unknown event", func(t *testing.T) {
		_, handler := setupHandlerTest(t)
		router := handlerRouter(handler, student)

		req := httptest.NewRequest(http.MethodPost, "/api/registration", bytes.NewBufferString(`{"eventId": "evt-missing"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Full event", func(t *testing.T) {
		repo, handler := setupHandlerTest(t)
		service := newTestService(repo)
		_, err := service.Register(studentCtx(2), "evt-1")
		assert.NoError(t, err)
		_, err = service.Register(studentCtx(3), "evt-1")
		assert.NoError(t, err)

		router := handlerRouter(handler, student)
		req := httptest.NewRequest(http.MethodPost, "/api/registration", bytes.NewBufferString(`{"eventId": "evt-1"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestCancelHandler(t *testing.T) {
	student := &user.User{Id: 1, Uid: "student-uid", Role: user.RoleStudent}

	t.Run("Cancels own registration", func(t *testing.T) {
		repo, handler := setupHandlerTest(t)
		registration, err := newTestService(repo).Register(studentCtx(1), "evt-1")
		assert.NoError(t, err)

		router := handlerRouter(handler, student)
		req := httptest.NewRequest(http.MethodDelete, "/api/registration/"+registration.Uid, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var dto RegistrationDTO
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&dto))
		assert.Equal(t, "cancelled", dto.Status)
	})

	t.Run("Someone else's registration", func(t *testing.T) {
		repo, handler := setupHandlerTest(t)
		registration, err := newTestService(repo).Register(studentCtx(2), "evt-1")
		assert.NoError(t, err)

		router := handlerRouter(handler, student)
		req := httptest.NewRequest(http.MethodDelete, "/api/registration/"+registration.Uid, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Unknown registration", func(t *testing.T) {
		_, handler := setupHandlerTest(t)
		router := handlerRouter(handler, student)

		req := httptest.NewRequest(http.MethodDelete, "/api/registration/reg-missing", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSetStatusHandler(t *testing.T) {
	admin := &user.User{Id: 99, Uid: "admin-uid", Role: user.RoleAdmin}

	t.Run("Confirms a registration", func(t *testing.T) {
		repo, handler := setupHandlerTest(t)
		registration, err := newTestService(repo).Register(studentCtx(1), "evt-1")
		assert.NoError(t, err)

		router := handlerRouter(handler, admin)
		body := bytes.NewBufferString(`{"status": "confirmed"}`)
		req := httptest.NewRequest(http.MethodPatch, "/api/registration/"+registration.Uid+"/status", body)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var dto RegistrationDTO
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&dto))
		assert.Equal(t, "confirmed", dto.Status)
	})

	t.Run("Unknown status value", func(t *testing.T) {
		_, handler := setupHandlerTest(t)
		router := handlerRouter(handler, admin)

		body := bytes.NewBufferString(`{"status": "waitlisted"}`)
		req := httptest.NewRequest(http.MethodPatch, "/api/registration/reg-1/status", body)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Student identity", func(t *testing.T) {
		student := &user.User{Id: 1, Uid: "student-uid", Role: user.RoleStudent}
		_, handler := setupHandlerTest(t)
		router := handlerRouter(handler, student)

		body := bytes.NewBufferString(`{"status": "confirmed"}`)
		req := httptest.NewRequest(http.MethodPatch, "/api/registration/reg-1/status", body)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestListHandlers(t *testing.T) {
	admin := &user.User{Id: 99, Uid: "admin-uid", Role: user.RoleAdmin}
	student := &user.User{Id: 1, Uid: "student-uid", Role: user.RoleStudent}

	t.Run("ListMine embeds event snapshots", func(t *testing.T) {
		repo, handler := setupHandlerTest(t)
		_, err := newTestService(repo).Register(studentCtx(1), "evt-1")
		assert.NoError(t, err)

		router := handlerRouter(handler, student)
		req := httptest.NewRequest(http.MethodGet, "/api/registration", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var dtos []RegistrationDTO
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&dtos))
		assert.Len(t, dtos, 1)
		assert.NotNil(t, dtos[0].Event)
		assert.Equal(t, "evt-1", dtos[0].Event.Uid)
	})

	t.Run("ListAll requires admin", func(t *testing.T) {
		_, handler := setupHandlerTest(t)
		router := handlerRouter(handler, student)

		req := httptest.NewRequest(http.MethodGet, "/api/registration/all", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("ListAll rejects unknown status filter", func(t *testing.T) {
		_, handler := setupHandlerTest(t)
		router := handlerRouter(handler, admin)

		req := httptest.NewRequest(http.MethodGet, "/api/registration/all?status=waitlisted", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("ListAll embeds registrant details", func(t *testing.T) {
		repo, handler := setupHandlerTest(t)
		repo.AddUser(user.User{Id: 1, Uid: "student-uid", Name: "Test Student", Role: user.RoleStudent})
		_, err := newTestService(repo).Register(studentCtx(1), "evt-1")
		assert.NoError(t, err)

		router := handlerRouter(handler, admin)
		req := httptest.NewRequest(http.MethodGet, "/api/registration/all", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var dtos []RegistrationDTO
		assert.NoError(t, json.NewDecoder(w.Body).Decode(&dtos))
		assert.Len(t, dtos, 1)
		assert.NotNil(t, dtos[0].User)
		assert.Equal(t, "student-uid", dtos[0].User.Uid)
	})
}
