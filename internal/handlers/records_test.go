package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/service-center/internal/db"
	"github.com/ukydev/service-center/internal/db/dbtest"
	"github.com/ukydev/service-center/internal/events"
	"github.com/ukydev/service-center/internal/middleware"
	"github.com/ukydev/service-center/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// recordingPublisher keeps every event it is handed.
type recordingPublisher struct {
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() {}

func strPtr(s string) *string { return &s }

// serve routes req through a mux so path values are populated.
func serve(pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestRecordHandler_List(t *testing.T) {
	store := new(dbtest.MockRecords[models.Appointment])
	h := NewRecordHandler[models.Appointment, models.AppointmentPatch]("appointments", store, nil, "vehicle", "status")

	appts := []models.Appointment{{ID: primitive.NewObjectID(), Customer: "Alice Smith", Vehicle: "ABC123", Status: models.StatusScheduled}}
	store.On("List", mock.Anything, bson.M{"vehicle": "ABC123"}).Return(appts, nil)

	req := httptest.NewRequest("GET", "/api/appointments?vehicle=ABC123&ignored=x", nil)
	w := serve("GET /api/appointments", h.List, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got []models.Appointment
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 1)
	assert.Equal(t, "ABC123", got[0].Vehicle)
	store.AssertExpectations(t)
}

func TestRecordHandler_ListStoreError(t *testing.T) {
	store := new(dbtest.MockRecords[models.Vehicle])
	h := NewRecordHandler[models.Vehicle, models.VehiclePatch]("vehicles", store, nil)
	store.On("List", mock.Anything, bson.M{}).Return(nil, errors.New("server selection timeout"))

	w := serve("GET /api/vehicles", h.List, httptest.NewRequest("GET", "/api/vehicles", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "server selection timeout")
}

func TestRecordHandler_Get(t *testing.T) {
	store := new(dbtest.MockRecords[models.Customer])
	h := NewRecordHandler[models.Customer, models.CustomerPatch]("customers", store, nil)

	id := primitive.NewObjectID()
	store.On("FindByID", mock.Anything, id.Hex()).Return(&models.Customer{ID: id, Name: "Bob Johnson"}, nil)
	store.On("FindByID", mock.Anything, "missing").Return(nil, db.ErrInvalidID)

	w := serve("GET /api/customers/{id}", h.Get, httptest.NewRequest("GET", "/api/customers/"+id.Hex(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Bob Johnson"`)

	w = serve("GET /api/customers/{id}", h.Get, httptest.NewRequest("GET", "/api/customers/missing", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordHandler_Create(t *testing.T) {
	t.Run("appointment gets default status", func(t *testing.T) {
		store := new(dbtest.MockRecords[models.Appointment])
		publisher := &recordingPublisher{}
		h := NewRecordHandler[models.Appointment, models.AppointmentPatch]("appointments", store, publisher)

		store.On("Create", mock.Anything, mock.MatchedBy(func(a models.Appointment) bool {
			return a.Status == models.StatusScheduled && a.Date.Format("2006-01-02") == "2024-07-05"
		})).Return("new-id", nil)

		body := `{"customer":"Alice Smith","vehicle":"ABC123","date":"2024-07-05"}`
		req := httptest.NewRequest("POST", "/api/appointments", bytes.NewBufferString(body))
		req = req.WithContext(middleware.WithClaims(req.Context(), &models.Claims{UserID: "user-1", Role: models.RoleStaff}))
		w := serve("POST /api/appointments", h.Create, req)

		require.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{"id":"new-id"}`, w.Body.String())
		require.Len(t, publisher.events, 1)
		assert.Equal(t, events.Created, publisher.events[0].Action)
		assert.Equal(t, "appointments", publisher.events[0].Collection)
		assert.Equal(t, "new-id", publisher.events[0].ID)
		assert.Equal(t, "user-1", publisher.events[0].Actor)
	})

	t.Run("client id is ignored", func(t *testing.T) {
		store := new(dbtest.MockRecords[models.Vehicle])
		h := NewRecordHandler[models.Vehicle, models.VehiclePatch]("vehicles", store, nil)
		store.On("Create", mock.Anything, mock.MatchedBy(func(v models.Vehicle) bool {
			return v.ID.IsZero() && v.Plate == "TRK456"
		})).Return("server-id", nil)

		body := `{"id":"64b7f0c2a1b2c3d4e5f60718","make":"Ford","model":"F-150","year":"2021","plate":"TRK456"}`
		w := serve("POST /api/vehicles", h.Create, httptest.NewRequest("POST", "/api/vehicles", bytes.NewBufferString(body)))

		require.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{"id":"server-id"}`, w.Body.String())
		store.AssertExpectations(t)
	})

	t.Run("service without description", func(t *testing.T) {
		store := new(dbtest.MockRecords[models.Service])
		h := NewRecordHandler[models.Service, models.ServicePatch]("services", store, nil)

		w := serve("POST /api/services", h.Create, httptest.NewRequest("POST", "/api/services", bytes.NewBufferString(`{"name":"Oil"}`)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("laborer without role", func(t *testing.T) {
		store := new(dbtest.MockRecords[models.ServiceLaborer])
		h := NewRecordHandler[models.ServiceLaborer, models.AssignmentPatch]("serviceLaborers", store, nil)

		body := `{"serviceId":"s","employeeId":"e"}`
		w := serve("POST /api/service-laborers", h.Create, httptest.NewRequest("POST", "/api/service-laborers", bytes.NewBufferString(body)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "role")
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("missing required field", func(t *testing.T) {
		store := new(dbtest.MockRecords[models.Vehicle])
		h := NewRecordHandler[models.Vehicle, models.VehiclePatch]("vehicles", store, nil)

		body := `{"make":"Toyota","model":"Camry","year":"2020"}`
		w := serve("POST /api/vehicles", h.Create, httptest.NewRequest("POST", "/api/vehicles", bytes.NewBufferString(body)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "plate")
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("invalid json", func(t *testing.T) {
		store := new(dbtest.MockRecords[models.Vehicle])
		h := NewRecordHandler[models.Vehicle, models.VehiclePatch]("vehicles", store, nil)

		w := serve("POST /api/vehicles", h.Create, httptest.NewRequest("POST", "/api/vehicles", bytes.NewBufferString("{bad json")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid JSON")
	})

	t.Run("bad date", func(t *testing.T) {
		store := new(dbtest.MockRecords[models.Appointment])
		h := NewRecordHandler[models.Appointment, models.AppointmentPatch]("appointments", store, nil)

		body := `{"customer":"Alice Smith","vehicle":"ABC123","date":"next tuesday"}`
		w := serve("POST /api/appointments", h.Create, httptest.NewRequest("POST", "/api/appointments", bytes.NewBufferString(body)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid date")
	})

	t.Run("publish failure does not fail the write", func(t *testing.T) {
		store := new(dbtest.MockRecords[models.Customer])
		publisher := &recordingPublisher{err: errors.New("broker down")}
		h := NewRecordHandler[models.Customer, models.CustomerPatch]("customers", store, publisher)
		store.On("Create", mock.Anything, mock.Anything).Return("c-1", nil)

		body := `{"name":"Diana King","email":"diana@example.com","phone":"555-0000"}`
		w := serve("POST /api/customers", h.Create, httptest.NewRequest("POST", "/api/customers", bytes.NewBufferString(body)))
		assert.Equal(t, http.StatusCreated, w.Code)
	})
}

func TestRecordHandler_Update(t *testing.T) {
	id := primitive.NewObjectID().Hex()

	t.Run("only submitted fields are passed on", func(t *testing.T) {
		store := new(dbtest.MockRecords[models.Vehicle])
		publisher := &recordingPublisher{}
		h := NewRecordHandler[models.Vehicle, models.VehiclePatch]("vehicles", store, publisher)

		store.On("Update", mock.Anything, id, models.VehiclePatch{Plate: strPtr("NEW001")}).Return(nil)

		req := httptest.NewRequest("PATCH", "/api/vehicles/"+id, bytes.NewBufferString(`{"plate":"NEW001"}`))
		w := serve("PATCH /api/vehicles/{id}", h.Update, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Record updated successfully")
		require.Len(t, publisher.events, 1)
		assert.Equal(t, events.Updated, publisher.events[0].Action)
		store.AssertExpectations(t)
	})

	t.Run("blank required field", func(t *testing.T) {
		store := new(dbtest.MockRecords[models.Vehicle])
		h := NewRecordHandler[models.Vehicle, models.VehiclePatch]("vehicles", store, nil)

		req := httptest.NewRequest("PATCH", "/api/vehicles/"+id, bytes.NewBufferString(`{"plate":"  "}`))
		w := serve("PATCH /api/vehicles/{id}", h.Update, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	tests := []struct {
		name     string
		storeErr error
		want     int
	}{
		{"unknown id", db.ErrNotFound, http.StatusNotFound},
		{"empty patch", db.ErrNoFields, http.StatusBadRequest},
		{"database failure", errors.New("write conflict"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(dbtest.MockRecords[models.Customer])
			publisher := &recordingPublisher{}
			h := NewRecordHandler[models.Customer, models.CustomerPatch]("customers", store, publisher)
			store.On("Update", mock.Anything, id, mock.Anything).Return(tt.storeErr)

			req := httptest.NewRequest("PUT", "/api/customers/"+id, bytes.NewBufferString(`{}`))
			w := serve("PUT /api/customers/{id}", h.Update, req)
			assert.Equal(t, tt.want, w.Code)
			assert.Empty(t, publisher.events)
		})
	}
}

func TestRecordHandler_Delete(t *testing.T) {
	store := new(dbtest.MockRecords[models.Service])
	publisher := &recordingPublisher{}
	h := NewRecordHandler[models.Service, models.ServicePatch]("services", store, publisher)

	id := primitive.NewObjectID().Hex()
	store.On("Delete", mock.Anything, id).Return(nil)
	store.On("Delete", mock.Anything, "gone").Return(db.ErrNotFound)

	w := serve("DELETE /api/services/{id}", h.Delete, httptest.NewRequest("DELETE", "/api/services/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, events.Deleted, publisher.events[0].Action)

	w = serve("DELETE /api/services/{id}", h.Delete, httptest.NewRequest("DELETE", "/api/services/gone", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Len(t, publisher.events, 1)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(db.ErrNotFound))
	assert.Equal(t, http.StatusBadRequest, statusFor(db.ErrInvalidID))
	assert.Equal(t, http.StatusBadRequest, statusFor(db.ErrNoFields))
	assert.Equal(t, http.StatusBadRequest, statusFor(models.ErrValidation))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
