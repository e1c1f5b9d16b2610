package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/service-center/internal/dashboard"
	"github.com/ukydev/service-center/internal/db"
	"github.com/ukydev/service-center/internal/db/dbtest"
	"github.com/ukydev/service-center/internal/events"
	"github.com/ukydev/service-center/internal/intake"
	"github.com/ukydev/service-center/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mockStores struct {
	appointments    *dbtest.MockRecords[models.Appointment]
	customers       *dbtest.MockRecords[models.Customer]
	employees       *dbtest.MockRecords[models.Employee]
	vehicles        *dbtest.MockRecords[models.Vehicle]
	services        *dbtest.MockRecords[models.Service]
	serviceHeads    *dbtest.MockRecords[models.ServiceHead]
	serviceLaborers *dbtest.MockRecords[models.ServiceLaborer]
	users           *dbtest.MockUserCollection
}

func newMockStores() (*mockStores, *db.Stores) {
	m := &mockStores{
		appointments:    new(dbtest.MockRecords[models.Appointment]),
		customers:       new(dbtest.MockRecords[models.Customer]),
		employees:       new(dbtest.MockRecords[models.Employee]),
		vehicles:        new(dbtest.MockRecords[models.Vehicle]),
		services:        new(dbtest.MockRecords[models.Service]),
		serviceHeads:    new(dbtest.MockRecords[models.ServiceHead]),
		serviceLaborers: new(dbtest.MockRecords[models.ServiceLaborer]),
		users:           new(dbtest.MockUserCollection),
	}
	return m, &db.Stores{
		Appointments:    m.appointments,
		Customers:       m.customers,
		Employees:       m.employees,
		Vehicles:        m.vehicles,
		Services:        m.services,
		ServiceHeads:    m.serviceHeads,
		ServiceLaborers: m.serviceLaborers,
		Users:           m.users,
	}
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestShopHandler_Dashboard(t *testing.T) {
	m, stores := newMockStores()
	h := NewShopHandler(stores, nil, time.UTC)
	h.now = func() time.Time { return time.Date(2024, 7, 5, 15, 0, 0, 0, time.UTC) }

	m.appointments.On("List", mock.Anything, bson.M(nil)).Return([]models.Appointment{
		{ID: primitive.NewObjectID(), Customer: "Alice Smith", Vehicle: "ABC123", Date: mustDate(t, "2024-07-05"), Status: models.StatusScheduled},
		{ID: primitive.NewObjectID(), Customer: "Bob Johnson", Vehicle: "XYZ789", Date: mustDate(t, "2024-07-04"), Status: models.StatusCompleted},
	}, nil)
	m.vehicles.On("List", mock.Anything, bson.M(nil)).Return([]models.Vehicle{{Plate: "ABC123"}, {Plate: "XYZ789"}}, nil)
	m.customers.On("List", mock.Anything, bson.M(nil)).Return([]models.Customer{{Name: "Alice Smith"}}, nil)
	m.employees.On("List", mock.Anything, bson.M(nil)).Return([]models.Employee{{Name: "Evan", Role: "Mechanic"}}, nil)
	m.services.On("List", mock.Anything, bson.M(nil)).Return([]models.Service{{Name: "Oil Change", Status: models.ServiceActive}}, nil)

	w := serve("GET /api/dashboard", h.Dashboard, httptest.NewRequest("GET", "/api/dashboard", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var summary dashboard.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, "2024-07-05", summary.Date)
	assert.Equal(t, 2, summary.TotalAppointments)
	assert.Equal(t, 1, summary.Today.Total)
	assert.Equal(t, 1, summary.Upcoming)
	assert.Equal(t, 1, summary.ActiveServices)
	require.Len(t, summary.Orphans, 1)
	assert.Equal(t, "Bob Johnson", summary.Orphans[0].Customer)

	w = serve("GET /api/dashboard", h.Dashboard, httptest.NewRequest("GET", "/api/dashboard?date=2024-07-04", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, "2024-07-04", summary.Date)
	assert.Equal(t, 1, summary.Today.ByStatus["Completed"])
}

func TestShopHandler_DashboardErrors(t *testing.T) {
	t.Run("bad date", func(t *testing.T) {
		_, stores := newMockStores()
		h := NewShopHandler(stores, nil, time.UTC)
		w := serve("GET /api/dashboard", h.Dashboard, httptest.NewRequest("GET", "/api/dashboard?date=July", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("one fetch fails", func(t *testing.T) {
		m, stores := newMockStores()
		h := NewShopHandler(stores, nil, time.UTC)
		m.appointments.On("List", mock.Anything, mock.Anything).Return([]models.Appointment{}, nil)
		m.vehicles.On("List", mock.Anything, mock.Anything).Return(nil, errors.New("network unreachable"))
		m.customers.On("List", mock.Anything, mock.Anything).Return([]models.Customer{}, nil)
		m.employees.On("List", mock.Anything, mock.Anything).Return([]models.Employee{}, nil)
		m.services.On("List", mock.Anything, mock.Anything).Return([]models.Service{}, nil)

		w := serve("GET /api/dashboard", h.Dashboard, httptest.NewRequest("GET", "/api/dashboard", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "network unreachable")
	})
}

func TestShopHandler_VehicleHistory(t *testing.T) {
	m, stores := newMockStores()
	h := NewShopHandler(stores, nil, time.UTC)

	id := primitive.NewObjectID()
	m.vehicles.On("FindByID", mock.Anything, id.Hex()).Return(&models.Vehicle{ID: id, Plate: "ABC123"}, nil)
	m.vehicles.On("FindByID", mock.Anything, "missing").Return(nil, db.ErrNotFound)
	m.appointments.On("List", mock.Anything, bson.M{"vehicle": "ABC123"}).Return([]models.Appointment{
		{Customer: "Alice Smith", Vehicle: "ABC123", Status: models.StatusCompleted},
	}, nil)

	w := serve("GET /api/vehicles/{id}/history", h.VehicleHistory, httptest.NewRequest("GET", "/api/vehicles/"+id.Hex()+"/history", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Vehicle      models.Vehicle       `json:"vehicle"`
		Appointments []models.Appointment `json:"appointments"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "ABC123", got.Vehicle.Plate)
	assert.Len(t, got.Appointments, 1)

	w = serve("GET /api/vehicles/{id}/history", h.VehicleHistory, httptest.NewRequest("GET", "/api/vehicles/missing/history", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestShopHandler_ServiceStaff(t *testing.T) {
	m, stores := newMockStores()
	h := NewShopHandler(stores, nil, time.UTC)

	id := primitive.NewObjectID()
	m.services.On("FindByID", mock.Anything, id.Hex()).Return(&models.Service{ID: id, Name: "Brake Repair"}, nil)
	m.serviceHeads.On("List", mock.Anything, bson.M{"serviceId": id.Hex()}).Return([]models.ServiceHead{
		{ServiceID: id.Hex(), EmployeeID: "e1", EmployeeName: "Evan Miller"},
	}, nil)
	m.serviceLaborers.On("List", mock.Anything, bson.M{"serviceId": id.Hex()}).Return([]models.ServiceLaborer{
		{ServiceID: id.Hex(), EmployeeID: "e2", EmployeeName: "George Hall", Role: "Assistant"},
		{ServiceID: id.Hex(), EmployeeID: "e3", EmployeeName: "Fiona Clark", Role: "Mechanic"},
	}, nil)

	w := serve("GET /api/services/{id}/staff", h.ServiceStaff, httptest.NewRequest("GET", "/api/services/"+id.Hex()+"/staff", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Service  models.Service          `json:"service"`
		Heads    []models.ServiceHead    `json:"heads"`
		Laborers []models.ServiceLaborer `json:"laborers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Brake Repair", got.Service.Name)
	assert.Len(t, got.Heads, 1)
	assert.Len(t, got.Laborers, 2)
}

func TestShopHandler_Book(t *testing.T) {
	t.Run("creates missing vehicle", func(t *testing.T) {
		m, stores := newMockStores()
		publisher := &recordingPublisher{}
		h := NewShopHandler(stores, publisher, time.UTC)

		customer := models.Customer{ID: primitive.NewObjectID(), Name: "Alice Smith"}
		m.vehicles.On("List", mock.Anything, bson.M{"plate": "NEW001"}).Return([]models.Vehicle{}, nil)
		m.vehicles.On("Create", mock.Anything, mock.Anything).Return("veh-1", nil)
		m.customers.On("List", mock.Anything, bson.M{"name": "Alice Smith"}).Return([]models.Customer{customer}, nil)
		m.appointments.On("Create", mock.Anything, mock.Anything).Return("appt-1", nil)

		body := `{"vehicle":{"make":"Kia","model":"Rio","year":"2018","plate":"NEW001"},"customer":{"name":"Alice Smith"},"date":"2024-07-08"}`
		w := serve("POST /api/appointments/book", h.Book, httptest.NewRequest("POST", "/api/appointments/book", bytes.NewBufferString(body)))
		require.Equal(t, http.StatusCreated, w.Code)

		var booking intake.Booking
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &booking))
		assert.True(t, booking.CreatedVehicle)
		assert.False(t, booking.CreatedCustomer)
		assert.Equal(t, "appt-1", booking.AppointmentID)

		require.Len(t, publisher.events, 2)
		assert.Equal(t, db.VehiclesCollection, publisher.events[0].Collection)
		assert.Equal(t, db.AppointmentsCollection, publisher.events[1].Collection)
		assert.Equal(t, events.Created, publisher.events[1].Action)
	})

	t.Run("failure reports earlier writes", func(t *testing.T) {
		m, stores := newMockStores()
		publisher := &recordingPublisher{}
		h := NewShopHandler(stores, publisher, time.UTC)

		m.vehicles.On("List", mock.Anything, mock.Anything).Return([]models.Vehicle{}, nil)
		m.vehicles.On("Create", mock.Anything, mock.Anything).Return("veh-1", nil)
		m.customers.On("List", mock.Anything, mock.Anything).Return([]models.Customer{}, nil)
		m.customers.On("Create", mock.Anything, mock.Anything).Return("cus-1", nil)
		m.appointments.On("Create", mock.Anything, mock.Anything).Return("", errors.New("insert failed"))

		body := `{"vehicle":{"make":"Kia","model":"Rio","year":"2018","plate":"NEW001"},"customer":{"name":"New Person","email":"new@example.com","phone":"555"},"date":"2024-07-08"}`
		w := serve("POST /api/appointments/book", h.Book, httptest.NewRequest("POST", "/api/appointments/book", bytes.NewBufferString(body)))
		require.Equal(t, http.StatusInternalServerError, w.Code)

		var got struct {
			Error   string         `json:"error"`
			Step    string         `json:"step"`
			Booking intake.Booking `json:"booking"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, intake.StepAppointment, got.Step)
		assert.Contains(t, got.Error, "insert failed")
		assert.Equal(t, "veh-1", got.Booking.VehicleID)
		assert.Equal(t, "cus-1", got.Booking.CustomerID)
		assert.Len(t, publisher.events, 2)
	})

	t.Run("validation failure", func(t *testing.T) {
		_, stores := newMockStores()
		h := NewShopHandler(stores, nil, time.UTC)

		body := `{"vehicle":{"plate":"NEW001"},"customer":{"name":"Alice Smith"}}`
		w := serve("POST /api/appointments/book", h.Book, httptest.NewRequest("POST", "/api/appointments/book", bytes.NewBufferString(body)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "date is required")
	})
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	Health(w, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
