package handlers

import (
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/service-center/internal/dashboard"
	"github.com/ukydev/service-center/internal/db"
	"github.com/ukydev/service-center/internal/events"
	"github.com/ukydev/service-center/internal/intake"
	"github.com/ukydev/service-center/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
)

// ShopHandler serves the views that read or write more than one
// collection: the dashboard, vehicle history, service staff and intake.
type ShopHandler struct {
	stores    *db.Stores
	intake    *intake.Intake
	publisher events.Publisher
	loc       *time.Location
	now       func() time.Time
}

// NewShopHandler creates a ShopHandler. loc decides which calendar day is
// "today" on the dashboard.
func NewShopHandler(stores *db.Stores, publisher events.Publisher, loc *time.Location) *ShopHandler {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &ShopHandler{
		stores:    stores,
		intake:    intake.New(stores),
		publisher: publisher,
		loc:       loc,
		now:       time.Now,
	}
}

// Dashboard returns the dashboard tiles for ?date=YYYY-MM-DD, today by default.
func (h *ShopHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("date")
	if day == "" {
		day = dashboard.Today(h.now(), h.loc)
	} else if _, err := time.Parse("2006-01-02", day); err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	var in dashboard.Input
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		in.Appointments, err = h.stores.Appointments.List(ctx, nil)
		return err
	})
	g.Go(func() (err error) {
		in.Vehicles, err = h.stores.Vehicles.List(ctx, nil)
		return err
	})
	g.Go(func() (err error) {
		in.Customers, err = h.stores.Customers.List(ctx, nil)
		return err
	})
	g.Go(func() (err error) {
		in.Employees, err = h.stores.Employees.List(ctx, nil)
		return err
	})
	g.Go(func() (err error) {
		in.Services, err = h.stores.Services.List(ctx, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		writeError(w, r, "dashboard", err)
		return
	}

	writeJSON(w, http.StatusOK, dashboard.Summarize(in, day))
}

// VehicleHistory lists the appointments booked against a vehicle's plate.
func (h *ShopHandler) VehicleHistory(w http.ResponseWriter, r *http.Request) {
	vehicle, err := h.stores.Vehicles.FindByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "vehicle history", err)
		return
	}

	appts, err := h.stores.Appointments.List(r.Context(), bson.M{"vehicle": vehicle.Plate})
	if err != nil {
		writeError(w, r, "vehicle history", err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Vehicle      *models.Vehicle      `json:"vehicle"`
		Appointments []models.Appointment `json:"appointments"`
	}{vehicle, dashboard.VehicleHistory(appts, vehicle.Plate)})
}

// ServiceStaff returns a service together with its heads and laborers.
func (h *ShopHandler) ServiceStaff(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var (
		service  *models.Service
		heads    []models.ServiceHead
		laborers []models.ServiceLaborer
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		service, err = h.stores.Services.FindByID(ctx, id)
		return err
	})
	g.Go(func() (err error) {
		heads, err = h.stores.ServiceHeads.List(ctx, bson.M{"serviceId": id})
		return err
	})
	g.Go(func() (err error) {
		laborers, err = h.stores.ServiceLaborers.List(ctx, bson.M{"serviceId": id})
		return err
	})
	if err := g.Wait(); err != nil {
		writeError(w, r, "service staff", err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Service  *models.Service         `json:"service"`
		Heads    []models.ServiceHead    `json:"heads"`
		Laborers []models.ServiceLaborer `json:"laborers"`
	}{service, heads, laborers})
}

// Book runs the intake flow. When a step fails the response still reports
// the records written before it, since those writes are kept.
func (h *ShopHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req intake.BookingRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	booking, err := h.intake.Book(r.Context(), req)
	if booking.CreatedVehicle {
		publishChange(r, h.publisher, db.VehiclesCollection, events.Created, booking.VehicleID)
	}
	if booking.CreatedCustomer {
		publishChange(r, h.publisher, db.CustomersCollection, events.Created, booking.CustomerID)
	}
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			log.WithError(err).WithField("booking", booking).Error("Booking failed")
		}
		var stepErr *intake.StepError
		step := ""
		if errors.As(err, &stepErr) {
			step = stepErr.Step
		}
		writeJSON(w, status, struct {
			Error   string         `json:"error"`
			Step    string         `json:"step,omitempty"`
			Booking intake.Booking `json:"booking"`
		}{err.Error(), step, booking})
		return
	}

	publishChange(r, h.publisher, db.AppointmentsCollection, events.Created, booking.AppointmentID)
	writeJSON(w, http.StatusCreated, booking)
}

// Health reports that the process is serving.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
