// Package intake books an appointment for a walk-in, registering the vehicle
// and customer on the way when they are not on file yet.
package intake

import (
	"context"
	"fmt"
	"strings"

	"github.com/ukydev/service-center/internal/db"
	"github.com/ukydev/service-center/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// Steps of a booking, in the order they run.
const (
	StepVehicle     = "vehicle"
	StepCustomer    = "customer"
	StepAppointment = "appointment"
)

// StepError reports which write of a booking failed. Writes from earlier
// steps are not undone.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// BookingRequest carries the intake form. Only the plate and the customer
// name are needed when both are already on file.
type BookingRequest struct {
	Vehicle  models.Vehicle           `json:"vehicle"`
	Customer models.Customer          `json:"customer"`
	Date     string                   `json:"date"`
	Status   models.AppointmentStatus `json:"status"`
}

// Booking reports what a booking wrote.
type Booking struct {
	AppointmentID   string `json:"appointmentId,omitempty"`
	VehicleID       string `json:"vehicleId,omitempty"`
	CustomerID      string `json:"customerId,omitempty"`
	CreatedVehicle  bool   `json:"createdVehicle"`
	CreatedCustomer bool   `json:"createdCustomer"`
}

// Intake runs the booking flow against the record stores.
type Intake struct {
	Vehicles     db.RecordStore[models.Vehicle]
	Customers    db.RecordStore[models.Customer]
	Appointments db.RecordStore[models.Appointment]
}

// New creates an Intake over stores.
func New(stores *db.Stores) *Intake {
	return &Intake{
		Vehicles:     stores.Vehicles,
		Customers:    stores.Customers,
		Appointments: stores.Appointments,
	}
}

// Book makes sure the vehicle and customer exist, then creates the
// appointment. Each write stands on its own: when a later step fails the
// returned Booking still lists what was created before it.
func (in *Intake) Book(ctx context.Context, req BookingRequest) (Booking, error) {
	var booking Booking

	appt := models.Appointment{
		Customer: strings.TrimSpace(req.Customer.Name),
		Vehicle:  strings.TrimSpace(req.Vehicle.Plate),
		Status:   req.Status,
	}
	if req.Date != "" {
		date, err := models.ParseDate(req.Date)
		if err != nil {
			return booking, &StepError{Step: StepAppointment, Err: err}
		}
		appt.Date = date
	}
	appt.ApplyDefaults()
	if err := appt.Validate(); err != nil {
		return booking, &StepError{Step: StepAppointment, Err: err}
	}

	req.Vehicle.ResetID()
	req.Vehicle.Plate = appt.Vehicle
	vehicleID, created, err := ensure(ctx, in.Vehicles, bson.M{"plate": appt.Vehicle}, req.Vehicle, idOfVehicle)
	if err != nil {
		return booking, &StepError{Step: StepVehicle, Err: err}
	}
	booking.VehicleID, booking.CreatedVehicle = vehicleID, created

	req.Customer.ResetID()
	req.Customer.Name = appt.Customer
	customerID, created, err := ensure(ctx, in.Customers, bson.M{"name": appt.Customer}, req.Customer, idOfCustomer)
	if err != nil {
		return booking, &StepError{Step: StepCustomer, Err: err}
	}
	booking.CustomerID, booking.CreatedCustomer = customerID, created

	id, err := in.Appointments.Create(ctx, appt)
	if err != nil {
		return booking, &StepError{Step: StepAppointment, Err: err}
	}
	booking.AppointmentID = id
	return booking, nil
}

type validator interface {
	Validate() error
}

// ensure returns the id of the first record matching filter, creating
// record when nothing matches.
func ensure[T validator](ctx context.Context, store db.RecordStore[T], filter bson.M, record T, idOf func(T) string) (string, bool, error) {
	existing, err := store.List(ctx, filter)
	if err != nil {
		return "", false, err
	}
	if len(existing) > 0 {
		return idOf(existing[0]), false, nil
	}

	if err := record.Validate(); err != nil {
		return "", false, err
	}
	id, err := store.Create(ctx, record)
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func idOfVehicle(v models.Vehicle) string { return v.ID.Hex() }
func idOfCustomer(c models.Customer) string { return c.ID.Hex() }
