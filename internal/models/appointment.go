package models

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AppointmentStatus is the workflow state shown on the appointments board.
type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "Scheduled"
	StatusInProgress AppointmentStatus = "In Progress"
	StatusCompleted  AppointmentStatus = "Completed"
	StatusCancelled  AppointmentStatus = "Cancelled"
)

// AppointmentStatuses lists the statuses in board order.
var AppointmentStatuses = []AppointmentStatus{
	StatusScheduled,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
}

// IsValidAppointmentStatus checks if a status is one of the board statuses
func IsValidAppointmentStatus(status AppointmentStatus) bool {
	switch status {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Appointment represents a booked visit. Customer holds a customer name and
// Vehicle a plate; neither is checked against the other collections.
type Appointment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Customer  string             `bson:"customer" json:"customer"`
	Vehicle   string             `bson:"vehicle" json:"vehicle"`
	Date      time.Time          `bson:"date" json:"date"`
	Status    AppointmentStatus  `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"createdAt,omitempty" json:"createdAt"`
}

// UnmarshalJSON accepts the date as YYYY-MM-DD or RFC 3339.
func (a *Appointment) UnmarshalJSON(data []byte) error {
	type alias Appointment
	aux := struct {
		*alias
		Date string `json:"date"`
	}{alias: (*alias)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Date == "" {
		return nil
	}
	date, err := ParseDate(aux.Date)
	if err != nil {
		return err
	}
	a.Date = date
	return nil
}

// ApplyDefaults fills the status the create form preselects.
func (a *Appointment) ApplyDefaults() {
	if a.Status == "" {
		a.Status = StatusScheduled
	}
}

func (a Appointment) Validate() error {
	if err := firstError(
		requireText("customer", a.Customer),
		requireText("vehicle", a.Vehicle),
	); err != nil {
		return err
	}
	if a.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	if !IsValidAppointmentStatus(a.Status) {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, a.Status)
	}
	return nil
}

// AppointmentPatch holds the submitted fields of an appointment edit.
type AppointmentPatch struct {
	Customer *string            `bson:"customer,omitempty" json:"customer,omitempty"`
	Vehicle  *string            `bson:"vehicle,omitempty" json:"vehicle,omitempty"`
	Date     *time.Time         `bson:"date,omitempty" json:"date,omitempty"`
	Status   *AppointmentStatus `bson:"status,omitempty" json:"status,omitempty"`
}

// UnmarshalJSON accepts the date as YYYY-MM-DD or RFC 3339.
func (p *AppointmentPatch) UnmarshalJSON(data []byte) error {
	type alias AppointmentPatch
	aux := struct {
		*alias
		Date *string `json:"date,omitempty"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Date == nil {
		return nil
	}
	date, err := ParseDate(*aux.Date)
	if err != nil {
		return err
	}
	p.Date = &date
	return nil
}

func (p AppointmentPatch) Validate() error {
	if err := firstError(
		requirePatchText("customer", p.Customer),
		requirePatchText("vehicle", p.Vehicle),
	); err != nil {
		return err
	}
	if p.Status != nil && !IsValidAppointmentStatus(*p.Status) {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, *p.Status)
	}
	return nil
}
