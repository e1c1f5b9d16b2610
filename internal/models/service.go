package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServiceStatus marks whether a service is currently offered.
type ServiceStatus string

const (
	ServiceActive   ServiceStatus = "active"
	ServiceInactive ServiceStatus = "inactive"
)

func IsValidServiceStatus(status ServiceStatus) bool {
	return status == ServiceActive || status == ServiceInactive
}

// Service represents an offered service such as an oil change.
type Service struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Category    string             `bson:"category" json:"category"`
	Price       float64            `bson:"price" json:"price"`
	Duration    int                `bson:"duration" json:"duration"` // in minutes
	Status      ServiceStatus      `bson:"status" json:"status"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ApplyDefaults marks new services active unless told otherwise.
func (s *Service) ApplyDefaults() {
	if s.Status == "" {
		s.Status = ServiceActive
	}
}

// Validate requires every field of the service form. A zero price or
// duration counts as missing, as it does in the form.
func (s Service) Validate() error {
	if err := firstError(
		requireText("name", s.Name),
		requireText("description", s.Description),
		requireText("category", s.Category),
	); err != nil {
		return err
	}
	if s.Price <= 0 {
		return fmt.Errorf("%w: price must be greater than zero", ErrValidation)
	}
	if s.Duration <= 0 {
		return fmt.Errorf("%w: duration must be greater than zero", ErrValidation)
	}
	if !IsValidServiceStatus(s.Status) {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, s.Status)
	}
	return nil
}

// ServicePatch holds the submitted fields of a service edit. UpdatedAt is
// stamped by the store, not the client.
type ServicePatch struct {
	Name        *string        `bson:"name,omitempty" json:"name,omitempty"`
	Description *string        `bson:"description,omitempty" json:"description,omitempty"`
	Category    *string        `bson:"category,omitempty" json:"category,omitempty"`
	Price       *float64       `bson:"price,omitempty" json:"price,omitempty"`
	Duration    *int           `bson:"duration,omitempty" json:"duration,omitempty"`
	Status      *ServiceStatus `bson:"status,omitempty" json:"status,omitempty"`
}

func (p ServicePatch) Validate() error {
	if err := firstError(
		requirePatchText("name", p.Name),
		requirePatchText("description", p.Description),
		requirePatchText("category", p.Category),
	); err != nil {
		return err
	}
	if p.Price != nil && *p.Price <= 0 {
		return fmt.Errorf("%w: price must be greater than zero", ErrValidation)
	}
	if p.Duration != nil && *p.Duration <= 0 {
		return fmt.Errorf("%w: duration must be greater than zero", ErrValidation)
	}
	if p.Status != nil && !IsValidServiceStatus(*p.Status) {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, *p.Status)
	}
	return nil
}

// ServiceHead links a service to the employee leading it. Nothing checks
// that either id still exists.
type ServiceHead struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ServiceID    string             `bson:"serviceId" json:"serviceId"`
	EmployeeID   string             `bson:"employeeId" json:"employeeId"`
	EmployeeName string             `bson:"employeeName" json:"employeeName"`
	AssignedAt   time.Time          `bson:"assignedAt" json:"assignedAt"`
	Status       ServiceStatus      `bson:"status" json:"status"`
}

func (h *ServiceHead) ApplyDefaults() {
	if h.Status == "" {
		h.Status = ServiceActive
	}
}

func (h ServiceHead) Validate() error {
	if err := firstError(
		requireText("serviceId", h.ServiceID),
		requireText("employeeId", h.EmployeeID),
	); err != nil {
		return err
	}
	if !IsValidServiceStatus(h.Status) {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, h.Status)
	}
	return nil
}

// ServiceLaborer links a service to an employee working on it.
type ServiceLaborer struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ServiceID    string             `bson:"serviceId" json:"serviceId"`
	EmployeeID   string             `bson:"employeeId" json:"employeeId"`
	EmployeeName string             `bson:"employeeName" json:"employeeName"`
	Role         string             `bson:"role" json:"role"`
	AssignedAt   time.Time          `bson:"assignedAt" json:"assignedAt"`
	Status       ServiceStatus      `bson:"status" json:"status"`
}

func (l *ServiceLaborer) ApplyDefaults() {
	if l.Status == "" {
		l.Status = ServiceActive
	}
}

func (l ServiceLaborer) Validate() error {
	if err := firstError(
		requireText("serviceId", l.ServiceID),
		requireText("employeeId", l.EmployeeID),
		requireText("role", l.Role),
	); err != nil {
		return err
	}
	if !IsValidServiceStatus(l.Status) {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, l.Status)
	}
	return nil
}

// AssignmentPatch holds the submitted fields of a head or laborer edit.
// AssignedAt is fixed at creation.
type AssignmentPatch struct {
	ServiceID    *string        `bson:"serviceId,omitempty" json:"serviceId,omitempty"`
	EmployeeID   *string        `bson:"employeeId,omitempty" json:"employeeId,omitempty"`
	EmployeeName *string        `bson:"employeeName,omitempty" json:"employeeName,omitempty"`
	Role         *string        `bson:"role,omitempty" json:"role,omitempty"`
	Status       *ServiceStatus `bson:"status,omitempty" json:"status,omitempty"`
}

func (p AssignmentPatch) Validate() error {
	if err := firstError(
		requirePatchText("serviceId", p.ServiceID),
		requirePatchText("employeeId", p.EmployeeID),
		requirePatchText("role", p.Role),
	); err != nil {
		return err
	}
	if p.Status != nil && !IsValidServiceStatus(*p.Status) {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, *p.Status)
	}
	return nil
}
