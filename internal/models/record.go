package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// ResetID clears an id decoded from a create request so the store assigns one.
func (a *Appointment) ResetID() { a.ID = primitive.NilObjectID }
func (c *Customer) ResetID() { c.ID = primitive.NilObjectID }
func (e *Employee) ResetID() { e.ID = primitive.NilObjectID }
func (v *Vehicle) ResetID() { v.ID = primitive.NilObjectID }
func (s *Service) ResetID() { s.ID = primitive.NilObjectID }
func (h *ServiceHead) ResetID() { h.ID = primitive.NilObjectID }
func (l *ServiceLaborer) ResetID() { l.ID = primitive.NilObjectID }
