package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Employee represents a staff member. Service assignment records copy the
// employee's id and name.
type Employee struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name    string             `bson:"name" json:"name"`
	Email   string             `bson:"email" json:"email"`
	Role    string             `bson:"role" json:"role"` // "Mechanic", "Advisor", "Technician", ...
	Phone   string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Skill   string             `bson:"skill,omitempty" json:"skill,omitempty"`
	Address string             `bson:"address,omitempty" json:"address,omitempty"`
}

// EmployeePatch holds the submitted fields of an employee edit.
type EmployeePatch struct {
	Name    *string `bson:"name,omitempty" json:"name,omitempty"`
	Email   *string `bson:"email,omitempty" json:"email,omitempty"`
	Role    *string `bson:"role,omitempty" json:"role,omitempty"`
	Phone   *string `bson:"phone,omitempty" json:"phone,omitempty"`
	Skill   *string `bson:"skill,omitempty" json:"skill,omitempty"`
	Address *string `bson:"address,omitempty" json:"address,omitempty"`
}

func (e Employee) Validate() error {
	return firstError(
		requireText("name", e.Name),
		requireText("email", e.Email),
		requireText("role", e.Role),
	)
}

func (p EmployeePatch) Validate() error {
	return firstError(
		requirePatchText("name", p.Name),
		requirePatchText("email", p.Email),
		requirePatchText("role", p.Role),
	)
}
