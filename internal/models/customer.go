package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Customer represents a service center customer. Appointments refer to a
// customer by name only.
type Customer struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name  string             `bson:"name" json:"name"`
	Email string             `bson:"email" json:"email"`
	Phone string             `bson:"phone" json:"phone"`
}

// CustomerPatch holds the submitted fields of a customer edit.
type CustomerPatch struct {
	Name  *string `bson:"name,omitempty" json:"name,omitempty"`
	Email *string `bson:"email,omitempty" json:"email,omitempty"`
	Phone *string `bson:"phone,omitempty" json:"phone,omitempty"`
}

func (c Customer) Validate() error {
	return firstError(
		requireText("name", c.Name),
		requireText("email", c.Email),
		requireText("phone", c.Phone),
	)
}

func (p CustomerPatch) Validate() error {
	return firstError(
		requirePatchText("name", p.Name),
		requirePatchText("email", p.Email),
		requirePatchText("phone", p.Phone),
	)
}
