package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vehicle represents a customer vehicle on file. Plate is the informal
// join key appointments use to refer to it.
type Vehicle struct {
	ID    primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Make  string             `bson:"make" json:"make"`
	Model string             `bson:"model" json:"model"`
	Year  string             `bson:"year" json:"year"`
	Plate string             `bson:"plate" json:"plate"`
}

// VehiclePatch holds the submitted fields of a vehicle edit.
type VehiclePatch struct {
	Make  *string `bson:"make,omitempty" json:"make,omitempty"`
	Model *string `bson:"model,omitempty" json:"model,omitempty"`
	Year  *string `bson:"year,omitempty" json:"year,omitempty"`
	Plate *string `bson:"plate,omitempty" json:"plate,omitempty"`
}

func (v Vehicle) Validate() error {
	return firstError(
		requireText("make", v.Make),
		requireText("model", v.Model),
		requireText("year", v.Year),
		requireText("plate", v.Plate),
	)
}

func (p VehiclePatch) Validate() error {
	return firstError(
		requirePatchText("make", p.Make),
		requirePatchText("model", p.Model),
		requirePatchText("year", p.Year),
		requirePatchText("plate", p.Plate),
	)
}
