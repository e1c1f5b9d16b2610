package db

import (
	"context"
	"time"

	"github.com/ukydev/service-center/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names, shared with the dashboard's existing data.
const (
	AppointmentsCollection    = "appointments"
	CustomersCollection       = "customers"
	EmployeesCollection       = "employees"
	VehiclesCollection        = "vehicles"
	ServicesCollection        = "services"
	ServiceHeadsCollection    = "serviceHeads"
	ServiceLaborersCollection = "serviceLaborers"
	UsersCollection           = "users"
)

// Stores bundles the record stores the API serves.
type Stores struct {
	Appointments    RecordStore[models.Appointment]
	Customers       RecordStore[models.Customer]
	Employees       RecordStore[models.Employee]
	Vehicles        RecordStore[models.Vehicle]
	Services        RecordStore[models.Service]
	ServiceHeads    RecordStore[models.ServiceHead]
	ServiceLaborers RecordStore[models.ServiceLaborer]
	Users           UserCollection
}

// NewStores wires every record store to its collection in database.
func NewStores(database *mongo.Database) *Stores {
	return &Stores{
		Appointments:    NewAppointmentStore(database.Collection(AppointmentsCollection)),
		Customers:       &MongoRecords[models.Customer]{Collection: database.Collection(CustomersCollection)},
		Employees:       &MongoRecords[models.Employee]{Collection: database.Collection(EmployeesCollection)},
		Vehicles:        &MongoRecords[models.Vehicle]{Collection: database.Collection(VehiclesCollection)},
		Services:        NewServiceStore(database.Collection(ServicesCollection)),
		ServiceHeads:    NewServiceHeadStore(database.Collection(ServiceHeadsCollection)),
		ServiceLaborers: NewServiceLaborerStore(database.Collection(ServiceLaborersCollection)),
		Users:           &MongoUserCollection{Collection: database.Collection(UsersCollection)},
	}
}

// NewAppointmentStore lists appointments by date, oldest first, and stamps
// createdAt on insert.
func NewAppointmentStore(coll *mongo.Collection) *MongoRecords[models.Appointment] {
	return &MongoRecords[models.Appointment]{
		Collection: coll,
		Sort:       bson.D{{Key: "date", Value: 1}},
		OnCreate: func(a *models.Appointment, now time.Time) {
			a.CreatedAt = now
		},
	}
}

// NewServiceStore stamps createdAt/updatedAt on insert and updatedAt on
// every edit.
func NewServiceStore(coll *mongo.Collection) *MongoRecords[models.Service] {
	return &MongoRecords[models.Service]{
		Collection: coll,
		OnCreate: func(s *models.Service, now time.Time) {
			s.CreatedAt = now
			s.UpdatedAt = now
		},
		OnUpdate: func(set bson.M, now time.Time) {
			set["updatedAt"] = now
		},
	}
}

func NewServiceHeadStore(coll *mongo.Collection) *MongoRecords[models.ServiceHead] {
	return &MongoRecords[models.ServiceHead]{
		Collection: coll,
		OnCreate: func(h *models.ServiceHead, now time.Time) {
			h.AssignedAt = now
		},
	}
}

func NewServiceLaborerStore(coll *mongo.Collection) *MongoRecords[models.ServiceLaborer] {
	return &MongoRecords[models.ServiceLaborer]{
		Collection: coll,
		OnCreate: func(l *models.ServiceLaborer, now time.Time) {
			l.AssignedAt = now
		},
	}
}

// EnsureIndexes creates the indexes the API relies on: unique account
// emails, a single first-admin account and the lookup keys used to join
// appointments to other records.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "bootstrap", Value: 1}}, Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"bootstrap": true})},
		},
		AppointmentsCollection: {
			{Keys: bson.D{{Key: "date", Value: 1}}},
			{Keys: bson.D{{Key: "vehicle", Value: 1}}},
		},
		VehiclesCollection: {
			{Keys: bson.D{{Key: "plate", Value: 1}}},
		},
		ServiceHeadsCollection: {
			{Keys: bson.D{{Key: "serviceId", Value: 1}}},
		},
		ServiceLaborersCollection: {
			{Keys: bson.D{{Key: "serviceId", Value: 1}}},
		},
	}
	for name, specs := range indexes {
		if _, err := database.Collection(name).Indexes().CreateMany(ctx, specs); err != nil {
			return err
		}
	}
	return nil
}
