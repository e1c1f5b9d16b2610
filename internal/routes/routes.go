// Package routes wires the HTTP API onto a ServeMux.
package routes

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/service-center/internal/auth"
	"github.com/ukydev/service-center/internal/db"
	"github.com/ukydev/service-center/internal/events"
	"github.com/ukydev/service-center/internal/handlers"
	"github.com/ukydev/service-center/internal/middleware"
	"github.com/ukydev/service-center/internal/models"
	"github.com/ukydev/service-center/internal/storage"
)

// Deps are the services the API is built from. Objects and Publisher may
// be nil.
type Deps struct {
	Stores        *db.Stores
	Auth          *auth.Service
	Objects       storage.ObjectStore
	Publisher     events.Publisher
	Location      *time.Location
	Logger        *log.Logger
	AuthRateLimit int
}

type recordRoutes interface {
	List(http.ResponseWriter, *http.Request)
	Get(http.ResponseWriter, *http.Request)
	Create(http.ResponseWriter, *http.Request)
	Update(http.ResponseWriter, *http.Request)
	Delete(http.ResponseWriter, *http.Request)
}

// NewHandler returns the API with request logging and authentication applied.
func NewHandler(d Deps) http.Handler {
	mux := http.NewServeMux()
	authz := middleware.NewAuthMiddleware(d.Auth)
	Register(mux, authz, d)

	logger := d.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	return middleware.Chain(mux, middleware.RequestLogger(logger), authz.Authenticate)
}

// Register adds every route to mux. Callers must run requests through
// authz.Authenticate first so permission checks see the user's claims.
func Register(mux *http.ServeMux, authz *middleware.AuthMiddleware, d Deps) {
	publisher := d.Publisher
	if publisher == nil {
		publisher = events.Noop{}
	}
	s := d.Stores

	records := map[string]recordRoutes{
		"appointments": handlers.NewRecordHandler[models.Appointment, models.AppointmentPatch](
			db.AppointmentsCollection, s.Appointments, publisher, "vehicle", "customer", "status"),
		"customers": handlers.NewRecordHandler[models.Customer, models.CustomerPatch](
			db.CustomersCollection, s.Customers, publisher, "name", "email"),
		"employees": handlers.NewRecordHandler[models.Employee, models.EmployeePatch](
			db.EmployeesCollection, s.Employees, publisher, "role"),
		"vehicles": handlers.NewRecordHandler[models.Vehicle, models.VehiclePatch](
			db.VehiclesCollection, s.Vehicles, publisher, "plate", "make"),
		"services": handlers.NewRecordHandler[models.Service, models.ServicePatch](
			db.ServicesCollection, s.Services, publisher, "status", "category"),
		"service-heads": handlers.NewRecordHandler[models.ServiceHead, models.AssignmentPatch](
			db.ServiceHeadsCollection, s.ServiceHeads, publisher, "serviceId", "employeeId"),
		"service-laborers": handlers.NewRecordHandler[models.ServiceLaborer, models.AssignmentPatch](
			db.ServiceLaborersCollection, s.ServiceLaborers, publisher, "serviceId", "employeeId"),
	}
	for resource, h := range records {
		registerRecords(mux, authz, resource, h)
	}

	view := authz.RequirePermission(models.ActionViewRecords)
	edit := authz.RequirePermission(models.ActionEditRecords)
	manage := authz.RequirePermission(models.ActionManageUsers)

	shop := handlers.NewShopHandler(s, publisher, d.Location)
	mux.Handle("GET /api/dashboard", view(http.HandlerFunc(shop.Dashboard)))
	mux.Handle("GET /api/vehicles/{id}/history", view(http.HandlerFunc(shop.VehicleHistory)))
	mux.Handle("GET /api/services/{id}/staff", view(http.HandlerFunc(shop.ServiceStaff)))
	mux.Handle("POST /api/appointments/book", edit(http.HandlerFunc(shop.Book)))

	accounts := handlers.NewAuthHandler(d.Auth, s.Users, d.Objects, publisher)
	limit := d.AuthRateLimit
	if limit <= 0 {
		limit = 10
	}
	rateLimit := middleware.NewRateLimitMiddleware().RateLimit(limit, 60)
	mux.Handle("POST /api/auth/signin", rateLimit(http.HandlerFunc(accounts.SignIn)))
	mux.Handle("POST /api/auth/signup", rateLimit(http.HandlerFunc(accounts.SignUp)))
	mux.Handle("POST /api/auth/refresh", rateLimit(http.HandlerFunc(accounts.Refresh)))

	mux.HandleFunc("GET /api/profile", accounts.GetProfile)
	mux.HandleFunc("PUT /api/profile", accounts.UpdateProfile)
	mux.HandleFunc("POST /api/profile/password", accounts.ChangePassword)
	mux.HandleFunc("POST /api/profile/photo", accounts.UploadPhoto)

	mux.Handle("GET /api/users", manage(http.HandlerFunc(accounts.ListUsers)))
	mux.Handle("PATCH /api/users/{id}", manage(http.HandlerFunc(accounts.UpdateUser)))
	mux.Handle("DELETE /api/users/{id}", manage(http.HandlerFunc(accounts.DeleteUser)))

	mux.HandleFunc("GET /health", handlers.Health)
}

func registerRecords(mux *http.ServeMux, authz *middleware.AuthMiddleware, resource string, h recordRoutes) {
	view := authz.RequirePermission(models.ActionViewRecords)
	edit := authz.RequirePermission(models.ActionEditRecords)
	remove := authz.RequirePermission(models.ActionDeleteRecords)

	collection := "/api/" + resource
	item := collection + "/{id}"
	mux.Handle("GET "+collection, view(http.HandlerFunc(h.List)))
	mux.Handle("GET "+item, view(http.HandlerFunc(h.Get)))
	mux.Handle("POST "+collection, edit(http.HandlerFunc(h.Create)))
	mux.Handle("PATCH "+item, edit(http.HandlerFunc(h.Update)))
	mux.Handle("PUT "+item, edit(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE "+item, remove(http.HandlerFunc(h.Delete)))
}
