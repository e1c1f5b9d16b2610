// Package dashboard computes the dashboard tiles from already-fetched
// records. Nothing here touches the database or is persisted.
package dashboard

import (
	"time"

	"github.com/ukydev/service-center/internal/models"
)

const dayLayout = "2006-01-02"

// Input is a snapshot of the collections the dashboard reads.
type Input struct {
	Appointments []models.Appointment
	Vehicles     []models.Vehicle
	Customers    []models.Customer
	Employees    []models.Employee
	Services     []models.Service
}

// DayCounts counts appointments on one calendar day.
type DayCounts struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
}

// Orphan is an appointment whose customer name or vehicle plate matches no
// record. Orphans are reported, never rejected.
type Orphan struct {
	AppointmentID   string `json:"appointmentId"`
	Customer        string `json:"customer"`
	Vehicle         string `json:"vehicle"`
	MissingCustomer bool   `json:"missingCustomer"`
	MissingVehicle  bool   `json:"missingVehicle"`
}

// Summary is the payload behind the dashboard tiles.
type Summary struct {
	Date              string         `json:"date"`
	TotalAppointments int            `json:"totalAppointments"`
	ByStatus          map[string]int `json:"byStatus"`
	Today             DayCounts      `json:"today"`
	Upcoming          int            `json:"upcoming"`
	Customers         int            `json:"customers"`
	Vehicles          int            `json:"vehicles"`
	Employees         int            `json:"employees"`
	EmployeesByRole   map[string]int `json:"employeesByRole"`
	ActiveServices    int            `json:"activeServices"`
	InactiveServices  int            `json:"inactiveServices"`
	Orphans           []Orphan       `json:"orphans"`
}

// DayKey is the calendar day an appointment falls on. Appointment dates are
// day-granular and stored as midnight UTC, so the UTC date is the booked date.
func DayKey(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// Today returns the calendar date of now in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc).Format(dayLayout)
}

// Summarize computes the dashboard tiles for day, a YYYY-MM-DD calendar date.
func Summarize(in Input, day string) Summary {
	summary := Summary{
		Date:              day,
		TotalAppointments: len(in.Appointments),
		ByStatus:          emptyStatusCounts(),
		Today:             DayCounts{ByStatus: emptyStatusCounts()},
		Customers:         len(in.Customers),
		Vehicles:          len(in.Vehicles),
		Employees:         len(in.Employees),
		EmployeesByRole:   map[string]int{},
		Orphans:           Orphans(in.Appointments, in.Vehicles, in.Customers),
	}

	for _, appt := range in.Appointments {
		status := string(appt.Status)
		summary.ByStatus[status]++

		key := DayKey(appt.Date)
		if key == day {
			summary.Today.Total++
			summary.Today.ByStatus[status]++
		}
		if key >= day && isOpen(appt.Status) {
			summary.Upcoming++
		}
	}

	for _, e := range in.Employees {
		summary.EmployeesByRole[e.Role]++
	}

	for _, s := range in.Services {
		if s.Status == models.ServiceInactive {
			summary.InactiveServices++
		} else {
			summary.ActiveServices++
		}
	}
	return summary
}

// VehicleHistory returns the appointments booked against plate.
func VehicleHistory(appts []models.Appointment, plate string) []models.Appointment {
	history := []models.Appointment{}
	for _, appt := range appts {
		if appt.Vehicle == plate {
			history = append(history, appt)
		}
	}
	return history
}

// Orphans lists appointments whose customer or vehicle string matches no
// customer name or vehicle plate.
func Orphans(appts []models.Appointment, vehicles []models.Vehicle, customers []models.Customer) []Orphan {
	plates := make(map[string]struct{}, len(vehicles))
	for _, v := range vehicles {
		plates[v.Plate] = struct{}{}
	}
	names := make(map[string]struct{}, len(customers))
	for _, c := range customers {
		names[c.Name] = struct{}{}
	}

	orphans := []Orphan{}
	for _, appt := range appts {
		_, hasVehicle := plates[appt.Vehicle]
		_, hasCustomer := names[appt.Customer]
		if hasVehicle && hasCustomer {
			continue
		}
		orphans = append(orphans, Orphan{
			AppointmentID:   appt.ID.Hex(),
			Customer:        appt.Customer,
			Vehicle:         appt.Vehicle,
			MissingCustomer: !hasCustomer,
			MissingVehicle:  !hasVehicle,
		})
	}
	return orphans
}

func isOpen(status models.AppointmentStatus) bool {
	return status != models.StatusCompleted && status != models.StatusCancelled
}

func emptyStatusCounts() map[string]int {
	counts := make(map[string]int, len(models.AppointmentStatuses))
	for _, s := range models.AppointmentStatuses {
		counts[string(s)] = 0
	}
	return counts
}
