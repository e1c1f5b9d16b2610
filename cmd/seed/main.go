// Command seed fills a running service center API with demo records.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/ukydev/service-center/internal/models"
)

// resetOrder lists the collections --reset clears.
var resetOrder = []string{"vehicles", "customers", "employees", "services", "appointments"}

var demoVehicles = []models.Vehicle{
	{Make: "Toyota", Model: "Camry", Year: "2020", Plate: "ABC123"},
	{Make: "Honda", Model: "Civic", Year: "2019", Plate: "XYZ789"},
	{Make: "Ford", Model: "F-150", Year: "2021", Plate: "TRK456"},
	{Make: "BMW", Model: "X3", Year: "2022", Plate: "BMW321"},
}

var demoCustomers = []models.Customer{
	{Name: "Alice Smith", Email: "alice@example.com", Phone: "555-1234"},
	{Name: "Bob Johnson", Email: "bob@example.com", Phone: "555-5678"},
	{Name: "Charlie Lee", Email: "charlie@example.com", Phone: "555-8765"},
	{Name: "Diana King", Email: "diana@example.com", Phone: "555-4321"},
}

var demoEmployees = []models.Employee{
	{Name: "Evan Miller", Email: "evan@example.com", Role: "Mechanic"},
	{Name: "Fiona Clark", Email: "fiona@example.com", Role: "Advisor"},
	{Name: "George Hall", Email: "george@example.com", Role: "Technician"},
	{Name: "Hannah Scott", Email: "hannah@example.com", Role: "Cleaner"},
}

var demoServices = []models.Service{
	{Name: "Oil Change", Description: "Engine oil and filter replacement", Category: "maintenance", Price: 50, Duration: 45},
	{Name: "Brake Service", Description: "Pad replacement and brake fluid check", Category: "repair", Price: 120, Duration: 120},
	{Name: "Tire Rotation", Description: "Rotate and balance all four tires", Category: "maintenance", Price: 40, Duration: 30},
	{Name: "AC Service", Description: "Refrigerant recharge and leak test", Category: "repair", Price: 90, Duration: 90},
	{Name: "Inspection", Description: "Multi-point safety inspection", Category: "inspection", Price: 70, Duration: 60},
}

type appointmentPayload struct {
	Customer string                   `json:"customer"`
	Vehicle  string                   `json:"vehicle"`
	Date     string                   `json:"date"`
	Status   models.AppointmentStatus `json:"status"`
}

// demoAppointments links customers and vehicles by name and plate, one per
// day from today back four days.
func demoAppointments(today time.Time) []appointmentPayload {
	day := func(offset int) string {
		return today.AddDate(0, 0, -offset).Format("2006-01-02")
	}
	return []appointmentPayload{
		{demoCustomers[0].Name, demoVehicles[0].Plate, day(0), models.StatusScheduled},
		{demoCustomers[1].Name, demoVehicles[1].Plate, day(1), models.StatusCompleted},
		{demoCustomers[2].Name, demoVehicles[2].Plate, day(2), models.StatusInProgress},
		{demoCustomers[3].Name, demoVehicles[3].Plate, day(3), models.StatusCancelled},
		{demoCustomers[0].Name, demoVehicles[1].Plate, day(4), models.StatusCompleted},
	}
}

type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *apiClient) do(method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", path, err)
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s failed with status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", path, err)
		}
	}
	return nil
}

func (c *apiClient) signIn(email, password string) error {
	var session models.SessionResponse
	if err := c.do(http.MethodPost, "/auth/signin", models.SignInRequest{Email: email, Password: password}, &session); err != nil {
		return err
	}
	c.token = session.Token
	return nil
}

func (c *apiClient) create(resource string, record interface{}) (string, error) {
	var result struct {
		ID string `json:"id"`
	}
	if err := c.do(http.MethodPost, "/"+resource, record, &result); err != nil {
		return "", err
	}
	return result.ID, nil
}

// clear deletes every record of resource, one request at a time.
func (c *apiClient) clear(resource string) (int, error) {
	var records []struct {
		ID string `json:"id"`
	}
	if err := c.do(http.MethodGet, "/"+resource, nil, &records); err != nil {
		return 0, err
	}
	for i, r := range records {
		if err := c.do(http.MethodDelete, "/"+resource+"/"+r.ID, nil, nil); err != nil {
			return i, err
		}
	}
	return len(records), nil
}

type seedOptions struct {
	apiURL   string
	token    string
	email    string
	password string
	reset    bool
}

func seed(c *apiClient, reset bool, today time.Time) error {
	if reset {
		for _, resource := range resetOrder {
			n, err := c.clear(resource)
			if err != nil {
				return fmt.Errorf("reset %s: %w", resource, err)
			}
			log.WithFields(log.Fields{"collection": resource, "deleted": n}).Info("Cleared collection")
		}
	}

	batches := []struct {
		resource string
		records  []interface{}
	}{
		{"vehicles", toRecords(demoVehicles)},
		{"customers", toRecords(demoCustomers)},
		{"employees", toRecords(demoEmployees)},
		{"services", toRecords(demoServices)},
		{"appointments", toRecords(demoAppointments(today))},
	}
	for _, batch := range batches {
		for _, record := range batch.records {
			if _, err := c.create(batch.resource, record); err != nil {
				return fmt.Errorf("seed %s: %w", batch.resource, err)
			}
		}
		log.WithFields(log.Fields{"collection": batch.resource, "created": len(batch.records)}).Info("Seeded collection")
	}
	return nil
}

func toRecords[T any](items []T) []interface{} {
	records := make([]interface{}, len(items))
	for i, item := range items {
		records[i] = item
	}
	return records
}

func newRootCmd() *cobra.Command {
	opts := seedOptions{}
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo vehicles, customers, employees, services and appointments",
		Long: `Load demo records through the service center API.

Authenticate with --token (or SEED_AUTH_TOKEN), or with --email and --password.
With --reset, every vehicle, customer, employee, service and appointment is
deleted first.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newAPIClient(opts.apiURL, opts.token)
			if client.token == "" && opts.email != "" {
				if err := client.signIn(opts.email, opts.password); err != nil {
					return fmt.Errorf("sign in: %w", err)
				}
			}
			log.WithFields(log.Fields{"api_url": client.baseURL, "reset": opts.reset}).Info("Seeding demo data")
			if err := seed(client, opts.reset, time.Now()); err != nil {
				return err
			}
			log.Info("Demo data seeded successfully")
			return nil
		},
	}

	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}
	cmd.Flags().StringVar(&opts.apiURL, "api-url", apiURL, "API base URL")
	cmd.Flags().StringVar(&opts.token, "token", os.Getenv("SEED_AUTH_TOKEN"), "bearer token of a staff or admin account")
	cmd.Flags().StringVar(&opts.email, "email", "", "sign in with this email when no token is given")
	cmd.Flags().StringVar(&opts.password, "password", os.Getenv("SEED_PASSWORD"), "password for --email")
	cmd.Flags().BoolVar(&opts.reset, "reset", false, "delete existing records before seeding")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.WithError(err).Fatal("Seeding failed")
	}
}
