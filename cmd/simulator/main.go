package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"github.com/ukydev/fleet-maintenance/internal/pep"
)

// Simulator drives a series of PEP inspections through the HTTP API.
type Simulator struct {
	APIURL     string
	AuthToken  string
	Technician string
	Client     *http.Client
	Rand       *rand.Rand
}

// Result summarises one simulated inspection.
type Result struct {
	Vehicle  models.Vehicle
	Form     models.MaintenanceForm
	Reminder models.Reminder
}

var vehicleNames = []string{"Tractor", "Dump truck", "Box truck", "Tanker", "Flatbed", "Cube van", "Pickup"}

var documentTypes = []models.ReminderType{
	models.ReminderInsuranceRenewal,
	models.ReminderRegistrationRenewal,
	models.ReminderDocumentExpiry,
}

// randomVehicle draws a vehicle profile. Roughly half are heavy vehicles and
// one in five has an unknown annual distance.
func (s *Simulator) randomVehicle(i int) models.Vehicle {
	v := models.Vehicle{
		ID:   fmt.Sprintf("vehicle-%d", i),
		Name: fmt.Sprintf("%s %d", vehicleNames[s.Rand.Intn(len(vehicleNames))], i),
	}
	if s.Rand.Intn(2) == 0 {
		v.GrossVehicleWeightKg = 4500 + float64(s.Rand.Intn(30000))
	} else {
		v.GrossVehicleWeightKg = 1500 + float64(s.Rand.Intn(3000))
	}
	if s.Rand.Intn(5) != 0 {
		d := float64(5000 + s.Rand.Intn(60000))
		v.AnnualDistanceKm = &d
	}
	return v
}

// randomStatus returns mostly conforming components with occasional defects.
func (s *Simulator) randomStatus() models.ComponentStatus {
	switch n := s.Rand.Intn(100); {
	case n < 3:
		return models.ComponentMajorDefect
	case n < 12:
		return models.ComponentMinorDefect
	case n < 20:
		return models.ComponentNotApplicable
	default:
		return models.ComponentConforms
	}
}

func (s *Simulator) do(method, path string, body, out interface{}) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		rd = bytes.NewBuffer(data)
	}
	req, err := http.NewRequest(method, s.APIURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.AuthToken)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s failed with status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Inspect runs one inspection: create the form, record every component,
// finalize, sign, and file a document reminder for the same vehicle.
func (s *Simulator) Inspect(v models.Vehicle) (*Result, error) {
	var form models.MaintenanceForm
	if err := s.do(http.MethodPost, "/forms", map[string]string{"vehicle_id": v.ID}, &form); err != nil {
		return nil, err
	}

	var updates []pep.ComponentUpdate
	for _, sec := range form.Sections {
		for _, c := range sec.Components {
			updates = append(updates, pep.ComponentUpdate{SectionID: sec.ID, Code: c.Code, Status: s.randomStatus()})
		}
	}
	if len(updates) > 0 {
		if err := s.do(http.MethodPut, "/forms/"+form.ID+"/components", map[string]interface{}{"components": updates}, &form); err != nil {
			return nil, err
		}
	}

	var finalized struct {
		Form     models.MaintenanceForm `json:"form"`
		Reminder models.Reminder        `json:"reminder"`
	}
	if err := s.do(http.MethodPost, "/forms/"+form.ID+"/finalize", map[string]interface{}{"vehicle": v}, &finalized); err != nil {
		return nil, err
	}

	var signed models.MaintenanceForm
	if err := s.do(http.MethodPost, "/forms/"+form.ID+"/sign", map[string]string{"technician": s.Technician}, &signed); err != nil {
		return nil, err
	}

	doc := map[string]interface{}{
		"type":         documentTypes[s.Rand.Intn(len(documentTypes))],
		"vehicle_id":   v.ID,
		"vehicle_name": v.Name,
		"due_date":     time.Now().AddDate(0, 0, s.Rand.Intn(120)-10).Format(time.DateOnly),
	}
	if err := s.do(http.MethodPost, "/reminders", doc, nil); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"vehicle_id":       v.ID,
		"form_id":          signed.ID,
		"minor_defects":    signed.TotalMinorDefects,
		"major_defects":    signed.TotalMajorDefects,
		"next_maintenance": finalized.Reminder.DueDate.Format(time.DateOnly),
	}).Info("Simulated inspection")

	return &Result{Vehicle: v, Form: signed, Reminder: finalized.Reminder}, nil
}

// Run inspects fleetSize vehicles, pausing interval between them. Failed
// inspections are logged and skipped.
func (s *Simulator) Run(fleetSize int, interval time.Duration) []Result {
	var results []Result
	for i := 1; i <= fleetSize; i++ {
		res, err := s.Inspect(s.randomVehicle(i))
		if err != nil {
			log.WithError(err).WithField("vehicle", i).Error("Inspection failed")
			continue
		}
		results = append(results, *res)
		if interval > 0 && i < fleetSize {
			time.Sleep(interval)
		}
	}
	return results
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func main() {
	apiURL := os.Getenv("API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080/api"
	}
	technician := os.Getenv("SIM_TECHNICIAN")
	if technician == "" {
		technician = "simulator"
	}

	sim := &Simulator{
		APIURL:     apiURL,
		AuthToken:  os.Getenv("SIM_AUTH_TOKEN"),
		Technician: technician,
		Client:     &http.Client{Timeout: 10 * time.Second},
		Rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	fleetSize := envInt("FLEET_SIZE", 10)
	interval := time.Duration(envInt("SIM_TICK_SECONDS", 0)) * time.Second

	log.WithFields(log.Fields{
		"fleet_size": fleetSize,
		"api_url":    apiURL,
		"interval":   interval,
	}).Info("Starting inspection simulation")

	results := sim.Run(fleetSize, interval)
	log.WithField("inspections", len(results)).Info("Simulation completed")
	if len(results) == 0 {
		log.Error("No inspection completed. Ensure SIM_AUTH_TOKEN is valid and API is reachable.")
		os.Exit(1)
	}
}
