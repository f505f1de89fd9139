package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-maintenance/internal/auth"
	"github.com/ukydev/fleet-maintenance/internal/config"
	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/metrics"
	"github.com/ukydev/fleet-maintenance/internal/middleware"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"github.com/ukydev/fleet-maintenance/internal/pep"
	"github.com/ukydev/fleet-maintenance/internal/reminders"
	"github.com/ukydev/fleet-maintenance/internal/testutil"
)

type testAPI struct {
	handler http.Handler
	auth    *auth.Service
	store   *testutil.FailingStore
	clock   *testutil.StubClock
}

func quietLogger() log.FieldLogger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := testutil.NewFailingStore()
	clock := testutil.FixedClock() // 2026-01-01 09:00 UTC
	m := metrics.New()

	engine := reminders.NewEngine(store,
		reminders.WithClock(clock),
		reminders.WithIDGenerator(testutil.NewPrefixedIDGenerator("rem")),
		reminders.WithLogger(quietLogger()),
		reminders.WithMetrics(m),
	)
	forms := pep.NewFormService(store, engine,
		pep.WithFormClock(clock),
		pep.WithFormIDGenerator(testutil.NewPrefixedIDGenerator("form")),
		pep.WithFormLogger(quietLogger()),
		pep.WithFormMetrics(m),
	)
	authService, err := auth.NewService(config.AuthConfig{Secret: "test-secret", Expiry: time.Hour})
	require.NoError(t, err)

	router := NewRouter(RouterConfig{
		Reminders: NewReminderHandler(engine, clock),
		Forms:     NewFormHandler(forms, clock),
		Schedule:  NewScheduleHandler(clock),
		Auth:      middleware.NewAuthMiddleware(authService),
		Metrics:   m.Handler(),
		Logger:    quietLogger(),
	})
	return &testAPI{handler: router, auth: authService, store: store, clock: clock}
}

func (a *testAPI) do(t *testing.T, role models.Role, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if role != "" {
		token, err := a.auth.GenerateToken("u-"+string(role), "tech-"+string(role), role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, "", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	api.do(t, models.RoleAdmin, http.MethodPost, "/api/reminders", map[string]interface{}{
		"type": "pep_due", "due_date": "2026-02-01",
	})
	w = api.do(t, "", http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `fleet_reminders_created_total{type="pep_due"} 1`)
}

func TestAPI_RequiresToken(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, "", http.MethodGet, "/api/reminders", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = api.do(t, models.RoleViewer, http.MethodPost, "/api/reminders", map[string]string{"type": "pep_due", "due_date": "2026-02-01"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReminderLifecycle(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, models.RoleOperator, http.MethodPost, "/api/reminders", map[string]interface{}{
		"type":         "insurance_renewal",
		"vehicle_id":   "truck-1",
		"vehicle_name": "Truck 1",
		"due_date":     "2025-12-31",
		"priority":     "low",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[reminders.View](t, w)
	assert.Equal(t, "rem-1", created.ID)
	assert.Equal(t, -1, created.DaysUntilDue)
	assert.True(t, created.IsOverdue)
	assert.Equal(t, models.PriorityCritical, created.EffectivePriority)
	assert.Equal(t, models.PriorityLow, created.Priority)

	w = api.do(t, models.RoleOperator, http.MethodPost, "/api/reminders", map[string]interface{}{
		"type": "pep_due", "vehicle_id": "truck-2", "due_date": "2026-01-05T15:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(t, models.RoleViewer, http.MethodGet, "/api/reminders/upcoming?days=0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	upcoming := decode[[]reminders.View](t, w)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "rem-1", upcoming[0].ID)

	w = api.do(t, models.RoleViewer, http.MethodGet, "/api/reminders/upcoming", nil)
	assert.Len(t, decode[[]reminders.View](t, w), 2)

	w = api.do(t, models.RoleViewer, http.MethodGet, "/api/reminders/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, reminders.Stats{Overdue: 1, DueThisWeek: 1}, decode[reminders.Stats](t, w))

	w = api.do(t, models.RoleViewer, http.MethodGet, "/api/reminders?vehicle_id=truck-2", nil)
	byVehicle := decode[[]reminders.View](t, w)
	require.Len(t, byVehicle, 1)
	assert.Equal(t, "rem-2", byVehicle[0].ID)

	for i := 0; i < 2; i++ {
		w = api.do(t, models.RoleOperator, http.MethodPost, "/api/reminders/rem-1/complete", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decode[reminders.View](t, w).IsCompleted)
	}

	w = api.do(t, models.RoleOperator, http.MethodPost, "/api/reminders/nope/complete", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, models.RoleViewer, http.MethodGet, "/api/reminders/rem-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, models.RoleOperator, http.MethodDelete, "/api/reminders/rem-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = api.do(t, models.RoleViewer, http.MethodGet, "/api/reminders/rem-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReminderTypes(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, models.RoleViewer, http.MethodGet, "/api/reminders/types", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var types []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &types))
	assert.Len(t, types, len(models.AllReminderTypes))
	assert.Equal(t, "maintenance_due", types[0]["type"])
}

func TestCreateReminder_BadRequests(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"missing due date", map[string]string{"type": "pep_due"}},
		{"bad due date", map[string]string{"type": "pep_due", "due_date": "01/02/2026"}},
		{"unknown type", map[string]string{"type": "oil_change", "due_date": "2026-02-01"}},
		{"unknown priority", map[string]string{"type": "pep_due", "due_date": "2026-02-01", "priority": "urgent"}},
		{"not json", "just a string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, models.RoleAdmin, http.MethodPost, "/api/reminders", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, decode[errorResponse](t, w).Error)
		})
	}

	w := api.do(t, models.RoleAdmin, http.MethodGet, "/api/reminders/upcoming?days=soon", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_StorageFailure(t *testing.T) {
	api := newTestAPI(t)
	api.store.FailReads(true)

	w := api.do(t, models.RoleAdmin, http.MethodGet, "/api/reminders", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = api.do(t, models.RoleAdmin, http.MethodGet, "/api/forms", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestFormLifecycle(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, models.RoleTechnician, http.MethodPost, "/api/forms", map[string]string{"vehicle_id": "truck-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	form := decode[models.MaintenanceForm](t, w)
	assert.Equal(t, "form-1", form.ID)
	assert.Equal(t, models.FormStatusDraft, form.Status)

	w = api.do(t, models.RoleTechnician, http.MethodPut, "/api/forms/form-1/components", map[string]interface{}{
		"components": []pep.ComponentUpdate{
			{SectionID: "brakes", Code: 301, Status: models.ComponentMinorDefect},
			{SectionID: "brakes", Code: 302, Status: models.ComponentMajorDefect},
			{SectionID: "lighting", Code: 201, Status: models.ComponentConforms},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	form = decode[models.MaintenanceForm](t, w)
	assert.Equal(t, 1, form.TotalMinorDefects)
	assert.Equal(t, 1, form.TotalMajorDefects)

	w = api.do(t, models.RoleTechnician, http.MethodPost, "/api/forms/form-1/sign", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code, "draft forms cannot be signed")

	w = api.do(t, models.RoleTechnician, http.MethodPost, "/api/forms/form-1/finalize", map[string]interface{}{
		"vehicle": map[string]interface{}{
			"id": "truck-1", "name": "Truck 1", "gross_vehicle_weight_kg": 5000, "annual_distance_km": 15000,
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	fin := decode[finalizeFormResponse](t, w)
	assert.Equal(t, models.FormStatusCompleted, fin.Form.Status)
	require.NotNil(t, fin.Form.NextMaintenanceDate)
	assert.Equal(t, "2026-07-01", fin.Form.NextMaintenanceDate.Format(time.DateOnly))
	assert.Equal(t, models.ReminderPEPDue, fin.Reminder.Type)
	assert.Equal(t, "form-1", fin.Reminder.SourceFormID)

	w = api.do(t, models.RoleManager, http.MethodPost, "/api/forms/form-1/sign", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, models.RoleTechnician, http.MethodPost, "/api/forms/form-1/sign", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	signed := decode[models.MaintenanceForm](t, w)
	assert.Equal(t, models.FormStatusSigned, signed.Status)
	assert.Equal(t, "tech-technician", signed.SignedBy)

	w = api.do(t, models.RoleViewer, http.MethodGet, "/api/forms?vehicle_id=truck-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.MaintenanceForm](t, w), 1)

	w = api.do(t, models.RoleViewer, http.MethodGet, "/api/reminders?vehicle_id=truck-1", nil)
	assert.Len(t, decode[[]reminders.View](t, w), 1)

	w = api.do(t, models.RoleTechnician, http.MethodDelete, "/api/forms/form-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = api.do(t, models.RoleViewer, http.MethodGet, "/api/forms/form-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSignForm_OptionalBody(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantSigner string
	}{
		{"chunked empty body", "", http.StatusOK, "tech-technician"},
		{"blank body", "  \n", http.StatusOK, "tech-technician"},
		{"explicit technician", `{"technician":"jt"}`, http.StatusOK, "jt"},
		{"malformed body", `{"technician":`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			w := api.do(t, models.RoleTechnician, http.MethodPost, "/api/forms", map[string]string{"vehicle_id": "truck-1"})
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
			w = api.do(t, models.RoleTechnician, http.MethodPost, "/api/forms/form-1/finalize", map[string]interface{}{
				"vehicle": map[string]interface{}{"id": "truck-1", "gross_vehicle_weight_kg": 3000},
			})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			req := httptest.NewRequest(http.MethodPost, "/api/forms/form-1/sign", io.NopCloser(bytes.NewBufferString(tt.body)))
			req.ContentLength = -1
			token, err := api.auth.GenerateToken("u-technician", "tech-technician", models.RoleTechnician)
			require.NoError(t, err)
			req.Header.Set("Authorization", "Bearer "+token)
			w = httptest.NewRecorder()
			api.handler.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantSigner, decode[models.MaintenanceForm](t, w).SignedBy)
			}
		})
	}
}

func TestFormCatalog(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, models.RoleViewer, http.MethodGet, "/api/forms/catalog", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sections := decode[[]models.Section](t, w)
	assert.Len(t, sections, len(pep.DefaultCatalog().Sections))
}

func TestUpdateComponents_Errors(t *testing.T) {
	api := newTestAPI(t)
	api.do(t, models.RoleTechnician, http.MethodPost, "/api/forms", map[string]string{"vehicle_id": "truck-1"})

	w := api.do(t, models.RoleTechnician, http.MethodPut, "/api/forms/form-1/components", map[string]interface{}{"components": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, models.RoleTechnician, http.MethodPut, "/api/forms/form-1/components", map[string]interface{}{
		"components": []pep.ComponentUpdate{{SectionID: "brakes", Code: 301, Status: "broken"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, models.RoleTechnician, http.MethodPut, "/api/forms/form-9/components", map[string]interface{}{
		"components": []pep.ComponentUpdate{{SectionID: "brakes", Code: 301, Status: models.ComponentConforms}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNextDate(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name       string
		body       map[string]interface{}
		wantStatus int
		wantDate   string
		wantMonths int
	}{
		{"heavy low mileage", map[string]interface{}{"gross_vehicle_weight_kg": 5000, "annual_distance_km": 15000, "from": "2026-01-01"}, http.StatusOK, "2026-07-01", 6},
		{"heavy high mileage", map[string]interface{}{"gross_vehicle_weight_kg": 5000, "annual_distance_km": 25000, "from": "2026-01-01"}, http.StatusOK, "2026-04-01", 3},
		{"light unknown distance", map[string]interface{}{"gross_vehicle_weight_kg": 3000, "from": "2026-01-01"}, http.StatusOK, "2026-07-01", 6},
		{"defaults to today", map[string]interface{}{"gross_vehicle_weight_kg": 8000}, http.StatusOK, "2026-04-01", 3},
		{"zero weight", map[string]interface{}{"gross_vehicle_weight_kg": 0}, http.StatusBadRequest, "", 0},
		{"bad date", map[string]interface{}{"gross_vehicle_weight_kg": 3000, "from": "tomorrow"}, http.StatusBadRequest, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(t, models.RoleViewer, http.MethodPost, "/api/schedule/next-date", tt.body)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}
			got := decode[nextDateResponse](t, w)
			assert.Equal(t, tt.wantDate, got.NextMaintenanceDate)
			assert.Equal(t, tt.wantMonths, got.IntervalMonths)
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: x", models.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: x", models.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", fmt.Errorf("%w: x", models.ErrStorageFailure)), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("due_date", "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), d)

	d, err = parseDate("due_date", "2026-03-01T23:30:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, 1, d.Day())

	_, err = parseDate("due_date", "")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestRouter_OpenWithoutAuth(t *testing.T) {
	store := db.NewMemoryStore()
	engine := reminders.NewEngine(store, reminders.WithLogger(quietLogger()))
	router := NewRouter(RouterConfig{Reminders: NewReminderHandler(engine, nil)})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/reminders", nil).WithContext(context.Background()))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}
