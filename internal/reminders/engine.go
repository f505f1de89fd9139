// Package reminders owns the collection of due-date reminders: creation,
// completion, urgency projection and the filtered views used by dashboards.
package reminders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/duedate"
	"github.com/ukydev/fleet-maintenance/internal/metrics"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

// DueThisWeekDays is the upper bound (inclusive) of the "due this week" bucket.
const DueThisWeekDays = 7

// Engine manages reminders persisted in a Store under db.KeyReminders.
// Read-modify-write cycles are serialised so concurrent calls in one process
// never lose updates.
type Engine struct {
	store   db.Store
	ids     models.IDGenerator
	clock   models.Clock
	log     log.FieldLogger
	metrics *metrics.Metrics

	mu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

func WithIDGenerator(g models.IDGenerator) Option { return func(e *Engine) { e.ids = g } }
func WithClock(c models.Clock) Option             { return func(e *Engine) { e.clock = c } }
func WithLogger(l log.FieldLogger) Option         { return func(e *Engine) { e.log = l } }
func WithMetrics(m *metrics.Metrics) Option       { return func(e *Engine) { e.metrics = m } }

// NewEngine creates a reminder engine on store.
func NewEngine(store db.Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		ids:   models.UUIDGenerator{},
		clock: models.RealClock{},
		log:   log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time { return e.clock.Now() }

// CreateInput describes a reminder to create.
// A nil ReminderDays applies the type's default lead times; an empty,
// non-nil slice disables lead-time notifications.
type CreateInput struct {
	Type         models.ReminderType `json:"type"`
	Title        string              `json:"title"`
	Notes        string              `json:"notes"`
	VehicleID    string              `json:"vehicle_id"`
	VehicleName  string              `json:"vehicle_name"`
	DueDate      time.Time           `json:"due_date"`
	Priority     models.Priority     `json:"priority"`
	ReminderDays []int               `json:"reminder_days"`
	SourceFormID string              `json:"source_form_id"`
}

// Stats summarises open reminders relative to a point in time.
type Stats struct {
	Overdue     int `json:"overdue"`
	DueThisWeek int `json:"due_this_week"`
}

// View is a reminder together with its urgency at a given instant.
type View struct {
	models.Reminder
	duedate.Urgency
	TypeConfig models.ReminderTypeConfig `json:"type_config"`
}

// Notification is a reminder that reached one of its lead times, or is overdue.
type Notification struct {
	Reminder models.Reminder `json:"reminder"`
	Urgency  duedate.Urgency `json:"urgency"`
	// LeadDays is the matched lead time; -1 when the reminder is overdue.
	LeadDays int `json:"lead_days"`
}

// CreateReminder validates in, applies defaults and appends the new reminder.
func (e *Engine) CreateReminder(ctx context.Context, in CreateInput) (*models.Reminder, error) {
	cfg, ok := in.Type.Config()
	if !ok {
		return nil, fmt.Errorf("%w: unknown reminder type %q", models.ErrValidation, in.Type)
	}
	if in.DueDate.IsZero() {
		return nil, fmt.Errorf("%w: due date is required", models.ErrValidation)
	}
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.IsValidPriority(priority) {
		return nil, fmt.Errorf("%w: unknown priority %q", models.ErrValidation, in.Priority)
	}
	days := cfg.DefaultReminderDays
	if in.ReminderDays != nil {
		days = in.ReminderDays
	}
	for _, d := range days {
		if d < 0 {
			return nil, fmt.Errorf("%w: reminder lead time %d is negative", models.ErrValidation, d)
		}
	}
	title := in.Title
	if title == "" {
		title = cfg.Label
		if in.VehicleName != "" {
			title += " - " + in.VehicleName
		}
	}

	now := e.clock.Now()
	r := models.Reminder{
		ID:           e.ids.New(),
		Type:         in.Type,
		Title:        title,
		Notes:        in.Notes,
		VehicleID:    in.VehicleID,
		VehicleName:  in.VehicleName,
		DueDate:      duedate.CalendarDate(in.DueDate),
		Priority:     priority,
		ReminderDays: append([]int{}, days...),
		SourceFormID: in.SourceFormID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	items, err := db.LoadCollection[models.Reminder](ctx, e.store, db.KeyReminders)
	if err != nil {
		return nil, err
	}
	for _, existing := range items {
		if existing.ID == r.ID {
			return nil, fmt.Errorf("%w: reminder id %s already exists", models.ErrValidation, r.ID)
		}
	}
	if err := db.SaveCollection(ctx, e.store, db.KeyReminders, append(items, r)); err != nil {
		return nil, err
	}

	e.metrics.ReminderCreated(string(r.Type))
	e.log.WithFields(log.Fields{
		"reminder_id": r.ID,
		"type":        r.Type,
		"vehicle_id":  r.VehicleID,
		"due_date":    r.DueDate.Format(time.DateOnly),
	}).Info("Created reminder")

	return r.Clone(), nil
}

// CompleteReminder marks the reminder completed. Completing an already
// completed reminder succeeds and changes nothing.
func (e *Engine) CompleteReminder(ctx context.Context, id string, now time.Time) (*models.Reminder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	items, err := db.LoadCollection[models.Reminder](ctx, e.store, db.KeyReminders)
	if err != nil {
		return nil, err
	}
	idx := indexOf(items, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: reminder %s", models.ErrNotFound, id)
	}
	if items[idx].IsCompleted {
		return items[idx].Clone(), nil
	}

	items[idx].IsCompleted = true
	items[idx].CompletedAt = &now
	items[idx].UpdatedAt = now
	if err := db.SaveCollection(ctx, e.store, db.KeyReminders, items); err != nil {
		return nil, err
	}

	e.metrics.ReminderCompleted()
	e.log.WithField("reminder_id", id).Info("Completed reminder")
	return items[idx].Clone(), nil
}

// Get returns the reminder with the given id.
func (e *Engine) Get(ctx context.Context, id string) (*models.Reminder, error) {
	items, err := db.LoadCollection[models.Reminder](ctx, e.store, db.KeyReminders)
	if err != nil {
		return nil, err
	}
	idx := indexOf(items, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: reminder %s", models.ErrNotFound, id)
	}
	return &items[idx], nil
}

// List returns every reminder in creation order.
func (e *Engine) List(ctx context.Context) ([]models.Reminder, error) {
	return db.LoadCollection[models.Reminder](ctx, e.store, db.KeyReminders)
}

// Delete removes the reminder with the given id.
func (e *Engine) Delete(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	items, err := db.LoadCollection[models.Reminder](ctx, e.store, db.KeyReminders)
	if err != nil {
		return err
	}
	idx := indexOf(items, id)
	if idx < 0 {
		return fmt.Errorf("%w: reminder %s", models.ErrNotFound, id)
	}
	items = append(items[:idx], items[idx+1:]...)
	if err := db.SaveCollection(ctx, e.store, db.KeyReminders, items); err != nil {
		return err
	}

	e.metrics.ReminderDeleted()
	e.log.WithField("reminder_id", id).Info("Deleted reminder")
	return nil
}

// GetUpcoming returns open reminders due within windowDays of now. Overdue
// reminders are always included, whatever the window. Most overdue first,
// then soonest due; ties keep creation order.
func (e *Engine) GetUpcoming(ctx context.Context, windowDays int, now time.Time) ([]models.Reminder, error) {
	items, err := db.LoadCollection[models.Reminder](ctx, e.store, db.KeyReminders)
	if err != nil {
		return nil, err
	}

	type entry struct {
		r    models.Reminder
		days int
	}
	var open []entry
	for _, r := range items {
		if r.IsCompleted {
			continue
		}
		days := duedate.DaysUntilDue(r.DueDate, now)
		if days < 0 || days <= windowDays {
			open = append(open, entry{r: r, days: days})
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		if open[i].days != open[j].days {
			return open[i].days < open[j].days
		}
		return duedate.CalendarDate(open[i].r.DueDate).Before(duedate.CalendarDate(open[j].r.DueDate))
	})

	out := make([]models.Reminder, len(open))
	for i, en := range open {
		out[i] = en.r
	}
	return out, nil
}

// GetStats counts open reminders that are overdue or due within a week of now.
func (e *Engine) GetStats(ctx context.Context, now time.Time) (Stats, error) {
	items, err := db.LoadCollection[models.Reminder](ctx, e.store, db.KeyReminders)
	if err != nil {
		return Stats{}, err
	}

	var s Stats
	for _, r := range items {
		if r.IsCompleted {
			continue
		}
		switch days := duedate.DaysUntilDue(r.DueDate, now); {
		case days < 0:
			s.Overdue++
		case days <= DueThisWeekDays:
			s.DueThisWeek++
		}
	}
	e.metrics.ObserveStats(s.Overdue, s.DueThisWeek)
	return s, nil
}

// GetByVehicle returns every reminder of a vehicle, completed or not, in creation order.
func (e *Engine) GetByVehicle(ctx context.Context, vehicleID string) ([]models.Reminder, error) {
	items, err := db.LoadCollection[models.Reminder](ctx, e.store, db.KeyReminders)
	if err != nil {
		return nil, err
	}
	out := []models.Reminder{}
	for _, r := range items {
		if r.VehicleID == vehicleID {
			out = append(out, r)
		}
	}
	return out, nil
}

// DueNotifications returns the open reminders that should notify at now:
// those whose days until due equals one of their lead times, and overdue ones.
func (e *Engine) DueNotifications(ctx context.Context, now time.Time) ([]Notification, error) {
	items, err := db.LoadCollection[models.Reminder](ctx, e.store, db.KeyReminders)
	if err != nil {
		return nil, err
	}

	var out []Notification
	for _, r := range items {
		if r.IsCompleted {
			continue
		}
		days := duedate.DaysUntilDue(r.DueDate, now)
		u := duedate.ClassifyUrgency(days, r.Priority)
		if u.IsOverdue {
			out = append(out, Notification{Reminder: r, Urgency: u, LeadDays: -1})
			continue
		}
		for _, lead := range r.ReminderDays {
			if lead == days {
				out = append(out, Notification{Reminder: r, Urgency: u, LeadDays: lead})
				break
			}
		}
	}
	return out, nil
}

// NewView projects r's urgency at now.
func NewView(r models.Reminder, now time.Time) View {
	cfg, _ := r.Type.Config()
	return View{
		Reminder:   r,
		Urgency:    duedate.ClassifyUrgency(duedate.DaysUntilDue(r.DueDate, now), r.Priority),
		TypeConfig: cfg,
	}
}

// NewViews projects every reminder in rs.
func NewViews(rs []models.Reminder, now time.Time) []View {
	out := make([]View, len(rs))
	for i, r := range rs {
		out[i] = NewView(r, now)
	}
	return out
}

func indexOf(items []models.Reminder, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}
