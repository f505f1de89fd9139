package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-maintenance/internal/metrics"
	"github.com/ukydev/fleet-maintenance/internal/models"
	"github.com/ukydev/fleet-maintenance/internal/reminders"
)

// Source lists the notifications due at a given time.
type Source interface {
	DueNotifications(ctx context.Context, now time.Time) ([]reminders.Notification, error)
}

// Dispatcher periodically sends due notifications. A notification for a given
// reminder and lead time is sent at most once per calendar day.
type Dispatcher struct {
	source   Source
	notifier Notifier
	clock    models.Clock
	log      log.FieldLogger
	metrics  *metrics.Metrics

	mu   sync.Mutex
	sent map[string]string // reminder id and lead days -> date sent
}

// NewDispatcher creates a dispatcher. A nil clock uses the real time.
func NewDispatcher(source Source, notifier Notifier, clock models.Clock, logger log.FieldLogger, m *metrics.Metrics) *Dispatcher {
	if clock == nil {
		clock = models.RealClock{}
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Dispatcher{
		source:   source,
		notifier: notifier,
		clock:    clock,
		log:      logger,
		metrics:  m,
		sent:     map[string]string{},
	}
}

// DispatchOnce sends every notification due now that was not sent today.
// Delivery failures are counted and joined into the returned error; the
// remaining notifications are still attempted.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	now := d.clock.Now()
	today := now.Format(time.DateOnly)

	due, err := d.source.DueNotifications(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("listing due notifications: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for k, sentOn := range d.sent {
		if sentOn != today {
			delete(d.sent, k)
		}
	}

	var errs []error
	sent := 0
	for _, n := range due {
		key := fmt.Sprintf("%s:%d", n.Reminder.ID, n.LeadDays)
		if d.sent[key] == today {
			continue
		}
		if err := d.notifier.Notify(ctx, NewMessage(n, now)); err != nil {
			d.metrics.NotificationFailed()
			d.log.WithError(err).WithField("reminder_id", n.Reminder.ID).Warn("Failed to send notification")
			errs = append(errs, err)
			continue
		}
		d.sent[key] = today
		d.metrics.NotificationSent()
		sent++
	}

	if sent > 0 {
		d.log.WithField("count", sent).Info("Sent reminder notifications")
	}
	return sent, errors.Join(errs...)
}

// Run dispatches immediately and then every interval until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("notification interval must be positive, got %s", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := d.DispatchOnce(ctx); err != nil && ctx.Err() == nil {
			d.log.WithError(err).Error("Notification dispatch failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
