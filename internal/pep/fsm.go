package pep

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/ukydev/fleet-maintenance/internal/models"
)

const (
	// EventComplete (draft -> completed) is fired when the inspector finalizes the form.
	EventComplete = "complete"
	// EventSign (completed -> signed) is fired when the technician signs.
	EventSign = "sign"
)

// StatusMachine drives a form through draft -> completed -> signed.
type StatusMachine struct {
	*fsm.FSM
}

// NewStatusMachine creates a machine positioned at initial.
func NewStatusMachine(initial models.FormStatus) *StatusMachine {
	m := &StatusMachine{}

	events := fsm.Events{
		{Name: EventComplete, Src: []string{string(models.FormStatusDraft)}, Dst: string(models.FormStatusCompleted)},
		{Name: EventSign, Src: []string{string(models.FormStatusCompleted)}, Dst: string(models.FormStatusSigned)},
	}

	callbacks := fsm.Callbacks{
		"enter_state": wrapEvent(m.actionEnterState),
	}

	m.FSM = fsm.NewFSM(string(initial), events, callbacks)
	return m
}

// actionEnterState copies the new state onto the form passed as the first event argument.
func (m *StatusMachine) actionEnterState(ctx context.Context, e *fsm.Event) error {
	if len(e.Args) == 0 {
		return nil
	}
	form, ok := e.Args[0].(*models.MaintenanceForm)
	if !ok {
		return fmt.Errorf("unexpected event argument %T", e.Args[0])
	}
	form.Status = models.FormStatus(e.Dst)
	return nil
}

func wrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Err = err
		}
	}
}

func eventFor(target models.FormStatus) (string, bool) {
	switch target {
	case models.FormStatusCompleted:
		return EventComplete, true
	case models.FormStatusSigned:
		return EventSign, true
	default:
		return "", false
	}
}

// Transition moves form to target. Moving backwards, staying in place or
// skipping a state fails with models.ErrValidation and leaves form unchanged.
func Transition(ctx context.Context, form *models.MaintenanceForm, target models.FormStatus) error {
	if !models.IsValidFormStatus(target) {
		return fmt.Errorf("%w: unknown form status %q", models.ErrValidation, target)
	}
	if target.Rank() < form.Status.Rank() {
		return fmt.Errorf("%w: form %s cannot go back from %s to %s", models.ErrValidation, form.ID, form.Status, target)
	}
	if target == form.Status {
		return fmt.Errorf("%w: form %s is already %s", models.ErrValidation, form.ID, target)
	}
	event, ok := eventFor(target)
	if !ok {
		return fmt.Errorf("%w: no transition into %s", models.ErrValidation, target)
	}

	m := NewStatusMachine(form.Status)
	if err := m.Event(ctx, event, form); err != nil {
		return fmt.Errorf("%w: form %s cannot move from %s to %s: %v", models.ErrValidation, form.ID, form.Status, target, err)
	}
	return nil
}
