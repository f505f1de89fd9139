package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReminderType_ConfigCoversAllTypes(t *testing.T) {
	for _, rt := range AllReminderTypes {
		cfg, ok := rt.Config()
		assert.True(t, ok, "missing config for %s", rt)
		assert.NotEmpty(t, cfg.Label, rt)
		assert.NotEmpty(t, cfg.Color, rt)
		assert.NotEmpty(t, cfg.Icon, rt)
		assert.NotEmpty(t, cfg.DefaultReminderDays, rt)
	}
}

func TestIsValidReminderType(t *testing.T) {
	assert.True(t, IsValidReminderType(ReminderPEPDue))
	assert.False(t, IsValidReminderType("oil_leak"))
	assert.False(t, IsValidReminderType(""))
}

func TestIsValidPriority(t *testing.T) {
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical} {
		assert.True(t, IsValidPriority(p), p)
	}
	assert.False(t, IsValidPriority("urgent"))
}

func TestReminder_CloneIsDeep(t *testing.T) {
	done := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	r := &Reminder{ID: "r1", ReminderDays: []int{7, 1}, CompletedAt: &done}

	c := r.Clone()
	c.ReminderDays[0] = 99
	*c.CompletedAt = done.AddDate(0, 0, 1)

	assert.Equal(t, []int{7, 1}, r.ReminderDays)
	assert.Equal(t, done, *r.CompletedAt)
}
