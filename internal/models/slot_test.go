package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlotComputeStatus(t *testing.T) {
	slot := Slot{MaxCapacity: 2, CurrentBookings: 0}
	assert.Equal(t, SlotStatusAvailable, slot.ComputeStatus())

	slot.CurrentBookings = 2
	assert.Equal(t, SlotStatusFullyBooked, slot.ComputeStatus())

	slot.Status = SlotStatusBlocked
	assert.Equal(t, SlotStatusBlocked, slot.ComputeStatus())
}

func TestSlotCountersConsistent(t *testing.T) {
	slot := Slot{MaxCapacity: 4, CurrentBookings: 3, InPersonBookings: 2, TeleBookings: 1}
	assert.True(t, slot.CountersConsistent())

	slot.TeleBookings = 2
	assert.False(t, slot.CountersConsistent())

	slot = Slot{MaxCapacity: 2, CurrentBookings: 3, InPersonBookings: 3}
	assert.False(t, slot.CountersConsistent())
}

func TestSlotRemainingSingleMode(t *testing.T) {
	slot := Slot{ConsultationMode: ModeInPerson, MaxCapacity: 3, CurrentBookings: 1, InPersonBookings: 1}

	assert.Equal(t, 2, slot.Remaining(ModeInPerson, 0, 0))
	assert.Equal(t, 1, slot.Remaining(ModeInPerson, 1, 1))
	// The other mode is never bookable on a single-mode slot.
	assert.Equal(t, 0, slot.ModeCapacity(ModeTele))
}

func TestSlotRemainingBothModesBoundedByTotal(t *testing.T) {
	slot := Slot{
		ConsultationMode:    ModeBoth,
		MaxCapacity:         4,
		MaxInPersonCapacity: 3,
		MaxTeleCapacity:     1,
		CurrentBookings:     2,
		InPersonBookings:    1,
		TeleBookings:        1,
	}

	// In-person sub-capacity says 2, but only 2 total remain minus holds.
	assert.Equal(t, 2, slot.Remaining(ModeInPerson, 0, 0))
	assert.Equal(t, 1, slot.Remaining(ModeInPerson, 0, 1))
	// Tele sub-capacity is exhausted regardless of total headroom.
	assert.Equal(t, 0, slot.Remaining(ModeTele, 0, 0))
}

func TestHoldActiveAt(t *testing.T) {
	now := time.Now().UTC()
	hold := TentativeHold{Status: HoldStatusActive, ExpiresAt: now.Add(time.Minute)}

	assert.True(t, hold.ActiveAt(now))
	// Overdue holds stop counting even before the sweep flips the status.
	assert.False(t, hold.ActiveAt(now.Add(2*time.Minute)))

	hold.Status = HoldStatusReleased
	assert.False(t, hold.ActiveAt(now))
}

func TestHoldTypeValid(t *testing.T) {
	assert.True(t, HoldTypePatient.Valid())
	assert.True(t, HoldTypeAdmin.Valid())
	assert.True(t, HoldTypeSystem.Valid())
	assert.False(t, HoldType("walk_in").Valid())
}
