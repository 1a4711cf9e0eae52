package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEnrollmentIsUnlocked(t *testing.T) {
	unitA := uuid.New()
	unitB := uuid.New()
	lectureX := uuid.New()
	lectureY := uuid.New()

	t.Run("nil enrollment unlocks nothing", func(t *testing.T) {
		var e *Enrollment
		assert.False(t, e.IsUnlocked(lectureX, unitA))
		assert.False(t, e.IsUnlocked(uuid.Nil, uuid.Nil))
	})

	t.Run("full access unlocks everything", func(t *testing.T) {
		e := &Enrollment{AccessType: AccessFull}
		assert.True(t, e.IsUnlocked(lectureX, unitA))
		assert.True(t, e.IsUnlocked(uuid.Nil, uuid.Nil))
	})

	t.Run("unlocked unit covers its lectures", func(t *testing.T) {
		e := &Enrollment{AccessType: AccessPartial, UnlockedUnits: []uuid.UUID{unitA}}
		assert.True(t, e.IsUnlocked(lectureX, unitA))
		assert.False(t, e.IsUnlocked(lectureX, unitB))
	})

	t.Run("unlocked lecture is item-scoped", func(t *testing.T) {
		e := &Enrollment{AccessType: AccessPartial, UnlockedLectures: []uuid.UUID{lectureX}}
		assert.True(t, e.IsUnlocked(lectureX, unitA))
		assert.False(t, e.IsUnlocked(lectureY, unitA))
	})

	t.Run("either list suffices", func(t *testing.T) {
		e := &Enrollment{
			AccessType:       AccessPartial,
			UnlockedUnits:    []uuid.UUID{unitB},
			UnlockedLectures: []uuid.UUID{lectureX},
		}
		assert.True(t, e.IsUnlocked(lectureX, unitA)) // lecture list
		assert.True(t, e.IsUnlocked(lectureY, unitB)) // unit list
		assert.False(t, e.IsUnlocked(lectureY, unitA))
	})

	t.Run("nil ids never match", func(t *testing.T) {
		e := &Enrollment{
			AccessType:       AccessPartial,
			UnlockedUnits:    []uuid.UUID{uuid.Nil},
			UnlockedLectures: []uuid.UUID{uuid.Nil},
		}
		assert.False(t, e.IsUnlocked(uuid.Nil, uuid.Nil))
	})
}
