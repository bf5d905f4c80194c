package scheduling

import (
	"time"

	"gorm.io/gorm"

	"clinic-scheduler-server/internal/models"
)

// ValidateSlot checks a candidate [start, end) slot for a provider/patient
// pair. It takes the database handle explicitly so the booking path can run
// it inside the same transaction that inserts the appointment.
//
// The containment and overlap checks are independent and both must run: a
// slot inside working hours can still collide with another booking, and a
// non-colliding slot can still fall outside hours. excludeApptID skips one
// appointment in the overlap checks, for re-validating a reschedule.
func ValidateSlot(db *gorm.DB, providerID, patientID string, start, end time.Time, excludeApptID string) error {
	if !end.After(start) {
		return ErrInvalidTimeRange
	}

	windows, err := windowsFor(db, providerID, weekdayIndex(start))
	if err != nil {
		return err
	}
	if !anyWindowContains(windows, start, end) {
		return ErrOutsideAvailability
	}

	conflict, err := hasOverlap(db, "provider_id", providerID, start, end, excludeApptID)
	if err != nil {
		return err
	}
	if conflict {
		return ErrProviderConflict
	}

	conflict, err = hasOverlap(db, "patient_id", patientID, start, end, excludeApptID)
	if err != nil {
		return err
	}
	if conflict {
		return ErrPatientConflict
	}

	return nil
}

// anyWindowContains succeeds if at least one window covers the whole slot
// by time of day.
func anyWindowContains(windows []models.AvailabilityWindow, start, end time.Time) bool {
	startMin := minuteOfDay(start)
	endMin := minuteOfDay(end)
	for _, win := range windows {
		winStart, err := parseClock(win.StartClock)
		if err != nil {
			continue // malformed rows never admit a slot
		}
		winEnd, err := parseClock(win.EndClock)
		if err != nil {
			continue
		}
		if winStart <= startMin && winEnd >= endMin {
			return true
		}
	}
	return false
}

// hasOverlap tests half-open interval intersection against the party's
// non-cancelled appointments: [a,b) and [c,d) overlap iff a < d && c < b.
// Back-to-back appointments therefore never conflict, and a cancelled
// appointment frees its slot for rebooking.
func hasOverlap(db *gorm.DB, column, partyID string, start, end time.Time, excludeApptID string) (bool, error) {
	query := db.Model(&models.Appointment{}).
		Where(column+" = ?", partyID).
		Where("status <> ?", models.StatusCancelled).
		Where("start_time < ? AND end_time > ?", end, start)
	if excludeApptID != "" {
		query = query.Where("id <> ?", excludeApptID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
