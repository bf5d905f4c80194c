package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-scheduler-server/internal/models"
)

// CreateAppointmentInput carries everything needed to book a slot.
type CreateAppointmentInput struct {
	PatientID  string
	ProviderID string
	Start      time.Time
	End        time.Time
	Reason     string
}

// AppointmentPatch is a typed partial update. Nil fields are left
// untouched, so the set of updatable fields is enumerable and checked.
type AppointmentPatch struct {
	Status *models.AppointmentStatus
	Reason *string
	Start  *time.Time
	End    *time.Time
}

// AppointmentStore persists appointments. Every entry point that inserts
// or moves an appointment runs the slot validator first; there is no way
// to bypass validation.
type AppointmentStore struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewAppointmentStore creates a store on the given connection.
func NewAppointmentStore(db *gorm.DB, log zerolog.Logger) *AppointmentStore {
	return &AppointmentStore{db: db, log: log}
}

const createAttempts = 3

// Create validates and inserts a new Pending appointment in one
// transaction. The provider and patient rows are locked FOR UPDATE so two
// concurrent bookings for the same party serialize and cannot both pass
// validation; bookings for distinct providers do not contend. Lock
// contention is the only error class retried, with bounded backoff.
func (s *AppointmentStore) Create(ctx context.Context, in CreateAppointmentInput) (*models.Appointment, error) {
	var appt *models.Appointment
	var err error
	for attempt := 1; attempt <= createAttempts; attempt++ {
		appt, err = s.tryCreate(ctx, in)
		if err == nil || !isLockContention(err) {
			return appt, err
		}
		s.log.Warn().
			Int("attempt", attempt).
			Str("provider_id", in.ProviderID).
			Err(err).
			Msg("booking transaction hit lock contention, retrying")
		time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
	}
	return nil, err
}

func (s *AppointmentStore) tryCreate(ctx context.Context, in CreateAppointmentInput) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var provider models.User
		if err := forUpdate(tx).
			Where("id = ? AND role = ?", in.ProviderID, models.RoleProvider).
			First(&provider).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("provider %s: %w", in.ProviderID, ErrNotFound)
			}
			return err
		}

		var patient models.User
		if err := forUpdate(tx).
			Where("id = ? AND role = ?", in.PatientID, models.RolePatient).
			First(&patient).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("patient %s: %w", in.PatientID, ErrNotFound)
			}
			return err
		}

		if err := ValidateSlot(tx, in.ProviderID, in.PatientID, in.Start, in.End, ""); err != nil {
			return err
		}

		appt = models.Appointment{
			PatientID:  in.PatientID,
			ProviderID: in.ProviderID,
			StartTime:  in.Start,
			EndTime:    in.End,
			Reason:     in.Reason,
			Status:     models.StatusPending,
		}
		return tx.Create(&appt).Error
	})
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// GetByID fetches one appointment.
func (s *AppointmentStore) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.db.WithContext(ctx).First(&appt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// ListByProvider returns the provider's agenda with starts inside
// [from, to), ascending.
func (s *AppointmentStore) ListByProvider(ctx context.Context, providerID string, from, to time.Time) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.db.WithContext(ctx).
		Where("provider_id = ? AND start_time >= ? AND start_time < ?", providerID, from, to).
		Order("start_time asc").
		Find(&appts).Error
	return appts, err
}

// ListByPatient returns the patient's history with starts inside
// [from, to), most recent first.
func (s *AppointmentStore) ListByPatient(ctx context.Context, patientID string, from, to time.Time) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.db.WithContext(ctx).
		Where("patient_id = ? AND start_time >= ? AND start_time < ?", patientID, from, to).
		Order("start_time desc").
		Find(&appts).Error
	return appts, err
}

// ListUpcomingForPatient returns the patient's future appointments,
// soonest first.
func (s *AppointmentStore) ListUpcomingForPatient(ctx context.Context, patientID string) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.db.WithContext(ctx).
		Where("patient_id = ? AND start_time > ?", patientID, time.Now()).
		Order("start_time asc").
		Find(&appts).Error
	return appts, err
}

// ApplyPatch updates the non-nil fields of the patch. Time changes are
// re-validated through the slot validator with the appointment itself
// excluded from the overlap checks. Status changes obey the state machine;
// Attended cannot be reached here, only through recording a consultation.
func (s *AppointmentStore) ApplyPatch(ctx context.Context, id string, patch AppointmentPatch) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).
			First(&appt, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("appointment %s: %w", id, ErrNotFound)
			}
			return err
		}

		if patch.Status != nil && *patch.Status != appt.Status {
			if appt.Status.IsTerminal() || *patch.Status == models.StatusAttended {
				return ErrInvalidTransition
			}
			appt.Status = *patch.Status
		}
		if patch.Reason != nil {
			appt.Reason = *patch.Reason
		}

		if patch.Start != nil || patch.End != nil {
			if appt.Status != models.StatusPending {
				return ErrInvalidTransition
			}
			start := appt.StartTime
			end := appt.EndTime
			if patch.Start != nil {
				start = *patch.Start
			}
			if patch.End != nil {
				end = *patch.End
			}
			if err := ValidateSlot(tx, appt.ProviderID, appt.PatientID, start, end, appt.ID); err != nil {
				return err
			}
			appt.StartTime = start
			appt.EndTime = end
		}

		return tx.Save(&appt).Error
	})
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// Delete hard-deletes an appointment. Admin-only at the routing layer;
// regular flows cancel instead.
func (s *AppointmentStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Appointment{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	return nil
}

// forUpdate adds a FOR UPDATE clause on databases that support it. SQLite,
// used by the test suite, serializes writers on its own and rejects the
// clause.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// isLockContention reports whether the error is a transient storage-level
// locking failure worth retrying: MySQL lock wait timeout (1205) or
// deadlock (1213), or SQLite's busy error in tests.
func isLockContention(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1205 || mysqlErr.Number == 1213
	}
	return strings.Contains(err.Error(), "database is locked")
}
