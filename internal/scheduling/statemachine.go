package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"clinic-scheduler-server/internal/models"
	"clinic-scheduler-server/internal/notify"
)

// PrescriptionInput is one medication issued while recording a consultation.
type PrescriptionInput struct {
	Medication   string `json:"medication" binding:"required"`
	Dose         string `json:"dose"`
	Instructions string `json:"instructions"`
}

// ConsultationInput carries the clinical payload of the attend transition.
type ConsultationInput struct {
	Diagnosis     string              `json:"diagnosis"`
	Treatment     string              `json:"treatment"`
	PrivateNotes  string              `json:"privateNotes"`
	Prescriptions []PrescriptionInput `json:"prescriptions"`
}

// Lifecycle governs appointment status transitions and their side effects.
// Pending is the only initial state; Attended, Cancelled and NoShow are
// terminal.
type Lifecycle struct {
	db       *gorm.DB
	notifier notify.Notifier
	log      zerolog.Logger
}

// NewLifecycle creates a Lifecycle with the notifier used for the
// best-effort cancellation and booking messages.
func NewLifecycle(db *gorm.DB, notifier notify.Notifier, log zerolog.Logger) *Lifecycle {
	return &Lifecycle{db: db, notifier: notifier, log: log}
}

// RecordConsultation performs the only legal Pending -> Attended
// transition: one transaction sets the status and creates exactly one
// Consultation for the appointment. A second attempt fails with
// ErrConsultationAlreadyExists.
func (l *Lifecycle) RecordConsultation(ctx context.Context, appointmentID string, in ConsultationInput) (*models.Consultation, error) {
	var consultation models.Consultation
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		appt, err := lockAppointment(tx, appointmentID)
		if err != nil {
			return err
		}

		var existing models.Consultation
		err = tx.Where("appointment_id = ?", appointmentID).First(&existing).Error
		if err == nil {
			return ErrConsultationAlreadyExists
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if appt.Status != models.StatusPending {
			return ErrInvalidTransition
		}

		consultation = models.Consultation{
			AppointmentID:        appointmentID,
			ConsultationDate:     time.Now(),
			Diagnosis:            in.Diagnosis,
			Treatment:            in.Treatment,
			ProviderPrivateNotes: in.PrivateNotes,
		}
		if err := tx.Create(&consultation).Error; err != nil {
			return err
		}
		for _, p := range in.Prescriptions {
			prescription := models.Prescription{
				ConsultationID: consultation.ID,
				Medication:     p.Medication,
				Dose:           p.Dose,
				Instructions:   p.Instructions,
				IssuedAt:       time.Now(),
			}
			if err := tx.Create(&prescription).Error; err != nil {
				return err
			}
			consultation.Prescriptions = append(consultation.Prescriptions, prescription)
		}

		appt.Status = models.StatusAttended
		return tx.Save(appt).Error
	})
	if err != nil {
		return nil, err
	}
	return &consultation, nil
}

// Cancel moves a pending appointment to Cancelled, then notifies the party
// that did not initiate the cancellation. Notification failure never fails
// the cancellation.
func (l *Lifecycle) Cancel(ctx context.Context, appointmentID, actorUserID string) (*models.Appointment, error) {
	appt, err := l.transition(ctx, appointmentID, models.StatusCancelled)
	if err != nil {
		return nil, err
	}
	l.notifyCancellation(ctx, appt, actorUserID)
	return appt, nil
}

// MarkNoShow moves a pending appointment to NoShow.
func (l *Lifecycle) MarkNoShow(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	return l.transition(ctx, appointmentID, models.StatusNoShow)
}

func (l *Lifecycle) transition(ctx context.Context, appointmentID string, to models.AppointmentStatus) (*models.Appointment, error) {
	var appt *models.Appointment
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		appt, err = lockAppointment(tx, appointmentID)
		if err != nil {
			return err
		}
		if appt.Status != models.StatusPending {
			return ErrInvalidTransition
		}
		appt.Status = to
		return tx.Save(appt).Error
	})
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// ConfirmBooking sends the booking confirmation to each opted-in party and
// flips booking_notified. Safe to call more than once; only the first call
// after creation sends anything.
func (l *Lifecycle) ConfirmBooking(ctx context.Context, appointmentID string) error {
	appt, patient, provider, err := l.loadParties(ctx, appointmentID)
	if err != nil {
		return err
	}
	if appt.BookingNotified {
		return nil
	}

	when := appt.StartTime.Format("Mon 02 Jan 2006 15:04")
	if patient.RemindersEnabled {
		l.send(patient.Email, "Appointment confirmed",
			fmt.Sprintf("Dear %s, your appointment with %s on %s has been booked.",
				patient.FullName(), provider.FullName(), when))
	}
	if provider.RemindersEnabled {
		l.send(provider.Email, "Appointment booked",
			fmt.Sprintf("Dear %s, a new appointment with %s has been booked for %s.",
				provider.FullName(), patient.FullName(), when))
	}

	return l.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ?", appt.ID).
		UpdateColumn("booking_notified", true).Error
}

func (l *Lifecycle) notifyCancellation(ctx context.Context, appt *models.Appointment, actorUserID string) {
	_, patient, provider, err := l.loadParties(ctx, appt.ID)
	if err != nil {
		l.log.Error().Err(err).Str("appointment_id", appt.ID).
			Msg("could not resolve parties for cancellation notice")
		return
	}

	// Notify the party that did not cancel. An admin cancelling notifies both.
	when := appt.StartTime.Format("Mon 02 Jan 2006 15:04")
	if actorUserID != patient.ID && patient.RemindersEnabled {
		l.send(patient.Email, "Appointment cancelled",
			fmt.Sprintf("Dear %s, your appointment with %s on %s was cancelled.",
				patient.FullName(), provider.FullName(), when))
	}
	if actorUserID != provider.ID && provider.RemindersEnabled {
		l.send(provider.Email, "Appointment cancelled",
			fmt.Sprintf("Dear %s, the appointment with %s on %s was cancelled.",
				provider.FullName(), patient.FullName(), when))
	}
}

func (l *Lifecycle) loadParties(ctx context.Context, appointmentID string) (*models.Appointment, *models.User, *models.User, error) {
	var appt models.Appointment
	err := l.db.WithContext(ctx).First(&appt, "id = ?", appointmentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil, fmt.Errorf("appointment %s: %w", appointmentID, ErrNotFound)
	}
	if err != nil {
		return nil, nil, nil, err
	}

	var patient, provider models.User
	if err := l.db.WithContext(ctx).First(&patient, "id = ?", appt.PatientID).Error; err != nil {
		return nil, nil, nil, fmt.Errorf("patient %s: %w", appt.PatientID, ErrNotFound)
	}
	if err := l.db.WithContext(ctx).First(&provider, "id = ?", appt.ProviderID).Error; err != nil {
		return nil, nil, nil, fmt.Errorf("provider %s: %w", appt.ProviderID, ErrNotFound)
	}
	return &appt, &patient, &provider, nil
}

func (l *Lifecycle) send(to, subject, body string) {
	if err := l.notifier.Send(to, subject, body); err != nil {
		l.log.Warn().Err(err).Str("to", to).Msg("notification failed")
	}
}

func lockAppointment(tx *gorm.DB, id string) (*models.Appointment, error) {
	var appt models.Appointment
	err := forUpdate(tx).
		First(&appt, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("appointment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &appt, nil
}
