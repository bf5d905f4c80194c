package scheduling

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"clinic-scheduler-server/internal/models"
)

func TestRecordConsultation(t *testing.T) {
	db := newTestDB(t)
	provider := createProvider(t, db, "dr.consult@clinic.test")
	patient := createPatient(t, db, "consult@clinic.test")
	lifecycle := NewLifecycle(db, &notifierRecorder{}, zerolog.Nop())
	ctx := context.Background()

	appt := insertAppointment(t, db, provider.ID, patient.ID, monday(9, 0), monday(9, 30), models.StatusPending)

	consultation, err := lifecycle.RecordConsultation(ctx, appt.ID, ConsultationInput{
		Diagnosis: "seasonal allergy",
		Treatment: "antihistamines",
		Prescriptions: []PrescriptionInput{
			{Medication: "loratadine", Dose: "10mg", Instructions: "once daily"},
			{Medication: "saline spray", Instructions: "as needed"},
		},
	})
	if err != nil {
		t.Fatalf("RecordConsultation: %v", err)
	}
	if consultation.ID == "" {
		t.Fatal("consultation has no id")
	}
	if consultation.Diagnosis != "seasonal allergy" {
		t.Errorf("diagnosis = %q, want %q", consultation.Diagnosis, "seasonal allergy")
	}
	if len(consultation.Prescriptions) != 2 {
		t.Errorf("got %d prescriptions, want 2", len(consultation.Prescriptions))
	}

	if got := reloadAppointment(t, db, appt.ID); got.Status != models.StatusAttended {
		t.Errorf("appointment status = %s, want %s", got.Status, models.StatusAttended)
	}
}

func TestRecordConsultationTwice(t *testing.T) {
	db := newTestDB(t)
	provider := createProvider(t, db, "dr.twice@clinic.test")
	patient := createPatient(t, db, "twice@clinic.test")
	lifecycle := NewLifecycle(db, &notifierRecorder{}, zerolog.Nop())
	ctx := context.Background()

	appt := insertAppointment(t, db, provider.ID, patient.ID, monday(9, 0), monday(9, 30), models.StatusPending)

	if _, err := lifecycle.RecordConsultation(ctx, appt.ID, ConsultationInput{Diagnosis: "first"}); err != nil {
		t.Fatalf("first RecordConsultation: %v", err)
	}

	_, err := lifecycle.RecordConsultation(ctx, appt.ID, ConsultationInput{Diagnosis: "second"})
	if !errors.Is(err, ErrConsultationAlreadyExists) {
		t.Errorf("second RecordConsultation: error = %v, want %v", err, ErrConsultationAlreadyExists)
	}

	var count int64
	if err := db.Model(&models.Consultation{}).Where("appointment_id = ?", appt.ID).Count(&count).Error; err != nil {
		t.Fatalf("counting consultations: %v", err)
	}
	if count != 1 {
		t.Errorf("appointment has %d consultations, want 1", count)
	}
}

func TestRecordConsultationRequiresPending(t *testing.T) {
	db := newTestDB(t)
	provider := createProvider(t, db, "dr.pending@clinic.test")
	patient := createPatient(t, db, "pending@clinic.test")
	lifecycle := NewLifecycle(db, &notifierRecorder{}, zerolog.Nop())
	ctx := context.Background()

	appt := insertAppointment(t, db, provider.ID, patient.ID, monday(9, 0), monday(9, 30), models.StatusCancelled)

	if _, err := lifecycle.RecordConsultation(ctx, appt.ID, ConsultationInput{}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("attending a cancelled appointment: error = %v, want %v", err, ErrInvalidTransition)
	}
	if _, err := lifecycle.RecordConsultation(ctx, "missing", ConsultationInput{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("attending a missing appointment: error = %v, want %v", err, ErrNotFound)
	}
}

func TestTerminalStatesRejectTransitions(t *testing.T) {
	db := newTestDB(t)
	provider := createProvider(t, db, "dr.terminal@clinic.test")
	patient := createPatient(t, db, "terminal@clinic.test")
	lifecycle := NewLifecycle(db, &notifierRecorder{}, zerolog.Nop())
	ctx := context.Background()

	for _, status := range []models.AppointmentStatus{
		models.StatusAttended,
		models.StatusCancelled,
		models.StatusNoShow,
	} {
		t.Run(string(status), func(t *testing.T) {
			appt := insertAppointment(t, db, provider.ID, patient.ID, monday(9, 0), monday(9, 30), status)

			if _, err := lifecycle.Cancel(ctx, appt.ID, patient.ID); !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("Cancel: error = %v, want %v", err, ErrInvalidTransition)
			}
			if _, err := lifecycle.MarkNoShow(ctx, appt.ID); !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("MarkNoShow: error = %v, want %v", err, ErrInvalidTransition)
			}
			if got := reloadAppointment(t, db, appt.ID); got.Status != status {
				t.Errorf("status changed to %s despite rejection", got.Status)
			}
		})
	}
}

func TestMarkNoShow(t *testing.T) {
	db := newTestDB(t)
	provider := createProvider(t, db, "dr.noshow@clinic.test")
	patient := createPatient(t, db, "noshow@clinic.test")
	lifecycle := NewLifecycle(db, &notifierRecorder{}, zerolog.Nop())

	appt := insertAppointment(t, db, provider.ID, patient.ID, monday(9, 0), monday(9, 30), models.StatusPending)

	updated, err := lifecycle.MarkNoShow(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("MarkNoShow: %v", err)
	}
	if updated.Status != models.StatusNoShow {
		t.Errorf("status = %s, want %s", updated.Status, models.StatusNoShow)
	}
}

func TestCancelNotifiesOtherParty(t *testing.T) {
	db := newTestDB(t)
	provider := createProvider(t, db, "dr.cancel@clinic.test")
	patient := createPatient(t, db, "cancel@clinic.test")
	rec := &notifierRecorder{}
	lifecycle := NewLifecycle(db, rec, zerolog.Nop())
	ctx := context.Background()

	appt := insertAppointment(t, db, provider.ID, patient.ID, monday(9, 0), monday(9, 30), models.StatusPending)

	updated, err := lifecycle.Cancel(ctx, appt.ID, patient.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if updated.Status != models.StatusCancelled {
		t.Errorf("status = %s, want %s", updated.Status, models.StatusCancelled)
	}

	got := rec.recipients()
	if len(got) != 1 || got[0] != provider.Email {
		t.Errorf("notified %v, want only the provider %s", got, provider.Email)
	}
}

func TestCancelByAdminNotifiesBothParties(t *testing.T) {
	db := newTestDB(t)
	provider := createProvider(t, db, "dr.admincancel@clinic.test")
	patient := createPatient(t, db, "admincancel@clinic.test")
	admin := createUser(t, db, models.RoleAdmin, "admin@clinic.test")
	rec := &notifierRecorder{}
	lifecycle := NewLifecycle(db, rec, zerolog.Nop())

	appt := insertAppointment(t, db, provider.ID, patient.ID, monday(9, 0), monday(9, 30), models.StatusPending)

	if _, err := lifecycle.Cancel(context.Background(), appt.ID, admin.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if rec.count() != 2 {
		t.Errorf("admin cancellation sent %d notices, want 2", rec.count())
	}
}

func TestConfirmBookingSendsOnce(t *testing.T) {
	db := newTestDB(t)
	provider := createProvider(t, db, "dr.confirm@clinic.test")
	patient := createPatient(t, db, "confirm@clinic.test")
	rec := &notifierRecorder{}
	lifecycle := NewLifecycle(db, rec, zerolog.Nop())
	ctx := context.Background()

	appt := insertAppointment(t, db, provider.ID, patient.ID, monday(9, 0), monday(9, 30), models.StatusPending)

	if err := lifecycle.ConfirmBooking(ctx, appt.ID); err != nil {
		t.Fatalf("ConfirmBooking: %v", err)
	}
	if rec.count() != 2 {
		t.Fatalf("confirmation sent %d notices, want 2", rec.count())
	}
	if got := reloadAppointment(t, db, appt.ID); !got.BookingNotified {
		t.Error("booking_notified not set after confirmation")
	}

	if err := lifecycle.ConfirmBooking(ctx, appt.ID); err != nil {
		t.Fatalf("second ConfirmBooking: %v", err)
	}
	if rec.count() != 2 {
		t.Errorf("second confirmation re-sent notices, total %d", rec.count())
	}
}

func TestConfirmBookingRespectsOptOut(t *testing.T) {
	db := newTestDB(t)
	provider := createProvider(t, db, "dr.optout@clinic.test")
	patient := createPatient(t, db, "optout@clinic.test")
	disableReminders(t, db, patient.ID)
	rec := &notifierRecorder{}
	lifecycle := NewLifecycle(db, rec, zerolog.Nop())

	appt := insertAppointment(t, db, provider.ID, patient.ID, monday(9, 0), monday(9, 30), models.StatusPending)

	if err := lifecycle.ConfirmBooking(context.Background(), appt.ID); err != nil {
		t.Fatalf("ConfirmBooking: %v", err)
	}
	got := rec.recipients()
	if len(got) != 1 || got[0] != provider.Email {
		t.Errorf("notified %v, want only the provider %s", got, provider.Email)
	}
}

func TestCancelSurvivesNotifierFailure(t *testing.T) {
	db := newTestDB(t)
	provider := createProvider(t, db, "dr.faildelivery@clinic.test")
	patient := createPatient(t, db, "faildelivery@clinic.test")
	rec := &notifierRecorder{err: errors.New("smtp connection refused")}
	lifecycle := NewLifecycle(db, rec, zerolog.Nop())

	appt := insertAppointment(t, db, provider.ID, patient.ID, monday(9, 0), monday(9, 30), models.StatusPending)

	updated, err := lifecycle.Cancel(context.Background(), appt.ID, patient.ID)
	if err != nil {
		t.Fatalf("Cancel with failing notifier: %v", err)
	}
	if updated.Status != models.StatusCancelled {
		t.Errorf("status = %s, want %s", updated.Status, models.StatusCancelled)
	}
}

// Guards against the consultation check relying on a preloaded relation
// instead of a query.
func TestConsultationLookupHitsDatabase(t *testing.T) {
	db := newTestDB(t)
	provider := createProvider(t, db, "dr.lookup@clinic.test")
	patient := createPatient(t, db, "lookup@clinic.test")
	lifecycle := NewLifecycle(db, &notifierRecorder{}, zerolog.Nop())
	ctx := context.Background()

	appt := insertAppointment(t, db, provider.ID, patient.ID, monday(9, 0), monday(9, 30), models.StatusPending)
	if err := db.Create(&models.Consultation{AppointmentID: appt.ID, ConsultationDate: monday(9, 0)}).Error; err != nil {
		t.Fatalf("inserting consultation: %v", err)
	}

	_, err := lifecycle.RecordConsultation(ctx, appt.ID, ConsultationInput{})
	if !errors.Is(err, ErrConsultationAlreadyExists) {
		t.Errorf("error = %v, want %v", err, ErrConsultationAlreadyExists)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		t.Error("gorm sentinel leaked out of the lifecycle")
	}
}
