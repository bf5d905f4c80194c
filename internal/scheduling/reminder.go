package scheduling

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"clinic-scheduler-server/internal/models"
	"clinic-scheduler-server/internal/notify"
)

// ReminderScheduler periodically scans pending appointments starting within
// the lookahead horizon and sends each party at most one reminder attempt.
// Delivery is best-effort: the reminder_sent flag flips after the attempt
// whether or not every message went out, so a later sweep never re-sends.
type ReminderScheduler struct {
	db        *gorm.DB
	notifier  notify.Notifier
	interval  time.Duration
	lookahead time.Duration
	log       zerolog.Logger

	// now is swappable so tests can drive a fixed clock.
	now func() time.Time

	sweeping atomic.Bool
}

// NewReminderScheduler builds the worker. It does not start anything;
// call Run, or Sweep directly for a synchronous one-shot.
func NewReminderScheduler(db *gorm.DB, notifier notify.Notifier, interval, lookahead time.Duration, log zerolog.Logger) *ReminderScheduler {
	return &ReminderScheduler{
		db:        db,
		notifier:  notifier,
		interval:  interval,
		lookahead: lookahead,
		log:       log,
		now:       time.Now,
	}
}

// Run ticks until the context is cancelled. The tick in flight when
// cancellation arrives finishes its per-appointment work; nothing is left
// half-updated.
func (r *ReminderScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info().Dur("interval", r.interval).Msg("reminder scheduler started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("reminder scheduler stopped")
			return
		case <-ticker.C:
			count, err := r.Sweep(ctx)
			if err != nil {
				r.log.Error().Err(err).Msg("reminder sweep failed")
				continue
			}
			if count > 0 {
				r.log.Info().Int("processed", count).Msg("reminder sweep complete")
			}
		}
	}
}

// Sweep runs one scan and returns the number of appointments processed.
// Only one sweep may be in flight at a time; a call that overlaps a
// running sweep no-ops and returns zero. Each appointment's flag update is
// its own write, so a crash mid-sweep never leaves a single appointment
// half-processed.
func (r *ReminderScheduler) Sweep(ctx context.Context) (int, error) {
	if !r.sweeping.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer r.sweeping.Store(false)

	now := r.now()
	horizon := now.Add(r.lookahead)

	var due []models.Appointment
	err := r.db.WithContext(ctx).
		Where("status = ? AND reminder_sent = ? AND start_time >= ? AND start_time < ?",
			models.StatusPending, false, now, horizon).
		Order("start_time asc").
		Find(&due).Error
	if err != nil {
		return 0, fmt.Errorf("querying due reminders: %w", err)
	}

	processed := 0
	for _, appt := range due {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		r.remind(ctx, &appt)
		processed++
	}
	return processed, nil
}

// remind resolves both parties, sends to whoever opted in, then flips the
// flag with a single keyed write. One failing recipient never blocks the
// flag nor the rest of the sweep.
func (r *ReminderScheduler) remind(ctx context.Context, appt *models.Appointment) {
	var patient, provider models.User
	patientErr := r.db.WithContext(ctx).First(&patient, "id = ?", appt.PatientID).Error
	providerErr := r.db.WithContext(ctx).First(&provider, "id = ?", appt.ProviderID).Error

	when := appt.StartTime.Format("Mon 02 Jan 2006 15:04")
	if patientErr == nil && providerErr == nil {
		if patient.RemindersEnabled {
			r.send(patient.Email, "Appointment reminder",
				fmt.Sprintf("Dear %s, this is a reminder of your appointment with %s on %s.",
					patient.FullName(), provider.FullName(), when))
		}
		if provider.RemindersEnabled {
			r.send(provider.Email, "Appointment reminder",
				fmt.Sprintf("Dear %s, this is a reminder of your appointment with %s on %s.",
					provider.FullName(), patient.FullName(), when))
		}
	} else {
		r.log.Error().
			Str("appointment_id", appt.ID).
			AnErr("patient_err", patientErr).
			AnErr("provider_err", providerErr).
			Msg("could not resolve parties for reminder")
	}

	err := r.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ? AND reminder_sent = ?", appt.ID, false).
		UpdateColumn("reminder_sent", true).Error
	if err != nil {
		r.log.Error().Err(err).Str("appointment_id", appt.ID).
			Msg("failed to mark reminder as sent")
	}
}

func (r *ReminderScheduler) send(to, subject, body string) {
	if err := r.notifier.Send(to, subject, body); err != nil {
		r.log.Warn().Err(err).Str("to", to).Msg("reminder delivery failed")
	}
}
