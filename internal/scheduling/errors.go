package scheduling

import "errors"

// Sentinel errors for every rejection the scheduling engine can produce.
// Handlers map these to HTTP status codes with errors.Is.
var (
	ErrInvalidTimeRange          = errors.New("end time must be after start time")
	ErrInvalidWeekday            = errors.New("weekday must be between 0 (Monday) and 6 (Sunday)")
	ErrOutsideAvailability       = errors.New("slot is outside the provider's availability")
	ErrProviderConflict          = errors.New("provider already has an appointment in that slot")
	ErrPatientConflict           = errors.New("patient already has an appointment in that slot")
	ErrNotFound                  = errors.New("record not found")
	ErrInvalidTransition         = errors.New("appointment status does not allow this transition")
	ErrConsultationAlreadyExists = errors.New("appointment already has a consultation recorded")
)
