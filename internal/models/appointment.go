package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusAttended  AppointmentStatus = "attended"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

// IsTerminal reports whether no further status transitions are allowed.
// Pending is the only non-terminal status.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusAttended || s == StatusCancelled || s == StatusNoShow
}

// Appointment represents a booked slot between a patient and a provider.
// StartTime/EndTime are naive local timestamps in the facility timezone.
type Appointment struct {
	BaseModel
	PatientID       string            `gorm:"size:36;index" json:"patientId"`
	ProviderID      string            `gorm:"size:36;index" json:"providerId"`
	StartTime       time.Time         `gorm:"index" json:"startTime"`
	EndTime         time.Time         `json:"endTime"`
	Status          AppointmentStatus `gorm:"size:20;default:'pending'" json:"status"`
	Reason          string            `gorm:"size:255" json:"reason"`
	ReminderSent    bool              `gorm:"default:false" json:"reminderSent"`
	BookingNotified bool              `gorm:"default:false" json:"bookingNotified"`

	// Relations
	Patient  User `gorm:"foreignKey:PatientID" json:"-"`
	Provider User `gorm:"foreignKey:ProviderID" json:"-"`
}
