package models

import (
	"time"
)

// Consultation is the clinical record written when an appointment is
// attended. The unique index on AppointmentID enforces the 1:1 relation.
type Consultation struct {
	BaseModel
	AppointmentID        string    `gorm:"size:36;uniqueIndex;not null" json:"appointmentId"`
	ConsultationDate     time.Time `json:"consultationDate"`
	Diagnosis            string    `gorm:"type:text" json:"diagnosis"`
	Treatment            string    `gorm:"type:text" json:"treatment"`
	ProviderPrivateNotes string    `gorm:"type:text" json:"-"` // visible to the provider only

	// Relations
	Appointment   Appointment    `gorm:"foreignKey:AppointmentID" json:"-"`
	Prescriptions []Prescription `gorm:"foreignKey:ConsultationID" json:"prescriptions,omitempty"`
}

// Prescription is a medication issued during a consultation.
type Prescription struct {
	BaseModel
	ConsultationID string    `gorm:"size:36;index;not null" json:"consultationId"`
	Medication     string    `gorm:"size:255;not null" json:"medication"`
	Dose           string    `gorm:"size:100" json:"dose"`
	Instructions   string    `gorm:"type:text" json:"instructions"`
	IssuedAt       time.Time `json:"issuedAt"`

	// Relations
	Consultation Consultation `gorm:"foreignKey:ConsultationID" json:"-"`
}
