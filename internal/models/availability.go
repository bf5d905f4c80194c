package models

// AvailabilityWindow is one recurring weekly block during which a provider
// accepts appointments. Weekday runs 0 (Monday) through 6 (Sunday); the
// clock fields hold zero-padded "HH:MM" local times.
type AvailabilityWindow struct {
	BaseModel
	ProviderID          string `gorm:"size:36;index" json:"providerId"`
	Weekday             int    `gorm:"not null" json:"weekday"`
	StartClock          string `gorm:"size:5;not null" json:"startTime"`
	EndClock            string `gorm:"size:5;not null" json:"endTime"`
	SlotDurationMinutes int    `gorm:"default:30" json:"slotDurationMinutes"`

	// Relations
	Provider User `gorm:"foreignKey:ProviderID" json:"-"`
}
