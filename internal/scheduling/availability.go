package scheduling

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"clinic-scheduler-server/internal/models"
)

// WindowInput is one recurring weekly block in a bulk replace request.
type WindowInput struct {
	Weekday             int    `json:"weekday"`
	StartClock          string `json:"startTime"`
	EndClock            string `json:"endTime"`
	SlotDurationMinutes int    `json:"slotDurationMinutes"`
}

// Catalog owns the recurring weekly availability windows of every provider.
type Catalog struct {
	db *gorm.DB
}

// NewCatalog creates a new Catalog on the given connection.
func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// SetWindows atomically replaces the provider's entire window set. Windows
// are never edited individually; an edit is delete-then-recreate.
func (cat *Catalog) SetWindows(ctx context.Context, providerID string, windows []WindowInput) ([]models.AvailabilityWindow, error) {
	for _, w := range windows {
		if err := validateWindow(w); err != nil {
			return nil, err
		}
	}

	var created []models.AvailabilityWindow
	err := cat.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireProvider(tx, providerID); err != nil {
			return err
		}
		if err := tx.Where("provider_id = ?", providerID).
			Delete(&models.AvailabilityWindow{}).Error; err != nil {
			return err
		}
		for _, w := range windows {
			duration := w.SlotDurationMinutes
			if duration <= 0 {
				duration = 30
			}
			win := models.AvailabilityWindow{
				ProviderID:          providerID,
				Weekday:             w.Weekday,
				StartClock:          w.StartClock,
				EndClock:            w.EndClock,
				SlotDurationMinutes: duration,
			}
			if err := tx.Create(&win).Error; err != nil {
				return err
			}
			created = append(created, win)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// WindowsFor returns the provider's windows for one weekday, ordered by
// start time. The list may be empty.
func (cat *Catalog) WindowsFor(ctx context.Context, providerID string, weekday int) ([]models.AvailabilityWindow, error) {
	if weekday < 0 || weekday > 6 {
		return nil, ErrInvalidWeekday
	}
	return windowsFor(cat.db.WithContext(ctx), providerID, weekday)
}

// WindowsForProvider returns the provider's full weekly template.
func (cat *Catalog) WindowsForProvider(ctx context.Context, providerID string) ([]models.AvailabilityWindow, error) {
	var windows []models.AvailabilityWindow
	err := cat.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("weekday asc, start_clock asc").
		Find(&windows).Error
	return windows, err
}

// DefaultWindowsFor seeds Monday through Friday 09:00-17:00 with 30-minute
// slots for a newly onboarded provider. A convenience, not a business rule.
func (cat *Catalog) DefaultWindowsFor(ctx context.Context, providerID string) ([]models.AvailabilityWindow, error) {
	defaults := make([]WindowInput, 0, 5)
	for weekday := 0; weekday < 5; weekday++ {
		defaults = append(defaults, WindowInput{
			Weekday:             weekday,
			StartClock:          "09:00",
			EndClock:            "17:00",
			SlotDurationMinutes: 30,
		})
	}
	return cat.SetWindows(ctx, providerID, defaults)
}

func validateWindow(w WindowInput) error {
	if w.Weekday < 0 || w.Weekday > 6 {
		return ErrInvalidWeekday
	}
	start, err := parseClock(w.StartClock)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTimeRange, err)
	}
	end, err := parseClock(w.EndClock)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTimeRange, err)
	}
	if start >= end {
		return ErrInvalidTimeRange
	}
	return nil
}

// windowsFor runs on the supplied handle so the booking transaction can
// read windows through its own tx.
func windowsFor(db *gorm.DB, providerID string, weekday int) ([]models.AvailabilityWindow, error) {
	var windows []models.AvailabilityWindow
	err := db.
		Where("provider_id = ? AND weekday = ?", providerID, weekday).
		Order("start_clock asc").
		Find(&windows).Error
	return windows, err
}

// requireProvider verifies the id belongs to a provider-role user.
func requireProvider(db *gorm.DB, providerID string) error {
	var provider models.User
	err := db.Where("id = ? AND role = ?", providerID, models.RoleProvider).First(&provider).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("provider %s: %w", providerID, ErrNotFound)
	}
	return err
}
