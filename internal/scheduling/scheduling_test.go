package scheduling

import (
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"clinic-scheduler-server/internal/models"
)

// newTestDB opens an in-memory SQLite database and migrates the schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrapping connection: %v", err)
	}
	// A pooled second connection would see its own empty :memory: database.
	sqlDB.SetMaxOpenConns(1)

	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, role models.Role, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:            email,
		FirstName:        "Test",
		LastName:         string(role),
		Role:             role,
		RemindersEnabled: true,
	}
	if err := user.SetPassword("password123"); err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("creating %s user: %v", role, err)
	}
	return user
}

func createProvider(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	return createUser(t, db, models.RoleProvider, email)
}

func createPatient(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	return createUser(t, db, models.RolePatient, email)
}

// disableReminders flips the opt-in flag off with a raw column update,
// because gorm omits zero-valued fields that carry a column default.
func disableReminders(t *testing.T, db *gorm.DB, userID string) {
	t.Helper()
	err := db.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("reminders_enabled", false).Error
	if err != nil {
		t.Fatalf("disabling reminders: %v", err)
	}
}

// insertAppointment writes an appointment row directly, bypassing slot
// validation, for tests that exercise behavior downstream of booking.
func insertAppointment(t *testing.T, db *gorm.DB, providerID, patientID string, start, end time.Time, status models.AppointmentStatus) *models.Appointment {
	t.Helper()
	appt := &models.Appointment{
		ProviderID: providerID,
		PatientID:  patientID,
		StartTime:  start,
		EndTime:    end,
		Status:     status,
	}
	if err := db.Create(appt).Error; err != nil {
		t.Fatalf("inserting appointment: %v", err)
	}
	return appt
}

func reloadAppointment(t *testing.T, db *gorm.DB, id string) *models.Appointment {
	t.Helper()
	var appt models.Appointment
	if err := db.First(&appt, "id = ?", id).Error; err != nil {
		t.Fatalf("reloading appointment %s: %v", id, err)
	}
	return &appt
}

// monday returns a fixed Monday (2030-03-04) at the given wall-clock time,
// matching weekday 0 in the availability convention.
func monday(hour, min int) time.Time {
	return time.Date(2030, time.March, 4, hour, min, 0, 0, time.UTC)
}

// sunday returns the Sunday of the same week (2030-03-10), weekday 6.
func sunday(hour, min int) time.Time {
	return time.Date(2030, time.March, 10, hour, min, 0, 0, time.UTC)
}

type notification struct {
	To      string
	Subject string
	Body    string
}

// notifierRecorder captures deliveries, or fails every send when err is set.
type notifierRecorder struct {
	mu   sync.Mutex
	sent []notification
	err  error
}

func (n *notifierRecorder) Send(to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, notification{To: to, Subject: subject, Body: body})
	return nil
}

func (n *notifierRecorder) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *notifierRecorder) recipients() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, msg := range n.sent {
		out = append(out, msg.To)
	}
	return out
}
