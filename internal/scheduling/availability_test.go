package scheduling

import (
	"context"
	"errors"
	"testing"
)

func TestSetWindowsReplacesExistingSet(t *testing.T) {
	db := newTestDB(t)
	provider := createProvider(t, db, "dr.replace@clinic.test")
	cat := NewCatalog(db)
	ctx := context.Background()

	_, err := cat.SetWindows(ctx, provider.ID, []WindowInput{
		{Weekday: 0, StartClock: "09:00", EndClock: "12:00"},
		{Weekday: 2, StartClock: "14:00", EndClock: "18:00", SlotDurationMinutes: 20},
	})
	if err != nil {
		t.Fatalf("seeding initial windows: %v", err)
	}

	created, err := cat.SetWindows(ctx, provider.ID, []WindowInput{
		{Weekday: 4, StartClock: "08:00", EndClock: "13:00"},
	})
	if err != nil {
		t.Fatalf("replacing windows: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("created %d windows, want 1", len(created))
	}
	if created[0].SlotDurationMinutes != 30 {
		t.Errorf("slot duration = %d, want default 30", created[0].SlotDurationMinutes)
	}

	all, err := cat.WindowsForProvider(ctx, provider.ID)
	if err != nil {
		t.Fatalf("listing windows: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("provider has %d windows after replace, want 1", len(all))
	}
	if all[0].Weekday != 4 || all[0].StartClock != "08:00" {
		t.Errorf("surviving window = weekday %d %s, want weekday 4 08:00", all[0].Weekday, all[0].StartClock)
	}
}

func TestSetWindowsValidation(t *testing.T) {
	db := newTestDB(t)
	provider := createProvider(t, db, "dr.validate@clinic.test")
	cat := NewCatalog(db)
	ctx := context.Background()

	tests := []struct {
		name    string
		window  WindowInput
		wantErr error
	}{
		{"weekday below range", WindowInput{Weekday: -1, StartClock: "09:00", EndClock: "10:00"}, ErrInvalidWeekday},
		{"weekday above range", WindowInput{Weekday: 7, StartClock: "09:00", EndClock: "10:00"}, ErrInvalidWeekday},
		{"start after end", WindowInput{Weekday: 0, StartClock: "17:00", EndClock: "09:00"}, ErrInvalidTimeRange},
		{"zero-length window", WindowInput{Weekday: 0, StartClock: "09:00", EndClock: "09:00"}, ErrInvalidTimeRange},
		{"malformed clock", WindowInput{Weekday: 0, StartClock: "9am", EndClock: "10:00"}, ErrInvalidTimeRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cat.SetWindows(ctx, provider.ID, []WindowInput{tt.window})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SetWindows() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	all, err := cat.WindowsForProvider(ctx, provider.ID)
	if err != nil {
		t.Fatalf("listing windows: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("rejected requests persisted %d windows, want 0", len(all))
	}
}

func TestSetWindowsRequiresProviderRole(t *testing.T) {
	db := newTestDB(t)
	patient := createPatient(t, db, "pat.windows@clinic.test")
	cat := NewCatalog(db)
	ctx := context.Background()

	windows := []WindowInput{{Weekday: 0, StartClock: "09:00", EndClock: "10:00"}}

	if _, err := cat.SetWindows(ctx, "no-such-id", windows); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown provider: error = %v, want %v", err, ErrNotFound)
	}
	if _, err := cat.SetWindows(ctx, patient.ID, windows); !errors.Is(err, ErrNotFound) {
		t.Errorf("patient id: error = %v, want %v", err, ErrNotFound)
	}
}

func TestDefaultWindows(t *testing.T) {
	db := newTestDB(t)
	provider := createProvider(t, db, "dr.defaults@clinic.test")
	cat := NewCatalog(db)

	created, err := cat.DefaultWindowsFor(context.Background(), provider.ID)
	if err != nil {
		t.Fatalf("seeding defaults: %v", err)
	}
	if len(created) != 5 {
		t.Fatalf("created %d default windows, want 5 (Mon-Fri)", len(created))
	}
	for i, win := range created {
		if win.Weekday != i {
			t.Errorf("window %d weekday = %d, want %d", i, win.Weekday, i)
		}
		if win.StartClock != "09:00" || win.EndClock != "17:00" {
			t.Errorf("window %d = %s-%s, want 09:00-17:00", i, win.StartClock, win.EndClock)
		}
		if win.SlotDurationMinutes != 30 {
			t.Errorf("window %d slot duration = %d, want 30", i, win.SlotDurationMinutes)
		}
	}
}

func TestWindowsForWeekday(t *testing.T) {
	db := newTestDB(t)
	provider := createProvider(t, db, "dr.weekday@clinic.test")
	cat := NewCatalog(db)
	ctx := context.Background()

	_, err := cat.SetWindows(ctx, provider.ID, []WindowInput{
		{Weekday: 1, StartClock: "13:00", EndClock: "17:00"},
		{Weekday: 1, StartClock: "08:00", EndClock: "12:00"},
		{Weekday: 3, StartClock: "10:00", EndClock: "14:00"},
	})
	if err != nil {
		t.Fatalf("seeding windows: %v", err)
	}

	windows, err := cat.WindowsFor(ctx, provider.ID, 1)
	if err != nil {
		t.Fatalf("WindowsFor: %v", err)
	}
	if len(windows) != 2 {
		t.Fatalf("got %d windows for Tuesday, want 2", len(windows))
	}
	if windows[0].StartClock != "08:00" || windows[1].StartClock != "13:00" {
		t.Errorf("windows not ordered by start: %s, %s", windows[0].StartClock, windows[1].StartClock)
	}

	empty, err := cat.WindowsFor(ctx, provider.ID, 6)
	if err != nil {
		t.Fatalf("WindowsFor empty day: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("got %d windows for Sunday, want 0", len(empty))
	}

	if _, err := cat.WindowsFor(ctx, provider.ID, 7); !errors.Is(err, ErrInvalidWeekday) {
		t.Errorf("weekday 7: error = %v, want %v", err, ErrInvalidWeekday)
	}
}
