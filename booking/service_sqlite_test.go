package booking

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/winstonzhaozhekai/Facility-Booking-Bot/config"
	"github.com/winstonzhaozhekai/Facility-Booking-Bot/storage"
)

// newSQLiteService wires the service to a real SQLite store in the
// default configuration's location, so conflict checks run against
// timestamps that went through the text round trip.
func newSQLiteService(t *testing.T) (*Service, *storage.SQLiteStore, *config.Config) {
	t.Helper()

	cfg := config.Default()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), cfg.Location)
	if err != nil {
		t.Fatalf("NewSQLiteStore returned error: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	err = store.SeedVenues([]storage.Venue{
		{Name: "Reading Room", AllowedRoles: []string{"Resident", "JCRC"}},
		{Name: "MPSH", AllowedRoles: []string{"Resident", "JCRC"}},
	})
	if err != nil {
		t.Fatalf("SeedVenues returned error: %v", err)
	}

	svc := New(store, &fakeCalendar{}, &fakeNotifier{}, cfg)
	return svc, store, cfg
}

func TestConflictChecksAgainstSQLite(t *testing.T) {
	svc, store, cfg := newSQLiteService(t)

	resident := &storage.User{TelegramID: 42, Name: "Alex", Role: "Resident"}
	if err := store.CreateUser(resident); err != nil {
		t.Fatalf("CreateUser returned error: %v", err)
	}

	ids, err := store.VenueIDsByName([]string{"MPSH"})
	if err != nil || len(ids) != 1 {
		t.Fatalf("VenueIDsByName = %v, %v", ids, err)
	}
	venue, err := store.GetVenue(ids[0])
	if err != nil {
		t.Fatalf("GetVenue returned error: %v", err)
	}

	// MPSH auto-confirms, so one Create is enough to arm the checks.
	start := time.Date(2026, 9, 14, 19, 0, 0, 0, cfg.Location)
	created, err := svc.Create(context.Background(), resident, venue, start, "1:00", "training")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created.Status != storage.StatusConfirmed {
		t.Fatalf("status = %q, want %q", created.Status, storage.StatusConfirmed)
	}

	tests := []struct {
		name     string
		proposed time.Time
		want     bool
	}{
		{"identical start", start, true},
		{"same instant in UTC", start.UTC(), true},
		{"inside the booking", start.Add(30 * time.Minute), true},
		{"at the booking's end", start.Add(time.Hour), false},
		{"well before", start.Add(-2 * time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.StartConflicts(venue.ID, tt.proposed)
			if err != nil {
				t.Fatalf("StartConflicts returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("StartConflicts(%v) = %v, want %v", tt.proposed, got, tt.want)
			}
		})
	}

	rangeTests := []struct {
		name     string
		proposed time.Time
		duration time.Duration
		want     bool
	}{
		{"identical interval", start, time.Hour, true},
		{"overlapping tail", start.Add(30 * time.Minute), time.Hour, true},
		{"ends exactly at the start", start.Add(-time.Hour), time.Hour, false},
		{"begins exactly at the end", start.Add(time.Hour), time.Hour, false},
		{"overlap proposed in UTC", start.UTC().Add(-30 * time.Minute), time.Hour, true},
	}
	for _, tt := range rangeTests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.RangeConflicts(venue.ID, tt.proposed, tt.duration)
			if err != nil {
				t.Fatalf("RangeConflicts returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("RangeConflicts(%v, %v) = %v, want %v", tt.proposed, tt.duration, got, tt.want)
			}
		})
	}
}

func TestCreateRereadPreservesInstantAgainstSQLite(t *testing.T) {
	svc, store, cfg := newSQLiteService(t)

	resident := &storage.User{TelegramID: 42, Name: "Alex", Role: "Resident"}
	store.CreateUser(resident)

	ids, _ := store.VenueIDsByName([]string{"MPSH"})
	venue, _ := store.GetVenue(ids[0])

	start := time.Date(2026, 9, 14, 19, 0, 0, 0, cfg.Location)
	created, err := svc.Create(context.Background(), resident, venue, start, "1:00", "training")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if !created.Start.Equal(start) {
		t.Errorf("re-read start = %v, want the instant %v", created.Start, start)
	}
}
