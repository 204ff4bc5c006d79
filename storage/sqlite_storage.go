package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// timeLayout is how booking start timestamps are stored in the bookings
// table, matching the ISO-like text format the calendar formatter expects.
const timeLayout = "2006-01-02 15:04:05"

// SQLiteStore implements Store on top of a SQLite database file.
//
// Booking starts are stored as location-less wall-clock text, so the
// store needs to know which location that wall clock belongs to. All
// timestamps going into or out of the bookings table pass through loc;
// otherwise a stored start would re-materialize as a UTC instant and
// no longer compare equal to the local instant it was saved from.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	loc    *time.Location
}

// NewSQLiteStore opens (or creates) the database at dbPath and ensures
// the schema is up to date. loc is the location booking timestamps are
// interpreted in; nil means UTC.
func NewSQLiteStore(dbPath string, loc *time.Location) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "facility_booking.db"
	}
	if loc == nil {
		loc = time.UTC
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	if err := migrateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath, loc: loc}, nil
}

// formatTime renders a timestamp as the stored wall-clock text,
// converting it into the store's location first.
func (s *SQLiteStore) formatTime(t time.Time) string {
	return t.In(s.loc).Format(timeLayout)
}

// createTables creates the necessary tables in the database
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			telegram_id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'Resident',
			cca TEXT,
			block TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS venues (
			venue_id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			allowed_roles TEXT NOT NULL DEFAULT '[]',
			allowed_ccas TEXT NOT NULL DEFAULT '[]',
			allowed_blocks TEXT NOT NULL DEFAULT '[]'
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create venues table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS bookings (
			booking_id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			venue_id INTEGER NOT NULL,
			booking_date TEXT NOT NULL,
			duration TEXT NOT NULL,
			status TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			calendar_event_id TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(telegram_id),
			FOREIGN KEY (venue_id) REFERENCES venues(venue_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create bookings table: %w", err)
	}

	// Indices for the conflict scan and the per-user booking listing.
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_bookings_venue_status ON bookings(venue_id, status)`)
	if err != nil {
		return fmt.Errorf("failed to create venue_status index: %w", err)
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings(user_id)`)
	if err != nil {
		log.Printf("Warning: failed to create user index: %v", err)
	}

	return nil
}

// migrateSchema checks for and applies necessary schema changes
func migrateSchema(db *sql.DB) error {
	// Older deployments predate the calendar_event_id column.
	rows, err := db.Query("PRAGMA table_info(bookings)")
	if err != nil {
		return fmt.Errorf("failed to query table info for bookings: %w", err)
	}

	calendarColumnExists := false
	for rows.Next() {
		var cid int
		var name string
		var typeName string
		var notnull int
		var dfltValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &typeName, &notnull, &dfltValue, &pk); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan table info row: %w", err)
		}
		if name == "calendar_event_id" {
			calendarColumnExists = true
			break
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("error iterating table info rows: %w", err)
	}
	rows.Close()

	if !calendarColumnExists {
		log.Println("Schema migration: adding 'calendar_event_id' column to 'bookings' table...")
		if _, err := db.Exec("ALTER TABLE bookings ADD COLUMN calendar_event_id TEXT"); err != nil {
			return fmt.Errorf("failed to add calendar_event_id column: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Users ---

func (s *SQLiteStore) GetUser(telegramID int64) (*User, error) {
	row := s.db.QueryRow(
		`SELECT telegram_id, name, role, cca, block, created_at FROM users WHERE telegram_id = ?`,
		telegramID,
	)
	return scanUser(row)
}

func (s *SQLiteStore) CreateUser(u *User) error {
	_, err := s.db.Exec(
		`INSERT INTO users (telegram_id, name, role, cca, block) VALUES (?, ?, ?, ?, ?)`,
		u.TelegramID, u.Name, u.Role, nullable(u.CCA), nullable(u.Block),
	)
	if err != nil {
		return fmt.Errorf("failed to insert user %d: %w", u.TelegramID, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateUserRoleCCA(telegramID int64, role, cca string) error {
	res, err := s.db.Exec(
		`UPDATE users SET role = ?, cca = ? WHERE telegram_id = ?`,
		role, nullable(cca), telegramID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", telegramID, err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) UsersByRole(role string) ([]User, error) {
	rows, err := s.db.Query(
		`SELECT telegram_id, name, role, cca, block, created_at FROM users WHERE LOWER(TRIM(role)) = ?`,
		strings.ToLower(strings.TrimSpace(role)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query users by role: %w", err)
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (s *SQLiteStore) AllUsers() ([]User, error) {
	rows, err := s.db.Query(`SELECT telegram_id, name, role, cca, block, created_at FROM users`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()
	return collectUsers(rows)
}

// --- Venues ---

func (s *SQLiteStore) AllVenues() ([]Venue, error) {
	rows, err := s.db.Query(`SELECT venue_id, name, allowed_roles, allowed_ccas, allowed_blocks FROM venues ORDER BY venue_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query venues: %w", err)
	}
	defer rows.Close()

	var venues []Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		venues = append(venues, *v)
	}
	return venues, rows.Err()
}

func (s *SQLiteStore) GetVenue(venueID int64) (*Venue, error) {
	rows, err := s.db.Query(
		`SELECT venue_id, name, allowed_roles, allowed_ccas, allowed_blocks FROM venues WHERE venue_id = ?`,
		venueID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query venue %d: %w", venueID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return scanVenue(rows)
}

func (s *SQLiteStore) VenueIDsByName(names []string) ([]int64, error) {
	venues, err := s.AllVenues()
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[strings.ToLower(strings.TrimSpace(n))] = true
	}

	var ids []int64
	for _, v := range venues {
		if wanted[strings.ToLower(strings.TrimSpace(v.Name))] {
			ids = append(ids, v.ID)
		}
	}
	return ids, nil
}

func (s *SQLiteStore) SeedVenues(venues []Venue) error {
	for _, v := range venues {
		roles, err := json.Marshal(emptyIfNil(v.AllowedRoles))
		if err != nil {
			return fmt.Errorf("failed to encode allowed roles for %s: %w", v.Name, err)
		}
		ccas, err := json.Marshal(emptyIfNil(v.AllowedCCAs))
		if err != nil {
			return fmt.Errorf("failed to encode allowed CCAs for %s: %w", v.Name, err)
		}
		blocks, err := json.Marshal(emptyIfNil(v.AllowedBlocks))
		if err != nil {
			return fmt.Errorf("failed to encode allowed blocks for %s: %w", v.Name, err)
		}

		_, err = s.db.Exec(
			`INSERT INTO venues (name, allowed_roles, allowed_ccas, allowed_blocks) VALUES (?, ?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET allowed_roles = excluded.allowed_roles,
			                                 allowed_ccas = excluded.allowed_ccas,
			                                 allowed_blocks = excluded.allowed_blocks`,
			v.Name, string(roles), string(ccas), string(blocks),
		)
		if err != nil {
			return fmt.Errorf("failed to seed venue %s: %w", v.Name, err)
		}
	}
	return nil
}

// --- Bookings ---

const bookingColumns = `booking_id, user_id, venue_id, booking_date, duration, status, reason, calendar_event_id, created_at`

func (s *SQLiteStore) InsertBooking(b *Booking) error {
	_, err := s.db.Exec(
		`INSERT INTO bookings (user_id, venue_id, booking_date, duration, status, reason) VALUES (?, ?, ?, ?, ?, ?)`,
		b.UserID, b.VenueID, s.formatTime(b.Start), b.Duration, b.Status, b.Reason,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindBooking(userID, venueID int64, start time.Time, duration, reason string) (*Booking, error) {
	rows, err := s.db.Query(
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE user_id = ? AND venue_id = ? AND booking_date = ? AND duration = ? AND reason = ?
		 ORDER BY booking_id DESC LIMIT 1`,
		userID, venueID, s.formatTime(start), duration, reason,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query booking: %w", err)
	}
	defer rows.Close()
	return s.scanOneBooking(rows)
}

func (s *SQLiteStore) GetBooking(bookingID int64) (*Booking, error) {
	rows, err := s.db.Query(`SELECT `+bookingColumns+` FROM bookings WHERE booking_id = ?`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query booking %d: %w", bookingID, err)
	}
	defer rows.Close()
	return s.scanOneBooking(rows)
}

func (s *SQLiteStore) GetBookingFor(bookingID, userID int64, admin bool) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_id = ?`
	args := []any{bookingID}
	if !admin {
		// Ownership is enforced by the filter itself: a non-admin's query
		// simply finds no row for a booking they do not own.
		query += ` AND user_id = ?`
		args = append(args, userID)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query booking %d: %w", bookingID, err)
	}
	defer rows.Close()
	return s.scanOneBooking(rows)
}

func (s *SQLiteStore) UpdateBookingStatus(bookingID int64, status string) error {
	res, err := s.db.Exec(`UPDATE bookings SET status = ? WHERE booking_id = ?`, status, bookingID)
	if err != nil {
		return fmt.Errorf("failed to update booking %d status: %w", bookingID, err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) SetCalendarEventID(bookingID int64, eventID string) error {
	_, err := s.db.Exec(`UPDATE bookings SET calendar_event_id = ? WHERE booking_id = ?`, eventID, bookingID)
	if err != nil {
		return fmt.Errorf("failed to set calendar event for booking %d: %w", bookingID, err)
	}
	return nil
}

func (s *SQLiteStore) ConfirmedBookings(venueID int64) ([]Booking, error) {
	rows, err := s.db.Query(
		`SELECT `+bookingColumns+` FROM bookings WHERE venue_id = ? AND status = ?`,
		venueID, StatusConfirmed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query confirmed bookings: %w", err)
	}
	defer rows.Close()
	return s.collectBookings(rows)
}

func (s *SQLiteStore) ConfirmedBookingsBetween(venueID int64, from, to time.Time) ([]Booking, error) {
	rows, err := s.db.Query(
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE venue_id = ? AND status = ? AND booking_date >= ? AND booking_date <= ?
		 ORDER BY booking_date`,
		venueID, StatusConfirmed, s.formatTime(from), s.formatTime(to),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings in range: %w", err)
	}
	defer rows.Close()
	return s.collectBookings(rows)
}

func (s *SQLiteStore) ConfirmedBookingsForVenues(venueIDs []int64) ([]Booking, error) {
	return s.bookingsForVenues(venueIDs, StatusConfirmed)
}

func (s *SQLiteStore) PendingBookingsForVenues(venueIDs []int64) ([]Booking, error) {
	return s.bookingsForVenues(venueIDs, StatusPending)
}

func (s *SQLiteStore) bookingsForVenues(venueIDs []int64, status string) ([]Booking, error) {
	if len(venueIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(venueIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(venueIDs)+1)
	for _, id := range venueIDs {
		args = append(args, id)
	}
	args = append(args, status)

	rows, err := s.db.Query(
		`SELECT `+bookingColumns+` FROM bookings WHERE venue_id IN (`+placeholders+`) AND status = ? ORDER BY booking_date`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings for venues: %w", err)
	}
	defer rows.Close()
	return s.collectBookings(rows)
}

func (s *SQLiteStore) ActiveBookings(userID int64, all bool) ([]Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE status != ?`
	args := []any{StatusCancelled}
	if !all {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY booking_date`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query active bookings: %w", err)
	}
	defer rows.Close()
	return s.collectBookings(rows)
}

// --- Scan helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var cca, block sql.NullString
	var createdAt sql.NullTime
	err := row.Scan(&u.TelegramID, &u.Name, &u.Role, &cca, &block, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	u.CCA = cca.String
	u.Block = block.String
	u.CreatedAt = createdAt.Time
	return &u, nil
}

func collectUsers(rows *sql.Rows) ([]User, error) {
	var users []User
	for rows.Next() {
		var u User
		var cca, block sql.NullString
		var createdAt sql.NullTime
		if err := rows.Scan(&u.TelegramID, &u.Name, &u.Role, &cca, &block, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		u.CCA = cca.String
		u.Block = block.String
		u.CreatedAt = createdAt.Time
		users = append(users, u)
	}
	return users, rows.Err()
}

func scanVenue(sc rowScanner) (*Venue, error) {
	var v Venue
	var roles, ccas, blocks string
	if err := sc.Scan(&v.ID, &v.Name, &roles, &ccas, &blocks); err != nil {
		return nil, fmt.Errorf("failed to scan venue row: %w", err)
	}
	if err := json.Unmarshal([]byte(roles), &v.AllowedRoles); err != nil {
		return nil, fmt.Errorf("venue %s has malformed allowed_roles: %w", v.Name, err)
	}
	if err := json.Unmarshal([]byte(ccas), &v.AllowedCCAs); err != nil {
		return nil, fmt.Errorf("venue %s has malformed allowed_ccas: %w", v.Name, err)
	}
	if err := json.Unmarshal([]byte(blocks), &v.AllowedBlocks); err != nil {
		return nil, fmt.Errorf("venue %s has malformed allowed_blocks: %w", v.Name, err)
	}
	return &v, nil
}

func (s *SQLiteStore) scanBooking(sc rowScanner) (*Booking, error) {
	var b Booking
	var start string
	var reason, eventID sql.NullString
	var createdAt sql.NullTime
	if err := sc.Scan(&b.ID, &b.UserID, &b.VenueID, &start, &b.Duration, &b.Status, &reason, &eventID, &createdAt); err != nil {
		return nil, fmt.Errorf("failed to scan booking row: %w", err)
	}

	// Stored text is a wall clock in the store's location, not UTC.
	parsed, err := time.ParseInLocation(timeLayout, start, s.loc)
	if err != nil {
		return nil, fmt.Errorf("booking %d has malformed start %q: %w", b.ID, start, err)
	}
	b.Start = parsed
	b.Reason = reason.String
	b.CalendarEventID = eventID.String
	b.CreatedAt = createdAt.Time
	return &b, nil
}

func (s *SQLiteStore) scanOneBooking(rows *sql.Rows) (*Booking, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return s.scanBooking(rows)
}

func (s *SQLiteStore) collectBookings(rows *sql.Rows) ([]Booking, error) {
	var bookings []Booking
	for rows.Next() {
		b, err := s.scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
