package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries the static reference data and policy knobs that used to
// live scattered across globals: the role enumeration, residential blocks,
// CCA groups, venue colour mapping for calendar events, and the venue
// categories that drive the approval workflow.
type Config struct {
	Roles  []string
	Blocks []string
	CCAs   []string

	// VenueColors maps a venue name to the calendar colour ID used for
	// its events. Venues without an entry fall back to colour "1".
	VenueColors map[string]string

	// ApprovalGatedVenues default new bookings to "pending approval"
	// unless the requester holds ApproverRole. AutoConfirmVenues are
	// always confirmed immediately.
	ApprovalGatedVenues []string
	AutoConfirmVenues   []string

	// OverseenVenues is the set whose confirmed bookings appear in the
	// approver's overview listing.
	OverseenVenues []string

	ApproverRole string
	AdminRole    string

	// GroupChatIDs receive a broadcast whenever a booking is approved.
	GroupChatIDs []int64

	Location   *time.Location
	SessionTTL time.Duration
}

// Default returns the configuration matching the hall's standing setup.
func Default() *Config {
	loc, err := time.LoadLocation("Asia/Singapore")
	if err != nil {
		loc = time.UTC
	}

	return &Config{
		Roles:  []string{"Admin", "JCRC", "Captain", "Chairman", "Block Head", "Resident"},
		Blocks: []string{"A Blk", "B Blk", "C Blk", "D Blk", "E Blk"},
		CCAs: []string{
			"No CCA", "Steppers", "Dance", "Badminton", "Volleyball",
			"Table Tennis", "Floorball", "Takraw", "Rockers", "Inspire",
			"A Blk", "B Blk", "C Blk", "D Blk", "E Blk",
			"Welfare D", "Sports D", "Culture D",
		},
		VenueColors: map[string]string{
			"Reading Room": "2",
			"Dining Hall":  "3",
			"MPSH":         "4",
			"Band Room":    "5",
			"A Blk Lounge": "6",
			"B Blk Lounge": "7",
			"C Blk Lounge": "8",
			"D Blk Lounge": "9",
			"E Blk Lounge": "10",
		},
		ApprovalGatedVenues: []string{"Reading Room", "Dining Hall"},
		AutoConfirmVenues:   []string{"MPSH", "Band Room"},
		OverseenVenues:      []string{"Reading Room", "Dining Hall", "MPSH"},
		ApproverRole:        "JCRC",
		AdminRole:           "Admin",
		Location:            loc,
		SessionTTL:          30 * time.Minute,
	}
}

// FromEnv builds the default configuration and applies environment
// overrides: TIMEZONE, GROUP_CHAT_IDS (comma-separated chat IDs) and
// SESSION_TTL (Go duration string).
func FromEnv() (*Config, error) {
	cfg := Default()

	if tz := os.Getenv("TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
		}
		cfg.Location = loc
	}

	if raw := os.Getenv("GROUP_CHAT_IDS"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid chat ID %q in GROUP_CHAT_IDS: %w", part, err)
			}
			cfg.GroupChatIDs = append(cfg.GroupChatIDs, id)
		}
	}

	if raw := os.Getenv("SESSION_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TTL %q: %w", raw, err)
		}
		cfg.SessionTTL = ttl
	}

	return cfg, nil
}

// IsApprovalGated reports whether bookings for the named venue require
// approval by ApproverRole. Venue names compare case-insensitively.
func (c *Config) IsApprovalGated(venueName string) bool {
	return containsFold(c.ApprovalGatedVenues, venueName)
}

// IsAutoConfirm reports whether bookings for the named venue are
// confirmed immediately regardless of the requester's role.
func (c *Config) IsAutoConfirm(venueName string) bool {
	return containsFold(c.AutoConfirmVenues, venueName)
}

// ColorFor returns the calendar colour ID for a venue name.
func (c *Config) ColorFor(venueName string) string {
	if color, ok := c.VenueColors[venueName]; ok {
		return color
	}
	return "1"
}

func containsFold(list []string, s string) bool {
	s = strings.TrimSpace(s)
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), s) {
			return true
		}
	}
	return false
}
