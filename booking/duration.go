package booking

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration validation errors. The bot maps these onto re-prompt messages.
var (
	ErrDurationFormat    = errors.New("duration must be in H:MM format")
	ErrDurationIncrement = errors.New("duration must be positive and in 15-minute increments")
	ErrDurationTooLong   = errors.New("duration cannot exceed 24 hours")
)

// ParseDuration converts a textual "H:MM" duration into a time.Duration.
// The total must be positive, a multiple of 15 minutes, and at most 24
// hours.
func ParseDuration(text string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) != 2 {
		return 0, ErrDurationFormat
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: bad hours %q", ErrDurationFormat, parts[0])
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: bad minutes %q", ErrDurationFormat, parts[1])
	}

	total := hours*60 + minutes
	if total <= 0 || total%15 != 0 {
		return 0, ErrDurationIncrement
	}
	if total > 24*60 {
		return 0, ErrDurationTooLong
	}

	return time.Duration(total) * time.Minute, nil
}

// parseDurationLoose parses a stored duration, treating anything
// malformed as zero length. Used when scanning existing bookings so one
// bad row cannot break the conflict check.
func parseDurationLoose(text string) time.Duration {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) != 2 {
		return 0
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
}
