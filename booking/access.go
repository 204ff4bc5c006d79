package booking

import (
	"strings"

	"github.com/winstonzhaozhekai/Facility-Booking-Bot/storage"
)

// CanAccess reports whether a user may book a venue. Rules are checked
// in order, first match wins:
//
//  1. the venue lists allowed blocks and the user's block is one of them;
//  2. the venue lists both allowed roles and allowed CCAs, and the user
//     matches one of each;
//  3. the venue lists allowed roles only, and the user's role is listed.
//
// A venue with no matching rule denies access, and inaccessible venues
// are hidden from the booking keyboard rather than rejected on submit.
// All comparisons are case-insensitive and ignore surrounding whitespace.
func CanAccess(user *storage.User, venue *storage.Venue) bool {
	if user == nil || venue == nil {
		return false
	}

	if len(venue.AllowedBlocks) > 0 && matches(venue.AllowedBlocks, user.Block) {
		return true
	}

	if len(venue.AllowedRoles) > 0 && len(venue.AllowedCCAs) > 0 {
		return matches(venue.AllowedRoles, user.Role) && matches(venue.AllowedCCAs, user.CCA)
	}

	if len(venue.AllowedRoles) > 0 {
		return matches(venue.AllowedRoles, user.Role)
	}

	return false
}

func matches(list []string, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), value) {
			return true
		}
	}
	return false
}
