package routing

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"time"
)

// TicketIDPrefix prefixes every ticket code.
const TicketIDPrefix = "TKT-"

var (
	sequentialID = regexp.MustCompile(`^TKT-(\d+)$`)
	// WireTicketID matches ticket ids accepted on the wire.
	WireTicketID = regexp.MustCompile(`^TKT-\d{3,}$`)
)

// FormatTicketID renders n zero-padded to a minimum of three digits.
func FormatTicketID(n int) string {
	return fmt.Sprintf("%s%03d", TicketIDPrefix, n)
}

// TicketSequence extracts the numeric suffix of a TKT-<digits> id.
func TicketSequence(id string) (int, bool) {
	m := sequentialID.FindStringSubmatch(id)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// NextTicketID returns the id following the highest sequence among ids.
// Ids that do not match TKT-<digits> are ignored.
func NextTicketID(ids []string) string {
	highest := 0
	for _, id := range ids {
		if n, ok := TicketSequence(id); ok && n > highest {
			highest = n
		}
	}
	return FormatTicketID(highest + 1)
}

// FallbackTicketID derives an id from the clock for use once sequential
// generation has exhausted its retries: the last six digits of the epoch
// milliseconds followed by two random digits.
func FallbackTicketID(now time.Time) string {
	return fallbackTicketID(now, rand.Intn(100))
}

func fallbackTicketID(now time.Time, suffix int) string {
	return fmt.Sprintf("%s%06d%02d", TicketIDPrefix, now.UnixMilli()%1_000_000, suffix%100)
}

// ValidTicketID reports whether id matches the wire format.
func ValidTicketID(id string) bool {
	return WireTicketID.MatchString(id)
}
