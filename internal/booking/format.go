package booking

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// formatClock renders an instant the way the board shows it.
func formatClock(t time.Time) string {
	return t.Format("3:04 PM")
}

var clockRe = regexp.MustCompile(`(\d{2}):(\d{2})`)

// formatReservationTime renders a slot start as a 12-hour clock. Slot
// starts arrive as "2006-01-02 15:04:05" or ISO timestamps; anything
// unparseable passes through unchanged.
func formatReservationTime(start string) string {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, "15:04:05", "15:04"} {
		if t, err := time.Parse(layout, start); err == nil {
			return formatClock(t)
		}
	}
	if m := clockRe.FindStringSubmatch(start); m != nil {
		hours, _ := strconv.Atoi(m[1])
		period := "AM"
		if hours >= 12 {
			period = "PM"
		}
		display := hours % 12
		if display == 0 {
			display = 12
		}
		return fmt.Sprintf("%d:%s %s", display, m[2], period)
	}
	return start
}
