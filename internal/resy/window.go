package resy

import (
	"regexp"
	"strconv"
	"time"
)

var hhmmRe = regexp.MustCompile(`(\d{2}):(\d{2})`)

// parseHHMM returns minutes since midnight for an "HH:MM" string.
func parseHHMM(v string) (int, bool) {
	if v == "" {
		return 0, false
	}
	m := hhmmRe.FindStringSubmatch(v)
	if m == nil {
		return 0, false
	}
	hh, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	if hh > 23 || mm > 59 {
		return 0, false
	}
	return hh*60 + mm, true
}

// slotMinutes extracts the time-of-day of a slot start, which comes back
// either as "2006-01-02 15:04:05" or as an ISO timestamp.
func slotMinutes(start string) (int, bool) {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, start); err == nil {
			return t.Hour()*60 + t.Minute(), true
		}
	}
	return parseHHMM(start)
}

// filterWindow keeps slots whose start time-of-day falls inside the
// inclusive [start, end] window. A window where start > end crosses
// midnight (e.g. 22:00 -> 02:00). Slots without a parseable start are
// dropped when a window is in effect.
func filterWindow(slots []Slot, startHHMM, endHHMM string) []Slot {
	start, okS := parseHHMM(startHHMM)
	end, okE := parseHHMM(endHHMM)
	if !okS && !okE {
		return slots
	}
	var out []Slot
	for _, s := range slots {
		t, ok := slotMinutes(s.Start)
		if !ok {
			continue
		}
		switch {
		case okS && !okE:
			if t >= start {
				out = append(out, s)
			}
		case okE && !okS:
			if t <= end {
				out = append(out, s)
			}
		case start <= end:
			if t >= start && t <= end {
				out = append(out, s)
			}
		default:
			if t >= start || t <= end {
				out = append(out, s)
			}
		}
	}
	return out
}
