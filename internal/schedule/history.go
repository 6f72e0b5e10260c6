package schedule

import (
	"sort"
	"time"

	"clinic-portal-server/internal/clinic"
)

// Upcoming returns the appointments starting at or after now, soonest first.
// Appointments with malformed timestamps are skipped.
func Upcoming(appointments []clinic.Appointment, now time.Time) []clinic.Appointment {
	return filterByStart(appointments, func(start time.Time) bool {
		return !start.Before(now)
	}, func(a, b time.Time) bool { return a.Before(b) })
}

// History returns the appointments that started before now, most recent
// first.
func History(appointments []clinic.Appointment, now time.Time) []clinic.Appointment {
	return filterByStart(appointments, func(start time.Time) bool {
		return start.Before(now)
	}, func(a, b time.Time) bool { return a.After(b) })
}

func filterByStart(appointments []clinic.Appointment, keep func(time.Time) bool, less func(a, b time.Time) bool) []clinic.Appointment {
	type entry struct {
		appt  clinic.Appointment
		start time.Time
	}
	entries := make([]entry, 0, len(appointments))
	for _, appt := range appointments {
		start, err := ParseInstant(appt.StartAt)
		if err != nil {
			continue
		}
		if keep(start) {
			entries = append(entries, entry{appt: appt, start: start})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return less(entries[i].start, entries[j].start)
	})
	result := make([]clinic.Appointment, len(entries))
	for i, e := range entries {
		result[i] = e.appt
	}
	return result
}
