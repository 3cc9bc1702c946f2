package clinic

import (
	"time"

	"clinicsync/internal/domain/queue"
)

// PatientPriority: patients have no date, deletions go last.
func PatientPriority(action queue.Action, _ Patient, _ time.Time) queue.Priority {
	if action == queue.ActionDelete {
		return queue.PriorityLow
	}
	return queue.PriorityMedium
}

// AppointmentPriority puts same-day appointments first so the front desk
// sees today's agenda on the server as soon as possible.
func AppointmentPriority(action queue.Action, a Appointment, now time.Time) queue.Priority {
	if action == queue.ActionDelete {
		return queue.PriorityLow
	}
	if sameDay(a.ScheduledAt.In(now.Location()), now) {
		return queue.PriorityHigh
	}
	return queue.PriorityMedium
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
