package clinic

import (
	"fmt"
	"net/mail"
	"strings"
)

const maxDurationMinutes = 8 * 60

// Validate проверяет обязательные поля пациента
func (p Patient) Validate() error {
	if strings.TrimSpace(p.FirstName) == "" {
		return fmt.Errorf("%w: first_name is required", ErrInvalidPayload)
	}
	if strings.TrimSpace(p.LastName) == "" {
		return fmt.Errorf("%w: last_name is required", ErrInvalidPayload)
	}
	if p.Email != "" {
		if _, err := mail.ParseAddress(p.Email); err != nil {
			return fmt.Errorf("%w: email: %v", ErrInvalidPayload, err)
		}
	}
	return nil
}

// Validate проверяет обязательные поля записи на прием
func (a Appointment) Validate() error {
	if strings.TrimSpace(a.PatientID) == "" {
		return fmt.Errorf("%w: patient_id is required", ErrInvalidPayload)
	}
	if a.ScheduledAt.IsZero() {
		return fmt.Errorf("%w: scheduled_at is required", ErrInvalidPayload)
	}
	if a.DurationMinutes < 0 || a.DurationMinutes > maxDurationMinutes {
		return fmt.Errorf("%w: duration_minutes must be between 0 and %d", ErrInvalidPayload, maxDurationMinutes)
	}
	switch a.Status {
	case "", AppointmentScheduled, AppointmentConfirmed, AppointmentCompleted, AppointmentCancelled, AppointmentNoShow:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidPayload, a.Status)
	}
	return nil
}
