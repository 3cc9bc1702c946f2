package client

import (
	"context"
	"fmt"

	"clinicsync/internal/app/client/syncer"
	"clinicsync/internal/domain/clinic"
	"clinicsync/internal/domain/record"
)

// resolvePatientRef swaps a local patient id in an appointment for the id
// the server knows. Until the patient is created remotely the appointment
// waits in the queue.
func resolvePatientRef(patients record.Repository[clinic.Patient]) syncer.PrepareFunc[clinic.Appointment] {
	return func(ctx context.Context, a clinic.Appointment) (clinic.Appointment, error) {
		if !record.IsLocalID(a.PatientID) {
			return a, nil
		}

		p, err := patients.GetByID(ctx, a.PatientID)
		if err != nil {
			return a, err
		}
		if p == nil {
			return a, fmt.Errorf("%w: patient %s", record.ErrNotFound, a.PatientID)
		}

		remoteID := p.ServerID()
		if remoteID == "" {
			return a, fmt.Errorf("%w: patient %s", syncer.ErrDependencyPending, a.PatientID)
		}
		a.PatientID = remoteID
		return a, nil
	}
}
