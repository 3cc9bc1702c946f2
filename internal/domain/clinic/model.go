package clinic

import "time"

type Patient struct {
	FirstName  string     `json:"first_name" doc:"Nombre" minLength:"1"`
	LastName   string     `json:"last_name" doc:"Apellidos" minLength:"1"`
	DocumentID string     `json:"document_id,omitempty" doc:"DNI / documento"`
	BirthDate  *time.Time `json:"birth_date,omitempty" doc:"Fecha de nacimiento"`
	Phone      string     `json:"phone,omitempty"`
	Email      string     `json:"email,omitempty"`
	Address    string     `json:"address,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	Allergies  []string   `json:"allergies,omitempty"`
	BloodType  string     `json:"blood_type,omitempty"`
	Insurance  string     `json:"insurance,omitempty"`
}

// FullName is used when listing patients.
func (p Patient) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "programada"
	AppointmentConfirmed AppointmentStatus = "confirmada"
	AppointmentCompleted AppointmentStatus = "completada"
	AppointmentCancelled AppointmentStatus = "cancelada"
	AppointmentNoShow    AppointmentStatus = "no_asistio"
)

type Appointment struct {
	PatientID       string            `json:"patient_id" doc:"Paciente (id local o remoto)" minLength:"1"`
	ScheduledAt     time.Time         `json:"scheduled_at" doc:"Fecha y hora"`
	DurationMinutes int               `json:"duration_minutes" minimum:"0"`
	Reason          string            `json:"reason,omitempty" doc:"Motivo de la consulta"`
	Status          AppointmentStatus `json:"status" enum:"programada,confirmada,completada,cancelada,no_asistio"`
	DoctorName      string            `json:"doctor_name,omitempty"`
	Notes           string            `json:"notes,omitempty"`
}

func (a Appointment) EndsAt() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}
