package record

import (
	"fmt"

	"github.com/danielgtaylor/huma/v2"
)

// Entity names a synchronized collection. The value doubles as the REST
// resource segment and as the local table suffix.
type Entity string

const (
	EntityPatient     Entity = "paciente"
	EntityAppointment Entity = "cita"
)

// Entities lists every collection the client keeps offline.
func Entities() []Entity {
	return []Entity{EntityPatient, EntityAppointment}
}

func (Entity) Schema(_ huma.Registry) *huma.Schema {
	return &huma.Schema{
		Type: "string",
		Enum: []any{
			string(EntityPatient),
			string(EntityAppointment),
		},
		Description: "Synchronized collection",
		Examples:    []any{EntityPatient},
	}
}

// Validate отклоняет неизвестные коллекции.
func (e Entity) Validate() error {
	switch e {
	case EntityPatient, EntityAppointment:
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownEntity, e)
}

func (e Entity) String() string {
	return string(e)
}
