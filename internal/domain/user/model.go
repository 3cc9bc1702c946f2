package user

import "time"

const (
	RoleAdmin        = "admin"
	RoleDoctor       = "medico"
	RoleReceptionist = "recepcion"
)

type User struct {
	ID        string
	Email     string
	Name      string
	Role      string
	ClinicID  string
	Password  string // хэш
	CreatedAt time.Time
}

type RegisterRequest struct {
	Email    string
	Password string
	Name     string
	Role     string
	ClinicID string
}
