package user

import "time"

type registerInput struct {
	Body RegisterRequest
}

type registerOutput struct {
	Body UserResponse
}

type RegisterRequest struct {
	Email    string `json:"email" format:"email" maxLength:"254" doc:"Email пользователя"`
	Password string `json:"password" minLength:"8" maxLength:"72" doc:"Пароль"`
	Name     string `json:"name" minLength:"1" maxLength:"100"`
	Role     string `json:"role,omitempty" enum:"admin,medico,recepcion" doc:"Роль, по умолчанию medico"`
	ClinicID string `json:"clinic_id" minLength:"1" doc:"Клиника пользователя"`
}

type UserResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	ClinicID string `json:"clinic_id"`
}

type loginInput struct {
	Body LoginRequest
}

type LoginRequest struct {
	Email    string `json:"email" minLength:"1"`
	Password string `json:"password" minLength:"1"`
}

type refreshInput struct {
	Body RefreshRequest
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" minLength:"1"`
}

type sessionOutput struct {
	Body SessionResponse
}

type SessionResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	User         UserResponse `json:"user"`
}
