package dto

import "time"

// ErrorResponse — стандартный формат ошибки API.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DuplicateRequestResponse возвращается при попытке создать второй активный
// запрос: несёт id существующего, чтобы клиент перешёл к нему.
type DuplicateRequestResponse struct {
	Error             string `json:"error"`
	ExistingRequestID string `json:"existing_request_id"`
}

// SuccessResponse — стандартный формат успешного ответа с данными.
type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// AuthResponse — ответ на регистрацию/вход.
type AuthResponse struct {
	UserID       string        `json:"user_id"`
	Email        string        `json:"email"`
	Username     string        `json:"username"`
	Role         string        `json:"role"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    time.Duration `json:"expires_in"`
}
