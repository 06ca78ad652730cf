package server

import "github.com/practisage/medassist/internal/chat"

// HTTPError is the JSON error envelope returned by all handlers.
type HTTPError struct {
	Error string `json:"error"`
}

type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type TodoCreateRequest struct {
	Title string `json:"title"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

type ModelList struct {
	Object string       `json:"object"`
	Data   []chat.Model `json:"data"`
}
