package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"lingo-quiz-service/internal/domain"
)

type errorBody struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, body := errorResponse(err)
	if status == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	writeJSON(w, status, body)
}

// errorResponse maps domain errors to a status code and a client-safe body.
func errorResponse(err error) (int, errorBody) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorBody{Message: verr.Error(), Field: verr.Field}
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusBadRequest, errorBody{Message: "Email already in use", Field: "email"}
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusBadRequest, errorBody{Message: "Username already taken", Field: "username"}
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, errorBody{Message: "Authentication required"}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorBody{Message: "Invalid email or password"}
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, errorBody{Message: "User not found"}
	case errors.Is(err, domain.ErrContentNotFound):
		return http.StatusNotFound, errorBody{Message: "Challenge content not found"}
	default:
		return http.StatusInternalServerError, errorBody{Message: "Internal server error, please retry"}
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.Invalid("body", "must be a valid JSON object")
	}
	return nil
}
