package api

import (
	"encoding/json"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type ErrorResponse struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func WriteError(w http.ResponseWriter, r *http.Request, httpStatus int, code, message string) {
	WriteJSON(w, httpStatus, ErrorResponse{Error: APIError{
		Code:      code,
		Message:   message,
		RequestID: RequestIDFromContext(r.Context()),
	}})
}

func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusBadRequest, "INVALID_ARGUMENT", message)
}

func Unauthorized(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, http.StatusUnauthorized, "UNAUTHENTICATED", "missing or invalid token")
}

func Forbidden(w http.ResponseWriter, r *http.Request, message string) {
	WriteError(w, r, http.StatusForbidden, "PERMISSION_DENIED", message)
}

// WriteServiceError maps a service error to an HTTP response through its
// gRPC status code.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	st, ok := status.FromError(err)
	if !ok {
		WriteError(w, r, http.StatusInternalServerError, "INTERNAL", "Internal server error")
		return
	}

	switch st.Code() {
	case codes.InvalidArgument:
		BadRequest(w, r, st.Message())
	case codes.Unauthenticated:
		Unauthorized(w, r)
	case codes.PermissionDenied:
		Forbidden(w, r, st.Message())
	case codes.NotFound:
		WriteError(w, r, http.StatusNotFound, "NOT_FOUND", st.Message())
	case codes.AlreadyExists:
		WriteError(w, r, http.StatusConflict, "CONFLICT", st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		WriteError(w, r, http.StatusServiceUnavailable, "UNAVAILABLE", st.Message())
	default:
		WriteError(w, r, http.StatusInternalServerError, "INTERNAL", "Internal server error")
	}
}
