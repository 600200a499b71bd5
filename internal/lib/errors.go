package lib

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

// Error kinds. Every error returned by the comment service wraps exactly one
// of them, so callers match with errors.Is.
var (
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrConflict         = errors.New("conflict")
	ErrUnavailable      = errors.New("unavailable")
)

// Error carries a kind, a client-safe message and the underlying cause.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// GRPCStatus lets status.FromError and status.Code understand the error.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(CodeOf(e), e.Message)
}

// CodeOf returns the gRPC code matching the kind of err.
func CodeOf(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, ErrInvalidArgument):
		return codes.InvalidArgument
	case errors.Is(err, ErrNotFound):
		return codes.NotFound
	case errors.Is(err, ErrPermissionDenied):
		return codes.PermissionDenied
	case errors.Is(err, ErrConflict):
		return codes.AlreadyExists
	case errors.Is(err, ErrUnavailable):
		return codes.Unavailable
	}
	return codes.Internal
}

// HandleError converts a store error into the error taxonomy.
// Errors that already carry a kind pass through unchanged.
func HandleError(err error) error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &Error{Kind: ErrNotFound, Message: "The requested resource was not found.", Cause: err}
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return &Error{Kind: ErrNotFound, Message: "The referenced resource no longer exists.", Cause: err}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return &Error{Kind: ErrConflict, Message: "The resource already exists.", Cause: err}
	}

	return &Error{Kind: ErrUnavailable, Message: "The storage is temporarily unavailable.", Cause: err}
}

// NotFoundError returns a NotFound error.
func NotFoundError(message string) error {
	if message == "" {
		message = "The requested resource was not found."
	}
	return &Error{Kind: ErrNotFound, Message: message}
}

// InvalidArgumentError returns an InvalidArgument error.
func InvalidArgumentError(message string) error {
	return &Error{Kind: ErrInvalidArgument, Message: message}
}

// PermissionDeniedError returns a PermissionDenied error.
func PermissionDeniedError(message string) error {
	if message == "" {
		message = "You do not have permission to perform this action."
	}
	return &Error{Kind: ErrPermissionDenied, Message: message}
}

func ConflictError(message string) error {
	return &Error{Kind: ErrConflict, Message: message}
}

func UnavailableError(cause error) error {
	return &Error{Kind: ErrUnavailable, Message: "The storage is temporarily unavailable.", Cause: cause}
}
