package lib

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
		code codes.Code
	}{
		{"record not found", gorm.ErrRecordNotFound, ErrNotFound, codes.NotFound},
		{"wrapped record not found", fmt.Errorf("select: %w", gorm.ErrRecordNotFound), ErrNotFound, codes.NotFound},
		{"foreign key", gorm.ErrForeignKeyViolated, ErrNotFound, codes.NotFound},
		{"duplicate", gorm.ErrDuplicatedKey, ErrConflict, codes.AlreadyExists},
		{"driver failure", errors.New("connection reset by peer"), ErrUnavailable, codes.Unavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			converted := HandleError(tt.err)
			assert.ErrorIs(t, converted, tt.kind)
			assert.ErrorIs(t, converted, tt.err)
			assert.Equal(t, tt.code, CodeOf(converted))
			assert.Equal(t, tt.code, status.Code(converted))
		})
	}

	assert.NoError(t, HandleError(nil))
}

func TestHandleErrorKeepsTypedErrors(t *testing.T) {
	original := PermissionDeniedError("")
	assert.Same(t, original, HandleError(original))

	wrapped := fmt.Errorf("delete: %w", original)
	assert.Equal(t, wrapped, HandleError(wrapped))
	assert.Equal(t, codes.PermissionDenied, CodeOf(wrapped))
}

func TestConstructors(t *testing.T) {
	assert.ErrorIs(t, NotFoundError(""), ErrNotFound)
	assert.ErrorIs(t, InvalidArgumentError("bad"), ErrInvalidArgument)
	assert.ErrorIs(t, ConflictError("busy"), ErrConflict)

	cause := errors.New("timeout")
	unavailable := UnavailableError(cause)
	assert.ErrorIs(t, unavailable, ErrUnavailable)
	assert.ErrorIs(t, unavailable, cause)
	assert.Contains(t, unavailable.Error(), "timeout")

	st, ok := status.FromError(InvalidArgumentError("content must not be empty"))
	assert.True(t, ok)
	assert.Equal(t, "content must not be empty", st.Message())

	assert.Equal(t, codes.OK, CodeOf(nil))
	assert.Equal(t, codes.Internal, CodeOf(errors.New("boom")))
}
