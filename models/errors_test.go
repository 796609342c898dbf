package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", NewValidationError("bad"), KindValidation},
		{"forbidden", NewForbiddenError("no access"), KindForbidden},
		{"not found", NewNotFoundError("post", 7), KindNotFound},
		{"unauthenticated", NewUnauthenticatedError(), KindUnauthenticated},
		{"wrapped", fmt.Errorf("outer: %w", NewNotFoundError("comment", 1)), KindNotFound},
		{"plain error", errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestInternalErrorHidesCause(t *testing.T) {
	cause := errors.New("deadlock detected on table likes")
	err := NewInternalError(cause)

	assert.Equal(t, "internal server error", err.Message)
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsKind(err, KindInternal))
	assert.False(t, IsKind(nil, KindInternal))
}

func TestNotFoundMessage(t *testing.T) {
	assert.Equal(t, "post 42 not found", NewNotFoundError("post", 42).Error())
}
