package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedError(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", Clone(ErrNotFound, "course not found"))

	appErr := FromError(wrapped)
	assert.Equal(t, ErrNotFound.Code, appErr.Code)
	assert.Equal(t, "course not found", appErr.Message)
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(stdErrors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.EqualError(t, appErr, "internal server error: boom")
	assert.Nil(t, FromError(nil))
}

func TestCloneDoesNotMutateOriginal(t *testing.T) {
	clone := Clone(ErrValidation, "maxResults must be positive")
	assert.Equal(t, "validation failed", ErrValidation.Message)
	assert.Equal(t, "maxResults must be positive", clone.Message)
	assert.True(t, stdErrors.Is(ErrCacheMiss, ErrCacheMiss))
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("load schedule: %w", Clone(ErrNotFound, "schedule not found"))
	assert.True(t, stdErrors.Is(err, ErrNotFound))
	assert.False(t, stdErrors.Is(err, ErrConflict))
	assert.True(t, stdErrors.Is(Wrap(stdErrors.New("deadline"), ErrTimeout.Code, ErrTimeout.Status, "timed out"), ErrTimeout))
}
