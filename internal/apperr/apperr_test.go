package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, NotFound, CodeOf(New(NotFound, "missing")))
	assert.Equal(t, Internal, CodeOf(errors.New("plain")))
	assert.Equal(t, Conflict, CodeOf(fmt.Errorf("outer: %w", New(Conflict, "raced"))))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("sql: connection reset")
	err := Wrap(Internal, "commit transaction", cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "commit transaction")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestIs(t *testing.T) {
	err := New(OverlappingShift, "shift overlaps")
	assert.True(t, Is(err, OverlappingShift))
	assert.False(t, Is(err, Conflict))
	assert.True(t, Is(errors.New("anything"), Internal))
}

func TestWithDetailsDoesNotMutateOriginal(t *testing.T) {
	base := New(ValidationFailed, "bad input")
	detailed := base.WithDetails(map[string]any{"field": "quantity"})

	assert.Nil(t, base.Details)
	assert.Equal(t, "quantity", detailed.Details["field"])
	assert.Equal(t, base.Code, detailed.Code)
}

func TestNewf(t *testing.T) {
	err := Newf(NotFound, "order %s not found", "o-1")
	assert.Equal(t, "NotFound: order o-1 not found", err.Error())
}
