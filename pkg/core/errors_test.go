package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryErrorRendering(t *testing.T) {
	err := NewMemoryError("Add", ErrInvalidInput)
	require.Error(t, err)
	assert.Equal(t, "agenticmem: Add: invalid input", err.Error())
}

func TestMemoryErrorUnwrap(t *testing.T) {
	err := NewMemoryError("Get", ErrNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	var memErr *MemoryError
	require.ErrorAs(t, err, &memErr)
	assert.Equal(t, "Get", memErr.Op)
}

func TestNewMemoryErrorNil(t *testing.T) {
	assert.NoError(t, NewMemoryError("Add", nil), "wrapping nil must stay nil")
}

func TestMemoryErrorWrapsArbitraryErrors(t *testing.T) {
	inner := errors.New("connection reset")
	err := NewMemoryError("Search", inner)
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "connection reset")
}
