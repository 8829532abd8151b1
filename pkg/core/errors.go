// Package core provides the Agentic Memories client and memory management
// functionality.
package core

import (
	"errors"
	"fmt"

	"github.com/agenticmem/agenticmem-go/pkg/storage"
)

// Sentinel errors returned by the client.
var (
	// ErrNotFound indicates the requested memory does not exist or the
	// caller's access-control options do not match it. It is the
	// storage layer's not-found error, so it matches wrapped storage
	// errors directly.
	ErrNotFound = storage.ErrNotFound

	// ErrInvalidConfig indicates the configuration is missing required
	// fields or contains invalid values.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates a backend connection could not be
	// established.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrEmbeddingFailed indicates embedding generation failed.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrDuplicateMemory indicates a duplicate memory was detected.
	ErrDuplicateMemory = errors.New("duplicate memory detected")

	// ErrInvalidInput indicates the caller supplied invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorageOperation indicates a vector store operation failed.
	ErrStorageOperation = errors.New("storage operation failed")

	// ErrLLMOperation indicates an LLM call failed.
	ErrLLMOperation = errors.New("llm operation failed")
)

// MemoryError wraps an underlying error with the client operation that
// produced it.
//
// Use errors.Is / errors.As to inspect the wrapped error:
//
//	_, err := client.Get(ctx, id)
//	if errors.Is(err, core.ErrNotFound) {
//	    // handle missing memory
//	}
type MemoryError struct {
	// Op is the client operation, e.g. "Add", "Search", "Get".
	Op string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *MemoryError) Error() string {
	return fmt.Sprintf("agenticmem: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is / errors.As.
func (e *MemoryError) Unwrap() error {
	return e.Err
}

// NewMemoryError wraps err with the given operation name. Returns nil
// when err is nil so call sites can wrap unconditionally.
func NewMemoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &MemoryError{Op: op, Err: err}
}
