package interpreter

import (
	"errors"

	"github.com/rhino1998/minipy/pkg/memory"
)

var (
	ErrUndefinedVariable   = errors.New("undefined variable")
	ErrTypeMismatch        = memory.ErrKindMismatch
	ErrIndexOutOfBounds    = errors.New("index out of bounds")
	ErrKeyNotFound         = errors.New("key not found")
	ErrInvalidKeyType      = errors.New("invalid key type")
	ErrAllocationExhausted = memory.ErrAllocationExhausted
)
