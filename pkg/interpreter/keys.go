package interpreter

import (
	"fmt"

	"github.com/rhino1998/minipy/pkg/memory"
)

func (s *Session) checkKey(key memory.RefID) error {
	kind, err := s.table.Kind(key)
	if err != nil {
		return err
	}

	switch kind {
	case memory.KindFloat, memory.KindString:
		return nil
	case memory.KindList, memory.KindDict:
		return fmt.Errorf("%w: dict and list types are not valid key types", ErrInvalidKeyType)
	default:
		return fmt.Errorf("%w: %v is not a valid key", ErrTypeMismatch, kind)
	}
}

// keyEquals compares two dictionary keys. Composite keys are an error rather
// than unequal.
func (s *Session) keyEquals(a, b memory.RefID) (bool, error) {
	err := s.checkKey(a)
	if err != nil {
		return false, err
	}

	err = s.checkKey(b)
	if err != nil {
		return false, err
	}

	ra, err := s.table.Deref(a)
	if err != nil {
		return false, err
	}

	rb, err := s.table.Deref(b)
	if err != nil {
		return false, err
	}

	switch ra := ra.(type) {
	case memory.Float:
		rb, ok := rb.(memory.Float)
		return ok && ra.Value == rb.Value, nil
	case memory.String:
		rb, ok := rb.(memory.String)
		return ok && ra.Value == rb.Value, nil
	default:
		return false, nil
	}
}

// keyClone copies a key into a fresh reference so a stored key never aliases
// a value reachable from elsewhere.
func (s *Session) keyClone(key memory.RefID) (memory.RefID, error) {
	err := s.checkKey(key)
	if err != nil {
		return memory.Nil, err
	}

	ref, err := s.table.Deref(key)
	if err != nil {
		return memory.Nil, err
	}

	switch ref := ref.(type) {
	case memory.Float:
		return s.table.MakeFloat(ref.Value)
	case memory.String:
		return s.table.MakeString(ref.Value)
	default:
		return memory.Nil, fmt.Errorf("%w: cannot clone %v", ErrInvalidKeyType, ref.Kind())
	}
}
