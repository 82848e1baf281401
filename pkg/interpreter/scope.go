package interpreter

import (
	"fmt"
	"log/slog"

	"github.com/rhino1998/minipy/pkg/memory"
)

const initialScopeSize = 8

// Variable is a global binding.
type Variable struct {
	Name string
	Ref  memory.RefID
}

// Scope is the global variable table. Bindings keep their insertion order;
// deleting one shifts every later binding down by one.
type Scope struct {
	logger *slog.Logger
	vars   []Variable
}

func newScope(logger *slog.Logger) *Scope {
	return &Scope{
		logger: logger,
	}
}

func (s *Scope) index(name string) int {
	for i := range s.vars {
		if s.vars[i].Name == name {
			return i
		}
	}

	return -1
}

// Get returns the reference bound to name.
func (s *Scope) Get(name string) (memory.RefID, error) {
	i := s.index(name)
	if i < 0 {
		return memory.Nil, fmt.Errorf("%w: could not retrieve variable `%s`", ErrUndefinedVariable, name)
	}

	return s.vars[i].Ref, nil
}

// LookupOrCreate returns a handle to the binding of name. When create is set
// and no binding exists, one is appended holding memory.Nil until the caller
// sets it.
func (s *Scope) LookupOrCreate(name string, create bool) (SettableValue, error) {
	if s.index(name) >= 0 {
		return &globalSlot{scope: s, name: name}, nil
	}

	if !create {
		return nil, fmt.Errorf("%w: could not retrieve variable `%s`", ErrUndefinedVariable, name)
	}

	if len(s.vars) == cap(s.vars) {
		s.grow()
	}

	s.vars = append(s.vars, Variable{Name: name, Ref: memory.Nil})

	s.logger.Debug("created global", "name", name)

	return &globalSlot{scope: s, name: name}, nil
}

func (s *Scope) grow() {
	newCap := cap(s.vars) * 2
	if newCap == 0 {
		newCap = initialScopeSize
	}

	vars := make([]Variable, len(s.vars), newCap)
	copy(vars, s.vars)

	s.vars = vars
}

func (s *Scope) Delete(name string) error {
	i := s.index(name)
	if i < 0 {
		return fmt.Errorf("%w: could not delete variable `%s`", ErrUndefinedVariable, name)
	}

	copy(s.vars[i:], s.vars[i+1:])
	s.vars[len(s.vars)-1] = Variable{}
	s.vars = s.vars[:len(s.vars)-1]

	s.logger.Debug("deleted global", "name", name)

	return nil
}

func (s *Scope) Len() int {
	return len(s.vars)
}

// Variables returns the bindings in table order.
func (s *Scope) Variables() []Variable {
	return append([]Variable(nil), s.vars...)
}

// Roots returns every bound reference.
func (s *Scope) Roots() []memory.RefID {
	roots := make([]memory.RefID, 0, len(s.vars))
	for _, v := range s.vars {
		roots = append(roots, v.Ref)
	}

	return roots
}

func (s *Scope) restore(vars []Variable) error {
	s.vars = nil

	for _, v := range vars {
		if s.index(v.Name) >= 0 {
			return fmt.Errorf("duplicate global %q", v.Name)
		}

		if len(s.vars) == cap(s.vars) {
			s.grow()
		}

		s.vars = append(s.vars, v)
	}

	return nil
}
