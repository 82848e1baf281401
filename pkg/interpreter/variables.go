package interpreter

import (
	"fmt"

	"github.com/rhino1998/minipy/pkg/memory"
)

// SettableValue is an assignable location: a global binding or the value
// link of a list or dict cell. Handles name their location by variable name
// or cell id, never by address.
type SettableValue interface {
	Get() (memory.RefID, error)
	Set(memory.RefID) error
}

type globalSlot struct {
	scope *Scope
	name  string
}

func (g *globalSlot) Get() (memory.RefID, error) {
	return g.scope.Get(g.name)
}

func (g *globalSlot) Set(ref memory.RefID) error {
	i := g.scope.index(g.name)
	if i < 0 {
		return fmt.Errorf("%w: variable `%s` was deleted", ErrUndefinedVariable, g.name)
	}

	g.scope.vars[i].Ref = ref

	return nil
}

type listSlot struct {
	table *memory.Table
	cell  memory.RefID
}

func (l *listSlot) Get() (memory.RefID, error) {
	c, err := l.table.ListCell(l.cell)
	if err != nil {
		return memory.Nil, err
	}

	return c.Value, nil
}

func (l *listSlot) Set(ref memory.RefID) error {
	c, err := l.table.ListCell(l.cell)
	if err != nil {
		return err
	}

	c.Value = ref

	return l.table.SetListCell(l.cell, c)
}

type dictSlot struct {
	table *memory.Table
	cell  memory.RefID
}

func (d *dictSlot) Get() (memory.RefID, error) {
	c, err := d.table.DictCell(d.cell)
	if err != nil {
		return memory.Nil, err
	}

	return c.Value, nil
}

func (d *dictSlot) Set(ref memory.RefID) error {
	c, err := d.table.DictCell(d.cell)
	if err != nil {
		return err
	}

	c.Value = ref

	return d.table.SetDictCell(d.cell, c)
}
