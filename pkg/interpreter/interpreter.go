package interpreter

import (
	"fmt"
	"io"
	"math"

	"github.com/rhino1998/minipy/pkg/memory"
	"github.com/rhino1998/minipy/pkg/parser"
	"github.com/rhino1998/minipy/pkg/printer"
)

// EvaluateStatement runs a single statement. Results of expression statements
// other than assignments are printed to w at the configured depth.
func (s *Session) EvaluateStatement(w io.Writer, stmt parser.Statement) error {
	switch stmt := stmt.(type) {
	case nil:
		return nil
	case *parser.DeletionStatement:
		ident, ok := stmt.Target.(*parser.IdentifierExpr)
		if !ok {
			return stmt.Target.WrapError(fmt.Errorf("%w: only variables can be deleted", ErrTypeMismatch))
		}

		err := s.scope.Delete(string(ident.Identifier))
		if err != nil {
			return ident.WrapError(err)
		}

		return nil
	case *parser.ExprStatement:
		ref, err := s.Evaluate(stmt.Expr)
		if err != nil {
			return err
		}

		if _, ok := stmt.Expr.(*parser.AssignExpr); ok {
			return nil
		}

		err = printer.Fprint(w, s.table, ref, s.config.PrintDepth)
		if err != nil {
			return stmt.WrapError(err)
		}

		_, err = io.WriteString(w, "\n")
		return err
	default:
		return stmt.WrapError(fmt.Errorf("unhandled statement type: %T", stmt))
	}
}

// Evaluate produces the reference holding the value of expr.
func (s *Session) Evaluate(expr parser.Expr) (memory.RefID, error) {
	switch expr := expr.(type) {
	case *parser.FloatLiteral:
		ref, err := s.table.MakeFloat(expr.Value)
		return ref, expr.WrapError(err)
	case *parser.StringLiteral:
		ref, err := s.table.MakeString(expr.Value)
		return ref, expr.WrapError(err)
	case *parser.IdentifierExpr:
		ref, err := s.scope.Get(string(expr.Identifier))
		return ref, expr.WrapError(err)
	case *parser.NegateExpr:
		val, err := s.evaluateFloat(expr.Expr)
		if err != nil {
			return memory.Nil, err
		}

		ref, err := s.table.MakeFloat(-val)
		return ref, expr.WrapError(err)
	case *parser.BinaryExpr:
		lhs, err := s.evaluateFloat(expr.Left)
		if err != nil {
			return memory.Nil, err
		}

		rhs, err := s.evaluateFloat(expr.Right)
		if err != nil {
			return memory.Nil, err
		}

		result, err := binaryOperate(lhs, rhs, expr.Operator)
		if err != nil {
			return memory.Nil, expr.WrapError(err)
		}

		ref, err := s.table.MakeFloat(result)
		return ref, expr.WrapError(err)
	case *parser.ListLiteral:
		return s.evaluateList(expr)
	case *parser.DictLiteral:
		return s.evaluateDict(expr)
	case *parser.SubscriptExpr:
		base, err := s.Evaluate(expr.Expr)
		if err != nil {
			return memory.Nil, err
		}

		slot, err := s.subscript(expr, base, false)
		if err != nil {
			return memory.Nil, err
		}

		ref, err := slot.Get()
		return ref, expr.WrapError(err)
	case *parser.AssignExpr:
		rhs, err := s.Evaluate(expr.Right)
		if err != nil {
			return memory.Nil, err
		}

		lval, err := s.evaluateLvalue(expr.Left)
		if err != nil {
			return memory.Nil, err
		}

		err = lval.Set(rhs)
		if err != nil {
			return memory.Nil, expr.WrapError(err)
		}

		return rhs, nil
	default:
		return memory.Nil, expr.WrapError(fmt.Errorf("unhandled expression type: %T", expr))
	}
}

func (s *Session) evaluateLvalue(expr parser.Expr) (SettableValue, error) {
	switch expr := expr.(type) {
	case *parser.IdentifierExpr:
		slot, err := s.scope.LookupOrCreate(string(expr.Identifier), true)
		return slot, expr.WrapError(err)
	case *parser.SubscriptExpr:
		base, err := s.Evaluate(expr.Expr)
		if err != nil {
			return nil, err
		}

		return s.subscript(expr, base, true)
	default:
		return nil, expr.WrapError(fmt.Errorf("%w: expression is not assignable", ErrTypeMismatch))
	}
}

// subscript resolves base[index] to the cell slot holding the element. With
// insert set, a missing dict key is added at the head of the dict. The base
// is decoded only after the index is evaluated, since the index may itself
// assign into the same dict.
func (s *Session) subscript(expr *parser.SubscriptExpr, base memory.RefID, insert bool) (SettableValue, error) {
	index, err := s.Evaluate(expr.Index)
	if err != nil {
		return nil, err
	}

	ref, err := s.table.Deref(base)
	if err != nil {
		return nil, expr.WrapError(err)
	}

	switch head := ref.(type) {
	case memory.ListCell:
		f, err := s.floatOrFail(index)
		if err != nil {
			return nil, expr.Index.WrapError(err)
		}

		cell, err := s.listIndex(base, head, f)
		if err != nil {
			return nil, expr.WrapError(err)
		}

		return &listSlot{table: s.table, cell: cell}, nil
	case memory.DictCell:
		cell, found, err := s.dictFind(base, head, index)
		if err != nil {
			return nil, expr.WrapError(err)
		}

		if found {
			return &dictSlot{table: s.table, cell: cell}, nil
		}

		if !insert {
			return nil, expr.Index.WrapError(s.keyNotFound(index))
		}

		err = s.dictInsert(base, head, index)
		if err != nil {
			return nil, expr.WrapError(err)
		}

		return &dictSlot{table: s.table, cell: base}, nil
	default:
		return nil, expr.Expr.WrapError(fmt.Errorf("%w: %v is not subscriptable", ErrTypeMismatch, ref.Kind()))
	}
}

// listIndex walks index cells from head and returns the id of the cell
// holding the element.
func (s *Session) listIndex(id memory.RefID, head memory.ListCell, index float32) (memory.RefID, error) {
	f := math.Trunc(float64(index))
	if math.IsNaN(f) || f < 0 {
		return memory.Nil, fmt.Errorf("%w: invalid list index %s", ErrIndexOutOfBounds, printer.FormatFloat(index))
	}

	if f > math.MaxInt32 {
		f = math.MaxInt32
	}

	n := int(f)

	cell := head
	steps := 0
	for ; steps < n && !cell.IsTerminator(); steps++ {
		next, err := s.table.ListCell(cell.Next)
		if err != nil {
			return memory.Nil, err
		}

		id, cell = cell.Next, next
	}

	if cell.IsTerminator() {
		return memory.Nil, fmt.Errorf("%w: index %d requested, list ended after %d steps", ErrIndexOutOfBounds, n, steps)
	}

	return id, nil
}

// dictFind scans the cells of a dict for key. Keys are checked before the
// scan so that an invalid key fails even on an empty dict.
func (s *Session) dictFind(id memory.RefID, head memory.DictCell, key memory.RefID) (memory.RefID, bool, error) {
	err := s.checkKey(key)
	if err != nil {
		return memory.Nil, false, err
	}

	for cell := head; !cell.IsTerminator(); {
		eq, err := s.keyEquals(cell.Key, key)
		if err != nil {
			return memory.Nil, false, err
		}

		if eq {
			return id, true, nil
		}

		next, err := s.table.DictCell(cell.Next)
		if err != nil {
			return memory.Nil, false, err
		}

		id, cell = cell.Next, next
	}

	return memory.Nil, false, nil
}

// dictInsert adds key at the head of the dict at id with a Nil placeholder
// value. The old head moves to a new cell so that id keeps naming the dict.
func (s *Session) dictInsert(id memory.RefID, head memory.DictCell, key memory.RefID) error {
	clone, err := s.keyClone(key)
	if err != nil {
		return err
	}

	moved, err := s.table.MakeDictCell(head.Next, head.Key, head.Value)
	if err != nil {
		return err
	}

	return s.table.SetDictCell(id, memory.DictCell{Next: moved, Key: clone, Value: memory.Nil})
}

func (s *Session) keyNotFound(key memory.RefID) error {
	text, err := printer.Sprint(s.table, key, 1)
	if err != nil {
		return ErrKeyNotFound
	}

	return fmt.Errorf("%w: %s", ErrKeyNotFound, text)
}

// evaluateList evaluates the elements in source order and conses them onto a
// fresh terminator. The AST chain is in reverse source order.
func (s *Session) evaluateList(expr *parser.ListLiteral) (memory.RefID, error) {
	var nodes []*parser.ListNode
	for node := expr.Elements; node != nil; node = node.Next {
		nodes = append(nodes, node)
	}

	values := make([]memory.RefID, 0, len(nodes))
	for i := len(nodes) - 1; i >= 0; i-- {
		val, err := s.Evaluate(nodes[i].Expr)
		if err != nil {
			return memory.Nil, err
		}

		values = append(values, val)
	}

	list, err := s.table.MakeListTerminator()
	if err != nil {
		return memory.Nil, expr.WrapError(err)
	}

	for i := len(values) - 1; i >= 0; i-- {
		list, err = s.table.MakeListCell(list, values[i])
		if err != nil {
			return memory.Nil, expr.WrapError(err)
		}
	}

	return list, nil
}

// evaluateDict is evaluateList for dicts. Keys are cloned on insertion. A
// repeated key keeps its first position and its last value.
func (s *Session) evaluateDict(expr *parser.DictLiteral) (memory.RefID, error) {
	var nodes []*parser.DictNode
	for node := expr.Entries; node != nil; node = node.Next {
		nodes = append(nodes, node)
	}

	type entry struct {
		key, value memory.RefID
	}

	entries := make([]entry, 0, len(nodes))

outer:
	for i := len(nodes) - 1; i >= 0; i-- {
		key, err := s.Evaluate(nodes[i].Key)
		if err != nil {
			return memory.Nil, err
		}

		err = s.checkKey(key)
		if err != nil {
			return memory.Nil, nodes[i].Key.WrapError(err)
		}

		value, err := s.Evaluate(nodes[i].Value)
		if err != nil {
			return memory.Nil, err
		}

		for j := range entries {
			eq, err := s.keyEquals(entries[j].key, key)
			if err != nil {
				return memory.Nil, nodes[i].Key.WrapError(err)
			}

			if eq {
				entries[j].value = value
				continue outer
			}
		}

		entries = append(entries, entry{key: key, value: value})
	}

	dict, err := s.table.MakeDictTerminator()
	if err != nil {
		return memory.Nil, expr.WrapError(err)
	}

	for i := len(entries) - 1; i >= 0; i-- {
		key, err := s.keyClone(entries[i].key)
		if err != nil {
			return memory.Nil, expr.WrapError(err)
		}

		dict, err = s.table.MakeDictCell(dict, key, entries[i].value)
		if err != nil {
			return memory.Nil, expr.WrapError(err)
		}
	}

	return dict, nil
}

func (s *Session) evaluateFloat(expr parser.Expr) (float32, error) {
	ref, err := s.Evaluate(expr)
	if err != nil {
		return 0, err
	}

	f, err := s.floatOrFail(ref)
	if err != nil {
		return 0, expr.WrapError(err)
	}

	return f, nil
}

func (s *Session) floatOrFail(ref memory.RefID) (float32, error) {
	val, err := s.table.Deref(ref)
	if err != nil {
		return 0, err
	}

	f, ok := val.(memory.Float)
	if !ok {
		return 0, fmt.Errorf("%w: expected numeric value, got %v", ErrTypeMismatch, val.Kind())
	}

	return f.Value, nil
}

func binaryOperate(lhs, rhs float32, op parser.Operator) (float32, error) {
	switch op {
	case parser.OperatorAddition:
		return lhs + rhs, nil
	case parser.OperatorSubtraction:
		return lhs - rhs, nil
	case parser.OperatorMultiplication:
		return lhs * rhs, nil
	case parser.OperatorDivision:
		return lhs / rhs, nil
	default:
		return 0, fmt.Errorf("unsupported binary operation: %s", op)
	}
}
