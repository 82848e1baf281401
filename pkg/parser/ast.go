package parser

import (
	"errors"
	"fmt"
)

type Keyword string

const (
	KeywordDel Keyword = "del"
)

type Identifier string

type Position struct {
	Line   int
	Column int
}

func (p Position) Pos() Position {
	return p
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column+1)
}

// WrapError attaches p to err unless err already carries a position.
func (p Position) WrapError(err error) error {
	if err == nil {
		return nil
	}

	var posErr PositionError
	if errors.As(err, &posErr) {
		return err
	}

	return PositionError{Position: p, Err: err}
}

type PositionError struct {
	Position
	Err error
}

func (e PositionError) Error() string {
	return fmt.Sprintf("%v: %v", e.Position, e.Err)
}

func (e PositionError) Unwrap() error {
	return e.Err
}

// SyntaxError is produced by the lexer and parser, always wrapped in a
// PositionError.
type SyntaxError struct {
	Msg string
}

func (e SyntaxError) Error() string {
	return e.Msg
}

type Node interface {
	Pos() Position
	WrapError(error) error
}

type Statement interface {
	Node
	statement()
}

type DeletionStatement struct {
	Position
	Target Expr
}

func (*DeletionStatement) statement() {}

type ExprStatement struct {
	Position
	Expr Expr
}

func (*ExprStatement) statement() {}

type Expr interface {
	Node
	expr()
}

type SubscriptExpr struct {
	Position
	Expr  Expr
	Index Expr
}

func (*SubscriptExpr) expr() {}

type NegateExpr struct {
	Position
	Expr Expr
}

func (*NegateExpr) expr() {}

type IdentifierExpr struct {
	Position
	Identifier Identifier
}

func (*IdentifierExpr) expr() {}

type StringLiteral struct {
	Position
	Value string
}

func (*StringLiteral) expr() {}

type FloatLiteral struct {
	Position
	Value float32
}

func (*FloatLiteral) expr() {}

// ListNode chains list literal elements. The head is the LAST element in
// source order.
type ListNode struct {
	Next *ListNode
	Expr Expr
}

type ListLiteral struct {
	Position
	Elements *ListNode
}

func (*ListLiteral) expr() {}

// DictNode chains dict literal entries. The head is the LAST entry in source
// order.
type DictNode struct {
	Next  *DictNode
	Key   Expr
	Value Expr
}

type DictLiteral struct {
	Position
	Entries *DictNode
}

func (*DictLiteral) expr() {}

type AssignExpr struct {
	Position
	Left  Expr
	Right Expr
}

func (*AssignExpr) expr() {}

type Operator string

const (
	OperatorAddition       Operator = "+"
	OperatorSubtraction    Operator = "-"
	OperatorMultiplication Operator = "*"
	OperatorDivision       Operator = "/"
)

type BinaryExpr struct {
	Position
	Left     Expr
	Operator Operator
	Right    Expr
}

func (*BinaryExpr) expr() {}
