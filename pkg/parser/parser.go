package parser

import "fmt"

type Precedence int

const (
	PrecedenceLowest  Precedence = 0
	PrecedenceAssign  Precedence = 1
	PrecedencePlus    Precedence = 2
	PrecedenceMult    Precedence = 3
	PrecedenceUnaryOp Precedence = 4
)

type Parser struct {
	lexer *Lexer
	tok   Token
}

// Parse reads a single statement from src. A blank line yields a nil
// statement and no error.
func Parse(src string) (Statement, error) {
	return ParseLine(1, src)
}

func ParseLine(line int, src string) (Statement, error) {
	p := &Parser{
		lexer: NewLexer(line, src),
	}

	err := p.bump()
	if err != nil {
		return nil, err
	}

	return p.readStatement()
}

func (p *Parser) bump() error {
	tok, err := p.lexer.Next()
	if err != nil {
		return err
	}

	p.tok = tok

	return nil
}

func (p *Parser) errorf(pos Position, format string, args ...any) error {
	return PositionError{
		Position: pos,
		Err:      SyntaxError{Msg: fmt.Sprintf(format, args...)},
	}
}

func (p *Parser) tryConsume(typ TokenType) (bool, error) {
	if p.tok.Type != typ {
		return false, nil
	}

	return true, p.bump()
}

func (p *Parser) expectConsume(typ TokenType) error {
	if p.tok.Type != typ {
		return p.errorf(p.tok.Pos, "expected %v, got %v", typ, p.tok.Type)
	}

	return p.bump()
}

func (p *Parser) readStatement() (Statement, error) {
	pos := p.tok.Pos

	switch p.tok.Type {
	case TokenEOF:
		return nil, nil
	case TokenDel:
		err := p.bump()
		if err != nil {
			return nil, err
		}

		exprPos := p.tok.Pos
		target, err := p.readExpression(PrecedenceLowest)
		if err != nil {
			return nil, err
		}

		if !isLval(target) {
			return nil, p.errorf(exprPos, "expected lval expression for `del`")
		}

		err = p.expectConsume(TokenEOF)
		if err != nil {
			return nil, err
		}

		return &DeletionStatement{Position: pos, Target: target}, nil
	default:
		expr, err := p.readExpression(PrecedenceLowest)
		if err != nil {
			return nil, err
		}

		err = p.expectConsume(TokenEOF)
		if err != nil {
			return nil, err
		}

		return &ExprStatement{Position: pos, Expr: expr}, nil
	}
}

func (p *Parser) readExpression(prec Precedence) (Expr, error) {
	lhs, err := p.readLiteral()
	if err != nil {
		return nil, err
	}

	for {
		opTok := p.tok

		if opTok.Type == TokenLBracket {
			err := p.bump()
			if err != nil {
				return nil, err
			}

			index, err := p.readExpression(PrecedenceLowest)
			if err != nil {
				return nil, err
			}

			err = p.expectConsume(TokenRBracket)
			if err != nil {
				return nil, err
			}

			lhs = &SubscriptExpr{Position: opTok.Pos, Expr: lhs, Index: index}
			continue
		}

		newPrec, ok := binaryPrecedence(opTok.Type)
		if !ok || newPrec < prec {
			return lhs, nil
		}

		err := p.bump()
		if err != nil {
			return nil, err
		}

		nextPrec := newPrec + 1
		if opTok.Type == TokenEqual {
			nextPrec = newPrec
		}

		rhs, err := p.readExpression(nextPrec)
		if err != nil {
			return nil, err
		}

		if opTok.Type == TokenEqual {
			if !isLval(lhs) {
				return nil, p.errorf(opTok.Pos, "expected lval expression for assignment")
			}

			lhs = &AssignExpr{Position: opTok.Pos, Left: lhs, Right: rhs}
		} else {
			lhs = &BinaryExpr{Position: opTok.Pos, Left: lhs, Operator: Operator(opTok.Text), Right: rhs}
		}
	}
}

func (p *Parser) readLiteral() (Expr, error) {
	tok := p.tok

	switch tok.Type {
	case TokenMinus:
		err := p.bump()
		if err != nil {
			return nil, err
		}

		expr, err := p.readExpression(PrecedenceUnaryOp)
		if err != nil {
			return nil, err
		}

		return &NegateExpr{Position: tok.Pos, Expr: expr}, nil
	case TokenPlus:
		err := p.bump()
		if err != nil {
			return nil, err
		}

		return p.readExpression(PrecedenceUnaryOp)
	case TokenLParen:
		err := p.bump()
		if err != nil {
			return nil, err
		}

		expr, err := p.readExpression(PrecedenceLowest)
		if err != nil {
			return nil, err
		}

		return expr, p.expectConsume(TokenRParen)
	case TokenLBracket:
		return p.readListLiteral()
	case TokenLBrace:
		return p.readDictLiteral()
	case TokenIdent:
		return &IdentifierExpr{Position: tok.Pos, Identifier: Identifier(tok.Text)}, p.bump()
	case TokenFloat:
		return &FloatLiteral{Position: tok.Pos, Value: tok.Float}, p.bump()
	case TokenString:
		return &StringLiteral{Position: tok.Pos, Value: tok.Text}, p.bump()
	default:
		return nil, p.errorf(tok.Pos, "unexpected %v while reading expression", tok.Type)
	}
}

// readListLiteral prepends every element, so the resulting chain is in
// reverse source order.
func (p *Parser) readListLiteral() (Expr, error) {
	pos := p.tok.Pos

	err := p.expectConsume(TokenLBracket)
	if err != nil {
		return nil, err
	}

	var list *ListNode
	for first := true; ; first = false {
		done, err := p.tryConsume(TokenRBracket)
		if err != nil {
			return nil, err
		}

		if done {
			break
		}

		if !first {
			err = p.expectConsume(TokenComma)
			if err != nil {
				return nil, err
			}
		}

		expr, err := p.readExpression(PrecedenceLowest)
		if err != nil {
			return nil, err
		}

		list = &ListNode{Next: list, Expr: expr}
	}

	return &ListLiteral{Position: pos, Elements: list}, nil
}

func (p *Parser) readDictLiteral() (Expr, error) {
	pos := p.tok.Pos

	err := p.expectConsume(TokenLBrace)
	if err != nil {
		return nil, err
	}

	var dict *DictNode
	for first := true; ; first = false {
		done, err := p.tryConsume(TokenRBrace)
		if err != nil {
			return nil, err
		}

		if done {
			break
		}

		if !first {
			err = p.expectConsume(TokenComma)
			if err != nil {
				return nil, err
			}
		}

		key, err := p.readExpression(PrecedenceLowest)
		if err != nil {
			return nil, err
		}

		err = p.expectConsume(TokenColon)
		if err != nil {
			return nil, err
		}

		value, err := p.readExpression(PrecedenceLowest)
		if err != nil {
			return nil, err
		}

		dict = &DictNode{Next: dict, Key: key, Value: value}
	}

	return &DictLiteral{Position: pos, Entries: dict}, nil
}

func binaryPrecedence(typ TokenType) (Precedence, bool) {
	switch typ {
	case TokenAsterisk, TokenSlash:
		return PrecedenceMult, true
	case TokenPlus, TokenMinus:
		return PrecedencePlus, true
	case TokenEqual:
		return PrecedenceAssign, true
	default:
		return 0, false
	}
}

func isLval(expr Expr) bool {
	switch expr.(type) {
	case *IdentifierExpr, *SubscriptExpr:
		return true
	default:
		return false
	}
}
