package parser

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

type TokenType int

const (
	TokenEOF TokenType = iota
	TokenDel
	TokenLParen
	TokenRParen
	TokenLBracket
	TokenRBracket
	TokenLBrace
	TokenRBrace
	TokenColon
	TokenEqual
	TokenPlus
	TokenMinus
	TokenAsterisk
	TokenSlash
	TokenComma
	TokenFloat
	TokenString
	TokenIdent
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "end of line"
	case TokenDel:
		return "`del`"
	case TokenLParen:
		return "`(`"
	case TokenRParen:
		return "`)`"
	case TokenLBracket:
		return "`[`"
	case TokenRBracket:
		return "`]`"
	case TokenLBrace:
		return "`{`"
	case TokenRBrace:
		return "`}`"
	case TokenColon:
		return "`:`"
	case TokenEqual:
		return "`=`"
	case TokenPlus:
		return "`+`"
	case TokenMinus:
		return "`-`"
	case TokenAsterisk:
		return "`*`"
	case TokenSlash:
		return "`/`"
	case TokenComma:
		return "`,`"
	case TokenFloat:
		return "number"
	case TokenString:
		return "string"
	case TokenIdent:
		return "identifier"
	default:
		return "<unknown>"
	}
}

type Token struct {
	Type  TokenType
	Pos   Position
	Text  string
	Float float32
}

var punctuation = map[byte]TokenType{
	'(': TokenLParen,
	')': TokenRParen,
	'[': TokenLBracket,
	']': TokenRBracket,
	'{': TokenLBrace,
	'}': TokenRBrace,
	':': TokenColon,
	'=': TokenEqual,
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenAsterisk,
	'/': TokenSlash,
	',': TokenComma,
}

// Lexer splits a single source line into tokens.
type Lexer struct {
	src  string
	line int
	pos  int
}

func NewLexer(line int, src string) *Lexer {
	return &Lexer{
		src:  src,
		line: line,
	}
}

func (l *Lexer) position() Position {
	return Position{Line: l.line, Column: l.pos}
}

func (l *Lexer) errorf(at int, format string, args ...any) error {
	return PositionError{
		Position: Position{Line: l.line, Column: at},
		Err:      SyntaxError{Msg: fmt.Sprintf(format, args...)},
	}
}

func (l *Lexer) Next() (Token, error) {
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.pos++
	}

	start := l.pos
	tok := Token{Pos: l.position()}

	if l.pos >= len(l.src) {
		tok.Type = TokenEOF
		return tok, nil
	}

	ch := l.src[l.pos]

	if typ, ok := punctuation[ch]; ok {
		l.pos++
		tok.Type = typ
		tok.Text = string(ch)
		return tok, nil
	}

	switch {
	case ch == '\'' || ch == '"':
		return l.readString(tok)
	case isDigit(ch):
		return l.readNumber(tok)
	case isIdentStart(ch):
		for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
			l.pos++
		}

		tok.Text = l.src[start:l.pos]
		if Keyword(tok.Text) == KeywordDel {
			tok.Type = TokenDel
		} else {
			tok.Type = TokenIdent
		}

		return tok, nil
	default:
		r, _ := utf8.DecodeRuneInString(l.src[start:])
		if r == utf8.RuneError {
			return tok, l.errorf(start, "invalid byte %#x", ch)
		}

		return tok, l.errorf(start, "unknown token %q", r)
	}
}

func (l *Lexer) readString(tok Token) (Token, error) {
	start := l.pos
	quote := l.src[l.pos]
	l.pos++

	for l.pos < len(l.src) && l.src[l.pos] != quote {
		l.pos++
	}

	if l.pos >= len(l.src) {
		return tok, l.errorf(start, "unterminated string literal")
	}

	tok.Type = TokenString
	tok.Text = l.src[start+1 : l.pos]
	l.pos++

	return tok, nil
}

func (l *Lexer) readNumber(tok Token) (Token, error) {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}

	if l.pos+1 < len(l.src) && l.src[l.pos] == '.' && isDigit(l.src[l.pos+1]) {
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}

	tok.Text = l.src[start:l.pos]

	f, err := strconv.ParseFloat(tok.Text, 32)
	if err != nil {
		return tok, l.errorf(start, "invalid number %q", tok.Text)
	}

	tok.Type = TokenFloat
	tok.Float = float32(f)

	return tok, nil
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
