package memory

import "fmt"

// RefID is the stable handle of a value in a Table. It is the only way values
// address each other.
type RefID int32

// Nil is the sentinel stored in terminator cells and unpopulated slots.
const Nil RefID = -1

func (id RefID) String() string {
	if id == Nil {
		return "ref(nil)"
	}

	return fmt.Sprintf("ref(%d)", int32(id))
}

type Kind int

const (
	KindEmpty Kind = iota
	KindFloat
	KindString
	KindList
	KindDict
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "<empty>"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindDict:
		return "dict"
	default:
		return "<unknown>"
	}
}

func (k Kind) IsComposite() bool {
	return k == KindList || k == KindDict
}

// Reference is the decoded content of a table slot. It is one of Empty,
// Float, String, ListCell or DictCell.
type Reference interface {
	Kind() Kind
	reference()
}

type Empty struct{}

func (Empty) Kind() Kind { return KindEmpty }
func (Empty) reference() {}

type Float struct {
	Value float32
}

func (Float) Kind() Kind { return KindFloat }
func (Float) reference() {}

type String struct {
	Value string
}

func (String) Kind() Kind { return KindString }
func (String) reference() {}

// ListCell is a cons cell. A list value is the id of its first cell; the
// empty list is a terminator whose links are both Nil.
type ListCell struct {
	Next  RefID
	Value RefID
}

func (ListCell) Kind() Kind { return KindList }
func (ListCell) reference() {}

func (c ListCell) IsTerminator() bool {
	return c.Next == Nil
}

type DictCell struct {
	Next  RefID
	Key   RefID
	Value RefID
}

func (DictCell) Kind() Kind { return KindDict }
func (DictCell) reference() {}

func (c DictCell) IsTerminator() bool {
	return c.Next == Nil
}

const (
	floatPayloadSize    = 4
	listCellPayloadSize = 8
	dictCellPayloadSize = 12
)
