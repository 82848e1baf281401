package printer

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/rhino1998/minipy/pkg/memory"
)

const DefaultDepth = 4

const ellipsis = "..."

// Fprint renders the value at id to w. Composites nested deeper than depth
// render as an ellipsis, which also bounds output for cyclic values.
func Fprint(w io.Writer, table *memory.Table, id memory.RefID, depth int) error {
	var b strings.Builder

	err := write(&b, table, id, depth)
	if err != nil {
		return err
	}

	_, err = io.WriteString(w, b.String())
	return err
}

func Sprint(table *memory.Table, id memory.RefID, depth int) (string, error) {
	var b strings.Builder

	err := write(&b, table, id, depth)
	if err != nil {
		return "", err
	}

	return b.String(), nil
}

func write(b *strings.Builder, table *memory.Table, id memory.RefID, depth int) error {
	ref, err := table.Deref(id)
	if err != nil {
		return err
	}

	if ref.Kind().IsComposite() && depth <= 0 {
		b.WriteString(ellipsis)
		return nil
	}

	switch ref := ref.(type) {
	case memory.Float:
		b.WriteString(FormatFloat(ref.Value))
	case memory.String:
		b.WriteByte('\'')
		b.WriteString(ref.Value)
		b.WriteByte('\'')
	case memory.ListCell:
		b.WriteByte('[')

		for cell, first := ref, true; !cell.IsTerminator(); first = false {
			if !first {
				b.WriteString(", ")
			}

			err := write(b, table, cell.Value, depth-1)
			if err != nil {
				return err
			}

			cell, err = table.ListCell(cell.Next)
			if err != nil {
				return err
			}
		}

		b.WriteByte(']')
	case memory.DictCell:
		b.WriteByte('{')

		for cell, first := ref, true; !cell.IsTerminator(); first = false {
			if !first {
				b.WriteString(", ")
			}

			err := write(b, table, cell.Key, depth-1)
			if err != nil {
				return err
			}

			b.WriteString(": ")

			err = write(b, table, cell.Value, depth-1)
			if err != nil {
				return err
			}

			cell, err = table.DictCell(cell.Next)
			if err != nil {
				return err
			}
		}

		b.WriteByte('}')
	default:
		return fmt.Errorf("%w: cannot print %v holding %v", memory.ErrInvalidReference, id, ref.Kind())
	}

	return nil
}

// FormatFloat matches C's %f, including its spelling of infinities and NaN.
func FormatFloat(f float32) string {
	switch {
	case math.IsNaN(float64(f)):
		return "nan"
	case math.IsInf(float64(f), 1):
		return "inf"
	case math.IsInf(float64(f), -1):
		return "-inf"
	default:
		return fmt.Sprintf("%f", f)
	}
}
