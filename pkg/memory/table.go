package memory

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
)

var (
	ErrInvalidReference = errors.New("invalid reference")
	ErrKindMismatch     = errors.New("type mismatch")
)

const DefaultInitialTableSize = 8

// Slot is the raw table entry: a tag plus the address of its payload in the
// pool. Collectors may relocate the payload and rewrite Payload without
// changing the id that owns the slot.
type Slot struct {
	Kind    Kind
	Payload Addr
}

// Table maps RefIDs to slots. It only grows; ids are never reused.
type Table struct {
	logger  *slog.Logger
	pool    *Pool
	slots   []Slot
	initial int
	maxRefs int
}

func NewTable(logger *slog.Logger, pool *Pool, initialSize, maxRefs int) *Table {
	if initialSize <= 0 {
		initialSize = DefaultInitialTableSize
	}

	return &Table{
		logger:  logger,
		pool:    pool,
		initial: initialSize,
		maxRefs: maxRefs,
	}
}

func (t *Table) Pool() *Pool {
	return t.pool
}

func (t *Table) Len() int {
	return len(t.slots)
}

func (t *Table) Cap() int {
	return cap(t.slots)
}

// NewReference appends an Empty slot and returns its id.
func (t *Table) NewReference() (RefID, error) {
	if t.maxRefs > 0 && len(t.slots) >= t.maxRefs {
		return Nil, fmt.Errorf("%w: reference table is limited to %d entries", ErrAllocationExhausted, t.maxRefs)
	}

	if len(t.slots) == cap(t.slots) {
		t.grow()
	}

	t.slots = append(t.slots, Slot{Kind: KindEmpty})

	return RefID(len(t.slots) - 1), nil
}

func (t *Table) grow() {
	newCap := cap(t.slots) * 2
	if newCap == 0 {
		newCap = t.initial
	}

	if t.maxRefs > 0 && newCap > t.maxRefs {
		newCap = t.maxRefs
	}

	slots := make([]Slot, len(t.slots), newCap)
	copy(slots, t.slots)

	t.logger.Debug("growing reference table", "old_cap", cap(t.slots), "new_cap", newCap)

	t.slots = slots
}

func (t *Table) Slot(id RefID) (Slot, error) {
	if id < 0 || int(id) >= len(t.slots) {
		return Slot{}, fmt.Errorf("%w: %v (table has %d entries)", ErrInvalidReference, id, len(t.slots))
	}

	return t.slots[id], nil
}

func (t *Table) Kind(id RefID) (Kind, error) {
	slot, err := t.Slot(id)
	if err != nil {
		return KindEmpty, err
	}

	return slot.Kind, nil
}

// Deref decodes the value stored at id.
func (t *Table) Deref(id RefID) (Reference, error) {
	slot, err := t.Slot(id)
	if err != nil {
		return nil, err
	}

	if slot.Kind == KindEmpty {
		return Empty{}, nil
	}

	data, err := t.pool.Payload(slot.Payload)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", id, err)
	}

	switch slot.Kind {
	case KindFloat:
		if len(data) != floatPayloadSize {
			return nil, fmt.Errorf("%v: float payload has %d bytes", id, len(data))
		}

		return Float{Value: math.Float32frombits(binary.LittleEndian.Uint32(data))}, nil
	case KindString:
		return String{Value: string(data)}, nil
	case KindList:
		if len(data) != listCellPayloadSize {
			return nil, fmt.Errorf("%v: list cell payload has %d bytes", id, len(data))
		}

		return ListCell{
			Next:  getRef(data, 0),
			Value: getRef(data, 1),
		}, nil
	case KindDict:
		if len(data) != dictCellPayloadSize {
			return nil, fmt.Errorf("%v: dict cell payload has %d bytes", id, len(data))
		}

		return DictCell{
			Next:  getRef(data, 0),
			Key:   getRef(data, 1),
			Value: getRef(data, 2),
		}, nil
	default:
		return nil, fmt.Errorf("%v: unhandled kind %v", id, slot.Kind)
	}
}

func (t *Table) Float(id RefID) (float32, error) {
	ref, err := t.Deref(id)
	if err != nil {
		return 0, err
	}

	f, ok := ref.(Float)
	if !ok {
		return 0, fmt.Errorf("%w: expected float, got %v", ErrKindMismatch, ref.Kind())
	}

	return f.Value, nil
}

func (t *Table) String(id RefID) (string, error) {
	ref, err := t.Deref(id)
	if err != nil {
		return "", err
	}

	s, ok := ref.(String)
	if !ok {
		return "", fmt.Errorf("%w: expected string, got %v", ErrKindMismatch, ref.Kind())
	}

	return s.Value, nil
}

func (t *Table) ListCell(id RefID) (ListCell, error) {
	ref, err := t.Deref(id)
	if err != nil {
		return ListCell{}, err
	}

	c, ok := ref.(ListCell)
	if !ok {
		return ListCell{}, fmt.Errorf("%w: expected list, got %v", ErrKindMismatch, ref.Kind())
	}

	return c, nil
}

func (t *Table) DictCell(id RefID) (DictCell, error) {
	ref, err := t.Deref(id)
	if err != nil {
		return DictCell{}, err
	}

	c, ok := ref.(DictCell)
	if !ok {
		return DictCell{}, fmt.Errorf("%w: expected dict, got %v", ErrKindMismatch, ref.Kind())
	}

	return c, nil
}

// SetListCell overwrites the links of an existing list cell in place.
func (t *Table) SetListCell(id RefID, c ListCell) error {
	data, err := t.payloadOf(id, KindList)
	if err != nil {
		return err
	}

	putRef(data, 0, c.Next)
	putRef(data, 1, c.Value)

	return nil
}

// SetDictCell overwrites the links of an existing dict cell in place.
func (t *Table) SetDictCell(id RefID, c DictCell) error {
	data, err := t.payloadOf(id, KindDict)
	if err != nil {
		return err
	}

	putRef(data, 0, c.Next)
	putRef(data, 1, c.Key)
	putRef(data, 2, c.Value)

	return nil
}

func (t *Table) MakeFloat(f float32) (RefID, error) {
	id, data, err := t.make(KindFloat, floatPayloadSize)
	if err != nil {
		return Nil, err
	}

	binary.LittleEndian.PutUint32(data, math.Float32bits(f))

	return id, nil
}

func (t *Table) MakeString(s string) (RefID, error) {
	id, data, err := t.make(KindString, len(s))
	if err != nil {
		return Nil, err
	}

	copy(data, s)

	return id, nil
}

func (t *Table) MakeListTerminator() (RefID, error) {
	return t.MakeListCell(Nil, Nil)
}

func (t *Table) MakeDictTerminator() (RefID, error) {
	return t.MakeDictCell(Nil, Nil, Nil)
}

func (t *Table) MakeListCell(next, value RefID) (RefID, error) {
	id, data, err := t.make(KindList, listCellPayloadSize)
	if err != nil {
		return Nil, err
	}

	putRef(data, 0, next)
	putRef(data, 1, value)

	return id, nil
}

func (t *Table) MakeDictCell(next, key, value RefID) (RefID, error) {
	id, data, err := t.make(KindDict, dictCellPayloadSize)
	if err != nil {
		return Nil, err
	}

	putRef(data, 0, next)
	putRef(data, 1, key)
	putRef(data, 2, value)

	return id, nil
}

// make allocates a slot and its pool payload. If the pool is exhausted the
// slot is released again.
func (t *Table) make(kind Kind, size int) (RefID, []byte, error) {
	id, err := t.NewReference()
	if err != nil {
		return Nil, nil, err
	}

	addr, err := t.pool.Allocate(size, id)
	if err != nil {
		t.logger.Debug("pool allocation failed", "ref", id, "kind", kind, "size", size, "err", err)
		t.slots = t.slots[:id]
		return Nil, nil, err
	}

	t.slots[id] = Slot{Kind: kind, Payload: addr}

	data, err := t.pool.Payload(addr)
	if err != nil {
		return Nil, nil, err
	}

	return id, data, nil
}

func (t *Table) payloadOf(id RefID, kind Kind) ([]byte, error) {
	slot, err := t.Slot(id)
	if err != nil {
		return nil, err
	}

	if slot.Kind != kind {
		return nil, fmt.Errorf("%w: expected %v, got %v", ErrKindMismatch, kind, slot.Kind)
	}

	return t.pool.Payload(slot.Payload)
}

// Slots returns a copy of every slot, indexed by RefID.
func (t *Table) Slots() []Slot {
	return append([]Slot(nil), t.slots...)
}

// Restore replaces the table contents. Every non-empty slot must point at a
// pool allocation owned by its id, and every cell must pass verifyLinks. The
// table is left empty on failure.
func (t *Table) Restore(slots []Slot) error {
	if t.maxRefs > 0 && len(slots) > t.maxRefs {
		return fmt.Errorf("%w: image holds %d references, limit is %d", ErrAllocationExhausted, len(slots), t.maxRefs)
	}

	for i, slot := range slots {
		if slot.Kind == KindEmpty {
			continue
		}

		h, err := t.pool.Header(slot.Payload)
		if err != nil {
			return fmt.Errorf("%v: %w", RefID(i), err)
		}

		if h.Owner != RefID(i) {
			return fmt.Errorf("%w: %v payload is owned by %v", ErrInvalidReference, RefID(i), h.Owner)
		}
	}

	capacity := t.initial
	for capacity < len(slots) {
		capacity *= 2
	}

	t.slots = make([]Slot, len(slots), capacity)
	copy(t.slots, slots)

	err := t.verifyLinks()
	if err != nil {
		t.slots = nil
		return err
	}

	return nil
}

// verifyLinks checks that every cell links only to Nil or to existing ids,
// that Next stays within cells of the same kind, and that every Next chain
// reaches a terminator.
func (t *Table) verifyLinks() error {
	const (
		unvisited = iota
		visiting
		terminated
	)

	state := make([]uint8, len(t.slots))

	var chain []RefID
	for i, slot := range t.slots {
		if !slot.Kind.IsComposite() {
			continue
		}

		chain = chain[:0]
		for id := RefID(i); id != Nil && state[id] != terminated; {
			if state[id] == visiting {
				return fmt.Errorf("%w: %v links back into its own chain", ErrInvalidReference, id)
			}

			state[id] = visiting
			chain = append(chain, id)

			next, err := t.verifyCell(id, slot.Kind)
			if err != nil {
				return err
			}

			id = next
		}

		for _, id := range chain {
			state[id] = terminated
		}
	}

	return nil
}

// verifyCell checks the links of the cell at id and returns its Next.
func (t *Table) verifyCell(id RefID, kind Kind) (RefID, error) {
	ref, err := t.Deref(id)
	if err != nil {
		return Nil, err
	}

	if ref.Kind() != kind {
		return Nil, fmt.Errorf("%w: %v in a %v chain is a %v", ErrInvalidReference, id, kind, ref.Kind())
	}

	var next RefID
	var links []RefID

	switch c := ref.(type) {
	case ListCell:
		next, links = c.Next, []RefID{c.Value}
	case DictCell:
		next, links = c.Next, []RefID{c.Key, c.Value}
	}

	for _, link := range append(links, next) {
		if link == Nil {
			continue
		}

		_, err := t.Slot(link)
		if err != nil {
			return Nil, fmt.Errorf("%v: %w", id, err)
		}
	}

	return next, nil
}

func getRef(data []byte, index int) RefID {
	return RefID(int32(binary.LittleEndian.Uint32(data[index*4:])))
}

func putRef(data []byte, index int, id RefID) {
	binary.LittleEndian.PutUint32(data[index*4:], uint32(int32(id)))
}
