package memory

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	ErrAllocationExhausted = errors.New("allocation exhausted")
	ErrPoolClosed          = errors.New("pool closed")
	ErrInvalidAddr         = errors.New("invalid pool address")
)

// HeaderSize is the number of bytes written in front of every payload.
const HeaderSize = 8

type Addr int

func (a Addr) String() string {
	return fmt.Sprintf("0x%08x", int(a))
}

func (a Addr) Offset(o int) Addr {
	return Addr(int(a) + o)
}

// Header precedes every allocation in the arena. Size includes the header
// itself.
type Header struct {
	Size  int
	Owner RefID
}

func (h Header) PayloadSize() int {
	return h.Size - HeaderSize
}

// Pool is a fixed-size arena served by a bump pointer. Allocations are never
// freed individually; the whole arena goes away with Close.
type Pool struct {
	mem    []byte
	cursor Addr
}

func NewPool(capacity int) (*Pool, error) {
	if capacity <= HeaderSize {
		return nil, fmt.Errorf("pool capacity must exceed %d bytes, got %d", HeaderSize, capacity)
	}

	return &Pool{
		mem: make([]byte, capacity),
	}, nil
}

func (p *Pool) Capacity() int {
	return len(p.mem)
}

func (p *Pool) Used() int {
	return int(p.cursor)
}

func (p *Pool) Allocate(size int, owner RefID) (Addr, error) {
	if p.mem == nil {
		return 0, ErrPoolClosed
	}

	if size < 0 {
		return 0, fmt.Errorf("invalid allocation size %d", size)
	}

	requested := HeaderSize + size
	if int(p.cursor)+requested > len(p.mem) {
		return 0, fmt.Errorf("%w: cannot service request of size %d with %d of %d bytes allocated",
			ErrAllocationExhausted, size, int(p.cursor), len(p.mem))
	}

	p.putHeader(p.cursor, Header{Size: requested, Owner: owner})

	addr := p.cursor.Offset(HeaderSize)
	p.cursor = p.cursor.Offset(requested)

	return addr, nil
}

// Header returns the header of the allocation whose payload starts at addr.
func (p *Pool) Header(addr Addr) (Header, error) {
	if p.mem == nil {
		return Header{}, ErrPoolClosed
	}

	if addr < HeaderSize || addr > p.cursor {
		return Header{}, fmt.Errorf("%w: %v", ErrInvalidAddr, addr)
	}

	h := p.header(addr.Offset(-HeaderSize))
	if h.Size < HeaderSize || int(addr)+h.PayloadSize() > int(p.cursor) {
		return Header{}, fmt.Errorf("%w: corrupt header at %v", ErrInvalidAddr, addr)
	}

	return h, nil
}

// Payload returns the bytes of the allocation starting at addr. The returned
// slice aliases the arena and must not be retained across allocations.
func (p *Pool) Payload(addr Addr) ([]byte, error) {
	h, err := p.Header(addr)
	if err != nil {
		return nil, err
	}

	end := int(addr) + h.PayloadSize()
	return p.mem[addr:end:end], nil
}

// Walk visits every allocation from the start of the arena to the cursor.
// Every header must describe an allocation that ends at or before the cursor.
func (p *Pool) Walk(fn func(addr Addr, h Header) error) error {
	if p.mem == nil {
		return ErrPoolClosed
	}

	for curr := Addr(0); curr < p.cursor; {
		if int(curr)+HeaderSize > int(p.cursor) {
			return fmt.Errorf("%w: truncated header at %v", ErrInvalidAddr, curr)
		}

		h := p.header(curr)
		if h.Size < HeaderSize || int(curr)+h.Size > int(p.cursor) {
			return fmt.Errorf("%w: corrupt header at %v", ErrInvalidAddr, curr)
		}

		err := fn(curr.Offset(HeaderSize), h)
		if err != nil {
			return err
		}

		curr = curr.Offset(h.Size)
	}

	return nil
}

func (p *Pool) Dump(w io.Writer) error {
	return p.Walk(func(addr Addr, h Header) error {
		data := p.mem[addr : int(addr)+h.PayloadSize()]
		_, err := fmt.Fprintf(w, "size %d; refId %d; data: % x\n", h.PayloadSize(), h.Owner, data)
		return err
	})
}

// Bytes returns a copy of the allocated region of the arena.
func (p *Pool) Bytes() []byte {
	return append([]byte(nil), p.mem[:p.cursor]...)
}

// Restore replaces the allocated region with data, which must have been
// produced by Bytes on a pool of compatible layout. The pool is left empty if
// data does not walk cleanly.
func (p *Pool) Restore(data []byte) error {
	if p.mem == nil {
		return ErrPoolClosed
	}

	if len(data) > len(p.mem) {
		return fmt.Errorf("%w: image needs %d bytes, pool has %d", ErrAllocationExhausted, len(data), len(p.mem))
	}

	clear(p.mem)
	copy(p.mem, data)
	p.cursor = Addr(len(data))

	err := p.Walk(func(Addr, Header) error { return nil })
	if err != nil {
		clear(p.mem)
		p.cursor = 0
		return err
	}

	return nil
}

func (p *Pool) Close() {
	p.mem = nil
	p.cursor = 0
}

func (p *Pool) header(at Addr) Header {
	return Header{
		Size:  int(int32(binary.LittleEndian.Uint32(p.mem[at:]))),
		Owner: RefID(int32(binary.LittleEndian.Uint32(p.mem[at.Offset(4):]))),
	}
}

func (p *Pool) putHeader(at Addr, h Header) {
	binary.LittleEndian.PutUint32(p.mem[at:], uint32(int32(h.Size)))
	binary.LittleEndian.PutUint32(p.mem[at.Offset(4):], uint32(int32(h.Owner)))
}
