package memory_test

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/rhino1998/minipy/pkg/memory"
	"github.com/stretchr/testify/require"
)

func TestPool_Allocate(t *testing.T) {
	r := require.New(t)

	pool, err := memory.NewPool(64)
	r.NoError(err)

	a, err := pool.Allocate(4, 0)
	r.NoError(err)
	r.Equal(memory.Addr(memory.HeaderSize), a)

	b, err := pool.Allocate(3, 1)
	r.NoError(err)
	r.Equal(a.Offset(4+memory.HeaderSize), b)

	r.Equal(2*memory.HeaderSize+7, pool.Used())

	h, err := pool.Header(b)
	r.NoError(err)
	r.Equal(memory.RefID(1), h.Owner)
	r.Equal(3+memory.HeaderSize, h.Size)
	r.Equal(3, h.PayloadSize())

	payload, err := pool.Payload(b)
	r.NoError(err)
	r.Len(payload, 3)
}

func TestPool_Exhausted(t *testing.T) {
	r := require.New(t)

	pool, err := memory.NewPool(32)
	r.NoError(err)

	_, err = pool.Allocate(24, 0)
	r.NoError(err)
	r.Equal(32, pool.Used())

	_, err = pool.Allocate(0, 1)
	r.ErrorIs(err, memory.ErrAllocationExhausted)
	r.Equal(32, pool.Used())
}

func TestPool_InvalidCapacity(t *testing.T) {
	_, err := memory.NewPool(memory.HeaderSize)
	require.Error(t, err)
}

func TestPool_Dump(t *testing.T) {
	r := require.New(t)

	pool, err := memory.NewPool(128)
	r.NoError(err)

	addr, err := pool.Allocate(2, 7)
	r.NoError(err)

	payload, err := pool.Payload(addr)
	r.NoError(err)
	copy(payload, "hi")

	_, err = pool.Allocate(0, 8)
	r.NoError(err)

	var out bytes.Buffer
	r.NoError(pool.Dump(&out))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	r.Equal([]string{
		"size 2; refId 7; data: 68 69",
		"size 0; refId 8; data: ",
	}, lines)
}

func TestPool_HeaderRejectsBadAddr(t *testing.T) {
	r := require.New(t)

	pool, err := memory.NewPool(64)
	r.NoError(err)

	_, err = pool.Header(0)
	r.ErrorIs(err, memory.ErrInvalidAddr)

	_, err = pool.Header(40)
	r.ErrorIs(err, memory.ErrInvalidAddr)
}

func TestPool_RestoreRoundTrip(t *testing.T) {
	r := require.New(t)

	pool, err := memory.NewPool(64)
	r.NoError(err)

	_, err = pool.Allocate(4, 0)
	r.NoError(err)
	_, err = pool.Allocate(1, 1)
	r.NoError(err)

	other, err := memory.NewPool(64)
	r.NoError(err)
	r.NoError(other.Restore(pool.Bytes()))
	r.Equal(pool.Used(), other.Used())

	var a, b bytes.Buffer
	r.NoError(pool.Dump(&a))
	r.NoError(other.Dump(&b))
	r.Equal(a.String(), b.String())
}

func TestPool_RestoreRejectsOversizedHeader(t *testing.T) {
	r := require.New(t)

	pool, err := memory.NewPool(64)
	r.NoError(err)

	data := make([]byte, 16)
	binary.LittleEndian.PutUint32(data[0:], 1<<30)
	r.ErrorIs(pool.Restore(data), memory.ErrInvalidAddr)

	binary.LittleEndian.PutUint32(data[0:], 12)
	r.ErrorIs(pool.Restore(data), memory.ErrInvalidAddr)

	binary.LittleEndian.PutUint32(data[0:], 8)
	binary.LittleEndian.PutUint32(data[8:], 8)
	r.NoError(pool.Restore(data))
	r.ErrorIs(pool.Restore(data[:12]), memory.ErrInvalidAddr)
	r.Zero(pool.Used())
}

func TestPool_Closed(t *testing.T) {
	r := require.New(t)

	pool, err := memory.NewPool(64)
	r.NoError(err)
	pool.Close()

	_, err = pool.Allocate(1, 0)
	r.ErrorIs(err, memory.ErrPoolClosed)
}
