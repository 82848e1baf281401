package interpreter_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/neilotoole/slogt"
	"github.com/rhino1998/minipy/pkg/interpreter"
	"github.com/rhino1998/minipy/pkg/memory"
	"github.com/stretchr/testify/require"
)

// rawImage mirrors the encoded image closely enough to patch its arena.
type rawImage struct {
	Version int             `cbor:"1,keyasint"`
	Session []byte          `cbor:"2,keyasint"`
	Arena   []byte          `cbor:"3,keyasint"`
	Slots   cbor.RawMessage `cbor:"4,keyasint"`
	Globals cbor.RawMessage `cbor:"5,keyasint"`
}

// corruptImage writes an image of s, lets patch rewrite its arena and returns
// the re-encoded image.
func corruptImage(t *testing.T, s *interpreter.Session, patch func(arena []byte)) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, s.WriteImage(&buf))

	var img rawImage
	require.NoError(t, cbor.Unmarshal(buf.Bytes(), &img))

	patch(img.Arena)

	data, err := cbor.Marshal(&img)
	require.NoError(t, err)

	return bytes.NewBuffer(data)
}

func TestImageRoundTrip(t *testing.T) {
	r := require.New(t)
	s := newSession(t, interpreter.Config{})

	run(t, s,
		"l = [1, 'two', {'three': 3}]",
		"d = {}",
		"d['self'] = d",
		"x = 1 + 2",
	)

	var buf bytes.Buffer
	r.NoError(s.WriteImage(&buf))

	restored, err := interpreter.ReadImage(slogt.New(t), interpreter.Config{}, &buf)
	r.NoError(err)
	t.Cleanup(func() { _ = restored.Close() })

	r.Equal(s.ID, restored.ID)
	r.Equal(s.Globals(), restored.Globals())
	r.Equal(s.Table().Slots(), restored.Table().Slots())
	r.Equal(s.Pool().Used(), restored.Pool().Used())

	var before, after bytes.Buffer
	r.NoError(s.Dump(&before))
	r.NoError(restored.Dump(&after))
	r.Equal(before.String(), after.String())

	r.Equal("[1.000000, 'two', {'three': 3.000000}]", run(t, restored, "l"))
	r.Equal("3.000000", run(t, restored, "x"))

	run(t, restored, "l[1] = x * 2")
	r.Equal("6.000000", run(t, restored, "l[1]"))
	r.Equal("'two'", run(t, s, "l[1]"))
}

func TestReadImage_Invalid(t *testing.T) {
	r := require.New(t)

	_, err := interpreter.ReadImage(slogt.New(t), interpreter.Config{}, bytes.NewReader([]byte("not an image")))
	r.ErrorIs(err, interpreter.ErrInvalidImage)
}

func TestReadImage_PoolTooSmall(t *testing.T) {
	r := require.New(t)
	s := newSession(t, interpreter.Config{})

	run(t, s, "s = 'a string long enough to need more than a tiny pool'")

	var buf bytes.Buffer
	r.NoError(s.WriteImage(&buf))

	_, err := interpreter.ReadImage(slogt.New(t), interpreter.Config{PoolSize: 32}, &buf)
	r.ErrorIs(err, interpreter.ErrInvalidImage)
	r.ErrorIs(err, interpreter.ErrAllocationExhausted)
}

func TestReadImage_OversizedHeader(t *testing.T) {
	r := require.New(t)
	s := newSession(t, interpreter.Config{})

	run(t, s, "x = 1")

	img := corruptImage(t, s, func(arena []byte) {
		binary.LittleEndian.PutUint32(arena[0:], 1<<30)
	})

	_, err := interpreter.ReadImage(slogt.New(t), interpreter.Config{PoolSize: 64}, img)
	r.ErrorIs(err, interpreter.ErrInvalidImage)
	r.ErrorIs(err, memory.ErrInvalidAddr)
}

func TestReadImage_CyclicCellChain(t *testing.T) {
	r := require.New(t)
	s := newSession(t, interpreter.Config{})

	run(t, s, "l = [1]", "d = {'k': 1}")

	for _, name := range []string{"l", "d"} {
		ref, err := s.Lookup(name)
		r.NoError(err)

		slot, err := s.Table().Slot(ref)
		r.NoError(err)

		img := corruptImage(t, s, func(arena []byte) {
			binary.LittleEndian.PutUint32(arena[slot.Payload:], uint32(ref))
		})

		_, err = interpreter.ReadImage(slogt.New(t), interpreter.Config{}, img)
		r.ErrorIs(err, interpreter.ErrInvalidImage, name)
		r.ErrorIs(err, memory.ErrInvalidReference, name)
	}
}
