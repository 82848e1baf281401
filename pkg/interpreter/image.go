package interpreter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/rhino1998/minipy/pkg/memory"
)

const imageVersion = 1

var ErrInvalidImage = errors.New("invalid session image")

var imageEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("interpreter: failed to create CBOR enc mode: %v", err))
	}
	imageEncMode = em
}

// image is the serialized form of a session. Reference ids and payload
// addresses are preserved exactly.
type image struct {
	Version int           `cbor:"1,keyasint"`
	Session []byte        `cbor:"2,keyasint"`
	Arena   []byte        `cbor:"3,keyasint"`
	Slots   []imageSlot   `cbor:"4,keyasint"`
	Globals []imageGlobal `cbor:"5,keyasint"`
}

type imageSlot struct {
	_       struct{} `cbor:",toarray"`
	Kind    int
	Payload int
}

type imageGlobal struct {
	_    struct{} `cbor:",toarray"`
	Name string
	Ref  int32
}

// WriteImage encodes the arena, the reference table and the global bindings.
func (s *Session) WriteImage(w io.Writer) error {
	id, err := s.ID.MarshalBinary()
	if err != nil {
		return err
	}

	img := image{
		Version: imageVersion,
		Session: id,
		Arena:   s.pool.Bytes(),
	}

	for _, slot := range s.table.Slots() {
		img.Slots = append(img.Slots, imageSlot{Kind: int(slot.Kind), Payload: int(slot.Payload)})
	}

	for _, v := range s.scope.Variables() {
		img.Globals = append(img.Globals, imageGlobal{Name: v.Name, Ref: int32(v.Ref)})
	}

	data, err := imageEncMode.Marshal(&img)
	if err != nil {
		return fmt.Errorf("failed to encode session image: %w", err)
	}

	_, err = w.Write(data)
	if err != nil {
		return err
	}

	s.logger.Debug("wrote session image", "bytes", len(data), "references", len(img.Slots), "globals", len(img.Globals))

	return nil
}

// ReadImage restores a session written by WriteImage. The restored session
// keeps the original id; config supplies the pool capacity and limits.
func ReadImage(logger *slog.Logger, config Config, r io.Reader) (*Session, error) {
	var img image

	err := cbor.NewDecoder(r).Decode(&img)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	if img.Version != imageVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidImage, img.Version)
	}

	id, err := uuid.FromBytes(img.Session)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	s, err := newSession(logger, config, id)
	if err != nil {
		return nil, err
	}

	err = s.pool.Restore(img.Arena)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	slots := make([]memory.Slot, 0, len(img.Slots))
	for _, slot := range img.Slots {
		kind := memory.Kind(slot.Kind)
		if kind < memory.KindEmpty || kind > memory.KindDict {
			return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidImage, slot.Kind)
		}

		slots = append(slots, memory.Slot{Kind: kind, Payload: memory.Addr(slot.Payload)})
	}

	err = s.table.Restore(slots)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	vars := make([]Variable, 0, len(img.Globals))
	for _, g := range img.Globals {
		ref := memory.RefID(g.Ref)

		_, err := s.table.Slot(ref)
		if err != nil {
			return nil, fmt.Errorf("%w: global %q: %w", ErrInvalidImage, g.Name, err)
		}

		vars = append(vars, Variable{Name: g.Name, Ref: ref})
	}

	err = s.scope.restore(vars)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	s.logger.Debug("restored session image", "references", len(slots), "globals", len(vars))

	return s, nil
}
