package bytecode

import (
	"bytes"
	"fmt"
	"math"

	"github.com/fxamacker/cbor/v2"
)

// ImageMagic prefixes every encoded program image: "WSBC" (WhiteSpace ByteCode).
var ImageMagic = []byte{'W', 'S', 'B', 'C'}

// cborEncMode uses canonical mode so equal programs encode to equal bytes;
// the compile cache relies on this.
var cborEncMode cbor.EncMode

// cborDecMode lifts the default array cap so that any program the encoder
// accepts can be read back.
var cborDecMode cbor.DecMode

// MaxImageInstructions is the largest instruction count an image can hold.
const MaxImageInstructions = math.MaxInt32

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em

	dm, err := cbor.DecOptions{MaxArrayElements: MaxImageInstructions}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR dec mode: %v", err))
	}
	cborDecMode = dm
}

// MarshalProgram serializes a Program to an image.
func MarshalProgram(p *Program) ([]byte, error) {
	if p.Len() > MaxImageInstructions {
		return nil, fmt.Errorf("bytecode: program has %d instructions, image limit is %d", p.Len(), MaxImageInstructions)
	}
	body, err := cborEncMode.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal program: %w", err)
	}
	buf := make([]byte, 0, len(ImageMagic)+len(body))
	buf = append(buf, ImageMagic...)
	return append(buf, body...), nil
}

// UnmarshalProgram deserializes and validates a Program image.
func UnmarshalProgram(data []byte) (*Program, error) {
	if !IsImage(data) {
		return nil, fmt.Errorf("bytecode: invalid image magic")
	}
	var p Program
	if err := cborDecMode.Unmarshal(data[len(ImageMagic):], &p); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal program: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("bytecode: %w", err)
	}
	p.rebuildLabelIndex()
	return &p, nil
}

// IsImage reports whether data starts with the image magic bytes.
func IsImage(data []byte) bool {
	return bytes.HasPrefix(data, ImageMagic)
}
