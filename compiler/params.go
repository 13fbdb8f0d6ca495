package compiler

import "errors"

// DefaultMaxParamLen is the number of binary digits that fit an int64.
const DefaultMaxParamLen = 64

var (
	errParamUnterminated = errors.New("parameter not terminated before end of input")
	errParamEmpty        = errors.New("parameter has no digits")
)

// ParamDecoder reads the binary numeral that follows a parameter-taking
// instruction: space is 0, tab is 1, newline terminates.
type ParamDecoder struct {
	source

	// Strict rejects numerals with no digits instead of reading them as 0.
	Strict bool

	// MaxDigits caps the digits kept; later digits are dropped.
	MaxDigits int
}

// NewParamDecoder creates a decoder reading src from the cursor position.
func NewParamDecoder(src []byte, cur *Cursor) *ParamDecoder {
	return &ParamDecoder{
		source:    source{src: src, cur: cur},
		MaxDigits: DefaultMaxParamLen,
	}
}

// Decode consumes one numeral including its terminating newline.
// The digits are an unsigned binary magnitude; 64 digits wrap to the
// two's-complement value (all ones is -1).
func (d *ParamDecoder) Decode() (int64, error) {
	var (
		value  uint64
		digits int
	)

	for {
		ch, ok := d.next()
		if !ok {
			return 0, errParamUnterminated
		}

		switch ch {
		case '\n':
			if digits == 0 && d.Strict {
				return 0, errParamEmpty
			}
			return int64(value), nil
		case ' ', '\t':
			if digits < d.maxDigits() {
				value <<= 1
				if ch == '\t' {
					value |= 1
				}
				digits++
			}
		}
	}
}

func (d *ParamDecoder) maxDigits() int {
	if d.MaxDigits <= 0 || d.MaxDigits > DefaultMaxParamLen {
		return DefaultMaxParamLen
	}
	return d.MaxDigits
}
