package size

import (
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// SizeSuffix is a byte count that reads and prints with a unit suffix.
type SizeSuffix int64

const (
	Byte SizeSuffix = 1 << (iota * 10)
	KibiByte
	MebiByte
	GibiByte
	TebiByte
	PebiByte
)

var suffixMultipliers = map[byte]SizeSuffix{
	'b': Byte,
	'k': KibiByte,
	'm': MebiByte,
	'g': GibiByte,
	't': TebiByte,
	'p': PebiByte,
}

// Set parses s. A bare number is bytes, a single trailing letter (B, K, M,
// G, T, P) is a binary multiplier, anything else goes through
// humanize.ParseBytes ("1.5 MB", "4 KiB").
func (x *SizeSuffix) Set(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("empty size")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return errors.Errorf("size can't be negative: %q", s)
		}
		*x = SizeSuffix(n)
		return nil
	}

	last := s[len(s)-1]
	if mult, ok := suffixMultipliers[toLower(last)]; ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s[:len(s)-1]), 64); err == nil {
			if f < 0 {
				return errors.Errorf("size can't be negative: %q", s)
			}
			*x = SizeSuffix(f * float64(mult))
			return nil
		}
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return errors.Wrapf(err, "bad size %q", s)
	}
	*x = SizeSuffix(n)
	return nil
}

func (x SizeSuffix) String() string {
	if x < 0 {
		return "off"
	}
	return humanize.IBytes(uint64(x))
}

func (x SizeSuffix) Type() string {
	return "SizeSuffix"
}

func (x SizeSuffix) Int() int {
	return int(x)
}

func (x SizeSuffix) Int64() int64 {
	return int64(x)
}

func toLower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}
