package ops

import "github.com/born-ml/opbind/internal/operror"

// DataFormat is the memory layout of a 4D image tensor.
type DataFormat int

// Data formats.
const (
	NCHW DataFormat = iota // channel-first
	NHWC                   // channel-last
)

// DefaultDataFormat is used on import when the external node leaves the layout unset.
const DefaultDataFormat = NHWC

// ParseDataFormat parses "NCHW" or "NHWC". Field is the name reported on failure.
func ParseDataFormat(op, field, s string) (DataFormat, error) {
	switch s {
	case "NCHW":
		return NCHW, nil
	case "NHWC":
		return NHWC, nil
	default:
		return 0, operror.InvalidField(op, field, s, "want NCHW or NHWC")
	}
}

// String returns the layout tag.
func (f DataFormat) String() string {
	if f == NHWC {
		return "NHWC"
	}
	return "NCHW"
}

// Flag returns the integer encoding used in IntArgs: 1 for NHWC, 0 for NCHW.
func (f DataFormat) Flag() int64 {
	if f == NHWC {
		return 1
	}
	return 0
}
