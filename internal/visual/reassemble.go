package visual

import (
	"fmt"

	"echoframe-go/internal/types"
)

// DefaultTolerance is how many missing or extra descriptions still count as success.
const DefaultTolerance = 3

// MismatchError is a reassembled result too far from the transcript length.
type MismatchError struct {
	Expected int
	Actual   int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("description count %d does not match transcript segment count %d", e.Actual, e.Expected)
}

// Reassembly is the concatenated descriptions. Warning is set when the count
// is off by no more than the tolerance.
type Reassembly struct {
	Descriptions []types.VisualDescriptionSegment
	Warning      string
}

// Reassemble concatenates chunks in order and applies the mismatch policy.
// A negative tolerance means DefaultTolerance.
func Reassemble(chunks [][]types.VisualDescriptionSegment, expected, tolerance int) (Reassembly, error) {
	if tolerance < 0 {
		tolerance = DefaultTolerance
	}
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	all := make([]types.VisualDescriptionSegment, 0, total)
	for _, c := range chunks {
		all = append(all, c...)
	}

	diff := total - expected
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff == 0:
		return Reassembly{Descriptions: all}, nil
	case diff <= tolerance:
		return Reassembly{
			Descriptions: all,
			Warning:      fmt.Sprintf("%d segments missing/extra: %d descriptions for %d transcript segments", diff, total, expected),
		}, nil
	default:
		return Reassembly{}, &MismatchError{Expected: expected, Actual: total}
	}
}
