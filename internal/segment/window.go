package segment

import (
	"fmt"

	"github.com/hpungsan/chatctx/internal/errors"
)

// DefaultHalfWindow is the number of records kept on each side of a match.
const DefaultHalfWindow = 20

// Window is the record range emitted for one target record.
type Window struct {
	Target     int `json:"target"`
	Lo         int `json:"lo"`
	Hi         int `json:"hi"`
	SliceStart int `json:"slice_start"`
	SliceEnd   int `json:"slice_end"`
}

// Resolve computes the window around records[target].
//
// The range is target±halfWindow clamped to the sequence. The left edge is
// then walked back to the nearest group start (or record 0) so a window never
// opens in the middle of a message group. The right edge is not realigned.
func Resolve(records []Record, target, halfWindow, containerEnd int) (Window, error) {
	if target < 0 || target >= len(records) {
		return Window{}, errors.NewInvalidRequest(
			fmt.Sprintf("target record %d out of range [0, %d)", target, len(records)))
	}
	if halfWindow < 0 {
		return Window{}, errors.NewInvalidRequest("half window must not be negative")
	}

	lo := max(0, target-halfWindow)
	hi := min(len(records)-1, target+halfWindow)

	for lo > 0 && !records[lo].GroupStart {
		lo--
	}

	sliceEnd := containerEnd
	if hi+1 < len(records) {
		sliceEnd = records[hi+1].Start
	}

	return Window{
		Target:     target,
		Lo:         lo,
		Hi:         hi,
		SliceStart: records[lo].Start,
		SliceEnd:   sliceEnd,
	}, nil
}

// Body returns the raw bytes the window covers.
func (w Window) Body(doc string) string {
	return doc[w.SliceStart:w.SliceEnd]
}
