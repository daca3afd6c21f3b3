package segment

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hpungsan/chatctx/internal/errors"
)

// Record describes one message in the container by its byte span.
type Record struct {
	// Index is the position within the full record sequence.
	Index int `json:"index"`

	// Start is the offset of the record-start marker.
	Start int `json:"start"`

	// End is the offset of the next record's marker, or the container end.
	End int `json:"end"`

	// ID is captured from the record marker, or "unknown-<Index>".
	ID string `json:"id"`

	// SyntheticID is true when ID could not be captured from the marker.
	SyntheticID bool `json:"synthetic_id,omitempty"`

	// GroupStart is true when the span contains the group marker.
	GroupStart bool `json:"group_start"`

	// Match is true when the span satisfies the selection predicate.
	Match bool `json:"match"`
}

// ScanOptions configures record discovery.
type ScanOptions struct {
	// RecordMarker is the literal text that starts every record.
	RecordMarker string

	// IDPattern extracts the record id from its opening tag; the first
	// capture group is used.
	IDPattern *regexp.Regexp

	// GroupMarker is tested case-sensitively against each record span.
	GroupMarker string

	// Predicates are tested case-insensitively; any hit selects the record.
	Predicates []string
}

// Scan finds every record in the container described by env. Records are
// returned in document order and partition [records[0].Start, env.ContainerEnd).
func Scan(doc string, env *Envelope, opts ScanOptions) ([]Record, error) {
	if opts.RecordMarker == "" {
		return nil, errors.NewInvalidRequest("record marker is required")
	}

	starts := markerOffsets(doc, opts.RecordMarker, env.ContainerStart, env.ContainerEnd)
	if len(starts) == 0 {
		return nil, errors.NewNoRecords(opts.RecordMarker)
	}

	predicates := lowerAll(opts.Predicates)
	records := make([]Record, len(starts))
	for i, start := range starts {
		end := env.ContainerEnd
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		span := doc[start:end]

		id, ok := captureID(span, opts.IDPattern)
		if !ok {
			id = "unknown-" + strconv.Itoa(i)
		}

		records[i] = Record{
			Index:       i,
			Start:       start,
			End:         end,
			ID:          id,
			SyntheticID: !ok,
			GroupStart:  opts.GroupMarker != "" && strings.Contains(span, opts.GroupMarker),
			Match:       containsAny(strings.ToLower(span), predicates),
		}
	}
	return records, nil
}

// Matches returns the records selected by the predicate, in document order.
func Matches(records []Record) []Record {
	var out []Record
	for _, r := range records {
		if r.Match {
			out = append(out, r)
		}
	}
	return out
}

// markerOffsets returns the start of every non-overlapping marker that lies
// entirely inside [from, to).
func markerOffsets(doc, marker string, from, to int) []int {
	var starts []int
	region := doc[:to]
	pos := from
	for pos < len(region) {
		i := strings.Index(region[pos:], marker)
		if i == -1 {
			break
		}
		starts = append(starts, pos+i)
		pos += i + len(marker)
	}
	return starts
}

// captureID applies pattern to the record's opening tag.
func captureID(span string, pattern *regexp.Regexp) (string, bool) {
	if pattern == nil {
		return "", false
	}
	tag := span
	if i := strings.IndexByte(span, '>'); i != -1 {
		tag = span[:i+1]
	}
	m := pattern.FindStringSubmatch(tag)
	if len(m) < 2 || m[1] == "" {
		return "", false
	}
	return m[1], true
}

func lowerAll(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if s == "" {
			continue
		}
		out = append(out, strings.ToLower(s))
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
