// Package segment splits a chat export into records and resolves the
// context window around each matching record. Everything here works on
// byte offsets into the raw document; no markup parser is involved, so
// malformed exports are tolerated the same way a browser would.
package segment

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/hpungsan/chatctx/internal/errors"
)

// Envelope holds the document head and tail needed to turn any slice of
// container content into a standalone document.
type Envelope struct {
	// Prefix is the document up to and including the container-open marker.
	Prefix string

	// Suffix closes the container and carries the rest of the document.
	Suffix string

	// ContainerStart is the offset just past the container-open marker.
	ContainerStart int

	// ContainerEnd is the offset where container content stops.
	ContainerEnd int
}

// Wrap returns Prefix + body + Suffix.
func (e *Envelope) Wrap(body string) string {
	var b strings.Builder
	b.Grow(len(e.Prefix) + len(body) + len(e.Suffix))
	b.WriteString(e.Prefix)
	b.WriteString(body)
	b.WriteString(e.Suffix)
	return b.String()
}

// SplitEnvelope locates the record container in doc.
//
// The container opens at the first occurrence of containerOpen. It ends at the
// first endMarker after that point, or at the end of the document when
// endMarker is absent. When the bytes right before endMarker (ignoring
// whitespace) are already the container's own close tag, the container ends
// at that tag and the tail is reused verbatim, which keeps
// Prefix + doc[ContainerStart:ContainerEnd] + Suffix identical to doc.
// Otherwise a close tag derived from containerOpen is synthesized.
func SplitEnvelope(doc, containerOpen, endMarker string) (*Envelope, error) {
	closeTag, err := CloseTagFor(containerOpen)
	if err != nil {
		return nil, err
	}

	openAt := strings.Index(doc, containerOpen)
	if openAt == -1 {
		return nil, errors.NewContainerNotFound(containerOpen)
	}
	openEnd := openAt + len(containerOpen)

	endAt := -1
	if endMarker != "" {
		if i := strings.Index(doc[openEnd:], endMarker); i != -1 {
			endAt = openEnd + i
		}
	}

	if endAt == -1 {
		return &Envelope{
			Prefix:         doc[:openEnd],
			Suffix:         closeTag,
			ContainerStart: openEnd,
			ContainerEnd:   len(doc),
		}, nil
	}

	// A missing container close is not detected: the last record's own
	// close tag is taken as the container close and nothing is synthesized.
	head := strings.TrimRightFunc(doc[openEnd:endAt], unicode.IsSpace)
	if strings.HasSuffix(head, closeTag) {
		closeAt := openEnd + len(head) - len(closeTag)
		return &Envelope{
			Prefix:         doc[:openEnd],
			Suffix:         doc[closeAt:],
			ContainerStart: openEnd,
			ContainerEnd:   closeAt,
		}, nil
	}

	return &Envelope{
		Prefix:         doc[:openEnd],
		Suffix:         closeTag + doc[endAt:],
		ContainerStart: openEnd,
		ContainerEnd:   endAt,
	}, nil
}

// CloseTagFor derives the closing tag matching an opening marker,
// e.g. `<div class="chatlog">` yields `</div>`.
func CloseTagFor(openMarker string) (string, error) {
	if !strings.HasPrefix(openMarker, "<") {
		return "", errors.NewInvalidRequest(fmt.Sprintf("container marker %q is not a tag", openMarker))
	}
	name := openMarker[1:]
	if i := strings.IndexFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || r == '>' || r == '/'
	}); i != -1 {
		name = name[:i]
	}
	if name == "" {
		return "", errors.NewInvalidRequest(fmt.Sprintf("container marker %q has no tag name", openMarker))
	}
	return "</" + name + ">", nil
}
