package segment

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	testOpen   = `<div class="chatlog">`
	testEnd    = `<div class=postamble`
	testMarker = `<div id=chatlog__message-container-`
	testGroup  = `chatlog__message-group`
)

var testIDPattern = regexp.MustCompile(`id=chatlog__message-container-([0-9]+)`)

func testScanOptions() ScanOptions {
	return ScanOptions{
		RecordMarker: testMarker,
		IDPattern:    testIDPattern,
		GroupMarker:  testGroup,
		Predicates:   []string{".litematic"},
	}
}

// buildExport renders a chat export with n records. Record i gets id 1000+i.
func buildExport(n int, groupStarts, matches map[int]bool) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><title>Export</title></head><body>\n")
	b.WriteString("<div class=preamble>Guild / #builds</div>\n")
	b.WriteString(testOpen + "\n")
	for i := 0; i < n; i++ {
		class := "chatlog__message-container"
		if groupStarts[i] {
			class += " chatlog__message-group-first"
		}
		fmt.Fprintf(&b, `<div id=chatlog__message-container-%d class="%s">`, 1000+i, class)
		body := fmt.Sprintf("message %d", i)
		if matches[i] {
			body += fmt.Sprintf(` <a href="files/build-%d.LITEMATIC">build-%d.LITEMATIC</a>`, i, i)
		}
		fmt.Fprintf(&b, "<div class=chatlog__content>%s</div></div>\n", body)
	}
	b.WriteString("</div>\n")
	b.WriteString(testEnd + fmt.Sprintf(">Exported %d message(s)</div>\n</body></html>\n", n))
	return b.String()
}

func set(idx ...int) map[int]bool {
	m := make(map[int]bool, len(idx))
	for _, i := range idx {
		m[i] = true
	}
	return m
}
