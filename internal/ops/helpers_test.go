package ops

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/chatctx/internal/config"
	"github.com/hpungsan/chatctx/internal/db"
)

const (
	exportOpen = `<div class="chatlog">`
	exportEnd  = `<div class=postamble`
)

// buildExport renders a chat export with n records. Record i gets id 1000+i.
func buildExport(n int, groupStarts, matches map[int]bool) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html><head><title>Export</title></head><body>\n")
	b.WriteString("<div class=preamble>Guild / #builds</div>\n")
	b.WriteString(exportOpen + "\n")
	for i := 0; i < n; i++ {
		class := "chatlog__message-container"
		if groupStarts[i] {
			class += " chatlog__message-group-first"
		}
		fmt.Fprintf(&b, `<div id=chatlog__message-container-%d class="%s">`, 1000+i, class)
		body := fmt.Sprintf("message %d", i)
		if matches[i] {
			body += fmt.Sprintf(` <a href="files/build-%d.litematic">build-%d.litematic</a>`, i, i)
		}
		fmt.Fprintf(&b, "<div class=chatlog__content>%s</div></div>\n", body)
	}
	b.WriteString("</div>\n")
	b.WriteString(exportEnd + fmt.Sprintf(">Exported %d message(s)</div>\n</body></html>\n", n))
	return b.String()
}

func indexSet(idx ...int) map[int]bool {
	m := make(map[int]bool, len(idx))
	for _, i := range idx {
		m[i] = true
	}
	return m
}

// writeSource writes doc to dir/export.html and returns the path.
func writeSource(t *testing.T, dir, doc string) string {
	t.Helper()
	path := filepath.Join(dir, "export.html")
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

// testConfig returns defaults writing into outDir.
func testConfig(outDir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.OutputDir = outDir
	return cfg
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func intPtr(i int) *int {
	return &i
}

// recordStart returns the offset of the record with the given id.
func recordStart(t *testing.T, doc string, id int) int {
	t.Helper()
	i := strings.Index(doc, fmt.Sprintf("<div id=chatlog__message-container-%d ", id))
	if i < 0 {
		t.Fatalf("record %d not found", id)
	}
	return i
}
