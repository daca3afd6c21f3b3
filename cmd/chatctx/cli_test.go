package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hpungsan/chatctx/internal/config"
	"github.com/hpungsan/chatctx/internal/db"
	"github.com/hpungsan/chatctx/internal/ops"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	cleanup := func() {
		database.Close()
	}
	return database, cleanup
}

// testConfig returns a default config writing into a temp directory.
func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.OutputDir = filepath.Join(t.TempDir(), "out")
	return cfg
}

// writeExport writes a chat export with n messages; messages listed in matches link a schematic.
func writeExport(t *testing.T, n int, matches ...int) string {
	t.Helper()
	want := make(map[int]bool, len(matches))
	for _, m := range matches {
		want[m] = true
	}

	var b strings.Builder
	b.WriteString("<html><body>\n<div class=\"chatlog\">\n")
	for i := 0; i < n; i++ {
		class := "chatlog__message-container"
		if i%4 == 0 {
			class += " chatlog__message-group"
		}
		text := fmt.Sprintf("msg %d", i)
		if want[i] {
			text += ` <a href="tower.litematic">tower.litematic</a>`
		}
		fmt.Fprintf(&b, "<div id=chatlog__message-container-%d class=\"%s\">%s</div>\n", 9000+i, class, text)
	}
	b.WriteString("</div>\n<div class=postamble>end</div>\n</body></html>\n")

	path := filepath.Join(t.TempDir(), "export.html")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

// runCLI runs the app and returns what it printed to stdout.
func runCLI(t *testing.T, database *sql.DB, cfg *config.Config, args ...string) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe failed: %v", err)
	}
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		done <- buf.String()
	}()

	app := newCLIApp(database, cfg)
	runErr := app.Run(append([]string{"chatctx"}, args...))

	w.Close()
	os.Stdout = oldStdout
	return <-done, runErr
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"7d", 7, false},
		{"0d", 0, false},
		{"30d", 30, false},
		{"7", 0, true},
		{"7h", 0, true},
		{"xd", 0, true},
		{"-1d", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseDuration(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDuration(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseDuration(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestCLIExtract(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig(t)
	path := writeExport(t, 20, 6, 13)

	out, err := runCLI(t, database, cfg, "extract", "--window=2", "--workers=2", path)
	if err != nil {
		t.Fatalf("extract command failed: %v", err)
	}

	var output ops.ExtractOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}

	if output.RunID == "" {
		t.Error("expected non-empty run_id")
	}
	if output.Written != 2 || len(output.Extracts) != 2 {
		t.Fatalf("written = %d, extracts = %d, want 2", output.Written, len(output.Extracts))
	}
	// Match 6 with W=2: naive start 4 is a group start.
	if e := output.Extracts[0]; e.WindowStart != 5 || e.WindowEnd != 9 {
		t.Errorf("first window = %d-%d, want 5-9", e.WindowStart, e.WindowEnd)
	}
	if got := filepath.Base(output.Extracts[1].Path); got != "context-2-9013.html" {
		t.Errorf("second file = %s", got)
	}
	if output.IndexPath == nil {
		t.Error("expected index.html")
	}
}

func TestCLIExtract_PredicateAndOut(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig(t)
	path := writeExport(t, 10, 2)
	outDir := filepath.Join(t.TempDir(), "custom")

	out, err := runCLI(t, database, cfg, "extract", "--out", outDir, "-p", "msg 7", "-p", "msg 8", "--skip-index", path)
	if err != nil {
		t.Fatalf("extract command failed: %v", err)
	}

	var output ops.ExtractOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if output.OutputDir != outDir {
		t.Errorf("output_dir = %s, want %s", output.OutputDir, outDir)
	}
	if output.Matched != 2 {
		t.Errorf("matched = %d, want 2", output.Matched)
	}
	if output.IndexPath != nil {
		t.Error("index.html written despite --skip-index")
	}
}

func TestCLIScan(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig(t)
	path := writeExport(t, 12)

	out, err := runCLI(t, database, cfg, "scan", path)
	if err != nil {
		t.Fatalf("scan command failed: %v", err)
	}

	var output ops.ScanOutput
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if output.TotalRecords != 12 || !output.NoMatches {
		t.Errorf("total = %d, no_matches = %v", output.TotalRecords, output.NoMatches)
	}
}

func TestCLIHistoryShowPurge(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig(t)
	path := writeExport(t, 8, 3)

	out, err := runCLI(t, database, cfg, "extract", path)
	if err != nil {
		t.Fatalf("extract command failed: %v", err)
	}
	var extracted ops.ExtractOutput
	if err := json.Unmarshal([]byte(out), &extracted); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}

	out, err = runCLI(t, database, cfg, "history", "--limit=5")
	if err != nil {
		t.Fatalf("history command failed: %v", err)
	}
	var history ops.HistoryOutput
	if err := json.Unmarshal([]byte(out), &history); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if len(history.Items) != 1 || history.Items[0].ID != extracted.RunID {
		t.Errorf("history = %+v", history.Items)
	}

	out, err = runCLI(t, database, cfg, "show", extracted.RunID)
	if err != nil {
		t.Fatalf("show command failed: %v", err)
	}
	var shown ops.ShowOutput
	if err := json.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if shown.ID != extracted.RunID || len(shown.Extracts) != 1 {
		t.Errorf("show = %+v", shown)
	}

	out, err = runCLI(t, database, cfg, "purge", "--older-than=1d")
	if err != nil {
		t.Fatalf("purge command failed: %v", err)
	}
	var purged ops.PurgeOutput
	if err := json.Unmarshal([]byte(out), &purged); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if purged.Purged != 0 {
		t.Errorf("purged = %d, want 0 (run is recent)", purged.Purged)
	}

	out, err = runCLI(t, database, cfg, "purge")
	if err != nil {
		t.Fatalf("purge command failed: %v", err)
	}
	if err := json.Unmarshal([]byte(out), &purged); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if purged.Purged != 1 {
		t.Errorf("purged = %d, want 1", purged.Purged)
	}
}

func TestCLIErrorHandling(t *testing.T) {
	database, cleanup := setupTestDB(t)
	defer cleanup()
	cfg := testConfig(t)

	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"extract without file", []string{"extract"}, "[INVALID_REQUEST]"},
		{"extract missing file", []string{"extract", filepath.Join(t.TempDir(), "nope.html")}, "[FILE_NOT_FOUND]"},
		{"show unknown run", []string{"show", "01UNKNOWN"}, "[NOT_FOUND]"},
		{"invalid duration", []string{"purge", "--older-than=invalid"}, "[INVALID_REQUEST]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, database, cfg, tt.args...)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestIsCLIMode(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{"no args", []string{"chatctx"}, false},
		{"extract command", []string{"chatctx", "extract"}, true},
		{"history command", []string{"chatctx", "history"}, true},
		{"global flag before command", []string{"chatctx", "--verbose", "scan"}, true},
		{"help flag", []string{"chatctx", "--help"}, true},
		{"short version flag", []string{"chatctx", "-v"}, true},
		{"unknown arg defaults to MCP", []string{"chatctx", "--unknown"}, false},
		{"unknown command defaults to MCP", []string{"chatctx", "serve"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			if got := isCLIMode(); got != tt.expected {
				t.Errorf("isCLIMode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsHelpOrVersion(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected bool
	}{
		{"no args", []string{"chatctx"}, false},
		{"help command", []string{"chatctx", "help"}, true},
		{"long help", []string{"chatctx", "--help"}, true},
		{"version", []string{"chatctx", "--version"}, true},
		{"subcommand", []string{"chatctx", "extract", "--help"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldArgs := os.Args
			defer func() { os.Args = oldArgs }()

			os.Args = tt.args
			if got := isHelpOrVersion(); got != tt.expected {
				t.Errorf("isHelpOrVersion() = %v, want %v", got, tt.expected)
			}
		})
	}
}
