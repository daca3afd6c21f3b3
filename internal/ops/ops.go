package ops

import (
	"crypto/rand"
	"os"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/chatctx/internal/config"
	"github.com/hpungsan/chatctx/internal/errors"
	"github.com/hpungsan/chatctx/internal/segment"
)

// Pagination limits
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// SourceInput names the document to segment and optional per-call overrides.
// Exactly one of Path or Document must be set.
type SourceInput struct {
	Path       string   // file to read
	Document   string   // in-memory document, used when Path is empty
	OutputDir  string   // overrides cfg.OutputDir
	Predicates []string // replaces cfg.Predicates when non-empty
	HalfWindow *int     // overrides cfg.HalfWindow
}

// planned is one match with its resolved window and destination.
type planned struct {
	outputIndex int
	record      segment.Record
	window      segment.Window
	path        string
}

// plan is the result of the pure part of the pipeline: nothing has been written.
type plan struct {
	source       string
	doc          string
	env          *segment.Envelope
	records      []segment.Record
	syntheticIDs int
	outputDir    string
	predicates   []string
	halfWindow   int
	matches      []planned
}

// effectiveConfig applies the per-call overrides on top of cfg.
func effectiveConfig(cfg *config.Config, input SourceInput) (*config.Config, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	overlay := &config.Config{
		OutputDir:  input.OutputDir,
		Predicates: input.Predicates,
		HalfWindow: input.HalfWindow,
	}
	eff := config.Merge(cfg, overlay)
	if err := eff.Validate(); err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	return eff, nil
}

// loadSource returns the source label and document text.
func loadSource(input SourceInput) (string, string, error) {
	if input.Path != "" && input.Document != "" {
		return "", "", errors.NewInvalidRequest("path and document are mutually exclusive")
	}
	if input.Path == "" {
		if input.Document == "" {
			return "", "", errors.NewInvalidRequest("path or document is required")
		}
		return "", input.Document, nil
	}

	absPath, err := ResolveSourcePath(input.Path)
	if err != nil {
		return "", "", err
	}
	data, err := readFileNoFollow(absPath)
	if err != nil {
		if _, ok := err.(*errors.ChatctxError); ok {
			return "", "", err
		}
		return "", "", errors.NewInternal(err)
	}
	return absPath, string(data), nil
}

// buildPlan splits, scans and resolves every window without touching the output directory.
func buildPlan(cfg *config.Config, input SourceInput) (*plan, error) {
	eff, err := effectiveConfig(cfg, input)
	if err != nil {
		return nil, err
	}

	source, doc, err := loadSource(input)
	if err != nil {
		return nil, err
	}

	outputDir, err := ResolveOutputDir(eff.OutputDir)
	if err != nil {
		return nil, err
	}

	env, err := segment.SplitEnvelope(doc, eff.ContainerOpen, eff.EndMarker)
	if err != nil {
		return nil, err
	}

	idPattern, err := compileIDPattern(eff)
	if err != nil {
		return nil, err
	}

	records, err := segment.Scan(doc, env, segment.ScanOptions{
		RecordMarker: eff.RecordMarker,
		IDPattern:    idPattern,
		GroupMarker:  eff.GroupMarker,
		Predicates:   eff.Predicates,
	})
	if err != nil {
		return nil, err
	}

	p := &plan{
		source:     source,
		doc:        doc,
		env:        env,
		records:    records,
		outputDir:  outputDir,
		predicates: eff.Predicates,
		halfWindow: eff.Window(),
	}

	for _, rec := range records {
		if rec.SyntheticID {
			p.syntheticIDs++
		}
	}

	for i, rec := range segment.Matches(records) {
		w, err := segment.Resolve(records, rec.Index, p.halfWindow, env.ContainerEnd)
		if err != nil {
			return nil, err
		}
		outputIndex := i + 1
		path, err := extractPath(outputDir, eff.FilenameTemplate, eff.Extension, outputIndex, rec.ID)
		if err != nil {
			return nil, err
		}
		p.matches = append(p.matches, planned{
			outputIndex: outputIndex,
			record:      rec,
			window:      w,
			path:        path,
		})
	}

	return p, nil
}

func compileIDPattern(cfg *config.Config) (*regexp.Regexp, error) {
	re, err := cfg.CompileIDPattern()
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	return re, nil
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ensureDir creates dir once before any extract is written.
func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewWriteFailure(dir, err)
	}
	return nil
}
