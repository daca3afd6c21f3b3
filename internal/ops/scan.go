package ops

import (
	"github.com/hpungsan/chatctx/internal/config"
)

// ScanInput contains parameters for the Scan operation.
type ScanInput struct {
	SourceInput
}

// ScanMatch is one planned extract.
type ScanMatch struct {
	OutputIndex int    `json:"output_index"`
	RecordIndex int    `json:"record_index"`
	MatchID     string `json:"match_id"`
	SyntheticID bool   `json:"synthetic_id"`
	WindowStart int    `json:"window_start"`
	WindowEnd   int    `json:"window_end"`
	Path        string `json:"path"`
	Bytes       int    `json:"bytes"`
}

// ScanOutput contains the result of the Scan operation.
type ScanOutput struct {
	Source         string      `json:"source"`
	OutputDir      string      `json:"output_dir"`
	ContainerStart int         `json:"container_start"`
	ContainerEnd   int         `json:"container_end"`
	TotalRecords   int         `json:"total_records"`
	SyntheticIDs   int         `json:"synthetic_ids"`
	HalfWindow     int         `json:"half_window"`
	NoMatches      bool        `json:"no_matches"`
	Matches        []ScanMatch `json:"matches"`
}

// Scan runs the extraction pipeline without writing anything and reports
// what Extract would produce.
func Scan(cfg *config.Config, input ScanInput) (*ScanOutput, error) {
	p, err := buildPlan(cfg, input.SourceInput)
	if err != nil {
		return nil, err
	}

	envelopeBytes := len(p.env.Prefix) + len(p.env.Suffix)
	matches := make([]ScanMatch, 0, len(p.matches))
	for _, m := range p.matches {
		matches = append(matches, ScanMatch{
			OutputIndex: m.outputIndex,
			RecordIndex: m.record.Index,
			MatchID:     m.record.ID,
			SyntheticID: m.record.SyntheticID,
			WindowStart: m.window.Lo + 1,
			WindowEnd:   m.window.Hi + 1,
			Path:        m.path,
			Bytes:       envelopeBytes + m.window.SliceEnd - m.window.SliceStart,
		})
	}

	return &ScanOutput{
		Source:         p.source,
		OutputDir:      p.outputDir,
		ContainerStart: p.env.ContainerStart,
		ContainerEnd:   p.env.ContainerEnd,
		TotalRecords:   len(p.records),
		SyntheticIDs:   p.syntheticIDs,
		HalfWindow:     p.halfWindow,
		NoMatches:      len(matches) == 0,
		Matches:        matches,
	}, nil
}
