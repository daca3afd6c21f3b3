// Package run holds the ledger entries recorded for each extraction run.
package run

// Run is one extraction over one source document.
type Run struct {
	// ID is a ULID that uniquely identifies this run
	ID string `json:"id"`

	// SourcePath is the document that was segmented ("" for in-memory input)
	SourcePath string `json:"source_path"`

	// SourceBytes is the size of the source document
	SourceBytes int `json:"source_bytes"`

	// OutputDir is the absolute directory the extracts were written to
	OutputDir string `json:"output_dir"`

	// Predicates are the selection substrings in effect
	Predicates []string `json:"predicates"`

	// HalfWindow is the number of records kept around each match
	HalfWindow int `json:"half_window"`

	// TotalRecords is the size of the record sequence
	TotalRecords int `json:"total_records"`

	// Matched is the number of records selected by the predicates
	Matched int `json:"matched"`

	// Written and Failed count extract writes
	Written int `json:"written"`
	Failed  int `json:"failed"`

	// SyntheticIDs counts records whose id had to be synthesized
	SyntheticIDs int `json:"synthetic_ids"`

	// IndexPath is the rendered index page, if one was written
	IndexPath *string `json:"index_path,omitempty"`

	// CreatedAt is the Unix timestamp when the run finished
	CreatedAt int64 `json:"created_at"`
}

// NoMatches reports whether the run selected nothing.
func (r *Run) NoMatches() bool {
	return r.Matched == 0
}

// Extract is one context window written (or attempted) during a run.
type Extract struct {
	// OutputIndex is the one-based position among the run's matches
	OutputIndex int `json:"output_index"`

	// Path is where the extract was written
	Path string `json:"path"`

	// MatchID is the id of the matched record
	MatchID string `json:"match_id"`

	// RecordIndex is the zero-based index of the matched record
	RecordIndex int `json:"record_index"`

	// WindowStart and WindowEnd are the one-based, inclusive record range
	WindowStart int `json:"window_start"`
	WindowEnd   int `json:"window_end"`

	// TotalRecords repeats the sequence length for human-readable progress
	TotalRecords int `json:"total_records"`

	// Bytes is the size of the written document
	Bytes int `json:"bytes"`

	// Error is set when the write failed
	Error *string `json:"error,omitempty"`
}

// OK reports whether the extract was written.
func (e *Extract) OK() bool {
	return e.Error == nil
}
