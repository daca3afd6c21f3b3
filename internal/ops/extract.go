package ops

import (
	"context"
	"database/sql"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/chatctx/internal/config"
	"github.com/hpungsan/chatctx/internal/db"
	"github.com/hpungsan/chatctx/internal/errors"
	"github.com/hpungsan/chatctx/internal/logging"
	"github.com/hpungsan/chatctx/internal/render"
	"github.com/hpungsan/chatctx/internal/run"
)

// ExtractInput contains parameters for the Extract operation.
type ExtractInput struct {
	SourceInput
	Workers   int  // overrides cfg.Workers when > 0
	SkipIndex bool // skip index.html even if cfg allows it
}

// ExtractOutput contains the result of the Extract operation.
type ExtractOutput struct {
	RunID        string        `json:"run_id"`
	Source       string        `json:"source"`
	OutputDir    string        `json:"output_dir"`
	TotalRecords int           `json:"total_records"`
	Matched      int           `json:"matched"`
	Written      int           `json:"written"`
	Failed       int           `json:"failed"`
	SyntheticIDs int           `json:"synthetic_ids"`
	NoMatches    bool          `json:"no_matches"`
	IndexPath    *string       `json:"index_path,omitempty"`
	Extracts     []run.Extract `json:"extracts"`
}

// Extract segments a document and writes one standalone document per matching record.
// Write failures are reported per extract and do not abort the run.
// When database is non-nil the run is recorded in the ledger.
func Extract(ctx context.Context, database *sql.DB, cfg *config.Config, log *zap.Logger, input ExtractInput) (*ExtractOutput, error) {
	log = logging.OrNop(log)
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	p, err := buildPlan(cfg, input.SourceInput)
	if err != nil {
		return nil, err
	}

	runID, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	log = log.With(zap.String("run_id", runID))

	for _, rec := range p.records {
		if rec.SyntheticID {
			log.Warn("record id missing, using positional id",
				zap.Int("record_index", rec.Index),
				zap.String("id", rec.ID),
			)
		}
	}

	out := &ExtractOutput{
		RunID:        runID,
		Source:       p.source,
		OutputDir:    p.outputDir,
		TotalRecords: len(p.records),
		Matched:      len(p.matches),
		SyntheticIDs: p.syntheticIDs,
		NoMatches:    len(p.matches) == 0,
		Extracts:     []run.Extract{},
	}

	if out.NoMatches {
		log.Info("no matching records", zap.Int("total_records", out.TotalRecords))
	} else {
		workers := cfg.Workers
		if input.Workers > 0 {
			workers = input.Workers
		}
		extracts, err := writeExtracts(ctx, log, p, workers)
		if err != nil {
			return nil, err
		}
		out.Extracts = extracts
		for _, e := range extracts {
			if e.OK() {
				out.Written++
			} else {
				out.Failed++
			}
		}

		if !cfg.SkipIndex && !input.SkipIndex {
			indexPath, err := writeIndex(p, extracts)
			if err != nil {
				log.Warn("index not written", zap.Error(err))
			} else {
				out.IndexPath = &indexPath
			}
		}
	}

	log.Info("run finished",
		zap.String("source", p.source),
		zap.Int("total_records", out.TotalRecords),
		zap.Int("matched", out.Matched),
		zap.Int("written", out.Written),
		zap.Int("failed", out.Failed),
	)

	if database != nil {
		r := &run.Run{
			ID:           runID,
			SourcePath:   p.source,
			SourceBytes:  len(p.doc),
			OutputDir:    p.outputDir,
			Predicates:   p.predicates,
			HalfWindow:   p.halfWindow,
			TotalRecords: out.TotalRecords,
			Matched:      out.Matched,
			Written:      out.Written,
			Failed:       out.Failed,
			SyntheticIDs: out.SyntheticIDs,
			IndexPath:    out.IndexPath,
			CreatedAt:    time.Now().Unix(),
		}
		if err := db.InsertRun(ctx, database, r, out.Extracts); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// writeExtracts writes every planned extract through a bounded worker group.
// Results keep discovery order regardless of completion order.
func writeExtracts(ctx context.Context, log *zap.Logger, p *plan, workers int) ([]run.Extract, error) {
	if err := ensureDir(p.outputDir); err != nil {
		return nil, err
	}

	results := make([]run.Extract, len(p.matches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for i, m := range p.matches {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			body := p.env.Wrap(m.window.Body(p.doc))
			e := run.Extract{
				OutputIndex:  m.outputIndex,
				Path:         m.path,
				MatchID:      m.record.ID,
				RecordIndex:  m.record.Index,
				WindowStart:  m.window.Lo + 1,
				WindowEnd:    m.window.Hi + 1,
				TotalRecords: len(p.records),
			}

			if err := writeFileAtomic(m.path, []byte(body)); err != nil {
				msg := errors.NewWriteFailure(m.path, err).Message
				e.Error = &msg
				log.Warn("extract write failed",
					zap.Int("output_index", m.outputIndex),
					zap.String("path", m.path),
					zap.Error(err),
				)
			} else {
				e.Bytes = len(body)
				log.Info("saved extract",
					zap.String("path", m.path),
					zap.Int("window_start", e.WindowStart),
					zap.Int("window_end", e.WindowEnd),
					zap.Int("total_records", e.TotalRecords),
					zap.String("match_id", e.MatchID),
				)
			}

			results[i] = e
			return nil
		})
	}

	if err := g.Wait(); err != nil || ctx.Err() != nil {
		return nil, errors.NewCancelled("extract")
	}
	return results, nil
}

// writeIndex renders and writes index.html next to the extracts.
func writeIndex(p *plan, extracts []run.Extract) (string, error) {
	page, err := render.Index(render.IndexData{
		Source:       p.sourceLabel(),
		TotalRecords: len(p.records),
		HalfWindow:   p.halfWindow,
		Predicates:   p.predicates,
		Extracts:     extracts,
	})
	if err != nil {
		return "", err
	}
	indexPath := filepath.Join(p.outputDir, render.IndexFilename)
	if err := writeFileAtomic(indexPath, page); err != nil {
		return "", err
	}
	return indexPath, nil
}

// sourceLabel names the source for humans; in-memory documents have no path.
func (p *plan) sourceLabel() string {
	if p.source == "" {
		return "document"
	}
	return p.source
}
