package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/hpungsan/chatctx/internal/config"
	"github.com/hpungsan/chatctx/internal/errors"
	"github.com/hpungsan/chatctx/internal/logging"
	"github.com/hpungsan/chatctx/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
	log *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, log *zap.Logger) *Handlers {
	return &Handlers{db: db, cfg: cfg, log: logging.OrNop(log)}
}

// Request types for each tool

// SourceRequest holds the arguments shared by extract and scan.
type SourceRequest struct {
	Path       string   `json:"path,omitempty"`
	Document   string   `json:"document,omitempty"`
	OutputDir  string   `json:"output_dir,omitempty"`
	Predicates []string `json:"predicates,omitempty"`
	HalfWindow *int     `json:"half_window,omitempty"`
}

func (r SourceRequest) toInput() ops.SourceInput {
	return ops.SourceInput{
		Path:       r.Path,
		Document:   r.Document,
		OutputDir:  r.OutputDir,
		Predicates: r.Predicates,
		HalfWindow: r.HalfWindow,
	}
}

// ExtractRequest represents the arguments for extract.
type ExtractRequest struct {
	SourceRequest
	Workers   int  `json:"workers,omitempty"`
	SkipIndex bool `json:"skip_index,omitempty"`
}

// ScanRequest represents the arguments for scan.
type ScanRequest struct {
	SourceRequest
}

// HistoryRequest represents the arguments for history.
type HistoryRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// ShowRequest represents the arguments for show.
type ShowRequest struct {
	RunID string `json:"run_id"`
}

// HandleExtract handles the extract tool call.
func (h *Handlers) HandleExtract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[ExtractRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Extract(ctx, h.db, h.cfg, h.log, ops.ExtractInput{
		SourceInput: input.toInput(),
		Workers:     input.Workers,
		SkipIndex:   input.SkipIndex,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleScan handles the scan tool call.
func (h *Handlers) HandleScan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[ScanRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Scan(h.cfg, ops.ScanInput{SourceInput: input.toInput()})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleHistory handles the history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[HistoryRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.History(h.db, ops.HistoryInput{
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleShow handles the show tool call.
func (h *Handlers) HandleShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decodeArgs[ShowRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := ops.Show(h.db, ops.ShowInput{RunID: input.RunID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var cErr *errors.ChatctxError
	if stderrors.As(err, &cErr) {
		errorObj := map[string]any{
			"code":    cErr.Code,
			"message": cErr.Message,
			"status":  cErr.Status,
		}
		if cErr.Code != errors.ErrInternal && cErr.Details != nil {
			errorObj["details"] = cErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
