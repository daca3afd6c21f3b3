package mcp

import "github.com/mark3labs/mcp-go/mcp"

var extractToolDef = mcp.NewTool("context_extract",
	mcp.WithDescription("Split a chat export into standalone documents, one per matching message, "+
		"each holding the surrounding messages aligned to the start of a message group. "+
		"Provide either path or document."),
	mcp.WithString("path", mcp.Description("Path to the exported HTML file")),
	mcp.WithString("document", mcp.Description("Export content, used when path is not given")),
	mcp.WithString("output_dir", mcp.Description("Directory for the extracts (default from config)")),
	mcp.WithArray("predicates",
		mcp.Description("Case-insensitive substrings selecting messages; replaces the configured list"),
		mcp.WithStringItems(),
	),
	mcp.WithNumber("half_window", mcp.Description("Messages kept before and after each match (default 20)")),
	mcp.WithNumber("workers", mcp.Description("Concurrent writes (default from config)")),
	mcp.WithBoolean("skip_index", mcp.Description("Do not write index.html")),
)

var scanToolDef = mcp.NewTool("context_scan",
	mcp.WithDescription("Dry run of context_extract: report records, matches and planned windows without writing files."),
	mcp.WithString("path", mcp.Description("Path to the exported HTML file")),
	mcp.WithString("document", mcp.Description("Export content, used when path is not given")),
	mcp.WithString("output_dir", mcp.Description("Directory the extracts would be written to")),
	mcp.WithArray("predicates",
		mcp.Description("Case-insensitive substrings selecting messages"),
		mcp.WithStringItems(),
	),
	mcp.WithNumber("half_window", mcp.Description("Messages kept before and after each match")),
)

var historyToolDef = mcp.NewTool("context_history",
	mcp.WithDescription("List past extraction runs, newest first."),
	mcp.WithNumber("limit", mcp.Description("Max runs to return (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Runs to skip")),
)

var showToolDef = mcp.NewTool("context_show",
	mcp.WithDescription("Show one extraction run and its extracts."),
	mcp.WithString("run_id", mcp.Required(), mcp.Description("Run id returned by context_extract")),
)
