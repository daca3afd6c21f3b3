// Package render builds the index page written next to a run's extracts.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hpungsan/chatctx/internal/run"
)

// IndexFilename is the name of the index page inside the output directory.
const IndexFilename = "index.html"

// IndexData is everything the index page shows.
type IndexData struct {
	Source       string
	TotalRecords int
	HalfWindow   int
	Predicates   []string
	Extracts     []run.Extract
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

var pageTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// Index renders the index page for a run. Output depends only on data,
// so re-running over the same source yields the same bytes.
func Index(data IndexData) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(IndexMarkdown(data)), &body); err != nil {
		return nil, fmt.Errorf("render index: %w", err)
	}

	var page bytes.Buffer
	err := pageTmpl.Execute(&page, struct {
		Title string
		Body  template.HTML
	}{
		Title: "Context extracts: " + filepath.Base(data.Source),
		Body:  template.HTML(body.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("render index: %w", err)
	}
	return page.Bytes(), nil
}

// IndexMarkdown builds the markdown source of the index page.
func IndexMarkdown(data IndexData) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", escapeCell(filepath.Base(data.Source)))
	fmt.Fprintf(&sb, "%d records, half window %d", data.TotalRecords, data.HalfWindow)
	if len(data.Predicates) > 0 {
		quoted := make([]string, len(data.Predicates))
		for i, p := range data.Predicates {
			quoted[i] = "`" + strings.ReplaceAll(p, "`", "") + "`"
		}
		fmt.Fprintf(&sb, ", matching %s", strings.Join(quoted, ", "))
	}
	sb.WriteString(".\n\n")

	sb.WriteString("| # | Extract | Match id | Records | Status |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, e := range data.Extracts {
		name := filepath.Base(e.Path)
		status := "ok"
		if e.Error != nil {
			status = "failed: " + *e.Error
		}
		fmt.Fprintf(&sb, "| %d | [%s](<%s>) | %s | %d-%d of %d | %s |\n",
			e.OutputIndex,
			escapeCell(name), url.PathEscape(name),
			escapeCell(e.MatchID),
			e.WindowStart, e.WindowEnd, e.TotalRecords,
			escapeCell(status),
		)
	}

	return sb.String()
}

// escapeCell keeps a value inside a single table cell.
func escapeCell(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ", "|", `\|`, "<", "&lt;", ">", "&gt;").Replace(s)
}
