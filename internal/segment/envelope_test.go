package segment

import (
	"strings"
	"testing"

	"github.com/hpungsan/chatctx/internal/errors"
)

func TestSplitEnvelope_RoundTrip(t *testing.T) {
	doc := buildExport(5, set(0, 3), set(2))

	env, err := SplitEnvelope(doc, testOpen, testEnd)
	if err != nil {
		t.Fatalf("SplitEnvelope() error = %v", err)
	}

	if !strings.HasSuffix(env.Prefix, testOpen) {
		t.Errorf("Prefix does not end with container open: %q", env.Prefix[len(env.Prefix)-30:])
	}
	if !strings.HasPrefix(env.Suffix, "</div>") {
		t.Errorf("Suffix does not start with close tag: %q", env.Suffix)
	}
	if env.ContainerStart != len(env.Prefix) {
		t.Errorf("ContainerStart = %d, want %d", env.ContainerStart, len(env.Prefix))
	}

	got := env.Wrap(doc[env.ContainerStart:env.ContainerEnd])
	if got != doc {
		t.Errorf("Prefix + body + Suffix != original document")
	}
}

func TestSplitEnvelope_ContainerMissing(t *testing.T) {
	_, err := SplitEnvelope("<html><body>nothing here</body></html>", testOpen, testEnd)
	if err == nil {
		t.Fatal("SplitEnvelope() error = nil, want CONTAINER_NOT_FOUND")
	}
	if !errors.Is(err, errors.ErrContainerNotFound) {
		t.Errorf("error = %v, want CONTAINER_NOT_FOUND", err)
	}
}

func TestSplitEnvelope_NoEndMarker(t *testing.T) {
	doc := `<html><div class="chatlog"><div id=chatlog__message-container-1>hi</div>`

	env, err := SplitEnvelope(doc, testOpen, testEnd)
	if err != nil {
		t.Fatalf("SplitEnvelope() error = %v", err)
	}
	if env.ContainerEnd != len(doc) {
		t.Errorf("ContainerEnd = %d, want %d", env.ContainerEnd, len(doc))
	}
	if env.Suffix != "</div>" {
		t.Errorf("Suffix = %q, want %q", env.Suffix, "</div>")
	}
}

func TestSplitEnvelope_EndMarkerBeforeContainerIgnored(t *testing.T) {
	doc := `<div class=postamble-ish></div><div class="chatlog"><div id=chatlog__message-container-1>hi</div>`

	env, err := SplitEnvelope(doc, testOpen, testEnd)
	if err != nil {
		t.Fatalf("SplitEnvelope() error = %v", err)
	}
	if env.ContainerEnd != len(doc) {
		t.Errorf("ContainerEnd = %d, want %d (end marker before container must be ignored)", env.ContainerEnd, len(doc))
	}
}

func TestSplitEnvelope_SynthesizesCloseTag(t *testing.T) {
	doc := `<html><section id=log><p>a</p><p>b</p><footer>tail</footer></html>`

	env, err := SplitEnvelope(doc, "<section id=log>", "<footer>")
	if err != nil {
		t.Fatalf("SplitEnvelope() error = %v", err)
	}

	wantEnd := strings.Index(doc, "<footer>")
	if env.ContainerEnd != wantEnd {
		t.Errorf("ContainerEnd = %d, want %d", env.ContainerEnd, wantEnd)
	}
	if env.Prefix != "<html><section id=log>" {
		t.Errorf("Prefix = %q", env.Prefix)
	}
	if env.Suffix != "</section><footer>tail</footer></html>" {
		t.Errorf("Suffix = %q", env.Suffix)
	}
}

func TestSplitEnvelope_MissingContainerCloseUsesLastRecordClose(t *testing.T) {
	// The container close is absent; the last record's own </div> sits before the end marker.
	doc := `<html><div class="chatlog">` +
		`<div id=chatlog__message-container-1>a</div>` +
		`<div id=chatlog__message-container-2>b</div>` + "\n" +
		`<div class=postamble>done</div></html>`

	env, err := SplitEnvelope(doc, testOpen, testEnd)
	if err != nil {
		t.Fatalf("SplitEnvelope() error = %v", err)
	}

	endAt := strings.Index(doc, testEnd)
	closeAt := strings.LastIndex(doc[:endAt], "</div>")
	if env.ContainerEnd != closeAt {
		t.Errorf("ContainerEnd = %d, want %d", env.ContainerEnd, closeAt)
	}
	if env.Suffix != doc[closeAt:] {
		t.Errorf("Suffix = %q, want %q", env.Suffix, doc[closeAt:])
	}
	if strings.Count(env.Suffix, "</div>") != 2 {
		t.Errorf("Suffix = %q, want no synthesized close tag", env.Suffix)
	}
	if got := env.Wrap(doc[env.ContainerStart:env.ContainerEnd]); got != doc {
		t.Errorf("Prefix + body + Suffix != original document")
	}
}

func TestSplitEnvelope_InvalidMarker(t *testing.T) {
	_, err := SplitEnvelope("<div>", "chatlog", testEnd)
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("error = %v, want INVALID_REQUEST", err)
	}
}

func TestCloseTagFor(t *testing.T) {
	tests := []struct {
		open    string
		want    string
		wantErr bool
	}{
		{`<div class="chatlog">`, "</div>", false},
		{`<div>`, "</div>", false},
		{"<section\tid=x>", "</section>", false},
		{`<main/>`, "</main>", false},
		{`<ul`, "</ul>", false},
		{`div`, "", true},
		{`<>`, "", true},
		{`< div>`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.open, func(t *testing.T) {
			got, err := CloseTagFor(tt.open)
			if tt.wantErr {
				if err == nil {
					t.Errorf("CloseTagFor(%q) error = nil, want error", tt.open)
				}
				return
			}
			if err != nil {
				t.Fatalf("CloseTagFor(%q) error = %v", tt.open, err)
			}
			if got != tt.want {
				t.Errorf("CloseTagFor(%q) = %q, want %q", tt.open, got, tt.want)
			}
		})
	}
}
