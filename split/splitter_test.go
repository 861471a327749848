package split

import (
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/nevindra/strata"
)

func testDocument(markup string) strata.Document {
	return strata.Document{
		ID:     "doc-1",
		Title:  "Test Document",
		Markup: markup,
	}
}

func TestHierarchicalShortSegmentsPassThrough(t *testing.T) {
	h, err := NewHierarchical(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	chunks, err := h.SplitDocument(testDocument(
		`<h1>Guide</h1><p>Intro.</p><h2>Install</h2><p>Steps.</p>`,
	))
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2: %+v", len(chunks), chunks)
	}

	if chunks[0].Text != "Guide\n\nIntro." {
		t.Errorf("chunk 0 text = %q", chunks[0].Text)
	}
	if chunks[1].Text != "Install\n\nSteps." {
		t.Errorf("chunk 1 text = %q", chunks[1].Text)
	}

	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d index = %d", i, c.Index)
		}
		if c.ID == "" {
			t.Errorf("chunk %d has no id", i)
		}
		if c.DocumentID != "doc-1" {
			t.Errorf("chunk %d document id = %q", i, c.DocumentID)
		}
		if c.Meta[strata.MetaDocumentID] != "doc-1" {
			t.Errorf("chunk %d meta document_id = %q", i, c.Meta[strata.MetaDocumentID])
		}
		if c.Meta[strata.MetaDocumentTitle] != "Test Document" {
			t.Errorf("chunk %d meta document_title = %q", i, c.Meta[strata.MetaDocumentTitle])
		}
		if c.Meta[strata.MetaChunkIndex] != strconv.Itoa(i) {
			t.Errorf("chunk %d meta chunk_index = %q", i, c.Meta[strata.MetaChunkIndex])
		}
	}
	if chunks[0].ID == chunks[1].ID {
		t.Error("chunk ids are not unique")
	}

	if got := chunks[0].Meta[strata.MetaSectionPath]; got != "Guide" {
		t.Errorf("chunk 0 section path = %q", got)
	}
	if got := chunks[1].Meta[strata.MetaSectionPath]; got != "Guide.Install" {
		t.Errorf("chunk 1 section path = %q", got)
	}
}

func TestHierarchicalWindowsLongSegments(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowSize = 40
	cfg.WindowOverlap = 10
	cfg.WindowThreshold = 50
	cfg.MinChunkSize = 0
	cfg.Separators = []string{" ", ""}

	h, err := NewHierarchical(cfg)
	if err != nil {
		t.Fatal(err)
	}

	long := strings.TrimSpace(strings.Repeat("word ", 20))
	chunks, err := h.SplitDocument(testDocument(
		`<h1>T</h1><p>` + long + `</p><h2>Short</h2><p>Tail.</p>`,
	))
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 3 {
		t.Fatalf("got %d chunks, want the long segment windowed: %+v", len(chunks), chunks)
	}

	last := chunks[len(chunks)-1]
	if last.Text != "Short\n\nTail." {
		t.Errorf("last chunk text = %q", last.Text)
	}
	if got := last.Meta[strata.MetaSectionPath]; got != "T.Short" {
		t.Errorf("last chunk section path = %q", got)
	}

	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d index = %d, want contiguous ordering", i, c.Index)
		}
		if n := utf8.RuneCountInString(c.Text); n > cfg.WindowSize {
			t.Errorf("chunk %d is %d runes, want at most the window size", i, n)
		}
	}
	// Every window of the long segment keeps that segment's heading.
	for _, c := range chunks[:len(chunks)-1] {
		if c.Meta[strata.MetaArticleTitle] != "T" {
			t.Errorf("windowed chunk %d lost heading meta: %v", c.Index, c.Meta)
		}
	}
}

func TestHierarchicalDeterministicContent(t *testing.T) {
	h, err := NewHierarchical(ForRAG())
	if err != nil {
		t.Fatal(err)
	}
	doc := testDocument(`<h1>A</h1><p>` + strings.Repeat("sentence one. ", 200) + `</p>`)

	first, err := h.SplitDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	second, err := h.SplitDocument(doc)
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != len(second) {
		t.Fatalf("runs differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Text != second[i].Text {
			t.Errorf("chunk %d text differs between runs", i)
		}
		for k, v := range first[i].Meta {
			if second[i].Meta[k] != v {
				t.Errorf("chunk %d meta[%s] differs between runs", i, k)
			}
		}
	}
	// Identity is fresh per run even though content is stable.
	if first[0].ID == second[0].ID {
		t.Error("chunk ids should be regenerated per run")
	}
}

func TestHierarchicalMarkdownSource(t *testing.T) {
	h, err := NewHierarchical(DefaultConfig(), SourceMarkdown())
	if err != nil {
		t.Fatal(err)
	}

	chunks, err := h.SplitDocument(testDocument("# T\n\nBody text.\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1: %+v", len(chunks), chunks)
	}
	if chunks[0].Text != "T\n\nBody text." {
		t.Errorf("chunk text = %q", chunks[0].Text)
	}
	if got := chunks[0].Meta[strata.MetaArticleTitle]; got != "T" {
		t.Errorf("article title = %q", got)
	}
}

func TestHierarchicalEmptyDocument(t *testing.T) {
	h, err := NewHierarchical(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	chunks, err := h.SplitDocument(strata.Document{ID: "doc-1"})
	if err != nil {
		t.Fatal(err)
	}
	if chunks != nil {
		t.Errorf("got %+v, want no chunks", chunks)
	}

	chunks, err = h.SplitDocument(strata.Document{ID: "doc-1", Markup: "  \n\t "})
	if err != nil {
		t.Fatal(err)
	}
	if chunks != nil {
		t.Errorf("whitespace markup: got %+v, want no chunks", chunks)
	}
}

func TestHierarchicalPlainTextFallback(t *testing.T) {
	h, err := NewHierarchical(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	chunks, err := h.SplitDocument(strata.Document{ID: "doc-1", Text: "plain body text"})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Text != "plain body text" {
		t.Errorf("chunk text = %q", chunks[0].Text)
	}
	if got := chunks[0].Meta[strata.MetaSectionPath]; got != "root" {
		t.Errorf("section path = %q, want %q", got, "root")
	}
}

func TestNewHierarchicalRejectsInvalidConfig(t *testing.T) {
	if _, err := NewHierarchical(Config{}); err == nil {
		t.Fatal("expected error for zero config")
	}
}
