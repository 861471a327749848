// Package split implements two-stage hierarchical document chunking.
//
// Stage one cuts a document along its heading structure (HTML heading tags
// or markdown ATX headings) into segments that inherit heading metadata
// from their position in the outline. Stage two re-cuts segments that
// exceed a size threshold with a sliding window that prefers natural
// boundaries, trying each configured separator in priority order.
//
// The result is a flat list of [strata.Chunk] values whose metadata records
// where in the document each chunk came from.
package split

import (
	"strings"
	"unicode/utf8"

	"github.com/nevindra/strata"
)

// segmenter is the stage-1 contract shared by the HTML and markdown
// splitters.
type segmenter interface {
	Split(markup string) []strata.Segment
}

// Hierarchical is a [strata.Chunker] that applies heading-based splitting
// followed by sliding-window splitting of oversized segments.
type Hierarchical struct {
	cfg   Config
	stage segmenter
}

var _ strata.Chunker = (*Hierarchical)(nil)

// Option configures a [Hierarchical] splitter.
type Option func(*Hierarchical)

// SourceMarkdown selects the markdown heading splitter for stage one
// instead of the default HTML one.
func SourceMarkdown() Option {
	return func(h *Hierarchical) {
		h.stage = newMarkdownSplitter(h.cfg)
	}
}

// NewHierarchical creates a two-stage splitter with the given config.
// By default stage one parses the document markup as HTML.
func NewHierarchical(cfg Config, opts ...Option) (*Hierarchical, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := &Hierarchical{cfg: cfg, stage: newHTMLSplitter(cfg)}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// SplitDocument chunks a document. Heading segments at or under
// Config.WindowThreshold runes pass through as single chunks; longer ones
// are re-cut by [SlidingWindow]. Chunk indexes are assigned in document
// order and every chunk carries its heading hierarchy, section path, and
// document identity in Meta.
//
// Documents with no usable content produce an empty chunk list and no
// error.
func (h *Hierarchical) SplitDocument(doc strata.Document) ([]strata.Chunk, error) {
	markup := doc.Markup
	if markup == "" {
		markup = doc.Text
	}
	if strings.TrimSpace(markup) == "" {
		return nil, nil
	}

	var chunks []strata.Chunk
	index := 0
	for _, seg := range h.stage.Split(markup) {
		windows := []string{seg.Text}
		if utf8.RuneCountInString(seg.Text) > h.cfg.WindowThreshold {
			windows = SlidingWindow(seg.Text, h.cfg)
		}
		for _, w := range windows {
			chunks = append(chunks, strata.Chunk{
				ID:         strata.NewID(),
				DocumentID: doc.ID,
				Text:       w,
				Index:      index,
				Meta:       WithArticleContext(seg.Meta, doc.ID, index, doc.Title),
			})
			index++
		}
	}
	return chunks, nil
}
