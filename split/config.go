package split

import (
	"errors"
	"fmt"
)

// ErrConfig wraps all config validation failures so callers can test for
// them with errors.Is.
var ErrConfig = errors.New("split: invalid config")

// HeaderRule maps a heading tag to the metadata key its text is stored
// under. Rules are ordered coarsest first; the rule's position defines the
// heading level for markdown input (first rule = level 1).
type HeaderRule struct {
	Tag     string
	MetaKey string
}

// Config defines the splitting thresholds and separator priority for the
// two-stage chunking strategy. A Config is a plain value: splitters copy it
// at construction and never mutate it. Use DefaultConfig, ForRAG, or
// ForExtraction for known-good values; Validate rejects invalid custom
// configs instead of clamping them.
type Config struct {
	// Headers are the heading rules for stage-1 splitting, coarsest first.
	Headers []HeaderRule

	// WindowSize is the target window length in runes for stage 2.
	WindowSize int
	// WindowOverlap is the rune overlap between consecutive windows.
	WindowOverlap int
	// WindowThreshold is the segment length above which stage 2 applies.
	// Segments at or below the threshold pass through as a single window.
	WindowThreshold int

	// MinChunkSize drops windows shorter than this many runes, unless the
	// window is the only one produced for its segment.
	MinChunkSize int

	// Separators is the split-point priority list, highest priority first.
	// The empty string permits a hard cut at the window bound and belongs
	// last.
	Separators []string
	// KeepSeparator keeps the separator text at the end of the window that
	// contains it.
	KeepSeparator bool
}

// DefaultHeaders returns the standard three-level heading hierarchy. The
// metadata keys article_title, section, and subsection are the levels that
// participate in section paths.
func DefaultHeaders() []HeaderRule {
	return []HeaderRule{
		{Tag: "h1", MetaKey: "article_title"},
		{Tag: "h2", MetaKey: "section"},
		{Tag: "h3", MetaKey: "subsection"},
	}
}

// DefaultSeparators returns the standard separator cascade: paragraph
// breaks, line breaks, sentence endings, clause boundaries, words, and
// finally a hard character cut.
func DefaultSeparators() []string {
	return []string{"\n\n", "\n", ". ", "? ", "! ", "; ", ", ", " ", ""}
}

// DefaultConfig returns the general-purpose configuration.
func DefaultConfig() Config {
	return Config{
		Headers:         DefaultHeaders(),
		WindowSize:      512,
		WindowOverlap:   64,
		WindowThreshold: 1500,
		MinChunkSize:    50,
		Separators:      DefaultSeparators(),
		KeepSeparator:   true,
	}
}

// ForRAG returns a configuration tuned for retrieval: smaller windows with
// more overlap, so embeddings capture tighter spans of context.
func ForRAG() Config {
	cfg := DefaultConfig()
	cfg.WindowSize = 400
	cfg.WindowOverlap = 80
	cfg.WindowThreshold = 1200
	cfg.MinChunkSize = 30
	return cfg
}

// ForExtraction returns a configuration tuned for LLM entity extraction:
// larger windows with less overlap, so the model sees more surrounding
// context per call.
func ForExtraction() Config {
	cfg := DefaultConfig()
	cfg.WindowSize = 1024
	cfg.WindowOverlap = 128
	cfg.WindowThreshold = 2500
	cfg.MinChunkSize = 100
	return cfg
}

// Validate reports the first invalid field. Constructors call this so that
// invalid values fail construction rather than producing corrupt output.
func (c Config) Validate() error {
	if c.WindowSize <= 0 {
		return fmt.Errorf("%w: window size must be positive, got %d", ErrConfig, c.WindowSize)
	}
	if c.WindowOverlap < 0 {
		return fmt.Errorf("%w: window overlap must be non-negative, got %d", ErrConfig, c.WindowOverlap)
	}
	if c.WindowOverlap >= c.WindowSize {
		return fmt.Errorf("%w: window overlap %d must be smaller than window size %d", ErrConfig, c.WindowOverlap, c.WindowSize)
	}
	if c.WindowThreshold <= 0 {
		return fmt.Errorf("%w: window threshold must be positive, got %d", ErrConfig, c.WindowThreshold)
	}
	if c.MinChunkSize < 0 {
		return fmt.Errorf("%w: min chunk size must be non-negative, got %d", ErrConfig, c.MinChunkSize)
	}
	return nil
}
