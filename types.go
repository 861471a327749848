package strata

// --- Domain types ---

// Document is the unit of input to the splitters: raw markup plus the
// identifying fields downstream stages attach to every chunk. Markup holds
// the HTML or markdown source; Text holds the plain-text rendering used as
// the article context during enrichment (derived from Markup when empty).
type Document struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Source    string `json:"source"`
	Markup    string `json:"markup"`
	Text      string `json:"text"`
	CreatedAt int64  `json:"created_at"`
}

// Segment is a document span bounded by heading markers, the output of
// stage-1 splitting. Meta carries the heading hierarchy active at the span:
// keys are the configured metadata names (article_title, section,
// subsection), and a segment only has keys for the levels present above it.
type Segment struct {
	Text string            `json:"text"`
	Meta map[string]string `json:"metadata"`
}

// Chunk is a final bounded-size text unit with metadata, the unit consumed
// by downstream embedding and extraction. Chunks are produced in document
// order; Index is the ordinal within the document, assigned after final
// splitting. Enrichment may rewrite Text (prefix prepended) and Meta
// (prefix recorded) exactly once; nothing else mutates a chunk.
type Chunk struct {
	ID         string            `json:"id"`
	DocumentID string            `json:"document_id"`
	Text       string            `json:"text"`
	Index      int               `json:"chunk_index"`
	Meta       map[string]string `json:"metadata"`
}

// Metadata keys written by the splitters and the enricher. Consumers must
// tolerate a variable key set: heading levels are present only when the
// document has them, and the contextual prefix only after enrichment.
const (
	MetaArticleTitle     = "article_title"
	MetaSection          = "section"
	MetaSubsection       = "subsection"
	MetaSectionPath      = "section_path"
	MetaChunkIndex       = "chunk_index"
	MetaDocumentID       = "document_id"
	MetaDocumentTitle    = "document_title"
	MetaContextualPrefix = "contextual_prefix"
)

// Chunker produces the ordered chunk sequence for one document. It is the
// boundary an external pipeline orchestrator depends on, hiding the
// two-stage splitting internals.
type Chunker interface {
	SplitDocument(doc Document) ([]Chunk, error)
}

// --- LLM protocol types ---

type ChatMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
	// Generation parameters. Nil Temperature means provider default.
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
}

type ChatResponse struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// --- ChatMessage constructors ---

func UserMessage(text string) ChatMessage {
	return ChatMessage{Role: "user", Content: text}
}

func SystemMessage(text string) ChatMessage {
	return ChatMessage{Role: "system", Content: text}
}
