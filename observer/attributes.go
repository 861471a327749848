package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for pipeline and LLM observability spans and metrics.
var (
	AttrLLMProvider = attribute.Key("llm.provider")

	AttrTokensInput  = attribute.Key("llm.tokens.input")
	AttrTokensOutput = attribute.Key("llm.tokens.output")

	AttrDocumentID     = attribute.Key("document.id")
	AttrDocumentSource = attribute.Key("document.source")
	AttrDocumentFormat = attribute.Key("document.format")

	AttrChunkCount   = attribute.Key("chunk.count")
	AttrEnrichStatus = attribute.Key("enrich.status")
)
