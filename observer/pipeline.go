package observer

import (
	"context"
	"time"
	"unicode/utf8"

	strata "github.com/nevindra/strata"

	"go.opentelemetry.io/otel/metric"
)

// Pipeline-level record helpers. The CLI opens a "document.process" span via
// Instruments.Tracer around each document and calls these as stages finish;
// splitting itself stays free of telemetry concerns.

// RecordDocument counts one processed document, labelled by markup format
// ("html" or "markdown").
func (i *Instruments) RecordDocument(ctx context.Context, format string) {
	i.Documents.Add(ctx, 1, metric.WithAttributes(
		AttrDocumentFormat.String(format),
	))
}

// RecordChunks counts produced chunks and records each chunk's text size.
func (i *Instruments) RecordChunks(ctx context.Context, chunks []strata.Chunk) {
	i.ChunksProduced.Add(ctx, int64(len(chunks)))
	for _, c := range chunks {
		i.ChunkSize.Record(ctx, int64(utf8.RuneCountInString(c.Text)))
	}
}

// RecordEnrichment records one chunk's enrichment outcome and call duration.
func (i *Instruments) RecordEnrichment(ctx context.Context, status string, d time.Duration) {
	i.EnrichOutcomes.Add(ctx, 1, metric.WithAttributes(
		AttrEnrichStatus.String(status),
	))
	i.EnrichDuration.Record(ctx, float64(d.Milliseconds()), metric.WithAttributes(
		AttrEnrichStatus.String(status),
	))
}
