// Binary strata runs the chunking pipeline over a single document: fetch,
// hierarchical split, optional LLM context enrichment, then JSONL export
// and/or store persistence.
//
// Usage:
//
//	strata -in https://example.com/article -preset rag -enrich -out chunks.jsonl
//	strata -in docs/guide.md -out - -store
//	strata -search "error handling" -top 5
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	strata "github.com/nevindra/strata"
	"github.com/nevindra/strata/enrich"
	"github.com/nevindra/strata/fetch"
	"github.com/nevindra/strata/internal/config"
	"github.com/nevindra/strata/observer"
	"github.com/nevindra/strata/provider/resolve"
	"github.com/nevindra/strata/split"
	"github.com/nevindra/strata/store/postgres"
	"github.com/nevindra/strata/store/sqlite"

	"go.opentelemetry.io/otel/trace"
)

type runOptions struct {
	in       string
	config   string
	preset   string
	markdown bool
	enrich   bool
	out      string
	store    bool
}

func main() {
	in := flag.String("in", "", "document source: an http(s) URL or a local file path")
	configPath := flag.String("config", "", "config file (default strata.toml)")
	preset := flag.String("preset", "", `chunking preset: "rag" or "extraction"`)
	markdown := flag.Bool("markdown", false, "parse the document as markdown instead of HTML")
	enrichFlag := flag.Bool("enrich", false, "prepend LLM-generated context to every chunk")
	out := flag.String("out", "", `JSONL output path ("-" for stdout)`)
	storeFlag := flag.Bool("store", false, "write the document and chunks to the configured store")
	search := flag.String("search", "", "full-text query against the stored chunk catalog (skips the pipeline)")
	top := flag.Int("top", 5, "number of search results to return")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if *search != "" {
		if err := runSearch(ctx, *configPath, *search, *top, logger); err != nil {
			logger.Error("search failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if *in == "" {
		fmt.Fprintln(os.Stderr, "Usage: strata -in <url|path> [options]")
		fmt.Fprintln(os.Stderr, "       strata -search <query> [-top n]")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Options:")
		flag.PrintDefaults()
		os.Exit(2)
	}

	err := run(ctx, runOptions{
		in:       *in,
		config:   *configPath,
		preset:   *preset,
		markdown: *markdown,
		enrich:   *enrichFlag,
		out:      *out,
		store:    *storeFlag,
	}, logger)
	if err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts runOptions, logger *slog.Logger) error {
	start := time.Now()

	// 1. Load config
	cfg, err := config.Load(opts.config)
	if err != nil {
		return err
	}

	// 2. Observability (optional)
	var inst *observer.Instruments
	if cfg.Observer.Enabled {
		var shutdown func(context.Context) error
		inst, shutdown, err = observer.Init(ctx, observer.Config{Endpoint: cfg.Observer.Endpoint})
		if err != nil {
			return fmt.Errorf("observer init: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				logger.Warn("observer shutdown", "error", err)
			}
		}()
		var s trace.Span
		ctx, s = inst.Tracer.Start(ctx, "document.process",
			trace.WithAttributes(observer.AttrDocumentSource.String(opts.in)))
		defer s.End()
	}
	// Noop span when observability is off.
	span := trace.SpanFromContext(ctx)

	// 3. Fetch the document
	loader := fetch.New(fetch.Logger(logger))
	var doc strata.Document
	if strings.HasPrefix(opts.in, "http://") || strings.HasPrefix(opts.in, "https://") {
		doc, err = loader.FromURL(ctx, opts.in)
	} else {
		doc, err = loader.FromFile(opts.in)
	}
	if err != nil {
		return err
	}
	span.SetAttributes(observer.AttrDocumentID.String(doc.ID))

	// 4. Split into chunks
	splitCfg, err := chunkingConfig(cfg.Chunking, opts.preset)
	if err != nil {
		return err
	}
	markdown := opts.markdown || isMarkdownPath(opts.in)
	var splitOpts []split.Option
	if markdown {
		splitOpts = append(splitOpts, split.SourceMarkdown())
	}
	chunker, err := split.NewHierarchical(splitCfg, splitOpts...)
	if err != nil {
		return err
	}
	chunks, err := chunker.SplitDocument(doc)
	if err != nil {
		return err
	}
	span.SetAttributes(observer.AttrChunkCount.Int(len(chunks)))
	if inst != nil {
		format := "html"
		if markdown {
			format = "markdown"
		}
		inst.RecordDocument(ctx, format)
		inst.RecordChunks(ctx, chunks)
	}
	logger.Info("document split", "source", doc.Source, "title", doc.Title, "chunks", len(chunks))

	// 5. Contextual enrichment (optional)
	enriched, skipped := 0, 0
	if opts.enrich || cfg.Enrich.Enabled {
		chunks, enriched, skipped, err = enrichChunks(ctx, cfg, inst, doc, chunks, logger)
		if err != nil {
			return err
		}
	}

	// 6. Export and store
	if opts.out != "" {
		if err := writeJSONL(opts.out, chunks); err != nil {
			return err
		}
	}
	if opts.store {
		if err := saveToStore(ctx, cfg.Store, doc, chunks, logger); err != nil {
			return err
		}
	}

	logger.Info("done",
		"chunks", len(chunks),
		"enriched", enriched,
		"skipped", skipped,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

func isMarkdownPath(in string) bool {
	ext := strings.ToLower(filepath.Ext(in))
	return ext == ".md" || ext == ".markdown"
}

// chunkingConfig builds the splitter config: preset base, then per-field
// overrides from the config file.
func chunkingConfig(c config.ChunkingConfig, flagPreset string) (split.Config, error) {
	preset := c.Preset
	if flagPreset != "" {
		preset = flagPreset
	}
	var sc split.Config
	switch preset {
	case "", "default":
		sc = split.DefaultConfig()
	case "rag":
		sc = split.ForRAG()
	case "extraction":
		sc = split.ForExtraction()
	default:
		return split.Config{}, fmt.Errorf("unknown preset %q", preset)
	}
	if c.WindowSize > 0 {
		sc.WindowSize = c.WindowSize
	}
	if c.WindowOverlap > 0 {
		sc.WindowOverlap = c.WindowOverlap
	}
	if c.WindowThreshold > 0 {
		sc.WindowThreshold = c.WindowThreshold
	}
	if c.MinChunkSize > 0 {
		sc.MinChunkSize = c.MinChunkSize
	}
	return sc, nil
}

// enrichChunks runs the contextual enrichment stage. Provider failures
// degrade individual chunks to skipped; only provider setup errors are
// fatal.
func enrichChunks(ctx context.Context, cfg config.Config, inst *observer.Instruments, doc strata.Document, chunks []strata.Chunk, logger *slog.Logger) ([]strata.Chunk, int, int, error) {
	llm, err := resolve.Provider(resolve.Config{
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		BaseURL:  cfg.LLM.BaseURL,
	})
	if err != nil {
		return chunks, 0, 0, err
	}
	if inst != nil {
		// Innermost so every retried attempt gets its own span.
		llm = observer.WrapProvider(llm, inst)
	}
	if cfg.LLM.RPM > 0 || cfg.LLM.TPM > 0 {
		llm = strata.WithRateLimit(llm, strata.RPM(cfg.LLM.RPM), strata.TPM(cfg.LLM.TPM))
	}

	enricher := enrich.New(llm,
		enrich.Workers(cfg.Enrich.Workers),
		enrich.CallTimeout(time.Duration(cfg.Enrich.CallTimeoutSec)*time.Second),
		enrich.Logger(logger),
	)

	results := enricher.Enrich(ctx, chunks, doc.Text)
	out := make([]strata.Chunk, len(results))
	var enriched, skipped int
	for i, r := range results {
		out[i] = r.Chunk
		if r.Status == enrich.StatusEnriched {
			enriched++
		} else {
			skipped++
		}
		if inst != nil {
			inst.RecordEnrichment(ctx, string(r.Status), r.Duration)
		}
	}
	return out, enriched, skipped, nil
}

// writeJSONL writes one chunk per line. "-" selects stdout.
func writeJSONL(path string, chunks []strata.Chunk) error {
	if path == "-" {
		return encodeJSONL(os.Stdout, chunks)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := encodeJSONL(f, chunks); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func encodeJSONL(w io.Writer, chunks []strata.Chunk) error {
	enc := json.NewEncoder(w)
	for _, c := range chunks {
		if err := enc.Encode(c); err != nil {
			return err
		}
	}
	return nil
}

// runSearch queries the stored chunk catalog instead of running the
// pipeline. Full-text search lives in the sqlite backend only.
func runSearch(ctx context.Context, configPath, query string, top int, logger *slog.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Store.Driver != "" && cfg.Store.Driver != "sqlite" {
		return fmt.Errorf("search needs the sqlite store, configured driver is %q", cfg.Store.Driver)
	}

	st := sqlite.New(cfg.Store.Path, sqlite.WithLogger(logger))
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("store close", "error", err)
		}
	}()
	if err := st.Init(ctx); err != nil {
		return err
	}

	hits, err := st.SearchChunks(ctx, query, top)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	for _, h := range hits {
		if err := enc.Encode(h); err != nil {
			return err
		}
	}
	logger.Info("search done", "query", query, "hits", len(hits))
	return nil
}

// saveToStore persists the document and its chunk sequence to the
// configured backend.
func saveToStore(ctx context.Context, c config.StoreConfig, doc strata.Document, chunks []strata.Chunk, logger *slog.Logger) error {
	var st strata.ChunkStore
	switch c.Driver {
	case "", "sqlite":
		st = sqlite.New(c.Path, sqlite.WithLogger(logger))
	case "postgres":
		var err error
		st, err = postgres.Connect(ctx, c.DSN)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Driver)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("store close", "error", err)
		}
	}()

	if err := st.Init(ctx); err != nil {
		return err
	}
	if err := st.SaveDocument(ctx, doc); err != nil {
		return err
	}
	if err := st.SaveChunks(ctx, doc.ID, chunks); err != nil {
		return err
	}
	logger.Info("stored", "driver", c.Driver, "document_id", doc.ID, "chunks", len(chunks))
	return nil
}
