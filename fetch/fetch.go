// Package fetch loads source documents from URLs and local files.
//
// Loaded documents carry both the raw markup (which the splitter segments)
// and a plain-text rendering (which enrichment uses as article context).
// All text is NFKC-normalized on the way in so scraped fullwidth Latin,
// ligatures, and zero-width characters never reach chunk text.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"

	"github.com/nevindra/strata"
)

// DefaultUserAgent identifies the loader to origin servers.
const DefaultUserAgent = "Mozilla/5.0 (compatible; StrataBot/1.0)"

// DefaultMaxBody caps how much of a response body is read.
const DefaultMaxBody = 8 << 20

// Loader fetches documents over HTTP and from the filesystem.
type Loader struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	logger    *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// HTTPClient replaces the default client (15-second timeout).
func HTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// UserAgent sets the User-Agent header sent with requests.
func UserAgent(ua string) Option {
	return func(l *Loader) { l.userAgent = ua }
}

// MaxBody caps the number of response bytes read (default 8 MiB).
func MaxBody(n int64) Option {
	return func(l *Loader) { l.maxBody = n }
}

// Logger sets a structured logger. If not set, no logs are emitted.
func Logger(lg *slog.Logger) Option {
	return func(l *Loader) { l.logger = lg }
}

// New creates a Loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		client:    &http.Client{Timeout: 15 * time.Second},
		userAgent: DefaultUserAgent,
		maxBody:   DefaultMaxBody,
		logger:    nopLogger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FromURL downloads a page with a default Loader. See [Loader.FromURL].
func FromURL(ctx context.Context, rawURL string, opts ...Option) (strata.Document, error) {
	return New(opts...).FromURL(ctx, rawURL)
}

// FromFile loads a local file with a default Loader. See [Loader.FromFile].
func FromFile(path string, opts ...Option) (strata.Document, error) {
	return New(opts...).FromFile(path)
}

// FromURL downloads a page and builds a Document from it. The response
// body is treated as HTML: readability extraction provides the title and
// plain text, with the raw visible text as a fallback when extraction
// finds nothing.
//
// Non-2xx responses return a [strata.ErrHTTP] carrying the status and any
// Retry-After hint.
func (l *Loader) FromURL(ctx context.Context, rawURL string) (strata.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return strata.Document{}, fmt.Errorf("fetch: invalid url: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return strata.Document{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return strata.Document{}, &strata.ErrHTTP{
			Status:     resp.StatusCode,
			Body:       string(body),
			RetryAfter: strata.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBody))
	if err != nil {
		return strata.Document{}, fmt.Errorf("fetch %s: read body: %w", rawURL, err)
	}

	markup := Normalize(string(body))
	title, text := l.extractReadable(markup, req.URL, rawURL)

	l.logger.Info("fetch: document loaded",
		"url", rawURL, "markup_bytes", len(markup), "text_bytes", len(text))

	return strata.Document{
		ID:        strata.NewID(),
		Title:     title,
		Source:    rawURL,
		Markup:    markup,
		Text:      text,
		CreatedAt: strata.NowUnix(),
	}, nil
}

// FromFile builds a Document from a local file. The extension picks the
// interpretation: .html/.htm parse as HTML, .md/.markdown pass through as
// markdown, .pdf extracts page text, and anything else is read as plain
// text.
func (l *Loader) FromFile(path string) (strata.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return strata.Document{}, fmt.Errorf("fetch: read %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	doc := strata.Document{
		ID:        strata.NewID(),
		Source:    path,
		CreatedAt: strata.NowUnix(),
	}

	switch ext {
	case ".html", ".htm":
		doc.Markup = Normalize(string(data))
		base := &url.URL{Scheme: "file", Path: path}
		doc.Title, doc.Text = l.extractReadable(doc.Markup, base, path)
	case ".md", ".markdown":
		doc.Markup = Normalize(string(data))
		doc.Text = doc.Markup
		doc.Title = markdownTitle(doc.Markup)
	case ".pdf":
		text, err := pdfText(data)
		if err != nil {
			return strata.Document{}, err
		}
		doc.Text = Normalize(text)
		doc.Title = strings.TrimSuffix(filepath.Base(path), ext)
	default:
		doc.Text = Normalize(string(data))
		doc.Title = strings.TrimSuffix(filepath.Base(path), ext)
	}

	l.logger.Info("fetch: file loaded", "path", path, "type", ext, "text_bytes", len(doc.Text))
	return doc, nil
}

// extractReadable runs readability over HTML markup, falling back to the
// document's visible text when extraction fails or comes back empty.
func (l *Loader) extractReadable(markup string, base *url.URL, source string) (title, text string) {
	article, err := readability.FromReader(strings.NewReader(markup), base)
	if err == nil {
		title = strings.TrimSpace(article.Title)
		text = strings.TrimSpace(article.TextContent)
	}
	if text == "" {
		l.logger.Warn("fetch: readability found no content, using visible text",
			"source", source, "err", err)
		text = visibleText(markup)
	}
	return title, text
}

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
