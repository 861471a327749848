package fetch

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	"github.com/nevindra/strata/split"
)

// zeroWidth maps invisible characters to spaces (soft hyphens are removed
// outright). They show up in scraped text and would otherwise end up inside
// chunk text and embeddings.
var zeroWidth = strings.NewReplacer(
	"​", " ", // zero-width space
	"‌", " ", // zero-width non-joiner
	"‍", " ", // zero-width joiner
	"\uFEFF", " ", // zero-width no-break space (BOM)
	"⁠", " ", // word joiner
	"­", "",  // soft hyphen
)

// Normalize applies NFKC normalization and strips zero-width characters.
// NFKC folds fullwidth Latin, mathematical alphanumerics, and ligatures
// into their plain equivalents.
func Normalize(text string) string {
	return norm.NFKC.String(zeroWidth.Replace(text))
}

// visibleText renders HTML markup to plain text by joining the heading
// splitter's segments. Script and style content is excluded and entities
// are decoded.
func visibleText(markup string) string {
	s, err := split.NewHTMLSplitter(split.DefaultConfig())
	if err != nil {
		return ""
	}
	segments := s.Split(markup)
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		parts = append(parts, seg.Text)
	}
	return strings.Join(parts, "\n\n")
}

// markdownTitle returns the text of the first level-1 ATX heading, or "".
func markdownTitle(markup string) string {
	for _, line := range strings.Split(markup, "\n") {
		if after, ok := strings.CutPrefix(strings.TrimSpace(line), "# "); ok {
			return strings.TrimSpace(after)
		}
	}
	return ""
}

// pdfText extracts plain text from a PDF, one page at a time. Pages that
// fail to parse are skipped rather than failing the document.
func pdfText(content []byte) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("fetch: empty pdf")
	}
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("fetch: open pdf: %w", err)
	}

	var text strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(pageText)
	}
	return strings.TrimSpace(text.String()), nil
}
