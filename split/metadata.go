package split

import (
	"strconv"
	"strings"

	"github.com/nevindra/strata"
)

// headingKeys is the fixed outer-to-inner order of heading metadata.
var headingKeys = []string{
	strata.MetaArticleTitle,
	strata.MetaSection,
	strata.MetaSubsection,
}

// HeadingHierarchy returns the heading values present in meta, ordered from
// outermost to innermost. Absent and empty levels are skipped.
func HeadingHierarchy(meta map[string]string) []string {
	var out []string
	for _, key := range headingKeys {
		if v := meta[key]; v != "" {
			out = append(out, v)
		}
	}
	return out
}

// SectionPath renders the heading hierarchy as a dotted path, for example
// "Intro.Setup". Chunks with no heading context get the path "root".
func SectionPath(meta map[string]string) string {
	parts := HeadingHierarchy(meta)
	if len(parts) == 0 {
		return "root"
	}
	return strings.Join(parts, ".")
}

// WithArticleContext returns a copy of meta augmented with document-level
// context: the document id and title, the chunk ordinal, and the computed
// section path. The input map is never modified.
func WithArticleContext(meta map[string]string, docID string, index int, docTitle string) map[string]string {
	out := copyMeta(meta)
	if docID != "" {
		out[strata.MetaDocumentID] = docID
	}
	if docTitle != "" {
		out[strata.MetaDocumentTitle] = docTitle
	}
	out[strata.MetaChunkIndex] = strconv.Itoa(index)
	out[strata.MetaSectionPath] = SectionPath(meta)
	return out
}
