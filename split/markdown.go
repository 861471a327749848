package split

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"

	"github.com/nevindra/strata"
)

// MarkdownSplitter is the stage-1 splitter for markdown input: ATX headings
// take the place of HTML heading tags, with heading level n mapped to the
// n-th configured header rule. It shares the segment contract with
// HTMLSplitter.
type MarkdownSplitter struct {
	cfg   Config
	rules []headerRule
}

// NewMarkdownSplitter creates a stage-1 markdown splitter. Invalid config
// fails construction.
func NewMarkdownSplitter(cfg Config) (*MarkdownSplitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newMarkdownSplitter(cfg), nil
}

func newMarkdownSplitter(cfg Config) *MarkdownSplitter {
	return &MarkdownSplitter{cfg: cfg, rules: compileRules(cfg.Headers)}
}

// ruleForLevel maps a heading level to the configured rule at that depth:
// level 1 is the first rule, level 2 the second, and so on. Headings deeper
// than the configured hierarchy are ordinary content.
func (s *MarkdownSplitter) ruleForLevel(level int) (headerRule, bool) {
	i := level - 1
	if i < 0 || i >= len(s.rules) {
		return headerRule{}, false
	}
	return s.rules[i], true
}

// Split segments markdown along ATX headings. The goldmark AST drives the
// walk so that heading markers inside code fences are not mistaken for
// structure.
func (s *MarkdownSplitter) Split(markup string) []strata.Segment {
	src := []byte(markup)
	md := goldmark.New()
	doc := md.Parser().Parse(gtext.NewReader(src))

	var (
		segments  []strata.Segment
		buf       strings.Builder
		hierarchy = map[string]string{}
	)

	flush := func() {
		text := cleanText(buf.String())
		buf.Reset()
		if text == "" {
			return
		}
		segments = append(segments, strata.Segment{Text: text, Meta: copyMeta(hierarchy)})
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if heading, ok := node.(*ast.Heading); ok {
			if rule, ok := s.ruleForLevel(heading.Level); ok {
				flush()
				text := strings.Join(strings.Fields(nodeText(heading, src)), " ")
				hierarchy[rule.key] = text
				for _, r := range s.rules {
					if r.level > rule.level {
						delete(hierarchy, r.key)
					}
				}
				buf.WriteString(text)
				buf.WriteString("\n\n")
				continue
			}
		}
		buf.WriteString(nodeText(node, src))
		buf.WriteString("\n\n")
	}
	flush()

	return segments
}

// nodeText extracts the plain text of a block node and its descendants.
func nodeText(n ast.Node, src []byte) string {
	var buf strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := c.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(src))
			}
			return ast.WalkSkipChildren, nil
		default:
			// Nested blocks (list items, quoted paragraphs) separate with
			// a line break; inline nodes contribute only their text.
			if c.Type() == ast.TypeBlock && c != n && c.PreviousSibling() != nil {
				buf.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}
