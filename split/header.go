package split

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/nevindra/strata"
)

// HTMLSplitter is the stage-1 splitter for HTML markup: it segments a
// document along the configured heading tags, tagging each segment with the
// heading hierarchy active at that point.
type HTMLSplitter struct {
	cfg   Config
	rules []headerRule
}

// headerRule is a HeaderRule with the tag normalized and its level index
// resolved. Level is the rule's position in the configured list, so setting
// a heading clears the values of all deeper rules.
type headerRule struct {
	tag   string
	key   string
	level int
}

// NewHTMLSplitter creates a stage-1 HTML splitter. Invalid config fails
// construction.
func NewHTMLSplitter(cfg Config) (*HTMLSplitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newHTMLSplitter(cfg), nil
}

func newHTMLSplitter(cfg Config) *HTMLSplitter {
	return &HTMLSplitter{cfg: cfg, rules: compileRules(cfg.Headers)}
}

func compileRules(headers []HeaderRule) []headerRule {
	rules := make([]headerRule, 0, len(headers))
	for i, h := range headers {
		rules = append(rules, headerRule{
			tag:   strings.ToLower(h.Tag),
			key:   h.MetaKey,
			level: i,
		})
	}
	return rules
}

func (s *HTMLSplitter) ruleFor(tag string) (headerRule, bool) {
	for _, r := range s.rules {
		if r.tag == tag {
			return r, true
		}
	}
	return headerRule{}, false
}

// blockTags are elements whose boundaries separate text with line breaks.
// Inline elements (a, em, span, …) contribute text without breaks.
var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"header": true, "footer": true, "main": true, "aside": true, "nav": true,
	"ul": true, "ol": true, "li": true, "dl": true, "dt": true, "dd": true,
	"table": true, "thead": true, "tbody": true, "tr": true,
	"blockquote": true, "pre": true, "figure": true, "figcaption": true,
	"h4": true, "h5": true, "h6": true,
}

// Split segments markup along the configured heading tags. Text before any
// recognized heading becomes a segment with empty heading metadata; a
// document containing none of the configured headings yields exactly one
// segment. Tag matching is case-insensitive, script and style content is
// excluded, and entities are decoded. Concatenating the segment texts
// reconstructs the document's visible text in order, headings included.
func (s *HTMLSplitter) Split(markup string) []strata.Segment {
	z := html.NewTokenizer(strings.NewReader(markup))

	var (
		segments   []strata.Segment
		buf        strings.Builder
		headingBuf strings.Builder
		hierarchy  = map[string]string{}
		collecting *headerRule // non-nil while inside a configured heading
		skip       int         // script/style nesting depth
	)

	flush := func() {
		text := cleanText(buf.String())
		buf.Reset()
		if text == "" {
			return
		}
		segments = append(segments, strata.Segment{Text: text, Meta: copyMeta(hierarchy)})
	}

	// endHeading records the collected heading text in the hierarchy and
	// starts the new segment with the heading as its first line.
	endHeading := func() {
		rule := *collecting
		collecting = nil
		text := strings.Join(strings.Fields(headingBuf.String()), " ")
		headingBuf.Reset()
		hierarchy[rule.key] = text
		for _, r := range s.rules {
			if r.level > rule.level {
				delete(hierarchy, r.key)
			}
		}
		buf.WriteString(text)
		buf.WriteString("\n\n")
	}

	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF, or a parse error on malformed input; either way emit
			// what accumulated.
			if collecting != nil {
				endHeading()
			}
			flush()
			return segments

		case html.TextToken:
			if skip > 0 {
				continue
			}
			text := string(z.Text())
			if collecting != nil {
				headingBuf.WriteString(text)
			} else {
				buf.WriteString(text)
			}

		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				skip++
				continue
			}
			if rule, ok := s.ruleFor(tag); ok {
				if collecting != nil {
					endHeading()
				}
				flush()
				r := rule
				collecting = &r
				continue
			}
			if blockTags[tag] || tag == "br" {
				buf.WriteString("\n")
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				if skip > 0 {
					skip--
				}
				continue
			}
			if collecting != nil && tag == collecting.tag {
				endHeading()
				continue
			}
			if blockTags[tag] {
				buf.WriteString("\n\n")
			}

		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if tag := string(name); tag == "br" || tag == "hr" {
				buf.WriteString("\n")
			}
		}
	}
}

var blankLines = regexp.MustCompile(`\n{3,}`)

// cleanText normalizes extracted text: in-line whitespace runs collapse to
// a single space, blank-line runs collapse to one paragraph break, and the
// result is trimmed.
func cleanText(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	out := strings.Join(lines, "\n")
	out = blankLines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

func copyMeta(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
