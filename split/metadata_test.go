package split

import (
	"testing"

	"github.com/nevindra/strata"
)

func TestHeadingHierarchy(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]string
		want []string
	}{
		{name: "nil meta", meta: nil, want: nil},
		{name: "empty meta", meta: map[string]string{}, want: nil},
		{
			name: "full hierarchy",
			meta: map[string]string{
				strata.MetaArticleTitle: "A",
				strata.MetaSection:      "B",
				strata.MetaSubsection:   "C",
			},
			want: []string{"A", "B", "C"},
		},
		{
			name: "skips missing middle level",
			meta: map[string]string{
				strata.MetaArticleTitle: "A",
				strata.MetaSubsection:   "C",
			},
			want: []string{"A", "C"},
		},
		{
			name: "skips empty values",
			meta: map[string]string{
				strata.MetaArticleTitle: "",
				strata.MetaSection:      "B",
			},
			want: []string{"B"},
		},
		{
			name: "ignores unrelated keys",
			meta: map[string]string{
				strata.MetaSection: "B",
				"language":         "en",
			},
			want: []string{"B"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HeadingHierarchy(tt.meta)
			if len(got) != len(tt.want) {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("level %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSectionPath(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]string
		want string
	}{
		{name: "no headings", meta: nil, want: "root"},
		{
			name: "two levels",
			meta: map[string]string{
				strata.MetaArticleTitle: "Intro",
				strata.MetaSection:      "Setup",
			},
			want: "Intro.Setup",
		},
		{
			name: "three levels",
			meta: map[string]string{
				strata.MetaArticleTitle: "A",
				strata.MetaSection:      "B",
				strata.MetaSubsection:   "C",
			},
			want: "A.B.C",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SectionPath(tt.meta); got != tt.want {
				t.Errorf("SectionPath = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWithArticleContext(t *testing.T) {
	meta := map[string]string{strata.MetaSection: "Setup"}

	got := WithArticleContext(meta, "doc-1", 3, "My Doc")

	want := map[string]string{
		strata.MetaSection:       "Setup",
		strata.MetaDocumentID:    "doc-1",
		strata.MetaDocumentTitle: "My Doc",
		strata.MetaChunkIndex:    "3",
		strata.MetaSectionPath:   "Setup",
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("meta[%s] = %q, want %q", k, got[k], v)
		}
	}

	if len(meta) != 1 {
		t.Errorf("input meta was modified: %v", meta)
	}
}

func TestWithArticleContextOmitsEmptyDocument(t *testing.T) {
	got := WithArticleContext(nil, "", 0, "")

	if _, ok := got[strata.MetaDocumentID]; ok {
		t.Error("empty document id should be omitted")
	}
	if _, ok := got[strata.MetaDocumentTitle]; ok {
		t.Error("empty document title should be omitted")
	}
	if got[strata.MetaChunkIndex] != "0" {
		t.Errorf("chunk_index = %q, want %q", got[strata.MetaChunkIndex], "0")
	}
	if got[strata.MetaSectionPath] != "root" {
		t.Errorf("section_path = %q, want %q", got[strata.MetaSectionPath], "root")
	}
}
