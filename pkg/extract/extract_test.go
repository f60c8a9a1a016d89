package extract_test

import (
	"reflect"
	"testing"

	"github.com/tutorkit/campus-gateway/pkg/extract"
)

func TestRecordsDropsSegmentsBelowMinFields(t *testing.T) {
	t.Parallel()

	raw := "A|B|C|||X|Y"

	got := extract.Records(raw, extract.Rule{ListSeparator: "|||", FieldSeparator: "|", MinFields: 2})
	if len(got) != 2 {
		t.Fatalf("minFields=2: expected 2 records, got %d (%#v)", len(got), got)
	}

	got = extract.Records(raw, extract.Rule{ListSeparator: "|||", FieldSeparator: "|", MinFields: 3})
	if len(got) != 1 {
		t.Fatalf("minFields=3: expected 1 record, got %d (%#v)", len(got), got)
	}
	if !reflect.DeepEqual(got[0].Fields, []string{"A", "B", "C"}) {
		t.Fatalf("unexpected fields: %#v", got[0].Fields)
	}
	if got[0].Segment != 0 {
		t.Fatalf("expected segment index 0, got %d", got[0].Segment)
	}
}

func TestRecordsEmptyInput(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   ", "\n\t"} {
		got := extract.Records(raw, extract.Rule{ListSeparator: "|||", FieldSeparator: "$$", MinFields: 1})
		if len(got) != 0 {
			t.Fatalf("input %q: expected no records, got %#v", raw, got)
		}
	}
}

func TestRecordsTrimsFieldsAndTracksSegments(t *testing.T) {
	t.Parallel()

	raw := " T1 $$ A1 $$ D1 ||| bad ||| T3 $$ A3 $$ D3 $$ https://example.com/b3 "
	got := extract.Records(raw, extract.Rule{ListSeparator: "|||", FieldSeparator: "$$", MinFields: 3})
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if !reflect.DeepEqual(got[0].Fields, []string{"T1", "A1", "D1"}) {
		t.Fatalf("unexpected first record: %#v", got[0].Fields)
	}
	if got[1].Segment != 2 {
		t.Fatalf("expected pre-filter segment index 2, got %d", got[1].Segment)
	}
	if extract.Field(got[1].Fields, 3) != "https://example.com/b3" {
		t.Fatalf("unexpected link field: %#v", got[1].Fields)
	}
}

func TestRecordsRequiresLeadingFieldsNonEmpty(t *testing.T) {
	t.Parallel()

	rule := extract.Rule{ListSeparator: "|||", FieldSeparator: "|", MinFields: 3}

	tests := []struct {
		name string
		raw  string
		want int
	}{
		// A blank required field drops the segment even when a trailing
		// optional field is populated.
		{name: "blank_first_field", raw: "|2026-08-01|Snippet text|https://example.com/story", want: 0},
		{name: "blank_interior_field", raw: "A| |C", want: 0},
		{name: "blank_optional_trailing_field", raw: "Headline|2026-08-01|Snippet|", want: 1},
		{name: "all_required_present", raw: "Headline|2026-08-01|Snippet", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extract.Records(tt.raw, rule)
			if len(got) != tt.want {
				t.Fatalf("expected %d records, got %#v", tt.want, got)
			}
		})
	}
}

func TestList(t *testing.T) {
	t.Parallel()

	got := extract.List("Computer Science||| Economics |||||| Law ", "|||")
	want := []string{"Computer Science", "Economics", "Law"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v want %#v", got, want)
	}

	if got := extract.List("", "|||"); len(got) != 0 {
		t.Fatalf("empty input: got %#v", got)
	}
}

func TestField(t *testing.T) {
	t.Parallel()

	fields := []string{"a", "b"}
	if got := extract.Field(fields, 1); got != "b" {
		t.Fatalf("got %q", got)
	}
	if got := extract.Field(fields, 2); got != "" {
		t.Fatalf("expected default for missing field, got %q", got)
	}
	if got := extract.Field(fields, -1); got != "" {
		t.Fatalf("expected default for negative index, got %q", got)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	in := []int{1, 2, 3, 4}
	if got := extract.Truncate(in, 2); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("got %#v", got)
	}
	if got := extract.Truncate(in, 8); len(got) != 4 {
		t.Fatalf("expected no padding, got %#v", got)
	}
}

func TestLink(t *testing.T) {
	t.Parallel()

	citations := []string{"https://cite.example/0", "", "https://cite.example/2"}

	tests := []struct {
		name     string
		embedded string
		segment  int
		primary  string
		want     string
	}{
		{
			name:     "citation_wins",
			embedded: "https://embedded.example/x",
			segment:  0,
			primary:  "Title",
			want:     "https://cite.example/0",
		},
		{
			name:     "empty_citation_falls_back_to_embedded",
			embedded: "https://embedded.example/x",
			segment:  1,
			primary:  "Title",
			want:     "https://embedded.example/x",
		},
		{
			name:     "placeholder_link_synthesized",
			embedded: "#",
			segment:  5,
			primary:  "Linear Algebra",
			want:     "https://www.google.com/search?q=Linear+Algebra",
		},
		{
			name:     "no_citation_no_embedded",
			embedded: "",
			segment:  -1,
			primary:  "Intro to CS",
			want:     "https://www.google.com/search?q=Intro+to+CS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extract.Link(tt.embedded, citations, tt.segment, tt.primary)
			if got != tt.want {
				t.Fatalf("got %q want %q", got, tt.want)
			}
		})
	}
}
