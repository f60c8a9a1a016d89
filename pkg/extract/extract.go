// Package extract converts free-form model output into field tuples using
// per-record-kind delimiter schemes.
//
// This is the best-effort fallback path for calls that cannot use a structured
// response schema (search-grounded generation in particular). Malformed
// segments are dropped silently; an empty result is a valid outcome, never an
// error. Callers decide whether too few records warrant fallback substitution.
package extract

import (
	"net/url"
	"strings"
)

// Rule describes one delimiter scheme.
type Rule struct {
	// ListSeparator splits the raw text into candidate record segments.
	ListSeparator string

	// FieldSeparator splits one segment into fields.
	FieldSeparator string

	// MinFields is how many leading fields are required. A segment is kept
	// only when each of its first MinFields positions is non-empty after
	// trimming; a blank required field drops the whole segment.
	MinFields int
}

// Record is one successfully parsed segment.
type Record struct {
	// Fields holds the trimmed field values in input order.
	Fields []string

	// Segment is the record's index in the pre-filter segment order. Grounding
	// citations are aligned with this index, not with the post-filter order.
	Segment int
}

// Records splits raw into segments and keeps those whose first rule.MinFields
// fields are all non-empty after trimming. Input order is preserved. Empty
// input yields an empty slice.
func Records(raw string, rule Rule) []Record {
	raw = strings.TrimSpace(raw)
	if raw == "" || rule.ListSeparator == "" {
		return nil
	}

	segments := strings.Split(raw, rule.ListSeparator)
	out := make([]Record, 0, len(segments))
	for i, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}

		var fields []string
		if rule.FieldSeparator == "" {
			fields = []string{seg}
		} else {
			fields = strings.Split(seg, rule.FieldSeparator)
		}

		if len(fields) < rule.MinFields {
			continue
		}
		kept := make([]string, len(fields))
		for j, f := range fields {
			kept[j] = strings.TrimSpace(f)
		}
		required := true
		for j := 0; j < rule.MinFields; j++ {
			if kept[j] == "" {
				required = false
				break
			}
		}
		if !required {
			continue
		}
		out = append(out, Record{Fields: kept, Segment: i})
	}
	return out
}

// List parses a flat delimiter-separated list into its non-empty trimmed
// entries.
func List(raw string, sep string) []string {
	recs := Records(raw, Rule{ListSeparator: sep, MinFields: 1})
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Fields[0])
	}
	return out
}

// Field returns the i-th field, or "" when the segment supplied fewer fields.
func Field(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return fields[i]
}

// Truncate caps items to at most n entries, preserving order. The extractor
// never pads: a request for n items may yield fewer.
func Truncate[T any](items []T, n int) []T {
	if n >= 0 && len(items) > n {
		return items[:n]
	}
	return items
}

// Aim for real URLs: anything shorter cannot hold a scheme plus host and is
// treated as a placeholder like "#" or "n/a".
const minPlausibleLink = 5

// SearchLink synthesizes a web-search URL for a record whose own link is
// missing or implausible.
func SearchLink(query string) string {
	return "https://www.google.com/search?q=" + url.QueryEscape(strings.TrimSpace(query))
}

// Link resolves the outbound link for one record. A grounding citation aligned
// with the record's pre-split segment index wins; otherwise the record's
// embedded link is used when plausible; otherwise a search URL built from the
// record's primary text field is substituted.
func Link(embedded string, citations []string, segment int, primary string) string {
	if segment >= 0 && segment < len(citations) {
		if c := strings.TrimSpace(citations[segment]); len(c) >= minPlausibleLink {
			return c
		}
	}
	if e := strings.TrimSpace(embedded); len(e) >= minPlausibleLink {
		return e
	}
	return SearchLink(primary)
}
