// Package region partitions a Markdown document into protected and editable
// byte ranges. Protected ranges cover fenced code blocks, inline code spans
// and URLs; automated replacements never land inside them.
package region

import (
	"regexp"
	"sort"
	"strings"
)

// Span is a half-open byte range [Start, End) over a document.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// Intersects reports whether two half-open spans overlap.
func Intersects(a, b Span) bool {
	return a.Start < b.End && b.Start < a.End
}

// IntersectsAny reports whether span intersects any span in spans.
func IntersectsAny(span Span, spans []Span) bool {
	for _, s := range spans {
		if Intersects(span, s) {
			return true
		}
	}
	return false
}

// Policy selects which region classes are forbidden for edits.
type Policy int

const (
	// PolicyProtectCode forbids fenced code, inline code and URLs.
	PolicyProtectCode Policy = iota
	// PolicyAllowCode permits edits inside fenced code but still forbids
	// inline code and URLs.
	PolicyAllowCode
)

// Merge sorts spans by start and coalesces touching or overlapping pairs.
// The result is the canonical disjoint ascending span list. The input slice
// is not modified.
func Merge(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}
	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := make([]Span, 0, len(sorted))
	cur := sorted[0]
	for _, s := range sorted[1:] {
		if s.Start <= cur.End {
			if s.End > cur.End {
				cur.End = s.End
			}
			continue
		}
		merged = append(merged, cur)
		cur = s
	}
	return append(merged, cur)
}

const fenceMarker = "```"

// FencedCodeSpans returns spans for triple-backtick fenced blocks, inclusive
// of both fence lines. A line whose content after stripping leading
// whitespace starts with the marker toggles the fence state; an unterminated
// fence extends to the end of the document.
func FencedCodeSpans(doc string) []Span {
	var spans []Span
	inside := false
	start := -1
	pos := 0
	for pos < len(doc) {
		lineEnd := strings.IndexByte(doc[pos:], '\n')
		if lineEnd == -1 {
			lineEnd = len(doc)
		} else {
			lineEnd = pos + lineEnd + 1
		}
		line := doc[pos:lineEnd]
		stripped := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(stripped, fenceMarker) {
			if !inside {
				inside = true
				start = pos + (len(line) - len(stripped))
			} else {
				// Closing fence line is part of the protected span.
				spans = append(spans, Span{Start: start, End: lineEnd})
				inside = false
				start = -1
			}
		}
		pos = lineEnd
	}
	if inside && start != -1 {
		spans = append(spans, Span{Start: start, End: len(doc)})
	}
	return Merge(spans)
}

// InlineCodeSpans returns spans for single-backtick inline code, inclusive of
// both backticks. Offsets inside blocked spans (fenced code) are skipped, so
// fence backticks never pair with inline ones; skipping a block also resets
// any pending open tick. A stray unmatched tick produces no span.
func InlineCodeSpans(doc string, blocked []Span) []Span {
	var spans []Span
	sorted := Merge(blocked)
	bi := 0
	open := -1
	i := 0
	for i < len(doc) {
		for bi < len(sorted) && i >= sorted[bi].End {
			bi++
		}
		if bi < len(sorted) && sorted[bi].Start <= i {
			i = sorted[bi].End
			open = -1
			continue
		}
		if doc[i] == '`' {
			if open == -1 {
				open = i
			} else {
				spans = append(spans, Span{Start: open, End: i + 1})
				open = -1
			}
		}
		i++
	}
	return Merge(spans)
}

var (
	urlRE      = regexp.MustCompile(`https?://[^\s<>)\]}"]+`)
	mdLinkRE   = regexp.MustCompile(`\]\((https?://[^)]+)\)`)
	autoLinkRE = regexp.MustCompile(`<https?://[^>]+>`)
)

// URLSpans returns spans covering URL text: bare scheme-prefixed URLs,
// Markdown link destinations (the URL inside the parentheses only) and
// angle-bracket autolinks (brackets excluded).
func URLSpans(doc string) []Span {
	var spans []Span
	for _, m := range urlRE.FindAllStringIndex(doc, -1) {
		spans = append(spans, Span{Start: m[0], End: m[1]})
	}
	for _, m := range mdLinkRE.FindAllStringSubmatchIndex(doc, -1) {
		spans = append(spans, Span{Start: m[2], End: m[3]})
	}
	for _, m := range autoLinkRE.FindAllStringIndex(doc, -1) {
		spans = append(spans, Span{Start: m[0] + 1, End: m[1] - 1})
	}
	return Merge(spans)
}

// Forbidden computes the merged forbidden span set for doc under the policy.
// The set is computed fresh from doc; nothing is cached.
func Forbidden(doc string, policy Policy) []Span {
	fences := FencedCodeSpans(doc)
	inline := InlineCodeSpans(doc, fences)
	urls := URLSpans(doc)

	var all []Span
	if policy == PolicyProtectCode {
		all = append(all, fences...)
	}
	all = append(all, inline...)
	all = append(all, urls...)
	return Merge(all)
}
