// Package patch resolves proposed edits to unique document positions and
// composes accepted edits into a new document.
package patch

import (
	"fmt"
	"sort"
	"strings"

	"github.com/metalagman/docqa/internal/model"
	"github.com/metalagman/docqa/internal/region"
)

// Plan is a resolved, positioned edit. Start and End are byte offsets into
// the document the plan was built for.
type Plan struct {
	Start       int
	End         int
	Replacement string
	IssueID     string
}

// Span returns the document range the plan replaces.
func (p Plan) Span() region.Span {
	return region.Span{Start: p.Start, End: p.End}
}

// AllowedOccurrences returns the start offsets of every occurrence of needle
// in doc that does not intersect a forbidden span. Overlapping occurrences
// of the needle are all considered.
func AllowedOccurrences(doc, needle string, forbidden []region.Span) []int {
	if needle == "" {
		return nil
	}
	var positions []int
	from := 0
	for {
		idx := strings.Index(doc[from:], needle)
		if idx == -1 {
			break
		}
		idx += from
		span := region.Span{Start: idx, End: idx + len(needle)}
		if !region.IntersectsAny(span, forbidden) {
			positions = append(positions, idx)
		}
		from = idx + 1
	}
	return positions
}

// PlanReplacements resolves each issue's ReplaceText to exactly one location
// outside the forbidden spans, in input order. Planning is all-or-nothing:
// the first unresolvable issue fails the whole attempt. The returned plans
// are sorted by (start, end) and proven non-overlapping.
func PlanReplacements(doc string, issues []model.Issue, forbidden []region.Span) ([]Plan, error) {
	plans := make([]Plan, 0, len(issues))
	for _, issue := range issues {
		positions := AllowedOccurrences(doc, issue.ReplaceText, forbidden)
		switch {
		case len(positions) == 0:
			return nil, model.Malformed(model.KindNotFound, fmt.Sprintf(
				"Replacement text not found outside forbidden regions for issue '%s'.", issue.ID))
		case len(positions) > 1:
			return nil, model.Malformed(model.KindAmbiguous, fmt.Sprintf(
				"Replacement text is ambiguous (occurs %d times) for issue '%s'.", len(positions), issue.ID))
		}
		start := positions[0]
		plans = append(plans, Plan{
			Start:       start,
			End:         start + len(issue.ReplaceText),
			Replacement: issue.ReplaceWith,
			IssueID:     issue.ID,
		})
	}

	sort.Slice(plans, func(i, j int) bool {
		if plans[i].Start != plans[j].Start {
			return plans[i].Start < plans[j].Start
		}
		return plans[i].End < plans[j].End
	})
	for i := 1; i < len(plans); i++ {
		if region.Intersects(plans[i-1].Span(), plans[i].Span()) {
			return nil, model.Malformed(model.KindOverlapping, fmt.Sprintf(
				"Overlapping edits between issues '%s' and '%s'.", plans[i-1].IssueID, plans[i].IssueID))
		}
	}
	return plans, nil
}

// Apply composes the plans into a new document. Plans must be sorted
// ascending and non-overlapping, which PlanReplacements guarantees; under
// that invariant Apply cannot fail and returns the fully composed document.
func Apply(doc string, plans []Plan) string {
	if len(plans) == 0 {
		return doc
	}
	var b strings.Builder
	cursor := 0
	for _, p := range plans {
		b.WriteString(doc[cursor:p.Start])
		b.WriteString(p.Replacement)
		cursor = p.End
	}
	b.WriteString(doc[cursor:])
	return b.String()
}
