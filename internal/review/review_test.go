package review

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalagman/docqa/internal/model"
	"github.com/metalagman/docqa/internal/store"
)

// stubGenerator replays scripted responses and records the prompts it saw.
type stubGenerator struct {
	healthy   bool
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (g *stubGenerator) Health(_ context.Context) bool { return g.healthy }

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	i := g.calls
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.responses) {
		return g.responses[i], nil
	}
	return "", errors.New("stub exhausted")
}

type stubLinter struct {
	enabled bool
	issues  []model.LintIssue
	err     error
	calls   int
}

func (l *stubLinter) Enabled() bool { return l.enabled }

func (l *stubLinter) Check(_ context.Context, _ string, _ string) ([]model.LintIssue, error) {
	l.calls++
	return l.issues, l.err
}

type stubAuditor struct {
	records []store.ReviewRecord
}

func (a *stubAuditor) RecordReview(_ context.Context, rec store.ReviewRecord) error {
	a.records = append(a.records, rec)
	return nil
}

func response(issuesJSON string) string {
	return `<json>{"version":"1","issues":[` + issuesJSON + `]}`
}

func editIssue(id, find, replace string) string {
	return `{"id":"` + id + `","rule":"style","message":"m","severity":"info","replace_text":"` + find + `","replace_with":"` + replace + `"}`
}

func newReviewer(primary, fallback *stubGenerator, lint Linter, audit Auditor) *Reviewer {
	return New(Config{
		RetriesOnMalformed:     1,
		CodeEditThresholdRatio: 0.15,
		LintLanguage:           "en-US",
	}, primary, fallback, lint, audit)
}

func TestRunSuccess(t *testing.T) {
	t.Parallel()

	primary := &stubGenerator{healthy: true, responses: []string{response(editIssue("i1", "very good", "good"))}}
	audit := &stubAuditor{}
	r := newReviewer(primary, &stubGenerator{}, nil, audit)

	out, err := r.Run(context.Background(), "very good")
	require.NoError(t, err)
	assert.Equal(t, "good", out.UpdatedDoc)
	assert.Equal(t, "1", out.Version)
	require.Len(t, out.Review.Issues, 1)
	assert.Contains(t, out.Diff, "-very good")
	assert.Contains(t, out.Diff, "+good")

	require.Len(t, audit.records, 1)
	assert.Equal(t, store.StatusApplied, audit.records[0].Status)
	assert.Equal(t, 1, audit.records[0].Attempts)
	assert.Equal(t, "protect_code", audit.records[0].Policy)
}

func TestRunRetriesWithFeedback(t *testing.T) {
	t.Parallel()

	// First attempt is malformed; the second must carry the JSON error as
	// feedback and then succeed. The outcome reflects only the second.
	primary := &stubGenerator{healthy: true, responses: []string{
		"<json>{broken",
		response(editIssue("i1", "very good", "good")),
	}}
	r := newReviewer(primary, &stubGenerator{}, nil, nil)

	out, err := r.Run(context.Background(), "very good")
	require.NoError(t, err)
	assert.Equal(t, "good", out.UpdatedDoc)

	require.Len(t, primary.prompts, 2)
	assert.NotContains(t, primary.prompts[0], "previous attempt was malformed")
	assert.Contains(t, primary.prompts[1], "previous attempt was malformed")
	assert.Contains(t, primary.prompts[1], "valid JSON")
}

func TestRunExhaustsRetries(t *testing.T) {
	t.Parallel()

	primary := &stubGenerator{healthy: true, responses: []string{
		response(editIssue("i1", "cat", "dog")),
		response(editIssue("i1", "cat", "dog")),
	}}
	audit := &stubAuditor{}
	r := newReviewer(primary, &stubGenerator{}, nil, audit)

	_, err := r.Run(context.Background(), "cat cat")
	me, ok := model.AsMalformed(err)
	require.True(t, ok)
	assert.Equal(t, model.KindAmbiguous, me.Kind)
	assert.Contains(t, me.Reason, "occurs 2 times")
	assert.Equal(t, 2, primary.calls)

	require.Len(t, audit.records, 1)
	assert.Equal(t, store.StatusFailed, audit.records[0].Status)
	assert.Equal(t, 2, audit.records[0].Attempts)
}

func TestRunFallsBackWhenPrimaryUnhealthy(t *testing.T) {
	t.Parallel()

	primary := &stubGenerator{healthy: false}
	fallback := &stubGenerator{responses: []string{response(editIssue("i1", "very good", "good"))}}
	r := newReviewer(primary, fallback, nil, nil)

	out, err := r.Run(context.Background(), "very good")
	require.NoError(t, err)
	assert.Equal(t, "good", out.UpdatedDoc)
	assert.Equal(t, 0, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestRunFallsBackWhenPrimaryErrors(t *testing.T) {
	t.Parallel()

	primary := &stubGenerator{healthy: true, errs: []error{errors.New("tgi exploded")}}
	fallback := &stubGenerator{responses: []string{response(editIssue("i1", "very good", "good"))}}
	r := newReviewer(primary, fallback, nil, nil)

	out, err := r.Run(context.Background(), "very good")
	require.NoError(t, err)
	assert.Equal(t, "good", out.UpdatedDoc)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestRunTransportFailureIsTerminal(t *testing.T) {
	t.Parallel()

	primary := &stubGenerator{healthy: false}
	fallback := &stubGenerator{errs: []error{errors.New("no fallback key")}}
	r := newReviewer(primary, fallback, nil, nil)

	_, err := r.Run(context.Background(), "doc")
	require.Error(t, err)
	_, ok := model.AsMalformed(err)
	assert.False(t, ok)
	// No retry on transport failure.
	assert.Equal(t, 1, fallback.calls)
}

func TestRunDuplicateLintFilter(t *testing.T) {
	t.Parallel()

	doc := "This is teh document"
	tehStart := strings.Index(doc, "teh")
	lint := &stubLinter{enabled: true, issues: []model.LintIssue{{
		ID: "TYPO:8", Rule: "TYPO", Message: "typo", Severity: model.SeverityWarning,
		Start: tehStart, End: tehStart + 3,
	}}}

	// One proposal duplicates the lint finding, the other is independent.
	primary := &stubGenerator{healthy: true, responses: []string{response(
		editIssue("dup", "teh", "the") + "," + editIssue("keep", "document", "doc"),
	)}}
	r := newReviewer(primary, &stubGenerator{}, lint, nil)

	out, err := r.Run(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, out.Review.Issues, 1)
	assert.Equal(t, "keep", out.Review.Issues[0].ID)
	assert.Equal(t, "This is teh doc", out.UpdatedDoc)
	require.Len(t, out.LintIssues, 1)
	assert.Equal(t, 1, lint.calls)
}

func TestRunLintsOncePerRequest(t *testing.T) {
	t.Parallel()

	lint := &stubLinter{enabled: true}
	primary := &stubGenerator{healthy: true, responses: []string{
		"<json>{broken",
		response(editIssue("i1", "very good", "good")),
	}}
	r := newReviewer(primary, &stubGenerator{}, lint, nil)

	_, err := r.Run(context.Background(), "very good")
	require.NoError(t, err)
	assert.Equal(t, 1, lint.calls)
}

func TestRunLinterFailureDegrades(t *testing.T) {
	t.Parallel()

	lint := &stubLinter{enabled: true, err: errors.New("languagetool down")}
	primary := &stubGenerator{healthy: true, responses: []string{response(editIssue("i1", "very good", "good"))}}
	r := newReviewer(primary, &stubGenerator{}, lint, nil)

	out, err := r.Run(context.Background(), "very good")
	require.NoError(t, err)
	assert.Empty(t, out.LintIssues)
}

func TestRunPolicySelection(t *testing.T) {
	t.Parallel()

	// Mostly fenced code: the policy flips to allow_code, so an edit inside
	// the fence is applicable.
	doc := "x\n```\nthe code line here\nanother code line\n```\n"
	primary := &stubGenerator{healthy: true, responses: []string{response(editIssue("i1", "another code line", "second code line"))}}
	audit := &stubAuditor{}
	r := newReviewer(primary, &stubGenerator{}, nil, audit)

	out, err := r.Run(context.Background(), doc)
	require.NoError(t, err)
	assert.Contains(t, out.UpdatedDoc, "second code line")
	require.Len(t, audit.records, 1)
	assert.Equal(t, "allow_code", audit.records[0].Policy)
}

func TestRunEmptyIssueListIsNoop(t *testing.T) {
	t.Parallel()

	primary := &stubGenerator{healthy: true, responses: []string{`{"version":"1","issues":[]}`}}
	r := newReviewer(primary, &stubGenerator{}, nil, nil)

	out, err := r.Run(context.Background(), "untouched document")
	require.NoError(t, err)
	assert.Equal(t, "untouched document", out.UpdatedDoc)
	assert.Empty(t, strings.TrimSpace(out.Diff))
}
