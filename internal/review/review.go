// Package review drives the document review pipeline: policy selection,
// generation with fallback routing, parsing, duplicate filtering, replacement
// planning and patch application, under a bounded retry loop.
package review

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/metalagman/docqa/internal/llm"
	"github.com/metalagman/docqa/internal/model"
	"github.com/metalagman/docqa/internal/parse"
	"github.com/metalagman/docqa/internal/patch"
	"github.com/metalagman/docqa/internal/prompt"
	"github.com/metalagman/docqa/internal/region"
	"github.com/metalagman/docqa/internal/store"
)

// Linter is the advisory linter collaborator.
type Linter interface {
	Enabled() bool
	Check(ctx context.Context, doc string, language string) ([]model.LintIssue, error)
}

// Auditor records review outcomes. A nil Auditor disables auditing.
type Auditor interface {
	RecordReview(ctx context.Context, rec store.ReviewRecord) error
}

// Config tunes the review loop.
type Config struct {
	// RetriesOnMalformed is the number of extra attempts after a malformed
	// generation.
	RetriesOnMalformed int
	// CodeEditThresholdRatio: fenced-code byte fraction at or above which
	// edits inside fences are allowed.
	CodeEditThresholdRatio float64
	// LintLanguage is passed to the linter collaborator.
	LintLanguage string
}

// Outcome is the terminal result of one successful review.
type Outcome struct {
	Version    string
	Diff       string
	UpdatedDoc string
	Review     model.ReviewResponse
	LintIssues []model.LintIssue
}

// Reviewer runs the review pipeline. All collaborator handles are injected
// at construction and shared across requests; per-request state lives on the
// stack of Run.
type Reviewer struct {
	cfg      Config
	primary  llm.Generator
	fallback llm.Generator
	linter   Linter
	audit    Auditor
}

// New constructs a Reviewer.
func New(cfg Config, primary, fallback llm.Generator, lint Linter, audit Auditor) *Reviewer {
	return &Reviewer{
		cfg:      cfg,
		primary:  primary,
		fallback: fallback,
		linter:   lint,
		audit:    audit,
	}
}

func policyName(p region.Policy) string {
	if p == region.PolicyAllowCode {
		return "allow_code"
	}
	return "protect_code"
}

// Run reviews doc once. A *model.MalformedError return means the retry
// budget was exhausted; the error carries the last rejection reason. Any
// other error is a collaborator transport failure.
func (r *Reviewer) Run(ctx context.Context, doc string) (*Outcome, error) {
	reviewID := uuid.NewString()

	// The code-edit policy is decided once per request and holds for every
	// retry attempt.
	fences := region.FencedCodeSpans(doc)
	codeRatio := 0.0
	if len(doc) > 0 {
		fenced := 0
		for _, s := range fences {
			fenced += s.Len()
		}
		codeRatio = float64(fenced) / float64(len(doc))
	}
	policy := region.PolicyProtectCode
	if codeRatio >= r.cfg.CodeEditThresholdRatio {
		policy = region.PolicyAllowCode
	}
	forbidden := region.Forbidden(doc, policy)

	logger := log.With().Str("review_id", reviewID).Str("policy", policyName(policy)).Logger()
	logger.Debug().Float64("code_ratio", codeRatio).Int("doc_bytes", len(doc)).Msg("review started")

	// Lint once per request; findings are advisory, so a failing linter
	// degrades to an unassisted review instead of failing the request.
	var lintIssues []model.LintIssue
	if r.linter != nil && r.linter.Enabled() {
		var err error
		lintIssues, err = r.linter.Check(ctx, doc, r.cfg.LintLanguage)
		if err != nil {
			logger.Warn().Err(err).Msg("linter unavailable, continuing without advisory findings")
			lintIssues = nil
		}
	}
	lintSpans := make([]region.Span, 0, len(lintIssues))
	for _, li := range lintIssues {
		lintSpans = append(lintSpans, region.Span{Start: li.Start, End: li.End})
	}

	attempts := r.cfg.RetriesOnMalformed + 1
	feedback := ""
	var lastMalformed *model.MalformedError

	for attempt := 1; attempt <= attempts; attempt++ {
		p := prompt.Build(doc, prompt.Options{
			AllowCodeEdits: policy == region.PolicyAllowCode,
			Feedback:       feedback,
			LintIssues:     lintIssues,
		})

		raw, err := r.generate(ctx, p)
		if err != nil {
			r.recordFailure(ctx, reviewID, policy, attempt, len(lintIssues), err.Error())
			return nil, err
		}

		outcome, err := r.applyAttempt(doc, raw, forbidden, lintSpans, lintIssues)
		if err != nil {
			me, ok := model.AsMalformed(err)
			if !ok {
				r.recordFailure(ctx, reviewID, policy, attempt, len(lintIssues), err.Error())
				return nil, err
			}
			logger.Debug().Int("attempt", attempt).Str("kind", string(me.Kind)).Msg("malformed generation, retrying")
			lastMalformed = me
			feedback = me.Reason
			continue
		}

		logger.Info().Int("attempt", attempt).Int("accepted", len(outcome.Review.Issues)).Msg("review applied")
		r.recordSuccess(ctx, reviewID, policy, attempt, outcome)
		return outcome, nil
	}

	reason := "unknown"
	if lastMalformed != nil {
		reason = lastMalformed.Reason
	}
	logger.Warn().Str("reason", reason).Msg("review failed after retries")
	r.recordFailure(ctx, reviewID, policy, attempts, len(lintIssues), reason)
	return nil, model.Malformed(kindOf(lastMalformed), reason)
}

func kindOf(me *model.MalformedError) model.ErrorKind {
	if me == nil {
		return model.KindJSONInvalid
	}
	return me.Kind
}

// generate routes to the primary backend when healthy, falling back to the
// secondary on an unhealthy primary or a primary request error.
func (r *Reviewer) generate(ctx context.Context, p string) (string, error) {
	if r.primary.Health(ctx) {
		raw, err := r.primary.Generate(ctx, p)
		if err == nil {
			return raw, nil
		}
		log.Warn().Err(err).Msg("primary generation failed, using fallback")
	}
	raw, err := r.fallback.Generate(ctx, p)
	if err != nil {
		return "", fmt.Errorf("fallback generation: %w", err)
	}
	return raw, nil
}

// applyAttempt runs the deterministic stages for one generation attempt.
// These stages are synchronous and pure; the composed document is built in
// full or not at all.
func (r *Reviewer) applyAttempt(doc, raw string, forbidden, lintSpans []region.Span, lintIssues []model.LintIssue) (*Outcome, error) {
	parsed, err := parse.ReviewResponse(raw)
	if err != nil {
		return nil, err
	}

	// Drop proposed issues that duplicate an advisory finding: uniquely
	// locatable outside forbidden regions and overlapping a lint span.
	// Overlap alone is sufficient grounds to drop the proposal.
	filtered := make([]model.Issue, 0, len(parsed.Issues))
	for _, issue := range parsed.Issues {
		positions := patch.AllowedOccurrences(doc, issue.ReplaceText, forbidden)
		if len(positions) == 1 {
			span := region.Span{Start: positions[0], End: positions[0] + len(issue.ReplaceText)}
			if region.IntersectsAny(span, lintSpans) {
				continue
			}
		}
		filtered = append(filtered, issue)
	}
	parsed.Issues = filtered

	plans, err := patch.PlanReplacements(doc, parsed.Issues, forbidden)
	if err != nil {
		return nil, err
	}
	updated := patch.Apply(doc, plans)
	diff, err := patch.UnifiedDiff(doc, updated)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		Version:    parsed.Version,
		Diff:       diff,
		UpdatedDoc: updated,
		Review:     parsed,
		LintIssues: lintIssues,
	}, nil
}

func (r *Reviewer) recordSuccess(ctx context.Context, reviewID string, policy region.Policy, attempts int, outcome *Outcome) {
	if r.audit == nil {
		return
	}
	err := r.audit.RecordReview(ctx, store.ReviewRecord{
		ID:             reviewID,
		Status:         store.StatusApplied,
		Policy:         policyName(policy),
		Attempts:       attempts,
		AcceptedIssues: len(outcome.Review.Issues),
		LintIssues:     len(outcome.LintIssues),
		DiffBytes:      len(outcome.Diff),
	})
	if err != nil {
		log.Warn().Err(err).Msg("audit record failed")
	}
}

func (r *Reviewer) recordFailure(ctx context.Context, reviewID string, policy region.Policy, attempts, lintCount int, reason string) {
	if r.audit == nil {
		return
	}
	err := r.audit.RecordReview(ctx, store.ReviewRecord{
		ID:         reviewID,
		Status:     store.StatusFailed,
		Reason:     reason,
		Policy:     policyName(policy),
		Attempts:   attempts,
		LintIssues: lintCount,
	})
	if err != nil {
		log.Warn().Err(err).Msg("audit record failed")
	}
}
