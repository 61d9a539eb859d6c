// Package linter provides the advisory grammar/style collaborator, backed by
// a LanguageTool server. Findings are advisory only: they are surfaced to
// callers and used for duplicate suppression, never for document mutation.
package linter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/metalagman/docqa/internal/model"
)

const defaultTimeout = 30 * time.Second

// Config configures the LanguageTool client.
type Config struct {
	BaseURL  string
	Enabled  bool
	Language string
}

// Linter checks documents against a LanguageTool server. Construct once at
// startup and share; the instance is read-only after construction.
type Linter struct {
	baseURL    string
	enabled    bool
	language   string
	httpClient *http.Client
}

// New constructs a Linter. A disabled linter is valid: Check returns no
// findings without contacting the server.
func New(cfg Config, httpClient *http.Client) (*Linter, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Enabled && baseURL == "" {
		return nil, fmt.Errorf("linter base url is required when the linter is enabled")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = "en-US"
	}
	return &Linter{
		baseURL:    baseURL,
		enabled:    cfg.Enabled,
		language:   language,
		httpClient: httpClient,
	}, nil
}

// Enabled reports whether the linter will contact its backend.
func (l *Linter) Enabled() bool { return l.enabled }

type ltResponse struct {
	Matches []ltMatch `json:"matches"`
}

type ltMatch struct {
	Message string `json:"message"`
	Offset  int    `json:"offset"`
	Length  int    `json:"length"`
	Rule    ltRule `json:"rule"`
}

type ltRule struct {
	ID        string `json:"id"`
	IssueType string `json:"issueType"`
}

// Check lints doc and returns advisory findings with byte-offset spans.
// The server reports character offsets; spans are converted here so every
// offset downstream shares the document's byte coordinate space. Findings
// with out-of-range spans are discarded.
func (l *Linter) Check(ctx context.Context, doc string, language string) ([]model.LintIssue, error) {
	if !l.enabled {
		return nil, nil
	}
	if language == "" {
		language = l.language
	}

	form := url.Values{}
	form.Set("text", doc)
	form.Set("language", language)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/v2/check", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build lint request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lint check: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read lint response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lint check: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed ltResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode lint response: %w", err)
	}

	offsets := runeToByteOffsets(doc)
	issues := make([]model.LintIssue, 0, len(parsed.Matches))
	for _, m := range parsed.Matches {
		runeStart := m.Offset
		runeEnd := m.Offset + m.Length
		if runeStart < 0 || runeEnd < runeStart || runeEnd >= len(offsets) {
			continue
		}
		start := offsets[runeStart]
		end := offsets[runeEnd]
		issues = append(issues, model.LintIssue{
			ID:       fmt.Sprintf("%s:%d", m.Rule.ID, start),
			Rule:     m.Rule.ID,
			Message:  m.Message,
			Severity: severityFor(m.Rule.IssueType),
			Start:    start,
			End:      end,
		})
	}
	return issues, nil
}

func severityFor(issueType string) model.Severity {
	t := strings.ToLower(issueType)
	switch {
	case strings.Contains(t, "misspelling"), strings.Contains(t, "typographical"):
		return model.SeverityWarning
	case strings.Contains(t, "grammar"):
		return model.SeverityError
	case strings.Contains(t, "punctuation"):
		return model.SeverityWarning
	default:
		return model.SeverityInfo
	}
}

// runeToByteOffsets maps each rune index of doc to its byte offset, with a
// final entry for the end of the document.
func runeToByteOffsets(doc string) []int {
	offsets := make([]int, 0, utf8.RuneCountInString(doc)+1)
	for i := range doc {
		offsets = append(offsets, i)
	}
	return append(offsets, len(doc))
}
