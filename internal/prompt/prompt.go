// Package prompt builds the generation prompt for the review pipeline.
package prompt

import (
	"encoding/json"
	"strings"

	"github.com/metalagman/docqa/internal/model"
)

// Options adjusts the prompt for the current attempt.
type Options struct {
	// AllowCodeEdits switches the fenced-code policy block.
	AllowCodeEdits bool
	// Feedback carries the previous attempt's failure reason, if any.
	Feedback string
	// LintIssues are advisory findings included for duplicate suppression.
	LintIssues []model.LintIssue
}

// Build assembles the instruction prompt for one generation attempt. The
// closing </json> tag is deliberately omitted: generation is expected to
// stop on it as a stop sequence.
func Build(doc string, opts Options) string {
	var b strings.Builder

	b.WriteString("You are a precise documentation quality reviewer for software engineers.\n")
	b.WriteString("Input is a Markdown document. Identify writing issues and suggest concise fixes.\n\n")

	if opts.AllowCodeEdits {
		b.WriteString("You MAY propose changes inside fenced code blocks (``` … ```):\n")
		b.WriteString("- Keep code correct; prefer minimal, surgical edits.\n")
		b.WriteString("- Add concise, self-explanatory comments where helpful.\n")
		b.WriteString("- If the fence lacks a language label, propose one (e.g., ```py).\n")
		b.WriteString("- Fix obvious formatting issues (indentation, spacing, line breaks).\n")
	} else {
		b.WriteString("DO NOT propose changes inside fenced code blocks (``` … ```).\n")
	}

	b.WriteString("DO NOT propose changes inside:\n")
	b.WriteString("- inline code (`code`),\n")
	b.WriteString("- or URLs.\n\n")
	b.WriteString("When proposing replacements, keep surrounding Markdown intact.\n")
	b.WriteString("Also improve Markdown structure when helpful: headings, bold/italic emphasis, lists, and code-fence language labels.\n\n")
	b.WriteString("Return ONLY a JSON object inside <json>…</json> matching this TypeScript schema:\n\n")
	b.WriteString("type Severity = \"info\" | \"warning\" | \"error\";\n")
	b.WriteString("type Issue = {\n")
	b.WriteString("  id: string;\n")
	b.WriteString("  rule: string;\n")
	b.WriteString("  message: string;\n")
	b.WriteString("  severity: Severity;\n")
	b.WriteString("  replace_text: string;\n")
	b.WriteString("  replace_with: string;\n")
	b.WriteString("  replacement?: string;\n")
	b.WriteString("  replacements?: { label: string; text: string }[];\n")
	b.WriteString("};\n")
	b.WriteString("type ReviewResponse = { version: string; issues: Issue[] };\n\n")
	b.WriteString("Guidelines:\n")
	b.WriteString("- Prefer clear and direct wording over hedging (e.g., very, just, simply, actually, obviously, clearly).\n")
	b.WriteString("- Prefer simple words (e.g., 'use' over 'utilize').\n")
	b.WriteString("- Avoid fluff/filler.\n")
	b.WriteString("- Optional: grammar/clarity fixes when safe.\n")
	b.WriteString("- Be conservative; avoid risky rewrites.\n")

	if opts.Feedback != "" {
		b.WriteString("\nThe previous attempt was malformed and could not be applied.\n")
		b.WriteString("Reason: ")
		b.WriteString(opts.Feedback)
		b.WriteString("\n\n")
		b.WriteString("Regenerate and return ONLY a valid JSON object within <json>…</json> that follows the schema exactly.\n")
		b.WriteString("Ensure for each issue that:\n")
		b.WriteString("- replace_text matches exactly one occurrence outside fenced code blocks, inline code, and URLs;\n")
		b.WriteString("- replace_with is provided;\n")
		b.WriteString("- do not include any extra commentary outside <json>…</json>.\n")
	}

	if len(opts.LintIssues) > 0 {
		lintJSON, err := json.Marshal(opts.LintIssues)
		if err == nil {
			b.WriteString("\n<lint>\n")
			b.Write(lintJSON)
			b.WriteString("\n</lint>\n\n")
			b.WriteString("Do NOT duplicate issues already present in <lint>. Prefer to complement them with structural and clarity improvements.\n")
		}
	}

	b.WriteString("\n<doc>\n")
	b.WriteString(doc)
	b.WriteString("\n</doc>\n\n<json>\n")
	return b.String()
}
