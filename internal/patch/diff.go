package patch

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff file headers shown to reviewers.
const (
	diffFromFile = "doc_before.md"
	diffToFile   = "doc_after.md"
)

// UnifiedDiff renders a line-based unified diff between the original and
// updated document. Presentation only; it plays no part in the replacement
// correctness contract.
func UnifiedDiff(old, updated string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(old),
		B:        difflib.SplitLines(updated),
		FromFile: diffFromFile,
		ToFile:   diffToFile,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("render unified diff: %w", err)
	}
	return text, nil
}
