package diff

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/roach88/promote/internal/ir"
)

// ContentDiff renders a line diff between two flow versions for review.
// Lines are prefixed "+ ", "- " or "  ". Equal versions produce only context.
func ContentDiff(oldVersion, newVersion ir.FlowVersion) (string, error) {
	before, err := reviewText(oldVersion)
	if err != nil {
		return "", fmt.Errorf("render old version: %w", err)
	}
	after, err := reviewText(newVersion)
	if err != nil {
		return "", fmt.Errorf("render new version: %w", err)
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		}
		for _, line := range strings.Split(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}
	return sb.String(), nil
}

// reviewText is the indented JSON form of a version. Object keys are sorted
// so that unchanged content lines up.
func reviewText(v ir.FlowVersion) (string, error) {
	out, err := json.MarshalIndent(v.Normalize(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(out) + "\n", nil
}
