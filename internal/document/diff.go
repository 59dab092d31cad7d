package document

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Diff returns the changes that turn oldText into newText, computed line by
// line. Changes are ordered from the end of the document to the start, so
// applying them in order with Apply (or folding their deltas) never moves a
// change that is still pending.
func Diff(oldText, newText string) []Change {
	if oldText == newText {
		return nil
	}
	a := strings.SplitAfter(oldText, "\n")
	b := strings.SplitAfter(newText, "\n")

	aStart := offsets(a)
	m := difflib.NewMatcher(a, b)
	ops := m.GetOpCodes()

	var changes []Change
	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		if op.Tag == 'e' {
			continue
		}
		changes = append(changes, Change{
			Start:  aStart[op.I1],
			Length: aStart[op.I2] - aStart[op.I1],
			Text:   strings.Join(b[op.J1:op.J2], ""),
		})
	}
	return changes
}

// offsets returns the start offset of each line plus the total length.
func offsets(lines []string) []int {
	out := make([]int, len(lines)+1)
	for i, l := range lines {
		out[i+1] = out[i] + len(l)
	}
	return out
}
