// Package anchor reconciles tracked document offsets against text edits.
//
// An anchor is the offset of the end of a tracked line. Every edit either
// leaves it alone, shifts it by the edit's length difference, or invalidates
// it because the edit touched the line it pointed to.
package anchor

// Unknown marks an offset that cannot be trusted: it was never resynced
// against a document snapshot, or an edit invalidated it.
const Unknown = -1

// EditDelta describes one atomic text replacement in flat offset space.
type EditDelta struct {
	Start     int // offset where the replaced range begins
	OldLength int // length of the replaced range before the edit
	NewLength int // length of the inserted text
}

// Valid reports whether the delta describes a replacement that can exist.
func (d EditDelta) Valid() bool {
	return d.Start >= 0 && d.OldLength >= 0 && d.NewLength >= 0
}

// OldEnd is the end of the replaced range before the edit.
func (d EditDelta) OldEnd() int { return d.Start + d.OldLength }

// NewEnd is the end of the inserted range after the edit.
func (d EditDelta) NewEnd() int { return d.Start + d.NewLength }

// Shift is the change in document length caused by the edit.
func (d EditDelta) Shift() int { return d.NewLength - d.OldLength }

// Reconcile returns the position of offset after d is applied, or Unknown
// when the edit invalidates it. The replaced range is inclusive at both
// ends: an edit that starts or ends exactly on the anchor invalidates it.
func Reconcile(offset int, d EditDelta) int {
	if offset < 0 || !d.Valid() {
		return Unknown
	}
	switch {
	case offset < d.Start:
		return offset
	case offset <= d.OldEnd():
		return Unknown
	default:
		return offset + d.Shift()
	}
}

// ReconcileAll folds Reconcile over a batch of deltas in order, each delta
// applying to the result of the previous one. Once a delta invalidates the
// anchor the whole batch does.
func ReconcileAll(offset int, deltas []EditDelta) int {
	for _, d := range deltas {
		offset = Reconcile(offset, d)
		if offset == Unknown {
			return Unknown
		}
	}
	return offset
}
