package packfile

import (
	"sort"

	"github.com/gitforge/forge/plumbing"
	"github.com/gitforge/forge/plumbing/storer"
)

// maxDepth is the maximum length of a delta chain the selector will
// produce.
const maxDepth = 50

// deltaSelector picks delta bases for a set of objects before they are
// written into a packfile, trading pack size for the CPU cost of running a
// diff between every pair of candidates.
type deltaSelector struct {
	storer storer.EncodedObjectStorer
}

// newDeltaSelector returns a deltaSelector that resolves object content
// from storer.
func newDeltaSelector(s storer.EncodedObjectStorer) *deltaSelector {
	return &deltaSelector{storer: s}
}

// ObjectsToPack resolves hashes into ObjectToPack values and, if
// packWindow is greater than zero, deltifies them against the best base
// found within a sliding window of packWindow candidates.
func (dw *deltaSelector) ObjectsToPack(hashes []plumbing.Hash, packWindow uint) ([]*ObjectToPack, error) {
	otp, err := dw.objectsToPack(hashes, packWindow)
	if err != nil {
		return nil, err
	}

	if packWindow == 0 {
		return otp, nil
	}

	dw.sort(otp)

	if err := dw.walk(otp, packWindow); err != nil {
		return nil, err
	}

	return otp, nil
}

// objectsToPack resolves hashes into ObjectToPack values, in input order,
// without sorting or attempting any delta.
func (dw *deltaSelector) objectsToPack(hashes []plumbing.Hash, _ uint) ([]*ObjectToPack, error) {
	otp := make([]*ObjectToPack, 0, len(hashes))
	for _, h := range hashes {
		o, err := dw.storer.EncodedObject(plumbing.AnyObject, h)
		if err != nil {
			return nil, err
		}

		otp = append(otp, newObjectToPack(o))
	}

	return otp, nil
}

// sort orders objects by type, then by size within a type, largest
// first, so objects likely to delta well end up next to each other.
func (dw *deltaSelector) sort(objectsToPack []*ObjectToPack) {
	sort.Stable(byTypeAndSize(objectsToPack))
}

type byTypeAndSize []*ObjectToPack

func (s byTypeAndSize) Len() int      { return len(s) }
func (s byTypeAndSize) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s byTypeAndSize) Less(i, j int) bool {
	if s[i].Type() != s[j].Type() {
		return s[i].Type() > s[j].Type()
	}

	return s[i].Size() > s[j].Size()
}

// walk slides a window of up to packWindow previously visited objects over
// the list, trying every candidate in the window as a delta base for each
// object and keeping the smallest resulting delta.
func (dw *deltaSelector) walk(objectsToPack []*ObjectToPack, packWindow uint) error {
	for i, target := range objectsToPack {
		win := i - int(packWindow)
		if win < 0 {
			win = 0
		}

		for j := i - 1; j >= win; j-- {
			base := objectsToPack[j]
			if base.Type() != target.Type() {
				continue
			}

			if err := dw.tryToDeltify(base, target); err != nil {
				return err
			}
		}
	}

	return nil
}

// tryToDeltify computes a delta of target against base and, if it is
// smaller than target's current best encoding and within the size limit
// for target's depth, installs it as target's new delta.
func (dw *deltaSelector) tryToDeltify(base, target *ObjectToPack) error {
	if base.Original == nil || target.Original == nil {
		return nil
	}

	msz := dw.deltaSizeLimit(target.Original.Size(), base.Original.Size(), target.Depth, target.IsDelta())
	if msz <= 0 {
		return nil
	}

	delta, err := GetDelta(base.Original, target.Original)
	if err != nil {
		return err
	}

	if int64(len(delta)) > msz {
		return nil
	}

	if target.IsDelta() && int64(len(delta)) >= target.Object.Size() {
		return nil
	}

	deltaObject := &plumbing.MemoryObject{}
	if _, err := deltaObject.Write(delta); err != nil {
		return err
	}
	deltaObject.SetSize(int64(len(delta)))

	target.SetDelta(base, deltaObject)

	return nil
}

// deltaSizeLimit returns the largest a delta is allowed to be for it to be
// worth keeping. It returns 0 when no delta should be attempted at all:
// past maxDepth, or for targets too small to benefit from deltifying.
func (dw *deltaSelector) deltaSizeLimit(targetSize, baseSize int64, depth int, hasBestDelta bool) int64 {
	if depth >= maxDepth {
		return 0
	}

	if !hasBestDelta {
		if targetSize < 64 {
			return 0
		}

		return targetSize/2 - 20
	}

	limit := targetSize / 2
	if baseSize < limit {
		limit = baseSize
	}

	return limit
}
