package packfile

import (
	"github.com/gitforge/forge/plumbing"
)

// ObjectToPack is a wrapper over an object that is going to be written into
// a packfile. It can represent the object either in full (Object equal to
// Original) or as a delta against Base.
type ObjectToPack struct {
	// Object is what will actually be written to the pack: the full
	// object, or, once deltified, the encoded delta bytes.
	Object plumbing.EncodedObject
	// Original holds the object's real content. It is used to compute
	// deltas and may be released with CleanOriginal once it is no longer
	// needed, in which case Hash, Type and Size fall back to the values
	// cached by SetOriginal.
	Original plumbing.EncodedObject
	// Base is the delta base this object is encoded against, nil if
	// Object is not a delta.
	Base *ObjectToPack
	// Depth is the length of the delta chain ending at this object.
	Depth int

	// Offset is the position of this object in the pack being written,
	// valid once written is true.
	Offset int64

	written bool
	writing bool

	originalType plumbing.ObjectType
	originalHash plumbing.Hash
	originalSize int64
}

// newObjectToPack creates a non-delta ObjectToPack from a full object.
func newObjectToPack(o plumbing.EncodedObject) *ObjectToPack {
	return &ObjectToPack{
		Object:   o,
		Original: o,
	}
}

// newDeltaObjectToPack creates an ObjectToPack representing original as a
// delta against base, using the already-encoded delta bytes.
func newDeltaObjectToPack(base *ObjectToPack, original, delta plumbing.EncodedObject) *ObjectToPack {
	return &ObjectToPack{
		Object:   delta,
		Original: original,
		Base:     base,
		Depth:    base.Depth + 1,
	}
}

// IsDelta returns whether this object will be written as a delta.
func (o *ObjectToPack) IsDelta() bool {
	return o.Base != nil
}

// IsWritten returns whether this object has already been written to the
// pack.
func (o *ObjectToPack) IsWritten() bool {
	return o.written
}

// Type returns the object's real type, even after Original has been
// released with CleanOriginal.
func (o *ObjectToPack) Type() plumbing.ObjectType {
	if o.Original != nil {
		return o.Original.Type()
	}

	return o.originalType
}

// Size returns the object's real (undeltified) size, even after Original
// has been released with CleanOriginal.
func (o *ObjectToPack) Size() int64 {
	if o.Original != nil {
		return o.Original.Size()
	}

	return o.originalSize
}

// Hash returns the object's real hash, even after Original has been
// released with CleanOriginal.
func (o *ObjectToPack) Hash() plumbing.Hash {
	if o.Original != nil {
		return o.Original.Hash()
	}

	return o.originalHash
}

// SetOriginal replaces the full object content and caches its identity so
// it remains available after a later CleanOriginal call.
func (o *ObjectToPack) SetOriginal(obj plumbing.EncodedObject) {
	o.Original = obj
	if obj != nil {
		o.originalType = obj.Type()
		o.originalHash = obj.Hash()
		o.originalSize = obj.Size()
	}
}

// CleanOriginal releases the full object content to save memory. Type,
// Hash and Size remain available through the cache filled by SetOriginal.
func (o *ObjectToPack) CleanOriginal() {
	o.Original = nil
}

// SetDelta turns this object into a delta encoded against base.
func (o *ObjectToPack) SetDelta(base *ObjectToPack, delta plumbing.EncodedObject) {
	o.Base = base
	o.Object = delta
	o.Depth = base.Depth + 1
}

// BackToOriginal reverts a delta object back to being encoded in full,
// breaking its dependency on Base. It requires Original to still be set.
func (o *ObjectToPack) BackToOriginal() {
	if !o.IsDelta() {
		return
	}

	if o.Original != nil {
		o.Object = o.Original
	}
	o.Base = nil
	o.Depth = 0
}
