package resource

import "fmt"

// persistentBit marks a handle as belonging to the persistent arena.
// Keeping the two namespaces disjoint in the index itself means a handle
// can never be looked up against the wrong arena.
const persistentBit uint32 = 1 << 31

// Handle identifies a resource in a Table without granting ownership.
// It is a plain comparable value: copy it freely, store it in recorded
// pass work, use it as a map key. The zero value is Nil and never valid.
type Handle struct {
	index uint32
	gen   uint32
}

// Nil is the invalid handle.
var Nil Handle

// IsValid reports whether h could ever resolve (it is not Nil).
// It does not check the table; use Table.Contains for liveness.
func (h Handle) IsValid() bool {
	return h.gen != 0
}

// IsPersistent reports whether h references the persistent arena.
func (h Handle) IsPersistent() bool {
	return h.index&persistentBit != 0
}

// String returns a compact debug representation.
func (h Handle) String() string {
	if !h.IsValid() {
		return "handle(nil)"
	}
	if h.IsPersistent() {
		return fmt.Sprintf("handle(p%d@%d)", h.index&^persistentBit, h.gen)
	}
	return fmt.Sprintf("handle(t%d@%d)", h.index, h.gen)
}

// slotIndex strips the namespace bit.
func (h Handle) slotIndex() uint32 {
	return h.index &^ persistentBit
}
