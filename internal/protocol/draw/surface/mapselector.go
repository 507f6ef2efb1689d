package surface

// MapSelector holds the "surface armed for the next memory mapping" slot
// for a single session. Surfaces cannot be identified by byte
// offset on the device connection because each session owns a disjoint id
// space, so MAP_SURFACE arms this slot and a subsequent mmap call consults
// it to resolve which surface's pixel buffer to map.
type MapSelector struct {
	sid    uint32
	active bool
}

// Arm records sid as the surface the next mmap call should bind to.
func (m *MapSelector) Arm(sid uint32) {
	m.sid = sid
	m.active = true
}

// Selected returns the armed surface id, if any.
func (m *MapSelector) Selected() (uint32, bool) {
	return m.sid, m.active
}

// Clear disarms the slot. Called when the armed surface is destroyed, so a
// stale id is never resolved by a later mmap.
func (m *MapSelector) Clear() {
	m.sid = 0
	m.active = false
}

// ClearIfSelected disarms the slot only if it currently points at sid, used
// by SURFACE_DESTROY.
func (m *MapSelector) ClearIfSelected(sid uint32) {
	if m.active && m.sid == sid {
		m.Clear()
	}
}
