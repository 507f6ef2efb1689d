// Package surface implements the per-session SurfaceTable and
// MapSelector: bounded allocation of pixel-backed surfaces, and the
// single-slot bridge between the MAP_SURFACE control operation and the
// device's memory-mapping entry point.
package surface

import (
	"golang.org/x/exp/slices"

	"github.com/drawfs/drawfs/internal/protocol/draw/protoerr"
	"github.com/drawfs/drawfs/internal/protocol/draw/wire"
)

// Surface is a named, sized pixel buffer owned by a session.
type Surface struct {
	ID     uint32
	Width  uint32
	Height uint32
	Format uint32
	Stride uint32
	Total  uint32

	Pixels *PixelRegion
}

// Limits bounds a SurfaceTable's capacity.
type Limits struct {
	MaxSurfaces     int
	MaxSurfaceBytes uint64
}

// DefaultLimits returns conservative default capacity limits.
func DefaultLimits() Limits {
	return Limits{
		MaxSurfaces:     256,
		MaxSurfaceBytes: 64 * 1024 * 1024,
	}
}

// Table is a bounded per-session map from surface id to Surface. Ids are
// assigned 1, 2, 3, ... monotonically and are never reused within a session,
// even after a destroy.
type Table struct {
	limits Limits
	nextID uint32
	byID   map[uint32]*Surface
}

// NewTable creates an empty surface table bounded by limits.
func NewTable(limits Limits) *Table {
	return &Table{
		limits: limits,
		nextID: 1,
		byID:   make(map[uint32]*Surface),
	}
}

// Create allocates a new zero-filled surface of the given dimensions and
// format, assigning it the next monotonic id.
//
// Returns protoerr.ErrTooLarge if the pixel buffer would exceed
// MaxSurfaceBytes (including on arithmetic overflow of width*height*4), or
// protoerr.ErrNoSpace if the table is already at capacity. Format
// acceptability is the caller's responsibility (only XRGB8888 is valid) since
// it is a protocol-capability check, not a table-capacity one.
func (t *Table) Create(width, height, format, flags uint32) (*Surface, error) {
	if len(t.byID) >= t.limits.MaxSurfaces {
		return nil, protoerr.ErrNoSpace
	}

	stride := uint64(width) * 4
	if height > 0 && stride > t.limits.MaxSurfaceBytes/uint64(height) {
		return nil, protoerr.ErrTooLarge
	}
	total := stride * uint64(height)
	if total > t.limits.MaxSurfaceBytes || total > uint64(^uint32(0)) {
		return nil, protoerr.ErrTooLarge
	}

	pixels, err := newPixelRegion(t.nextID, uint32(total))
	if err != nil {
		return nil, err
	}

	s := &Surface{
		ID:     t.nextID,
		Width:  width,
		Height: height,
		Format: format,
		Stride: uint32(stride),
		Total:  uint32(total),
		Pixels: pixels,
	}
	t.byID[s.ID] = s
	t.nextID++
	return s, nil
}

// Get looks up a surface by id.
func (t *Table) Get(sid uint32) (*Surface, bool) {
	s, ok := t.byID[sid]
	return s, ok
}

// Destroy removes a surface from the table and releases the table's
// reference on its pixel memory. Returns protoerr.ErrNotFound if sid is not
// present.
func (t *Table) Destroy(sid uint32) error {
	s, ok := t.byID[sid]
	if !ok {
		return protoerr.ErrNotFound
	}
	delete(t.byID, sid)
	s.Pixels.Unref()
	return nil
}

// Len returns the number of live surfaces.
func (t *Table) Len() int {
	return len(t.byID)
}

// IDs returns every live surface id in ascending order; Session.Close walks
// it to destroy every surface in a deterministic order.
func (t *Table) IDs() []uint32 {
	ids := make([]uint32, 0, len(t.byID))
	for id := range t.byID {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// CreateReply builds the RPL_SURFACE_CREATE payload for a successful create.
func CreateReply(s *Surface) wire.SurfaceCreateReply {
	return wire.SurfaceCreateReply{Status: protoerr.OK, SID: s.ID, Stride: s.Stride, Total: s.Total}
}
