// Package registry holds the process-wide, read-only-after-init list of
// virtual displays handed to every session at open. It needs no lock: once
// built it is never mutated.
package registry

import "github.com/drawfs/drawfs/internal/protocol/draw/wire"

// Display is a read-only display descriptor exposed to sessions.
type Display struct {
	ID         uint32
	Width      uint32
	Height     uint32
	RefreshMHz uint32
	Flags      uint32
}

// Registry is an immutable collection of displays, keyed by id.
type Registry struct {
	displays []Display
	byID     map[uint32]Display
}

// New builds a Registry from the given displays. The caller must supply at
// least one display with id 1.
func New(displays []Display) *Registry {
	byID := make(map[uint32]Display, len(displays))
	cp := make([]Display, len(displays))
	copy(cp, displays)
	for _, d := range cp {
		byID[d.ID] = d
	}
	return &Registry{displays: cp, byID: byID}
}

// Default returns a Registry exposing exactly one 1920x1080@60 display
// with id 1, used when no explicit registry configuration is supplied.
func Default() *Registry {
	return New([]Display{
		{ID: 1, Width: 1920, Height: 1080, RefreshMHz: 60000, Flags: 0},
	})
}

// List returns every display known to the registry, in the order originally
// supplied.
func (r *Registry) List() []Display {
	out := make([]Display, len(r.displays))
	copy(out, r.displays)
	return out
}

// Get returns the display with the given id, or false if none exists.
func (r *Registry) Get(id uint32) (Display, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// ListReply builds the RPL_DISPLAY_LIST payload for this registry's displays.
func (r *Registry) ListReply() []byte {
	infos := make([]wire.DisplayInfo, len(r.displays))
	for i, d := range r.displays {
		infos[i] = wire.DisplayInfo{
			ID: d.ID, Width: d.Width, Height: d.Height,
			RefreshMHz: d.RefreshMHz, Flags: d.Flags,
		}
	}
	return wire.EncodeDisplayListReply(infos)
}
