package surface

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// PixelRegion is an independently reference-counted pixel buffer backed by
// an anonymous memfd, mapped MAP_SHARED into this process. The SurfaceTable
// holds one reference for as long as the surface exists; each active client
// memory mapping holds another, acquired through the device facade's mmap
// path and released on unmap. Every mapping of the region — the server's
// own data slice and every duped fd handed to a client — aliases the same
// physical pages, so a write through any mapping is visible to all others.
// The region is freed only when the last reference drops, so a live mapping
// outlives a destroyed surface's table entry with no back-pointer from the
// region to the table.
type PixelRegion struct {
	fd   int
	data []byte
	refs atomic.Int32
}

// newPixelRegion creates an anonymous memfd sized to exactly size bytes,
// mmaps it MAP_SHARED into this process, and returns a region with one
// reference held by the caller (the SurfaceTable). The memfd is named after
// the owning surface for debuggability (visible under /proc/self/fd).
func newPixelRegion(surfaceID uint32, size uint32) (*PixelRegion, error) {
	name := fmt.Sprintf("drawfs-surface-%d", surfaceID)
	fd, err := unix.MemfdCreate(name, 0)
	if err != nil {
		return nil, fmt.Errorf("surface: memfd_create: %w", err)
	}

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("surface: ftruncate: %w", err)
	}

	var data []byte
	if size > 0 {
		data, err = unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("surface: mmap: %w", err)
		}
	}

	r := &PixelRegion{fd: fd, data: data}
	r.refs.Store(1)
	return r, nil
}

// Ref acquires an additional reference and returns the region, for use by
// a newly established client mapping.
func (r *PixelRegion) Ref() *PixelRegion {
	r.refs.Add(1)
	return r
}

// Unref releases a reference. The backing mapping and memfd are torn down
// once the last reference is released.
func (r *PixelRegion) Unref() {
	if r.refs.Add(-1) <= 0 {
		if r.data != nil {
			_ = unix.Munmap(r.data)
			r.data = nil
		}
		unix.Close(r.fd)
	}
}

// Bytes returns the underlying pixel buffer, mapped into this process. It
// remains valid as long as the caller holds a reference.
func (r *PixelRegion) Bytes() []byte {
	return r.data
}

// DupFD returns a new descriptor referring to the same memfd, suitable for
// handing off to a client via SCM_RIGHTS. Each call yields an independent
// descriptor over identical physical pages: the client's mmap of it and the
// server's own data slice alias the same memory, so writes through either
// are immediately visible to the other.
func (r *PixelRegion) DupFD() (int, error) {
	fd, err := unix.Dup(r.fd)
	if err != nil {
		return -1, fmt.Errorf("surface: dup: %w", err)
	}
	return fd, nil
}
