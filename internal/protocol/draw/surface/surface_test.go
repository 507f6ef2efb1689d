package surface

import (
	"errors"
	"testing"

	"github.com/drawfs/drawfs/internal/protocol/draw/protoerr"
)

func TestTable_CreateAssignsMonotonicIDs(t *testing.T) {
	tbl := NewTable(DefaultLimits())

	s1, err := tbl.Create(320, 240, 1, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s1.ID != 1 {
		t.Fatalf("first surface id = %d, want 1", s1.ID)
	}

	s2, err := tbl.Create(64, 64, 1, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s2.ID != 2 {
		t.Fatalf("second surface id = %d, want 2", s2.ID)
	}

	if err := tbl.Destroy(s1.ID); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	s3, err := tbl.Create(1, 1, 1, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s3.ID != 3 {
		t.Fatalf("id after destroy = %d, want 3 (ids are never reused)", s3.ID)
	}
}

func TestTable_CreateStrideAndTotal(t *testing.T) {
	tbl := NewTable(DefaultLimits())

	s, err := tbl.Create(320, 240, 1, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.Stride != 1280 {
		t.Fatalf("Stride = %d, want 1280", s.Stride)
	}
	if s.Total != 307200 {
		t.Fatalf("Total = %d, want 307200", s.Total)
	}
	if len(s.Pixels.Bytes()) != int(s.Total) {
		t.Fatalf("pixel buffer length = %d, want %d", len(s.Pixels.Bytes()), s.Total)
	}
	for _, b := range s.Pixels.Bytes() {
		if b != 0 {
			t.Fatal("newly created surface must be zero-filled")
		}
	}
}

func TestTable_CreateTooLarge(t *testing.T) {
	tbl := NewTable(Limits{MaxSurfaces: 8, MaxSurfaceBytes: 1024})

	_, err := tbl.Create(4096, 4097, 1, 0)
	if !errors.Is(err, protoerr.ErrTooLarge) {
		t.Fatalf("Create oversized surface: err = %v, want ErrTooLarge", err)
	}
}

func TestTable_CreateOverflowingDimensionsRejected(t *testing.T) {
	tbl := NewTable(Limits{MaxSurfaces: 8, MaxSurfaceBytes: 1024})

	// width*4*height overflows uint64 for these dimensions (real product is
	// exactly 2^64, which wraps to 0), which must not wrap around to a small
	// value that slips past the MaxSurfaceBytes bound.
	const huge = 1 << 31
	_, err := tbl.Create(huge, huge, 1, 0)
	if !errors.Is(err, protoerr.ErrTooLarge) {
		t.Fatalf("Create with overflowing dimensions: err = %v, want ErrTooLarge", err)
	}
}

func TestTable_CreateNoSpace(t *testing.T) {
	tbl := NewTable(Limits{MaxSurfaces: 1, MaxSurfaceBytes: DefaultLimits().MaxSurfaceBytes})

	if _, err := tbl.Create(1, 1, 1, 0); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := tbl.Create(1, 1, 1, 0); !errors.Is(err, protoerr.ErrNoSpace) {
		t.Fatalf("second Create: err = %v, want ErrNoSpace", err)
	}
}

func TestTable_DestroyNotFound(t *testing.T) {
	tbl := NewTable(DefaultLimits())
	if err := tbl.Destroy(999); !errors.Is(err, protoerr.ErrNotFound) {
		t.Fatalf("Destroy unknown id: err = %v, want ErrNotFound", err)
	}
}

func TestTable_IDsSortedAndLen(t *testing.T) {
	tbl := NewTable(DefaultLimits())
	for i := 0; i < 5; i++ {
		if _, err := tbl.Create(1, 1, 1, 0); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if tbl.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", tbl.Len())
	}

	if err := tbl.Destroy(3); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	ids := tbl.IDs()
	want := []uint32{1, 2, 4, 5}
	if len(ids) != len(want) {
		t.Fatalf("IDs() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("IDs() = %v, want %v", ids, want)
		}
	}
}

func TestCreateReply(t *testing.T) {
	tbl := NewTable(DefaultLimits())
	s, err := tbl.Create(320, 240, 1, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	reply := CreateReply(s)
	if reply.Status != protoerr.OK || reply.SID != s.ID || reply.Stride != s.Stride || reply.Total != s.Total {
		t.Fatalf("CreateReply = %+v, want fields matching %+v", reply, s)
	}
}

func TestMapSelector(t *testing.T) {
	var m MapSelector

	if _, ok := m.Selected(); ok {
		t.Fatal("fresh MapSelector should not be armed")
	}

	m.Arm(7)
	sid, ok := m.Selected()
	if !ok || sid != 7 {
		t.Fatalf("Selected() = %d, %v, want 7, true", sid, ok)
	}

	m.ClearIfSelected(8)
	if _, ok := m.Selected(); !ok {
		t.Fatal("ClearIfSelected with mismatched id must not disarm")
	}

	m.ClearIfSelected(7)
	if _, ok := m.Selected(); ok {
		t.Fatal("ClearIfSelected with matching id must disarm")
	}

	m.Arm(9)
	m.Clear()
	if _, ok := m.Selected(); ok {
		t.Fatal("Clear must disarm unconditionally")
	}
}

func TestPixelRegion_RefCounting(t *testing.T) {
	tbl := NewTable(DefaultLimits())
	s, err := tbl.Create(4, 4, 1, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	mapped := s.Pixels.Ref()
	if len(mapped.Bytes()) != int(s.Total) {
		t.Fatalf("mapped region length = %d, want %d", len(mapped.Bytes()), s.Total)
	}

	if err := tbl.Destroy(s.ID); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	// The table's reference was released by Destroy, but the mapping's
	// reference keeps the region alive.
	if mapped.Bytes() == nil {
		t.Fatal("pixel region freed while a mapping still holds a reference")
	}

	mapped.Unref()
	if mapped.Bytes() != nil {
		t.Fatal("pixel region should be released once the last reference drops")
	}
}
