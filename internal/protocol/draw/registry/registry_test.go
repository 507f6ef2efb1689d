package registry

import (
	"encoding/binary"
	"testing"
)

func TestDefault(t *testing.T) {
	reg := Default()

	d, ok := reg.Get(1)
	if !ok {
		t.Fatal("Default() registry must expose display id 1")
	}
	if d.Width != 1920 || d.Height != 1080 || d.RefreshMHz != 60000 {
		t.Fatalf("default display = %+v, want 1920x1080@60000", d)
	}
}

func TestNew_ListPreservesOrder(t *testing.T) {
	reg := New([]Display{
		{ID: 1, Width: 1920, Height: 1080, RefreshMHz: 60000},
		{ID: 2, Width: 1280, Height: 720, RefreshMHz: 60000},
	})

	list := reg.List()
	if len(list) != 2 {
		t.Fatalf("List() length = %d, want 2", len(list))
	}
	if list[0].ID != 1 || list[1].ID != 2 {
		t.Fatalf("List() order = %+v, want ids [1 2]", list)
	}
}

func TestGet_Missing(t *testing.T) {
	reg := Default()
	if _, ok := reg.Get(999); ok {
		t.Fatal("Get(999) should report not found")
	}
}

func TestListReply_DecodesToSameDisplays(t *testing.T) {
	reg := New([]Display{
		{ID: 1, Width: 640, Height: 480, RefreshMHz: 60000},
		{ID: 2, Width: 800, Height: 600, RefreshMHz: 75000, Flags: 1},
	})

	payload := reg.ListReply()

	// RPL_DISPLAY_LIST: u32 count followed by count 20-byte entries.
	if len(payload) != 4+20*2 {
		t.Fatalf("ListReply() length = %d, want %d", len(payload), 4+20*2)
	}
	if n := binary.LittleEndian.Uint32(payload[0:4]); n != 2 {
		t.Fatalf("ListReply() count = %d, want 2", n)
	}
	for i, want := range reg.List() {
		off := 4 + 20*i
		got := Display{
			ID:         binary.LittleEndian.Uint32(payload[off:]),
			Width:      binary.LittleEndian.Uint32(payload[off+4:]),
			Height:     binary.LittleEndian.Uint32(payload[off+8:]),
			RefreshMHz: binary.LittleEndian.Uint32(payload[off+12:]),
			Flags:      binary.LittleEndian.Uint32(payload[off+16:]),
		}
		if got != want {
			t.Fatalf("ListReply() entry %d = %+v, want %+v", i, got, want)
		}
	}
}
