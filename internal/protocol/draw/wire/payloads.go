package wire

import (
	"encoding/binary"
	"fmt"
)

// HelloReq is the REQ_HELLO payload: u16 major, u16 minor, u32 flags, u32 max_reply.
type HelloReq struct {
	Major    uint16
	Minor    uint16
	Flags    uint32
	MaxReply uint32
}

func (r HelloReq) Encode() []byte {
	p := make([]byte, 12)
	binary.LittleEndian.PutUint16(p[0:2], r.Major)
	binary.LittleEndian.PutUint16(p[2:4], r.Minor)
	binary.LittleEndian.PutUint32(p[4:8], r.Flags)
	binary.LittleEndian.PutUint32(p[8:12], r.MaxReply)
	return p
}

func DecodeHelloReq(p []byte) (HelloReq, error) {
	if len(p) < 12 {
		return HelloReq{}, fmt.Errorf("wire: REQ_HELLO payload too short: %d bytes", len(p))
	}
	return HelloReq{
		Major:    binary.LittleEndian.Uint16(p[0:2]),
		Minor:    binary.LittleEndian.Uint16(p[2:4]),
		Flags:    binary.LittleEndian.Uint32(p[4:8]),
		MaxReply: binary.LittleEndian.Uint32(p[8:12]),
	}, nil
}

// DisplayOpenReq is the REQ_DISPLAY_OPEN payload: u32 display_id.
type DisplayOpenReq struct {
	DisplayID uint32
}

func (r DisplayOpenReq) Encode() []byte {
	p := make([]byte, 4)
	binary.LittleEndian.PutUint32(p[0:4], r.DisplayID)
	return p
}

func DecodeDisplayOpenReq(p []byte) (DisplayOpenReq, error) {
	if len(p) < 4 {
		return DisplayOpenReq{}, fmt.Errorf("wire: REQ_DISPLAY_OPEN payload too short: %d bytes", len(p))
	}
	return DisplayOpenReq{DisplayID: binary.LittleEndian.Uint32(p[0:4])}, nil
}

// SurfaceCreateReq is the REQ_SURFACE_CREATE payload: u32 w, u32 h, u32 fmt, u32 flags.
type SurfaceCreateReq struct {
	Width  uint32
	Height uint32
	Format uint32
	Flags  uint32
}

func (r SurfaceCreateReq) Encode() []byte {
	p := make([]byte, 16)
	binary.LittleEndian.PutUint32(p[0:4], r.Width)
	binary.LittleEndian.PutUint32(p[4:8], r.Height)
	binary.LittleEndian.PutUint32(p[8:12], r.Format)
	binary.LittleEndian.PutUint32(p[12:16], r.Flags)
	return p
}

func DecodeSurfaceCreateReq(p []byte) (SurfaceCreateReq, error) {
	if len(p) < 16 {
		return SurfaceCreateReq{}, fmt.Errorf("wire: REQ_SURFACE_CREATE payload too short: %d bytes", len(p))
	}
	return SurfaceCreateReq{
		Width:  binary.LittleEndian.Uint32(p[0:4]),
		Height: binary.LittleEndian.Uint32(p[4:8]),
		Format: binary.LittleEndian.Uint32(p[8:12]),
		Flags:  binary.LittleEndian.Uint32(p[12:16]),
	}, nil
}

// SurfaceDestroyReq is the REQ_SURFACE_DESTROY payload: u32 sid.
type SurfaceDestroyReq struct {
	SID uint32
}

func (r SurfaceDestroyReq) Encode() []byte {
	p := make([]byte, 4)
	binary.LittleEndian.PutUint32(p[0:4], r.SID)
	return p
}

func DecodeSurfaceDestroyReq(p []byte) (SurfaceDestroyReq, error) {
	if len(p) < 4 {
		return SurfaceDestroyReq{}, fmt.Errorf("wire: REQ_SURFACE_DESTROY payload too short: %d bytes", len(p))
	}
	return SurfaceDestroyReq{SID: binary.LittleEndian.Uint32(p[0:4])}, nil
}

// SurfacePresentReq is the REQ_SURFACE_PRESENT payload: u32 sid, u32 flags, u64 cookie.
type SurfacePresentReq struct {
	SID    uint32
	Flags  uint32
	Cookie uint64
}

func (r SurfacePresentReq) Encode() []byte {
	p := make([]byte, 16)
	binary.LittleEndian.PutUint32(p[0:4], r.SID)
	binary.LittleEndian.PutUint32(p[4:8], r.Flags)
	binary.LittleEndian.PutUint64(p[8:16], r.Cookie)
	return p
}

func DecodeSurfacePresentReq(p []byte) (SurfacePresentReq, error) {
	if len(p) < 16 {
		return SurfacePresentReq{}, fmt.Errorf("wire: REQ_SURFACE_PRESENT payload too short: %d bytes", len(p))
	}
	return SurfacePresentReq{
		SID:    binary.LittleEndian.Uint32(p[0:4]),
		Flags:  binary.LittleEndian.Uint32(p[4:8]),
		Cookie: binary.LittleEndian.Uint64(p[8:16]),
	}, nil
}

// HelloReply is the RPL_HELLO payload: i32 status, u16 major, u16 minor,
// u32 flags, u32 max_reply. It doubles as the generic error reply for
// unknown message types, in which case only Status is meaningful.
type HelloReply struct {
	Status   int32
	Major    uint16
	Minor    uint16
	Flags    uint32
	MaxReply uint32
}

func (r HelloReply) Encode() []byte {
	p := make([]byte, 16)
	binary.LittleEndian.PutUint32(p[0:4], uint32(r.Status))
	binary.LittleEndian.PutUint16(p[4:6], r.Major)
	binary.LittleEndian.PutUint16(p[6:8], r.Minor)
	binary.LittleEndian.PutUint32(p[8:12], r.Flags)
	binary.LittleEndian.PutUint32(p[12:16], r.MaxReply)
	return p
}

func DecodeHelloReply(p []byte) (HelloReply, error) {
	if len(p) < 16 {
		return HelloReply{}, fmt.Errorf("wire: RPL_HELLO payload too short: %d bytes", len(p))
	}
	return HelloReply{
		Status:   int32(binary.LittleEndian.Uint32(p[0:4])),
		Major:    binary.LittleEndian.Uint16(p[4:6]),
		Minor:    binary.LittleEndian.Uint16(p[6:8]),
		Flags:    binary.LittleEndian.Uint32(p[8:12]),
		MaxReply: binary.LittleEndian.Uint32(p[12:16]),
	}, nil
}

// DisplayInfo is one entry of RPL_DISPLAY_LIST: u32 id, u32 w, u32 h, u32 refresh_mhz, u32 flags.
type DisplayInfo struct {
	ID         uint32
	Width      uint32
	Height     uint32
	RefreshMHz uint32
	Flags      uint32
}

// EncodeDisplayListReply builds the RPL_DISPLAY_LIST payload: u32 count
// followed by count DisplayInfo entries.
func EncodeDisplayListReply(displays []DisplayInfo) []byte {
	p := make([]byte, 4+20*len(displays))
	binary.LittleEndian.PutUint32(p[0:4], uint32(len(displays)))
	off := 4
	for _, d := range displays {
		binary.LittleEndian.PutUint32(p[off:off+4], d.ID)
		binary.LittleEndian.PutUint32(p[off+4:off+8], d.Width)
		binary.LittleEndian.PutUint32(p[off+8:off+12], d.Height)
		binary.LittleEndian.PutUint32(p[off+12:off+16], d.RefreshMHz)
		binary.LittleEndian.PutUint32(p[off+16:off+20], d.Flags)
		off += 20
	}
	return p
}

// DisplayOpenReply is the RPL_DISPLAY_OPEN payload: i32 status, u32 handle, u32 active_id.
type DisplayOpenReply struct {
	Status   int32
	Handle   uint32
	ActiveID uint32
}

func (r DisplayOpenReply) Encode() []byte {
	p := make([]byte, 12)
	binary.LittleEndian.PutUint32(p[0:4], uint32(r.Status))
	binary.LittleEndian.PutUint32(p[4:8], r.Handle)
	binary.LittleEndian.PutUint32(p[8:12], r.ActiveID)
	return p
}

func DecodeDisplayOpenReply(p []byte) (DisplayOpenReply, error) {
	if len(p) < 12 {
		return DisplayOpenReply{}, fmt.Errorf("wire: RPL_DISPLAY_OPEN payload too short: %d bytes", len(p))
	}
	return DisplayOpenReply{
		Status:   int32(binary.LittleEndian.Uint32(p[0:4])),
		Handle:   binary.LittleEndian.Uint32(p[4:8]),
		ActiveID: binary.LittleEndian.Uint32(p[8:12]),
	}, nil
}

// SurfaceCreateReply is the RPL_SURFACE_CREATE payload: i32 status, u32 sid,
// u32 stride, u32 total. It is also the shape of the MAP_SURFACE control reply.
type SurfaceCreateReply struct {
	Status int32
	SID    uint32
	Stride uint32
	Total  uint32
}

func (r SurfaceCreateReply) Encode() []byte {
	p := make([]byte, 16)
	binary.LittleEndian.PutUint32(p[0:4], uint32(r.Status))
	binary.LittleEndian.PutUint32(p[4:8], r.SID)
	binary.LittleEndian.PutUint32(p[8:12], r.Stride)
	binary.LittleEndian.PutUint32(p[12:16], r.Total)
	return p
}

func DecodeSurfaceCreateReply(p []byte) (SurfaceCreateReply, error) {
	if len(p) < 16 {
		return SurfaceCreateReply{}, fmt.Errorf("wire: SURFACE_CREATE-shaped reply too short: %d bytes", len(p))
	}
	return SurfaceCreateReply{
		Status: int32(binary.LittleEndian.Uint32(p[0:4])),
		SID:    binary.LittleEndian.Uint32(p[4:8]),
		Stride: binary.LittleEndian.Uint32(p[8:12]),
		Total:  binary.LittleEndian.Uint32(p[12:16]),
	}, nil
}

// SurfaceDestroyReply is the RPL_SURFACE_DESTROY payload: i32 status, u32 sid.
type SurfaceDestroyReply struct {
	Status int32
	SID    uint32
}

func (r SurfaceDestroyReply) Encode() []byte {
	p := make([]byte, 8)
	binary.LittleEndian.PutUint32(p[0:4], uint32(r.Status))
	binary.LittleEndian.PutUint32(p[4:8], r.SID)
	return p
}

func DecodeSurfaceDestroyReply(p []byte) (SurfaceDestroyReply, error) {
	if len(p) < 8 {
		return SurfaceDestroyReply{}, fmt.Errorf("wire: RPL_SURFACE_DESTROY payload too short: %d bytes", len(p))
	}
	return SurfaceDestroyReply{
		Status: int32(binary.LittleEndian.Uint32(p[0:4])),
		SID:    binary.LittleEndian.Uint32(p[4:8]),
	}, nil
}

// SurfacePresentReply is the RPL_SURFACE_PRESENT payload: i32 status, u32 sid, u64 cookie.
type SurfacePresentReply struct {
	Status int32
	SID    uint32
	Cookie uint64
}

func (r SurfacePresentReply) Encode() []byte {
	p := make([]byte, 16)
	binary.LittleEndian.PutUint32(p[0:4], uint32(r.Status))
	binary.LittleEndian.PutUint32(p[4:8], r.SID)
	binary.LittleEndian.PutUint64(p[8:16], r.Cookie)
	return p
}

func DecodeSurfacePresentReply(p []byte) (SurfacePresentReply, error) {
	if len(p) < 16 {
		return SurfacePresentReply{}, fmt.Errorf("wire: RPL_SURFACE_PRESENT payload too short: %d bytes", len(p))
	}
	return SurfacePresentReply{
		Status: int32(binary.LittleEndian.Uint32(p[0:4])),
		SID:    binary.LittleEndian.Uint32(p[4:8]),
		Cookie: binary.LittleEndian.Uint64(p[8:16]),
	}, nil
}

// MapSurfaceReq is the MAP_SURFACE control payload: u32 sid.
type MapSurfaceReq struct {
	SID uint32
}

func (r MapSurfaceReq) Encode() []byte {
	p := make([]byte, 4)
	binary.LittleEndian.PutUint32(p[0:4], r.SID)
	return p
}

func DecodeMapSurfaceReq(p []byte) (MapSurfaceReq, error) {
	if len(p) < 4 {
		return MapSurfaceReq{}, fmt.Errorf("wire: MAP_SURFACE payload too short: %d bytes", len(p))
	}
	return MapSurfaceReq{SID: binary.LittleEndian.Uint32(p[0:4])}, nil
}

// StatsReply is the RPL_STATS payload: nine u64 counters followed by two u32
// gauges, matching the STATS control operation's counter set.
type StatsReply struct {
	FramesReceived      uint64
	FramesProcessed     uint64
	FramesInvalid       uint64
	MessagesProcessed   uint64
	MessagesUnsupported uint64
	EventsEnqueued      uint64
	EventsDropped       uint64
	BytesIn             uint64
	BytesOut            uint64
	OutqDepth           uint32
	InbufBytes          uint32
}

func (r StatsReply) Encode() []byte {
	p := make([]byte, 80)
	binary.LittleEndian.PutUint64(p[0:8], r.FramesReceived)
	binary.LittleEndian.PutUint64(p[8:16], r.FramesProcessed)
	binary.LittleEndian.PutUint64(p[16:24], r.FramesInvalid)
	binary.LittleEndian.PutUint64(p[24:32], r.MessagesProcessed)
	binary.LittleEndian.PutUint64(p[32:40], r.MessagesUnsupported)
	binary.LittleEndian.PutUint64(p[40:48], r.EventsEnqueued)
	binary.LittleEndian.PutUint64(p[48:56], r.EventsDropped)
	binary.LittleEndian.PutUint64(p[56:64], r.BytesIn)
	binary.LittleEndian.PutUint64(p[64:72], r.BytesOut)
	binary.LittleEndian.PutUint32(p[72:76], r.OutqDepth)
	binary.LittleEndian.PutUint32(p[76:80], r.InbufBytes)
	return p
}

func DecodeStatsReply(p []byte) (StatsReply, error) {
	if len(p) < 80 {
		return StatsReply{}, fmt.Errorf("wire: RPL_STATS payload too short: %d bytes", len(p))
	}
	return StatsReply{
		FramesReceived:      binary.LittleEndian.Uint64(p[0:8]),
		FramesProcessed:     binary.LittleEndian.Uint64(p[8:16]),
		FramesInvalid:       binary.LittleEndian.Uint64(p[16:24]),
		MessagesProcessed:   binary.LittleEndian.Uint64(p[24:32]),
		MessagesUnsupported: binary.LittleEndian.Uint64(p[32:40]),
		EventsEnqueued:      binary.LittleEndian.Uint64(p[40:48]),
		EventsDropped:       binary.LittleEndian.Uint64(p[48:56]),
		BytesIn:             binary.LittleEndian.Uint64(p[56:64]),
		BytesOut:            binary.LittleEndian.Uint64(p[64:72]),
		OutqDepth:           binary.LittleEndian.Uint32(p[72:76]),
		InbufBytes:          binary.LittleEndian.Uint32(p[76:80]),
	}, nil
}

// SurfacePresentedEvent is the EVT_SURFACE_PRESENTED payload: u32 sid, u32 status, u64 cookie.
type SurfacePresentedEvent struct {
	SID    uint32
	Status uint32
	Cookie uint64
}

func (e SurfacePresentedEvent) Encode() []byte {
	p := make([]byte, 16)
	binary.LittleEndian.PutUint32(p[0:4], e.SID)
	binary.LittleEndian.PutUint32(p[4:8], e.Status)
	binary.LittleEndian.PutUint64(p[8:16], e.Cookie)
	return p
}

func DecodeSurfacePresentedEvent(p []byte) (SurfacePresentedEvent, error) {
	if len(p) < 16 {
		return SurfacePresentedEvent{}, fmt.Errorf("wire: EVT_SURFACE_PRESENTED payload too short: %d bytes", len(p))
	}
	return SurfacePresentedEvent{
		SID:    binary.LittleEndian.Uint32(p[0:4]),
		Status: binary.LittleEndian.Uint32(p[4:8]),
		Cookie: binary.LittleEndian.Uint64(p[8:16]),
	}, nil
}
