package wire

import (
	"encoding/binary"
	"errors"
)

// Decode errors. A framing error invalidates the remainder of the buffer:
// per design, the session does not attempt to resync mid-stream. ErrNeedMore
// is not a framing error — it signals the caller to retain the bytes and
// wait for more to arrive.
var (
	ErrNeedMore       = errors.New("wire: frame incomplete, need more bytes")
	ErrBadMagic       = errors.New("wire: bad frame magic")
	ErrBadVersion     = errors.New("wire: unsupported protocol version")
	ErrBadFrameLength = errors.New("wire: invalid frame length")
	ErrBadMsgLength   = errors.New("wire: invalid message length")
)

// DecodeFrame parses exactly one frame from the front of buf.
//
// On success it returns the decoded frame and the number of bytes consumed.
// If buf does not yet contain a complete frame, it returns ErrNeedMore and
// the caller must retain all of buf and retry once more bytes arrive — no
// partial frame is ever consumed. Any other error means the bytes at the
// front of buf are not a valid DrawFS frame; per design the whole buffer is
// considered unrecoverable and should be discarded by the caller (no
// resync is attempted within a session).
func DecodeFrame(buf []byte) (Frame, int, error) {
	if len(buf) < FrameHeaderSize {
		return Frame{}, 0, ErrNeedMore
	}

	fh := FrameHeader{
		Magic:       binary.LittleEndian.Uint32(buf[0:4]),
		Version:     binary.LittleEndian.Uint16(buf[4:6]),
		HeaderBytes: binary.LittleEndian.Uint16(buf[6:8]),
		FrameBytes:  binary.LittleEndian.Uint32(buf[8:12]),
		FrameID:     binary.LittleEndian.Uint32(buf[12:16]),
	}

	if fh.Magic != Magic {
		return Frame{}, 0, ErrBadMagic
	}
	if fh.Version != Version {
		return Frame{}, 0, ErrBadVersion
	}
	if int(fh.HeaderBytes) != FrameHeaderSize {
		return Frame{}, 0, ErrBadFrameLength
	}
	if int(fh.FrameBytes) < FrameHeaderSize {
		return Frame{}, 0, ErrBadFrameLength
	}
	if int(fh.FrameBytes)%4 != 0 {
		return Frame{}, 0, ErrBadFrameLength
	}
	if len(buf) < int(fh.FrameBytes) {
		return Frame{}, 0, ErrNeedMore
	}

	body := buf[FrameHeaderSize:fh.FrameBytes]
	msgs, err := decodeMessages(body)
	if err != nil {
		return Frame{}, 0, err
	}

	return Frame{Header: fh, Messages: msgs}, int(fh.FrameBytes), nil
}

// decodeMessages parses every message packed into a frame's body.
func decodeMessages(body []byte) ([]Message, error) {
	var msgs []Message
	off := 0
	for off < len(body) {
		remaining := body[off:]
		if len(remaining) < MsgHeaderSize {
			return nil, ErrBadMsgLength
		}

		mh := MsgHeader{
			Type:     binary.LittleEndian.Uint16(remaining[0:2]),
			Flags:    binary.LittleEndian.Uint16(remaining[2:4]),
			MsgBytes: binary.LittleEndian.Uint32(remaining[4:8]),
			MsgID:    binary.LittleEndian.Uint32(remaining[8:12]),
			Reserved: binary.LittleEndian.Uint32(remaining[12:16]),
		}

		if int(mh.MsgBytes) < MsgHeaderSize {
			return nil, ErrBadMsgLength
		}
		if int(mh.MsgBytes)%4 != 0 {
			return nil, ErrBadMsgLength
		}
		if int(mh.MsgBytes) > len(remaining) {
			return nil, ErrBadMsgLength
		}

		payloadLen := int(mh.MsgBytes) - MsgHeaderSize
		payload := make([]byte, payloadLen)
		copy(payload, remaining[MsgHeaderSize:MsgHeaderSize+payloadLen])

		msgs = append(msgs, Message{Header: mh, Payload: payload})
		off += int(mh.MsgBytes)
	}
	return msgs, nil
}

// EncodeMessage serializes a single message (header + padded payload).
func EncodeMessage(msgType uint16, msgID uint32, payload []byte) []byte {
	msgBytes := align4(MsgHeaderSize + len(payload))
	out := make([]byte, msgBytes)

	binary.LittleEndian.PutUint16(out[0:2], msgType)
	binary.LittleEndian.PutUint16(out[2:4], 0) // flags
	binary.LittleEndian.PutUint32(out[4:8], uint32(msgBytes))
	binary.LittleEndian.PutUint32(out[8:12], msgID)
	binary.LittleEndian.PutUint32(out[12:16], 0) // reserved

	copy(out[MsgHeaderSize:], payload)
	return out
}

// EncodeFrame wraps one or more already-encoded messages in a frame header.
// Replies and events are always emitted each in their own single-message
// frame (see EncodeSingleMessageFrame), but EncodeFrame supports the general
// multi-message case for completeness and for tests that exercise batched
// dispatch.
func EncodeFrame(frameID uint32, encodedMessages ...[]byte) []byte {
	bodyLen := 0
	for _, m := range encodedMessages {
		bodyLen += len(m)
	}

	frameBytes := align4(FrameHeaderSize + bodyLen)
	out := make([]byte, frameBytes)

	binary.LittleEndian.PutUint32(out[0:4], Magic)
	binary.LittleEndian.PutUint16(out[4:6], Version)
	binary.LittleEndian.PutUint16(out[6:8], FrameHeaderSize)
	binary.LittleEndian.PutUint32(out[8:12], uint32(frameBytes))
	binary.LittleEndian.PutUint32(out[12:16], frameID)

	off := FrameHeaderSize
	for _, m := range encodedMessages {
		copy(out[off:], m)
		off += len(m)
	}
	return out
}

// EncodeSingleMessageFrame builds a frame carrying exactly one message, the
// form every reply and event actually takes on the wire.
func EncodeSingleMessageFrame(frameID uint32, msgType uint16, msgID uint32, payload []byte) []byte {
	return EncodeFrame(frameID, EncodeMessage(msgType, msgID, payload))
}
