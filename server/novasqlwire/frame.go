package novasqlwire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// FrameSizeLimit bounds a single frame's JSON payload so a bad or hostile
// peer can't force an unbounded allocation from the 4-byte length prefix.
const FrameSizeLimit = 8 << 20 // 8 MiB

const frameHeaderLen = 4

// frameByteOrder is the wire encoding of the length prefix: big-endian,
// matching the field order network protocols conventionally pick for
// length headers.
var frameByteOrder = binary.BigEndian

// ReadFrame blocks until one length-prefixed JSON frame arrives on r and
// decodes it into v directly off a reader bounded to the declared payload
// length, without buffering the frame twice.
func ReadFrame(r io.Reader, v any) error {
	n, err := readLength(r)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(io.LimitReader(r, int64(n)))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("novasqlwire: decode frame: %w", err)
	}
	return nil
}

func readLength(r io.Reader) (uint32, error) {
	var hdr [frameHeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, err
	}
	n := frameByteOrder.Uint32(hdr[:])
	if err := checkFrameSize(n); err != nil {
		return 0, err
	}
	return n, nil
}

func checkFrameSize(n uint32) error {
	switch {
	case n == 0:
		return fmt.Errorf("novasqlwire: received zero-length frame")
	case n > FrameSizeLimit:
		return fmt.Errorf("novasqlwire: frame of %d bytes exceeds limit %d", n, FrameSizeLimit)
	}
	return nil
}

// WriteFrame marshals v to JSON and writes it to w as a single
// length-prefixed frame, header and payload in one Write call so a partial
// write can never leave a dangling length prefix with no body behind it.
func WriteFrame(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("novasqlwire: encode frame: %w", err)
	}
	if err := checkFrameSize(uint32(len(payload))); err != nil {
		return err
	}

	frame := make([]byte, frameHeaderLen+len(payload))
	frameByteOrder.PutUint32(frame[:frameHeaderLen], uint32(len(payload)))
	copy(frame[frameHeaderLen:], payload)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("novasqlwire: write frame: %w", err)
	}
	return nil
}
