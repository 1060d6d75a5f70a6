package websocket

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Opcode identifies the type of a WebSocket frame, as defined in
// https://datatracker.ietf.org/doc/html/rfc6455#section-5.2.
type Opcode byte

const (
	opcodeContinuation Opcode = 0x0
	opcodeText         Opcode = 0x1
	opcodeBinary       Opcode = 0x2
	opcodeClose        Opcode = 0x8
	opcodePing         Opcode = 0x9
	opcodePong         Opcode = 0xA
)

// String returns the opcode's name, or its number if it's unrecognized.
func (o Opcode) String() string {
	switch o {
	case opcodeContinuation:
		return "continuation"
	case opcodeText:
		return "text"
	case opcodeBinary:
		return "binary"
	case opcodeClose:
		return "close"
	case opcodePing:
		return "ping"
	case opcodePong:
		return "pong"
	default:
		return strconv.Itoa(int(o))
	}
}

// maxControlPayload is the maximum payload length of WebSocket control
// frames, per https://datatracker.ietf.org/doc/html/rfc6455#section-5.5.
const maxControlPayload = 125

// frameHeader is the parsed form of a single frame's header, per
// https://datatracker.ietf.org/doc/html/rfc6455#section-5.2.
type frameHeader struct {
	fin           bool
	rsv           byte
	opcode        Opcode
	masked        bool
	payloadLength uint64
}

// readFrameHeader reads and parses the header of the next frame from the
// server, including the extended payload length, if there is one. It does
// not read the frame's payload, and doesn't validate the header's fields
// (see [Conn.checkFrameHeader] for that).
func (c *Conn) readFrameHeader() (frameHeader, error) {
	h := frameHeader{}

	if _, err := io.ReadFull(c.bufio, c.readBuf[:2]); err != nil {
		return h, err
	}

	h.fin = c.readBuf[0]&0x80 != 0
	h.rsv = c.readBuf[0] & 0x70
	h.opcode = Opcode(c.readBuf[0] & 0x0F)
	h.masked = c.readBuf[1]&0x80 != 0
	h.payloadLength = uint64(c.readBuf[1] & 0x7F)

	// https://datatracker.ietf.org/doc/html/rfc6455#section-5.2:
	// 126 = the next 2 bytes are the length, 127 = the next 8 bytes.
	switch h.payloadLength {
	case 126:
		if _, err := io.ReadFull(c.bufio, c.readBuf[:2]); err != nil {
			return h, err
		}
		h.payloadLength = uint64(binary.BigEndian.Uint16(c.readBuf[:2]))
	case 127:
		if _, err := io.ReadFull(c.bufio, c.readBuf[:8]); err != nil {
			return h, err
		}
		h.payloadLength = binary.BigEndian.Uint64(c.readBuf[:8])
	}

	return h, nil
}

// checkFrameHeader enforces the protocol rules that apply to frames
// received by a client. It returns a short reason for the close control
// frame that the caller must send if the returned error is not nil.
func (c *Conn) checkFrameHeader(h frameHeader) (string, error) {
	// "A client MUST close a connection if it detects a masked frame."
	if h.masked {
		return "masked server frame", errors.New("received masked frame from server")
	}

	// No extensions were negotiated during the handshake.
	if h.rsv != 0 {
		return "unexpected reserved bits", fmt.Errorf("received frame with RSV bits 0x%02x", h.rsv)
	}

	switch h.opcode {
	case opcodeContinuation, opcodeText, opcodeBinary:
		return "", nil
	case opcodeClose, opcodePing, opcodePong:
		// "All control frames MUST have a payload length of
		// 125 bytes or less and MUST NOT be fragmented."
		if !h.fin {
			return "fragmented control frame", errors.New("received fragmented control frame")
		}
		if h.payloadLength > maxControlPayload {
			return "oversized control frame", fmt.Errorf("received control frame with %d-byte payload", h.payloadLength)
		}
		return "", nil
	default:
		return "unknown opcode", fmt.Errorf("received frame with unknown opcode 0x%x", byte(h.opcode))
	}
}

// writeFrame writes a single unfragmented frame to the server. Client
// frames are always masked, per
// https://datatracker.ietf.org/doc/html/rfc6455#section-5.3.
//
// Do not call this function directly, it is meant to be used exclusively
// by [Conn.writeMessages], which serializes concurrent senders!
func (c *Conn) writeFrame(opcode Opcode, data []byte) error {
	c.writeBuf[0] = 0x80 | byte(opcode) // FIN is always set, no fragmentation.
	c.writeBuf[1] = 0x80                // Mask bit.

	n := 2
	switch l := len(data); {
	case l <= 125:
		c.writeBuf[1] |= byte(l)
	case l <= 0xFFFF:
		c.writeBuf[1] |= 126
		binary.BigEndian.PutUint16(c.writeBuf[2:4], uint16(l))
		n = 4
	default:
		// The 8-byte extended length doesn't fit in writeBuf
		// together with the 2 header bytes, so write it separately.
		c.writeBuf[1] |= 127
	}

	if _, err := c.bufio.Write(c.writeBuf[:n]); err != nil {
		return err
	}
	if len(data) > 0xFFFF {
		binary.BigEndian.PutUint64(c.writeBuf[:8], uint64(len(data)))
		if _, err := c.bufio.Write(c.writeBuf[:8]); err != nil {
			return err
		}
	}

	var key [4]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return err
	}
	if _, err := c.bufio.Write(key[:]); err != nil {
		return err
	}

	if err := writeMasked(c.bufio, key, data); err != nil {
		return err
	}

	return c.bufio.Flush()
}

// writeMasked applies the client-to-server masking algorithm defined in
// https://datatracker.ietf.org/doc/html/rfc6455#section-5.3 while writing
// the payload, without modifying the caller's data.
func writeMasked(w io.Writer, key [4]byte, data []byte) error {
	buf := make([]byte, len(data))
	for i, b := range data {
		buf[i] = b ^ key[i%4]
	}

	_, err := w.Write(buf)
	return err
}
