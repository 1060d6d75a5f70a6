package websocket

import (
	"encoding/binary"
	"strconv"
)

// StatusCode indicates a reason for the closure of
// an established WebSocket connection, as defined in
// https://datatracker.ietf.org/doc/html/rfc6455#section-7.4.
type StatusCode int

// Based on https://datatracker.ietf.org/doc/html/rfc6455#section-7.4.1 and
// https://www.iana.org/assignments/websocket/websocket.xhtml#close-code-number.
const (
	// The purpose for which the connection was established has been fulfilled.
	StatusNormalClosure StatusCode = iota + 1000
	// An endpoint is "going away", e.g. a server going down.
	StatusGoingAway
	// An endpoint is terminating the connection due to a protocol error.
	StatusProtocolError
	// An endpoint received a type of data it cannot accept.
	StatusUnsupportedData
	// Reserved. The specific meaning might be defined in the future.
	_
	// Reserved value: no status code was actually present.
	// MUST NOT be sent in a Close control frame by an endpoint.
	StatusNotReceived
	// Reserved value: the connection was closed abnormally, i.e. without
	// sending or receiving a Close control frame. MUST NOT be sent in a
	// Close control frame by an endpoint.
	StatusClosedAbnormally
	// An endpoint received data within a message that was not
	// consistent with the type of the message.
	StatusInvalidData
	// An endpoint received a message that violates its policy.
	StatusPolicyViolation
	// An endpoint received a message that is too big for it to process.
	StatusMessageTooBig
	// A client expected the server to negotiate one or more extensions,
	// but the server didn't return them in the handshake response.
	StatusMandatoryExtension
	// A remote endpoint encountered an unexpected condition that
	// prevented it from fulfilling the request.
	// See https://www.rfc-editor.org/errata_search.php?eid=3227.
	StatusInternalError
	// See https://www.iana.org/assignments/websocket/websocket.xhtml#close-code-number.
	StatusServiceRestart
	// See https://www.iana.org/assignments/websocket/websocket.xhtml#close-code-number.
	StatusTryAgainLater
	// See https://www.iana.org/assignments/websocket/websocket.xhtml#close-code-number.
	StatusBadGateway
	// Reserved value: the connection was closed due to a failure to
	// perform a TLS handshake. MUST NOT be sent in a Close control
	// frame by an endpoint.
	StatusTLSHandshake
)

// String returns the status code's name, or its number if it's unrecognized.
func (s StatusCode) String() string {
	switch s {
	case StatusNormalClosure:
		return "normal closure"
	case StatusGoingAway:
		return "going away"
	case StatusProtocolError:
		return "protocol error"
	case StatusUnsupportedData:
		return "unsupported data"
	case StatusNotReceived:
		return "status not received"
	case StatusClosedAbnormally:
		return "closed abnormally"
	case StatusInvalidData:
		return "invalid data"
	case StatusPolicyViolation:
		return "policy violation"
	case StatusMessageTooBig:
		return "message too big"
	case StatusMandatoryExtension:
		return "expected extension negotiation"
	case StatusInternalError:
		return "internal error"
	case StatusServiceRestart:
		return "service restart"
	case StatusTryAgainLater:
		return "try again later"
	case StatusBadGateway:
		return "bad gateway"
	case StatusTLSHandshake:
		return "TLS handshake"
	default:
		return strconv.Itoa(int(s))
	}
}

// maxCloseReason is the maximum length of a connection closing reason.
// The difference from [maxControlPayload] is due to the status code.
const maxCloseReason = maxControlPayload - 2

func parseClose(payload []byte) (StatusCode, string) {
	switch len(payload) {
	case 0, 1:
		return StatusNotReceived, ""
	case 2:
		return StatusCode(binary.BigEndian.Uint16(payload)), ""
	default:
		return StatusCode(binary.BigEndian.Uint16(payload)), string(payload[2:])
	}
}

func (c *Conn) sendCloseControlFrame(s StatusCode, reason string) {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	// "If an endpoint receives a Close frame and did not previously send
	// a Close frame, the endpoint MUST send a Close frame in response."
	if c.closeSent {
		return // No op.
	}

	if len(reason) > maxCloseReason {
		reason = reason[:maxCloseReason]
	}

	binary.BigEndian.PutUint16(c.closeBuf[:2], uint16(s))
	if len(reason) > 0 {
		copy(c.closeBuf[2:], reason)
	}

	n := 2 + len(reason)
	if err := <-c.sendControlFrame(opcodeClose, c.closeBuf[:n]); err != nil {
		c.logger.Err(err).Str("close_status", s.String()).Str("close_reason", reason).
			Msg("failed to send WebSocket close control frame")
	} else {
		c.logger.Trace().Str("close_status", s.String()).Str("close_reason", reason).
			Msg("sent WebSocket close control frame")
	}

	c.closeSent = true
}

func (c *Conn) isCloseSent() bool {
	c.closeMu.RLock()
	defer c.closeMu.RUnlock()

	return c.closeSent
}

func (c *Conn) setCloseReceived() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	c.closeReceived = true
}

func (c *Conn) isCloseReceived() bool {
	c.closeMu.RLock()
	defer c.closeMu.RUnlock()

	return c.closeReceived
}

// Close initiates the closing handshake defined in
// https://datatracker.ietf.org/doc/html/rfc6455#section-7.
func (c *Conn) Close(s StatusCode) {
	c.sendCloseControlFrame(s, "")
}

func (c *Conn) IsClosed() bool {
	return c.isCloseReceived() && c.isCloseSent()
}

func (c *Conn) IsClosing() bool {
	return (c.isCloseReceived() || c.isCloseSent()) && !c.IsClosed()
}
