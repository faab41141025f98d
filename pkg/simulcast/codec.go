package simulcast

import (
	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
)

// TemporalLayerReader extracts the temporal layer id carried in a packet's
// codec-specific payload descriptor.
type TemporalLayerReader interface {
	// TemporalLayerID returns the packet's temporal layer id, or
	// NoTemporalLayer when the payload carries no temporal layer
	// information or cannot be parsed.
	TemporalLayerID(pkt *rtp.Packet) int
}

// TemporalLayerReaderFunc adapts a plain function to the TemporalLayerReader
// interface.
type TemporalLayerReaderFunc func(pkt *rtp.Packet) int

// TemporalLayerID calls the wrapped function.
func (f TemporalLayerReaderFunc) TemporalLayerID(pkt *rtp.Packet) int {
	return f(pkt)
}

// VP8TemporalLayerReader reads the TID field of the VP8 payload descriptor
// (RFC 7741). The TID is only present when the descriptor's T bit is set.
type VP8TemporalLayerReader struct{}

// TemporalLayerID implements TemporalLayerReader.
func (VP8TemporalLayerReader) TemporalLayerID(pkt *rtp.Packet) int {
	var vp8 codecs.VP8Packet
	if _, err := vp8.Unmarshal(pkt.Payload); err != nil {
		return NoTemporalLayer
	}
	if vp8.T != 1 {
		return NoTemporalLayer
	}
	return int(vp8.TID)
}

// VP9TemporalLayerReader reads the TID field of the VP9 payload descriptor
// (draft-ietf-payload-vp9). The TID is only present when the descriptor's
// L bit is set.
type VP9TemporalLayerReader struct{}

// TemporalLayerID implements TemporalLayerReader.
func (VP9TemporalLayerReader) TemporalLayerID(pkt *rtp.Packet) int {
	var vp9 codecs.VP9Packet
	if _, err := vp9.Unmarshal(pkt.Payload); err != nil {
		return NoTemporalLayer
	}
	if !vp9.L {
		return NoTemporalLayer
	}
	return int(vp9.TID)
}
