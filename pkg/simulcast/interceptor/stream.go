package interceptor

import (
	"sync/atomic"
	"time"

	"github.com/thesyncim/simulcast/pkg/simulcast"
)

// streamState tracks per-SSRC state for the tracker interceptor.
//
// The lastPacketTime uses atomic.Value for thread-safe access because the
// wrapped RTP reader updates it on every incoming packet while cleanupLoop
// reads it periodically to detect streams that went silent. Both happen
// concurrently without explicit locking.
type streamState struct {
	ssrc           uint32
	track          *simulcast.Track
	lastPacketTime atomic.Value // stores time.Time
}

// newStreamState creates a new stream state for the given SSRC, owned by the
// given track. The lastPacketTime is initialized to now.
func newStreamState(ssrc uint32, track *simulcast.Track, now time.Time) *streamState {
	s := &streamState{
		ssrc:  ssrc,
		track: track,
	}
	s.lastPacketTime.Store(now)
	return s
}

// UpdateLastPacket stores the given time as the last packet arrival time.
// This is called on every incoming RTP packet for this stream.
func (s *streamState) UpdateLastPacket(t time.Time) {
	s.lastPacketTime.Store(t)
}

// LastPacket returns the arrival time of the most recent packet for this
// stream. Used by the cleanup loop to detect streams that went silent.
func (s *streamState) LastPacket() time.Time {
	return s.lastPacketTime.Load().(time.Time)
}

// SSRC returns the stream's SSRC identifier.
func (s *streamState) SSRC() uint32 {
	return s.ssrc
}

// SetEncodingsActive flags every encoding carried on this stream's SSRC as
// streaming or suspended.
func (s *streamState) SetEncodingsActive(active bool) {
	for _, enc := range s.track.Encodings() {
		if enc.PrimarySSRC() == s.ssrc || enc.RTXSSRC() == int64(s.ssrc) {
			enc.SetActive(active)
		}
	}
}
