package simulcast

import (
	"fmt"
	"sync"
)

// NoSeqNum marks an unknown frame boundary or sequence number bracket.
const NoSeqNum int32 = -1

// FrameDesc describes one video frame: the set of RTP packets sharing a
// single 32-bit RTP timestamp, reconstructed from possibly incomplete and
// out-of-order sequence number evidence.
//
// start and end are the first and last sequence numbers of the frame and stay
// at NoSeqNum until they can be determined, either from the RTP marker bit or
// by the boundary heuristics run against neighboring frames. minSeen and
// maxSeen bracket the sequence numbers actually observed for this timestamp.
//
// A FrameDesc is safe for concurrent use: packet delivery threads merge new
// packets in while readers resolve frames for retransmission.
type FrameDesc struct {
	timestamp uint32

	mu      sync.Mutex
	start   int32
	end     int32
	minSeen int32
	maxSeen int32
}

// newFrameDesc creates an empty frame description for the given RTP timestamp.
func newFrameDesc(ts uint32) *FrameDesc {
	return &FrameDesc{
		timestamp: ts,
		start:     NoSeqNum,
		end:       NoSeqNum,
		minSeen:   NoSeqNum,
		maxSeen:   NoSeqNum,
	}
}

// Timestamp returns the RTP timestamp shared by all packets of this frame.
func (f *FrameDesc) Timestamp() uint32 {
	return f.timestamp
}

// Start returns the sequence number of the first packet of this frame, or
// NoSeqNum if it is not (yet) known.
func (f *FrameDesc) Start() int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.start
}

// End returns the sequence number of the last packet of this frame, or
// NoSeqNum if it is not (yet) known.
func (f *FrameDesc) End() int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.end
}

// MinSeen returns the smallest sequence number observed for this frame so
// far, or NoSeqNum if no packet has been merged yet.
func (f *FrameDesc) MinSeen() int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.minSeen
}

// MaxSeen returns the largest sequence number observed for this frame so far,
// or NoSeqNum if no packet has been merged yet.
func (f *FrameDesc) MaxSeen() int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxSeen
}

// setStart pins the first sequence number of the frame. The first write wins;
// a boundary, once set, is never moved.
func (f *FrameDesc) setStart(seq uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.start == NoSeqNum {
		f.start = int32(seq)
	}
}

// setEnd pins the last sequence number of the frame. The first write wins.
func (f *FrameDesc) setEnd(seq uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.end == NoSeqNum {
		f.end = int32(seq)
	}
}

// update merges a packet's sequence number into the observed bracket, in
// 16-bit modular space. A set RTP marker bit pins the frame's end.
// It reports whether start, end, minSeen or maxSeen changed as a result.
func (f *FrameDesc) update(seq uint16, marker bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	changed := false

	if f.minSeen == NoSeqNum {
		f.minSeen = int32(seq)
		f.maxSeen = int32(seq)
		changed = true
	} else {
		if seqNumDiff(seq, uint16(f.minSeen)) < 0 {
			f.minSeen = int32(seq)
			changed = true
		}
		if seqNumDiff(seq, uint16(f.maxSeen)) > 0 {
			f.maxSeen = int32(seq)
			changed = true
		}
	}

	if marker && f.end == NoSeqNum {
		f.end = int32(seq)
		changed = true
	}

	return changed
}

// String returns a human readable description of the frame, for diagnostics.
func (f *FrameDesc) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fmt.Sprintf("ts=%d,start=%d,end=%d,min_seen=%d,max_seen=%d",
		f.timestamp, f.start, f.end, f.minSeen, f.maxSeen)
}
