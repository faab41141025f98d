package simulcast

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pion/logging"
	"github.com/pion/rtp"
)

const (
	// NoSSRC marks an absent RTX SSRC.
	NoSSRC int64 = -1

	// NoTemporalLayer marks an encoding without temporal layering, or a
	// packet without temporal layer information.
	NoTemporalLayer = -1
)

// Encoding is one simulcast/SVC quality layer of a track. It keeps track of
// the frames seen on the layer, the receiving bitrate, its subjective quality
// index, its last stable bitrate and other state the layer selection logic
// needs for adaptivity and routing.
//
// Encodings are created once when a track's layering is configured and live
// as long as the track. All methods are safe for concurrent use; see the
// individual methods for the exact consistency guarantees.
type Encoding struct {
	track *Track

	// index is the subjective quality rank of this encoding within the
	// track's encodings array.
	index int

	primarySSRC uint32
	rtxSSRC     int64
	temporalID  int

	// dependencies are indices into the track's encodings array; the
	// relation is validated to be acyclic at track construction.
	dependencies []int

	history *frameHistory
	rate    *RateStats
	log     logging.LeveledLogger

	active               atomic.Bool
	lastStableBitrateBps atomic.Int64
}

// Update merges an incoming packet into the encoding state: the packet feeds
// the rate estimator, is merged into the frame stored for its timestamp
// (creating the frame if this is the first packet seen for it), and — when
// the frame's sequence number bracket changed — the boundary heuristics are
// run against the nearest older and newer frames in the history.
//
// It returns the frame the packet belongs to if the packet changed it, nil
// otherwise.
func (e *Encoding) Update(pkt *rtp.Packet, now time.Time) *FrameDesc {
	e.rate.Update(int64(pkt.MarshalSize()), now)

	frame, created := e.history.lookupOrCreate(pkt.Timestamp)
	if created {
		// The stable bitrate is sampled once per new frame, not per packet:
		// a new frame implies the previous one is complete.
		e.lastStableBitrateBps.Store(e.BitrateBps(now))
	}

	if !frame.update(pkt.SequenceNumber, pkt.Marker) {
		return nil
	}

	// The frame's bracket changed; try to settle boundaries against the
	// closest neighbors on either side. The neighbor scans happen outside
	// the history lock, so a concurrent eviction may hide a neighbor; the
	// heuristics then simply wait for the next packet.
	if next := e.history.ceiling(pkt.Timestamp + 1); next != nil {
		e.applyFrameBoundsHeuristics(frame, next)
	}
	if prev := e.history.floor(pkt.Timestamp - 1); prev != nil {
		e.applyFrameBoundsHeuristics(prev, frame)
	}

	return frame
}

// Matches reports whether the packet belongs to this encoding: its SSRC must
// equal the primary or RTX SSRC, and, for temporally layered encodings, its
// temporal layer must equal the encoding's. A packet carrying no temporal
// layer information matches only the base quality encoding.
func (e *Encoding) Matches(pkt *rtp.Packet) bool {
	ssrc := int64(pkt.SSRC)
	if int64(e.primarySSRC) != ssrc && e.rtxSSRC != ssrc {
		return false
	}

	if e.temporalID == NoTemporalLayer {
		return true
	}

	tid := e.track.temporalLayerID(pkt)

	return tid == NoTemporalLayer && e.index == 0 || tid == e.temporalID
}

// Requires reports whether this encoding depends, directly or transitively,
// on the encoding with the given subjective quality index. An encoding
// requires its own index. Negative indices yield false.
func (e *Encoding) Requires(index int) bool {
	if index < 0 {
		return false
	}
	if index == e.index {
		return true
	}

	for _, dep := range e.dependencies {
		if e.track.encodings[dep].Requires(index) {
			return true
		}
	}

	return false
}

// BitrateBps returns the cumulative receiving bitrate, in bits per second, of
// this encoding and all encodings it transitively depends on. Each encoding
// contributes its rate exactly once even when multiple dependency paths reach
// it.
//
// The rates of the involved encodings are read without a cross-encoding lock;
// the result is a best-effort instantaneous snapshot, not a consistent
// transaction.
func (e *Encoding) BitrateBps(now time.Time) int64 {
	encodings := e.track.encodings
	if len(encodings) == 0 {
		return 0
	}

	rates := make([]int64, len(encodings))
	e.accumulateBitrate(now, rates)

	var bitrate int64
	for _, r := range rates {
		bitrate += r
	}

	return bitrate
}

// accumulateBitrate recursively writes the rate of this encoding and its
// dependencies into the per-index slots of rates. A zero slot doubles as the
// "not yet computed" marker, so an encoding whose window rate is genuinely
// zero may be sampled again on another path; the sum is unaffected.
func (e *Encoding) accumulateBitrate(now time.Time, rates []int64) {
	if rates[e.index] == 0 {
		rates[e.index] = e.rate.Rate(now)
	}

	for _, dep := range e.dependencies {
		e.track.encodings[dep].accumulateBitrate(now, rates)
	}
}

// ResolveFrame returns the frame the packet belongs to, going by its RTP
// timestamp, or nil if the history holds no frame for it.
func (e *Encoding) ResolveFrame(pkt *rtp.Packet) *FrameDesc {
	return e.history.get(pkt.Timestamp)
}

// IsActive reports whether this encoding is currently streaming, as opposed
// to suspended.
func (e *Encoding) IsActive() bool {
	return e.active.Load()
}

// SetActive flags this encoding as streaming or suspended.
func (e *Encoding) SetActive(active bool) {
	e.active.Store(active)
}

// PrimarySSRC returns the primary SSRC of this encoding.
func (e *Encoding) PrimarySSRC() uint32 {
	return e.primarySSRC
}

// RTXSSRC returns the retransmission SSRC of this encoding, or NoSSRC when
// the encoding has no RTX stream.
func (e *Encoding) RTXSSRC() int64 {
	return e.rtxSSRC
}

// Index returns the subjective quality index of this encoding.
func (e *Encoding) Index() int {
	return e.index
}

// TemporalID returns the temporal layer of this encoding, or NoTemporalLayer.
func (e *Encoding) TemporalID() int {
	return e.temporalID
}

// LastStableBitrate returns the bitrate, in bits per second, sampled when the
// most recent frame was started.
func (e *Encoding) LastStableBitrate() int64 {
	return e.lastStableBitrateBps.Load()
}

// String returns a human readable description of the encoding.
func (e *Encoding) String() string {
	return fmt.Sprintf("subjective_quality=%d,primary_ssrc=%d,rtx_ssrc=%d,temporal_id=%d,active=%t,last_stable_bitrate_bps=%d",
		e.index, e.primarySSRC, e.rtxSSRC, e.temporalID, e.IsActive(), e.LastStableBitrate())
}
