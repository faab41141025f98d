// Package interceptor provides a Pion WebRTC interceptor that feeds incoming
// RTP packets into the per-encoding state trackers of registered simulcast
// tracks.
package interceptor

import (
	"sync"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/logging"

	"github.com/thesyncim/simulcast/pkg/simulcast"
	"github.com/thesyncim/simulcast/pkg/simulcast/internal"
)

const (
	// defaultPacketTimeout is how long an encoding keeps its active flag
	// after the last packet on its SSRC.
	defaultPacketTimeout = 2 * time.Second
)

// TrackerInterceptor observes incoming RTP streams and maintains frame
// boundary and bitrate state for the encodings of the registered tracks.
// Streams whose SSRC belongs to no registered track pass through untouched.
//
// Usage:
//
//	track, err := simulcast.NewTrack(cfg)
//	// handle err...
//	i := NewTrackerInterceptor(WithTrack(track))
//	// Add to interceptor registry...
type TrackerInterceptor struct {
	interceptor.NoOp // Embed for interface compliance

	mu     sync.Mutex
	tracks []*simulcast.Track

	streams sync.Map // SSRC (uint32) -> *streamState

	packetTimeout time.Duration
	clock         internal.Clock
	log           logging.LeveledLogger

	// Lifecycle
	closed    chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once // Ensures cleanup loop starts only once
}

// InterceptorOption is a functional option for configuring TrackerInterceptor.
type InterceptorOption func(*TrackerInterceptor)

// WithTrack registers a track whose encodings the interceptor should feed.
// More tracks can be registered later with AddTrack.
func WithTrack(track *simulcast.Track) InterceptorOption {
	return func(i *TrackerInterceptor) {
		i.tracks = append(i.tracks, track)
	}
}

// WithPacketTimeout sets how long an encoding stays active after the last
// packet on its SSRC. Default is 2 seconds.
func WithPacketTimeout(d time.Duration) InterceptorOption {
	return func(i *TrackerInterceptor) {
		i.packetTimeout = d
	}
}

// WithLoggerFactory sets the logger factory used for diagnostics.
func WithLoggerFactory(factory logging.LoggerFactory) InterceptorOption {
	return func(i *TrackerInterceptor) {
		i.log = factory.NewLogger("simulcast_interceptor")
	}
}

// NewTrackerInterceptor creates a new tracker interceptor.
func NewTrackerInterceptor(opts ...InterceptorOption) *TrackerInterceptor {
	i := &TrackerInterceptor{
		packetTimeout: defaultPacketTimeout,
		clock:         internal.MonotonicClock{},
		closed:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.log == nil {
		i.log = logging.NewDefaultLoggerFactory().NewLogger("simulcast_interceptor")
	}
	return i
}

// AddTrack registers an additional track after construction. Streams bound
// before the track was registered are not retroactively attached.
func (i *TrackerInterceptor) AddTrack(track *simulcast.Track) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.tracks = append(i.tracks, track)
}

// Close shuts down the interceptor and releases resources.
func (i *TrackerInterceptor) Close() error {
	close(i.closed)
	i.wg.Wait()
	return nil
}

// BindRemoteStream is called by Pion when a new remote stream is detected.
// If the stream's SSRC belongs to a registered track, the reader is wrapped
// to observe packets; otherwise it is returned unchanged.
func (i *TrackerInterceptor) BindRemoteStream(info *interceptor.StreamInfo, reader interceptor.RTPReader) interceptor.RTPReader {
	track := i.findTrack(info.SSRC)
	if track == nil {
		return reader
	}

	// Start cleanup loop on first tracked stream (only once)
	i.startOnce.Do(func() {
		i.wg.Add(1)
		go i.cleanupLoop()
	})

	state := newStreamState(info.SSRC, track, i.clock.Now())
	i.streams.Store(info.SSRC, state)

	// Return observing reader
	return interceptor.RTPReaderFunc(func(b []byte, a interceptor.Attributes) (int, interceptor.Attributes, error) {
		n, a, err := reader.Read(b, a)
		if err == nil && n > 0 {
			i.processRTP(b[:n], state)
		}
		return n, a, err
	})
}

// UnbindRemoteStream is called by Pion when a remote stream is removed.
func (i *TrackerInterceptor) UnbindRemoteStream(info *interceptor.StreamInfo) {
	i.streams.Delete(info.SSRC)
}

// findTrack returns the registered track carrying the given SSRC on one of
// its encodings, or nil.
func (i *TrackerInterceptor) findTrack(ssrc uint32) *simulcast.Track {
	i.mu.Lock()
	defer i.mu.Unlock()

	for _, track := range i.tracks {
		for _, enc := range track.Encodings() {
			if enc.PrimarySSRC() == ssrc || enc.RTXSSRC() == int64(ssrc) {
				return track
			}
		}
	}
	return nil
}

// processRTP parses an RTP packet and merges it into the matching encoding.
func (i *TrackerInterceptor) processRTP(raw []byte, state *streamState) {
	pkt := getPacket()
	defer putPacket(pkt)

	if err := pkt.Unmarshal(raw); err != nil {
		i.log.Debugf("dropping invalid RTP packet on ssrc=%d: %v", state.SSRC(), err)
		return
	}

	now := i.clock.Now()
	state.UpdateLastPacket(now)

	enc := state.track.FindEncoding(pkt)
	if enc == nil {
		return
	}

	enc.SetActive(true)
	enc.Update(pkt, now)
}

// cleanupLoop periodically flags encodings of silent streams as inactive.
// Unlike the stream map itself, the encodings are kept: a suspended simulcast
// layer resumes on the same SSRCs.
func (i *TrackerInterceptor) cleanupLoop() {
	defer i.wg.Done()

	ticker := time.NewTicker(i.packetTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-i.closed:
			return
		case <-ticker.C:
			now := i.clock.Now()
			i.streams.Range(func(_, value any) bool {
				state := value.(*streamState)
				if now.Sub(state.LastPacket()) > i.packetTimeout {
					state.SetEncodingsActive(false)
				}
				return true
			})
		}
	}
}
