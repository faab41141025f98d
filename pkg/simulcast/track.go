package simulcast

import (
	"errors"
	"fmt"
	"time"

	"github.com/pion/logging"
	"github.com/pion/rtp"
)

var (
	// ErrNoEncodings is returned when a track is configured without encodings.
	ErrNoEncodings = errors.New("simulcast: track needs at least one encoding")

	// ErrInvalidDependency is returned when an encoding references a
	// dependency index outside the track's encodings array or itself.
	ErrInvalidDependency = errors.New("simulcast: invalid encoding dependency")

	// ErrDependencyCycle is returned when the configured dependencies form a
	// cycle; the dependency relation must be acyclic so traversal terminates.
	ErrDependencyCycle = errors.New("simulcast: encoding dependency cycle")
)

// EncodingConfig describes one quality layer of a track.
type EncodingConfig struct {
	// PrimarySSRC is the SSRC the layer's media packets carry.
	PrimarySSRC uint32

	// RTXSSRC is the SSRC of the layer's retransmission stream. Leave zero
	// or set to NoSSRC when the layer has no RTX stream.
	RTXSSRC int64

	// TemporalID is the temporal layer of this encoding. Set to
	// NoTemporalLayer for encodings without temporal layering; zero is the
	// base temporal layer.
	TemporalID int

	// Dependencies lists the indices, within TrackConfig.Encodings, of the
	// layers this encoding depends on. The relation must be acyclic.
	Dependencies []int
}

// TrackConfig configures a track and its quality layers.
type TrackConfig struct {
	// Encodings describes the quality layers, ordered by ascending
	// subjective quality; the position in the slice is the layer's index.
	Encodings []EncodingConfig

	// TemporalLayers extracts temporal layer ids from packet payloads.
	// Optional; when nil every packet is treated as carrying no temporal
	// layer information.
	TemporalLayers TemporalLayerReader

	// WindowSize is the bitrate measurement window. Default: 5 seconds.
	WindowSize time.Duration

	// HistoryCapacity bounds the number of frames retained per encoding.
	// Default: 300.
	HistoryCapacity int

	// LoggerFactory creates the diagnostic loggers used to report sequence
	// number corruption and reordering. Optional.
	LoggerFactory logging.LoggerFactory
}

// Track owns the ordered set of encodings of one simulcast/SVC media track.
// The encodings array is fixed at construction; the per-encoding state it
// holds is what mutates as packets arrive.
type Track struct {
	encodings      []*Encoding
	temporalLayers TemporalLayerReader
}

// NewTrack creates a track from the given configuration. It validates that
// every dependency reference stays within the encodings array and that the
// dependency relation is acyclic.
func NewTrack(config TrackConfig) (*Track, error) {
	if len(config.Encodings) == 0 {
		return nil, ErrNoEncodings
	}
	if err := validateDependencies(config.Encodings); err != nil {
		return nil, err
	}

	loggerFactory := config.LoggerFactory
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}

	t := &Track{
		encodings:      make([]*Encoding, len(config.Encodings)),
		temporalLayers: config.TemporalLayers,
	}

	for i, ec := range config.Encodings {
		rtxSSRC := ec.RTXSSRC
		if rtxSSRC <= 0 {
			rtxSSRC = NoSSRC
		}
		t.encodings[i] = &Encoding{
			track:        t,
			index:        i,
			primarySSRC:  ec.PrimarySSRC,
			rtxSSRC:      rtxSSRC,
			temporalID:   ec.TemporalID,
			dependencies: append([]int(nil), ec.Dependencies...),
			history:      newFrameHistory(config.HistoryCapacity),
			rate:         NewRateStats(RateStatsConfig{WindowSize: config.WindowSize}),
			log:          loggerFactory.NewLogger("simulcast"),
		}
	}

	return t, nil
}

// validateDependencies checks dependency indices for range errors,
// self-references and cycles.
func validateDependencies(encodings []EncodingConfig) error {
	n := len(encodings)
	for i, ec := range encodings {
		for _, dep := range ec.Dependencies {
			if dep < 0 || dep >= n {
				return fmt.Errorf("%w: encoding %d references %d", ErrInvalidDependency, i, dep)
			}
			if dep == i {
				return fmt.Errorf("%w: encoding %d references itself", ErrInvalidDependency, i)
			}
		}
	}

	// Depth-first walk; state per node: 0 unvisited, 1 on stack, 2 done.
	state := make([]int, n)
	var visit func(i int) bool
	visit = func(i int) bool {
		switch state[i] {
		case 1:
			return false
		case 2:
			return true
		}
		state[i] = 1
		for _, dep := range encodings[i].Dependencies {
			if !visit(dep) {
				return false
			}
		}
		state[i] = 2
		return true
	}
	for i := range encodings {
		if !visit(i) {
			return fmt.Errorf("%w: involving encoding %d", ErrDependencyCycle, i)
		}
	}

	return nil
}

// Encodings returns the track's encodings, ordered by subjective quality
// index.
func (t *Track) Encodings() []*Encoding {
	return append([]*Encoding(nil), t.encodings...)
}

// Encoding returns the encoding with the given subjective quality index, or
// nil when the index is out of range.
func (t *Track) Encoding(index int) *Encoding {
	if index < 0 || index >= len(t.encodings) {
		return nil
	}
	return t.encodings[index]
}

// FindEncoding returns the first encoding the packet matches, or nil.
func (t *Track) FindEncoding(pkt *rtp.Packet) *Encoding {
	for _, enc := range t.encodings {
		if enc.Matches(pkt) {
			return enc
		}
	}
	return nil
}

// Update routes the packet to the encoding it matches and merges it into that
// encoding's state. It returns the frame the packet changed, or nil when no
// encoding matched or the packet changed nothing.
func (t *Track) Update(pkt *rtp.Packet, now time.Time) *FrameDesc {
	enc := t.FindEncoding(pkt)
	if enc == nil {
		return nil
	}
	return enc.Update(pkt, now)
}

// temporalLayerID extracts the packet's temporal layer through the configured
// reader, or reports NoTemporalLayer when no reader is configured.
func (t *Track) temporalLayerID(pkt *rtp.Packet) int {
	if t.temporalLayers == nil {
		return NoTemporalLayer
	}
	return t.temporalLayers.TemporalLayerID(pkt)
}
