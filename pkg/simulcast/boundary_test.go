package simulcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestEncoding builds a single-layer encoding with a capturing logger.
func newTestEncoding(t *testing.T) (*Encoding, *captureLogger) {
	t.Helper()

	factory := newCaptureLoggerFactory()
	track, err := NewTrack(TrackConfig{
		Encodings: []EncodingConfig{
			{PrimarySSRC: 0xCAFE, TemporalID: NoTemporalLayer},
		},
		LoggerFactory: factory,
	})
	require.NoError(t, err)

	return track.Encoding(0), factory.logger
}

// frameWithBracket builds a frame that has seen the packets from lo to hi.
func frameWithBracket(ts uint32, lo, hi uint16) *FrameDesc {
	f := newFrameDesc(ts)
	f.update(lo, false)
	f.update(hi, false)
	return f
}

func TestBoundaryHeuristics_GapOfTwo_PrefersOlderEnd(t *testing.T) {
	enc, log := newTestEncoding(t)

	a := frameWithBracket(1000, 8, 10)
	b := frameWithBracket(4000, 12, 14)

	enc.applyFrameBoundsHeuristics(a, b)

	assert.Equal(t, int32(11), a.End(), "the single missing packet is credited to the older frame's end")
	assert.Equal(t, NoSeqNum, b.Start(), "the newer frame's start stays unknown")
	assert.Empty(t, log.Warnings())
}

func TestBoundaryHeuristics_GapOfTwo_FillsNewerStartWhenEndKnown(t *testing.T) {
	enc, log := newTestEncoding(t)

	a := frameWithBracket(1000, 8, 10)
	a.setEnd(10)
	b := frameWithBracket(4000, 12, 14)

	enc.applyFrameBoundsHeuristics(a, b)

	assert.Equal(t, int32(10), a.End())
	assert.Equal(t, int32(11), b.Start(), "with the older end known the missing packet must start the newer frame")
	assert.Empty(t, log.Warnings())
}

func TestBoundaryHeuristics_GapOfThree_FillsBoth(t *testing.T) {
	enc, log := newTestEncoding(t)

	a := frameWithBracket(1000, 8, 10)
	b := frameWithBracket(4000, 13, 14)

	enc.applyFrameBoundsHeuristics(a, b)

	assert.Equal(t, int32(11), a.End())
	assert.Equal(t, int32(12), b.Start())
	assert.Empty(t, log.Warnings())
}

func TestBoundaryHeuristics_GapOfThree_OneKnownStaysUnresolved(t *testing.T) {
	enc, log := newTestEncoding(t)

	a := frameWithBracket(1000, 8, 10)
	a.setEnd(10)
	b := frameWithBracket(4000, 13, 14)

	enc.applyFrameBoundsHeuristics(a, b)

	assert.Equal(t, NoSeqNum, b.Start(),
		"two missing packets with one boundary known admit several interpretations")
	assert.Empty(t, log.Warnings())
}

func TestBoundaryHeuristics_NoOpWhenAlreadyBounded(t *testing.T) {
	enc, log := newTestEncoding(t)

	a := frameWithBracket(1000, 8, 10)
	a.setEnd(10)
	b := frameWithBracket(4000, 12, 14)
	b.setStart(12)

	enc.applyFrameBoundsHeuristics(a, b)

	assert.Equal(t, int32(10), a.End())
	assert.Equal(t, int32(12), b.Start())
	assert.Empty(t, log.Warnings())
}

func TestBoundaryHeuristics_AmbiguousTimestampDistance(t *testing.T) {
	enc, log := newTestEncoding(t)

	// Exactly half the timestamp space away: ordering is ambiguous.
	a := frameWithBracket(0, 8, 10)
	b := frameWithBracket(1<<31, 12, 14)

	enc.applyFrameBoundsHeuristics(a, b)

	assert.Equal(t, NoSeqNum, a.End(), "ambiguous ordering must not mutate state")
	assert.Equal(t, NoSeqNum, b.Start())
	assert.Empty(t, log.Warnings())
}

func TestBoundaryHeuristics_OutOfOrderFramesWarn(t *testing.T) {
	enc, log := newTestEncoding(t)

	// b's timestamp is behind a's by a quarter of the space: the "far" check
	// flags the pair as out of order.
	a := frameWithBracket(1<<30, 8, 10)
	b := frameWithBracket(0, 12, 14)

	enc.applyFrameBoundsHeuristics(a, b)

	assert.Equal(t, NoSeqNum, a.End())
	assert.Equal(t, NoSeqNum, b.Start())
	require.Len(t, log.Warnings(), 1)
	assert.Contains(t, log.Warnings()[0], "out of order")
}

func TestBoundaryHeuristics_AdjacentBracketsWarn(t *testing.T) {
	enc, log := newTestEncoding(t)

	// No room for a missing packet between the brackets.
	a := frameWithBracket(1000, 8, 10)
	b := frameWithBracket(4000, 11, 14)

	enc.applyFrameBoundsHeuristics(a, b)

	assert.Equal(t, NoSeqNum, a.End())
	assert.Equal(t, NoSeqNum, b.Start())
	require.Len(t, log.Warnings(), 1)
	assert.Contains(t, log.Warnings()[0], "corruption")
}

func TestBoundaryHeuristics_OverlappingBracketsWarn(t *testing.T) {
	enc, log := newTestEncoding(t)

	// The newer frame's bracket starts below the older frame's: corrupt.
	a := frameWithBracket(1000, 8, 12)
	b := frameWithBracket(4000, 10, 14)

	enc.applyFrameBoundsHeuristics(a, b)

	assert.Equal(t, NoSeqNum, a.End())
	assert.Equal(t, NoSeqNum, b.Start())
	require.Len(t, log.Warnings(), 1)
	assert.Contains(t, log.Warnings()[0], "corruption")
}

func TestBoundaryHeuristics_LargeGapStaysSilent(t *testing.T) {
	enc, log := newTestEncoding(t)

	// A burst of loss: too many missing packets to attribute to boundaries,
	// but nothing indicates corruption either.
	a := frameWithBracket(1000, 8, 10)
	b := frameWithBracket(4000, 30, 34)

	enc.applyFrameBoundsHeuristics(a, b)

	assert.Equal(t, NoSeqNum, a.End())
	assert.Equal(t, NoSeqNum, b.Start())
	assert.Empty(t, log.Warnings())
}

func TestBoundaryHeuristics_InvertedBracketWarnWindows(t *testing.T) {
	// A backward step of three (snDiff 0xFFFD) is corruption only when both
	// boundaries are unknown; with one boundary known it stays silent.
	t.Run("both unknown warns", func(t *testing.T) {
		enc, log := newTestEncoding(t)

		a := frameWithBracket(1000, 5, 10)
		b := frameWithBracket(4000, 7, 8)

		enc.applyFrameBoundsHeuristics(a, b)

		assert.Equal(t, NoSeqNum, a.End())
		assert.Equal(t, NoSeqNum, b.Start())
		require.Len(t, log.Warnings(), 1)
		assert.Contains(t, log.Warnings()[0], "corruption")
	})

	t.Run("one known stays silent", func(t *testing.T) {
		enc, log := newTestEncoding(t)

		a := frameWithBracket(1000, 5, 10)
		a.setEnd(10)
		b := frameWithBracket(4000, 7, 8)

		enc.applyFrameBoundsHeuristics(a, b)

		assert.Equal(t, NoSeqNum, b.Start())
		assert.Empty(t, log.Warnings())
	})
}

func TestBoundaryHeuristics_GapAcrossSequenceWrap(t *testing.T) {
	enc, log := newTestEncoding(t)

	// a ends just below the wrap, b starts just above it: gap of 2 packets
	// in modular space.
	a := frameWithBracket(1000, 65530, 65535)
	b := frameWithBracket(4000, 1, 3)

	enc.applyFrameBoundsHeuristics(a, b)

	assert.Equal(t, int32(0), a.End(), "the missing packet is seq 0, across the wrap")
	assert.Equal(t, NoSeqNum, b.Start())
	assert.Empty(t, log.Warnings())
}
