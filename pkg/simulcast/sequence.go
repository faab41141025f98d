package simulcast

// RTP sequence numbers are 16 bits and RTP timestamps are 32 bits; both wrap
// around. Comparisons in this package therefore happen in modular space using
// half-range reasoning: two values are ordered by the sign of their difference
// reinterpreted as a signed integer of the same width.

// seqNumDiff computes the signed distance from b to a in 16-bit modular space.
//
// The result is positive when a is ahead of b, negative when a is behind b,
// correctly handling wraparound at 65535 as long as the true distance is less
// than half the sequence number space.
func seqNumDiff(a, b uint16) int {
	return int(int16(a - b))
}

// seqNumGap returns the forward distance from b to a modulo 2^16, computed as
// (a - b) & 0xFFFF. Unlike seqNumDiff the result is always in [0, 65535].
func seqNumGap(a, b int32) int {
	return int((a - b) & 0xFFFF)
}

// timestampDiff returns the forward distance from a to b modulo 2^32.
func timestampDiff(b, a uint32) uint32 {
	return b - a
}
