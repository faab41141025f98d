package simulcast

// quarterTimestampSpace is one quarter of the 32-bit RTP timestamp space.
// The boundary heuristics only compare frames whose timestamp distance is
// within half the space; anything beyond is ambiguous ordering.
const quarterTimestampSpace = uint32(1) << 30

// applyFrameBoundsHeuristics tries to pin the missing boundaries between two
// neighboring frames, where a is assumed to predate b.
//
// The heuristics only act when the sequence number arithmetic admits exactly
// one consistent interpretation. With snDiff the forward gap from a's highest
// observed sequence number to b's lowest:
//
//   - snDiff == 2: exactly one packet is missing between the frames' observed
//     brackets. It pins whichever boundary is unknown; when both are, the
//     older frame's end is preferred.
//   - snDiff == 3 with both boundaries unknown: exactly two packets are
//     missing, one per boundary, and both are pinned.
//
// Anything else either leaves the sentinels untouched for a later packet to
// resolve, or is reported as reordering/corruption through the encoding's
// logger without mutating any state. The corruption window depends on how
// many boundaries are known: with one boundary known, gaps outside
// [2, 0xFFFD] warn; with both unknown, a backward step of three or more
// (snDiff > 0xFFFC) already does.
func (e *Encoding) applyFrameBoundsHeuristics(a, b *FrameDesc) {
	end, start := a.End(), b.Start()
	if end != NoSeqNum && start != NoSeqNum {
		// No need for heuristics.
		return
	}

	tsDiff := timestampDiff(b.timestamp, a.timestamp)
	if tsDiff > quarterTimestampSpace && tsDiff < 3*quarterTimestampSpace {
		// The distance (mod 2^32) between the two timestamps needs to be
		// less than half the timestamp space.
		return
	}
	if tsDiff >= 3*quarterTimestampSpace {
		e.log.Warnf("frames that are out of order detected, encoding=%d ts=%d..%d",
			e.index, a.timestamp, b.timestamp)
		return
	}

	min, max := b.MinSeen(), a.MaxSeen()
	snDiff := seqNumGap(min, max)

	if end != NoSeqNum || start != NoSeqNum {
		switch {
		case snDiff == 2:
			// Exactly one packet is missing between the brackets; it must
			// be the boundary still unknown.
			if end == NoSeqNum {
				a.setEnd(uint16(max + 1))
			} else {
				b.setStart(uint16(min - 1))
			}
		case snDiff < 2 || snDiff > 0xFFFD:
			// Overlapping or inverted brackets for frames whose timestamps
			// say a precedes b.
			e.warnCorruption(snDiff)
		}
		return
	}

	switch {
	case snDiff == 2:
		// One packet missing and both boundaries unknown; it is credited
		// to the older frame's end.
		a.setEnd(uint16(max + 1))
	case snDiff == 3:
		// Exactly two packets are missing, one per boundary.
		a.setEnd(uint16(max + 1))
		b.setStart(uint16(min - 1))
	case snDiff < 2 || snDiff > 0xFFFC:
		// The both-unknown case tolerates one fewer inverted step than the
		// one-boundary-known case before flagging corruption.
		e.warnCorruption(snDiff)
	}
}

func (e *Encoding) warnCorruption(snDiff int) {
	e.log.Warnf("frame corruption or packets that are out of order detected, encoding=%d sn_diff=%d",
		e.index, snDiff)
}
