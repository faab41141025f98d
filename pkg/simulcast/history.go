package simulcast

import (
	"sort"
	"sync"

	"github.com/gammazero/deque"
)

// defaultHistoryCapacity bounds the number of frames retained per encoding.
const defaultHistoryCapacity = 300

// frameHistory is a bounded map from RTP timestamp to FrameDesc.
//
// It keeps two views of its contents: a slice sorted by raw timestamp value,
// used for the nearest-neighbor queries of the boundary heuristics, and an
// insertion-order queue driving eviction. When the capacity is exceeded the
// least recently inserted frame is dropped, regardless of its timestamp, so
// eviction order and timestamp order may diverge around a timestamp wrap.
//
// All operations take a single mutex; in particular lookupOrCreate is one
// atomic step so that two packets racing on a new timestamp cannot both
// create a frame.
type frameHistory struct {
	mu       sync.Mutex
	capacity int
	byTS     []*FrameDesc       // ascending by raw timestamp value
	order    deque.Deque[uint32] // insertion order, front is oldest
}

// newFrameHistory creates an empty history holding at most capacity frames.
// A non-positive capacity falls back to the default of 300.
func newFrameHistory(capacity int) *frameHistory {
	if capacity <= 0 {
		capacity = defaultHistoryCapacity
	}
	return &frameHistory{capacity: capacity}
}

// lookupOrCreate returns the frame stored for ts, creating and inserting it
// if absent. It reports whether a new frame was created. Creating a frame may
// evict the least recently inserted one.
func (h *frameHistory) lookupOrCreate(ts uint32) (frame *FrameDesc, created bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	i := h.search(ts)
	if i < len(h.byTS) && h.byTS[i].timestamp == ts {
		return h.byTS[i], false
	}

	frame = newFrameDesc(ts)
	h.byTS = append(h.byTS, nil)
	copy(h.byTS[i+1:], h.byTS[i:])
	h.byTS[i] = frame

	h.order.PushBack(ts)
	if h.order.Len() > h.capacity {
		h.removeLocked(h.order.PopFront())
	}

	return frame, true
}

// get returns the frame stored for ts, or nil.
func (h *frameHistory) get(ts uint32) *FrameDesc {
	h.mu.Lock()
	defer h.mu.Unlock()

	if i := h.search(ts); i < len(h.byTS) && h.byTS[i].timestamp == ts {
		return h.byTS[i]
	}
	return nil
}

// ceiling returns the frame with the smallest stored timestamp >= ts in raw
// uint32 ordering, or nil if no such frame exists.
func (h *frameHistory) ceiling(ts uint32) *FrameDesc {
	h.mu.Lock()
	defer h.mu.Unlock()

	if i := h.search(ts); i < len(h.byTS) {
		return h.byTS[i]
	}
	return nil
}

// floor returns the frame with the largest stored timestamp <= ts in raw
// uint32 ordering, or nil if no such frame exists.
func (h *frameHistory) floor(ts uint32) *FrameDesc {
	h.mu.Lock()
	defer h.mu.Unlock()

	i := h.search(ts)
	if i < len(h.byTS) && h.byTS[i].timestamp == ts {
		return h.byTS[i]
	}
	if i == 0 {
		return nil
	}
	return h.byTS[i-1]
}

// len returns the number of frames currently stored.
func (h *frameHistory) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.byTS)
}

// search returns the index of the first stored frame whose timestamp is
// >= ts. Callers must hold h.mu.
func (h *frameHistory) search(ts uint32) int {
	return sort.Search(len(h.byTS), func(i int) bool {
		return h.byTS[i].timestamp >= ts
	})
}

// removeLocked drops the frame stored for ts. Callers must hold h.mu.
func (h *frameHistory) removeLocked(ts uint32) {
	if i := h.search(ts); i < len(h.byTS) && h.byTS[i].timestamp == ts {
		h.byTS = append(h.byTS[:i], h.byTS[i+1:]...)
	}
}
