// Package simulcast tracks the per-encoding receive state of a simulcast/SVC
// media track: frame boundaries reconstructed from RTP sequence numbers, a
// windowed bitrate estimate per encoding, and bitrate aggregation across the
// encoding dependency graph.
package simulcast

import (
	"sync"
	"time"
)

// RateStatsConfig configures the sliding window bitrate measurement.
type RateStatsConfig struct {
	// WindowSize is the duration of the sliding window for rate calculation.
	// Default: 5 seconds.
	WindowSize time.Duration
}

// DefaultRateStatsConfig returns default configuration for rate statistics.
func DefaultRateStatsConfig() RateStatsConfig {
	return RateStatsConfig{
		WindowSize: 5 * time.Second,
	}
}

// rateSample represents a single byte count measurement at a point in time.
type rateSample struct {
	timestamp time.Time
	bytes     int64
}

// RateStats tracks incoming bitrate over a sliding time window.
// The rate is the number of bits received within the window averaged over the
// full window duration, so it decays towards zero as samples age out.
//
// RateStats is safe for concurrent use: packet delivery threads call Update
// while dependency aggregation reads Rate from other goroutines.
//
// Usage:
//
//	r := NewRateStats(DefaultRateStatsConfig())
//	r.Update(packetSize, arrivalTime)
//	bps := r.Rate(time.Now())
type RateStats struct {
	mu         sync.Mutex
	windowSize time.Duration
	samples    []rateSample
	totalBytes int64
}

// NewRateStats creates a new rate statistics tracker with the given configuration.
// A non-positive window size falls back to the default.
func NewRateStats(config RateStatsConfig) *RateStats {
	windowSize := config.WindowSize
	if windowSize <= 0 {
		windowSize = DefaultRateStatsConfig().WindowSize
	}
	return &RateStats{
		windowSize: windowSize,
		samples:    make([]rateSample, 0, 64), // Pre-allocate for typical packet rates
	}
}

// Update adds a new byte count sample at the given time.
// Call this for each received packet with the packet size.
//
// Samples that have aged beyond the sliding window are dropped. If called
// after a gap larger than the window size, all previous samples are removed.
func (r *RateStats) Update(bytes int64, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeExpired(now)

	r.samples = append(r.samples, rateSample{
		timestamp: now,
		bytes:     bytes,
	})
	r.totalBytes += bytes
}

// Rate returns the current bitrate in bits per second: the bytes accumulated
// within the trailing window, averaged over the full window duration.
// Returns 0 when no samples remain in the window.
func (r *RateStats) Rate(now time.Time) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeExpired(now)

	if len(r.samples) == 0 {
		return 0
	}

	return int64(float64(r.totalBytes*8) / r.windowSize.Seconds())
}

// Reset clears all samples and accumulated state.
func (r *RateStats) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.samples = r.samples[:0] // Keep capacity, clear contents
	r.totalBytes = 0
}

// removeExpired removes all samples older than windowSize from now.
// Callers must hold r.mu.
func (r *RateStats) removeExpired(now time.Time) {
	cutoff := now.Add(-r.windowSize)

	expiredCount := 0
	for i, s := range r.samples {
		if !s.timestamp.Before(cutoff) {
			break
		}
		r.totalBytes -= s.bytes
		expiredCount = i + 1
	}

	if expiredCount > 0 {
		r.samples = r.samples[expiredCount:]
	}
}
