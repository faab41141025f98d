// Soak test runner for long-duration tracker testing.
//
// This tool feeds a synthetic three-layer simulcast track with lossy,
// occasionally reordered RTP traffic and monitors the per-encoding trackers
// for memory leaks, timestamp wraparound failures, and bitrate anomalies over
// extended periods (up to 24 hours or more).
//
// Usage:
//
//	go run ./cmd/soak -duration 24h
//	go run ./cmd/soak -duration 1h  # shorter test
//
// Exposes pprof endpoint at :6060 for live profiling:
//
//	curl http://localhost:6060/debug/pprof/heap > heap.pprof
//	go tool pprof heap.pprof
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // Enable pprof endpoints
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/pion/rtp"

	"github.com/thesyncim/simulcast/pkg/simulcast"
)

const (
	packetsPerFrame       = 4
	frameIntervalMs       = 33 // ~30 fps
	clockRate             = 90000
	lossProbability       = 0.01
	reorderProbability    = 0.005
	statusIntervalMinutes = 5
)

// layerSim generates the packet stream of one simulcast layer.
type layerSim struct {
	ssrc       uint32
	packetSize int
	seq        uint16
	timestamp  uint32
}

// SoakResult contains the results of a soak test run.
type SoakResult struct {
	Duration         time.Duration
	TotalPackets     int
	DroppedPackets   int
	FinalBitrate     int64
	PeakHeapMB       float64
	TotalGCCycles    uint32
	WraparoundCount  int
	SuspiciousEvents int
	Status           string
}

func main() {
	duration := flag.Duration("duration", 24*time.Hour, "Test duration (e.g., 1h, 24h)")
	pprofPort := flag.Int("pprof-port", 6060, "Port for pprof HTTP server")
	flag.Parse()

	fmt.Printf("Simulcast Tracker Soak Test Runner\n")
	fmt.Printf("==================================\n")
	fmt.Printf("Duration: %v\n", *duration)
	fmt.Printf("Pprof:    http://localhost:%d/debug/pprof/\n", *pprofPort)
	fmt.Printf("\n")

	// Start pprof server in background
	go func() {
		addr := fmt.Sprintf(":%d", *pprofPort)
		if err := http.ListenAndServe(addr, nil); err != nil {
			fmt.Printf("Warning: pprof server failed: %v\n", err)
		}
	}()

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived %v, shutting down gracefully...\n", sig)
		cancel()
	}()

	result := runSoakTest(ctx, *duration)

	printSummary(result)

	if result.Status == "PASS" {
		os.Exit(0)
	}
	os.Exit(1)
}

func runSoakTest(ctx context.Context, duration time.Duration) SoakResult {
	// Three-layer simulcast chain: each layer depends on the one below it.
	track, err := simulcast.NewTrack(simulcast.TrackConfig{
		Encodings: []simulcast.EncodingConfig{
			{PrimarySSRC: 0x10000001, TemporalID: simulcast.NoTemporalLayer},
			{PrimarySSRC: 0x10000002, TemporalID: simulcast.NoTemporalLayer, Dependencies: []int{0}},
			{PrimarySSRC: 0x10000003, TemporalID: simulcast.NoTemporalLayer, Dependencies: []int{1}},
		},
	})
	if err != nil {
		fmt.Printf("ERROR: track setup failed: %v\n", err)
		return SoakResult{Status: "FAIL"}
	}

	layers := []*layerSim{
		{ssrc: 0x10000001, packetSize: 300},
		{ssrc: 0x10000002, packetSize: 700},
		{ssrc: 0x10000003, packetSize: 1200},
	}
	top := track.Encoding(2)

	result := SoakResult{
		Status: "PASS",
	}

	var memStats runtime.MemStats
	rng := rand.New(rand.NewSource(1)) // reproducible traffic pattern

	startTime := time.Now()
	lastStatusTime := startTime
	statusInterval := time.Duration(statusIntervalMinutes) * time.Minute

	ticker := time.NewTicker(frameIntervalMs * time.Millisecond)
	defer ticker.Stop()

	fmt.Printf("[%s] Starting soak test...\n", formatDuration(time.Duration(0)))

	for {
		select {
		case <-ctx.Done():
			result.Duration = time.Since(startTime)
			return result

		case now := <-ticker.C:
			elapsed := now.Sub(startTime)

			if elapsed >= duration {
				result.Duration = elapsed
				return result
			}

			// One frame per layer per tick
			for _, layer := range layers {
				prevTS := layer.timestamp
				layer.timestamp += clockRate * frameIntervalMs / 1000
				if layer.timestamp < prevTS {
					result.WraparoundCount++
				}

				for p := 0; p < packetsPerFrame; p++ {
					seq := layer.seq
					layer.seq++

					if rng.Float64() < lossProbability {
						result.DroppedPackets++
						continue
					}

					pkt := &rtp.Packet{
						Header: rtp.Header{
							SSRC:           layer.ssrc,
							SequenceNumber: seq,
							Timestamp:      layer.timestamp,
							Marker:         p == packetsPerFrame-1,
						},
						Payload: make([]byte, layer.packetSize),
					}

					at := now
					if rng.Float64() < reorderProbability {
						// Deliver slightly late to exercise the reorder paths.
						at = now.Add(time.Millisecond)
					}

					track.Update(pkt, at)
					result.TotalPackets++
				}
			}

			bitrate := top.BitrateBps(now)
			result.FinalBitrate = bitrate

			if bitrate < 0 {
				fmt.Printf("[%s] ERROR: negative bitrate: %d\n", formatDuration(elapsed), bitrate)
				result.SuspiciousEvents++
				result.Status = "FAIL"
			}
			if elapsed > 10*time.Second && bitrate == 0 {
				fmt.Printf("[%s] WARNING: zero aggregate bitrate under load\n", formatDuration(elapsed))
				result.SuspiciousEvents++
			}

			// Periodic status output
			if now.Sub(lastStatusTime) >= statusInterval {
				lastStatusTime = now
				runtime.ReadMemStats(&memStats)

				heapMB := float64(memStats.HeapAlloc) / (1024 * 1024)
				if heapMB > result.PeakHeapMB {
					result.PeakHeapMB = heapMB
				}
				result.TotalGCCycles = memStats.NumGC

				fmt.Printf("[%s] Packets: %d, Aggregate: %.2f Mbps, Stable: %.2f Mbps, HeapAlloc: %.2f MB, NumGC: %d\n",
					formatDuration(elapsed),
					result.TotalPackets,
					float64(bitrate)/1e6,
					float64(top.LastStableBitrate())/1e6,
					heapMB,
					memStats.NumGC)

				// Memory limit check (100 MB). The frame histories are
				// bounded at 300 entries each, so heap growth means a leak.
				if heapMB > 100 {
					fmt.Printf("[%s] ERROR: Memory limit exceeded: %.2f MB\n", formatDuration(elapsed), heapMB)
					result.Status = "FAIL"
				}
			}
		}
	}
}

func printSummary(result SoakResult) {
	fmt.Printf("\n")
	fmt.Printf("Soak Test Complete\n")
	fmt.Printf("==================\n")
	fmt.Printf("Duration:          %v\n", result.Duration.Round(time.Second))
	fmt.Printf("Total packets:     %d\n", result.TotalPackets)
	fmt.Printf("Dropped packets:   %d\n", result.DroppedPackets)
	fmt.Printf("Final aggregate:   %.2f Mbps\n", float64(result.FinalBitrate)/1e6)
	fmt.Printf("Peak HeapAlloc:    %.2f MB\n", result.PeakHeapMB)
	fmt.Printf("Total GC cycles:   %d\n", result.TotalGCCycles)
	fmt.Printf("Wraparounds:       %d\n", result.WraparoundCount)
	fmt.Printf("Suspicious events: %d\n", result.SuspiciousEvents)
	fmt.Printf("Status:            %s\n", result.Status)
	fmt.Printf("\n")

	fmt.Printf("Pass Criteria:\n")
	fmt.Printf("  - No panics:            %s\n", checkMark(true))
	fmt.Printf("  - Final aggregate > 0:  %s\n", checkMark(result.FinalBitrate > 0))
	fmt.Printf("  - Peak memory < 100 MB: %s\n", checkMark(result.PeakHeapMB < 100))
	fmt.Printf("  - No bitrate anomalies: %s\n", checkMark(result.SuspiciousEvents == 0))
}

func formatDuration(d time.Duration) string {
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func checkMark(pass bool) string {
	if pass {
		return "PASS"
	}
	return "FAIL"
}
