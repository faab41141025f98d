package interceptor

import (
	"sync"

	"github.com/pion/rtp"
)

// packetPool is a sync.Pool for reusing rtp.Packet scratch objects.
// This reduces GC pressure when processing high volumes of RTP packets.
var packetPool = sync.Pool{
	New: func() any {
		return &rtp.Packet{}
	},
}

// getPacket retrieves a packet from the pool.
func getPacket() *rtp.Packet {
	return packetPool.Get().(*rtp.Packet)
}

// putPacket returns a packet to the pool after resetting its fields.
// This ensures the next Get() returns a clean object and drops any reference
// into the caller's read buffer.
func putPacket(pkt *rtp.Packet) {
	*pkt = rtp.Packet{}
	packetPool.Put(pkt)
}
