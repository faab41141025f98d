package interceptor

import (
	"testing"
	"time"

	"github.com/pion/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTrackerInterceptorFactory_OptionErrors(t *testing.T) {
	tests := []struct {
		name string
		opt  FactoryOption
	}{
		{"nil track", WithFactoryTrack(nil)},
		{"zero timeout", WithFactoryPacketTimeout(0)},
		{"negative timeout", WithFactoryPacketTimeout(-time.Second)},
		{"nil logger factory", WithFactoryLoggerFactory(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTrackerInterceptorFactory(tt.opt)
			assert.Error(t, err)
		})
	}
}

func TestTrackerInterceptorFactory_NewInterceptor(t *testing.T) {
	track := newTestTrack(t, 100)

	factory, err := NewTrackerInterceptorFactory(
		WithFactoryTrack(track),
		WithFactoryPacketTimeout(time.Second),
		WithFactoryLoggerFactory(logging.NewDefaultLoggerFactory()),
	)
	require.NoError(t, err)

	created, err := factory.NewInterceptor("")
	require.NoError(t, err)

	i, ok := created.(*TrackerInterceptor)
	require.True(t, ok)
	defer func() { assert.NoError(t, i.Close()) }()

	assert.Equal(t, time.Second, i.packetTimeout)
	require.Len(t, i.tracks, 1)
	assert.Same(t, track, i.tracks[0])
}

func TestTrackerInterceptorFactory_Defaults(t *testing.T) {
	factory, err := NewTrackerInterceptorFactory()
	require.NoError(t, err)

	created, err := factory.NewInterceptor("")
	require.NoError(t, err)

	i := created.(*TrackerInterceptor)
	defer func() { assert.NoError(t, i.Close()) }()

	assert.Equal(t, defaultPacketTimeout, i.packetTimeout)
	assert.Empty(t, i.tracks)
}
