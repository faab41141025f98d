package interceptor

import (
	"errors"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/logging"

	"github.com/thesyncim/simulcast/pkg/simulcast"
)

// FactoryOption configures the TrackerInterceptorFactory.
type FactoryOption func(*TrackerInterceptorFactory) error

// TrackerInterceptorFactory creates TrackerInterceptor instances for each
// PeerConnection. Register this factory with the interceptor registry to
// track encoding state on incoming streams.
type TrackerInterceptorFactory struct {
	tracks        []*simulcast.Track
	packetTimeout time.Duration
	loggerFactory logging.LoggerFactory
}

// WithFactoryTrack registers a track that every created interceptor feeds.
func WithFactoryTrack(track *simulcast.Track) FactoryOption {
	return func(f *TrackerInterceptorFactory) error {
		if track == nil {
			return errors.New("track must not be nil")
		}
		f.tracks = append(f.tracks, track)
		return nil
	}
}

// WithFactoryPacketTimeout sets how long encodings stay active after the
// last packet on their SSRC. Default: 2 seconds.
func WithFactoryPacketTimeout(d time.Duration) FactoryOption {
	return func(f *TrackerInterceptorFactory) error {
		if d <= 0 {
			return errors.New("packet timeout must be positive")
		}
		f.packetTimeout = d
		return nil
	}
}

// WithFactoryLoggerFactory sets the logger factory used for diagnostics.
func WithFactoryLoggerFactory(factory logging.LoggerFactory) FactoryOption {
	return func(f *TrackerInterceptorFactory) error {
		if factory == nil {
			return errors.New("logger factory must not be nil")
		}
		f.loggerFactory = factory
		return nil
	}
}

// NewTrackerInterceptorFactory creates a new factory for TrackerInterceptor
// instances. Configure the factory using FactoryOption functions.
//
// Example:
//
//	factory, err := NewTrackerInterceptorFactory(
//	    WithFactoryTrack(track),
//	    WithFactoryPacketTimeout(time.Second),
//	)
//	if err != nil {
//	    return err
//	}
//	registry.Add(factory)
func NewTrackerInterceptorFactory(opts ...FactoryOption) (*TrackerInterceptorFactory, error) {
	f := &TrackerInterceptorFactory{
		packetTimeout: defaultPacketTimeout,
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// NewInterceptor creates a new TrackerInterceptor for a PeerConnection.
// This method is called by the interceptor registry when setting up a
// connection.
func (f *TrackerInterceptorFactory) NewInterceptor(_ string) (interceptor.Interceptor, error) {
	opts := []InterceptorOption{
		WithPacketTimeout(f.packetTimeout),
	}
	for _, track := range f.tracks {
		opts = append(opts, WithTrack(track))
	}
	if f.loggerFactory != nil {
		opts = append(opts, WithLoggerFactory(f.loggerFactory))
	}

	return NewTrackerInterceptor(opts...), nil
}
