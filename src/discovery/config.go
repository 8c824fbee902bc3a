package discovery

import (
	"time"

	"github.com/mosaicnetworks/hastings/src/correlation"
	"github.com/mosaicnetworks/hastings/src/peers"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultSampleSize is the number of neighbours in a step.
	DefaultSampleSize = 5
	// DefaultStepTimeout is how long a probe may stay unanswered.
	DefaultStepTimeout = 2 * time.Second
	// DefaultTickInterval is the pause between two ticks of Run.
	DefaultTickInterval = 5 * time.Second
	// DefaultMaxHistoryDepth bounds the CareTaker.
	DefaultMaxHistoryDepth = 100
	// DefaultBurnIn is the number of discovered neighbours not persisted.
	DefaultBurnIn = 0
	// DefaultEventBuffer is the capacity of the lifecycle events channel.
	DefaultEventBuffer = 64
)

// Config parametrises a Walk.
type Config struct {
	// SampleSize is the number of candidate neighbours proposed per tick.
	SampleSize int

	// StepTimeout is the deadline of each probe, counted from dispatch.
	StepTimeout time.Duration

	// TickInterval is the pause Run takes between two ticks.
	TickInterval time.Duration

	// MaxHistoryDepth bounds the number of mementos kept for walking back.
	MaxHistoryDepth int

	// BurnIn is the number of responsive neighbours the walk must commit
	// before it starts persisting them in the peer store.
	BurnIn int

	// EventBuffer is the capacity of the lifecycle events channel.
	EventBuffer int

	// BootstrapPeers seed the walk and form the step it falls back to when the
	// history is exhausted.
	BootstrapPeers []*peers.Peer

	// Bootstrap adds the peers persisted in the store to the bootstrap pool.
	Bootstrap bool

	// Clock drives deadlines and tick intervals. Defaults to the real clock.
	Clock correlation.Clock

	Logger *logrus.Entry
}

// DefaultConfig returns a Config with the default values and no bootstrap
// peers.
func DefaultConfig() *Config {
	return &Config{
		SampleSize:      DefaultSampleSize,
		StepTimeout:     DefaultStepTimeout,
		TickInterval:    DefaultTickInterval,
		MaxHistoryDepth: DefaultMaxHistoryDepth,
		BurnIn:          DefaultBurnIn,
		EventBuffer:     DefaultEventBuffer,
	}
}

func (c *Config) clock() correlation.Clock {
	if c.Clock == nil {
		return correlation.NewRealClock()
	}
	return c.Clock
}

func (c *Config) logger() *logrus.Entry {
	if c.Logger == nil {
		l := logrus.New()
		l.Level = logrus.DebugLevel
		return logrus.NewEntry(l)
	}
	return c.Logger
}
