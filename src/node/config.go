package node

import (
	"testing"
	"time"

	"github.com/mosaicnetworks/hastings/src/common"
	"github.com/mosaicnetworks/hastings/src/correlation"
	"github.com/mosaicnetworks/hastings/src/discovery"
	"github.com/mosaicnetworks/hastings/src/peers"
	"github.com/sirupsen/logrus"
)

// Config contains the parameters of a Node and of the walk it runs.
type Config struct {
	SampleSize      int           `mapstructure:"sample-size"`
	StepTimeout     time.Duration `mapstructure:"step-timeout"`
	TickInterval    time.Duration `mapstructure:"tick-interval"`
	MaxHistoryDepth int           `mapstructure:"max-history"`
	BurnIn          int           `mapstructure:"burn-in"`
	Bootstrap       bool          `mapstructure:"bootstrap"`
	Seeds           []*peers.Peer
	Clock           correlation.Clock
	Logger          *logrus.Logger
}

// NewConfig ...
func NewConfig(sampleSize int,
	stepTimeout time.Duration,
	tickInterval time.Duration,
	maxHistory int,
	burnIn int,
	logger *logrus.Logger) *Config {

	return &Config{
		SampleSize:      sampleSize,
		StepTimeout:     stepTimeout,
		TickInterval:    tickInterval,
		MaxHistoryDepth: maxHistory,
		BurnIn:          burnIn,
		Logger:          logger,
	}
}

// DefaultConfig ...
func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel

	return &Config{
		SampleSize:      discovery.DefaultSampleSize,
		StepTimeout:     discovery.DefaultStepTimeout,
		TickInterval:    discovery.DefaultTickInterval,
		MaxHistoryDepth: discovery.DefaultMaxHistoryDepth,
		BurnIn:          discovery.DefaultBurnIn,
		Logger:          logger,
	}
}

// TestConfig returns a Config with short timeouts that logs through t.
func TestConfig(t testing.TB) *Config {
	config := DefaultConfig()
	config.StepTimeout = 300 * time.Millisecond
	config.TickInterval = 20 * time.Millisecond
	config.Logger = common.NewTestLogger(t, common.TestLogLevel)
	return config
}

func (c *Config) walkConfig(logger *logrus.Entry) *discovery.Config {
	wc := discovery.DefaultConfig()
	wc.SampleSize = c.SampleSize
	wc.StepTimeout = c.StepTimeout
	wc.TickInterval = c.TickInterval
	wc.MaxHistoryDepth = c.MaxHistoryDepth
	wc.BurnIn = c.BurnIn
	wc.Bootstrap = c.Bootstrap
	wc.BootstrapPeers = c.Seeds
	wc.Clock = c.Clock
	wc.Logger = logger
	return wc
}
