package config

import (
	"crypto/ecdsa"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/hastings/src/common"
	"github.com/mosaicnetworks/hastings/src/discovery"
	"github.com/mosaicnetworks/hastings/src/peers"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultKeyfile is the default name of the file containing the node's
	// private key
	DefaultKeyfile = "priv_key"

	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"
)

// Default configuration values.
const (
	DefaultLogLevel        = "debug"
	DefaultBindAddr        = "127.0.0.1:1337"
	DefaultServiceAddr     = "127.0.0.1:8000"
	DefaultTCPTimeout      = 1000 * time.Millisecond
	DefaultMaxPool         = 2
	DefaultStore           = false
	DefaultBootstrap       = false
	DefaultNoService       = false
	DefaultSampleSize      = discovery.DefaultSampleSize
	DefaultStepTimeout     = discovery.DefaultStepTimeout
	DefaultTickInterval    = discovery.DefaultTickInterval
	DefaultMaxHistoryDepth = discovery.DefaultMaxHistoryDepth
	DefaultBurnIn          = discovery.DefaultBurnIn
)

// Config contains all the configuration properties of a Hastings node.
type Config struct {
	// DataDir is the top-level directory containing Hastings configuration and
	// data
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// BindAddr is the local address:port where this node answers probes from
	// other nodes. Use AdvertiseAddr if the routable address differs from the
	// bound one.
	BindAddr string `mapstructure:"listen"`

	// AdvertiseAddr is used to change the address that we advertise to other
	// nodes.
	AdvertiseAddr string `mapstructure:"advertise"`

	// NoService disables the HTTP API service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the optional HTTP service.
	ServiceAddr string `mapstructure:"service-listen"`

	// MaxPool controls how many connections are pooled per target.
	MaxPool int `mapstructure:"max-pool"`

	// TCPTimeout is the timeout of RPC connections.
	TCPTimeout time.Duration `mapstructure:"timeout"`

	// Store activates persistant storage of discovered peers.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// Bootstrap adds the peers recorded in the database to the bootstrap pool.
	// Forces Store.
	Bootstrap bool `mapstructure:"bootstrap"`

	// Moniker defines the friendly name of this node
	Moniker string `mapstructure:"moniker"`

	// SampleSize is the number of neighbours probed at each step of the walk.
	SampleSize int `mapstructure:"sample-size"`

	// StepTimeout is how long a step waits for its probes before the
	// unanswered ones are marked unresponsive.
	StepTimeout time.Duration `mapstructure:"step-timeout"`

	// TickInterval is the period of the walk.
	TickInterval time.Duration `mapstructure:"tick-interval"`

	// MaxHistoryDepth bounds the number of accepted steps kept for walking
	// back. Zero or less keeps everything.
	MaxHistoryDepth int `mapstructure:"max-history"`

	// BurnIn is the number of discovered neighbours that are not persisted
	// before the walk has mixed.
	BurnIn int `mapstructure:"burn-in"`

	// Seeds are bootstrap peers given as pubkey@address. They are added to the
	// peers found in peers.json.
	Seeds []string `mapstructure:"seed"`

	// Key is the private key of the node.
	Key *ecdsa.PrivateKey

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:         DefaultDataDir(),
		LogLevel:        DefaultLogLevel,
		BindAddr:        DefaultBindAddr,
		ServiceAddr:     DefaultServiceAddr,
		NoService:       DefaultNoService,
		TCPTimeout:      DefaultTCPTimeout,
		MaxPool:         DefaultMaxPool,
		Store:           DefaultStore,
		DatabaseDir:     DefaultDatabaseDir(),
		Bootstrap:       DefaultBootstrap,
		SampleSize:      DefaultSampleSize,
		StepTimeout:     DefaultStepTimeout,
		TickInterval:    DefaultTickInterval,
		MaxHistoryDepth: DefaultMaxHistoryDepth,
		BurnIn:          DefaultBurnIn,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level Hastings directory, and updates the database
// directory if it is currently set to the default value. If the database
// directory is not currently the default, it means the user has explicitely set
// it to something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// Keyfile returns the full path of the file containing the private key.
func (c *Config) Keyfile() string {
	return filepath.Join(c.DataDir, DefaultKeyfile)
}

// SeedPeers parses the Seeds option.
func (c *Config) SeedPeers() ([]*peers.Peer, error) {
	res := make([]*peers.Peer, 0, len(c.Seeds))
	for _, s := range c.Seeds {
		p, err := peers.ParseSeed(s)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}

// SetLogger overrides the logger returned by Logger.
func (c *Config) SetLogger(logger *logrus.Logger) {
	c.logger = logger
}

// Logger returns a formatted logrus Entry, with prefix set to "hastings".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
	}
	return c.logger.WithField("prefix", "hastings")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level Hastings
// config based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Hastings")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Hastings")
		} else {
			return filepath.Join(home, ".hastings")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
