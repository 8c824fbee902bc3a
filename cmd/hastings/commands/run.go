package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/hastings/src/hastings"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//NewRunCmd returns the command that starts a Hastings node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runHastings,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runHastings(cmd *cobra.Command, args []string) error {
	engine := hastings.NewHastings(&_config.Hastings)

	if err := engine.Init(); err != nil {
		_config.Hastings.Logger().WithError(err).Error("Cannot initialize engine")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return engine.Run(ctx)
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("datadir", _config.Hastings.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.Hastings.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-dir", _config.LogDir, "Directory for info and debug log files")
	cmd.Flags().String("moniker", _config.Hastings.Moniker, "Optional name")

	// Network
	cmd.Flags().StringP("listen", "l", _config.Hastings.BindAddr, "Listen IP:Port for hastings node")
	cmd.Flags().StringP("advertise", "a", _config.Hastings.AdvertiseAddr, "Advertise IP:Port for hastings node")
	cmd.Flags().DurationP("timeout", "t", _config.Hastings.TCPTimeout, "TCP Timeout")
	cmd.Flags().Int("max-pool", _config.Hastings.MaxPool, "Connection pool size max")
	cmd.Flags().StringSlice("seed", _config.Hastings.Seeds, "Bootstrap peer as pubkey@address (repeatable)")

	// Service
	cmd.Flags().StringP("service-listen", "s", _config.Hastings.ServiceAddr, "Listen IP:Port for HTTP service")
	cmd.Flags().Bool("no-service", _config.Hastings.NoService, "Disable HTTP service")

	// Store
	cmd.Flags().Bool("store", _config.Hastings.Store, "Use badgerDB instead of in-mem DB")
	cmd.Flags().String("db", _config.Hastings.DatabaseDir, "Dabatabase directory")
	cmd.Flags().Bool("bootstrap", _config.Hastings.Bootstrap, "Add the peers of the database to the bootstrap pool")

	// Walk
	cmd.Flags().Int("sample-size", _config.Hastings.SampleSize, "Number of neighbours probed per step")
	cmd.Flags().Duration("step-timeout", _config.Hastings.StepTimeout, "Time a probe may stay unanswered")
	cmd.Flags().Duration("tick-interval", _config.Hastings.TickInterval, "Time between two steps")
	cmd.Flags().Int("max-history", _config.Hastings.MaxHistoryDepth, "Number of steps kept for walking back (0 for unbounded)")
	cmd.Flags().Int("burn-in", _config.Hastings.BurnIn, "Number of discovered neighbours not persisted")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.Hastings.SetDataDir(_config.Hastings.DataDir)

	_config.Hastings.SetLogger(newLogger(_config.Hastings.LogLevel, _config.LogDir))

	logFields := logrus.Fields{
		"hastings.DataDir":         _config.Hastings.DataDir,
		"hastings.BindAddr":        _config.Hastings.BindAddr,
		"hastings.AdvertiseAddr":   _config.Hastings.AdvertiseAddr,
		"hastings.ServiceAddr":     _config.Hastings.ServiceAddr,
		"hastings.NoService":       _config.Hastings.NoService,
		"hastings.MaxPool":         _config.Hastings.MaxPool,
		"hastings.Store":           _config.Hastings.Store,
		"hastings.LogLevel":        _config.Hastings.LogLevel,
		"hastings.Moniker":         _config.Hastings.Moniker,
		"hastings.TCPTimeout":      _config.Hastings.TCPTimeout,
		"hastings.SampleSize":      _config.Hastings.SampleSize,
		"hastings.StepTimeout":     _config.Hastings.StepTimeout,
		"hastings.TickInterval":    _config.Hastings.TickInterval,
		"hastings.MaxHistoryDepth": _config.Hastings.MaxHistoryDepth,
		"hastings.BurnIn":          _config.Hastings.BurnIn,
		"hastings.Seeds":           _config.Hastings.Seeds,
		"LogDir":                   _config.LogDir,
	}

	if _config.Hastings.Store {
		logFields["hastings.DatabaseDir"] = _config.Hastings.DatabaseDir
		logFields["hastings.Bootstrap"] = _config.Hastings.Bootstrap
	}

	_config.Hastings.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/hastings.toml (.json, .yaml also work)
	viper.SetConfigName("hastings")               // name of config file (without extension)
	viper.AddConfigPath(_config.Hastings.DataDir) // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.Hastings.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.Hastings.Logger().Debugf("No config file found in: %s", _config.Hastings.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
