package commands

import (
	"os"
	"path/filepath"

	"github.com/mosaicnetworks/hastings/src/config"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// newLogger creates the logger of the run command. When logDir is set, info
// and debug entries are also written to hastings_info.log and
// hastings_debug.log in that directory.
func newLogger(level string, logDir string) *logrus.Logger {
	logger := logrus.New()
	logger.Level = config.LogLevel(level)
	logger.Formatter = new(prefixed.TextFormatter)

	if logDir == "" {
		return logger
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		logger.WithError(err).Warn("Failed to create log directory, using default stderr")
		return logger
	}

	pathMap := lfshook.PathMap{}

	for lvl, name := range map[logrus.Level]string{
		logrus.InfoLevel:  "hastings_info.log",
		logrus.DebugLevel: "hastings_debug.log",
	} {
		p := filepath.Join(logDir, name)

		f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			logger.Infof("Failed to open %s, using default stderr", p)
			continue
		}
		f.Close()

		pathMap[lvl] = p
	}

	logger.Hooks.Add(lfshook.NewHook(
		pathMap,
		&logrus.TextFormatter{},
	))

	return logger
}
