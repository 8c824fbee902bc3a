package config

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestSetDataDir(t *testing.T) {
	conf := NewDefaultConfig()

	conf.SetDataDir("/tmp/hastings_test")

	if conf.DatabaseDir != filepath.Join("/tmp/hastings_test", DefaultBadgerFile) {
		t.Fatalf("DatabaseDir should follow DataDir, got %s", conf.DatabaseDir)
	}

	if conf.Keyfile() != filepath.Join("/tmp/hastings_test", DefaultKeyfile) {
		t.Fatalf("Keyfile should be in DataDir, got %s", conf.Keyfile())
	}

	// an explicit DatabaseDir is not overwritten
	conf.DatabaseDir = "/var/db"
	conf.SetDataDir("/tmp/other")
	if conf.DatabaseDir != "/var/db" {
		t.Fatalf("DatabaseDir should not change, got %s", conf.DatabaseDir)
	}
}

func TestSeedPeers(t *testing.T) {
	conf := NewDefaultConfig()
	conf.Seeds = []string{
		"0X04AA@127.0.0.1:1337",
		"0X04BB@/ip4/10.0.0.2/tcp/1338",
	}

	seeds, err := conf.SeedPeers()
	if err != nil {
		t.Fatal(err)
	}

	if len(seeds) != 2 {
		t.Fatalf("expected 2 seeds, got %d", len(seeds))
	}

	if seeds[1].NetAddr != "10.0.0.2:1338" {
		t.Fatalf("seeds[1].NetAddr should be 10.0.0.2:1338, not %s", seeds[1].NetAddr)
	}

	conf.Seeds = []string{"no-address"}
	if _, err := conf.SeedPeers(); err == nil {
		t.Fatal("malformed seed should fail")
	}
}

func TestLogLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"info":    logrus.InfoLevel,
		"warn":    logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"unknown": logrus.DebugLevel,
	}

	for s, l := range cases {
		if LogLevel(s) != l {
			t.Fatalf("LogLevel(%s) should be %v, not %v", s, l, LogLevel(s))
		}
	}
}

func TestLoggerPrefix(t *testing.T) {
	conf := NewTestConfig(t, logrus.InfoLevel)

	entry := conf.Logger()
	if entry.Data["prefix"] != "hastings" {
		t.Fatalf("prefix should be hastings, not %v", entry.Data["prefix"])
	}
}
