// Package config defines the configuration for a Hastings node.
//
// Whether Hastings is started from Go code or from the command line, it uses
// the Config object defined in this package to carry configuration options.
// On top of these options, Hastings relies on a data directory, defined by
// Config.DataDir, where it expects to find a few additional files:
//
//  priv_key // a plain text file containing the raw private key (cf. hastings keygen).
//  peers.json // (optional) a JSON file listing bootstrap peers.
//  hastings.toml // (optional) configuration file, read by the command line.
package config
