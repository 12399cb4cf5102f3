// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package config parses the daemon's command-line and config-file
// configuration, following the teacher's config.go: a flat go-flags struct
// with defaults filled in before parsing, an optional INI config file
// merged in ahead of the command line, and a second parse pass so
// command-line flags win over the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename   = "brc20indexer.conf"
	defaultStartHeight      = 779832 // first BRC-20 deploy, per spec.md §6
	defaultLogLevel         = "info"
	defaultRPCHost          = "127.0.0.1:8332"
	defaultMongoURI         = "mongodb://127.0.0.1:27017"
	defaultMongoDatabase    = "brc20"
	defaultMetricsListen    = "127.0.0.1:9100"
)

// Config is the full set of daemon settings, populated by Load.
type Config struct {
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`

	StartingBlockHeight int64 `long:"startheight" description:"Block height at which to begin (or resume) indexing"`

	RPCHost      string `long:"rpchost" description:"host:port of the Bitcoin node's JSON-RPC endpoint"`
	RPCUser      string `long:"rpcuser" description:"Username for node RPC connections"`
	RPCPass      string `long:"rpcpass" default-mask:"-" description:"Password for node RPC connections"`
	RPCDisableTLS bool  `long:"rpcnotls" description:"Disable TLS when talking to the node's RPC endpoint"`

	MongoURI      string `long:"mongouri" description:"MongoDB connection URI"`
	MongoDatabase string `long:"mongodatabase" description:"MongoDB database name"`

	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the level for individual subsystems"`

	MetricsListen string `long:"metricslisten" description:"host:port to serve Prometheus metrics on; empty disables the metrics server"`
}

// defaultConfig returns a Config with every default value filled in, before
// any file or command-line parsing happens.
func defaultConfig() Config {
	return Config{
		ConfigFile:          defaultConfigFile(),
		StartingBlockHeight: defaultStartHeight,
		RPCHost:             defaultRPCHost,
		MongoURI:            defaultMongoURI,
		MongoDatabase:       defaultMongoDatabase,
		DebugLevel:          defaultLogLevel,
		MetricsListen:       defaultMetricsListen,
	}
}

func defaultConfigFile() string {
	dir := homeDir()
	return filepath.Join(dir, defaultConfigFilename)
}

func homeDir() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, ".brc20indexer")
}

// Load parses the config file (if present) followed by the command line,
// following the teacher's loadConfig two-pass pattern: a pre-parse to find
// -C/--configfile, an INI merge, then a full parse so command-line flags
// override the file.
func Load(args []string) (*Config, error) {
	cfg := defaultConfig()

	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.Default&^flags.PrintErrors)
	if _, err := preParser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return nil, err
		}
	}
	cfg.ConfigFile = preCfg.ConfigFile

	if _, err := os.Stat(cfg.ConfigFile); err == nil {
		if err := flags.NewIniParser(flags.NewParser(&cfg, flags.Default)).ParseFile(cfg.ConfigFile); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", cfg.ConfigFile, err)
		}
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	if cfg.RPCUser == "" || cfg.RPCPass == "" {
		return nil, fmt.Errorf("rpcuser and rpcpass are required")
	}

	return &cfg, nil
}
