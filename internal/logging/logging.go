// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package logging provides the indexer's subsystem loggers.
//
// The shape (a shared backend, one named Logger per subsystem) follows
// pktd's pktlog/log package. Unlike that package, this one does not carry its
// own level/backend machinery: it builds directly on btclog, which is what
// pktlog/log itself wraps, writing plain uncolored lines to stdout. There are
// no ANSI color helpers; Height is the only value formatter.
package logging

import (
	"os"
	"strconv"
	"strings"

	"github.com/btcsuite/btclog"
)

var backend = btclog.NewBackend(os.Stdout)

// Subsystem tags, one per component of the indexing core.
const (
	TagIndexer = "INDX"
	TagWitness = "WTNS"
	TagOps     = "OPS "
	TagStore   = "STOR"
	TagNode    = "NODE"
	TagConfig  = "CFG "
)

var loggers = map[string]btclog.Logger{}

func init() {
	for _, tag := range []string{TagIndexer, TagWitness, TagOps, TagStore, TagNode, TagConfig} {
		l := backend.Logger(tag)
		l.SetLevel(btclog.LevelInfo)
		loggers[tag] = l
	}
	if lvl := os.Getenv("BRC20_LOG_LEVEL"); lvl != "" {
		_ = SetLevel(lvl)
	}
}

// Get returns the logger for a given subsystem tag, creating a disabled
// logger if the tag is unknown.
func Get(tag string) btclog.Logger {
	if l, ok := loggers[tag]; ok {
		return l
	}
	return btclog.Disabled
}

// SetLevel sets the log level for every subsystem logger at once. Per-
// subsystem overrides ("indx=debug,stor=trace") are split on ',' and '='.
func SetLevel(spec string) error {
	if !strings.Contains(spec, ",") && !strings.Contains(spec, "=") {
		lvl, ok := btclog.LevelFromString(spec)
		if !ok {
			return errInvalidLevel(spec)
		}
		for _, l := range loggers {
			l.SetLevel(lvl)
		}
		return nil
	}
	for _, pair := range strings.Split(spec, ",") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return errInvalidLevel(pair)
		}
		lvl, ok := btclog.LevelFromString(kv[1])
		if !ok {
			return errInvalidLevel(pair)
		}
		if l, ok := loggers[strings.ToUpper(kv[0])]; ok {
			l.SetLevel(lvl)
		}
	}
	return nil
}

func errInvalidLevel(s string) error {
	return &levelError{s}
}

type levelError struct{ spec string }

func (e *levelError) Error() string { return "invalid log level spec: " + e.spec }

// Height renders a block height the way pktlog/log.Height did: "unconfirmed"
// for negative values, the decimal height otherwise.
func Height(h int64) string {
	if h < 0 {
		return "unconfirmed"
	}
	return strconv.FormatInt(h, 10)
}
