// Copyright (c) 2013-2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build !windows && !plan9

// Package rlimit raises the process's open-file-descriptor limit at
// startup, following the teacher's limits package: the Mongo driver's
// connection pool and the node RPC client each hold their own sockets, so
// the daemon wants headroom beyond a typical shell default.
package rlimit

import (
	"fmt"
	"syscall"
)

const (
	fileLimitWant = 2048
	fileLimitMin  = 1024
)

// Raise bumps RLIMIT_NOFILE toward fileLimitWant, erroring only if the hard
// limit can't even reach fileLimitMin.
func Raise() error {
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return fmt.Errorf("get file descriptor limit: %w", err)
	}
	if rLimit.Cur >= fileLimitWant {
		return nil
	}
	if rLimit.Max < fileLimitMin {
		return fmt.Errorf("need at least %d file descriptors, have %d", fileLimitMin, rLimit.Max)
	}
	if rLimit.Max < fileLimitWant {
		rLimit.Cur = rLimit.Max
	} else {
		rLimit.Cur = fileLimitWant
	}
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return fmt.Errorf("set file descriptor limit: %w", err)
	}
	return nil
}
