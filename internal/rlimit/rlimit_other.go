// Copyright (c) 2013-2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build windows || plan9

package rlimit

// Raise is a no-op on platforms without RLIMIT_NOFILE.
func Raise() error {
	return nil
}
