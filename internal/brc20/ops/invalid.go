// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ops implements the BRC-20 operation handlers of spec.md §4.G and
// the transfer-send detector of §4.H. Each handler validates an inscription
// against one operation's rules, then either mutates the registry/ledger/
// active-transfer table or returns an *Invalid describing why it didn't.
// HandleDeploy collects every failed check into one *Invalid, the way the
// original indexer's validate_deploy_script does; HandleMint and
// HandleTransferInscribe return at the first failed check.
package ops

import "strings"

// Invalid is returned by a handler when an inscription fails protocol
// validation. It is not a failure of the handler itself — spec.md §7 class
// 3, "protocol invalid", is recorded in brc20_invalids and is never fatal.
// Callers distinguish it from plumbing errors with errors.As.
type Invalid struct {
	Reasons []string
}

func (e *Invalid) Error() string {
	return strings.Join(e.Reasons, "; ")
}

func invalid(reasons ...string) error {
	return &Invalid{Reasons: reasons}
}
