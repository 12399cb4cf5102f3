// Copyright (c) 2019 Caleb James DeLisle
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package witness implements the witness scanner and inscription decoder of
// spec.md §4.A and §4.B: pulling candidate BRC-20 JSON payloads out of a
// transaction's first-input witness stack, and parsing the ones that look
// like BRC-20 into a typed Inscription.
//
// Both steps are ported from the original indexer's
// get_witness_data_from_raw_tx and extract_and_process_witness_data
// (brc20_index/utils.rs): take the first input's witness items, decode each
// lossily as UTF-8, then for each string find the earliest "text/plain" or
// "application/json" literal, skip past it, and parse the slice from the
// first '{' after that point to the last '}' in the string as JSON.
package witness

import (
	"encoding/json"
	"strings"
)

// Op is the decoded operation tag (spec.md §9: "represent as a tagged
// variant after decoding; reject at decode time anything else").
type Op string

const (
	OpDeploy   Op = "deploy"
	OpMint     Op = "mint"
	OpTransfer Op = "transfer"
)

// Inscription is a decoded BRC-20 JSON payload (spec.md §3). String fields
// are preserved verbatim; numeric conversion happens at the operation
// handlers, not here.
type Inscription struct {
	P    string `json:"p"`
	Op   Op     `json:"op"`
	Tick string `json:"tick"`
	Max  string `json:"max,omitempty"`
	Lim  string `json:"lim,omitempty"`
	Dec  string `json:"dec,omitempty"`
	Amt  string `json:"amt,omitempty"`
}

// Protocol is the only accepted value of the inscription's "p" field.
const Protocol = "brc-20"

// Scan extracts the first input's witness stack, decoded lossily as UTF-8,
// from a transaction's full witness list (one stack per input, outer index
// matching vin order). Per spec.md §4.A, only the first input's witness is
// ever consulted.
func Scan(witnessStacks [][][]byte) []string {
	if len(witnessStacks) == 0 {
		return nil
	}
	first := witnessStacks[0]
	out := make([]string, 0, len(first))
	for _, item := range first {
		out = append(out, string(item))
	}
	return out
}

// Decode attempts to locate and parse a BRC-20 inscription inside a single
// witness string. It returns ok=false if no MIME marker is found, no '{'
// follows it or no '}' follows that, the JSON fails to parse, or the parsed
// "p" field is not exactly "brc-20" (spec.md §4.B).
func Decode(witnessString string) (Inscription, bool) {
	mimeStart, mimeEnd := -1, -1
	for _, marker := range []string{"text/plain", "application/json"} {
		if idx := strings.Index(witnessString, marker); idx >= 0 && (mimeStart < 0 || idx < mimeStart) {
			mimeStart = idx
			mimeEnd = idx + len(marker)
		}
	}
	if mimeEnd < 0 {
		return Inscription{}, false
	}

	rest := witnessString[mimeEnd:]
	jsonStart := strings.IndexByte(rest, '{')
	if jsonStart < 0 {
		return Inscription{}, false
	}
	jsonStart += mimeEnd

	jsonEnd := strings.LastIndexByte(witnessString[jsonStart:], '}')
	if jsonEnd < 0 {
		return Inscription{}, false
	}
	jsonEnd += jsonStart

	var insc Inscription
	if err := json.Unmarshal([]byte(witnessString[jsonStart:jsonEnd+1]), &insc); err != nil {
		return Inscription{}, false
	}
	if insc.P != Protocol {
		return Inscription{}, false
	}
	return insc, true
}

// DecodeAny runs Decode over every witness string of a scan, in order,
// returning the first match. spec.md §4.I calls this once per transaction:
// "if any witness decodes to a valid BRC-20 inscription, dispatch to
// handler".
func DecodeAny(witnessStrings []string) (Inscription, bool) {
	for _, s := range witnessStrings {
		if insc, ok := Decode(s); ok {
			return insc, true
		}
	}
	return Inscription{}, false
}
