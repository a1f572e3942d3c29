// Package ident converts the prefixed textual identifiers used by the raw
// dumps (tt0000123, nm0000001) into compact integers, and canonicalizes the
// dumps' "no value" markers.
package ident

import (
	"strconv"
	"strings"
)

// PrefixLen is the width of the alphabetic identifier prefix ("tt", "nm").
const PrefixLen = 2

// NullToken is the two-character sentinel the dumps use for a missing value.
const NullToken = `\N`

// ToInt strips the fixed-width prefix from id and parses the remainder as an
// unsigned integer. ok is false when the remainder is empty, not a valid
// number, zero (ids start at 1, so "nm000" carries no id) or wider than 32
// bits; callers treat that as "skip", never as fatal.
//
// The prefix is not inspected, so the same digits always map to the same
// integer regardless of which table the id came from.
func ToInt(id string) (n uint64, ok bool) {
	if len(id) <= PrefixLen {
		return 0, false
	}
	n, err := strconv.ParseUint(id[PrefixLen:], 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

// IsNull reports whether v encodes a missing value: the sentinel token or an
// empty/whitespace-only string.
func IsNull(v string) bool {
	s := strings.TrimSpace(v)
	return s == "" || s == NullToken
}

// Nullify returns v unchanged, or "" when v is a missing value. The empty
// field is the single canonical null of every normalized table.
func Nullify(v string) string {
	if IsNull(v) {
		return ""
	}
	return v
}

// SplitList splits a comma-separated sub-field, dropping empty items. A null
// field yields nil.
func SplitList(v string) []string {
	if IsNull(v) {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == NullToken {
			continue
		}
		out = append(out, p)
	}
	return out
}
