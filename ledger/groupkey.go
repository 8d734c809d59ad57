/*
groupkey.go - Deterministic client+month group key derivation

PURPOSE:
  Records for the same client and the same calendar month must end up in
  the same group so they are merged into one destination document. The key
  must therefore be stable against the cosmetic variation the upstream
  system produces: "Eurofins NV", " EUROFINS   nv" and "eurofins-nv" are
  all the same client.

INVARIANT:
  DeriveGroupKey is pure. Same inputs, same key, forever. Keys that have
  been persisted must never change meaning, so the normalization rules
  here are frozen.
*/
package ledger

import (
	"log"
	"strings"
	"unicode"
)

// DeriveGroupKey maps a client display name and a YYYYMMDD date string to
// the group key NORMALIZEDCLIENT_YYYYMM.
//
// Normalization strips all whitespace plus the characters "-" and "'" and
// uppercases the remainder. The period is the first six characters of the
// date when it is exactly eight digits; anything else degrades to the first
// six characters of whatever was given. The degraded path is logged but
// never fails - a record with a mangled date still needs a home.
func DeriveGroupKey(client, date string) GroupKey {
	period := date
	if isEightDigits(date) {
		period = date[:6]
	} else {
		log.Printf("ledger: unexpected date format %q, deriving period from raw value", date)
		if len(period) > 6 {
			period = period[:6]
		}
	}
	return GroupKey(NormalizeClient(client) + "_" + period)
}

// NormalizeClient collapses a client display name to its canonical form.
// Shared with group consistency checks: two names that normalize to the
// same string are the same client by definition.
func NormalizeClient(client string) string {
	var b strings.Builder
	b.Grow(len(client))
	for _, r := range client {
		if unicode.IsSpace(r) || r == '-' || r == '\'' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

func isEightDigits(s string) bool {
	if len(s) != 8 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
