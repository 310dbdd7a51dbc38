// Package filetime converts between Go's time.Time and the Windows FILETIME
// representation the Dokan kernel driver exchanges on the wire: a 64-bit
// count of 100-nanosecond intervals since 1601-01-01T00:00:00Z.
//
// Grounded on _examples/original_source/dokan/__init__.py's
// FILETIME_UNIX_EPOCH constant and its _timestamp2filetime /
// _filetime2timestamp / _filetime2datetime / _datetime2filetime functions.
package filetime

import "time"

// unixEpochInFileTimeUnits is FILETIME_UNIX_EPOCH from the original: the
// number of 100ns intervals between the FILETIME epoch (1601) and the Unix
// epoch (1970).
const unixEpochInFileTimeUnits = 116444736000000000

const hundredNanosecondsPerSecond = 10000000

// FileTime is a Windows FILETIME value: 100ns ticks since 1601-01-01.
type FileTime uint64

// Zero is the sentinel FILETIME value Dokan and the original both use to
// mean "do not change this timestamp" (spec.md §3's UndefinedTimestamp,
// mirrored on the wire as an all-zero FILETIME).
const Zero FileTime = 0

// FromTime converts a time.Time to a FileTime. The zero time.Time (and any
// time before the FILETIME epoch) converts to Zero, matching the original's
// treatment of "undefined" timestamps.
func FromTime(t time.Time) FileTime {
	if t.IsZero() {
		return Zero
	}
	units := t.Unix()*hundredNanosecondsPerSecond +
		int64(t.Nanosecond())/100 + unixEpochInFileTimeUnits
	if units < 0 {
		return Zero
	}
	return FileTime(units)
}

// ToTime converts a FileTime back to a time.Time in UTC. Zero converts to
// the zero time.Time, the Go-idiomatic way of expressing "undefined"
// (spec.md §3's UndefinedTimestamp).
func ToTime(ft FileTime) time.Time {
	if ft == Zero {
		return time.Time{}
	}
	units := int64(ft) - unixEpochInFileTimeUnits
	seconds := units / hundredNanosecondsPerSecond
	remainder := units % hundredNanosecondsPerSecond
	return time.Unix(seconds, remainder*100).UTC()
}
