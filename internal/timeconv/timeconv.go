// Package timeconv converts the native timestamp encodings of browser
// history databases into UTC times with second precision.
//
// A zero time.Time together with ok=false means "unavailable".
package timeconv

import "time"

const (
	// chromiumEpochOffset is the number of seconds between 1601-01-01 and
	// 1970-01-01 (UTC).
	chromiumEpochOffset int64 = 11644473600

	// maxUnix is 3000-01-01T00:00:00Z.
	maxUnix int64 = 32503680000

	microsPerSecond int64 = 1_000_000
)

// FromChromium converts microseconds since 1601-01-01 UTC.
func FromChromium(us int64) (time.Time, bool) {
	if us <= 0 {
		return time.Time{}, false
	}
	return fromUnix(us/microsPerSecond - chromiumEpochOffset)
}

// FromFirefox converts microseconds since the Unix epoch.
func FromFirefox(us int64) (time.Time, bool) {
	if us <= 0 {
		return time.Time{}, false
	}
	return fromUnix(us / microsPerSecond)
}

// ToChromium is the inverse of FromChromium at microsecond resolution.
func ToChromium(t time.Time) int64 {
	return (t.Unix()+chromiumEpochOffset)*microsPerSecond + int64(t.Nanosecond()/1000)
}

// ToFirefox is the inverse of FromFirefox at microsecond resolution.
func ToFirefox(t time.Time) int64 {
	return t.UnixMicro()
}

func fromUnix(sec int64) (time.Time, bool) {
	if sec < 0 || sec > maxUnix {
		return time.Time{}, false
	}
	return time.Unix(sec, 0).UTC(), true
}
