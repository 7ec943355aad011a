package browser

import (
	"fmt"
	"strings"
)

// Browser identifies a supported browser.
type Browser string

const (
	Chrome  Browser = "chrome"
	Edge    Browser = "edge"
	Firefox Browser = "firefox"
	Opera   Browser = "opera"
)

// Family groups browsers that share an on-disk history format.
type Family string

const (
	Chromium Family = "chromium"
	Gecko    Family = "firefox"
)

// All returns every supported browser in report order.
func All() []Browser {
	return []Browser{Chrome, Edge, Firefox, Opera}
}

// Family returns the history format family of b.
func (b Browser) Family() Family {
	if b == Firefox {
		return Gecko
	}
	return Chromium
}

// Valid reports whether b is one of the supported browsers.
func (b Browser) Valid() bool {
	for _, known := range All() {
		if b == known {
			return true
		}
	}
	return false
}

func (b Browser) String() string { return string(b) }

// Parse converts a user-supplied name into a Browser.
func Parse(s string) (Browser, error) {
	b := Browser(strings.ToLower(strings.TrimSpace(s)))
	if !b.Valid() {
		return "", fmt.Errorf("unknown browser %q (want chrome, edge, firefox or opera)", s)
	}
	return b, nil
}

// ParseList converts names into Browsers, dropping duplicates while
// keeping first-seen order.
func ParseList(names []string) ([]Browser, error) {
	seen := make(map[Browser]bool, len(names))
	out := make([]Browser, 0, len(names))
	for _, n := range names {
		b, err := Parse(n)
		if err != nil {
			return nil, err
		}
		if seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	return out, nil
}
