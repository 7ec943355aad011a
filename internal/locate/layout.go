package locate

import (
	"fmt"

	"github.com/runnerr0/histmerge/internal/browser"
)

// strategy selects how profile directories are enumerated under a base.
type strategy int

const (
	// fixedProfiles probes a known list of profile folder names in order.
	fixedProfiles strategy = iota
	// scanProfiles walks the immediate subdirectories of the base, whose
	// names are randomized.
	scanProfiles
)

// root names the directory a layout's base path is built from.
type root int

const (
	rootHome         root = iota // user home
	rootLocalAppData             // %LOCALAPPDATA%
	rootAppData                  // %APPDATA%
	rootConfig                   // $XDG_CONFIG_HOME or ~/.config
)

// layout describes where one browser keeps its history on one OS.
type layout struct {
	root     root
	base     []string // path elements appended to root
	strategy strategy
	profiles []string // candidate folders for fixedProfiles; "" is the base itself
	file     string
}

const (
	chromiumHistory = "History"
	firefoxHistory  = "places.sqlite"
)

// chromiumProfiles is "Default" followed by "Profile 0" … "Profile 9".
func chromiumProfiles() []string {
	out := []string{"Default"}
	for i := 0; i < 10; i++ {
		out = append(out, fmt.Sprintf("Profile %d", i))
	}
	return out
}

var operaProfiles = []string{"Opera Stable", "Opera GX Stable", "Opera", "Opera GX"}

type layoutKey struct {
	goos    string
	browser browser.Browser
}

// layouts is the {OS, browser} table the resolver looks paths up in.
var layouts = map[layoutKey]layout{
	{"windows", browser.Chrome}: {root: rootLocalAppData, base: []string{"Google", "Chrome", "User Data"}, strategy: fixedProfiles, profiles: chromiumProfiles(), file: chromiumHistory},
	{"darwin", browser.Chrome}:  {root: rootHome, base: []string{"Library", "Application Support", "Google", "Chrome"}, strategy: fixedProfiles, profiles: chromiumProfiles(), file: chromiumHistory},
	{"linux", browser.Chrome}:   {root: rootConfig, base: []string{"google-chrome"}, strategy: fixedProfiles, profiles: chromiumProfiles(), file: chromiumHistory},

	{"windows", browser.Edge}: {root: rootLocalAppData, base: []string{"Microsoft", "Edge", "User Data"}, strategy: fixedProfiles, profiles: chromiumProfiles(), file: chromiumHistory},
	{"darwin", browser.Edge}:  {root: rootHome, base: []string{"Library", "Application Support", "Microsoft", "Edge"}, strategy: fixedProfiles, profiles: chromiumProfiles(), file: chromiumHistory},
	{"linux", browser.Edge}:   {root: rootConfig, base: []string{"microsoft-edge"}, strategy: fixedProfiles, profiles: chromiumProfiles(), file: chromiumHistory},

	{"windows", browser.Opera}: {root: rootAppData, base: []string{"Opera Software"}, strategy: fixedProfiles, profiles: operaProfiles, file: chromiumHistory},
	{"darwin", browser.Opera}:  {root: rootHome, base: []string{"Library", "Application Support", "com.operasoftware.Opera"}, strategy: fixedProfiles, profiles: operaProfiles, file: chromiumHistory},
	// Linux Opera may keep History directly in ~/.config/opera.
	{"linux", browser.Opera}: {root: rootConfig, base: []string{"opera"}, strategy: fixedProfiles, profiles: append(append([]string{}, operaProfiles...), ""), file: chromiumHistory},

	{"windows", browser.Firefox}: {root: rootAppData, base: []string{"Mozilla", "Firefox", "Profiles"}, strategy: scanProfiles, file: firefoxHistory},
	{"darwin", browser.Firefox}:  {root: rootHome, base: []string{"Library", "Application Support", "Firefox", "Profiles"}, strategy: scanProfiles, file: firefoxHistory},
	{"linux", browser.Firefox}:   {root: rootHome, base: []string{".mozilla", "firefox"}, strategy: scanProfiles, file: firefoxHistory},
}

// lookupLayout finds the layout for goos; any OS that is neither windows
// nor darwin is treated like linux.
func lookupLayout(goos string, b browser.Browser) (layout, bool) {
	if goos != "windows" && goos != "darwin" {
		goos = "linux"
	}
	l, ok := layouts[layoutKey{goos, b}]
	return l, ok
}
