package locate

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/runnerr0/histmerge/internal/browser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fake filesystem ---

type fakeInfo struct {
	name string
	dir  bool
}

func (i fakeInfo) Name() string       { return i.name }
func (i fakeInfo) Size() int64        { return 1 }
func (i fakeInfo) ModTime() time.Time { return time.Time{} }
func (i fakeInfo) IsDir() bool        { return i.dir }
func (i fakeInfo) Sys() any           { return nil }
func (i fakeInfo) Mode() fs.FileMode {
	if i.dir {
		return fs.ModeDir | 0755
	}
	return 0644
}

// fakeFS holds a set of file paths; directories are implied by parents.
type fakeFS struct {
	files map[string]bool
}

func newFakeFS(paths ...string) *fakeFS {
	f := &fakeFS{files: map[string]bool{}}
	for _, p := range paths {
		f.files[filepath.Clean(p)] = true
	}
	return f
}

func (f *fakeFS) isDir(name string) bool {
	prefix := filepath.Clean(name) + string(filepath.Separator)
	for p := range f.files {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func (f *fakeFS) Stat(name string) (os.FileInfo, error) {
	name = filepath.Clean(name)
	if f.files[name] {
		return fakeInfo{name: filepath.Base(name)}, nil
	}
	if f.isDir(name) {
		return fakeInfo{name: filepath.Base(name), dir: true}, nil
	}
	return nil, fs.ErrNotExist
}

func (f *fakeFS) ReadDir(name string) ([]os.DirEntry, error) {
	name = filepath.Clean(name)
	if !f.isDir(name) {
		return nil, fs.ErrNotExist
	}
	prefix := name + string(filepath.Separator)
	seen := map[string]bool{}
	var out []os.DirEntry
	for p := range f.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		child, _, nested := strings.Cut(rest, string(filepath.Separator))
		if seen[child] {
			continue
		}
		seen[child] = true
		out = append(out, fs.FileInfoToDirEntry(fakeInfo{name: child, dir: nested}))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

// --- tests ---

func TestResolve_ChromeLinuxDefaultProfile(t *testing.T) {
	want := "/home/u/.config/google-chrome/Default/History"
	r := &Resolver{GOOS: "linux", Home: "/home/u", Getenv: envMap(nil), FS: newFakeFS(want)}

	got, ok := r.Resolve(browser.Chrome)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestResolve_ChromePrefersDefaultThenLowestProfile(t *testing.T) {
	base := "/home/u/.config/google-chrome"
	r := &Resolver{GOOS: "linux", Home: "/home/u", Getenv: envMap(nil), FS: newFakeFS(
		base+"/Profile 3/History",
		base+"/Profile 1/History",
	)}

	got, ok := r.Resolve(browser.Chrome)
	require.True(t, ok)
	assert.Equal(t, base+"/Profile 1/History", got)
}

func TestResolve_HonoursXDGConfigHome(t *testing.T) {
	want := "/xdg/microsoft-edge/Default/History"
	r := &Resolver{
		GOOS:   "linux",
		Home:   "/home/u",
		Getenv: envMap(map[string]string{"XDG_CONFIG_HOME": "/xdg"}),
		FS:     newFakeFS(want),
	}

	got, ok := r.Resolve(browser.Edge)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestResolve_WindowsUsesAppDataRoots(t *testing.T) {
	env := envMap(map[string]string{
		"LOCALAPPDATA": "/win/Local",
		"APPDATA":      "/win/Roaming",
	})
	fsys := newFakeFS(
		"/win/Local/Microsoft/Edge/User Data/Default/History",
		"/win/Roaming/Opera Software/Opera GX Stable/History",
		"/win/Roaming/Mozilla/Firefox/Profiles/abc.default-release/places.sqlite",
	)
	r := &Resolver{GOOS: "windows", Home: "/win/home", Getenv: env, FS: fsys}

	got, ok := r.Resolve(browser.Edge)
	require.True(t, ok)
	assert.Equal(t, filepath.Clean("/win/Local/Microsoft/Edge/User Data/Default/History"), got)

	got, ok = r.Resolve(browser.Opera)
	require.True(t, ok)
	assert.Equal(t, filepath.Clean("/win/Roaming/Opera Software/Opera GX Stable/History"), got)

	got, ok = r.Resolve(browser.Firefox)
	require.True(t, ok)
	assert.Equal(t, filepath.Clean("/win/Roaming/Mozilla/Firefox/Profiles/abc.default-release/places.sqlite"), got)

	_, ok = r.Resolve(browser.Chrome)
	assert.False(t, ok)
}

func TestResolve_WindowsMissingEnvIsNotFound(t *testing.T) {
	r := &Resolver{GOOS: "windows", Home: "/h", Getenv: envMap(nil), FS: newFakeFS("/Google/Chrome/User Data/Default/History")}
	_, ok := r.Resolve(browser.Chrome)
	assert.False(t, ok)
}

func TestResolve_DarwinLayouts(t *testing.T) {
	home := "/Users/u"
	fsys := newFakeFS(
		home+"/Library/Application Support/Google/Chrome/Profile 0/History",
		home+"/Library/Application Support/Firefox/Profiles/xyz.default/places.sqlite",
	)
	r := &Resolver{GOOS: "darwin", Home: home, Getenv: envMap(nil), FS: fsys}

	got, ok := r.Resolve(browser.Chrome)
	require.True(t, ok)
	assert.Equal(t, home+"/Library/Application Support/Google/Chrome/Profile 0/History", got)

	got, ok = r.Resolve(browser.Firefox)
	require.True(t, ok)
	assert.Equal(t, home+"/Library/Application Support/Firefox/Profiles/xyz.default/places.sqlite", got)
}

func TestResolve_OperaLinuxBaseDirectory(t *testing.T) {
	r := &Resolver{GOOS: "linux", Home: "/home/u", Getenv: envMap(nil), FS: newFakeFS("/home/u/.config/opera/History")}

	got, ok := r.Resolve(browser.Opera)
	require.True(t, ok)
	assert.Equal(t, "/home/u/.config/opera/History", got)
}

func TestResolve_FirefoxScansProfilesInOrder(t *testing.T) {
	root := "/home/u/.mozilla/firefox"
	r := &Resolver{GOOS: "linux", Home: "/home/u", Getenv: envMap(nil), FS: newFakeFS(
		root+"/zzz.dev/places.sqlite",
		root+"/aaa.empty/prefs.js",
		root+"/mmm.default-release/places.sqlite",
		root+"/profiles.ini",
	)}

	got, ok := r.Resolve(browser.Firefox)
	require.True(t, ok)
	assert.Equal(t, root+"/mmm.default-release/places.sqlite", got)
}

func TestResolve_FirefoxMissingRoot(t *testing.T) {
	r := &Resolver{GOOS: "linux", Home: "/home/u", Getenv: envMap(nil), FS: newFakeFS()}
	got, ok := r.Resolve(browser.Firefox)
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestResolve_NothingInstalled(t *testing.T) {
	r := &Resolver{GOOS: "linux", Home: "/home/u", Getenv: envMap(nil), FS: newFakeFS("/home/u/notes.txt")}
	for _, b := range browser.All() {
		_, ok := r.Resolve(b)
		assert.False(t, ok, "browser %s", b)
	}
}

func TestResolve_DirectoryNamedHistoryIsIgnored(t *testing.T) {
	r := &Resolver{GOOS: "linux", Home: "/home/u", Getenv: envMap(nil), FS: newFakeFS(
		"/home/u/.config/google-chrome/Default/History/inner",
	)}
	_, ok := r.Resolve(browser.Chrome)
	assert.False(t, ok)
}

func TestResolve_Override(t *testing.T) {
	r := &Resolver{
		GOOS:      "linux",
		Home:      "/home/u",
		Getenv:    envMap(nil),
		FS:        newFakeFS("/custom/History", "/home/u/.config/google-chrome/Default/History"),
		Overrides: map[browser.Browser]string{browser.Chrome: "/custom/History", browser.Edge: "/missing/History"},
	}

	got, ok := r.Resolve(browser.Chrome)
	require.True(t, ok)
	assert.Equal(t, "/custom/History", got)

	_, ok = r.Resolve(browser.Edge)
	assert.False(t, ok, "an override that does not exist is not found")
}

func TestCandidates_ChromiumOrder(t *testing.T) {
	r := &Resolver{GOOS: "linux", Home: "/h", Getenv: envMap(nil), FS: newFakeFS()}
	c := r.Candidates(browser.Chrome)
	require.Len(t, c, 11)
	assert.Equal(t, "/h/.config/google-chrome/Default/History", c[0])
	assert.Equal(t, "/h/.config/google-chrome/Profile 0/History", c[1])
	assert.Equal(t, "/h/.config/google-chrome/Profile 9/History", c[10])
}

func TestResolve_RealFilesystem(t *testing.T) {
	home := t.TempDir()
	dir := filepath.Join(home, ".mozilla", "firefox", "k3j2.default-release")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "places.sqlite"), []byte("x"), 0644))

	r := &Resolver{GOOS: "linux", Home: home, Getenv: envMap(nil), FS: OSFS{}}
	got, ok := r.Resolve(browser.Firefox)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "places.sqlite"), got)
}
