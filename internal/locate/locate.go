// Package locate finds browser history databases on the local machine.
package locate

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/runnerr0/histmerge/internal/browser"
)

// FS is the read-only filesystem view the resolver probes.
type FS interface {
	Stat(name string) (os.FileInfo, error)
	ReadDir(name string) ([]os.DirEntry, error)
}

// OSFS reads the real filesystem.
type OSFS struct{}

func (OSFS) Stat(name string) (os.FileInfo, error)      { return os.Stat(name) }
func (OSFS) ReadDir(name string) ([]os.DirEntry, error) { return os.ReadDir(name) }

// Resolver maps a browser to its history file. It never mutates the
// filesystem and never fails: a browser that is not installed simply
// resolves to not-found.
type Resolver struct {
	GOOS   string
	Home   string
	Getenv func(string) string
	FS     FS

	// Overrides maps a browser to an explicit history file, bypassing
	// the layout table.
	Overrides map[browser.Browser]string
}

// NewResolver returns a Resolver for the running machine.
func NewResolver(overrides map[browser.Browser]string) *Resolver {
	home, _ := os.UserHomeDir()
	return &Resolver{
		GOOS:      runtime.GOOS,
		Home:      home,
		Getenv:    os.Getenv,
		FS:        OSFS{},
		Overrides: overrides,
	}
}

// Resolve returns the first existing history file for b.
func (r *Resolver) Resolve(b browser.Browser) (string, bool) {
	if p, ok := r.Overrides[b]; ok && p != "" {
		if r.isFile(p) {
			return p, true
		}
		return "", false
	}

	l, ok := lookupLayout(r.GOOS, b)
	if !ok {
		return "", false
	}
	base, ok := r.baseDir(l)
	if !ok {
		return "", false
	}

	switch l.strategy {
	case scanProfiles:
		return r.scan(base, l.file)
	default:
		for _, candidate := range profilePaths(base, l) {
			if r.isFile(candidate) {
				return candidate, true
			}
		}
		return "", false
	}
}

// Candidates lists every path Resolve would consider for b, in probe
// order. For scanned layouts it lists the paths of existing profile
// folders.
func (r *Resolver) Candidates(b browser.Browser) []string {
	if p, ok := r.Overrides[b]; ok && p != "" {
		return []string{p}
	}
	l, ok := lookupLayout(r.GOOS, b)
	if !ok {
		return nil
	}
	base, ok := r.baseDir(l)
	if !ok {
		return nil
	}
	if l.strategy == scanProfiles {
		var out []string
		for _, dir := range r.subdirs(base) {
			out = append(out, filepath.Join(dir, l.file))
		}
		return out
	}
	return profilePaths(base, l)
}

func profilePaths(base string, l layout) []string {
	out := make([]string, 0, len(l.profiles))
	for _, p := range l.profiles {
		if p == "" {
			out = append(out, filepath.Join(base, l.file))
			continue
		}
		out = append(out, filepath.Join(base, p, l.file))
	}
	return out
}

func (r *Resolver) scan(base, file string) (string, bool) {
	for _, dir := range r.subdirs(base) {
		candidate := filepath.Join(dir, file)
		if r.isFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// subdirs returns the immediate subdirectories of base in lexical order.
// A missing or unreadable base yields nil.
func (r *Resolver) subdirs(base string) []string {
	entries, err := r.FS.ReadDir(base)
	if err != nil {
		return nil
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(base, e.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs
}

func (r *Resolver) isFile(path string) bool {
	info, err := r.FS.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// baseDir expands a layout's root. An unset root (e.g. LOCALAPPDATA
// missing on Windows) means the browser cannot be located.
func (r *Resolver) baseDir(l layout) (string, bool) {
	var root string
	switch l.root {
	case rootHome:
		root = r.Home
	case rootLocalAppData:
		root = r.getenv("LOCALAPPDATA")
	case rootAppData:
		root = r.getenv("APPDATA")
	case rootConfig:
		root = r.getenv("XDG_CONFIG_HOME")
		if root == "" && r.Home != "" {
			root = filepath.Join(r.Home, ".config")
		}
	}
	if root == "" {
		return "", false
	}
	return filepath.Join(append([]string{root}, l.base...)...), true
}

func (r *Resolver) getenv(key string) string {
	if r.Getenv == nil {
		return ""
	}
	return r.Getenv(key)
}
