// Package snapshot takes private copies of browser databases that may be
// held open and locked by a running browser.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrEmptySource is returned when the source exists but is not a regular
// file with content.
var ErrEmptySource = errors.New("source is empty or not a regular file")

// sidecars are the SQLite companion files that may sit next to a copy.
var sidecars = []string{"-wal", "-shm", "-journal"}

// Snapshot is a private copy of a database file. The owner must call
// Remove when done.
type Snapshot struct {
	path   string
	source string
}

// Path returns the location of the copy.
func (s *Snapshot) Path() string { return s.path }

// Source returns the file the copy was taken from.
func (s *Snapshot) Source() string { return s.source }

// Remove deletes the copy and any SQLite sidecar files. Safe to call more
// than once.
func (s *Snapshot) Remove() error {
	if s == nil || s.path == "" {
		return nil
	}
	var errs []error
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, err)
	}
	for _, suffix := range sidecars {
		if err := os.Remove(s.path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// afterMainCopy runs between the database and WAL copies. Tests use it
// to change the WAL mid-snapshot.
var afterMainCopy = func() {}

// Take copies src byte-for-byte into a new temp file inside scratchDir
// (the system temp dir when empty). A "-wal" file next to src is copied
// too when present, so WAL-mode databases include recent pages.
//
// The two copies are not atomic. The WAL is kept only if its size and
// modification time are the same before the database copy and after its
// own copy; otherwise the browser may have checkpointed in between and
// the snapshot falls back to the database file alone.
//
// On error nothing is left behind in scratchDir.
func Take(ctx context.Context, src, scratchDir string) (*Snapshot, error) {
	walBefore, walErr := os.Stat(src + "-wal")

	info, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		return nil, fmt.Errorf("%s: %w", src, ErrEmptySource)
	}

	if scratchDir == "" {
		scratchDir = os.TempDir()
	}

	dst, err := os.CreateTemp(scratchDir, "histmerge-*.db")
	if err != nil {
		return nil, fmt.Errorf("create snapshot file: %w", err)
	}
	snap := &Snapshot{path: dst.Name(), source: src}

	if err := copyInto(ctx, dst, src); err != nil {
		dst.Close()
		snap.Remove() //nolint:errcheck
		return nil, fmt.Errorf("copy %s: %w", src, err)
	}
	if err := dst.Close(); err != nil {
		snap.Remove() //nolint:errcheck
		return nil, fmt.Errorf("close snapshot file: %w", err)
	}

	afterMainCopy()

	// The WAL is optional; a copy without it is still a consistent,
	// if slightly older, database.
	if walErr == nil {
		if err := copyFile(ctx, src+"-wal", snap.path+"-wal"); err != nil || !unchanged(walBefore, src+"-wal") {
			os.Remove(snap.path + "-wal") //nolint:errcheck
		}
	}

	return snap, nil
}

// unchanged reports whether path still has before's size and mtime.
func unchanged(before os.FileInfo, path string) bool {
	after, err := os.Stat(path)
	if err != nil {
		return false
	}
	return after.Size() == before.Size() && after.ModTime().Equal(before.ModTime())
}

func copyFile(ctx context.Context, src, dst string) error {
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if err := copyInto(ctx, out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func copyInto(ctx context.Context, dst io.Writer, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	_, err = io.Copy(dst, &ctxReader{ctx: ctx, r: in})
	return err
}

// ctxReader aborts a copy once its context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
