// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// File describes a file written by WriteTree.
type File struct {
	Content string
	Mode    fs.FileMode
}

// WriteTree creates files under dir. Paths use forward slashes; parent
// directories are created as needed. A zero Mode means 0644.
func WriteTree(tb testing.TB, dir string, files map[string]File) {
	tb.Helper()
	for name, f := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(tb, os.MkdirAll(filepath.Dir(p), 0o755))
		mode := f.Mode
		if mode == 0 {
			mode = 0o644
		}
		require.NoError(tb, os.WriteFile(p, []byte(f.Content), mode))
		require.NoError(tb, os.Chmod(p, mode))
	}
}

// ReadTree returns the contents of every regular file under dir keyed by
// slash-separated relative path.
func ReadTree(tb testing.TB, dir string) map[string]string {
	tb.Helper()
	out := make(map[string]string)
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(tb, err)
	return out
}

// Script returns a POSIX shell script file with the executable bit set.
func Script(body string) File {
	return File{Content: "#!/bin/sh\n" + body + "\n", Mode: 0o755}
}
