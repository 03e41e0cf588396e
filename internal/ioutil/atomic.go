package ioutil

import (
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to a temp file then renames to target,
// ensuring atomic replacement of the target file. Parent directories are
// created as needed. On failure target is left untouched.
func WriteFileAtomic(target string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".tsar-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// WriteOutput writes data to path atomically, or to w when path is empty.
func WriteOutput(w io.Writer, path string, data []byte, perm os.FileMode) error {
	if path == "" {
		_, err := w.Write(data)
		return err
	}
	return WriteFileAtomic(path, data, perm)
}
