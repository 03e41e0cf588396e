package tsar

import (
	"fmt"
	"io"
	"os"

	"github.com/meigma/tsar/internal/ioutil"
)

// writeOutput writes data to path atomically, or to w when path is empty.
func writeOutput(w io.Writer, path string, data []byte, perm os.FileMode) error {
	if err := ioutil.WriteOutput(w, path, data, perm); err != nil {
		return fmt.Errorf("write %s: %w", displayOutput(path), err)
	}
	return nil
}
