package runfiles

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/quatton/qseq/pkg/pacbio/rundata"
)

func ValidatedMarkerPath(run rundata.RunData) string {
	return filepath.Join(run.FullPath, ValidatedMarker)
}

func CompletedMarkerPath(run rundata.RunData) string {
	return filepath.Join(run.FullPath, CompletedMarker)
}

func ProcessingLockPath(run rundata.RunData) string {
	return filepath.Join(run.FullPath, ProcessingLock)
}

// HasMarker reports whether the zero-byte marker at path exists.
func HasMarker(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CreateMarker creates a zero-byte file with O_EXCL. created is false when
// the marker already existed.
func CreateMarker(path string) (created bool, err error) {
	return WriteMarker(path, nil)
}

// WriteMarker creates path with O_EXCL and writes content into it. A failed
// write removes the file again.
func WriteMarker(path string, content []byte) (created bool, err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, err
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(path)
		return false, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return false, err
	}
	return true, nil
}
