package validate

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/quatton/qseq/pkg/qerr"
)

// Unzip extracts archive into dest and returns the number of files written.
// Entries resolving outside dest are rejected.
func Unzip(ctx context.Context, archive, dest string) (int, error) {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return 0, qerr.New(qerr.CodeFileTransfer, fmt.Errorf("open archive %s: %w", archive, err))
	}
	defer r.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return 0, qerr.New(qerr.CodeFileTransfer, err)
	}
	root := filepath.Clean(dest) + string(os.PathSeparator)

	written := 0
	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		target := filepath.Join(dest, f.Name)
		if !strings.HasPrefix(target, root) {
			return written, qerr.Newf(qerr.CodeFileTransfer, "archive entry %q escapes %s", f.Name, dest)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return written, qerr.New(qerr.CodeFileTransfer, err)
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return written, qerr.New(qerr.CodeFileTransfer, fmt.Errorf("extract %s: %w", f.Name, err))
		}
		written++
	}
	return written, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}
