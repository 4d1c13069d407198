package validate

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/quatton/qseq/pkg/qerr"
)

var digestLine = regexp.MustCompile(`^[0-9a-fA-F]{32}$`)

// ManifestEntry is one line of a transferdone file: either a path or the md5
// digest of a cell-relative path.
type ManifestEntry struct {
	Path   string
	Digest string
}

// ReadManifest parses a transferdone file. Blank lines and # comments are
// skipped.
func ReadManifest(path string) ([]ManifestEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, qerr.New(qerr.CodeFileNotFound, err)
	}
	defer f.Close()

	var entries []ManifestEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if digestLine.MatchString(line) {
			entries = append(entries, ManifestEntry{Digest: strings.ToLower(line)})
			continue
		}
		entries = append(entries, ManifestEntry{Path: line})
	}
	if err := scanner.Err(); err != nil {
		return nil, qerr.New(qerr.CodeFileTransfer, fmt.Errorf("read manifest %s: %w", path, err))
	}
	return entries, nil
}

// ValidateTransfer checks every manifest entry against the cell directory.
func ValidateTransfer(cellDir, manifestPath string) error {
	entries, err := ReadManifest(manifestPath)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return qerr.Newf(qerr.CodeFileTransfer, "manifest %s lists no files", manifestPath)
	}

	var digests map[string]bool
	var missing []string
	for _, entry := range entries {
		if entry.Digest != "" {
			if digests == nil {
				if digests, err = pathDigests(cellDir); err != nil {
					return qerr.New(qerr.CodeFileTransfer, err)
				}
			}
			if !digests[entry.Digest] {
				missing = append(missing, entry.Digest)
			}
			continue
		}

		path := entry.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(cellDir, path)
		}
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, entry.Path)
		}
	}

	if len(missing) > 0 {
		return qerr.Newf(qerr.CodeFileTransfer, "%d of %d manifest entries missing in %s: %s",
			len(missing), len(entries), cellDir, strings.Join(missing, ", "))
	}
	return nil
}

// pathDigests hashes the slash-separated relative path of every regular file
// under root.
func pathDigests(root string) (map[string]bool, error) {
	digests := map[string]bool{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		sum := md5.Sum([]byte(filepath.ToSlash(rel)))
		digests[hex.EncodeToString(sum[:])] = true
		return nil
	})
	return digests, err
}
