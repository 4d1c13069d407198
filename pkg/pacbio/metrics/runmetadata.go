package metrics

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/quatton/qseq/pkg/qerr"
)

// ParseRunMetadata reads the first <Run> element, in any namespace, of a run
// metadata XML file.
func ParseRunMetadata(path string) (RunMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return RunMetadata{}, qerr.New(qerr.CodeFileNotFound, err)
	}
	defer f.Close()

	dec := xml.NewDecoder(f)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return RunMetadata{}, qerr.Newf(qerr.CodeParsing, "%s has no Run element", path)
		}
		if err != nil {
			return RunMetadata{}, qerr.New(qerr.CodeParsing, fmt.Errorf("decode %s: %w", path, err))
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "Run" {
			continue
		}
		var run RunMetadata
		if err := dec.DecodeElement(&run, &start); err != nil {
			return RunMetadata{}, qerr.New(qerr.CodeParsing, fmt.Errorf("decode Run element in %s: %w", path, err))
		}
		if run.Name == "" || run.TimeStampedName == "" {
			return RunMetadata{}, qerr.Newf(qerr.CodeParsing, "Run element in %s lacks Name or TimeStampedName", path)
		}
		return run, nil
	}
}
