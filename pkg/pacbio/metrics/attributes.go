package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/quatton/qseq/pkg/qerr"
)

type attribute struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
}

type attributesDocument struct {
	Attributes *[]attribute `json:"attributes"`
}

// readAttributes flattens an attributes report into id -> value.
func readAttributes(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, qerr.New(qerr.CodeFileNotFound, err)
	}

	var doc attributesDocument
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, qerr.New(qerr.CodeParsing, fmt.Errorf("decode %s: %w", path, err))
	}
	if doc.Attributes == nil {
		return nil, qerr.Newf(qerr.CodeParsing, "%s has no attributes list", path)
	}

	values := make(map[string]any, len(*doc.Attributes))
	for _, attr := range *doc.Attributes {
		if attr.ID == "" {
			return nil, qerr.Newf(qerr.CodeParsing, "%s has an attribute without id", path)
		}
		if _, dup := values[attr.ID]; dup {
			return nil, qerr.Newf(qerr.CodeParsing, "%s repeats attribute %q", path, attr.ID)
		}
		values[attr.ID] = attr.Value
	}
	return values, nil
}

// decodeRecord fills out from values and fails when a key that is not listed
// in optional is absent or null.
func decodeRecord(source string, values map[string]any, out any, optional ...string) error {
	present := make(map[string]any, len(values))
	for k, v := range values {
		if v != nil {
			present[k] = v
		}
	}

	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     out,
		Metadata:   &md,
		TagName:    "mapstructure",
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(present); err != nil {
		return qerr.New(qerr.CodeParsing, fmt.Errorf("%s: %w", source, err))
	}

	skip := map[string]bool{"-": true}
	for _, key := range optional {
		skip[key] = true
	}
	var missing []string
	for _, key := range md.Unset {
		if !skip[key] {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return qerr.Newf(qerr.CodeParsing, "%s is missing required fields: %s", source, strings.Join(missing, ", "))
	}
	return nil
}

// percent turns a fraction into a percentage rounded to places decimals.
func percent(fraction float64, places int) float64 {
	return roundTo(fraction*100, places)
}

// kilobases converts a base pair count to kb with one decimal.
func kilobases(bp int64) float64 {
	return roundTo(float64(bp)/1000, 1)
}

func share(part, total int64, places int) float64 {
	if total == 0 {
		return 0
	}
	return roundTo(float64(part)*100/float64(total), places)
}

func meanLength(yield, reads int64) int64 {
	if reads == 0 {
		return 0
	}
	return int64(math.Round(float64(yield) / float64(reads)))
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
