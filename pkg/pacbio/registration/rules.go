package registration

import (
	"path/filepath"
	"regexp"
)

type BundleType string

const (
	BundleSMRTCell BundleType = "smrt_cell"
	BundleSample   BundleType = "sample"
)

const (
	TagCCSReport        = "ccs-report"
	TagControlReport    = "control-report"
	TagLoadingReport    = "loading-report"
	TagRawDataReport    = "raw-data-report"
	TagSmrtlinkDatasets = "smrtlink-datasets"
	TagHiFi             = "hifi"
	TagBAM              = "bam"
	TagPacBio           = "pacbio"
)

type tagRule struct {
	pattern *regexp.Regexp
	tags    []string
}

// First match wins; patterns apply to the base name.
var tagRules = []tagRule{
	{regexp.MustCompile(`ccs_report\.json$`), []string{TagCCSReport}},
	{regexp.MustCompile(`^control\.report\.json$`), []string{TagControlReport}},
	{regexp.MustCompile(`^loading\.report\.json$`), []string{TagLoadingReport}},
	{regexp.MustCompile(`^raw_data\.report\.json$`), []string{TagRawDataReport}},
	{regexp.MustCompile(`^smrtlink-datasets\.json$`), []string{TagSmrtlinkDatasets}},
	{regexp.MustCompile(`\.hifi_reads\..+\.bam$`), []string{TagHiFi, TagBAM}},
}

type bundleRule struct {
	pattern *regexp.Regexp
	bundle  BundleType
}

var bundleRules = []bundleRule{
	{regexp.MustCompile(`\.bam$`), BundleSample},
	{regexp.MustCompile(`\.json$`), BundleSMRTCell},
}

var barcodePattern = regexp.MustCompile(`\.(bc\d+)(--bc\d+)?\.bam$`)

func tagsFor(path string) ([]string, bool) {
	base := filepath.Base(path)
	for _, rule := range tagRules {
		if rule.pattern.MatchString(base) {
			return append([]string{TagPacBio}, rule.tags...), true
		}
	}
	return nil, false
}

func bundleTypeFor(path string) (BundleType, bool) {
	base := filepath.Base(path)
	for _, rule := range bundleRules {
		if rule.pattern.MatchString(base) {
			return rule.bundle, true
		}
	}
	return "", false
}

// barcodeTokens returns the candidate barcodes embedded in a BAM name, the
// full pair first ("bc2004--bc2004", then "bc2004").
func barcodeTokens(path string) []string {
	m := barcodePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return nil
	}
	if m[2] != "" {
		return []string{m[1] + m[2], m[1]}
	}
	return []string{m[1]}
}
