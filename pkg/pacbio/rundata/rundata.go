// Package rundata turns a run identifier such as
// "r84202_20240522_133539/1_A01" into a RunData locator.
package rundata

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/quatton/qseq/pkg/qerr"
)

// RunPrefix is the prefix every Revio run directory name starts with.
const RunPrefix = "r"

// RunData locates one SMRT cell of a sequencing run on disk.
type RunData struct {
	FullPath          string `json:"full_path"`
	SequencingRunName string `json:"sequencing_run_name"`
	WellName          string `json:"well_name"`
	Plate             int    `json:"plate"`
}

// Name returns the run identifier the RunData was parsed from.
func (r RunData) Name() string {
	return r.SequencingRunName + "/" + strconv.Itoa(r.Plate) + "_" + r.WellName
}

type Generator struct {
	sequencingDir string
}

func NewGenerator(sequencingDir string) *Generator {
	return &Generator{sequencingDir: sequencingDir}
}

func (g *Generator) SequencingDir() string {
	return g.sequencingDir
}

// GetRunData validates runName and resolves it under the sequencing directory.
func (g *Generator) GetRunData(runName string) (RunData, error) {
	return Parse(g.sequencingDir, runName)
}

// Parse is the stateless form of Generator.GetRunData.
func Parse(sequencingDir, runName string) (RunData, error) {
	if !strings.HasPrefix(runName, RunPrefix) {
		return RunData{}, qerr.Newf(qerr.CodeRunNameFormat, "run name %q must start with %q", runName, RunPrefix)
	}
	if strings.Count(runName, "/") != 1 {
		return RunData{}, qerr.Newf(qerr.CodeRunNameFormat, "run name %q must have the form <run>/<plate>_<well>", runName)
	}

	runSegment, cellSegment, _ := strings.Cut(runName, "/")
	if runSegment == "" {
		return RunData{}, qerr.Newf(qerr.CodeRunNameFormat, "run name %q has an empty run segment", runName)
	}

	parts := strings.Split(cellSegment, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return RunData{}, qerr.Newf(qerr.CodeRunNameFormat, "cell segment %q must have the form <plate>_<well>", cellSegment)
	}
	plate, err := strconv.Atoi(parts[0])
	if err != nil || plate < 0 {
		return RunData{}, qerr.Newf(qerr.CodeRunNameFormat, "plate %q in run name %q is not a number", parts[0], runName)
	}
	// Name() rebuilds the cell segment from the plate number.
	if strconv.Itoa(plate) != parts[0] {
		return RunData{}, qerr.Newf(qerr.CodeRunNameFormat, "plate %q in run name %q is not in canonical form", parts[0], runName)
	}

	return RunData{
		FullPath:          filepath.Join(sequencingDir, runName),
		SequencingRunName: runSegment,
		WellName:          parts[1],
		Plate:             plate,
	}, nil
}
