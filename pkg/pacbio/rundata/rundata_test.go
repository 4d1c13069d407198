package rundata

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/quatton/qseq/pkg/qerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRunData(t *testing.T) {
	gen := NewGenerator("/seq")

	data, err := gen.GetRunData("r84202_20240522_133539/1_A01")
	require.NoError(t, err)

	assert.Equal(t, RunData{
		FullPath:          filepath.Join("/seq", "r84202_20240522_133539", "1_A01"),
		SequencingRunName: "r84202_20240522_133539",
		WellName:          "A01",
		Plate:             1,
	}, data)
	assert.Equal(t, "r84202_20240522_133539/1_A01", data.Name())
}

func TestGetRunDataWellFormedNames(t *testing.T) {
	for _, tc := range []struct {
		run   string
		plate int
		well  string
	}{
		{"r1_2_3", 1, "A01"},
		{"r84202_20240913_121403", 2, "D01"},
		{"r64000_19991231_000000", 4, "B12"},
	} {
		name := fmt.Sprintf("%s/%d_%s", tc.run, tc.plate, tc.well)
		t.Run(name, func(t *testing.T) {
			data, err := Parse("/root", name)
			require.NoError(t, err)
			assert.Equal(t, tc.run, data.SequencingRunName)
			assert.Equal(t, tc.plate, data.Plate)
			assert.Equal(t, tc.well, data.WellName)
			assert.Equal(t, filepath.Join("/root", name), data.FullPath)
		})
	}
}

func TestNameRoundTrips(t *testing.T) {
	for _, name := range []string{"r84202_20240522_133539/1_A01", "r84202_20240522_133539/12_D01", "r1/0_A01"} {
		data, err := Parse("/root", name)
		require.NoError(t, err)
		assert.Equal(t, name, data.Name())
	}
}

func TestGetRunDataRejectsMalformedNames(t *testing.T) {
	for _, name := range []string{
		"",
		"84202_20240522_133539/1_A01",
		"m84202_20240522_133539/1_A01",
		"r84202_20240522_133539",
		"r84202_20240522_133539/1_A01/extra",
		"r84202_20240522_133539/1A01",
		"r84202_20240522_133539/1_A01_B",
		"r84202_20240522_133539/_A01",
		"r84202_20240522_133539/1_",
		"r84202_20240522_133539/x_A01",
		"r84202_20240522_133539/01_A01",
		"r84202_20240522_133539/+1_A01",
		"r84202_20240522_133539/-1_A01",
	} {
		t.Run(name, func(t *testing.T) {
			data, err := Parse("/root", name)
			require.Error(t, err)
			assert.True(t, qerr.IsCode(err, qerr.CodeRunNameFormat))
			assert.Equal(t, RunData{}, data)
		})
	}
}
