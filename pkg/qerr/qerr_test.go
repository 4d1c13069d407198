package qerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewNilReturnsNil(t *testing.T) {
	assert.NoError(t, New(CodeParsing, nil))
}

func TestIsCodeWalksNestedCodes(t *testing.T) {
	cause := errors.New("missing ccs2.number_of_ccs_reads")
	inner := New(CodeParsing, cause)
	outer := New(CodePostProcessing, fmt.Errorf("store stage: %w", inner))

	assert.True(t, IsCode(outer, CodePostProcessing))
	assert.True(t, IsCode(outer, CodeParsing))
	assert.False(t, IsCode(outer, CodeStoreFile))
	assert.ErrorIs(t, outer, cause)
	assert.Equal(t, CodePostProcessing, CodeOf(outer))
}

func TestIsCodeJoined(t *testing.T) {
	joined := errors.Join(
		New(CodeFileTransfer, errors.New("run B")),
		errors.New("plain"),
	)
	assert.True(t, IsCode(joined, CodeFileTransfer))
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("plain")))
}

func TestErrorString(t *testing.T) {
	err := Newf(CodeRunNameFormat, "run name %q has no well segment", "r1_2_3")
	assert.Equal(t, `run_name_format: run name "r1_2_3" has no well segment`, err.Error())
}
