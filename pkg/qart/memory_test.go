package qart_test

import (
	"context"
	"strings"
	"testing"

	"github.com/quatton/qseq/pkg/qart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := qart.NewMemoryStore()

	_, err := s.Stat(ctx, "files/abc/a.bam")
	require.ErrorIs(t, err, qart.ErrNotFound)

	obj, err := s.Upload(ctx, "files/abc/a.bam", strings.NewReader("BAM data"), 3, "application/octet-stream", map[string]string{"sha256": "abc"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), obj.Size)

	_, err = s.Upload(ctx, "files/def/b.json", strings.NewReader("{}"), -1, "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Uploads())

	info, err := s.Stat(ctx, "files/def/b.json")
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.Size)
	assert.Equal(t, "application/json", info.ContentType)

	require.NoError(t, s.Delete(ctx, "files/abc/a.bam"))
	require.NoError(t, s.Delete(ctx, "files/abc/a.bam"))
	_, err = s.Stat(ctx, "files/abc/a.bam")
	assert.ErrorIs(t, err, qart.ErrNotFound)
}

func TestContentKey(t *testing.T) {
	assert.Equal(t, "files/0123/m1.ccs_report.json", qart.ContentKey("0123", "/seq/r1/1_A01/statistics/m1.ccs_report.json"))
}
