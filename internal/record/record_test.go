package record

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = SubjectRecord{
	Index:       "10001",
	Eye:         Left,
	LumBefore:   101.25,
	PupilBefore: 4.125,
	CountBefore: 42,
	StdBefore:   0.25,
	LumAfter:    98.5,
	PupilAfter:  4.5,
	CountAfter:  40,
	StdAfter:    0.5,
}

func TestMarshal(t *testing.T) {
	line := Marshal(sample)
	assert.Equal(t, "10001 101.250 4.125 42 0.250 98.500 4.500 40 0.500", line)
}

func TestParseRoundTrip(t *testing.T) {
	got, err := Parse(Marshal(sample))
	require.NoError(t, err)

	want := sample
	want.Eye = "" // eye is not part of the line format
	assert.Equal(t, want, got)
}

func TestParseSentinelValues(t *testing.T) {
	got, err := Parse("10002 -1.000 -1.000 0 -1.000 98.000 4.200 12 0.300")
	require.NoError(t, err)
	assert.Equal(t, -1.0, got.LumBefore)
	assert.Equal(t, -1.0, got.PupilBefore)
	assert.Equal(t, 0, got.CountBefore)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse("10001 not a record")
	assert.Error(t, err)

	_, err = Parse("10001 1 2 3")
	assert.Error(t, err)
}

func TestObserved(t *testing.T) {
	s := sample.Observed()
	assert.Equal(t, 4.5, s.Mean)
	assert.Equal(t, 0.5, s.StdDev)
	assert.Equal(t, 40, s.N)
}

func TestWriteReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, Right.Filename())

	second := sample
	second.Index = "10002"
	require.NoError(t, WriteFile(path, []SubjectRecord{sample, second}))

	recs, err := ReadFile(path, Right)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "10001", recs[0].Index)
	assert.Equal(t, Right, recs[0].Eye)
	assert.Equal(t, "10002", recs[1].Index)
}

func TestReadFileSkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leftpupil.txt")
	content := Marshal(sample) + "\n\nnot a record line\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	recs, err := ReadFile(path, Left)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestEyeFilename(t *testing.T) {
	assert.Equal(t, "leftpupil.txt", Left.Filename())
	assert.Equal(t, "rightpupil.txt", Right.Filename())
}
