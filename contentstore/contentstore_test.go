package contentstore_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/metalad-go/metalad/contentstore"
	"github.com/metalad-go/metalad/merrors"
)

func TestAddAndGetMetadataRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := contentstore.Create(dir)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.AddPath("a/b"))
	require.NoError(t, s.AddMetadataToPath("a/b", "core", []byte("hello")))
	require.NoError(t, s.AddMetadataToPath("a/b", "xmp", []byte("world!!")))

	got, err := s.GetMetadata("a/b", "core")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)

	got, err = s.GetMetadata("a/b", "xmp")
	require.NoError(t, err)
	require.Equal(t, []byte("world!!"), got)

	require.NoError(t, s.Flush())

	reopened, err := contentstore.Open(dir)
	require.NoError(t, err)
	defer reopened.Close()
	got, err = reopened.GetMetadata("a/b", "core")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestAddMetadataToPathRejectsDuplicateFormat(t *testing.T) {
	dir := t.TempDir()
	s, err := contentstore.Create(dir)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.AddMetadataToPath("p", "core", []byte("one")))
	err = s.AddMetadataToPath("p", "core", []byte("two"))
	require.Error(t, err)
	require.IsType(t, merrors.MetadataAlreadyExistsError{}, err)
}

func TestDeleteMetadataFromPathAutoDeletesPath(t *testing.T) {
	dir := t.TempDir()
	s, err := contentstore.Create(dir)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.AddMetadataToPath("p", "core", []byte("v")))
	require.NoError(t, s.DeleteMetadataFromPath("p", "core", true))

	paths := s.GetPaths(nil)
	require.Empty(t, paths)

	_, err = s.GetMetadata("p", "core")
	require.Error(t, err)
}

func TestReplaceMetadataAtPath(t *testing.T) {
	dir := t.TempDir()
	s, err := contentstore.Create(dir)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.AddMetadataToPath("p", "core", []byte("old")))
	require.NoError(t, s.ReplaceMetadataAtPath("p", "core", []byte("new-value")))

	got, err := s.GetMetadata("p", "core")
	require.NoError(t, err)
	require.Equal(t, []byte("new-value"), got)
}

func TestJoinPrefixesPathsAndShiftsOffsets(t *testing.T) {
	leftDir, rightDir, outDir := t.TempDir(), t.TempDir(), t.TempDir()

	left, err := contentstore.Create(leftDir)
	require.NoError(t, err)
	defer left.Close()
	require.NoError(t, left.AddMetadataToPath("timestamp", "core", []byte("left-bytes")))

	right, err := contentstore.Create(rightDir)
	require.NoError(t, err)
	defer right.Close()
	require.NoError(t, right.AddMetadataToPath("timestamp", "core", []byte("right-bytes")))

	joined, err := contentstore.Join(outDir, "first", left, "second", right)
	require.NoError(t, err)
	defer joined.Close()

	got, err := joined.GetMetadata("first/timestamp", "core")
	require.NoError(t, err)
	require.Equal(t, []byte("left-bytes"), got)

	got, err = joined.GetMetadata("second/timestamp", "core")
	require.NoError(t, err)
	require.Equal(t, []byte("right-bytes"), got)

	require.NoError(t, joined.Flush())
}

func TestJoinRejectsSamePrefix(t *testing.T) {
	leftDir, rightDir, outDir := t.TempDir(), t.TempDir(), t.TempDir()
	left, err := contentstore.Create(leftDir)
	require.NoError(t, err)
	defer left.Close()
	right, err := contentstore.Create(rightDir)
	require.NoError(t, err)
	defer right.Close()

	_, err = contentstore.Join(outDir, "same", left, "same", right)
	require.Error(t, err)
	require.IsType(t, merrors.InvalidArgumentError{}, err)
}
