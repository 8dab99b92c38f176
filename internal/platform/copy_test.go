package platform

import (
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRandom(t *testing.T, path string, size int) []byte {
	t.Helper()
	data := make([]byte, size)
	_, err := rand.Read(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return data
}

func openDst(t *testing.T, path string) *os.File {
	t.Helper()
	fd, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() { fd.Close() })
	return fd
}

func TestCopyFileBasic(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")

	data := []byte("hello, spacetask!")
	require.NoError(t, os.WriteFile(src, data, 0o644))

	dstFd := openDst(t, dst)
	result, err := CopyFile(CopyFileParams{
		SrcPath: src,
		DstFd:   dstFd,
		SrcSize: int64(len(data)),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), result.BytesWritten)

	dstFd.Close()
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestCopyFileChunkCallbacks(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")

	size := 4*1024*1024 + 123
	data := writeRandom(t, src, size)

	var calls int
	var seen int64
	dstFd := openDst(t, dst)
	result, err := CopyFile(CopyFileParams{
		SrcPath:   src,
		DstFd:     dstFd,
		SrcSize:   int64(size),
		ChunkSize: 1 << 20,
		OnChunk: func(n int64) error {
			calls++
			seen += n
			assert.LessOrEqual(t, n, int64(1<<20))
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(size), result.BytesWritten)
	assert.Equal(t, int64(size), seen)
	assert.GreaterOrEqual(t, calls, 5)

	dstFd.Close()
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestCopyFileOnChunkErrorStops(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	writeRandom(t, src, 3*1024)

	stop := errors.New("stop")
	dstFd := openDst(t, filepath.Join(dir, "dst"))
	_, err := CopyFile(CopyFileParams{
		SrcPath:   src,
		DstFd:     dstFd,
		SrcSize:   3 * 1024,
		ChunkSize: 1024,
		OnChunk:   func(int64) error { return stop },
	})
	require.ErrorIs(t, err, stop)
}

func TestCopyReadWrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	data := writeRandom(t, src, 300*1024)

	dstFd := openDst(t, dst)
	result, err := CopyReadWrite(CopyFileParams{
		SrcPath:   src,
		DstFd:     dstFd,
		SrcSize:   int64(len(data)),
		ChunkSize: 64 * 1024,
	})
	require.NoError(t, err)
	assert.Equal(t, ReadWrite, result.Method)
	assert.Equal(t, int64(len(data)), result.BytesWritten)

	dstFd.Close()
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestCopyFileEmpty(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.WriteFile(src, nil, 0o644))

	dstFd := openDst(t, filepath.Join(dir, "dst"))
	result, err := CopyFile(CopyFileParams{SrcPath: src, DstFd: dstFd})
	require.NoError(t, err)
	assert.Zero(t, result.BytesWritten)
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	dstFd := openDst(t, filepath.Join(dir, "dst"))
	_, err := CopyFile(CopyFileParams{SrcPath: filepath.Join(dir, "nope"), DstFd: dstFd})
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestCopyMethodString(t *testing.T) {
	assert.Equal(t, "read_write", ReadWrite.String())
	assert.Equal(t, "copy_file_range", CopyFileRange.String())
	assert.Equal(t, "unknown", CopyMethod(42).String())
}
