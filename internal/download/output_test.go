package download

import (
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omics-tools/omics-transfer/errors"
	"github.com/omics-tools/omics-transfer/internal/coordinator"
	"github.com/omics-tools/omics-transfer/internal/executor"
)

type writerAtOnly struct{}

func (writerAtOnly) WriteAt(p []byte, off int64) (int, error) { return len(p), nil }

type writeSeekerOnly struct {
	w io.WriteSeeker
}

func (s *writeSeekerOnly) Write(p []byte) (int, error) { return s.w.Write(p) }

func (s *writeSeekerOnly) Seek(off int64, whence int) (int64, error) {
	return s.w.Seek(off, whence)
}

func TestNewOutputManagerSelection(t *testing.T) {
	coord := coordinator.New(1)
	ioPool := executor.New(10, 1)
	defer ioPool.Shutdown()

	tests := []struct {
		name string
		dst  any
		want any
	}{
		{name: "file path", dst: "/tmp/out.fastq", want: &fileOutput{}},
		{name: "writer at", dst: writerAtOnly{}, want: &writerAtOutput{}},
		{name: "write seeker", dst: &writeSeekerOnly{}, want: &writeSeekerOutput{}},
		{name: "plain writer", dst: &bytes.Buffer{}, want: &orderedOutput{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewOutputManager(tt.dst, coord, ioPool)
			require.NoError(t, err)
			assert.IsType(t, tt.want, out)
		})
	}

	t.Run("unsupported", func(t *testing.T) {
		_, err := NewOutputManager(42, coord, ioPool)
		assert.ErrorIs(t, err, errors.ErrUnsupportedDestination)
	})
}

// flushIO waits until every write queued so far has been executed.
func flushIO(t *testing.T, ioPool *executor.Pool) {
	t.Helper()
	done := make(chan struct{})
	require.NoError(t, ioPool.Submit(func() { close(done) }))
	<-done
}

func TestFileOutputWritesTempThenRenames(t *testing.T) {
	dir := t.TempDir()
	finalPath := filepath.Join(dir, "readset_source1")
	coord := coordinator.New(1)
	ioPool := executor.New(10, 1)
	defer ioPool.Shutdown()

	out, err := NewOutputManager(finalPath, coord, ioPool)
	require.NoError(t, err)
	require.NoError(t, out.Open())

	require.NoError(t, out.QueueChunk([]byte("world"), 5))
	require.NoError(t, out.QueueChunk([]byte("hello"), 0))
	flushIO(t, ioPool)

	// the final path must not appear until Finalize
	_, err = os.Stat(finalPath)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, out.Finalize())
	data, err := os.ReadFile(finalPath)
	require.NoError(t, err)
	assert.Equal(t, "helloworld", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must be gone after rename")
}

func TestFileOutputRenamesGzipContent(t *testing.T) {
	dir := t.TempDir()
	finalPath := filepath.Join(dir, "readset_source1")
	coord := coordinator.New(1)
	ioPool := executor.New(10, 1)
	defer ioPool.Shutdown()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte("@read1\nACGT\n+\nFFFF\n"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	out, err := NewOutputManager(finalPath, coord, ioPool)
	require.NoError(t, err)
	require.NoError(t, out.Open())
	require.NoError(t, out.QueueChunk(buf.Bytes(), 0))
	flushIO(t, ioPool)
	require.NoError(t, out.Finalize())

	_, err = os.Stat(finalPath)
	assert.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(finalPath + ".gz")
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), data)
}

func TestFileOutputCleanupRemovesTemp(t *testing.T) {
	dir := t.TempDir()
	coord := coordinator.New(1)
	ioPool := executor.New(10, 1)
	defer ioPool.Shutdown()

	out, err := NewOutputManager(filepath.Join(dir, "readset_source1"), coord, ioPool)
	require.NoError(t, err)
	require.NoError(t, out.Open())
	require.NoError(t, out.QueueChunk([]byte("partial"), 0))
	flushIO(t, ioPool)

	out.Cleanup()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileOutputCleanupBeforeOpen(t *testing.T) {
	coord := coordinator.New(1)
	ioPool := executor.New(10, 1)
	defer ioPool.Shutdown()

	out, err := NewOutputManager(filepath.Join(t.TempDir(), "x"), coord, ioPool)
	require.NoError(t, err)
	assert.NotPanics(t, out.Cleanup)
}

func TestWriteSeekerOutputHandlesOffsets(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "seek")
	require.NoError(t, err)
	defer f.Close()

	coord := coordinator.New(1)
	ioPool := executor.New(10, 1)
	defer ioPool.Shutdown()

	out, err := NewOutputManager(&writeSeekerOnly{w: f}, coord, ioPool)
	require.NoError(t, err)
	require.NoError(t, out.Open())
	require.NoError(t, out.QueueChunk([]byte("bb"), 2))
	require.NoError(t, out.QueueChunk([]byte("aa"), 0))
	flushIO(t, ioPool)
	require.NoError(t, out.Finalize())

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Equal(t, "aabb", string(data))
}

func TestOrderedOutputFlushesInByteOrder(t *testing.T) {
	var buf bytes.Buffer
	coord := coordinator.New(1)
	ioPool := executor.New(10, 1)
	defer ioPool.Shutdown()

	out, err := NewOutputManager(&buf, coord, ioPool)
	require.NoError(t, err)
	require.NoError(t, out.Open())

	// arrive out of order: middle, tail, then head
	require.NoError(t, out.QueueChunk([]byte("bbbb"), 4))
	require.NoError(t, out.QueueChunk([]byte("cc"), 8))
	require.NoError(t, out.QueueChunk([]byte("aaaa"), 0))
	flushIO(t, ioPool)
	require.NoError(t, out.Finalize())

	assert.Equal(t, "aaaabbbbcc", buf.String())
}

func TestOrderedOutputDiscardsReplayedChunks(t *testing.T) {
	var buf bytes.Buffer
	coord := coordinator.New(1)
	ioPool := executor.New(10, 1)
	defer ioPool.Shutdown()

	out, err := NewOutputManager(&buf, coord, ioPool)
	require.NoError(t, err)
	require.NoError(t, out.QueueChunk([]byte("aaaa"), 0))
	require.NoError(t, out.QueueChunk([]byte("bbbb"), 4))

	// a retried part re-sends chunks already behind the write cursor
	require.NoError(t, out.QueueChunk([]byte("aaaa"), 0))
	require.NoError(t, out.QueueChunk([]byte("bbbb"), 4))
	require.NoError(t, out.QueueChunk([]byte("cc"), 8))
	flushIO(t, ioPool)

	assert.Equal(t, "aaaabbbbcc", buf.String())
}

func TestOrderedOutputCleanupDropsPending(t *testing.T) {
	var buf bytes.Buffer
	coord := coordinator.New(1)
	ioPool := executor.New(10, 1)
	defer ioPool.Shutdown()

	out, err := NewOutputManager(&buf, coord, ioPool)
	require.NoError(t, err)
	require.NoError(t, out.QueueChunk([]byte("bbbb"), 4))
	flushIO(t, ioPool)

	out.Cleanup()
	require.NoError(t, out.QueueChunk([]byte("aaaa"), 0))
	flushIO(t, ioPool)

	assert.Equal(t, "aaaa", buf.String(), "dropped chunks must not flush later")
}
