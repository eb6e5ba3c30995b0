package download

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/omics-tools/omics-transfer/errors"
	"github.com/omics-tools/omics-transfer/internal/coordinator"
	"github.com/omics-tools/omics-transfer/internal/executor"
)

// OutputManager abstracts the download destination. Implementations own the
// destination handle and hand each chunk to the io pool; the single io worker
// guarantees writes to one destination never interleave.
type OutputManager interface {
	// Open prepares the destination. Called once, before any part is queued.
	Open() error

	// QueueChunk schedules one chunk write at the given absolute offset.
	// It blocks when the io pool backlog is full.
	QueueChunk(data []byte, offset int64) error

	// Finalize completes the destination after every part succeeded. Runs on
	// the io pool worker, after all queued writes.
	Finalize() error

	// Cleanup releases the destination on failure or cancellation, removing
	// any temporary file so a partial download is never visible.
	Cleanup()
}

// NewOutputManager selects the destination variant for dst, probing
// compatibility in order: named file, seekable stream, non-seekable stream.
// An unsupported destination is a configuration error, raised before any task
// is queued.
func NewOutputManager(dst any, coord *coordinator.Coordinator, ioPool *executor.Pool) (OutputManager, error) {
	switch d := dst.(type) {
	case string:
		return &fileOutput{finalPath: d, coord: coord, ioPool: ioPool}, nil
	case io.WriterAt:
		return &writerAtOutput{w: d, coord: coord, ioPool: ioPool}, nil
	case io.WriteSeeker:
		return &writeSeekerOutput{w: d, coord: coord, ioPool: ioPool}, nil
	case io.Writer:
		return &orderedOutput{w: d, coord: coord, ioPool: ioPool, pending: make(map[int64][]byte)}, nil
	default:
		return nil, fmt.Errorf("%w: %T", errors.ErrUnsupportedDestination, dst)
	}
}

// fileOutput writes to a temporary sibling of the final path and renames it
// into place only after every part succeeded. If the completed content sniffs
// as gzip the final name gains a .gz suffix.
type fileOutput struct {
	finalPath string
	coord     *coordinator.Coordinator
	ioPool    *executor.Pool

	f        *os.File
	tempPath string
}

func (o *fileOutput) Open() error {
	f, err := os.CreateTemp(filepath.Dir(o.finalPath), filepath.Base(o.finalPath)+".")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	o.f = f
	o.tempPath = f.Name()
	return nil
}

func (o *fileOutput) QueueChunk(data []byte, offset int64) error {
	return o.coord.Submit(o.ioPool, func() error {
		if _, err := o.f.WriteAt(data, offset); err != nil {
			return fmt.Errorf("write %s: %w", o.tempPath, err)
		}
		return nil
	})
}

func (o *fileOutput) Finalize() error {
	if err := o.f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", o.tempPath, err)
	}
	finalPath := o.finalPath
	// Decide the suffix from the file's content, not its name.
	if mtype, err := mimetype.DetectFile(o.tempPath); err == nil && mtype.Is("application/gzip") {
		finalPath += ".gz"
	}
	if err := os.Rename(o.tempPath, finalPath); err != nil {
		return fmt.Errorf("rename %s: %w", o.tempPath, err)
	}
	return nil
}

func (o *fileOutput) Cleanup() {
	if o.f == nil {
		return
	}
	o.f.Close()
	os.Remove(o.tempPath)
}

// writerAtOutput writes each chunk at its absolute offset, tolerating true
// out-of-order part completion.
type writerAtOutput struct {
	w      io.WriterAt
	coord  *coordinator.Coordinator
	ioPool *executor.Pool
}

func (o *writerAtOutput) Open() error { return nil }

func (o *writerAtOutput) QueueChunk(data []byte, offset int64) error {
	return o.coord.Submit(o.ioPool, func() error {
		if _, err := o.w.WriteAt(data, offset); err != nil {
			return fmt.Errorf("write at %d: %w", offset, err)
		}
		return nil
	})
}

func (o *writerAtOutput) Finalize() error { return nil }
func (o *writerAtOutput) Cleanup()        {}

// writeSeekerOutput seeks to each chunk's offset before writing. The single
// io worker keeps the seek-then-write pairs from interleaving.
type writeSeekerOutput struct {
	w      io.WriteSeeker
	coord  *coordinator.Coordinator
	ioPool *executor.Pool
}

func (o *writeSeekerOutput) Open() error { return nil }

func (o *writeSeekerOutput) QueueChunk(data []byte, offset int64) error {
	return o.coord.Submit(o.ioPool, func() error {
		if _, err := o.w.Seek(offset, io.SeekStart); err != nil {
			return fmt.Errorf("seek to %d: %w", offset, err)
		}
		if _, err := o.w.Write(data); err != nil {
			return fmt.Errorf("write at %d: %w", offset, err)
		}
		return nil
	})
}

func (o *writeSeekerOutput) Finalize() error { return nil }
func (o *writeSeekerOutput) Cleanup()        {}

// orderedOutput serializes writes to a non-seekable stream in strict byte
// order regardless of part completion order, holding out-of-order chunks
// until their predecessor has been flushed. Chunks below the write cursor are
// re-sends from a part retry and are discarded; part attempts produce
// identical chunk boundaries, so such a chunk has already been flushed in
// full.
type orderedOutput struct {
	w      io.Writer
	coord  *coordinator.Coordinator
	ioPool *executor.Pool

	mu         sync.Mutex
	nextOffset int64
	pending    map[int64][]byte
}

func (o *orderedOutput) Open() error { return nil }

func (o *orderedOutput) QueueChunk(data []byte, offset int64) error {
	return o.coord.Submit(o.ioPool, func() error {
		o.mu.Lock()
		defer o.mu.Unlock()
		if offset < o.nextOffset {
			// already flushed on an earlier attempt of this part
			return nil
		}
		if offset != o.nextOffset {
			o.pending[offset] = data
			return nil
		}
		if err := o.flush(data); err != nil {
			return err
		}
		for {
			next, ok := o.pending[o.nextOffset]
			if !ok {
				return nil
			}
			delete(o.pending, o.nextOffset)
			if err := o.flush(next); err != nil {
				return err
			}
		}
	})
}

// flush writes one in-order chunk; o.mu must be held.
func (o *orderedOutput) flush(data []byte) error {
	if _, err := o.w.Write(data); err != nil {
		return fmt.Errorf("write at %d: %w", o.nextOffset, err)
	}
	o.nextOffset += int64(len(data))
	return nil
}

func (o *orderedOutput) Finalize() error { return nil }

func (o *orderedOutput) Cleanup() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = make(map[int64][]byte)
}
