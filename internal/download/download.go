// Package download implements the concurrent chunked download engine: the
// per-transfer fan-out into part tasks, part-level retry and streaming, and
// the destination variants writes are funneled through.
package download

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/omics"
	omicstypes "github.com/aws/aws-sdk-go-v2/service/omics/types"

	"github.com/omics-tools/omics-transfer/errors"
	"github.com/omics-tools/omics-transfer/internal/coordinator"
	"github.com/omics-tools/omics-transfer/internal/executor"
	"github.com/omics-tools/omics-transfer/internal/omicsapi"
	"github.com/omics-tools/omics-transfer/transfertypes"
)

// Downloader fans one file transfer out into part tasks on the request pool
// and funnels their chunks through an OutputManager into the io pool.
type Downloader struct {
	client      omicsapi.OmicsAPI
	config      *transfertypes.Config
	requestPool *executor.Pool
	ioPool      *executor.Pool
	logger      *slog.Logger
}

// New creates a Downloader.
func New(
	client omicsapi.OmicsAPI,
	config *transfertypes.Config,
	requestPool, ioPool *executor.Pool,
	logger *slog.Logger,
) *Downloader {
	return &Downloader{
		client:      client,
		config:      config,
		requestPool: requestPool,
		ioPool:      ioPool,
		logger:      logger,
	}
}

// partSpec describes one byte range of the file. Part numbers are 1-based
// and contiguous.
type partSpec struct {
	number int32
	offset int64
	size   int64
}

// Run is the submission task for one download. It runs on the submission
// pool. A failure before fan-out (metadata lookup, destination open) becomes
// the transfer's terminal error with zero part tasks spawned.
func (d *Downloader) Run(
	ctx context.Context,
	coord *coordinator.Coordinator,
	meta *transfertypes.Meta,
	out OutputManager,
) error {
	if err := d.submit(ctx, coord, meta, out); err != nil {
		coord.SetException(err)
		out.Cleanup()
		coord.AnnounceDone()
		return err
	}
	return nil
}

func (d *Downloader) submit(
	ctx context.Context,
	coord *coordinator.Coordinator,
	meta *transfertypes.Meta,
	out OutputManager,
) error {
	req := meta.FileTransfer

	// The lookup round trip is skipped entirely when the caller supplied the
	// part layout up front.
	info := req.FileInfo
	if info == nil {
		resolved, err := d.lookupFileInfo(ctx, req)
		if err != nil {
			return err
		}
		info = resolved
	}
	meta.ProvideSize(info.ContentLength)

	if err := out.Open(); err != nil {
		return err
	}

	// A zero-byte file is still one part with an empty body and still needs
	// finalization.
	totalParts := info.TotalParts
	if totalParts < 1 {
		totalParts = 1
	}

	finalUnit := func() {
		if coord.Stopped() {
			out.Cleanup()
		} else if err := out.Finalize(); err != nil {
			coord.SetException(err)
			out.Cleanup()
		}
		coord.AnnounceDone()
	}
	invoker := newCountInvoker(func() {
		if err := d.ioPool.Submit(finalUnit); err != nil {
			finalUnit()
		}
	})

	for i := int32(0); i < totalParts; i++ {
		spec := partSpec{
			number: i + 1,
			offset: int64(i) * info.PartSize,
		}
		spec.size = info.PartSize
		if i == totalParts-1 {
			spec.size = info.ContentLength - spec.offset
		}

		invoker.Increment()
		err := d.submitPart(ctx, coord, meta, spec, out, invoker.Decrement)
		if err != nil {
			invoker.Finalize()
			return err
		}
	}
	invoker.Finalize()
	return nil
}

func (d *Downloader) submitPart(
	ctx context.Context,
	coord *coordinator.Coordinator,
	meta *transfertypes.Meta,
	spec partSpec,
	out OutputManager,
	done func(),
) error {
	return coord.Submit(d.requestPool, func() error {
		return d.downloadPart(ctx, coord, meta, spec, out)
	}, done)
}

// downloadPart executes one part download, retrying transient network errors
// up to the configured attempt budget. Every retry re-issues the full part
// request from the part's original byte offset.
func (d *Downloader) downloadPart(
	ctx context.Context,
	coord *coordinator.Coordinator,
	meta *transfertypes.Meta,
	spec partSpec,
	out OutputManager,
) error {
	req := meta.FileTransfer
	var lastErr error
	for attempt := 1; attempt <= d.config.DownloadAttempts; attempt++ {
		queued, err := d.attemptPart(ctx, coord, meta, spec, out)
		if err == nil {
			return nil
		}
		if !isRetryableDownloadError(err) {
			return err
		}
		lastErr = err
		if d.logger != nil {
			d.logger.Debug("retrying part download",
				"part", spec.number,
				"attempt", attempt,
				"maxAttempts", d.config.DownloadAttempts,
				"error", err)
		}
		// The partial read is discarded, so walk the externally observed
		// progress back by the bytes already counted.
		if queued > 0 {
			invokeProgress(req.Subscribers, meta, -queued)
		}
	}
	return &errors.RetriesExceededError{Err: lastErr}
}

// attemptPart streams one response for the part, reporting how many bytes it
// counted as progress. A cancelled transfer makes it exit silently without
// enqueueing further writes.
//
// Chunks are read at fixed IOChunkSize boundaries, so every attempt of a part
// queues chunks at identical offsets. A short chunk that does not complete
// the part is counted as progress but never queued; destinations can then
// treat a chunk below their write cursor as an exact re-send from a retry.
func (d *Downloader) attemptPart(
	ctx context.Context,
	coord *coordinator.Coordinator,
	meta *transfertypes.Meta,
	spec partSpec,
	out OutputManager,
) (int64, error) {
	req := meta.FileTransfer

	body, err := d.fetchPart(ctx, req, spec.number)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	var queued int64
	for {
		buf := make([]byte, d.config.IOChunkSize)
		n, rerr := io.ReadFull(body, buf)
		if rerr != nil && rerr != io.EOF && rerr != io.ErrUnexpectedEOF {
			return queued, rerr
		}
		atEnd := rerr != nil
		if n > 0 {
			if coord.Stopped() {
				return queued, nil
			}
			invokeProgress(req.Subscribers, meta, int64(n))
			queued += int64(n)
			if n < d.config.IOChunkSize && queued < spec.size {
				// The stream ended mid-chunk before the declared part size:
				// a truncated read, which is retryable.
				return queued, io.ErrUnexpectedEOF
			}
			if qerr := out.QueueChunk(buf[:n], spec.offset+queued-int64(n)); qerr != nil {
				return queued, qerr
			}
		}
		if atEnd {
			if queued < spec.size {
				return queued, io.ErrUnexpectedEOF
			}
			return queued, nil
		}
	}
}

func (d *Downloader) fetchPart(
	ctx context.Context,
	req *transfertypes.FileTransfer,
	partNumber int32,
) (io.ReadCloser, error) {
	switch req.ResourceType {
	case transfertypes.ResourceTypeReadSet:
		out, err := d.client.GetReadSet(ctx, &omics.GetReadSetInput{
			Id:              aws.String(req.ResourceID),
			SequenceStoreId: aws.String(req.StoreID),
			PartNumber:      aws.Int32(partNumber),
			File:            omicstypes.ReadSetFile(strings.ToUpper(req.FileName)),
		})
		if err != nil {
			return nil, errors.NewError("getReadSet", err).
				WithStore(req.StoreID).WithResource(req.ResourceID)
		}
		return out.Payload, nil
	case transfertypes.ResourceTypeReference:
		out, err := d.client.GetReference(ctx, &omics.GetReferenceInput{
			Id:               aws.String(req.ResourceID),
			ReferenceStoreId: aws.String(req.StoreID),
			PartNumber:       aws.Int32(partNumber),
			File:             omicstypes.ReferenceFile(strings.ToUpper(req.FileName)),
		})
		if err != nil {
			return nil, errors.NewError("getReference", err).
				WithStore(req.StoreID).WithResource(req.ResourceID)
		}
		return out.Payload, nil
	default:
		return nil, errors.NewError("download",
			stderrors.New("unexpected resource type "+string(req.ResourceType)))
	}
}

// lookupFileInfo resolves the part layout of the requested file from the
// resource metadata.
func (d *Downloader) lookupFileInfo(
	ctx context.Context,
	req *transfertypes.FileTransfer,
) (*transfertypes.FileInfo, error) {
	var fi *omicstypes.FileInformation
	switch req.ResourceType {
	case transfertypes.ResourceTypeReadSet:
		out, err := d.client.GetReadSetMetadata(ctx, &omics.GetReadSetMetadataInput{
			Id:              aws.String(req.ResourceID),
			SequenceStoreId: aws.String(req.StoreID),
		})
		if err != nil {
			return nil, errors.NewError("getReadSetMetadata", err).
				WithStore(req.StoreID).WithResource(req.ResourceID)
		}
		if out.Files != nil {
			switch strings.ToUpper(req.FileName) {
			case string(omicstypes.ReadSetFileSource1):
				fi = out.Files.Source1
			case string(omicstypes.ReadSetFileSource2):
				fi = out.Files.Source2
			case string(omicstypes.ReadSetFileIndex):
				fi = out.Files.Index
			}
		}
	case transfertypes.ResourceTypeReference:
		out, err := d.client.GetReferenceMetadata(ctx, &omics.GetReferenceMetadataInput{
			Id:               aws.String(req.ResourceID),
			ReferenceStoreId: aws.String(req.StoreID),
		})
		if err != nil {
			return nil, errors.NewError("getReferenceMetadata", err).
				WithStore(req.StoreID).WithResource(req.ResourceID)
		}
		if out.Files != nil {
			switch strings.ToUpper(req.FileName) {
			case string(omicstypes.ReferenceFileSource):
				fi = out.Files.Source
			case string(omicstypes.ReferenceFileIndex):
				fi = out.Files.Index
			}
		}
	default:
		return nil, errors.NewError("download",
			stderrors.New("unexpected resource type "+string(req.ResourceType)))
	}

	if fi == nil {
		return nil, errors.NewError("download", errors.ErrFileNotFound).
			WithStore(req.StoreID).WithResource(req.ResourceID)
	}
	return &transfertypes.FileInfo{
		ContentLength: aws.ToInt64(fi.ContentLength),
		PartSize:      aws.ToInt64(fi.PartSize),
		TotalParts:    aws.ToInt32(fi.TotalParts),
	}, nil
}

// isRetryableDownloadError reports whether err is one of the transient
// network error kinds worth re-issuing the part request for: a timeout, a
// connection reset, or a truncated read. Anything else fails immediately.
func isRetryableDownloadError(err error) bool {
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if stderrors.Is(err, syscall.ECONNRESET) {
		return true
	}
	if stderrors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return false
}

func invokeProgress(subs []transfertypes.Subscriber, meta *transfertypes.Meta, n int64) {
	for _, s := range subs {
		s.OnProgress(meta, n)
	}
}

// countInvoker invokes its callback once the registered count of part tasks
// has completed. Finalize must be called after the fan-out loop so a count
// reaching zero early (fast parts) does not fire prematurely.
type countInvoker struct {
	mu        sync.Mutex
	count     int
	finalized bool
	fired     bool
	cb        func()
}

func newCountInvoker(cb func()) *countInvoker {
	return &countInvoker{cb: cb}
}

func (ci *countInvoker) Increment() {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	ci.count++
}

func (ci *countInvoker) Decrement() {
	ci.mu.Lock()
	ci.count--
	fire := ci.finalized && ci.count == 0 && !ci.fired
	if fire {
		ci.fired = true
	}
	ci.mu.Unlock()
	if fire {
		ci.cb()
	}
}

func (ci *countInvoker) Finalize() {
	ci.mu.Lock()
	ci.finalized = true
	fire := ci.count == 0 && !ci.fired
	if fire {
		ci.fired = true
	}
	ci.mu.Unlock()
	if fire {
		ci.cb()
	}
}
