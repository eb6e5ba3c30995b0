// Package upload implements the multipart read set upload pipeline: create a
// remote session, upload fixed-size chunks of one or two read sources
// concurrently, then complete the session with the ordered part list. A
// failure at any stage before completion aborts the remote session exactly
// once, so no orphaned sessions are left behind.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/omics"
	omicstypes "github.com/aws/aws-sdk-go-v2/service/omics/types"

	"github.com/omics-tools/omics-transfer/errors"
	"github.com/omics-tools/omics-transfer/internal/coordinator"
	"github.com/omics-tools/omics-transfer/internal/executor"
	"github.com/omics-tools/omics-transfer/internal/omicsapi"
	"github.com/omics-tools/omics-transfer/transfertypes"
)

// maxUploadParts is the service's per-upload part-count ceiling. The chunk
// size is only ever adjusted upward so a source never exceeds it.
const maxUploadParts = 10000

// Uploader drives multipart read set uploads on the request pool.
type Uploader struct {
	client        omicsapi.OmicsAPI
	config        *transfertypes.Config
	requestPool   *executor.Pool
	memoryLimiter *executor.Semaphore
	logger        *slog.Logger
}

// New creates an Uploader. The memory limiter caps how many part bodies are
// held in memory at once across all transfers.
func New(
	client omicsapi.OmicsAPI,
	config *transfertypes.Config,
	requestPool *executor.Pool,
	memoryLimiter *executor.Semaphore,
	logger *slog.Logger,
) *Uploader {
	return &Uploader{
		client:        client,
		config:        config,
		requestPool:   requestPool,
		memoryLimiter: memoryLimiter,
		logger:        logger,
	}
}

// Run is the submission task for one upload. It runs on the submission pool
// and blocks there until every part has been uploaded and the session
// completed or failed.
func (u *Uploader) Run(
	ctx context.Context,
	coord *coordinator.Coordinator,
	meta *transfertypes.Meta,
) error {
	if err := u.submit(ctx, coord, meta); err != nil {
		coord.SetException(err)
		coord.AnnounceDone()
		return err
	}
	return nil
}

func (u *Uploader) submit(
	ctx context.Context,
	coord *coordinator.Coordinator,
	meta *transfertypes.Meta,
) error {
	req := meta.Upload

	uploadID, err := u.createSession(ctx, req)
	if err != nil {
		return err
	}

	// From here on, any failed or cancelled terminal state must abort the
	// remote session.
	coord.AddFailureCleanup(func() {
		_, aerr := u.client.AbortMultipartReadSetUpload(context.Background(),
			&omics.AbortMultipartReadSetUploadInput{
				SequenceStoreId: aws.String(req.StoreID),
				UploadId:        aws.String(uploadID),
			})
		if aerr != nil && u.logger != nil {
			u.logger.Warn("abort of multipart read set upload failed",
				"uploadId", uploadID, "error", aerr)
		}
	})

	sources := []struct {
		src any
		tag omicstypes.ReadSetPartSource
	}{
		{req.Source1, omicstypes.ReadSetPartSourceSource1},
	}
	if req.Source2 != nil {
		sources = append(sources, struct {
			src any
			tag omicstypes.ReadSetPartSource
		}{req.Source2, omicstypes.ReadSetPartSourceSource2})
	}

	var (
		mu         sync.Mutex
		parts      []omicstypes.CompleteReadSetUploadPartListItem
		totalBytes int64
	)
	var wg sync.WaitGroup

	for _, source := range sources {
		if err := u.uploadSource(ctx, coord, req, uploadID, source.src, source.tag,
			&wg, &mu, &parts, &totalBytes); err != nil {
			coord.SetException(err)
			break
		}
	}
	wg.Wait()

	if coord.Stopped() {
		return coord.Err()
	}

	// Complete wants the part list ordered by source then part number; part
	// tasks finish out of order.
	sort.Slice(parts, func(i, j int) bool {
		if parts[i].PartSource != parts[j].PartSource {
			return parts[i].PartSource < parts[j].PartSource
		}
		return aws.ToInt32(parts[i].PartNumber) < aws.ToInt32(parts[j].PartNumber)
	})

	out, err := u.client.CompleteMultipartReadSetUpload(ctx,
		&omics.CompleteMultipartReadSetUploadInput{
			SequenceStoreId: aws.String(req.StoreID),
			UploadId:        aws.String(uploadID),
			Parts:           parts,
		})
	if err != nil {
		return errors.NewError("completeMultipartReadSetUpload", err).WithStore(req.StoreID)
	}

	meta.SetReadSetID(aws.ToString(out.ReadSetId))
	meta.ProvideSize(totalBytes)
	coord.AnnounceDone()
	return nil
}

func (u *Uploader) createSession(
	ctx context.Context,
	req *transfertypes.ReadSetUploadRequest,
) (string, error) {
	input := &omics.CreateMultipartReadSetUploadInput{
		SequenceStoreId: aws.String(req.StoreID),
		SourceFileType:  req.SourceFileType,
		SubjectId:       aws.String(req.SubjectID),
		SampleId:        aws.String(req.SampleID),
		Name:            aws.String(req.Name),
	}
	if req.GeneratedFrom != "" {
		input.GeneratedFrom = aws.String(req.GeneratedFrom)
	}
	if req.ReferenceArn != "" {
		input.ReferenceArn = aws.String(req.ReferenceArn)
	}
	if req.Description != "" {
		input.Description = aws.String(req.Description)
	}
	if len(req.Tags) > 0 {
		input.Tags = req.Tags
	}

	out, err := u.client.CreateMultipartReadSetUpload(ctx, input)
	if err != nil {
		return "", errors.NewError("createMultipartReadSetUpload", err).WithStore(req.StoreID)
	}
	return aws.ToString(out.UploadId), nil
}

// uploadSource slices one source into fixed-size chunks and submits a part
// task per chunk. Chunks are read sequentially so non-seekable sources work;
// the memory limiter is acquired before each read and released when the
// part's upload finishes.
func (u *Uploader) uploadSource(
	ctx context.Context,
	coord *coordinator.Coordinator,
	req *transfertypes.ReadSetUploadRequest,
	uploadID string,
	src any,
	tag omicstypes.ReadSetPartSource,
	wg *sync.WaitGroup,
	mu *sync.Mutex,
	parts *[]omicstypes.CompleteReadSetUploadPartListItem,
	totalBytes *int64,
) error {
	reader, size, closeSource, err := openSource(src)
	if err != nil {
		return err
	}
	defer closeSource()

	chunkSize := adjustChunkSize(u.config.UploadPartSize, size)

	var partNumber int32
	for {
		if coord.Stopped() {
			return nil
		}
		u.memoryLimiter.Acquire()
		body := make([]byte, chunkSize)
		n, rerr := io.ReadFull(reader, body)
		atEnd := rerr == io.EOF || rerr == io.ErrUnexpectedEOF
		if rerr != nil && !atEnd {
			u.memoryLimiter.Release()
			return fmt.Errorf("read upload source %s: %w", tag, rerr)
		}
		if n == 0 && partNumber > 0 {
			// Source size was an exact multiple of the chunk size.
			u.memoryLimiter.Release()
			return nil
		}

		// A zero-byte source still uploads one part with an empty body.
		partNumber++
		num := partNumber
		chunk := body[:n]
		wg.Add(1)
		serr := coord.Submit(u.requestPool, func() error {
			return u.uploadPart(ctx, req, uploadID, tag, num, chunk, mu, parts, totalBytes)
		}, u.memoryLimiter.Release, wg.Done)
		if serr != nil {
			return serr
		}
		if atEnd {
			return nil
		}
	}
}

func (u *Uploader) uploadPart(
	ctx context.Context,
	req *transfertypes.ReadSetUploadRequest,
	uploadID string,
	tag omicstypes.ReadSetPartSource,
	partNumber int32,
	body []byte,
	mu *sync.Mutex,
	parts *[]omicstypes.CompleteReadSetUploadPartListItem,
	totalBytes *int64,
) error {
	out, err := u.client.UploadReadSetPart(ctx, &omics.UploadReadSetPartInput{
		SequenceStoreId: aws.String(req.StoreID),
		UploadId:        aws.String(uploadID),
		PartSource:      tag,
		PartNumber:      aws.Int32(partNumber),
		Payload:         bytes.NewReader(body),
	})
	if err != nil {
		return errors.NewError("uploadReadSetPart", err).WithStore(req.StoreID)
	}

	mu.Lock()
	*parts = append(*parts, omicstypes.CompleteReadSetUploadPartListItem{
		Checksum:   out.Checksum,
		PartNumber: aws.Int32(partNumber),
		PartSource: tag,
	})
	*totalBytes += int64(len(body))
	mu.Unlock()
	return nil
}

// SupportedSource reports whether src can serve as an upload source. The
// manager uses it to reject unsupported sources synchronously, before any
// task is queued.
func SupportedSource(src any) bool {
	switch src.(type) {
	case string, io.Reader:
		return true
	}
	return false
}

// openSource resolves an upload source by probing compatibility in order:
// named file, seekable reader, plain reader. The returned size is -1 when it
// cannot be determined without consuming the source.
func openSource(src any) (io.Reader, int64, func(), error) {
	switch s := src.(type) {
	case string:
		f, err := os.Open(s)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("open upload source: %w", err)
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, 0, nil, fmt.Errorf("stat upload source: %w", err)
		}
		return f, info.Size(), func() { f.Close() }, nil
	case io.ReadSeeker:
		cur, err := s.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("seek upload source: %w", err)
		}
		end, err := s.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("seek upload source: %w", err)
		}
		if _, err := s.Seek(cur, io.SeekStart); err != nil {
			return nil, 0, nil, fmt.Errorf("seek upload source: %w", err)
		}
		return s, end - cur, func() {}, nil
	case io.Reader:
		return s, -1, func() {}, nil
	default:
		return nil, 0, nil, fmt.Errorf("%w: %T", errors.ErrUnsupportedSource, src)
	}
}

// adjustChunkSize grows the target chunk size just enough that the source
// fits under the part-count ceiling. It never shrinks the chunk size.
func adjustChunkSize(chunkSize, fileSize int64) int64 {
	if fileSize < 0 {
		return chunkSize
	}
	if needed := (fileSize + maxUploadParts - 1) / maxUploadParts; needed > chunkSize {
		return needed
	}
	return chunkSize
}
