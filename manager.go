package transfer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/omics"
	omicstypes "github.com/aws/aws-sdk-go-v2/service/omics/types"

	"github.com/omics-tools/omics-transfer/errors"
	"github.com/omics-tools/omics-transfer/internal/coordinator"
	"github.com/omics-tools/omics-transfer/internal/download"
	"github.com/omics-tools/omics-transfer/internal/executor"
	"github.com/omics-tools/omics-transfer/internal/omicsapi"
	"github.com/omics-tools/omics-transfer/internal/upload"
	"github.com/omics-tools/omics-transfer/transfertypes"
)

// Subscriber receives transfer lifecycle events.
type Subscriber = transfertypes.Subscriber

// Manager moves read set and reference files between HealthOmics stores and
// local storage using three bounded worker pools: a submission pool that fans
// each transfer out into part tasks, a request pool that executes the part
// requests, and a single-worker io pool that serializes all destination
// writes.
type Manager struct {
	client     omicsapi.OmicsAPI
	config     *transfertypes.Config
	controller *coordinator.Controller

	submissionPool *executor.Pool
	requestPool    *executor.Pool
	ioPool         *executor.Pool

	downloader *download.Downloader
	uploader   *upload.Uploader

	// idCounter creates unique IDs for each transfer submitted
	idCounter atomic.Int64
}

func newManager(client omicsapi.OmicsAPI, cfg *transfertypes.Config) *Manager {
	submissionPool := executor.New(cfg.MaxSubmissionQueueSize, cfg.MaxSubmissionConcurrency)
	requestPool := executor.New(cfg.MaxRequestQueueSize, cfg.MaxRequestConcurrency)

	// One worker handles all destination writes. It covers downloads for all
	// files, removing the need for per-destination locks.
	ioPool := executor.New(cfg.MaxIOQueueSize, 1)

	return &Manager{
		client:         client,
		config:         cfg,
		controller:     coordinator.NewController(),
		submissionPool: submissionPool,
		requestPool:    requestPool,
		ioPool:         ioPool,
		downloader:     download.New(client, cfg, requestPool, ioPool, cfg.Logger),
		uploader: upload.New(client, cfg, requestPool,
			executor.NewSemaphore(cfg.MaxInMemoryUploadParts), cfg.Logger),
	}
}

// DownloadReadSet downloads every file of a read set into the given
// directory (the configured default when directory is empty), one transfer
// per file. Files land as {storeID}_{readSetID}_{file}.
func (m *Manager) DownloadReadSet(
	ctx context.Context,
	sequenceStoreID, readSetID string,
	directory string,
	subscribers ...Subscriber,
) ([]*TransferFuture, error) {
	out, err := m.client.GetReadSetMetadata(ctx, &omics.GetReadSetMetadataInput{
		Id:              aws.String(readSetID),
		SequenceStoreId: aws.String(sequenceStoreID),
	})
	if err != nil {
		return nil, errors.NewError("getReadSetMetadata", err).
			WithStore(sequenceStoreID).WithResource(readSetID)
	}

	var files []serverFile
	if out.Files != nil {
		files = presentFiles([]serverFile{
			{string(omicstypes.ReadSetFileSource1), out.Files.Source1},
			{string(omicstypes.ReadSetFileSource2), out.Files.Source2},
			{string(omicstypes.ReadSetFileIndex), out.Files.Index},
		})
	}
	return m.downloadAll(ctx, transfertypes.ResourceTypeReadSet,
		sequenceStoreID, readSetID, directory, files, subscribers)
}

// DownloadReadSetFile downloads a single read set file. The destination may
// be a file path, an io.WriterAt, an io.WriteSeeker or an io.Writer; when
// nil, a default path under the configured directory is used.
func (m *Manager) DownloadReadSetFile(
	ctx context.Context,
	sequenceStoreID, readSetID string,
	file omicstypes.ReadSetFile,
	destination any,
	subscribers ...Subscriber,
) (*TransferFuture, error) {
	return m.downloadFile(ctx, transfertypes.ResourceTypeReadSet,
		sequenceStoreID, readSetID, string(file), destination, nil, subscribers)
}

// DownloadReference downloads every file of a reference into the given
// directory (the configured default when directory is empty), one transfer
// per file.
func (m *Manager) DownloadReference(
	ctx context.Context,
	referenceStoreID, referenceID string,
	directory string,
	subscribers ...Subscriber,
) ([]*TransferFuture, error) {
	out, err := m.client.GetReferenceMetadata(ctx, &omics.GetReferenceMetadataInput{
		Id:               aws.String(referenceID),
		ReferenceStoreId: aws.String(referenceStoreID),
	})
	if err != nil {
		return nil, errors.NewError("getReferenceMetadata", err).
			WithStore(referenceStoreID).WithResource(referenceID)
	}

	var files []serverFile
	if out.Files != nil {
		files = presentFiles([]serverFile{
			{string(omicstypes.ReferenceFileSource), out.Files.Source},
			{string(omicstypes.ReferenceFileIndex), out.Files.Index},
		})
	}
	return m.downloadAll(ctx, transfertypes.ResourceTypeReference,
		referenceStoreID, referenceID, directory, files, subscribers)
}

// DownloadReferenceFile downloads a single reference file. See
// DownloadReadSetFile for supported destinations.
func (m *Manager) DownloadReferenceFile(
	ctx context.Context,
	referenceStoreID, referenceID string,
	file omicstypes.ReferenceFile,
	destination any,
	subscribers ...Subscriber,
) (*TransferFuture, error) {
	return m.downloadFile(ctx, transfertypes.ResourceTypeReference,
		referenceStoreID, referenceID, string(file), destination, nil, subscribers)
}

// UploadReadSet uploads one or two read sources as a multipart read set
// upload. On success the created read set ID is available from the future's
// Meta.
func (m *Manager) UploadReadSet(
	ctx context.Context,
	req *transfertypes.ReadSetUploadRequest,
) (*TransferFuture, error) {
	if req.Source1 == nil {
		return nil, errors.NewError("uploadReadSet", errors.ErrMissingSource).
			WithStore(req.StoreID)
	}
	for _, src := range []any{req.Source1, req.Source2} {
		if src != nil && !upload.SupportedSource(src) {
			return nil, errors.NewError("uploadReadSet",
				fmt.Errorf("%w: %T", errors.ErrUnsupportedSource, src)).WithStore(req.StoreID)
		}
	}
	if req.ReferenceArn == "" &&
		req.SourceFileType != omicstypes.FileTypeFastq &&
		req.SourceFileType != omicstypes.FileTypeUbam {
		return nil, errors.NewError("uploadReadSet", errors.ErrMissingReferenceArn).
			WithStore(req.StoreID)
	}

	meta := &transfertypes.Meta{
		TransferID: m.idCounter.Add(1),
		Upload:     req,
	}
	coord := m.track(meta, req.Subscribers)
	future := &TransferFuture{meta: meta, coord: coord}

	coord.SetQueued()
	err := m.submissionPool.Submit(func() {
		if coord.Stopped() {
			coord.AnnounceDone()
			return
		}
		coord.SetRunning()
		m.uploader.Run(ctx, coord, meta)
	})
	if err != nil {
		m.controller.Remove(coord)
		return nil, errors.NewError("uploadReadSet", err).WithStore(req.StoreID)
	}
	return future, nil
}

// serverFile pairs a file selector with its metadata entry.
type serverFile struct {
	name string
	info *omicstypes.FileInformation
}

func presentFiles(all []serverFile) []serverFile {
	out := make([]serverFile, 0, len(all))
	for _, f := range all {
		if f.info != nil {
			out = append(out, f)
		}
	}
	return out
}

func (m *Manager) downloadAll(
	ctx context.Context,
	resourceType transfertypes.ResourceType,
	storeID, resourceID, directory string,
	files []serverFile,
	subscribers []Subscriber,
) ([]*TransferFuture, error) {
	if directory == "" {
		directory = m.config.Directory
	}
	futures := make([]*TransferFuture, 0, len(files))
	for _, f := range files {
		path := filepath.Join(directory, defaultFilename(storeID, resourceID, f.name))
		// The bulk metadata call already resolved the part layout, so the
		// per-file submission tasks skip their lookup.
		info := &transfertypes.FileInfo{
			ContentLength: aws.ToInt64(f.info.ContentLength),
			PartSize:      aws.ToInt64(f.info.PartSize),
			TotalParts:    aws.ToInt32(f.info.TotalParts),
		}
		future, err := m.downloadFile(ctx, resourceType, storeID, resourceID,
			f.name, path, info, subscribers)
		if err != nil {
			return futures, err
		}
		futures = append(futures, future)
	}
	return futures, nil
}

// downloadFile validates the request, selects the destination variant and
// hands the transfer to the submission pool. Configuration problems surface
// here, before any task is queued.
func (m *Manager) downloadFile(
	ctx context.Context,
	resourceType transfertypes.ResourceType,
	storeID, resourceID, fileName string,
	destination any,
	info *transfertypes.FileInfo,
	subscribers []Subscriber,
) (*TransferFuture, error) {
	if fileName == "" {
		return nil, errors.NewError("download", errors.ErrMissingFileSelector).
			WithStore(storeID).WithResource(resourceID)
	}
	if destination == nil {
		if err := os.MkdirAll(m.config.Directory, 0o755); err != nil {
			return nil, errors.NewError("download", err).WithStore(storeID).WithResource(resourceID)
		}
		destination = filepath.Join(m.config.Directory,
			defaultFilename(storeID, resourceID, fileName))
	}
	if path, ok := destination.(string); ok {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.NewError("download", err).WithStore(storeID).WithResource(resourceID)
		}
	}

	req := &transfertypes.FileTransfer{
		Direction:    transfertypes.DirectionDown,
		ResourceType: resourceType,
		StoreID:      storeID,
		ResourceID:   resourceID,
		FileName:     fileName,
		Destination:  destination,
		Subscribers:  subscribers,
		FileInfo:     info,
	}
	meta := &transfertypes.Meta{
		TransferID:   m.idCounter.Add(1),
		FileTransfer: req,
	}

	coord := coordinator.New(meta.TransferID)
	output, err := download.NewOutputManager(destination, coord, m.ioPool)
	if err != nil {
		return nil, errors.NewError("download", err).WithStore(storeID).WithResource(resourceID)
	}

	m.register(coord, meta, subscribers)
	future := &TransferFuture{meta: meta, coord: coord}

	coord.SetQueued()
	serr := m.submissionPool.Submit(func() {
		if coord.Stopped() {
			output.Cleanup()
			coord.AnnounceDone()
			return
		}
		coord.SetRunning()
		m.downloader.Run(ctx, coord, meta, output)
	})
	if serr != nil {
		m.controller.Remove(coord)
		return nil, errors.NewError("download", serr).WithStore(storeID).WithResource(resourceID)
	}
	return future, nil
}

// track creates and registers a coordinator for an upload transfer.
func (m *Manager) track(meta *transfertypes.Meta, subscribers []Subscriber) *coordinator.Coordinator {
	coord := coordinator.New(meta.TransferID)
	m.register(coord, meta, subscribers)
	return coord
}

func (m *Manager) register(
	coord *coordinator.Coordinator,
	meta *transfertypes.Meta,
	subscribers []Subscriber,
) {
	// Remove the coordinator once the transfer completes so it does not
	// stick around in memory.
	coord.AddDoneCallback(func() {
		m.controller.Remove(coord)
	})
	coord.AddDoneCallback(func() {
		for _, s := range subscribers {
			s.OnDone(meta)
		}
	})
	m.controller.Add(coord)
	for _, s := range subscribers {
		s.OnQueued(meta)
	}
}

func defaultFilename(storeID, resourceID, fileName string) string {
	return storeID + "_" + resourceID + "_" + strings.ToLower(fileName)
}

// Shutdown waits until every in-flight transfer reaches its terminal state,
// then stops the pools in dependency order so no pool submits into an
// already-stopped downstream pool. With cancel set it first requests
// cancellation of all tracked transfers, which makes the shutdown faster. If
// ctx dies during the wait, a second, more urgent cancellation pass is made
// before the context error is returned.
func (m *Manager) Shutdown(ctx context.Context, cancel bool, cancelMsg string) error {
	if cancel {
		m.controller.Cancel(&errors.CancelledError{Reason: cancelMsg})
	}
	err := m.controller.Wait(ctx)
	if err != nil {
		m.controller.Cancel(&errors.FatalError{Reason: err.Error()})
	}
	m.submissionPool.Shutdown()
	m.requestPool.Shutdown()
	m.ioPool.Shutdown()
	return err
}

// Run executes fn inside a guarded block. On a nil return the manager shuts
// down normally, waiting for in-flight transfers. If fn returns an error or
// panics, every in-flight transfer is cancelled with a fatal-kind failure
// before the manager shuts down and the error is propagated.
func (m *Manager) Run(fn func(*Manager) error) error {
	var fnErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				fnErr = &errors.FatalError{Reason: fmt.Sprint(r)}
			}
		}()
		fnErr = fn(m)
	}()

	if fnErr != nil {
		m.controller.Cancel(&errors.FatalError{Reason: fnErr.Error()})
		m.Shutdown(context.Background(), false, "")
		return fnErr
	}
	return m.Shutdown(context.Background(), false, "")
}
