// Package transfertypes provides shared type definitions for the transfer module.
package transfertypes

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	omicstypes "github.com/aws/aws-sdk-go-v2/service/omics/types"
)

const (
	// KB is one kibibyte
	KB = 1024
	// MB is one mebibyte
	MB = 1024 * KB
)

// ResourceType identifies the kind of Omics resource a file belongs to.
type ResourceType string

// Available resource types
const (
	// ResourceTypeReadSet identifies a read set in a sequence store
	ResourceTypeReadSet ResourceType = "READ_SET"

	// ResourceTypeReference identifies a reference in a reference store
	ResourceTypeReference ResourceType = "REFERENCE"
)

// Direction identifies the direction of a transfer.
type Direction string

// Available transfer directions
const (
	// DirectionDown transfers data from the service to local storage
	DirectionDown Direction = "DOWN"

	// DirectionUp transfers data from local storage to the service
	DirectionUp Direction = "UP"
)

// FileInfo describes the server-side layout of one file: how large it is and
// how the service has split it into parts. When a caller already has this
// information the submission task skips the metadata lookup round trip.
type FileInfo struct {
	// ContentLength is the total size of the file in bytes
	ContentLength int64

	// PartSize is the size of every part except possibly the last
	PartSize int64

	// TotalParts is the number of parts the service will serve for this file
	TotalParts int32
}

// FileTransfer describes one requested file download: which store and resource
// the file lives in, which of the resource's files to fetch, and where the
// bytes should go.
type FileTransfer struct {
	// Direction is the transfer direction (currently always DirectionDown)
	Direction Direction

	// ResourceType is the kind of resource the file belongs to
	ResourceType ResourceType

	// StoreID is the sequence store or reference store ID
	StoreID string

	// ResourceID is the read set or reference ID
	ResourceID string

	// FileName selects the server-side file (SOURCE1, SOURCE2, INDEX for read
	// sets; SOURCE, INDEX for references)
	FileName string

	// Destination receives the downloaded bytes. Supported types, probed in
	// order: a file path (string), an io.WriterAt, an io.WriteSeeker, or a
	// plain io.Writer.
	Destination any

	// Subscribers are invoked in order for queued/progress/done events
	Subscribers []Subscriber

	// FileInfo optionally carries precomputed metadata; when set, the
	// submission task does not call the metadata API
	FileInfo *FileInfo
}

// ReadSetUploadRequest describes a multipart read set upload: the metadata the
// service needs to register the read set, plus one or two local sources
// (paired-end reads upload two).
type ReadSetUploadRequest struct {
	// StoreID is the sequence store ID
	StoreID string

	// SourceFileType is the format of the read data (FASTQ, BAM, CRAM, UBAM)
	SourceFileType omicstypes.FileType

	// SubjectID is the subject the reads were sourced from
	SubjectID string

	// SampleID is the sample the reads were sourced from
	SampleID string

	// GeneratedFrom describes where the read set originated (optional)
	GeneratedFrom string

	// ReferenceArn is the ARN of the reference the reads align to. Required
	// unless SourceFileType is FASTQ or UBAM.
	ReferenceArn string

	// Name is the name of the read set (optional)
	Name string

	// Description is a free-form description (optional)
	Description string

	// Tags are attached to the created read set (optional)
	Tags map[string]string

	// Source1 is the primary read source. Supported types, probed in order:
	// a file path (string), an io.ReadSeeker, or a plain io.Reader.
	Source1 any

	// Source2 is the optional paired read source, same supported types
	Source2 any

	// Subscribers are invoked in order for queued/progress/done events
	Subscribers []Subscriber
}

// Subscriber receives transfer lifecycle events. Implementations should embed
// BaseSubscriber so new events do not break them.
type Subscriber interface {
	// OnQueued is called once when the transfer is accepted by the manager
	OnQueued(meta *Meta)

	// OnProgress is called as bytes are queued for writing. A negative value
	// is a correction: a part attempt failed and its already-counted bytes
	// were discarded.
	OnProgress(meta *Meta, bytesTransferred int64)

	// OnDone is called once when the transfer reaches its terminal state
	OnDone(meta *Meta)
}

// BaseSubscriber is a no-op Subscriber for embedding.
type BaseSubscriber struct{}

// OnQueued implements Subscriber.
func (BaseSubscriber) OnQueued(*Meta) {}

// OnProgress implements Subscriber.
func (BaseSubscriber) OnProgress(*Meta, int64) {}

// OnDone implements Subscriber.
func (BaseSubscriber) OnDone(*Meta) {}

// Meta is the read-only view of one transfer shared with subscribers and
// returned from futures. The size is provided at most once, by the caller or
// by the submission task after the metadata lookup.
type Meta struct {
	// TransferID uniquely identifies the transfer within the manager
	TransferID int64

	// FileTransfer is the download request descriptor (nil for uploads)
	FileTransfer *FileTransfer

	// Upload is the upload request descriptor (nil for downloads)
	Upload *ReadSetUploadRequest

	mu        sync.Mutex
	size      int64
	sizeKnown bool
	readSetID string
}

// ProvideSize records the transfer's total size. The first provided value wins.
func (m *Meta) ProvideSize(size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.sizeKnown {
		m.size = size
		m.sizeKnown = true
	}
}

// Size returns the transfer's total size and whether it is known yet.
func (m *Meta) Size() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size, m.sizeKnown
}

// SetReadSetID records the read set ID returned by a completed upload.
func (m *Meta) SetReadSetID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readSetID = id
}

// ReadSetID returns the read set ID created by a completed upload, or "" if
// the transfer is not a finished upload.
func (m *Meta) ReadSetID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readSetID
}

// Option is a functional option for configuring the transfer manager.
type Option func(*Config)

// Config holds configuration for the transfer manager.
type Config struct {
	// Directory is where downloads land when no destination is given
	Directory string

	// MaxRequestConcurrency is the number of workers making Omics API
	// transfer requests
	MaxRequestConcurrency int

	// MaxSubmissionConcurrency is the number of workers fanning manager calls
	// out into part tasks
	MaxSubmissionConcurrency int

	// MaxRequestQueueSize bounds the request pool backlog; Submit blocks when
	// the backlog is full
	MaxRequestQueueSize int

	// MaxSubmissionQueueSize bounds the submission pool backlog
	MaxSubmissionQueueSize int

	// MaxIOQueueSize bounds the disk-write pool backlog
	MaxIOQueueSize int

	// IOChunkSize is the size of chunks read off the network stream and
	// queued for writing
	IOChunkSize int

	// DownloadAttempts is the per-part attempt budget for transient network
	// errors
	DownloadAttempts int

	// UploadPartSize is the target multipart upload part size. It is adjusted
	// upward when the source would otherwise exceed the service's part-count
	// ceiling.
	UploadPartSize int64

	// MaxInMemoryUploadParts caps how many upload part bodies may be held in
	// memory at once across all transfers
	MaxInMemoryUploadParts int

	// Logger receives debug and warning events; nil disables logging
	Logger *slog.Logger

	// Region overrides the AWS region from the credential chain
	Region string

	// MaxRetries is the AWS SDK retry count for API-level errors (throttling,
	// 5xx). Distinct from DownloadAttempts, which covers mid-stream failures.
	MaxRetries int

	// Timeout applies to individual HTTP requests; zero means no timeout
	Timeout time.Duration

	// CustomHTTPClient overrides the HTTP client used by the SDK
	CustomHTTPClient *http.Client

	// CustomAWSConfig overrides the default AWS configuration loading
	CustomAWSConfig *aws.Config
}

// DefaultConfig returns the manager configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		Directory:                ".",
		MaxRequestConcurrency:    10,
		MaxSubmissionConcurrency: 5,
		MaxRequestQueueSize:      1000,
		MaxSubmissionQueueSize:   1000,
		MaxIOQueueSize:           1000,
		IOChunkSize:              256 * KB,
		DownloadAttempts:         5,
		UploadPartSize:           100 * MB,
		MaxInMemoryUploadParts:   10,
		MaxRetries:               3,
	}
}

// Validate checks that every sizing knob is positive.
func (c *Config) Validate() error {
	for name, v := range map[string]int{
		"MaxRequestConcurrency":    c.MaxRequestConcurrency,
		"MaxSubmissionConcurrency": c.MaxSubmissionConcurrency,
		"MaxRequestQueueSize":      c.MaxRequestQueueSize,
		"MaxSubmissionQueueSize":   c.MaxSubmissionQueueSize,
		"MaxIOQueueSize":           c.MaxIOQueueSize,
		"IOChunkSize":              c.IOChunkSize,
		"DownloadAttempts":         c.DownloadAttempts,
		"MaxInMemoryUploadParts":   c.MaxInMemoryUploadParts,
	} {
		if v <= 0 {
			return &ConfigError{Param: name, Value: int64(v)}
		}
	}
	if c.UploadPartSize <= 0 {
		return &ConfigError{Param: "UploadPartSize", Value: c.UploadPartSize}
	}
	return nil
}

// ConfigError reports a non-positive sizing parameter.
type ConfigError struct {
	// Param is the name of the offending parameter
	Param string

	// Value is the rejected value
	Value int64
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("transfer config: %s of value %d must be greater than 0", e.Param, e.Value)
}
