// Package transfer provides functional options for configuring manager
// behavior. These options follow the functional options pattern for clean,
// composable configuration.
package transfer

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/omics-tools/omics-transfer/transfertypes"
)

// WithDirectory sets the directory downloads land in when no destination is
// given. Default is the current directory.
func WithDirectory(directory string) transfertypes.Option {
	return func(c *transfertypes.Config) {
		c.Directory = directory
	}
}

// WithRequestConcurrency sets the number of workers making Omics API
// transfer requests. Default is 10.
func WithRequestConcurrency(n int) transfertypes.Option {
	return func(c *transfertypes.Config) {
		if n > 0 {
			c.MaxRequestConcurrency = n
		}
	}
}

// WithSubmissionConcurrency sets the number of workers fanning manager calls
// out into part tasks. Default is 5.
func WithSubmissionConcurrency(n int) transfertypes.Option {
	return func(c *transfertypes.Config) {
		if n > 0 {
			c.MaxSubmissionConcurrency = n
		}
	}
}

// WithRequestQueueSize bounds the request pool backlog. Submitting to a full
// backlog blocks. Default is 1000.
func WithRequestQueueSize(n int) transfertypes.Option {
	return func(c *transfertypes.Config) {
		if n > 0 {
			c.MaxRequestQueueSize = n
		}
	}
}

// WithSubmissionQueueSize bounds the submission pool backlog. Default is 1000.
func WithSubmissionQueueSize(n int) transfertypes.Option {
	return func(c *transfertypes.Config) {
		if n > 0 {
			c.MaxSubmissionQueueSize = n
		}
	}
}

// WithIOQueueSize bounds the disk-write pool backlog. Default is 1000.
func WithIOQueueSize(n int) transfertypes.Option {
	return func(c *transfertypes.Config) {
		if n > 0 {
			c.MaxIOQueueSize = n
		}
	}
}

// WithIOChunkSize sets the size of chunks read off the network stream and
// queued for writing. Default is 256 KiB.
func WithIOChunkSize(n int) transfertypes.Option {
	return func(c *transfertypes.Config) {
		if n > 0 {
			c.IOChunkSize = n
		}
	}
}

// WithDownloadAttempts sets the per-part attempt budget for transient
// network errors while streaming part data. Default is 5. API-level errors
// such as throttling are retried below this layer by the SDK and do not
// count against this budget.
func WithDownloadAttempts(n int) transfertypes.Option {
	return func(c *transfertypes.Config) {
		if n > 0 {
			c.DownloadAttempts = n
		}
	}
}

// WithUploadPartSize sets the target multipart upload part size. Default is
// 100 MiB. The effective size grows when a source would otherwise exceed the
// service's part-count ceiling.
func WithUploadPartSize(n int64) transfertypes.Option {
	return func(c *transfertypes.Config) {
		if n > 0 {
			c.UploadPartSize = n
		}
	}
}

// WithMaxInMemoryUploadParts caps how many upload part bodies may be held in
// memory at once across all transfers. Default is 10.
func WithMaxInMemoryUploadParts(n int) transfertypes.Option {
	return func(c *transfertypes.Config) {
		if n > 0 {
			c.MaxInMemoryUploadParts = n
		}
	}
}

// WithLogger sets the logger for debug and warning events. Default is no
// logging.
func WithLogger(logger *slog.Logger) transfertypes.Option {
	return func(c *transfertypes.Config) {
		c.Logger = logger
	}
}

// WithRegion sets the AWS region for Omics operations. If not specified,
// uses the default AWS region from the credential chain.
func WithRegion(region string) transfertypes.Option {
	return func(c *transfertypes.Config) {
		c.Region = region
	}
}

// WithMaxRetries sets the AWS SDK retry count for API-level errors.
// Default is 3.
func WithMaxRetries(n int) transfertypes.Option {
	return func(c *transfertypes.Config) {
		c.MaxRetries = n
	}
}

// WithTimeout sets the timeout for individual HTTP requests. Default is no
// timeout.
func WithTimeout(timeout time.Duration) transfertypes.Option {
	return func(c *transfertypes.Config) {
		c.Timeout = timeout
	}
}

// WithCustomHTTPClient allows providing a custom HTTP client. This gives
// full control over HTTP behavior including timeouts and proxies.
func WithCustomHTTPClient(client *http.Client) transfertypes.Option {
	return func(c *transfertypes.Config) {
		c.CustomHTTPClient = client
	}
}

// WithAWSConfig allows providing a custom AWS configuration. This overrides
// the default configuration loading behavior.
func WithAWSConfig(config *aws.Config) transfertypes.Option {
	return func(c *transfertypes.Config) {
		c.CustomAWSConfig = config
	}
}
