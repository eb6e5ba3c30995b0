package transfer

import (
	"context"

	"github.com/omics-tools/omics-transfer/errors"
	"github.com/omics-tools/omics-transfer/internal/coordinator"
	"github.com/omics-tools/omics-transfer/transfertypes"
)

// TransferFuture is the handle returned for each accepted transfer. It
// observes and controls exactly one transfer; the underlying work proceeds
// whether or not the future is waited on.
type TransferFuture struct {
	meta  *transfertypes.Meta
	coord *coordinator.Coordinator
}

// Meta returns the metadata for this transfer, including the known size once
// one has been provided and, for uploads, the created read set ID.
func (f *TransferFuture) Meta() *transfertypes.Meta {
	return f.meta
}

// Done returns a channel closed when the transfer reaches its terminal
// state.
func (f *TransferFuture) Done() <-chan struct{} {
	return f.coord.Done()
}

// Result blocks until the transfer completes and returns its terminal error,
// nil on success. Waiting can be abandoned through ctx without affecting the
// transfer itself.
func (f *TransferFuture) Result(ctx context.Context) error {
	return f.coord.Result(ctx)
}

// Cancel requests cancellation of the transfer. In-flight part requests
// observe the request at their next checkpoint; Result reports a
// cancelled-kind error once the transfer winds down.
func (f *TransferFuture) Cancel(reason string) {
	f.coord.Cancel(&errors.CancelledError{Reason: reason})
}
