package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	underlying := stderrors.New("access denied")
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "op only",
			err:  NewError("download", underlying),
			want: "omics.download: access denied",
		},
		{
			name: "with store",
			err:  NewError("uploadReadSet", underlying).WithStore("seq-1"),
			want: "omics.uploadReadSet store seq-1: access denied",
		},
		{
			name: "with store and resource",
			err:  NewError("getReadSet", underlying).WithStore("seq-1").WithResource("rs-1"),
			want: "omics.getReadSet seq-1/rs-1: access denied",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	err := NewError("getReadSet", io.ErrUnexpectedEOF).WithStore("seq-1")
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestIsRetriesExceeded(t *testing.T) {
	inner := &RetriesExceededError{Err: io.ErrUnexpectedEOF}
	assert.True(t, IsRetriesExceeded(inner))
	assert.True(t, IsRetriesExceeded(fmt.Errorf("part 3: %w", inner)))
	assert.True(t, IsRetriesExceeded(NewError("download", inner)))
	assert.ErrorIs(t, inner, io.ErrUnexpectedEOF)
	assert.False(t, IsRetriesExceeded(io.ErrUnexpectedEOF))
	assert.False(t, IsRetriesExceeded(nil))
}

func TestIsCancelled(t *testing.T) {
	err := &CancelledError{Reason: "user requested"}
	assert.True(t, IsCancelled(err))
	assert.Equal(t, "transfer cancelled: user requested", err.Error())
	assert.Equal(t, "transfer cancelled", (&CancelledError{}).Error())
	assert.False(t, IsCancelled(stderrors.New("other")))
	assert.False(t, IsCancelled(&FatalError{}))
}

func TestIsFatal(t *testing.T) {
	err := &FatalError{Reason: "context deadline exceeded"}
	assert.True(t, IsFatal(err))
	assert.True(t, IsFatal(fmt.Errorf("shutdown: %w", err)))
	assert.False(t, IsFatal(&CancelledError{}))
}
