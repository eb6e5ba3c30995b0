// Package testutil provides test utilities and mocks for Omics transfer
// operations. This package is internal and should only be used for testing
// within this module.
package testutil

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/omics"
)

// MockOmicsClient is a mock implementation of the OmicsAPI interface for
// testing. It allows customization of each operation through function fields.
type MockOmicsClient struct {
	GetReadSetMetadataFunc            func(context.Context, *omics.GetReadSetMetadataInput, ...func(*omics.Options)) (*omics.GetReadSetMetadataOutput, error)
	GetReadSetFunc                    func(context.Context, *omics.GetReadSetInput, ...func(*omics.Options)) (*omics.GetReadSetOutput, error)
	GetReferenceMetadataFunc          func(context.Context, *omics.GetReferenceMetadataInput, ...func(*omics.Options)) (*omics.GetReferenceMetadataOutput, error)
	GetReferenceFunc                  func(context.Context, *omics.GetReferenceInput, ...func(*omics.Options)) (*omics.GetReferenceOutput, error)
	CreateMultipartReadSetUploadFunc  func(context.Context, *omics.CreateMultipartReadSetUploadInput, ...func(*omics.Options)) (*omics.CreateMultipartReadSetUploadOutput, error)
	UploadReadSetPartFunc             func(context.Context, *omics.UploadReadSetPartInput, ...func(*omics.Options)) (*omics.UploadReadSetPartOutput, error)
	CompleteMultipartReadSetUploadFunc func(context.Context, *omics.CompleteMultipartReadSetUploadInput, ...func(*omics.Options)) (*omics.CompleteMultipartReadSetUploadOutput, error)
	AbortMultipartReadSetUploadFunc   func(context.Context, *omics.AbortMultipartReadSetUploadInput, ...func(*omics.Options)) (*omics.AbortMultipartReadSetUploadOutput, error)
}

// GetReadSetMetadata mocks the Omics GetReadSetMetadata operation.
func (m *MockOmicsClient) GetReadSetMetadata(
	ctx context.Context,
	params *omics.GetReadSetMetadataInput,
	optFns ...func(*omics.Options),
) (*omics.GetReadSetMetadataOutput, error) {
	if m.GetReadSetMetadataFunc != nil {
		return m.GetReadSetMetadataFunc(ctx, params, optFns...)
	}
	return &omics.GetReadSetMetadataOutput{}, nil
}

// GetReadSet mocks the Omics GetReadSet operation.
func (m *MockOmicsClient) GetReadSet(
	ctx context.Context,
	params *omics.GetReadSetInput,
	optFns ...func(*omics.Options),
) (*omics.GetReadSetOutput, error) {
	if m.GetReadSetFunc != nil {
		return m.GetReadSetFunc(ctx, params, optFns...)
	}
	return &omics.GetReadSetOutput{}, nil
}

// GetReferenceMetadata mocks the Omics GetReferenceMetadata operation.
func (m *MockOmicsClient) GetReferenceMetadata(
	ctx context.Context,
	params *omics.GetReferenceMetadataInput,
	optFns ...func(*omics.Options),
) (*omics.GetReferenceMetadataOutput, error) {
	if m.GetReferenceMetadataFunc != nil {
		return m.GetReferenceMetadataFunc(ctx, params, optFns...)
	}
	return &omics.GetReferenceMetadataOutput{}, nil
}

// GetReference mocks the Omics GetReference operation.
func (m *MockOmicsClient) GetReference(
	ctx context.Context,
	params *omics.GetReferenceInput,
	optFns ...func(*omics.Options),
) (*omics.GetReferenceOutput, error) {
	if m.GetReferenceFunc != nil {
		return m.GetReferenceFunc(ctx, params, optFns...)
	}
	return &omics.GetReferenceOutput{}, nil
}

// CreateMultipartReadSetUpload mocks the Omics CreateMultipartReadSetUpload operation.
func (m *MockOmicsClient) CreateMultipartReadSetUpload(
	ctx context.Context,
	params *omics.CreateMultipartReadSetUploadInput,
	optFns ...func(*omics.Options),
) (*omics.CreateMultipartReadSetUploadOutput, error) {
	if m.CreateMultipartReadSetUploadFunc != nil {
		return m.CreateMultipartReadSetUploadFunc(ctx, params, optFns...)
	}
	return &omics.CreateMultipartReadSetUploadOutput{}, nil
}

// UploadReadSetPart mocks the Omics UploadReadSetPart operation.
func (m *MockOmicsClient) UploadReadSetPart(
	ctx context.Context,
	params *omics.UploadReadSetPartInput,
	optFns ...func(*omics.Options),
) (*omics.UploadReadSetPartOutput, error) {
	if m.UploadReadSetPartFunc != nil {
		return m.UploadReadSetPartFunc(ctx, params, optFns...)
	}
	return &omics.UploadReadSetPartOutput{}, nil
}

// CompleteMultipartReadSetUpload mocks the Omics CompleteMultipartReadSetUpload operation.
func (m *MockOmicsClient) CompleteMultipartReadSetUpload(
	ctx context.Context,
	params *omics.CompleteMultipartReadSetUploadInput,
	optFns ...func(*omics.Options),
) (*omics.CompleteMultipartReadSetUploadOutput, error) {
	if m.CompleteMultipartReadSetUploadFunc != nil {
		return m.CompleteMultipartReadSetUploadFunc(ctx, params, optFns...)
	}
	return &omics.CompleteMultipartReadSetUploadOutput{}, nil
}

// AbortMultipartReadSetUpload mocks the Omics AbortMultipartReadSetUpload operation.
func (m *MockOmicsClient) AbortMultipartReadSetUpload(
	ctx context.Context,
	params *omics.AbortMultipartReadSetUploadInput,
	optFns ...func(*omics.Options),
) (*omics.AbortMultipartReadSetUploadOutput, error) {
	if m.AbortMultipartReadSetUploadFunc != nil {
		return m.AbortMultipartReadSetUploadFunc(ctx, params, optFns...)
	}
	return &omics.AbortMultipartReadSetUploadOutput{}, nil
}
