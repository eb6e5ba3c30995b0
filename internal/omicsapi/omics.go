// Package omicsapi defines the interface for Omics storage operations to
// enable testing and mocking.
package omicsapi

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/omics"
)

// OmicsAPI defines the subset of the AWS HealthOmics API used by this module.
// This interface allows for mocking in tests and potential future implementations.
type OmicsAPI interface {
	// GetReadSetMetadata retrieves details about a read set, including the
	// part layout of each of its files
	GetReadSetMetadata(
		ctx context.Context,
		params *omics.GetReadSetMetadataInput,
		optFns ...func(*omics.Options),
	) (*omics.GetReadSetMetadataOutput, error)

	// GetReadSet retrieves one part of a read set file
	GetReadSet(
		ctx context.Context,
		params *omics.GetReadSetInput,
		optFns ...func(*omics.Options),
	) (*omics.GetReadSetOutput, error)

	// GetReferenceMetadata retrieves details about a reference, including the
	// part layout of each of its files
	GetReferenceMetadata(
		ctx context.Context,
		params *omics.GetReferenceMetadataInput,
		optFns ...func(*omics.Options),
	) (*omics.GetReferenceMetadataOutput, error)

	// GetReference retrieves one part of a reference file
	GetReference(
		ctx context.Context,
		params *omics.GetReferenceInput,
		optFns ...func(*omics.Options),
	) (*omics.GetReferenceOutput, error)

	// CreateMultipartReadSetUpload initiates a multipart read set upload
	CreateMultipartReadSetUpload(
		ctx context.Context,
		params *omics.CreateMultipartReadSetUploadInput,
		optFns ...func(*omics.Options),
	) (*omics.CreateMultipartReadSetUploadOutput, error)

	// UploadReadSetPart uploads one part of a multipart read set upload
	UploadReadSetPart(
		ctx context.Context,
		params *omics.UploadReadSetPartInput,
		optFns ...func(*omics.Options),
	) (*omics.UploadReadSetPartOutput, error)

	// CompleteMultipartReadSetUpload concludes an upload, creating the read set
	CompleteMultipartReadSetUpload(
		ctx context.Context,
		params *omics.CompleteMultipartReadSetUploadInput,
		optFns ...func(*omics.Options),
	) (*omics.CompleteMultipartReadSetUploadOutput, error)

	// AbortMultipartReadSetUpload stops an upload and deletes its parts
	AbortMultipartReadSetUpload(
		ctx context.Context,
		params *omics.AbortMultipartReadSetUploadInput,
		optFns ...func(*omics.Options),
	) (*omics.AbortMultipartReadSetUploadOutput, error)
}

// Verify that the AWS Omics client implements our interface
var _ OmicsAPI = (*omics.Client)(nil)
