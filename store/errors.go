package store

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

var (
	// ErrStoreUnavailable wraps transport and authentication failures reaching the object store.
	// Callers decide whether to retry; the client itself never retries.
	ErrStoreUnavailable = errors.New("object store unavailable")

	// ErrObjectNotFound is returned by GetObject for a missing key or bucket.
	ErrObjectNotFound = errors.New("object not found")

	// ErrInvalidBucketName is returned when a bucket name breaks the S3 naming rules.
	ErrInvalidBucketName = errors.New("invalid bucket name")

	// ErrInvalidKey is returned for a key outside 1 to 1024 bytes or not valid UTF-8.
	ErrInvalidKey = errors.New("invalid object key")
)

// BucketCreateError is returned by Put when a missing bucket could not be created.
type BucketCreateError struct {
	Bucket string
	Err    error
}

func (e *BucketCreateError) Error() string {
	return fmt.Sprintf("failed to create bucket %s: %v", e.Bucket, e.Err)
}

func (e *BucketCreateError) Unwrap() error {
	return e.Err
}

// UploadError is returned by Put when the dataset could not be serialized or the object could not be written.
type UploadError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload %s to bucket %s: %v", e.Key, e.Bucket, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// unavailable marks err as a store availability failure while keeping the original error in the chain.
func unavailable(operation string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, operation, err)
}

// isNoSuchBucket detects both the modeled S3 error and the generic API error code of S3-compatible stores.
func isNoSuchBucket(err error) bool {
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchBucket) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchBucket"
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "NoSuchBucket":
			return true
		}
	}
	return false
}
