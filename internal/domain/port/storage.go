package port

import (
	"context"
	"time"
)

// ObjectStorage issues presigned URLs for direct client access to video objects.
type ObjectStorage interface {
	PresignedUploadURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
	PresignedDownloadURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}
