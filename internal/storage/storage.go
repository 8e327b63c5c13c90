package storage

import (
	"context"
	"fmt"
	"time"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the S3-compatible operations the planner needs:
// uploading plan exports and fetching stock snapshots.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}

// PlanKey returns the object key a plan export is stored under.
func PlanKey(date time.Time, runID string) string {
	return fmt.Sprintf("plans/%s/%s.csv", date.Format("2006-01-02"), runID)
}
