package fetcher

import (
	"context"
)

// Fetcher downloads a remote document to a local path.
type Fetcher interface {
	// Fetch writes the content of fileID to destPath and returns the number
	// of bytes written. destPath is only replaced when the whole body
	// arrived.
	Fetch(ctx context.Context, accessToken, fileID, destPath string) (int64, error)
}
