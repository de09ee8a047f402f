// Package export writes analytics reports to S3, falling back to the local file system.
package export

import (
	"context"
)

// Exporter stores a named report and returns where it was written.
type Exporter interface {
	Export(ctx context.Context, name string, data []byte) (string, error)
}
