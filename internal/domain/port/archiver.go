package port

import "context"

// Archiver bundles the extracted frame files into a single archive for
// upload. Paths are archived in the given order.
type Archiver interface {
	CreateArchive(ctx context.Context, filePaths []string, outputPath string) error
}
