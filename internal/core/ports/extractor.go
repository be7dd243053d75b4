package ports

import "context"

// Extractor materializes an archive into a directory.
//
//go:generate mockgen -source=extractor.go -destination=mocks/mock_extractor.go -package=mocks
type Extractor interface {
	// Extract decodes every member of the archive at archivePath into destDir.
	// The first failing member aborts the extraction.
	Extract(ctx context.Context, archivePath, destDir string) error
}
